package evaluate

import (
	"testing"

	"github.com/toxwatch/toxwatch/internal/perspective"
)

func TestAboveRulePass(t *testing.T) {
	r := Rule{Attribute: "TOXICITY", Threshold: 0.5, Mode: ModeAbove}

	if !r.Pass(0.6) {
		t.Error("0.6 > 0.5 should pass")
	}
	if r.Pass(0.5) {
		t.Error("comparison is strict; 0.5 should not pass")
	}
	if r.Pass(0.4) {
		t.Error("0.4 should not pass")
	}
}

func TestBelowRulePass(t *testing.T) {
	r := Rule{Attribute: "SEXUALLY_EXPLICIT", Threshold: 0.5, Mode: ModeBelow}

	if !r.Pass(0.4) {
		t.Error("0.4 < 0.5 should pass")
	}
	if r.Pass(0.5) {
		t.Error("comparison is strict; 0.5 should not pass")
	}
	if r.Pass(0.6) {
		t.Error("0.6 should not pass")
	}
}

func TestMatchesIsAndOverRules(t *testing.T) {
	rules := []Rule{
		{Attribute: "SEVERE_TOXICITY", Threshold: 0.5, Mode: ModeAbove},
		{Attribute: "IDENTITY_ATTACK", Threshold: 0.5, Mode: ModeAbove},
		{Attribute: "SEXUALLY_EXPLICIT", Threshold: 0.5, Mode: ModeBelow},
	}
	scores := perspective.ScoreSet{
		"SEVERE_TOXICITY":   0.8,
		"IDENTITY_ATTACK":   0.7,
		"SEXUALLY_EXPLICIT": 0.1,
	}

	if !Matches(scores, rules) {
		t.Fatal("expected match")
	}

	// Adding one additional failing rule flips the result.
	withFailing := append(append([]Rule{}, rules...), Rule{Attribute: "INSULT", Threshold: 0.9, Mode: ModeAbove})
	scores["INSULT"] = 0.2
	if Matches(scores, withFailing) {
		t.Error("a single failing rule should reject the match")
	}
}

func TestMatchesExclusionRejects(t *testing.T) {
	rules := []Rule{
		{Attribute: "SEVERE_TOXICITY", Threshold: 0.5, Mode: ModeAbove},
		{Attribute: "SEXUALLY_EXPLICIT", Threshold: 0.5, Mode: ModeBelow},
	}
	scores := perspective.ScoreSet{
		"SEVERE_TOXICITY":   0.9,
		"SEXUALLY_EXPLICIT": 0.8,
	}

	if Matches(scores, rules) {
		t.Error("exclusion attribute above its threshold should reject")
	}
}

func TestMatchesEmptyRules(t *testing.T) {
	if !Matches(perspective.ScoreSet{"TOXICITY": 0.1}, nil) {
		t.Error("empty rule set trivially matches")
	}
}

func TestAttributes(t *testing.T) {
	rules := []Rule{
		{Attribute: "SEVERE_TOXICITY", Threshold: 0.5, Mode: ModeAbove},
		{Attribute: "IDENTITY_ATTACK", Threshold: 0.5, Mode: ModeAbove},
	}
	attrs := Attributes(rules)
	if len(attrs) != 2 || attrs[0] != "SEVERE_TOXICITY" || attrs[1] != "IDENTITY_ATTACK" {
		t.Errorf("got %v", attrs)
	}
}

func TestValidateRules(t *testing.T) {
	valid := []Rule{{Attribute: "TOXICITY", Threshold: 0.5, Mode: ModeAbove}}
	if err := ValidateRules(valid); err != nil {
		t.Errorf("valid rules rejected: %v", err)
	}

	cases := []struct {
		name  string
		rules []Rule
	}{
		{"empty", nil},
		{"unknown attribute", []Rule{{Attribute: "SNARK", Threshold: 0.5, Mode: ModeAbove}}},
		{"threshold above range", []Rule{{Attribute: "TOXICITY", Threshold: 1.2, Mode: ModeAbove}}},
		{"threshold below range", []Rule{{Attribute: "TOXICITY", Threshold: -0.1, Mode: ModeAbove}}},
		{"bad mode", []Rule{{Attribute: "TOXICITY", Threshold: 0.5, Mode: "around"}}},
		{"duplicate", []Rule{
			{Attribute: "TOXICITY", Threshold: 0.5, Mode: ModeAbove},
			{Attribute: "TOXICITY", Threshold: 0.7, Mode: ModeAbove},
		}},
	}
	for _, tc := range cases {
		if err := ValidateRules(tc.rules); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
