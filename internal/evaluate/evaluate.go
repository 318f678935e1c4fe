// Package evaluate decides whether a set of attribute scores constitutes a
// match against configured threshold rules.
package evaluate

import (
	"fmt"

	"github.com/toxwatch/toxwatch/internal/perspective"
)

// Mode selects the comparison direction of a rule. Above rules gate matches
// in (e.g. identity attack must exceed the threshold); below rules gate
// matches out (e.g. sexual explicitness must stay under it).
type Mode string

const (
	ModeAbove Mode = "above"
	ModeBelow Mode = "below"
)

// Rule is one per-attribute threshold, configured once at startup.
type Rule struct {
	Attribute string
	Threshold float64
	Mode      Mode
}

// Pass reports whether a single score satisfies the rule.
func (r Rule) Pass(score float64) bool {
	if r.Mode == ModeBelow {
		return score < r.Threshold
	}
	return score > r.Threshold
}

// Matches reports whether scores satisfy every rule. An attribute without a
// rule is not a gating factor; an empty rule set matches everything, which
// configuration validation guards against.
func Matches(scores perspective.ScoreSet, rules []Rule) bool {
	for _, r := range rules {
		if !r.Pass(scores[r.Attribute]) {
			return false
		}
	}
	return true
}

// Attributes returns the attribute names the rules gate on, in rule order.
// These are the attributes requested from the scoring service.
func Attributes(rules []Rule) []string {
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.Attribute)
	}
	return names
}

// ValidateRules rejects misconfigured rules before a run starts. Runtime
// evaluation assumes rules have passed here.
func ValidateRules(rules []Rule) error {
	if len(rules) == 0 {
		return fmt.Errorf("at least one attribute rule is required")
	}
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if !perspective.KnownAttribute(r.Attribute) {
			return fmt.Errorf("unrecognized attribute %q", r.Attribute)
		}
		if _, dup := seen[r.Attribute]; dup {
			return fmt.Errorf("duplicate rule for attribute %q", r.Attribute)
		}
		seen[r.Attribute] = struct{}{}
		if r.Threshold < 0 || r.Threshold > 1 {
			return fmt.Errorf("threshold for %s must be in [0,1], got %g", r.Attribute, r.Threshold)
		}
		if r.Mode != ModeAbove && r.Mode != ModeBelow {
			return fmt.Errorf("mode for %s must be %q or %q, got %q", r.Attribute, ModeAbove, ModeBelow, r.Mode)
		}
	}
	return nil
}
