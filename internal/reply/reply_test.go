package reply

import (
	"testing"

	"github.com/toxwatch/toxwatch/internal/feed"
	"github.com/toxwatch/toxwatch/internal/perspective"
)

func TestStaticReply(t *testing.T) {
	gen, err := New(ModeStatic, "please reconsider")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	item := &feed.Item{ID: "1", Text: "something"}
	scores := perspective.ScoreSet{"TOXICITY": 0.9}
	if got := gen.Reply(item, scores); got != "please reconsider" {
		t.Errorf("got %q", got)
	}
	// Same string for every item.
	if got := gen.Reply(&feed.Item{ID: "2"}, nil); got != "please reconsider" {
		t.Errorf("got %q", got)
	}
}

func TestStaticRequiresText(t *testing.T) {
	if _, err := New(ModeStatic, ""); err == nil {
		t.Error("expected error for empty static text")
	}
}

func TestDynamicFailsAtConstruction(t *testing.T) {
	if _, err := New(ModeDynamic, ""); err == nil {
		t.Error("expected dynamic mode to fail at startup")
	}
}

func TestUnknownMode(t *testing.T) {
	if _, err := New("witty", ""); err == nil {
		t.Error("expected error for unknown mode")
	}
}
