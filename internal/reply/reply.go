// Package reply produces candidate responses for matched items.
package reply

import (
	"fmt"

	"github.com/toxwatch/toxwatch/internal/feed"
	"github.com/toxwatch/toxwatch/internal/perspective"
)

// Reply modes selectable in configuration.
const (
	ModeStatic  = "static"
	ModeDynamic = "dynamic"
)

// Generator produces a candidate response for a matched item. The pipeline
// calls it uniformly regardless of variant.
type Generator interface {
	Reply(item *feed.Item, scores perspective.ScoreSet) string
}

// Static always returns one configured string.
type Static struct {
	Text string
}

func (s *Static) Reply(*feed.Item, perspective.ScoreSet) string {
	return s.Text
}

// New creates the generator for the configured mode. The dynamic variant is
// not implemented; selecting it fails here, at startup, rather than per item
// mid-run.
func New(mode, text string) (Generator, error) {
	switch mode {
	case ModeStatic:
		if text == "" {
			return nil, fmt.Errorf("static reply mode requires reply text")
		}
		return &Static{Text: text}, nil
	case ModeDynamic:
		return nil, fmt.Errorf("reply mode %q not implemented", mode)
	default:
		return nil, fmt.Errorf("unknown reply mode %q", mode)
	}
}
