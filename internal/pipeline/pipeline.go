// Package pipeline drives the streaming evaluation loop: pull an item,
// filter, score, evaluate, track, tally.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/toxwatch/toxwatch/internal/evaluate"
	"github.com/toxwatch/toxwatch/internal/feed"
	"github.com/toxwatch/toxwatch/internal/perspective"
	"github.com/toxwatch/toxwatch/internal/reply"
	"github.com/toxwatch/toxwatch/internal/tracking"
)

// Classifier scores text for the requested attributes. Failures come back as
// *perspective.ClassifyError; anything else counts as transport.
type Classifier interface {
	Analyze(ctx context.Context, text string, attributes []string) (perspective.ScoreSet, error)
}

// Waiter paces outbound classification calls.
type Waiter interface {
	Wait(ctx context.Context) error
}

// StopReason says how a run left its processing loop. Every reason leads to
// the same summary.
type StopReason string

const (
	// StopLimit: the configured processed or matched limit was reached.
	StopLimit StopReason = "limit"
	// StopDrained: a finite source yielded everything it had.
	StopDrained StopReason = "drained"
	// StopTransport: the feed connection broke or the tracking destination
	// stopped accepting appends.
	StopTransport StopReason = "transport_error"
	// StopInterrupt: an operator interrupt was observed.
	StopInterrupt StopReason = "interrupt"
)

// Options are the per-run limits and filters.
type Options struct {
	MaxProcessed int // 0 = unlimited
	MaxMatched   int // 0 = unlimited
	Language     string
	AllLanguages bool
}

// Summary is the outcome of one run, emitted identically on every
// termination path.
type Summary struct {
	StopReason StopReason
	Err        error // cause of a transport stop, nil otherwise
	Processed  int
	Matched    int
	Errors     map[perspective.ErrorKind]int
	Started    time.Time
	Duration   time.Duration
}

// ErrorTotal returns the total error count across kinds.
func (s *Summary) ErrorTotal() int {
	total := 0
	for _, n := range s.Errors {
		total += n
	}
	return total
}

// Format renders the summary for the terminal.
func (s *Summary) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summary (%s after %s):\n", s.StopReason, s.Duration.Round(time.Millisecond))
	if s.Err != nil {
		fmt.Fprintf(&b, "- Stopped by: %v\n", s.Err)
	}
	fmt.Fprintf(&b, "- Processed %d items\n", s.Processed)
	fmt.Fprintf(&b, "- Matched %d items\n", s.Matched)
	fmt.Fprintf(&b, "- Encountered %d errors", s.ErrorTotal())
	if len(s.Errors) > 0 {
		b.WriteString(":")
		kinds := make([]string, 0, len(s.Errors))
		for k := range s.Errors {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(&b, "\n    %d - %s", s.Errors[perspective.ErrorKind(k)], k)
		}
	}
	b.WriteString("\n")
	return b.String()
}

// Pipeline evaluates a single sequential run. Counters live on the run, not
// the pipeline, so an instance could be reused; nothing here is safe for
// concurrent runs.
type Pipeline struct {
	src        feed.Source
	classifier Classifier
	limiter    Waiter
	rules      []evaluate.Rule
	attrs      []string
	replier    reply.Generator
	store      *tracking.Store
	opts       Options
}

// New assembles a pipeline. All configuration has been validated by the
// caller; rules are trusted here.
func New(src feed.Source, classifier Classifier, limiter Waiter, rules []evaluate.Rule, replier reply.Generator, store *tracking.Store, opts Options) *Pipeline {
	return &Pipeline{
		src:        src,
		classifier: classifier,
		limiter:    limiter,
		rules:      rules,
		attrs:      evaluate.Attributes(rules),
		replier:    replier,
		store:      store,
		opts:       opts,
	}
}

// runState holds the counters owned by one run.
type runState struct {
	processed int
	matched   int
	errors    map[perspective.ErrorKind]int
}

func (st *runState) countError(kind perspective.ErrorKind) {
	st.errors[kind]++
}

// Run processes the feed until a stop condition and returns the summary. It
// returns on every path, including interrupt and transport failure, and
// never panics past this point.
func (p *Pipeline) Run(ctx context.Context) *Summary {
	st := &runState{errors: make(map[perspective.ErrorKind]int)}
	started := time.Now()

	reason, cause := p.loop(ctx, st)

	return &Summary{
		StopReason: reason,
		Err:        cause,
		Processed:  st.processed,
		Matched:    st.matched,
		Errors:     st.errors,
		Started:    started,
		Duration:   time.Since(started),
	}
}

func (p *Pipeline) loop(ctx context.Context, st *runState) (StopReason, error) {
	for {
		// Interrupts are observed at the top of the loop and inside every
		// blocking wait below.
		if ctx.Err() != nil {
			return StopInterrupt, nil
		}

		if p.opts.MaxProcessed > 0 && st.processed >= p.opts.MaxProcessed {
			return StopLimit, nil
		}
		if p.opts.MaxMatched > 0 && st.matched >= p.opts.MaxMatched {
			return StopLimit, nil
		}

		item, err := p.src.Next(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return StopInterrupt, nil
			case errors.Is(err, io.EOF):
				return StopDrained, nil
			case errors.Is(err, feed.ErrMalformedRecord):
				st.countError(perspective.KindDecodeFailure)
				log.Printf("Skipping undecodable record: %v", err)
				continue
			default:
				return StopTransport, err
			}
		}

		// Language filter: discarded items are neither processed nor errors.
		if !p.opts.AllLanguages && item.Lang != p.opts.Language {
			continue
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return StopInterrupt, nil
		}

		scores, err := p.classifier.Analyze(ctx, item.Text, p.attrs)
		if err != nil {
			if ctx.Err() != nil {
				return StopInterrupt, nil
			}
			st.countError(classifyKind(err))
			st.processed++
			log.Printf("Skipping item %s due to %s", item.ID, classifyKind(err))
			continue
		}

		if evaluate.Matches(scores, p.rules) {
			match := tracking.Match{
				Item:      *item,
				Scores:    scores,
				Reply:     p.replier.Reply(item, scores),
				TrackedAt: time.Now().UTC(),
			}
			if err := p.store.Append(match); err != nil {
				// Continuing would silently drop matches; stop the run.
				st.processed++
				return StopTransport, fmt.Errorf("tracking: %w", err)
			}
			st.matched++
			log.Printf("Match: %s", item.Display())
		}

		st.processed++
	}
}

// classifyKind extracts the error kind from a classification failure. A
// classifier that returns something other than a ClassifyError still only
// costs one counted error.
func classifyKind(err error) perspective.ErrorKind {
	var ce *perspective.ClassifyError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return perspective.KindTransport
}
