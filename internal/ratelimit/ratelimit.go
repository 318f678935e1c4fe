// Package ratelimit paces outbound calls to the scoring service.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces a single logical stream of calls so the realized call rate
// stays slightly under the nominal limit. The padding is folded into the
// interval between calls, so even a caller with zero processing time of its
// own will not trip the service's enforcement. The first call never blocks.
//
// Not safe for concurrent callers; the pipeline issues calls sequentially.
type Limiter struct {
	lim *rate.Limiter
}

// New creates a Limiter for the given maximum calls per second, each call
// padded by the given duration. callsPerSecond must be positive and padding
// non-negative; both are validated at configuration time.
func New(callsPerSecond float64, padding time.Duration) (*Limiter, error) {
	if callsPerSecond <= 0 {
		return nil, fmt.Errorf("calls per second must be positive, got %g", callsPerSecond)
	}
	if padding < 0 {
		return nil, fmt.Errorf("padding must be non-negative, got %s", padding)
	}

	interval := time.Duration(float64(time.Second)/callsPerSecond) + padding
	return &Limiter{lim: rate.NewLimiter(rate.Every(interval), 1)}, nil
}

// Wait blocks until at least one padded call-interval has elapsed since the
// previous Wait returned. Returns early with the context's error if ctx is
// cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.lim.Wait(ctx)
}
