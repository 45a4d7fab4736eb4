package enrich

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a fixed minimum delay between successive lookup requests.
// It is a courtesy policy toward the free metadata API, not an adaptive
// scheme: the interval never changes in response to latency, errors, or
// rate-limit responses.
//
// A burst of 1 makes the limiter behave as fixed spacing: the first Wait
// returns immediately and each subsequent Wait blocks until the interval
// has passed since the previous one. A batch of N candidates therefore
// incurs N-1 delays, with no trailing sleep after the last.
type Pacer struct {
	lim *rate.Limiter
}

// NewPacer creates a Pacer with the given minimum interval between calls.
// A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	return &Pacer{lim: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next request may proceed, or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.lim == nil {
		return ctx.Err()
	}
	return p.lim.Wait(ctx)
}
