// Package ratelimit enforces the fixed inter-request delay of a source's
// sequential crawl flow.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter blocks the calling flow for a configured delay between successive
// network-touching actions. Sources run strictly sequentially, so one limiter
// per scraper is enough; there is no cross-source coordination to do.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter with the given delay between actions. A non-positive
// delay disables pacing entirely.
func New(delay time.Duration) *Limiter {
	if delay <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the delay since the previous action has elapsed,
// respecting the context. The first call proceeds immediately.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}
