package util

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter caps outbound requests at a fixed number per minute. A nil
// *RateLimiter never blocks.
type RateLimiter struct {
	lim *rate.Limiter
}

// NewRateLimiter creates a RateLimiter that allows perMinute operations per
// minute with a burst of one. perMinute <= 0 disables limiting and returns
// nil.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &RateLimiter{lim: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1)}
}

// Wait blocks until a token is available or the context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	return rl.lim.Wait(ctx)
}
