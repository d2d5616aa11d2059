// Package ratelimit throttles login attempts per client with a fixed window.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether another attempt for key fits into the current
// window. When it does not, retryAfter tells how long until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (allowed bool, retryAfter time.Duration, err error)
}

// Unlimited allows everything. It stands in when throttling is disabled.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string, time.Time) (bool, time.Duration, error) {
	return true, 0, nil
}
