// Package ratelimit implements sliding-window request counters keyed by an
// arbitrary string (the middleware uses route class + client address).
package ratelimit

import (
	"context"
	"time"
)

// Decision is the result of a single Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts requests for key within a sliding window. Each call is an
// atomic check-and-record: concurrent callers for the same key never admit
// more than limit requests per window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}
