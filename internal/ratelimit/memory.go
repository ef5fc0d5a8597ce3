package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is a process-local sliding-window log. It backs the rate
// limit when Redis is not configured and in tests.
type MemoryLimiter struct {
	mu    sync.Mutex
	now   func() time.Time
	hits  map[string][]time.Time
	calls int
}

// NewMemoryLimiter returns an empty limiter. now may be nil.
func NewMemoryLimiter(now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{now: now, hits: make(map[string][]time.Time)}
}

// Allow implements Limiter.
func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-window)
	log := prune(m.hits[key], cutoff)

	d := Decision{Limit: limit}
	if len(log) < limit {
		log = append(log, now)
		d.Allowed = true
	} else {
		d.RetryAfter = log[0].Add(window).Sub(now)
	}
	d.Remaining = limit - len(log)
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	m.hits[key] = log

	m.calls++
	if m.calls%1024 == 0 {
		m.gc(cutoff)
	}
	return d, nil
}

// prune drops timestamps at or before cutoff. log is ordered oldest first.
func prune(log []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	return log[i:]
}

// gc forgets keys whose newest hit has left the window. Keys of other route
// classes may use longer windows, so only fully idle keys are removed.
func (m *MemoryLimiter) gc(cutoff time.Time) {
	for k, log := range m.hits {
		if len(log) == 0 {
			delete(m.hits, k)
			continue
		}
		if log[len(log)-1].Before(cutoff.Add(-24 * time.Hour)) {
			delete(m.hits, k)
		}
	}
}
