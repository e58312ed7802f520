// Package recovery implements the resilience primitives the session
// controller composes around a live connection: a sliding-window rate
// limiter for log suppression, a circuit breaker, exponential-backoff
// retry policy, a per-connection protocol-violation tracker, and a 5250
// sequence-number validator (spec §9, "resilience design").
package recovery

import (
	"sync"
	"time"
)

// RateLimiter suppresses repeated logging of the same error type beyond
// N events within a sliding window, keyed by an arbitrary string (an
// error-type tag).
type RateLimiter struct {
	limit  int
	window time.Duration

	mu     sync.Mutex
	events map[string][]time.Time
	now    func() time.Time
}

// NewRateLimiter creates a limiter allowing up to limit events per
// window, per key.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		events: make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records one occurrence of key and reports whether it falls
// within the limit (true) or should be suppressed (false).
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)
	kept := r.events[key][:0]
	for _, t := range r.events[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.events[key] = kept

	if len(kept) >= r.limit {
		r.events[key] = append(r.events[key], now)
		return false
	}
	r.events[key] = append(r.events[key], now)
	return true
}

// Count returns how many events for key remain within the current
// window.
func (r *RateLimiter) Count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.window)
	n := 0
	for _, t := range r.events[key] {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}
