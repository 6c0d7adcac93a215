// Package server implements a sliding-window rate limiter for per-session
// mutation throttling that protects the board from floods.
package server

import (
	"sync"
	"time"
)

// RateLimiter admits at most limit events per session within any trailing
// window. Timestamps older than the window are pruned on every check, so
// per-session state never grows past limit entries.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	hits   map[string][]time.Time
}

// NewRateLimiter creates a limiter admitting limit events per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

// TryAdmit records and admits an event for sessionID if fewer than limit
// admitted events fall inside the trailing window.
func (rl *RateLimiter) TryAdmit(sessionID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	recent := rl.hits[sessionID]
	kept := recent[:0]
	for _, ts := range recent {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= rl.limit {
		rl.hits[sessionID] = kept
		return false
	}

	rl.hits[sessionID] = append(kept, now)
	return true
}

// Forget drops all state for sessionID.
func (rl *RateLimiter) Forget(sessionID string) {
	rl.mu.Lock()
	delete(rl.hits, sessionID)
	rl.mu.Unlock()
}

func (rl *RateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.hits)
}
