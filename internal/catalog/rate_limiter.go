package catalog

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces requests evenly; callers reserve the next free slot
// and sleep until it comes up.
type RateLimiter struct {
	mu       sync.Mutex
	next     time.Time
	interval time.Duration
}

func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &RateLimiter{interval: time.Second / time.Duration(requestsPerSecond)}
}

func (r *RateLimiter) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	slot := now
	if r.next.After(now) {
		slot = r.next
	}
	r.next = slot.Add(r.interval)
	return slot.Sub(now)
}

// Wait blocks until the caller's slot or until ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	delay := r.reserve()
	if delay <= 0 {
		return ctx.Err()
	}
	return sleepContext(ctx, delay)
}
