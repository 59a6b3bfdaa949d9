package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count       int
	windowStart time.Time
}

// MemoryLimiter is a per-key window counter held in process memory. The
// window starts at the first request of a key and is reset lazily by the
// first request after it elapsed. State is lost on restart.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || now.Sub(b.windowStart) > l.window {
		l.buckets[key] = &bucket{count: 1, windowStart: now}
		return Decision{Allowed: true, Limit: l.limit, Remaining: remaining(l.limit, 1), RetryAfter: l.window}, nil
	}

	b.count++
	reset := b.windowStart.Add(l.window).Sub(now)
	if b.count > l.limit {
		return Decision{Allowed: false, Limit: l.limit, Remaining: 0, RetryAfter: reset}, nil
	}
	return Decision{Allowed: true, Limit: l.limit, Remaining: remaining(l.limit, b.count), RetryAfter: reset}, nil
}

// Len reports the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
