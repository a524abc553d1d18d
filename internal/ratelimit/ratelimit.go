// Package ratelimit paces outbound calls to the quote feed and report webhooks.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket refilled at rps tokens per second.
// The bucket holds at most max(rps, 1) tokens so sub-1 rates still admit a call.
type Limiter struct {
	rps      float64
	capacity float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
	now    func() time.Time
}

// New creates a limiter allowing rps calls per second. Non-positive rates default to 1.
func New(rps float64) *Limiter {
	if rps <= 0 {
		rps = 1.0
	}
	capacity := rps
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{
		rps:      rps,
		capacity: capacity,
		tokens:   capacity,
		last:     time.Now(),
		now:      time.Now,
	}
}

// Wait blocks until a token is taken or ctx is done
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		delay := l.reserve()
		if delay == 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes a token and returns 0, or returns how long until one is due
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.tokens += now.Sub(l.last).Seconds() * l.rps
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}
	l.last = now

	if l.tokens >= 1.0 {
		l.tokens -= 1.0
		return 0
	}

	missing := 1.0 - l.tokens
	return time.Duration(missing / l.rps * float64(time.Second))
}
