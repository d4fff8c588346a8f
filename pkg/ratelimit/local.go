package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// LocalRateLimiter is an in-process token bucket per key, used when Redis is
// not configured. Limits are only enforced per instance.
type LocalRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewLocalRateLimiter creates an empty LocalRateLimiter
func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{buckets: make(map[string]*bucket), now: time.Now}
}

// Allow takes one token from the bucket of key, refilling at limit.Rate per limit.Period
func (l *LocalRateLimiter) Allow(_ context.Context, key string, limit Limit) (*Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 || limit.Burst <= 0 {
		return &Result{Allowed: true}, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(limit.Burst), lastRefill: now}
		l.buckets[key] = b
	}
	refillRate := float64(limit.Rate) / limit.Period.Seconds()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = math.Min(float64(limit.Burst), b.tokens+elapsed*refillRate)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return &Result{
			Allowed:    true,
			Remaining:  int(b.tokens),
			ResetAfter: secondsToDuration((float64(limit.Burst) - b.tokens) / refillRate),
		}, nil
	}
	return &Result{
		Allowed:    false,
		RetryAfter: secondsToDuration((1 - b.tokens) / refillRate),
		ResetAfter: secondsToDuration((float64(limit.Burst) - b.tokens) / refillRate),
	}, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
