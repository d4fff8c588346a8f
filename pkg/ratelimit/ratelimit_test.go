package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPerSecond(t *testing.T) {
	assert.Equal(t, Limit{Rate: 5, Period: time.Second, Burst: 10}, PerSecond(5, 10))
}

func TestAllowRejectsInvalidLimit(t *testing.T) {
	r := NewRedisRateLimiter(nil)
	_, err := r.Allow(context.Background(), "k", Limit{})
	assert.Error(t, err)
}

func TestLocalRateLimiter(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewLocalRateLimiter()
	l.now = func() time.Time { return now }
	limit := PerSecond(1, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "ip", limit)
		assert.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
	}
	res, err := l.Allow(ctx, "ip", limit)
	assert.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)

	other, err := l.Allow(ctx, "other-ip", limit)
	assert.NoError(t, err)
	assert.True(t, other.Allowed)

	now = now.Add(time.Second)
	res, err = l.Allow(ctx, "ip", limit)
	assert.NoError(t, err)
	assert.True(t, res.Allowed)
}
