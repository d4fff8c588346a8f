package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestJSONRoundTripAndExpiry(t *testing.T) {
	rc, mr := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Price float64 `json:"price"`
	}
	require.NoError(t, rc.SetJSON(ctx, "k", payload{Price: 12.34}, time.Minute))

	var got payload
	found, err := rc.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 12.34, got.Price)

	ttl, err := rc.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(2 * time.Minute)
	found, err = rc.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetJSONDecodeError(t *testing.T) {
	rc, mr := newTestCache(t)
	require.NoError(t, mr.Set("bad", "{not json"))

	var v map[string]any
	found, err := rc.GetJSON(context.Background(), "bad", &v)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestDelete(t *testing.T) {
	rc, mr := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, rc.Set(ctx, "a", "1", 0))
	require.NoError(t, rc.Delete(ctx, "a"))
	assert.False(t, mr.Exists("a"))
	assert.NoError(t, rc.Delete(ctx))
}

func TestNewFailsWithoutServer(t *testing.T) {
	_, err := New(Config{Host: "127.0.0.1", Port: 1, ConnTimeout: 1, ReadTimeout: 1, WriteTimeout: 1})
	assert.Error(t, err)
}
