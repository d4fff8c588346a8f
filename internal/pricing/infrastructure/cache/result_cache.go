package cache

import (
	"context"
	"time"

	"github.com/wyfcoding/binomialpricing/internal/pricing/application"
	rediscache "github.com/wyfcoding/binomialpricing/pkg/cache"
)

// DefaultKeyPrefix 定价结果在 Redis 中的 key 前缀
const DefaultKeyPrefix = "binomial:result:"

// RedisResultCache 使用 Redis 保存定价结果，值为 JSON
type RedisResultCache struct {
	cache  *rediscache.RedisCache
	prefix string
}

// NewRedisResultCache prefix 为空时使用 DefaultKeyPrefix
func NewRedisResultCache(cache *rediscache.RedisCache, prefix string) *RedisResultCache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisResultCache{cache: cache, prefix: prefix}
}

func (r *RedisResultCache) Get(ctx context.Context, key string) (*application.PricingResultDTO, bool, error) {
	var res application.PricingResultDTO
	found, err := r.cache.GetJSON(ctx, r.prefix+key, &res)
	if err != nil || !found {
		return nil, false, err
	}
	return &res, true, nil
}

func (r *RedisResultCache) Set(ctx context.Context, key string, result *application.PricingResultDTO, ttl time.Duration) error {
	if result == nil {
		return nil
	}
	return r.cache.SetJSON(ctx, r.prefix+key, result, ttl)
}
