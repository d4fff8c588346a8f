package application

import (
	"context"
	"time"
)

// ResultCache 定价结果缓存。未命中返回 (nil, false, nil)。
type ResultCache interface {
	Get(ctx context.Context, key string) (*PricingResultDTO, bool, error)
	Set(ctx context.Context, key string, result *PricingResultDTO, ttl time.Duration) error
}

// Recorder 定价指标
type Recorder interface {
	RecordPricing(style, payoff, outcome string, steps int, elapsed time.Duration)
	RecordGreeks(outcome string, elapsed time.Duration)
	RecordCacheLookup(hit bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordPricing(string, string, string, int, time.Duration) {}
func (nopRecorder) RecordGreeks(string, time.Duration) {}
func (nopRecorder) RecordCacheLookup(bool) {}
