// Package metrics 提供 Prometheus 指标集合，使用独立 registry，HTTP 与定价指标分开记录
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/binomialpricing/pkg/logger"
)

const namespace = "binomial"

// Metrics 指标集合
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 定价次数，按行权方式/期权类型/结果
	PricingsTotal *prometheus.CounterVec
	// 单次定价耗时
	PricingDuration prometheus.Histogram
	// 定价使用的步数
	LatticeSteps prometheus.Histogram
	// Greeks 计算次数与耗时
	GreeksTotal    *prometheus.CounterVec
	GreeksDuration prometheus.Histogram
	// 结果缓存命中
	CacheLookupsTotal *prometheus.CounterVec
}

// New 创建指标实例并注册到独立 registry
func New(serviceName string) *Metrics {
	subsystem := sanitize(serviceName)
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		PricingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pricings_total",
			Help:      "Total lattice pricings",
		}, []string{"style", "payoff", "outcome"}),
		PricingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pricing_duration_seconds",
			Help:      "Lattice pricing duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		LatticeSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lattice_steps",
			Help:      "Number of time steps per priced lattice",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
		GreeksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "greeks_total",
			Help:      "Total Greeks computations",
		}, []string{"outcome"}),
		GreeksDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "greeks_duration_seconds",
			Help:      "Greeks computation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
		CacheLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_lookups_total",
			Help:      "Pricing result cache lookups",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PricingsTotal,
		m.PricingDuration,
		m.LatticeSteps,
		m.GreeksTotal,
		m.GreeksDuration,
		m.CacheLookupsTotal,
	)
	return m
}

// sanitize 服务名可能带 '-'，指标名只允许 [a-zA-Z0-9_]
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
}

// Registry 返回底层 registry
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler 返回 /metrics 的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPricing 记录一次定价
func (m *Metrics) RecordPricing(style, payoff, outcome string, steps int, duration time.Duration) {
	m.PricingsTotal.WithLabelValues(style, payoff, outcome).Inc()
	if outcome == "ok" {
		m.PricingDuration.Observe(duration.Seconds())
		m.LatticeSteps.Observe(float64(steps))
	}
}

// RecordGreeks 记录一次 Greeks 计算
func (m *Metrics) RecordGreeks(outcome string, duration time.Duration) {
	m.GreeksTotal.WithLabelValues(outcome).Inc()
	m.GreeksDuration.Observe(duration.Seconds())
}

// RecordCacheLookup 记录缓存命中或未命中
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// StartHTTPServer 在独立端口启动 Prometheus HTTP 服务器，返回的 server 由调用方关闭
func (m *Metrics) StartHTTPServer(port int, path string) *http.Server {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "Prometheus HTTP server failed", "error", err)
		}
	}()
	return srv
}
