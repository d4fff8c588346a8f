package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/binomialpricing/internal/pricing/domain"
	"github.com/wyfcoding/binomialpricing/pkg/logger"
	"github.com/wyfcoding/binomialpricing/pkg/utils"
	"golang.org/x/sync/errgroup"
)

const (
	pricePrecision  = 6
	greeksPrecision = 8
)

// Config 定价服务配置
type Config struct {
	DefaultSteps int
	MaxSteps     int
	DefaultKind  string
	BatchWorkers int
	MaxBatchSize int
	// CacheTTL 为 0 时不写缓存
	CacheTTL time.Duration
}

// PricingService 二叉树定价应用服务
type PricingService struct {
	cfg      Config
	cache    ResultCache
	recorder Recorder
	now      func() time.Time
}

// NewPricingService 构造函数。cache 可以为 nil，recorder 为 nil 时不记录指标。
func NewPricingService(cfg Config, cache ResultCache, recorder Recorder) *PricingService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if cfg.BatchWorkers < 1 {
		cfg.BatchWorkers = 1
	}
	return &PricingService{cfg: cfg, cache: cache, recorder: recorder, now: time.Now}
}

// PriceOption 校验、定价，按需并发计算 Greeks。结果按规范化后的命令缓存。
func (s *PricingService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*PricingResultDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req, err := s.buildRequest(cmd)
	if err != nil {
		// 未解析的输入不作为标签值
		s.recorder.RecordPricing("unknown", "unknown", "invalid", cmd.Steps, 0)
		return nil, err
	}
	style, payoff := req.Style.String(), req.Payoff.String()

	key, err := cacheKey(req, cmd.WithGreeks)
	if err != nil {
		return nil, fmt.Errorf("build cache key: %w", err)
	}
	if cached := s.lookup(ctx, key); cached != nil {
		s.recorder.RecordPricing(style, payoff, "cached", req.Steps, 0)
		cached.Symbol = cmd.Symbol
		cached.CacheHit = true
		return cached, nil
	}

	start := s.now()
	tp, err := domain.NewBinomialTreePricerFromRequest(req)
	if err != nil {
		s.recorder.RecordPricing(style, payoff, outcome(err), req.Steps, 0)
		return nil, fmt.Errorf("binomial pricing: %w", err)
	}

	var greeks *domain.Greeks
	if cmd.WithGreeks {
		greeksStart := s.now()
		g, err := tp.Greeks(ctx)
		s.recorder.RecordGreeks(outcome(err), s.now().Sub(greeksStart))
		if err != nil {
			return nil, fmt.Errorf("binomial greeks: %w", err)
		}
		greeks = &g
	}
	elapsed := s.now().Sub(start)
	s.recorder.RecordPricing(style, payoff, "ok", req.Steps, elapsed)

	result := s.toDTO(tp, greeks, elapsed)
	s.store(ctx, key, result)

	out := *result
	out.Symbol = cmd.Symbol
	return &out, nil
}

// Greeks 与 PriceOption 相同，但总是计算 Greeks
func (s *PricingService) Greeks(ctx context.Context, cmd PriceOptionCommand) (*PricingResultDTO, error) {
	cmd.WithGreeks = true
	return s.PriceOption(ctx, cmd)
}

// BatchPrice 并发定价，单个合约失败不影响其他合约
func (s *PricingService) BatchPrice(ctx context.Context, cmd BatchPriceOptionsCommand) (*BatchPricingResult, error) {
	n := len(cmd.Contracts)
	if n == 0 {
		return nil, &domain.InvalidPricingRequestError{Field: "contracts", Reason: "must not be empty"}
	}
	if s.cfg.MaxBatchSize > 0 && n > s.cfg.MaxBatchSize {
		return nil, &domain.InvalidPricingRequestError{
			Field:  "contracts",
			Value:  fmt.Sprint(n),
			Reason: fmt.Sprintf("batch size exceeds %d", s.cfg.MaxBatchSize),
		}
	}
	batchID := cmd.BatchID
	if batchID == "" {
		batchID = uuid.New().String()
	}
	defer logger.LogDuration(ctx, "batch pricing finished", "batch_id", batchID, "contracts", n)()

	items := make([]BatchItemResult, n)
	latency := make([]time.Duration, n)
	var eg errgroup.Group
	eg.SetLimit(s.cfg.BatchWorkers)
	for i, contract := range cmd.Contracts {
		i, contract := i, contract
		eg.Go(func() error {
			start := s.now()
			res, err := s.PriceOption(ctx, contract)
			latency[i] = s.now().Sub(start)
			items[i] = BatchItemResult{Index: i, Symbol: contract.Symbol, Result: res}
			if err != nil {
				items[i].Error = err.Error()
				items[i].Invalid = domain.IsValidationError(err)
			}
			return nil
		})
	}
	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &BatchPricingResult{BatchID: batchID, Items: items}
	var total time.Duration
	for i, item := range items {
		total += latency[i]
		if item.Error == "" {
			result.SuccessCount++
		} else {
			result.FailureCount++
		}
	}
	result.AverageTime = total / time.Duration(n)
	if result.FailureCount > 0 {
		logger.Warn(ctx, "batch pricing had failures", "batch_id", batchID, "failures", result.FailureCount)
	}
	return result, nil
}

// buildRequest 补全默认值并把命令解析为领域请求
func (s *PricingService) buildRequest(cmd PriceOptionCommand) (domain.PricingRequest, error) {
	steps := cmd.Steps
	if steps == 0 {
		steps = s.cfg.DefaultSteps
	}
	if s.cfg.MaxSteps > 0 && steps > s.cfg.MaxSteps {
		return domain.PricingRequest{}, &domain.InvalidPricingRequestError{
			Field:  "steps",
			Value:  fmt.Sprint(steps),
			Reason: fmt.Sprintf("exceeds max_steps %d", s.cfg.MaxSteps),
		}
	}
	payoff, err := domain.ParsePayoff(cmd.Payoff)
	if err != nil {
		return domain.PricingRequest{}, err
	}
	smoothing := cmd.Smoothing
	if smoothing == "" {
		smoothing = "no"
	}
	lattice := cmd.Lattice
	if lattice == "" {
		lattice = s.cfg.DefaultKind
	}

	in := domain.TreeInputs{
		Spot:       cmd.Spot,
		Strike:     cmd.Strike,
		IsPut:      payoff == domain.Put,
		Tau:        cmd.Tau,
		Volatility: cmd.Volatility,
		Steps:      steps,
		FlatRate:   cmd.FlatRate,
		Style:      cmd.Style,
		Smoothing:  smoothing,
		Lattice:    lattice,
	}
	in.RateDays, in.RateAmounts = splitTerms(cmd.Rates)
	in.DividendDays, in.DividendAmounts = splitTerms(cmd.Dividends)
	return in.Request()
}

func splitTerms(points []TermPoint) ([]int, []float64) {
	days := make([]int, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		days[i], values[i] = p.Days, p.Value
	}
	return days, values
}

// cacheKeyPayload 规范化后的请求，字段顺序固定
type cacheKeyPayload struct {
	Spot       float64                `json:"s"`
	Strike     float64                `json:"k"`
	Tau        float64                `json:"t"`
	Volatility float64                `json:"v"`
	Steps      int                    `json:"n"`
	Payoff     string                 `json:"p"`
	Style      string                 `json:"x"`
	Smoothing  string                 `json:"sm"`
	Kind       string                 `json:"l"`
	FlatRate   bool                   `json:"f"`
	Rates      []domain.SchedulePoint `json:"r"`
	Dividends  []domain.SchedulePoint `json:"d"`
	WithGreeks bool                   `json:"g"`
}

func cacheKey(req domain.PricingRequest, withGreeks bool) (string, error) {
	return utils.HashJSON(cacheKeyPayload{
		Spot:       req.Spot,
		Strike:     req.Strike,
		Tau:        req.Tau,
		Volatility: req.Volatility,
		Steps:      req.Steps,
		Payoff:     req.Payoff.String(),
		Style:      req.Style.String(),
		Smoothing:  req.Smoothing.String(),
		Kind:       req.Kind.String(),
		FlatRate:   req.FlatRate,
		Rates:      req.Rates.Points(),
		Dividends:  req.Dividends.Points(),
		WithGreeks: withGreeks,
	})
}

func (s *PricingService) lookup(ctx context.Context, key string) *PricingResultDTO {
	if s.cache == nil {
		return nil
	}
	res, found, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "pricing cache lookup failed", "key", key, "error", err)
		return nil
	}
	s.recorder.RecordCacheLookup(found)
	if !found {
		return nil
	}
	return res
}

func (s *PricingService) store(ctx context.Context, key string, res *PricingResultDTO) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, res, s.cfg.CacheTTL); err != nil {
		logger.Warn(ctx, "pricing cache store failed", "key", key, "error", err)
	}
}

func (s *PricingService) toDTO(tp *domain.BinomialTreePricer, g *domain.Greeks, elapsed time.Duration) *PricingResultDTO {
	req := tp.Request()
	res := &PricingResultDTO{
		Price:             decimal.NewFromFloat(tp.Price()).Round(pricePrecision),
		BlackScholesPrice: decimal.NewFromFloat(tp.BlackScholesReference().Price).Round(pricePrecision),
		Model:             "binomial/" + strings.ToLower(req.Kind.String()),
		Payoff:            req.Payoff.String(),
		Style:             req.Style.String(),
		Smoothed:          tp.Smoothed(),
		Steps:             req.Steps,
		CalculatedAt:      s.now().UnixMilli(),
		ElapsedMicros:     elapsed.Microseconds(),
	}
	if g != nil {
		res.Greeks = &GreeksDTO{
			Delta:          decimal.NewFromFloat(g.Delta).Round(greeksPrecision),
			Gamma:          decimal.NewFromFloat(g.Gamma).Round(greeksPrecision),
			Vega:           decimal.NewFromFloat(g.Vega).Round(greeksPrecision),
			Theta:          decimal.NewFromFloat(g.Theta).Round(greeksPrecision),
			VegaDegenerate: g.VegaDegenerate,
		}
	}
	return res
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsValidationError(err):
		return "invalid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}
