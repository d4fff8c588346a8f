package domain

import (
	"context"
	"sync"
)

// TreeInputs 上游曲线/行情组件提供的原始输入。
// 期限结构为天数偏移 (ACT/365) 与数值的平行数组。
type TreeInputs struct {
	Spot            float64
	Strike          float64
	IsPut           bool
	Tau             float64 // 年
	Volatility      float64
	Steps           int
	FlatRate        bool
	Style           string // "a"/"american"/"e"/"european"
	Smoothing       string // "y"/"yes"/"n"/"no"
	Lattice         string // "crr"/"jr"，可为空
	RateDays        []int
	RateAmounts     []float64
	DividendDays    []int
	DividendAmounts []float64
}

// Request 把原始输入解析成 PricingRequest，字符串标志在这里一次性转为枚举
func (in TreeInputs) Request() (PricingRequest, error) {
	style, err := ParseStyle(in.Style)
	if err != nil {
		return PricingRequest{}, err
	}
	smoothing, err := ParseSmoothing(in.Smoothing)
	if err != nil {
		return PricingRequest{}, err
	}
	kind, err := ParseLatticeKind(in.Lattice)
	if err != nil {
		return PricingRequest{}, err
	}
	rates, err := NewRateSchedule(daysToYears(in.RateDays), in.RateAmounts)
	if err != nil {
		return PricingRequest{}, err
	}
	divs, err := NewDividendSchedule(daysToYears(in.DividendDays), in.DividendAmounts)
	if err != nil {
		return PricingRequest{}, err
	}
	payoff := Call
	if in.IsPut {
		payoff = Put
	}
	req := PricingRequest{
		Spot:       in.Spot,
		Strike:     in.Strike,
		Tau:        in.Tau,
		Volatility: in.Volatility,
		Steps:      in.Steps,
		Payoff:     payoff,
		Style:      style,
		Smoothing:  smoothing,
		FlatRate:   in.FlatRate,
		Kind:       kind,
		Rates:      rates,
		Dividends:  divs,
	}
	return req, req.Validate()
}

func daysToYears(days []int) []float64 {
	out := make([]float64, len(days))
	for i, d := range days {
		out[i] = YearFraction(d)
	}
	return out
}

// BinomialTreePricer 对外入口：构造时即完成树和倒推，Greeks 按需计算并缓存
type BinomialTreePricer struct {
	req    PricingRequest
	pricer *LatticePricer
	engine *GreeksEngine

	mu     sync.Mutex
	greeks *Greeks
}

// NewBinomialTreePricer 校验全部输入并完成一次定价
func NewBinomialTreePricer(in TreeInputs) (*BinomialTreePricer, error) {
	req, err := in.Request()
	if err != nil {
		return nil, err
	}
	return NewBinomialTreePricerFromRequest(req)
}

// NewBinomialTreePricerFromRequest 使用已解析的请求构造
func NewBinomialTreePricerFromRequest(req PricingRequest) (*BinomialTreePricer, error) {
	pricer, err := req.NewPricer()
	if err != nil {
		return nil, err
	}
	engine, err := NewGreeksEngine(req)
	if err != nil {
		return nil, err
	}
	return &BinomialTreePricer{req: req, pricer: pricer, engine: engine}, nil
}

func (t *BinomialTreePricer) Request() PricingRequest { return t.req }

func (t *BinomialTreePricer) Price() float64 { return t.pricer.Price() }

func (t *BinomialTreePricer) Lattice() *BinomialLattice { return t.pricer.Lattice() }

// Smoothed 倒数第二步是否实际做了解析平滑（步数过少或零波动率时跳过）
func (t *BinomialTreePricer) Smoothed() bool { return len(t.pricer.SmoothedNodes()) > 0 }

// BlackScholesReference 同一组参数的欧式解析价：标的扣除全部股息现值，利率取树上各步利率的平均
func (t *BinomialTreePricer) BlackScholesReference() BlackScholesResult {
	l := t.pricer.Lattice()
	n := l.Columns()
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += l.Rate(i)
	}
	return BlackScholes(t.req.Payoff, BlackScholesInput{
		S: l.Spot() - l.DividendPV(0),
		K: t.req.Strike,
		T: l.Time(),
		R: sum / float64(n),
		V: l.Volatility(),
	})
}

// Greeks 并发计算全部指标，成功结果会被缓存
func (t *BinomialTreePricer) Greeks(ctx context.Context) (Greeks, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.greeks != nil {
		return *t.greeks, nil
	}
	g, err := t.engine.All(ctx)
	if err != nil {
		return Greeks{}, err
	}
	t.greeks = &g
	return g, nil
}

func (t *BinomialTreePricer) GetDelta() (float64, error) { return t.engine.Delta() }

func (t *BinomialTreePricer) GetGamma() (float64, error) { return t.engine.Gamma() }

func (t *BinomialTreePricer) GetVega() (float64, error) { return t.engine.Vega() }

func (t *BinomialTreePricer) GetTheta() (float64, error) { return t.engine.Theta() }
