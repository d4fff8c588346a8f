package domain

import (
	"fmt"
	"math"
	"strings"
)

// Style 行权方式
type Style int

const (
	European Style = iota
	American
)

func (s Style) String() string {
	if s == American {
		return "american"
	}
	return "european"
}

// Payoff 期权类型
type Payoff int

const (
	Call Payoff = iota
	Put
)

func (p Payoff) String() string {
	if p == Put {
		return "put"
	}
	return "call"
}

// Smoothing 是否在倒数第二个时间步用 Black-Scholes 解析价替换行权价附近节点
type Smoothing int

const (
	SmoothingOff Smoothing = iota
	SmoothingOn
)

func (s Smoothing) String() string {
	if s == SmoothingOn {
		return "on"
	}
	return "off"
}

// matchToken 大小写不敏感地匹配首字母或完整单词
func matchToken(value string, words ...string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return false
	}
	for _, w := range words {
		if v == w || v == w[:1] {
			return true
		}
	}
	return false
}

// ParseStyle 接受 "a"/"american"/"e"/"european"，大小写不敏感
func ParseStyle(s string) (Style, error) {
	switch {
	case matchToken(s, "american"):
		return American, nil
	case matchToken(s, "european"):
		return European, nil
	}
	return 0, &InvalidPricingRequestError{Field: "style", Value: s, Reason: "expected american or european"}
}

// ParsePayoff 接受 "c"/"call"/"p"/"put"
func ParsePayoff(s string) (Payoff, error) {
	switch {
	case matchToken(s, "call"):
		return Call, nil
	case matchToken(s, "put"):
		return Put, nil
	}
	return 0, &InvalidPricingRequestError{Field: "payoff", Value: s, Reason: "expected call or put"}
}

// ParseSmoothing 接受 "y"/"yes"/"n"/"no"
func ParseSmoothing(s string) (Smoothing, error) {
	switch {
	case matchToken(s, "yes"):
		return SmoothingOn, nil
	case matchToken(s, "no"):
		return SmoothingOff, nil
	}
	return 0, &InvalidPricingRequestError{Field: "smoothing", Value: s, Reason: "expected yes or no"}
}

// intrinsic 立即行权收益
func (p Payoff) intrinsic(underlying, strike float64) float64 {
	if p == Put {
		return math.Max(strike-underlying, 0)
	}
	return math.Max(underlying-strike, 0)
}

// PricingRequest 一次二叉树定价的完整输入，所有字符串标志已在边界解析为枚举
type PricingRequest struct {
	Spot       float64
	Strike     float64
	Tau        float64 // 年
	Volatility float64
	Steps      int
	Payoff     Payoff
	Style      Style
	Smoothing  Smoothing
	FlatRate   bool
	Kind       LatticeKind
	Rates      *RateSchedule
	Dividends  *DividendSchedule
}

// Validate 校验定价层参数，树参数由 LatticeBuilder 校验
func (r PricingRequest) Validate() error {
	if math.IsNaN(r.Strike) || r.Strike <= 0 {
		return &InvalidPricingRequestError{Field: "strike", Value: fmt.Sprint(r.Strike), Reason: "must be > 0"}
	}
	if r.Payoff != Call && r.Payoff != Put {
		return &InvalidPricingRequestError{Field: "payoff", Value: fmt.Sprint(int(r.Payoff)), Reason: "unsupported payoff"}
	}
	if r.Style != American && r.Style != European {
		return &InvalidPricingRequestError{Field: "style", Value: fmt.Sprint(int(r.Style)), Reason: "unsupported style"}
	}
	if r.Smoothing != SmoothingOn && r.Smoothing != SmoothingOff {
		return &InvalidPricingRequestError{Field: "smoothing", Value: fmt.Sprint(int(r.Smoothing)), Reason: "unsupported smoothing flag"}
	}
	return nil
}

func (r PricingRequest) latticeParams() LatticeParams {
	return LatticeParams{
		Spot:       r.Spot,
		Time:       r.Tau,
		Volatility: r.Volatility,
		Steps:      r.Steps,
		FlatRate:   r.FlatRate,
		Rates:      r.Rates,
		Dividends:  r.Dividends,
	}
}

// NewPricer 按请求构造一棵新树和对应的 LatticePricer 并完成倒推
func (r PricingRequest) NewPricer() (*LatticePricer, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	builder, err := NewLatticeBuilder(r.Kind)
	if err != nil {
		return nil, err
	}
	lattice, err := builder.Build(r.latticeParams())
	if err != nil {
		return nil, err
	}
	pricer, err := NewLatticePricer(lattice, PricerOptions{
		Strike:    r.Strike,
		Payoff:    r.Payoff,
		Style:     r.Style,
		Smoothing: r.Smoothing,
	})
	if err != nil {
		return nil, err
	}
	pricer.Run()
	return pricer, nil
}

// Price 构造并倒推，返回根节点价值
func (r PricingRequest) Price() (float64, error) {
	p, err := r.NewPricer()
	if err != nil {
		return NotPriced, err
	}
	return p.Price(), nil
}
