package domain

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

const (
	// VolatilityBump vega 使用的相对波动率扰动 (±1%)
	VolatilityBump = 0.01
	// ThetaShift theta 使用的时间平移 (1 天)
	ThetaShift = 1.0 / DaysPerYear
	// SpotBump 零波动率下 delta/gamma 的相对 spot 扰动
	SpotBump = 0.01
)

// Greeks 有限差分风险指标。
// Delta/Gamma 对标的价格；Vega 对单位波动率；Theta 为 1 天后的价值变化。
type Greeks struct {
	Delta float64
	Gamma float64
	Vega  float64
	Theta float64
	// VegaDegenerate 波动率为 0 时 vega 约定为 0
	VegaDegenerate bool
}

// GreeksEngine 每个指标都重新构造独立的树和 pricer，不修改原始请求
type GreeksEngine struct {
	req PricingRequest
}

// NewGreeksEngine 校验请求后返回引擎
func NewGreeksEngine(req PricingRequest) (*GreeksEngine, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &GreeksEngine{req: req}, nil
}

// DeltaGamma 在 steps+2 的树上取第 2 步三个节点，用非等距三点差分求一阶和二阶导数
func (g *GreeksEngine) DeltaGamma() (delta, gamma float64, err error) {
	wide := g.req
	wide.Steps = g.req.Steps + 2
	pricer, err := wide.NewPricer()
	if err != nil {
		return 0, 0, err
	}
	l := pricer.Lattice()
	s0, s1, s2 := l.Underlying(2, 0), l.Underlying(2, 1), l.Underlying(2, 2)
	f0, f1, f2 := pricer.Value(2, 0), pricer.Value(2, 1), pricer.Value(2, 2)
	h1 := s1 - s0
	h2 := s2 - s1
	if h1 == 0 || h2 == 0 {
		return g.bumpedDeltaGamma()
	}
	delta = -h2/(h1*(h1+h2))*f0 + (h2-h1)/(h1*h2)*f1 + h1/(h2*(h1+h2))*f2
	gamma = 2 * (f0/(h1*(h1+h2)) - f1/(h1*h2) + f2/(h2*(h1+h2)))
	return delta, gamma, nil
}

// bumpedDeltaGamma 零波动率时第 2 步节点重合，改为对 spot 做 ±1% 中心差分
func (g *GreeksEngine) bumpedDeltaGamma() (delta, gamma float64, err error) {
	h := g.req.Spot * SpotBump
	up, down := g.req, g.req
	up.Spot += h
	down.Spot -= h
	pu, err := up.Price()
	if err != nil {
		return 0, 0, err
	}
	pm, err := g.req.Price()
	if err != nil {
		return 0, 0, err
	}
	pd, err := down.Price()
	if err != nil {
		return 0, 0, err
	}
	return (pu - pd) / (2 * h), (pu - 2*pm + pd) / (h * h), nil
}

func (g *GreeksEngine) Delta() (float64, error) {
	d, _, err := g.DeltaGamma()
	return d, err
}

func (g *GreeksEngine) Gamma() (float64, error) {
	_, gm, err := g.DeltaGamma()
	return gm, err
}

// Vega (P(σ·1.01) - P(σ·0.99)) / (2·0.01·σ)，σ 为 0 时返回 0
func (g *GreeksEngine) Vega() (float64, error) {
	v, err := g.vega()
	var degenerate *DivisionDegenerateError
	if errors.As(err, &degenerate) {
		return 0, nil
	}
	return v, err
}

func (g *GreeksEngine) vega() (float64, error) {
	sigma := g.req.Volatility
	if sigma == 0 {
		return 0, &DivisionDegenerateError{Quantity: "vega"}
	}
	up := g.req
	up.Volatility = sigma * (1 + VolatilityBump)
	down := g.req
	down.Volatility = sigma * (1 - VolatilityBump)
	pu, err := up.Price()
	if err != nil {
		return 0, err
	}
	pd, err := down.Price()
	if err != nil {
		return 0, err
	}
	return (pu - pd) / (2 * VolatilityBump * sigma), nil
}

// Theta 到期时间减 1 天、期限结构节点整体前移 1 天后的价格减去当前价格
func (g *GreeksEngine) Theta() (float64, error) {
	base, err := g.req.Price()
	if err != nil {
		return 0, err
	}
	rolled, err := g.rolledPrice()
	if err != nil {
		return 0, err
	}
	return rolled - base, nil
}

func (g *GreeksEngine) rolledPrice() (float64, error) {
	next := g.req
	next.Tau = g.req.Tau - ThetaShift
	next.Rates = g.req.Rates.Rolled(ThetaShift)
	next.Dividends = g.req.Dividends.Rolled(ThetaShift)
	return next.Price()
}

// All 并发计算全部指标。各任务使用各自的树，互不共享状态。
// 计算本身不可中断，ctx 只在开始和汇总时检查。
func (g *GreeksEngine) All(ctx context.Context) (Greeks, error) {
	if err := ctx.Err(); err != nil {
		return Greeks{}, err
	}
	var (
		out          Greeks
		base, rolled float64
		eg           errgroup.Group
	)
	eg.Go(func() error {
		d, gm, err := g.DeltaGamma()
		out.Delta, out.Gamma = d, gm
		return err
	})
	eg.Go(func() error {
		v, err := g.vega()
		var degenerate *DivisionDegenerateError
		if errors.As(err, &degenerate) {
			out.VegaDegenerate = true
			return nil
		}
		out.Vega = v
		return err
	})
	eg.Go(func() error {
		p, err := g.req.Price()
		base = p
		return err
	})
	eg.Go(func() error {
		p, err := g.rolledPrice()
		rolled = p
		return err
	})
	if err := eg.Wait(); err != nil {
		return Greeks{}, err
	}
	if err := ctx.Err(); err != nil {
		return Greeks{}, err
	}
	out.Theta = rolled - base
	return out, nil
}
