package domain

import (
	"fmt"
	"math"
)

// NotPriced 倒推尚未执行时 Price() 的返回值
const NotPriced = -1.0

// minSmoothingColumns 平滑需要倒数第二步至少有 [k-2, k+1] 四个节点
const minSmoothingColumns = 4

// Stage 单次定价的状态
type Stage int

const (
	StageUninitialized Stage = iota
	StageTerminalAssigned
	StageSmoothed
	StageBackwardInduced
	StagePriced
)

func (s Stage) String() string {
	switch s {
	case StageUninitialized:
		return "uninitialized"
	case StageTerminalAssigned:
		return "terminal_assigned"
	case StageSmoothed:
		return "smoothed"
	case StageBackwardInduced:
		return "backward_induced"
	case StagePriced:
		return "priced"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// PricerOptions 行权价与期权条款
type PricerOptions struct {
	Strike    float64
	Payoff    Payoff
	Style     Style
	Smoothing Smoothing
}

// ValueMatrix 三角期权价值矩阵，(0,0) 为估值日价值
type ValueMatrix struct {
	values [][]float64
}

func newValueMatrix(steps int) *ValueMatrix {
	values := make([][]float64, steps+1)
	for i := range values {
		values[i] = make([]float64, i+1)
	}
	return &ValueMatrix{values: values}
}

func (m *ValueMatrix) At(i, j int) float64 { return m.values[i][j] }

func (m *ValueMatrix) Columns() int { return len(m.values) - 1 }

// LatticePricer 在一棵构造好的树上做倒推。树与价值矩阵都归该实例独占。
type LatticePricer struct {
	lattice *BinomialLattice
	opts    PricerOptions

	stage    Stage
	matrix   *ValueMatrix
	centre   int
	smoothed map[int]float64 // 倒数第二步被解析价替换的节点
}

// NewLatticePricer 校验条款并绑定树，倒推在 Run 中进行
func NewLatticePricer(lattice *BinomialLattice, opts PricerOptions) (*LatticePricer, error) {
	if lattice == nil {
		return nil, &InvalidLatticeParametersError{Field: "lattice", Reason: "nil lattice"}
	}
	if math.IsNaN(opts.Strike) || opts.Strike <= 0 {
		return nil, &InvalidPricingRequestError{Field: "strike", Value: fmt.Sprint(opts.Strike), Reason: "must be > 0"}
	}
	if opts.Payoff != Call && opts.Payoff != Put {
		return nil, &InvalidPricingRequestError{Field: "payoff", Value: fmt.Sprint(int(opts.Payoff)), Reason: "unsupported payoff"}
	}
	if opts.Style != American && opts.Style != European {
		return nil, &InvalidPricingRequestError{Field: "style", Value: fmt.Sprint(int(opts.Style)), Reason: "unsupported style"}
	}
	return &LatticePricer{lattice: lattice, opts: opts}, nil
}

// Run 完成一次完整定价。重复调用不会重算。
func (p *LatticePricer) Run() *ValueMatrix {
	if p.stage == StagePriced {
		return p.matrix
	}
	p.matrix = newValueMatrix(p.lattice.Columns())
	p.smoothed = nil
	p.assignTerminal()
	if p.opts.Smoothing == SmoothingOn {
		p.smooth()
	}
	p.induce()
	p.stage = StagePriced
	return p.matrix
}

// Price 返回根节点价值，未执行 Run 时返回 NotPriced
func (p *LatticePricer) Price() float64 {
	if p.stage != StagePriced {
		return NotPriced
	}
	return p.matrix.At(0, 0)
}

// Value 返回节点 (i,j) 的期权价值
func (p *LatticePricer) Value(i, j int) float64 {
	if p.matrix == nil {
		return NotPriced
	}
	return p.matrix.At(i, j)
}

func (p *LatticePricer) Stage() Stage { return p.stage }

func (p *LatticePricer) Matrix() *ValueMatrix { return p.matrix }

func (p *LatticePricer) Lattice() *BinomialLattice { return p.lattice }

// SmoothedNodes 返回倒数第二步被平滑替换的节点下标，未平滑时为空
func (p *LatticePricer) SmoothedNodes() []int {
	if len(p.smoothed) == 0 {
		return nil
	}
	return []int{p.centre - 1, p.centre, p.centre + 1}
}

func (p *LatticePricer) assignTerminal() {
	n := p.lattice.Columns()
	row := p.matrix.values[n]
	for j := 0; j <= n; j++ {
		row[j] = p.opts.Payoff.intrinsic(p.lattice.Underlying(n, j), p.opts.Strike)
	}
	p.stage = StageTerminalAssigned
}

// smoothCentre 选出倒数第二步最接近行权价的三个节点的中心下标。
// k 为 Underlying(idx,k) <= strike 的最后一个节点，夹到 [2, steps-2]；
// 若上侧 k+1 的相对距离大于下侧 k-2，则中心取 k-1，否则取 k。
func smoothCentre(l *BinomialLattice, strike float64) int {
	n := l.Columns()
	idx := n - 1
	k := 0
	for j := 1; j <= idx; j++ {
		if l.Underlying(idx, j-1) <= strike && l.Underlying(idx, j) <= strike {
			k = j
		}
	}
	if k < 2 {
		k = 2
	}
	if k > n-2 {
		k = n - 2
	}
	upper := math.Log(l.Underlying(idx, k+1) / strike)
	lower := math.Log(strike / l.Underlying(idx, k-2))
	if upper > lower {
		return k - 1
	}
	return k
}

// smooth 用单步 Black-Scholes 价替换倒数第二步行权价附近的三个节点
func (p *LatticePricer) smooth() {
	l := p.lattice
	n := l.Columns()
	if n < minSmoothingColumns || l.Volatility() == 0 {
		return
	}
	idx := n - 1
	p.centre = smoothCentre(l, p.opts.Strike)
	p.smoothed = make(map[int]float64, 3)
	for j := p.centre - 1; j <= p.centre+1; j++ {
		res := BlackScholes(p.opts.Payoff, BlackScholesInput{
			S: l.Underlying(idx, j) - l.DividendPV(idx),
			K: p.opts.Strike,
			T: l.Dt(),
			R: l.Rate(idx),
			V: l.Volatility(),
		})
		p.smoothed[j] = res.Price
	}
	p.stage = StageSmoothed
}

// induce 从 steps-1 倒推到 0。被平滑的节点以解析价作为持有价值，
// 美式仍与立即行权收益取大。
func (p *LatticePricer) induce() {
	l := p.lattice
	n := l.Columns()
	dt := l.Dt()
	american := p.opts.Style == American
	for i := n - 1; i >= 0; i-- {
		disc := math.Exp(-l.Rate(i) * dt)
		prob := l.Probability(i)
		next := p.matrix.values[i+1]
		row := p.matrix.values[i]
		for j := 0; j <= i; j++ {
			var cont float64
			if v, ok := p.smoothed[j]; ok && i == n-1 {
				cont = v
			} else {
				cont = disc * (prob*next[j+1] + (1-prob)*next[j])
			}
			if american {
				cont = math.Max(cont, p.opts.Payoff.intrinsic(l.Underlying(i, j), p.opts.Strike))
			}
			row[j] = cont
		}
	}
	p.stage = StageBackwardInduced
}
