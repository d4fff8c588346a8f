package domain

import (
	"fmt"
	"math"
	"strings"
)

// LatticeKind 二叉树构造方式
type LatticeKind int

const (
	CoxRossRubinstein LatticeKind = iota // u = exp(σ√dt), d = 1/u
	JarrowRudd                           // 等概率树，节点带 (r-σ²/2)dt 漂移
)

func (k LatticeKind) String() string {
	switch k {
	case CoxRossRubinstein:
		return "CRR"
	case JarrowRudd:
		return "JR"
	default:
		return fmt.Sprintf("LatticeKind(%d)", int(k))
	}
}

// ParseLatticeKind 解析树类型，空串默认 CRR
func ParseLatticeKind(s string) (LatticeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "crr", "cox-ross-rubinstein", "coxrossrubinstein":
		return CoxRossRubinstein, nil
	case "jr", "jarrow-rudd", "jarrowrudd":
		return JarrowRudd, nil
	}
	return 0, &InvalidPricingRequestError{Field: "lattice", Value: s, Reason: "expected crr or jr"}
}

// LatticeParams 构造二叉树所需的全部输入
type LatticeParams struct {
	Spot       float64
	Time       float64 // 到期年化时间
	Volatility float64
	Steps      int
	FlatRate   bool // true 时所有步长使用利率结构首节点的利率
	Rates      *RateSchedule
	Dividends  *DividendSchedule
}

// LatticeBuilder 按具体的树变体构造 BinomialLattice
type LatticeBuilder interface {
	Kind() LatticeKind
	Build(p LatticeParams) (*BinomialLattice, error)
}

// NewLatticeBuilder 按类型返回构造器
func NewLatticeBuilder(kind LatticeKind) (LatticeBuilder, error) {
	switch kind {
	case CoxRossRubinstein:
		return crrBuilder{}, nil
	case JarrowRudd:
		return jarrowRuddBuilder{}, nil
	}
	return nil, &InvalidPricingRequestError{Field: "lattice", Value: kind.String(), Reason: "unsupported lattice kind"}
}

type crrBuilder struct{}

func (crrBuilder) Kind() LatticeKind { return CoxRossRubinstein }

func (crrBuilder) Build(p LatticeParams) (*BinomialLattice, error) {
	return buildLattice(CoxRossRubinstein, p, func(r, sigma, dt float64) float64 { return 1 })
}

type jarrowRuddBuilder struct{}

func (jarrowRuddBuilder) Kind() LatticeKind { return JarrowRudd }

func (jarrowRuddBuilder) Build(p LatticeParams) (*BinomialLattice, error) {
	return buildLattice(JarrowRudd, p, func(r, sigma, dt float64) float64 {
		return math.Exp((r - 0.5*sigma*sigma) * dt)
	})
}

// BinomialLattice 标的资产价格三角网格，构造后只读。
//
// 离散股息采用 escrowed 模型：树建立在 spot 减去到期前全部股息现值之上，
// 每个节点再加回该时间步之后尚未支付股息的现值。
type BinomialLattice struct {
	kind       LatticeKind
	spot       float64
	time       float64
	volatility float64
	steps      int
	dt         float64
	up         float64
	down       float64

	underlying [][]float64 // underlying[i][j], 0 <= j <= i <= steps
	prob       []float64   // 每步风险中性上涨概率
	rate       []float64   // 每步连续复利利率
	dividend   []float64   // 每步内支付的现金股息
	dividendPV []float64   // 第 i 步时点尚未支付股息的现值，长度 steps+1
}

// driftFunc 返回每步的乘性漂移因子
type driftFunc func(r, sigma, dt float64) float64

func validateLatticeParams(p LatticeParams) error {
	switch {
	case p.Steps < 1:
		return &InvalidLatticeParametersError{Field: "steps", Reason: fmt.Sprintf("must be >= 1, got %d", p.Steps)}
	case math.IsNaN(p.Time) || p.Time <= 0:
		return &InvalidLatticeParametersError{Field: "time", Reason: fmt.Sprintf("must be > 0, got %v", p.Time)}
	case math.IsNaN(p.Volatility) || p.Volatility < 0:
		return &InvalidLatticeParametersError{Field: "volatility", Reason: fmt.Sprintf("must be >= 0, got %v", p.Volatility)}
	case math.IsNaN(p.Spot) || p.Spot <= 0:
		return &InvalidLatticeParametersError{Field: "spot", Reason: fmt.Sprintf("must be > 0, got %v", p.Spot)}
	}
	return nil
}

func buildLattice(kind LatticeKind, p LatticeParams, drift driftFunc) (*BinomialLattice, error) {
	if err := validateLatticeParams(p); err != nil {
		return nil, err
	}

	n := p.Steps
	dt := p.Time / float64(n)
	l := &BinomialLattice{
		kind:       kind,
		spot:       p.Spot,
		time:       p.Time,
		volatility: p.Volatility,
		steps:      n,
		dt:         dt,
		prob:       make([]float64, n),
		rate:       make([]float64, n),
		dividend:   make([]float64, n),
		dividendPV: make([]float64, n+1),
	}

	for i := 0; i < n; i++ {
		if p.FlatRate {
			l.rate[i] = p.Rates.FirstRate()
		} else {
			l.rate[i] = p.Rates.RateAt(float64(i) * dt)
		}
	}

	l.accrueDividends(p.Dividends)
	escrowed := p.Spot - l.dividendPV[0]
	if escrowed <= 0 {
		return nil, &InvalidLatticeParametersError{
			Field:  "dividends",
			Reason: fmt.Sprintf("present value %v exhausts spot %v", l.dividendPV[0], p.Spot),
		}
	}

	growth := make([]float64, n+1) // 累计漂移因子
	growth[0] = 1
	if p.Volatility == 0 {
		// 确定性远期树，所有节点价格相同
		l.up, l.down = 1, 1
		for i := 0; i < n; i++ {
			l.prob[i] = 0.5
			growth[i+1] = growth[i] * math.Exp(l.rate[i]*dt)
		}
	} else {
		l.up = math.Exp(p.Volatility * math.Sqrt(dt))
		l.down = 1 / l.up
		for i := 0; i < n; i++ {
			g := drift(l.rate[i], p.Volatility, dt)
			prob := (math.Exp(l.rate[i]*dt)/g - l.down) / (l.up - l.down)
			if math.IsNaN(prob) || prob < 0 || prob > 1 {
				return nil, &InvalidLatticeParametersError{
					Field:  "probability",
					Reason: fmt.Sprintf("step %d up-probability %v outside [0,1] (rate %v, dt %v)", i, prob, l.rate[i], dt),
				}
			}
			l.prob[i] = prob
			growth[i+1] = growth[i] * g
		}
	}

	ratio := l.up / l.down
	l.underlying = make([][]float64, n+1)
	for i := 0; i <= n; i++ {
		row := make([]float64, i+1)
		s := escrowed * growth[i] * math.Pow(l.down, float64(i))
		for j := 0; j <= i; j++ {
			row[j] = s + l.dividendPV[i]
			s *= ratio
		}
		l.underlying[i] = row
	}
	return l, nil
}

// accrueDividends 计算每步股息及各时间步的股息现值，到期日及之后的股息忽略
func (l *BinomialLattice) accrueDividends(divs *DividendSchedule) {
	for _, pt := range divs.Points() {
		if pt.Time < 0 || pt.Time >= l.time || pt.Amount == 0 {
			continue
		}
		k := int(pt.Time / l.dt)
		if k > l.steps-1 {
			k = l.steps - 1
		}
		l.dividend[k] += pt.Amount
		pv := pt.Amount * math.Exp(-l.rate[k]*(pt.Time-float64(k)*l.dt))
		l.dividendPV[k] += pv
		for i := k - 1; i >= 0; i-- {
			pv *= math.Exp(-l.rate[i] * l.dt)
			l.dividendPV[i] += pv
		}
	}
}

func (l *BinomialLattice) Underlying(i, j int) float64 { return l.underlying[i][j] }
func (l *BinomialLattice) Probability(i int) float64 { return l.prob[i] }
func (l *BinomialLattice) Rate(i int) float64 { return l.rate[i] }
func (l *BinomialLattice) Dividend(i int) float64 { return l.dividend[i] }

// DividendPV 第 i 步时点尚未支付股息的现值
func (l *BinomialLattice) DividendPV(i int) float64 { return l.dividendPV[i] }

func (l *BinomialLattice) Columns() int { return l.steps }
func (l *BinomialLattice) Time() float64 { return l.time }
func (l *BinomialLattice) Volatility() float64 { return l.volatility }
func (l *BinomialLattice) Spot() float64 { return l.spot }
func (l *BinomialLattice) Dt() float64 { return l.dt }
func (l *BinomialLattice) Kind() LatticeKind { return l.kind }
func (l *BinomialLattice) UpFactor() float64 { return l.up }
func (l *BinomialLattice) DownFactor() float64 { return l.down }
