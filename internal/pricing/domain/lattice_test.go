package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildCRR(t *testing.T, p LatticeParams) *BinomialLattice {
	t.Helper()
	b, err := NewLatticeBuilder(CoxRossRubinstein)
	require.NoError(t, err)
	l, err := b.Build(p)
	require.NoError(t, err)
	return l
}

func baseParams() LatticeParams {
	return LatticeParams{
		Spot:       100,
		Time:       1,
		Volatility: 0.25,
		Steps:      100,
		FlatRate:   true,
		Rates:      FlatRateSchedule(0.05),
	}
}

func TestLattice_ProbabilityAndMonotonicity(t *testing.T) {
	for _, kind := range []LatticeKind{CoxRossRubinstein, JarrowRudd} {
		t.Run(kind.String(), func(t *testing.T) {
			b, err := NewLatticeBuilder(kind)
			require.NoError(t, err)
			assert.Equal(t, kind, b.Kind())

			p := baseParams()
			p.Dividends, err = NewDividendSchedule([]float64{0.3, 0.8}, []float64{1.5, 1.5})
			require.NoError(t, err)
			l, err := b.Build(p)
			require.NoError(t, err)

			for i := 0; i < l.Columns(); i++ {
				assert.GreaterOrEqual(t, l.Probability(i), 0.0)
				assert.LessOrEqual(t, l.Probability(i), 1.0)
			}
			for i := 1; i <= l.Columns(); i++ {
				for j := 0; j < i; j++ {
					require.Less(t, l.Underlying(i, j), l.Underlying(i, j+1), "node crossing at (%d,%d)", i, j)
				}
			}
		})
	}
}

func TestLattice_AccessorsAndRoot(t *testing.T) {
	l := buildCRR(t, baseParams())
	assert.Equal(t, 100, l.Columns())
	assert.Equal(t, 1.0, l.Time())
	assert.Equal(t, 0.25, l.Volatility())
	assert.Equal(t, 100.0, l.Spot())
	assert.InDelta(t, 0.01, l.Dt(), 1e-15)
	assert.InDelta(t, 100.0, l.Underlying(0, 0), 1e-12)
	assert.InDelta(t, math.Exp(0.25*0.1), l.UpFactor(), 1e-12)
	assert.InDelta(t, 1/l.UpFactor(), l.DownFactor(), 1e-12)
	// CRR: S(i,j) = spot * u^j * d^(i-j)
	assert.InDelta(t, 100*math.Pow(l.UpFactor(), 7)*math.Pow(l.DownFactor(), 3), l.Underlying(10, 7), 1e-9)
}

// 折现后的期望远期价格等于当前节点的 escrowed 价格
func TestLattice_RiskNeutralForward(t *testing.T) {
	divs, err := NewDividendSchedule([]float64{0.25, 0.75}, []float64{2, 2})
	require.NoError(t, err)
	rates, err := NewRateSchedule([]float64{0, 0.5}, []float64{0.02, 0.06})
	require.NoError(t, err)

	for _, kind := range []LatticeKind{CoxRossRubinstein, JarrowRudd} {
		b, err := NewLatticeBuilder(kind)
		require.NoError(t, err)
		p := baseParams()
		p.FlatRate = false
		p.Rates = rates
		p.Dividends = divs
		l, err := b.Build(p)
		require.NoError(t, err)

		for i := 0; i < l.Columns(); i++ {
			disc := math.Exp(-l.Rate(i) * l.Dt())
			for j := 0; j <= i; j++ {
				up := l.Underlying(i+1, j+1) - l.DividendPV(i+1)
				down := l.Underlying(i+1, j) - l.DividendPV(i+1)
				got := disc * (l.Probability(i)*up + (1-l.Probability(i))*down)
				require.InDelta(t, l.Underlying(i, j)-l.DividendPV(i), got, 1e-9, "%s step %d node %d", kind, i, j)
			}
		}
	}
}

func TestLattice_RateSelection(t *testing.T) {
	rates, err := NewRateSchedule([]float64{0, 0.5}, []float64{0.02, 0.06})
	require.NoError(t, err)

	p := baseParams()
	p.Rates = rates
	flat := buildCRR(t, p)
	for i := 0; i < flat.Columns(); i++ {
		require.Equal(t, 0.02, flat.Rate(i))
	}

	p.FlatRate = false
	ts := buildCRR(t, p)
	assert.Equal(t, 0.02, ts.Rate(0))
	assert.Equal(t, 0.02, ts.Rate(49))
	assert.Equal(t, 0.06, ts.Rate(50))
	assert.Equal(t, 0.06, ts.Rate(99))
	assert.Greater(t, ts.Probability(99), ts.Probability(0))
}

func TestLattice_Dividends(t *testing.T) {
	divs, err := NewDividendSchedule([]float64{0.255, 0.5, 1.0, 2.0}, []float64{2, 1, 5, 5})
	require.NoError(t, err)
	p := baseParams()
	p.Dividends = divs
	l := buildCRR(t, p)

	assert.InDelta(t, 2.0, l.Dividend(25), 1e-12)
	assert.InDelta(t, 1.0, l.Dividend(50), 1e-12)
	total := 0.0
	for i := 0; i < l.Columns(); i++ {
		total += l.Dividend(i)
	}
	assert.InDelta(t, 3.0, total, 1e-12, "dividends at or after expiry are ignored")

	wantPV := 2*math.Exp(-0.05*0.255) + math.Exp(-0.05*0.5)
	assert.InDelta(t, wantPV, l.DividendPV(0), 1e-12)
	assert.Zero(t, l.DividendPV(l.Columns()))
	assert.InDelta(t, 100.0, l.Underlying(0, 0), 1e-9, "root is always spot")
}

func TestLattice_ZeroVolatility(t *testing.T) {
	p := baseParams()
	p.Volatility = 0
	l := buildCRR(t, p)
	for i := 0; i < l.Columns(); i++ {
		assert.Equal(t, 0.5, l.Probability(i))
	}
	n := l.Columns()
	assert.InDelta(t, 100*math.Exp(0.05), l.Underlying(n, 0), 1e-9)
	assert.InDelta(t, l.Underlying(n, 0), l.Underlying(n, n), 1e-9)
}

func TestLattice_InvalidParameters(t *testing.T) {
	tests := []struct {
		name  string
		field string
		mod   func(p *LatticeParams)
	}{
		{"zero steps", "steps", func(p *LatticeParams) { p.Steps = 0 }},
		{"zero time", "time", func(p *LatticeParams) { p.Time = 0 }},
		{"negative time", "time", func(p *LatticeParams) { p.Time = -1 }},
		{"negative vol", "volatility", func(p *LatticeParams) { p.Volatility = -0.1 }},
		{"zero spot", "spot", func(p *LatticeParams) { p.Spot = 0 }},
		{"dividends exhaust spot", "dividends", func(p *LatticeParams) {
			p.Dividends, _ = NewDividendSchedule([]float64{0.1}, []float64{150})
		}},
		{"rate breaks no-arbitrage", "probability", func(p *LatticeParams) {
			p.Steps = 1
			p.Volatility = 0.01
			p.Rates = FlatRateSchedule(0.5)
		}},
	}
	b, err := NewLatticeBuilder(CoxRossRubinstein)
	require.NoError(t, err)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseParams()
			tt.mod(&p)
			_, err := b.Build(p)
			var le *InvalidLatticeParametersError
			require.True(t, errors.As(err, &le), "got %v", err)
			assert.Equal(t, tt.field, le.Field)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestParseLatticeKind(t *testing.T) {
	for in, want := range map[string]LatticeKind{
		"": CoxRossRubinstein, "CRR": CoxRossRubinstein, "jr": JarrowRudd, "Jarrow-Rudd": JarrowRudd,
	} {
		got, err := ParseLatticeKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLatticeKind("trinomial")
	assert.Error(t, err)

	_, err = NewLatticeBuilder(LatticeKind(9))
	assert.Error(t, err)
}
