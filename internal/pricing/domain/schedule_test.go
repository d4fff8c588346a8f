package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateSchedule_StepLookup(t *testing.T) {
	rs, err := NewRateSchedule([]float64{0.25, 0.5, 1.0}, []float64{0.01, 0.02, 0.03})
	require.NoError(t, err)

	tests := []struct {
		name string
		t    float64
		want float64
	}{
		{"before first knot", 0.1, 0.01},
		{"on first knot", 0.25, 0.01},
		{"between knots", 0.4, 0.01},
		{"on second knot", 0.5, 0.02},
		{"on last knot", 1.0, 0.03},
		{"past last knot", 5.0, 0.03},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rs.RateAt(tt.t))
		})
	}
	assert.Equal(t, 0.01, rs.FirstRate())
	assert.Equal(t, 3, rs.Len())
}

func TestSchedule_Validation(t *testing.T) {
	_, err := NewRateSchedule([]float64{0.5, 0.25}, []float64{0.01, 0.02})
	var se *InvalidScheduleError
	require.True(t, errors.As(err, &se), "unsorted times must fail, got %v", err)
	assert.Equal(t, "rate", se.Schedule)

	_, err = NewDividendSchedule([]float64{0.5}, []float64{1, 2})
	require.True(t, errors.As(err, &se), "mismatched lengths must fail, got %v", err)
	assert.Equal(t, "dividend", se.Schedule)

	_, err = NewDividendSchedule([]float64{-0.1}, []float64{1})
	assert.True(t, errors.As(err, &se))

	// 相同时间的节点允许（非降序）
	_, err = NewDividendSchedule([]float64{0.5, 0.5}, []float64{1, 2})
	assert.NoError(t, err)
}

func TestSchedule_Empty(t *testing.T) {
	rs, err := NewRateSchedule(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, rs.RateAt(1))
	assert.Zero(t, rs.FirstRate())

	var nilRates *RateSchedule
	assert.Zero(t, nilRates.RateAt(1))
	assert.Nil(t, nilRates.Rolled(ThetaShift))

	ds, err := NewDividendSchedule([]float64{}, []float64{})
	require.NoError(t, err)
	assert.Zero(t, ds.DividendAt(0.5))
	assert.Zero(t, ds.PaidIn(0, 10))
}

func TestDividendSchedule_PaidInAndRolled(t *testing.T) {
	ds, err := NewDividendSchedule([]float64{0.001, 0.5, 0.75}, []float64{1, 2, 3})
	require.NoError(t, err)

	assert.Equal(t, 2.0, ds.DividendAt(0.6))
	assert.Equal(t, 1.0, ds.DividendAt(0))
	assert.Equal(t, 3.0, ds.PaidIn(0, 0.75), "interval is half open")
	assert.Equal(t, 5.0, ds.PaidIn(0.5, 1))

	rolled := ds.Rolled(ThetaShift)
	pts := rolled.Points()
	require.Len(t, pts, 3)
	assert.Equal(t, 0.0, pts[0].Time, "shift floors at zero")
	assert.InDelta(t, 0.5-ThetaShift, pts[1].Time, 1e-15)
	// 原结构不变
	assert.Equal(t, 0.001, ds.Points()[0].Time)
}

func TestYearFraction(t *testing.T) {
	assert.Equal(t, 1.0, YearFraction(365))
	assert.InDelta(t, 0.5, YearFraction(182)+0.5/365, 1e-12)
}
