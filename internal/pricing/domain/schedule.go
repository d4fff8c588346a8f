package domain

import (
	"fmt"
	"math"
	"sort"
)

// DaysPerYear ACT/365 日计数基准
const DaysPerYear = 365.0

// YearFraction 将天数偏移转换为年化时间 (ACT/365)
func YearFraction(days int) float64 {
	return float64(days) / DaysPerYear
}

// SchedulePoint 期限结构节点
type SchedulePoint struct {
	Time   float64 // 距估值日的年化时间
	Amount float64 // 零息利率（连续复利）或现金股息
}

// stepSchedule 阶梯函数：取 Time <= t 的最后一个节点，首节点之前取首节点，末节点之后平推
type stepSchedule struct {
	points []SchedulePoint
}

func newStepSchedule(name string, times, amounts []float64) (stepSchedule, error) {
	if len(times) != len(amounts) {
		return stepSchedule{}, &InvalidScheduleError{
			Schedule: name,
			Reason:   fmt.Sprintf("%d times but %d amounts", len(times), len(amounts)),
		}
	}
	points := make([]SchedulePoint, len(times))
	for i, t := range times {
		if math.IsNaN(t) || t < 0 {
			return stepSchedule{}, &InvalidScheduleError{Schedule: name, Reason: fmt.Sprintf("time[%d]=%v is negative", i, t)}
		}
		if i > 0 && t < times[i-1] {
			return stepSchedule{}, &InvalidScheduleError{Schedule: name, Reason: fmt.Sprintf("time[%d]=%v precedes time[%d]=%v", i, t, i-1, times[i-1])}
		}
		points[i] = SchedulePoint{Time: t, Amount: amounts[i]}
	}
	return stepSchedule{points: points}, nil
}

func (s stepSchedule) at(t float64) float64 {
	if len(s.points) == 0 {
		return 0
	}
	// 第一个 Time > t 的位置
	idx := sort.Search(len(s.points), func(i int) bool { return s.points[i].Time > t })
	if idx == 0 {
		return s.points[0].Amount
	}
	return s.points[idx-1].Amount
}

func (s stepSchedule) rolled(shift float64) stepSchedule {
	points := make([]SchedulePoint, len(s.points))
	for i, p := range s.points {
		points[i] = SchedulePoint{Time: math.Max(p.Time-shift, 0), Amount: p.Amount}
	}
	return stepSchedule{points: points}
}

func (s stepSchedule) copyPoints() []SchedulePoint {
	out := make([]SchedulePoint, len(s.points))
	copy(out, s.points)
	return out
}

// RateSchedule 零息利率期限结构（连续复利、年化）
type RateSchedule struct {
	s stepSchedule
}

// NewRateSchedule 由平行数组构造利率期限结构，times 必须非降序
func NewRateSchedule(times, rates []float64) (*RateSchedule, error) {
	s, err := newStepSchedule("rate", times, rates)
	if err != nil {
		return nil, err
	}
	return &RateSchedule{s: s}, nil
}

// FlatRateSchedule 单节点利率期限结构
func FlatRateSchedule(rate float64) *RateSchedule {
	return &RateSchedule{s: stepSchedule{points: []SchedulePoint{{Time: 0, Amount: rate}}}}
}

// RateAt 返回 t 时刻适用的零息利率；空结构返回 0
func (r *RateSchedule) RateAt(t float64) float64 {
	if r == nil {
		return 0
	}
	return r.s.at(t)
}

// FirstRate 首节点利率，flat 模式下所有步长使用该利率
func (r *RateSchedule) FirstRate() float64 {
	if r == nil || len(r.s.points) == 0 {
		return 0
	}
	return r.s.points[0].Amount
}

func (r *RateSchedule) Len() int {
	if r == nil {
		return 0
	}
	return len(r.s.points)
}

func (r *RateSchedule) Points() []SchedulePoint {
	if r == nil {
		return nil
	}
	return r.s.copyPoints()
}

// Rolled 返回所有节点时间前移 shift 后的新结构（下限为 0），原结构不变
func (r *RateSchedule) Rolled(shift float64) *RateSchedule {
	if r == nil {
		return nil
	}
	return &RateSchedule{s: r.s.rolled(shift)}
}

// DividendSchedule 离散现金股息
type DividendSchedule struct {
	s stepSchedule
}

// NewDividendSchedule 由平行数组构造股息结构，times 为除息时间（年）
func NewDividendSchedule(times, amounts []float64) (*DividendSchedule, error) {
	s, err := newStepSchedule("dividend", times, amounts)
	if err != nil {
		return nil, err
	}
	return &DividendSchedule{s: s}, nil
}

// DividendAt 阶梯查找 t 时刻对应的股息金额
func (d *DividendSchedule) DividendAt(t float64) float64 {
	if d == nil {
		return 0
	}
	return d.s.at(t)
}

// PaidIn 汇总除息时间落在 [t0, t1) 内的现金股息
func (d *DividendSchedule) PaidIn(t0, t1 float64) float64 {
	if d == nil {
		return 0
	}
	total := 0.0
	for _, p := range d.s.points {
		if p.Time >= t0 && p.Time < t1 {
			total += p.Amount
		}
	}
	return total
}

func (d *DividendSchedule) Len() int {
	if d == nil {
		return 0
	}
	return len(d.s.points)
}

func (d *DividendSchedule) Points() []SchedulePoint {
	if d == nil {
		return nil
	}
	return d.s.copyPoints()
}

// Rolled 返回所有除息时间前移 shift 后的新结构（下限为 0）
func (d *DividendSchedule) Rolled(shift float64) *DividendSchedule {
	if d == nil {
		return nil
	}
	return &DividendSchedule{s: d.s.rolled(shift)}
}
