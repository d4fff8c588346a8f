package domain

import (
	"errors"
	"fmt"
)

// InvalidScheduleError 利率/股息期限结构构造失败（未排序或数组长度不一致）
type InvalidScheduleError struct {
	Schedule string
	Reason   string
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid %s schedule: %s", e.Schedule, e.Reason)
}

// InvalidLatticeParametersError 二叉树参数非法
type InvalidLatticeParametersError struct {
	Field  string
	Reason string
}

func (e *InvalidLatticeParametersError) Error() string {
	return fmt.Sprintf("invalid lattice parameter %s: %s", e.Field, e.Reason)
}

// InvalidPricingRequestError 定价请求非法（行权价、期权类型、行权方式、平滑标志）
type InvalidPricingRequestError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidPricingRequestError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid pricing request %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid pricing request %s=%q: %s", e.Field, e.Value, e.Reason)
}

// DivisionDegenerateError 波动率为 0 时 vega 的差分分母退化。
// GreeksEngine 不会把它返回给调用方，而是返回 0 并设置 Greeks.VegaDegenerate。
type DivisionDegenerateError struct {
	Quantity string
}

func (e *DivisionDegenerateError) Error() string {
	return fmt.Sprintf("degenerate finite difference for %s: zero denominator", e.Quantity)
}

// IsValidationError 判断错误是否源于输入校验（调用方应映射为 4xx）
func IsValidationError(err error) bool {
	var se *InvalidScheduleError
	var le *InvalidLatticeParametersError
	var pe *InvalidPricingRequestError
	return errors.As(err, &se) || errors.As(err, &le) || errors.As(err, &pe)
}
