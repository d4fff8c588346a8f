package domain

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// BlackScholesInput Black-Scholes 模型输入
type BlackScholesInput struct {
	S float64 // 标的资产价格（已扣除股息现值）
	K float64 // 执行价格
	T float64 // 到期时间 (年)
	R float64 // 无风险利率
	V float64 // 波动率
}

// BlackScholesResult Black-Scholes 模型输出，vega 按单位波动率，theta 按年
type BlackScholesResult struct {
	Price float64
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// BlackScholes 计算欧式期权解析价格和 Greeks。
// T 或 V 为 0 时退化为贴现内在价值，Greeks 中只有 delta 有意义。
func BlackScholes(payoff Payoff, in BlackScholesInput) BlackScholesResult {
	df := math.Exp(-in.R * in.T)
	if in.T <= 0 || in.V <= 0 {
		forward := in.S - in.K*df
		res := BlackScholesResult{}
		switch {
		case payoff == Call && forward > 0:
			res.Price, res.Delta = forward, 1
		case payoff == Put && forward < 0:
			res.Price, res.Delta = -forward, -1
		}
		return res
	}

	norm := distuv.UnitNormal
	sqrtT := math.Sqrt(in.T)
	d1 := (math.Log(in.S/in.K) + (in.R+0.5*in.V*in.V)*in.T) / (in.V * sqrtT)
	d2 := d1 - in.V*sqrtT
	pdf := norm.Prob(d1)

	res := BlackScholesResult{
		Gamma: pdf / (in.S * in.V * sqrtT),
		Vega:  in.S * sqrtT * pdf,
	}
	if payoff == Call {
		res.Price = in.S*norm.CDF(d1) - in.K*df*norm.CDF(d2)
		res.Delta = norm.CDF(d1)
		res.Theta = -in.S*pdf*in.V/(2*sqrtT) - in.R*in.K*df*norm.CDF(d2)
		res.Rho = in.K * in.T * df * norm.CDF(d2)
	} else {
		res.Price = in.K*df*norm.CDF(-d2) - in.S*norm.CDF(-d1)
		res.Delta = norm.CDF(d1) - 1
		res.Theta = -in.S*pdf*in.V/(2*sqrtT) + in.R*in.K*df*norm.CDF(-d2)
		res.Rho = -in.K * in.T * df * norm.CDF(-d2)
	}
	return res
}
