package application

import (
	"time"

	"github.com/shopspring/decimal"
)

// TermPoint 期限结构中的一个节点，Days 为距估值日的自然日数 (ACT/365)
type TermPoint struct {
	Days  int     `json:"days"`
	Value float64 `json:"value"`
}

// PriceOptionCommand 二叉树期权定价命令
type PriceOptionCommand struct {
	// Symbol 仅用于标识，不参与定价与缓存键
	Symbol     string
	Spot       float64
	Strike     float64
	Tau        float64 // 年
	Volatility float64
	// Steps 为 0 时使用配置的默认步数
	Steps     int
	Payoff    string // call/put
	Style     string // american/european
	Smoothing string // yes/no，为空视为 no
	// Lattice 为空时使用配置的默认树类型
	Lattice   string
	FlatRate  bool
	Rates     []TermPoint
	Dividends []TermPoint
	// WithGreeks 同时计算 delta/gamma/vega/theta
	WithGreeks bool
}

// BatchPriceOptionsCommand 批量定价命令
type BatchPriceOptionsCommand struct {
	BatchID   string
	Contracts []PriceOptionCommand
}

// GreeksDTO 有限差分 Greeks
type GreeksDTO struct {
	Delta          decimal.Decimal `json:"delta"`
	Gamma          decimal.Decimal `json:"gamma"`
	Vega           decimal.Decimal `json:"vega"`
	Theta          decimal.Decimal `json:"theta"`
	VegaDegenerate bool            `json:"vega_degenerate,omitempty"`
}

// PricingResultDTO 定价结果
type PricingResultDTO struct {
	Symbol string          `json:"symbol,omitempty"`
	Price  decimal.Decimal `json:"price"`
	// BlackScholesPrice 同参数欧式解析价（扣除股息现值、使用树上平均利率），作为参考
	BlackScholesPrice decimal.Decimal `json:"black_scholes_price"`
	Greeks            *GreeksDTO      `json:"greeks,omitempty"`
	Model             string          `json:"model"`
	Payoff            string          `json:"payoff"`
	Style             string          `json:"style"`
	Smoothed          bool            `json:"smoothed"`
	Steps             int             `json:"steps"`
	CacheHit          bool            `json:"cache_hit"`
	CalculatedAt      int64           `json:"calculated_at"`
	ElapsedMicros     int64           `json:"elapsed_us"`
}

// BatchItemResult 批量定价中单个合约的结果，Result 与 Error 互斥
type BatchItemResult struct {
	Index   int               `json:"index"`
	Symbol  string            `json:"symbol,omitempty"`
	Result  *PricingResultDTO `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
	Invalid bool              `json:"invalid,omitempty"`
}

// BatchPricingResult 批量定价结果
type BatchPricingResult struct {
	BatchID      string            `json:"batch_id"`
	Items        []BatchItemResult `json:"items"`
	SuccessCount int               `json:"success_count"`
	FailureCount int               `json:"failure_count"`
	AverageTime  time.Duration     `json:"average_time_ns"`
}
