package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/binomialpricing/internal/pricing/application"
	"github.com/wyfcoding/binomialpricing/internal/pricing/domain"
	"github.com/wyfcoding/binomialpricing/pkg/logger"
	"github.com/wyfcoding/binomialpricing/pkg/response"
)

// PricingHandler 二叉树定价 HTTP 处理器
type PricingHandler struct {
	svc *application.PricingService
}

// NewPricingHandler 创建 HTTP 处理器实例
func NewPricingHandler(svc *application.PricingService) *PricingHandler {
	return &PricingHandler{svc: svc}
}

// RegisterRoutes 将处理器方法绑定到 Gin 路由
func (h *PricingHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api/v1/pricing/binomial")
	{
		api.POST("/price", h.Price)
		api.POST("/greeks", h.Greeks)
		api.POST("/batch", h.Batch)
	}
}

// TermPointRequest 期限结构节点，days 为距估值日的自然日数
type TermPointRequest struct {
	Days  int     `json:"days" binding:"gte=0"`
	Value float64 `json:"value"`
}

// PriceRequest 定价请求
type PriceRequest struct {
	Symbol     string             `json:"symbol"`
	Spot       float64            `json:"spot" binding:"required,gt=0"`
	Strike     float64            `json:"strike" binding:"required,gt=0"`
	Tau        float64            `json:"tau" binding:"required,gt=0"`
	Volatility float64            `json:"volatility" binding:"gte=0"`
	Steps      int                `json:"steps" binding:"gte=0"`
	Payoff     string             `json:"payoff" binding:"required"`
	Style      string             `json:"style" binding:"required"`
	Smoothing  string             `json:"smoothing"`
	Lattice    string             `json:"lattice"`
	FlatRate   bool               `json:"flat_rate"`
	Rates      []TermPointRequest `json:"rates" binding:"dive"`
	Dividends  []TermPointRequest `json:"dividends" binding:"dive"`
	WithGreeks bool               `json:"with_greeks"`
}

// BatchRequest 批量定价请求
type BatchRequest struct {
	BatchID   string         `json:"batch_id"`
	Contracts []PriceRequest `json:"contracts" binding:"required,min=1,dive"`
}

func (r PriceRequest) toCommand() application.PriceOptionCommand {
	return application.PriceOptionCommand{
		Symbol:     r.Symbol,
		Spot:       r.Spot,
		Strike:     r.Strike,
		Tau:        r.Tau,
		Volatility: r.Volatility,
		Steps:      r.Steps,
		Payoff:     r.Payoff,
		Style:      r.Style,
		Smoothing:  r.Smoothing,
		Lattice:    r.Lattice,
		FlatRate:   r.FlatRate,
		Rates:      toTermPoints(r.Rates),
		Dividends:  toTermPoints(r.Dividends),
		WithGreeks: r.WithGreeks,
	}
}

func toTermPoints(in []TermPointRequest) []application.TermPoint {
	out := make([]application.TermPoint, len(in))
	for i, p := range in {
		out[i] = application.TermPoint{Days: p.Days, Value: p.Value}
	}
	return out
}

// Price 计算期权价格，with_greeks 为 true 时同时返回 Greeks
func (h *PricingHandler) Price(c *gin.Context) {
	var req PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	result, err := h.svc.PriceOption(c.Request.Context(), req.toCommand())
	if err != nil {
		h.fail(c, "option pricing failed", err)
		return
	}
	response.Success(c, result)
}

// Greeks 计算期权价格与 Greeks
func (h *PricingHandler) Greeks(c *gin.Context) {
	var req PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	result, err := h.svc.Greeks(c.Request.Context(), req.toCommand())
	if err != nil {
		h.fail(c, "greeks calculation failed", err)
		return
	}
	response.Success(c, result)
}

// Batch 批量定价，单个合约的错误在结果项中返回
func (h *PricingHandler) Batch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	cmd := application.BatchPriceOptionsCommand{
		BatchID:   req.BatchID,
		Contracts: make([]application.PriceOptionCommand, len(req.Contracts)),
	}
	for i, contract := range req.Contracts {
		cmd.Contracts[i] = contract.toCommand()
	}
	result, err := h.svc.BatchPrice(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, "batch pricing failed", err)
		return
	}
	response.Success(c, result)
}

// fail 校验错误返回 400，其余返回 500
func (h *PricingHandler) fail(c *gin.Context, msg string, err error) {
	ctx := c.Request.Context()
	if domain.IsValidationError(err) {
		logger.Info(ctx, msg, "error", err)
		response.ErrorWithStatus(c, http.StatusBadRequest, validationMessage(err), err.Error())
		return
	}
	logger.Error(ctx, msg, "error", err)
	response.ErrorWithStatus(c, http.StatusInternalServerError, msg, err.Error())
}

func validationMessage(err error) string {
	var se *domain.InvalidScheduleError
	var le *domain.InvalidLatticeParametersError
	switch {
	case errors.As(err, &se):
		return "invalid schedule"
	case errors.As(err, &le):
		return "invalid lattice parameters"
	}
	return "invalid pricing request"
}
