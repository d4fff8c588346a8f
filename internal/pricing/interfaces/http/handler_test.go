package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/binomialpricing/internal/pricing/application"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := application.NewPricingService(application.Config{
		DefaultSteps: 100,
		MaxSteps:     500,
		BatchWorkers: 2,
		MaxBatchSize: 5,
		CacheTTL:     time.Minute,
	}, nil, nil)
	r := gin.New()
	NewPricingHandler(svc).RegisterRoutes(r)
	return r
}

func post(t *testing.T, r http.Handler, ctx context.Context, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func atmBody() map[string]any {
	return map[string]any{
		"symbol":     "ACME",
		"spot":       100,
		"strike":     100,
		"tau":        1,
		"volatility": 0.25,
		"payoff":     "call",
		"style":      "european",
		"smoothing":  "yes",
		"flat_rate":  true,
		"rates":      []map[string]any{{"days": 0, "value": 0.05}},
	}
}

func decimalField(t *testing.T, raw json.RawMessage, field string) float64 {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	var s string
	require.NoError(t, json.Unmarshal(m[field], &s), "field %s: %s", field, m[field])
	f, err := strconv.ParseFloat(s, 64)
	require.NoError(t, err)
	return f
}

func TestPrice(t *testing.T) {
	rec, env := post(t, newRouter(), context.Background(), "/api/v1/pricing/binomial/price", atmBody())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, env.Code)
	assert.InDelta(t, 12.3428, decimalField(t, env.Data, "price"), 1e-3)
	assert.InDelta(t, 12.3360, decimalField(t, env.Data, "black_scholes_price"), 1e-3)

	var res application.PricingResultDTO
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "ACME", res.Symbol)
	assert.Equal(t, 100, res.Steps)
	assert.Nil(t, res.Greeks)
}

func TestGreeks(t *testing.T) {
	rec, env := post(t, newRouter(), context.Background(), "/api/v1/pricing/binomial/greeks", atmBody())
	require.Equal(t, http.StatusOK, rec.Code)

	var res application.PricingResultDTO
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotNil(t, res.Greeks)
	assert.InDelta(t, 0.6249, res.Greeks.Delta.InexactFloat64(), 1e-3)
	assert.Less(t, res.Greeks.Theta.InexactFloat64(), 0.0)
}

func TestPriceErrors(t *testing.T) {
	tests := []struct {
		name    string
		mod     func(b map[string]any)
		status  int
		message string
	}{
		{"missing spot", func(b map[string]any) { delete(b, "spot") }, http.StatusBadRequest, "invalid request"},
		{"negative volatility", func(b map[string]any) { b["volatility"] = -0.2 }, http.StatusBadRequest, "invalid request"},
		{"unknown style", func(b map[string]any) { b["style"] = "bermudan" }, http.StatusBadRequest, "invalid pricing request"},
		{"too many steps", func(b map[string]any) { b["steps"] = 501 }, http.StatusBadRequest, "invalid pricing request"},
		{"unsorted rates", func(b map[string]any) {
			b["flat_rate"] = false
			b["rates"] = []map[string]any{{"days": 100, "value": 0.05}, {"days": 10, "value": 0.04}}
		}, http.StatusBadRequest, "invalid schedule"},
		{"dividends exhaust spot", func(b map[string]any) {
			b["dividends"] = []map[string]any{{"days": 30, "value": 150}}
		}, http.StatusBadRequest, "invalid lattice parameters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := atmBody()
			tt.mod(body)
			rec, env := post(t, newRouter(), context.Background(), "/api/v1/pricing/binomial/price", body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.status, env.Code)
			assert.Equal(t, tt.message, env.Message)
		})
	}
}

func TestPriceInternalError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec, env := post(t, newRouter(), ctx, "/api/v1/pricing/binomial/price", atmBody())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "option pricing failed", env.Message)
}

func TestBatch(t *testing.T) {
	bad := atmBody()
	bad["style"] = "asian"
	put := atmBody()
	put["payoff"], put["style"] = "put", "american"

	rec, env := post(t, newRouter(), context.Background(), "/api/v1/pricing/binomial/batch", map[string]any{
		"batch_id":  "b-1",
		"contracts": []map[string]any{atmBody(), bad, put},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var res application.BatchPricingResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "b-1", res.BatchID)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	require.Len(t, res.Items, 3)
	assert.True(t, res.Items[1].Invalid)
	assert.InDelta(t, 7.9814, res.Items[2].Result.Price.InexactFloat64(), 1e-3)
}

func TestBatchErrors(t *testing.T) {
	r := newRouter()
	rec, _ := post(t, r, context.Background(), "/api/v1/pricing/binomial/batch", map[string]any{"contracts": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	many := make([]map[string]any, 6)
	for i := range many {
		many[i] = atmBody()
	}
	rec, env := post(t, r, context.Background(), "/api/v1/pricing/binomial/batch", map[string]any{"contracts": many})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid pricing request", env.Message)
}
