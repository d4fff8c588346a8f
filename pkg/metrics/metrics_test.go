package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPricing(t *testing.T) {
	m := New("binomial-pricing")

	m.RecordPricing("american", "put", "ok", 100, 2*time.Millisecond)
	m.RecordPricing("american", "put", "ok", 200, time.Millisecond)
	m.RecordPricing("european", "call", "invalid", 0, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PricingsTotal.WithLabelValues("american", "put", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PricingsTotal.WithLabelValues("european", "call", "invalid")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.LatticeSteps))
}

func TestRecordCacheAndHTTP(t *testing.T) {
	m := New("pricing")
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)
	m.RecordHTTPRequest("POST", "/api/v1/pricing/binomial/price", 200, 3*time.Millisecond)
	m.RecordGreeks("ok", 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/pricing/binomial/price", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GreeksTotal.WithLabelValues("ok")))
}

func TestHandlerExposesPrivateRegistry(t *testing.T) {
	m := New("binomial-pricing")
	m.RecordCacheLookup(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `binomial_binomial_pricing_cache_lookups_total{result="hit"} 1`)
}
