package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	Success(c, gin.H{"price": "1.5"})
	var ok map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, ok["code"])
	assert.Equal(t, "1.5", ok["data"].(map[string]any)["price"])

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	ErrorWithStatus(c, http.StatusBadRequest, "invalid request", "")
	var bad map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bad))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.EqualValues(t, http.StatusBadRequest, bad["code"])
	assert.NotContains(t, bad, "data")
	assert.True(t, c.IsAborted())
}
