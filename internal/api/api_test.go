package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gracefellowship/church-admin-backend/internal/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHealthz(t *testing.T) {
	healthy := NewRouter(Config{Logger: logger.Discard()})
	w := httptest.NewRecorder()
	healthy.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	down := NewRouter(Config{
		Logger: logger.Discard(),
		Ready:  func(context.Context) error { return errors.New("db down") },
	})
	w = httptest.NewRecorder()
	down.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "db down")
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := logger.New(logger.Config{Format: logger.FormatJSON, Output: &buf})

	r := gin.New()
	r.Use(RequestLogger(base), AccessLog())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "http request", line["msg"])
	assert.Equal(t, "req-123", line["request_id"])
	assert.Equal(t, "/ping", line["route"])
	assert.EqualValues(t, http.StatusNoContent, line["status"])

	// Missing ids are generated.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, w.Header().Get(requestIDHeader), 36)
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"https://a.org", "https://b.org"}, splitOrigins(" https://a.org, ,https://b.org "))
	assert.Nil(t, splitOrigins(""))
}
