package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// countingScripter answers the fixed-window script with a per-key counter.
type countingScripter struct {
	redis.Scripter

	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (s *countingScripter) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return redis.NewCmdResult(nil, s.err)
	}
	if s.counts == nil {
		s.counts = make(map[string]int64)
	}
	s.counts[keys[0]]++
	return redis.NewCmdResult(s.counts[keys[0]], nil)
}

func newEngine(rl *RedisLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/v1/bookings", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/v1/auth/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func post(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = "203.0.113.7:5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRedisLimiter_BlocksOverLimit(t *testing.T) {
	rl := NewRedisLimiter(&countingScripter{}, 2, time.Minute, "test")
	r := newEngine(rl)

	assert.Equal(t, http.StatusCreated, post(r, "/v1/bookings").Code)
	assert.Equal(t, http.StatusCreated, post(r, "/v1/bookings").Code)

	w := post(r, "/v1/bookings")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// Budgets are per route.
	assert.Equal(t, http.StatusOK, post(r, "/v1/auth/login").Code)
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	rl := NewRedisLimiter(&countingScripter{err: errors.New("connection refused")}, 1, time.Minute, "test")
	r := newEngine(rl)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusCreated, post(r, "/v1/bookings").Code)
	}
}

func TestNewRedisLimiter_Defaults(t *testing.T) {
	rl := NewRedisLimiter(&countingScripter{}, 0, 0, " ")
	assert.Equal(t, 20, rl.limit)
	assert.Equal(t, time.Minute, rl.window)
	assert.Equal(t, "rl", rl.prefix)
}
