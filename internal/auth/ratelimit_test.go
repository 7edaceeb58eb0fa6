package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Requests: 3, Window: time.Minute})
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 2; i >= 0; i-- {
		allowed, remaining, _ := rl.Allow("1.2.3.4")
		assert.True(t, allowed)
		assert.Equal(t, i, remaining)
	}

	allowed, remaining, resetIn := rl.Allow("1.2.3.4")
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, time.Minute, resetIn)

	// Other clients have their own window.
	allowed, _, _ = rl.Allow("5.6.7.8")
	assert.True(t, allowed)

	now = now.Add(time.Minute)
	allowed, remaining, _ = rl.Allow("1.2.3.4")
	assert.True(t, allowed)
	assert.Equal(t, 2, remaining)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Minute})
	defer rl.Stop()

	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow("a")
	rl.Allow("b")

	now = now.Add(2 * time.Minute)
	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.clients)
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Requests: 2, Window: time.Minute})
	defer rl.Stop()

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/api/search", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		last = httptest.NewRecorder()
		router.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "2", last.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
	assert.Contains(t, last.Body.String(), "RATE_LIMITED")
}

func TestRateLimitDefaults(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{})
	defer rl.Stop()
	assert.Equal(t, 1000, rl.limit)
	assert.Equal(t, 15*time.Minute, rl.window)

	search := SearchRateLimitConfig()
	assert.Equal(t, 20, search.Requests)
	assert.Equal(t, time.Minute, search.Window)

	rl.Stop()
}
