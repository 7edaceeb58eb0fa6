package auth

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter counts requests per client in fixed windows.
type RateLimiter struct {
	mu              sync.Mutex
	clients         map[string]*windowRecord
	limit           int
	window          time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	now             func() time.Time
}

type windowRecord struct {
	count int
	start time.Time
}

// RateLimitConfig contains configuration for the rate limiter.
type RateLimitConfig struct {
	Requests        int           // Requests allowed per window (default: 1000)
	Window          time.Duration // Window length (default: 15m)
	CleanupInterval time.Duration // How often to drop expired windows (default: 5m)
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests:        1000,
		Window:          15 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// SearchRateLimitConfig is the stricter limit applied to search.
func SearchRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests:        20,
		Window:          time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	defaults := DefaultRateLimitConfig()
	if cfg.Requests <= 0 {
		cfg.Requests = defaults.Requests
	}
	if cfg.Window <= 0 {
		cfg.Window = defaults.Window
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaults.CleanupInterval
	}

	rl := &RateLimiter{
		clients:         make(map[string]*windowRecord),
		limit:           cfg.Requests,
		window:          cfg.Window,
		cleanupInterval: cfg.CleanupInterval,
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
	}

	go rl.cleanupLoop()

	return rl
}

// Stop stops the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

// Allow counts one request for key. It returns whether the request is within
// the limit, how many requests remain and when the window resets.
func (rl *RateLimiter) Allow(key string) (allowed bool, remaining int, resetIn time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, exists := rl.clients[key]
	if !exists || now.Sub(record.start) >= rl.window {
		record = &windowRecord{start: now}
		rl.clients[key] = record
	}

	resetIn = rl.window - now.Sub(record.start)
	if record.count >= rl.limit {
		return false, 0, resetIn
	}

	record.count++
	return true, rl.limit - record.count, resetIn
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, record := range rl.clients {
		if now.Sub(record.start) >= rl.window {
			delete(rl.clients, key)
		}
	}
}

// Middleware limits requests per client IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, resetIn := rl.Allow(c.ClientIP())

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			retryAfter := int(resetIn.Round(time.Second) / time.Second)
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
				"code":  "RATE_LIMITED",
			})
			return
		}

		c.Next()
	}
}
