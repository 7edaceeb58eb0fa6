// Package cache is a string key-value store with per-key TTL and glob-pattern
// invalidation. Values are pre-serialized; callers decode them.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/wallpaperverse/api/internal/config"
)

// Cache is implemented by RedisCache and MemoryCache.
type Cache interface {
	// Get returns the value and true on a hit, or "" and false on a miss.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// ClearPattern deletes every key matching the glob and returns how many were removed.
	ClearPattern(ctx context.Context, pattern string) (int64, error)
	// Cleanup removes entries that can no longer be served (expired, or stored without a TTL).
	Cleanup(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// New returns a Redis-backed cache when a URL is configured, and an in-memory
// cache otherwise.
func New(cfg config.Cache, logger *slog.Logger) (Cache, error) {
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not set, using in-memory cache")
		return NewMemoryCache(), nil
	}
	return NewRedisCache(cfg.RedisURL, cfg.KeyPrefix)
}
