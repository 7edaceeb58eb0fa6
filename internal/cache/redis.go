package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 500

// RedisCache stores entries in Redis under a key prefix so that pattern
// deletes never touch keys owned by other applications.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects using a redis:// URL.
func NewRedisCache(redisURL, prefix string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisCacheFromClient(redis.NewClient(opts), prefix), nil
}

func NewRedisCacheFromClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *RedisCache) ClearPattern(ctx context.Context, pattern string) (int64, error) {
	return c.deleteMatching(ctx, c.key(pattern), func(string) (bool, error) { return true, nil })
}

// Cleanup removes namespaced keys that were stored without an expiry. Keys
// with a TTL are left to Redis.
func (c *RedisCache) Cleanup(ctx context.Context) (int64, error) {
	return c.deleteMatching(ctx, c.key("*"), func(key string) (bool, error) {
		ttl, err := c.client.TTL(ctx, key).Result()
		if err != nil {
			return false, err
		}
		// -1 means the key exists but has no associated expire.
		return ttl == -1, nil
	})
}

func (c *RedisCache) deleteMatching(ctx context.Context, match string, keep func(key string) (bool, error)) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan %q: %w", match, err)
		}

		batch := make([]string, 0, len(keys))
		for _, k := range keys {
			if !strings.HasPrefix(k, c.prefix) {
				continue
			}
			ok, err := keep(k)
			if err != nil {
				return deleted, err
			}
			if ok {
				batch = append(batch, k)
			}
		}
		if len(batch) > 0 {
			n, err := c.client.Del(ctx, batch...).Result()
			if err != nil {
				return deleted, fmt.Errorf("delete keys: %w", err)
			}
			deleted += n
		}

		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
