package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores extracted article text in Redis keyed by a SHA-256 of
// the URL, so repeated runs inside the cache window skip refetching.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies connectivity.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Close closes the underlying Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func cacheKey(url string) string {
	h := sha256.Sum256([]byte(url))
	return "briefcast:content:" + hex.EncodeToString(h[:])
}

// Get returns cached text for the URL, if present.
func (c *RedisCache) Get(ctx context.Context, url string) (string, bool) {
	text, err := c.client.Get(ctx, cacheKey(url)).Result()
	if err != nil {
		return "", false
	}
	return text, true
}

// Set stores text for the URL. Failures are ignored; the cache is an
// optimization, not a store of record.
func (c *RedisCache) Set(ctx context.Context, url, text string) {
	c.client.Set(ctx, cacheKey(url), text, c.ttl)
}
