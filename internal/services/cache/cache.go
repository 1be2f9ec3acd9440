package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/aiopslab/aiops-gateway/internal/models"
)

// ResponseCache stores agent results in Redis keyed by a digest of the
// agent name and its input. A nil cache is valid and disables caching.
type ResponseCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Redis-backed response cache from configuration. Returns
// (nil, nil) when no Redis URL is configured, which disables caching.
func New(ctx context.Context, cfg models.CacheConfig) (*ResponseCache, error) {
	if cfg.RedisURL == "" {
		fiberlog.Info("cache: Redis not configured - agent response cache disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = 50
	opt.MinIdleConns = 10
	opt.DialTimeout = 10 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		closeErr := client.Close()
		if closeErr != nil {
			fiberlog.Warnf("cache: failed to close Redis client: %v", closeErr)
		}
		return nil, fmt.Errorf("Redis ping failed: %w", err)
	}

	fiberlog.Infof("cache: agent response cache enabled (ttl: %s)", cfg.TTL())
	return &ResponseCache{client: client, ttl: cfg.TTL()}, nil
}

// Key derives the cache key for an agent invocation from its input.
func Key(agent, input string) string {
	digest := sha256.Sum256([]byte(input))
	return fmt.Sprintf("agent:%s:%x", agent, digest[:16])
}

// Get returns the cached payload for key, or ("", false) on miss.
// Cache failures are logged and treated as misses.
func (c *ResponseCache) Get(ctx context.Context, key string) (string, bool) {
	if c == nil {
		return "", false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			fiberlog.Warnf("cache: get failed for %s: %v", key, err)
		}
		return "", false
	}
	return val, true
}

// Set stores a payload with the configured TTL. Failures are logged,
// never propagated.
func (c *ResponseCache) Set(ctx context.Context, key, payload string) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		fiberlog.Warnf("cache: set failed for %s: %v", key, err)
	}
}

// Ping verifies the Redis connection is alive.
func (c *ResponseCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection.
func (c *ResponseCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
