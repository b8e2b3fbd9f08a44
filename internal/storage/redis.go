package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lifecompass/backend/pkg/types"
	"github.com/lifecompass/backend/pkg/utils"
)

// ErrCacheMiss is returned when a key is absent
var ErrCacheMiss = errors.New("cache miss")

// RedisClient wraps redis.Client with JSON helpers
type RedisClient struct {
	client *redis.Client
	logger *utils.Logger
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, config *types.RedisConfig, logger *utils.Logger) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.Database,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.WithField("addr", client.Options().Addr).Info("Successfully connected to Redis")
	return &RedisClient{client: client, logger: logger}, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Ping tests Redis connectivity
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Set stores value as JSON with a TTL
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// Get decodes the JSON stored at key into dest
func (r *RedisClient) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get key %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return nil
}

// Delete removes keys
func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// RateLimiter is a sliding-window limiter backed by sorted sets
type RateLimiter struct {
	redis     *RedisClient
	keyPrefix string
}

// NewRateLimiter creates a rate limiter
func NewRateLimiter(redis *RedisClient) *RateLimiter {
	return &RateLimiter{
		redis:     redis,
		keyPrefix: "rate_limit:",
	}
}

// Allow records one request for key and reports whether it fits in the window
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	redisKey := rl.keyPrefix + key

	now := time.Now().UnixNano()
	windowStart := now - window.Nanoseconds()

	pipe := rl.redis.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now), Member: windowMember(now)})
	pipe.Expire(ctx, redisKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}

	return countCmd.Val() < limit, nil
}

// windowMember keeps requests landing on the same nanosecond from
// collapsing into one sorted set entry
func windowMember(now int64) string {
	return strconv.FormatInt(now, 10) + "-" + uuid.NewString()
}

// CacheManager namespaces JSON values under a prefix
type CacheManager struct {
	redis     *RedisClient
	keyPrefix string
}

// NewCacheManager creates a cache under prefix
func NewCacheManager(redis *RedisClient, prefix string) *CacheManager {
	return &CacheManager{
		redis:     redis,
		keyPrefix: prefix + ":",
	}
}

// Get retrieves a cached value
func (c *CacheManager) Get(ctx context.Context, key string, dest interface{}) error {
	return c.redis.Get(ctx, c.keyPrefix+key, dest)
}

// Set caches a value with TTL
func (c *CacheManager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.redis.Set(ctx, c.keyPrefix+key, value, ttl)
}

// Delete removes a cached value
func (c *CacheManager) Delete(ctx context.Context, key string) error {
	return c.redis.Delete(ctx, c.keyPrefix+key)
}

// GetOrSet fills dest from the cache, or from loader on a miss. A failure
// to write the cache is logged and does not fail the call.
func (c *CacheManager) GetOrSet(ctx context.Context, key string, dest interface{}, loader func() (interface{}, error), ttl time.Duration) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	}

	value, err := loader()
	if err != nil {
		return fmt.Errorf("failed to load value: %w", err)
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		c.redis.logger.WithError(err).Warnf("Failed to cache value for key: %s", key)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal loaded value: %w", err)
	}
	return json.Unmarshal(data, dest)
}
