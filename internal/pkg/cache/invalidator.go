// Package cache provides best-effort invalidation of cached query
// results. The notification stream client calls it when a notification
// arrives so dependent reads refetch instead of serving stale data.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hangryo/baedalgo/internal/pkg/models"
)

// Invalidator invalidates cached entries. Both operations are
// fire-and-forget from the caller's point of view; errors are logged by
// the caller and never block frame handling.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// RedisInvalidator invalidates cache entries held in Redis
type RedisInvalidator struct {
	client *redis.Client
}

// NewRedisInvalidator connects to Redis and verifies the connection
func NewRedisInvalidator(config models.RedisConfig) (*RedisInvalidator, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisInvalidator{client: client}, nil
}

// GetClient returns the underlying Redis client
func (r *RedisInvalidator) GetClient() *redis.Client {
	return r.client
}

// Invalidate removes a single cached entry
func (r *RedisInvalidator) Invalidate(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate key %s: %w", key, err)
	}
	return nil
}

// InvalidatePrefix removes every cached entry whose key starts with prefix
func (r *RedisInvalidator) InvalidatePrefix(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys with prefix %s: %w", prefix, err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate %d keys: %w", len(keys), err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisInvalidator) Close() error {
	return r.client.Close()
}
