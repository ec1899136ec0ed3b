package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache on a shared Redis client.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCache wraps client; every key is stored under keyPrefix.
func NewRedisCache(client *redis.Client, keyPrefix string) *RedisCache {
	return &RedisCache{client: client, keyPrefix: keyPrefix}
}

// Get retrieves a value by key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Set stores a value with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err()
}

// Delete removes a value by key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.keyPrefix+key).Err()
}

// Close is a no-op; the client is owned by the caller.
func (c *RedisCache) Close() error {
	return nil
}

var _ Cache = (*RedisCache)(nil)
