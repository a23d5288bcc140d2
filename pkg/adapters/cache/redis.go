// Package cache provides a Redis-backed slug -> destination cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/ports"
)

const defaultPrefix = "shortlink:url:"

type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: defaultPrefix, ttl: ttl}
}

// Connect parses redisURL, verifies the server answers and returns a cache
// over the new client.
func Connect(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisCache(client, ttl), nil
}

func (c *RedisCache) key(slug string) string {
	return c.prefix + slug
}

func (c *RedisCache) GetURL(ctx context.Context, slug string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.key(slug)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) SetURL(ctx context.Context, slug, originalURL string) error {
	return c.client.Set(ctx, c.key(slug), originalURL, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, slug string) error {
	return c.client.Del(ctx, c.key(slug)).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ ports.LinkCache = (*RedisCache)(nil)
