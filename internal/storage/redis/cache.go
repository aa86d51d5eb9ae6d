package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Dzaakk/playtime-gateway/internal/playtime"
)

const DefaultCachePrefix = "playtime"

// RedisCache is the networked playtime.Cache. Expiry is delegated to the
// server via PX, so an expired key reads as redis.Nil.
type RedisCache struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

func NewRedisCache(client *redis.Client, prefix string, defaultTTL time.Duration) *RedisCache {
	if prefix == "" {
		prefix = DefaultCachePrefix
	}
	if defaultTTL <= 0 {
		defaultTTL = playtime.DefaultCacheTTL
	}
	return &RedisCache{client: client, prefix: prefix, defaultTTL: defaultTTL}
}

func (c *RedisCache) key(k string) string {
	return c.prefix + ":" + k
}

func (c *RedisCache) Get(ctx context.Context, key string) (playtime.Response, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return playtime.Response{}, false, nil
	}
	if err != nil {
		return playtime.Response{}, false, fmt.Errorf("redis get: %w", err)
	}

	var resp playtime.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return playtime.Response{}, false, fmt.Errorf("decode cached response: %w", err)
	}
	return resp, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value playtime.Response, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

var _ playtime.Cache = (*RedisCache)(nil)
