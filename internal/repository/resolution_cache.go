package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"room-advisor/internal/models"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ResolutionCache remembers resolver results by product name.
type ResolutionCache interface {
	Get(ctx context.Context, name string) (models.Resolution, bool, error)
	Set(ctx context.Context, name string, res models.Resolution) error
}

func cacheKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

type MemoryResolutionCache struct {
	cache *cache.Cache
}

func NewMemoryResolutionCache(ttl time.Duration) *MemoryResolutionCache {
	return &MemoryResolutionCache{cache: cache.New(ttl, ttl*2)}
}

func (c *MemoryResolutionCache) Get(_ context.Context, name string) (models.Resolution, bool, error) {
	v, ok := c.cache.Get(cacheKey(name))
	if !ok {
		return models.Resolution{}, false, nil
	}
	res, ok := v.(models.Resolution)
	return res, ok, nil
}

func (c *MemoryResolutionCache) Set(_ context.Context, name string, res models.Resolution) error {
	c.cache.SetDefault(cacheKey(name), res)
	return nil
}

const resolutionKeyPrefix = "advisor:resolution:"

type RedisResolutionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisResolutionCache(client *redis.Client, ttl time.Duration) *RedisResolutionCache {
	return &RedisResolutionCache{client: client, ttl: ttl}
}

func (c *RedisResolutionCache) Get(ctx context.Context, name string) (models.Resolution, bool, error) {
	data, err := c.client.Get(ctx, resolutionKeyPrefix+cacheKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Resolution{}, false, nil
	}
	if err != nil {
		return models.Resolution{}, false, fmt.Errorf("failed to read resolution: %w", err)
	}

	var res models.Resolution
	if err := json.Unmarshal(data, &res); err != nil {
		return models.Resolution{}, false, fmt.Errorf("failed to decode resolution: %w", err)
	}
	return res, true, nil
}

func (c *RedisResolutionCache) Set(ctx context.Context, name string, res models.Resolution) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode resolution: %w", err)
	}
	if err := c.client.Set(ctx, resolutionKeyPrefix+cacheKey(name), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store resolution: %w", err)
	}
	return nil
}
