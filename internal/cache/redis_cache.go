package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"edencore/marketrun/internal/domain"
)

type RedisConsolidationCache struct {
	client *redis.Client
}

func NewRedisConsolidationCache(addr string, password string, db int) *RedisConsolidationCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisConsolidationCache{client: client}
}

func (c *RedisConsolidationCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisConsolidationCache) Close() error {
	return c.client.Close()
}

// Get decodes a fresh slice on every call, so callers never share state with
// each other or with the stored payload.
func (c *RedisConsolidationCache) Get(ctx context.Context, key string) ([]domain.ConsolidatedItem, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var items []domain.ConsolidatedItem
	if err := json.Unmarshal(val, &items); err != nil {
		return nil, false, err
	}
	return items, true, nil
}

func (c *RedisConsolidationCache) Set(ctx context.Context, key string, items []domain.ConsolidatedItem, ttl time.Duration) error {
	if items == nil {
		return nil
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisConsolidationCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
