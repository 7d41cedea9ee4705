package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace-orders/internal/core"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 5 * time.Minute

// NewRedisCache returns a RedisCache whose entries expire after ttl (5 minutes when ttl <= 0).
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// RedisCache stores bought-item listings as JSON under bought_items:<user>:<distributor>:<cycle>.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type entry struct {
	Version string          `json:"version"`
	Items   []core.LineItem `json:"items"`
}

func (r *RedisCache) Get(ctx context.Context, q core.BoughtItemsQuery, version string) ([]core.LineItem, error) {
	data, err := r.client.Get(ctx, cacheKey(q)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal bought items failed: %w", err)
	}
	if e.Version != version {
		return nil, ErrCacheMiss
	}
	if e.Items == nil {
		e.Items = []core.LineItem{}
	}
	return e.Items, nil
}

func (r *RedisCache) Set(ctx context.Context, q core.BoughtItemsQuery, version string, items []core.LineItem) error {
	data, err := json.Marshal(entry{Version: version, Items: items})
	if err != nil {
		return fmt.Errorf("marshal bought items failed: %w", err)
	}
	if err := r.client.Set(ctx, cacheKey(q), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, q core.BoughtItemsQuery) error {
	if err := r.client.Del(ctx, cacheKey(q)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(q core.BoughtItemsQuery) string {
	return fmt.Sprintf("bought_items:%d:%d:%d", q.UserID, q.DistributorID, q.OrderCycleID)
}
