package cache

import (
	"context"
	"testing"
	"time"

	"marketplace-orders/internal/core"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache pointing at it.
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, time.Minute), mr
}

var query = core.BoughtItemsQuery{UserID: 42, DistributorID: 5, OrderCycleID: 9}

func TestRedisCache_RoundTrip(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	items := []core.LineItem{
		{ID: 11, OrderID: 1, VariantID: 100, Quantity: 2, Price: decimal.RequireFromString("4.50")},
		{ID: 12, OrderID: 1, VariantID: 101, Quantity: 1, Price: decimal.RequireFromString("3.00")},
	}
	require.NoError(t, c.Set(ctx, query, "1-100", items))
	assert.True(t, mr.Exists("bought_items:42:5:9"))
	assert.Equal(t, time.Minute, mr.TTL("bought_items:42:5:9"))

	got, err := c.Get(ctx, query, "1-100")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(11), got[0].ID)
	assert.True(t, got[0].Price.Equal(items[0].Price))
}

func TestRedisCache_EmptyListIsAHit(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, query, "1-100", []core.LineItem{}))
	got, err := c.Get(ctx, query, "1-100")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRedisCache_MissAndDelete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	_, err := c.Get(ctx, query, "1-100")
	assert.ErrorIs(t, err, ErrCacheMiss)

	mr.Set("bought_items:42:5:9", "not json")
	_, err = c.Get(ctx, query, "1-100")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Delete(ctx, query))
	assert.False(t, mr.Exists("bought_items:42:5:9"))
}

func TestRedisCache_Expiry(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, query, "1-100", []core.LineItem{{ID: 1}}))
	mr.FastForward(2 * time.Minute)

	_, err := c.Get(ctx, query, "1-100")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_OtherVersionIsAMiss(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, query, "1-100", []core.LineItem{{ID: 11}}))

	_, err := c.Get(ctx, query, "2-250")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.True(t, mr.Exists("bought_items:42:5:9"))

	got, err := c.Get(ctx, query, "1-100")
	require.NoError(t, err)
	require.Len(t, got, 1)
}
