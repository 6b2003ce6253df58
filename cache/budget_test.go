package cache

import (
	"context"
	"testing"
	"time"

	"budget/config"
	"budget/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "budget:42:2024-05", Key(42, "2024-05"))
}

func TestNew_Disabled(t *testing.T) {
	c, err := New(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNilCache_NoOp(t *testing.T) {
	var c *BudgetCache
	ctx := context.Background()

	b, hit, err := c.Get(ctx, 1, "2024-05")
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, b)

	assert.NoError(t, c.Set(ctx, &models.Budget{UserID: 1, Month: "2024-05"}))
	assert.NoError(t, c.Invalidate(ctx, 1, "2024-05"))
	assert.NoError(t, c.Close())
}

func TestCache_Unreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewWithClient(rdb, time.Minute)
	defer c.Close()

	_, hit, err := c.Get(context.Background(), 1, "2024-05")
	assert.Error(t, err)
	assert.False(t, hit)
}

func newMiniCache(t *testing.T) (*BudgetCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestNew_Enabled(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := New(context.Background(), config.RedisConfig{Enabled: true, Addr: mr.Addr(), TTLSeconds: 30})
	require.NoError(t, err)
	require.NotNil(t, c)
	defer c.Close()
	assert.Equal(t, 30*time.Second, c.ttl)
}

func TestCache_SetGetInvalidate(t *testing.T) {
	c, mr := newMiniCache(t)
	ctx := context.Background()

	_, hit, err := c.Get(ctx, 1, "2024-05")
	require.NoError(t, err)
	assert.False(t, hit)

	b := &models.Budget{ID: 3, UserID: 1, TotalAmount: 1000, RemainingAmount: 640.5, Month: "2024-05"}
	require.NoError(t, c.Set(ctx, b))
	assert.True(t, mr.Exists("budget:1:2024-05"))
	assert.Equal(t, time.Minute, mr.TTL("budget:1:2024-05"))

	got, hit, err := c.Get(ctx, 1, "2024-05")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, uint(3), got.ID)
	assert.Equal(t, 640.5, got.RemainingAmount)
	assert.Equal(t, "2024-05", got.Month)

	// 其他月份不受影响
	_, hit, err = c.Get(ctx, 1, "2024-06")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Invalidate(ctx, 1, "2024-05"))
	assert.False(t, mr.Exists("budget:1:2024-05"))
	_, hit, err = c.Get(ctx, 1, "2024-05")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_CorruptEntry(t *testing.T) {
	c, mr := newMiniCache(t)
	require.NoError(t, mr.Set("budget:1:2024-05", "{not json"))

	_, hit, err := c.Get(context.Background(), 1, "2024-05")
	assert.Error(t, err)
	assert.False(t, hit)
}
