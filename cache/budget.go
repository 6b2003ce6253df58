package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"budget/config"
	"budget/models"

	"github.com/redis/go-redis/v9"
)

// BudgetCache 月度预算的读缓存；nil 时所有方法为空操作
type BudgetCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New 按配置连接 Redis；未启用时返回 nil
func New(ctx context.Context, cfg config.RedisConfig) (*BudgetCache, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return NewWithClient(rdb, time.Duration(cfg.TTLSeconds)*time.Second), nil
}

// NewWithClient 使用已有客户端
func NewWithClient(rdb *redis.Client, ttl time.Duration) *BudgetCache {
	return &BudgetCache{rdb: rdb, ttl: ttl}
}

// Key 缓存键 budget:{userID}:{month}
func Key(userID uint, month string) string {
	return fmt.Sprintf("budget:%d:%s", userID, month)
}

// Get 命中时返回预算
func (c *BudgetCache) Get(ctx context.Context, userID uint, month string) (*models.Budget, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	val, err := c.rdb.Get(ctx, Key(userID, month)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var b models.Budget
	if err := json.Unmarshal(val, &b); err != nil {
		return nil, false, err
	}
	return &b, true, nil
}

// Set 写入缓存
func (c *BudgetCache) Set(ctx context.Context, b *models.Budget) error {
	if c == nil || b == nil {
		return nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, Key(b.UserID, b.Month), data, c.ttl).Err()
}

// Invalidate 删除缓存
func (c *BudgetCache) Invalidate(ctx context.Context, userID uint, month string) error {
	if c == nil {
		return nil
	}
	return c.rdb.Del(ctx, Key(userID, month)).Err()
}

// Close 关闭连接
func (c *BudgetCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
