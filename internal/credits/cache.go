package credits

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// BalanceCache keeps recently read balances. Implementations may lose entries at any time.
type BalanceCache interface {
	GetBalance(ctx context.Context, userID uint64) (int64, bool, error)
	SetBalance(ctx context.Context, userID uint64, balance int64) error
	InvalidateBalance(ctx context.Context, userID uint64) error
}

const defaultBalanceTTL = 30 * time.Second

// RedisBalanceCache stores balances under "credits:balance:<user id>".
type RedisBalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBalanceCache wraps client. A non-positive ttl falls back to thirty seconds.
func NewRedisBalanceCache(client *redis.Client, ttl time.Duration) *RedisBalanceCache {
	if ttl <= 0 {
		ttl = defaultBalanceTTL
	}
	return &RedisBalanceCache{client: client, ttl: ttl}
}

func balanceKey(userID uint64) string {
	return "credits:balance:" + strconv.FormatUint(userID, 10)
}

// GetBalance returns the cached balance and whether it was present.
func (c *RedisBalanceCache) GetBalance(ctx context.Context, userID uint64) (int64, bool, error) {
	if c == nil || c.client == nil {
		return 0, false, nil
	}
	val, errGet := c.client.Get(ctx, balanceKey(userID)).Result()
	if errors.Is(errGet, redis.Nil) {
		return 0, false, nil
	}
	if errGet != nil {
		return 0, false, errGet
	}
	balance, errParse := strconv.ParseInt(val, 10, 64)
	if errParse != nil {
		return 0, false, fmt.Errorf("parse cached balance: %w", errParse)
	}
	return balance, true, nil
}

// SetBalance stores balance with the configured ttl.
func (c *RedisBalanceCache) SetBalance(ctx context.Context, userID uint64, balance int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, balanceKey(userID), balance, c.ttl).Err()
}

// InvalidateBalance drops the cached balance.
func (c *RedisBalanceCache) InvalidateBalance(ctx context.Context, userID uint64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, balanceKey(userID)).Err()
}
