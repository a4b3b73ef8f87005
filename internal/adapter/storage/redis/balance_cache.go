package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// BalanceCache implements ports.BalanceCache using Redis. It holds short-
// lived on-chain balance snapshots so the balance_refresh workers do not
// hammer the chain API.
type BalanceCache struct {
	client *goredis.Client
	prefix string
}

// NewBalanceCache creates a new Redis-backed balance cache.
func NewBalanceCache(client *goredis.Client) *BalanceCache {
	return &BalanceCache{
		client: client,
		prefix: "balance:",
	}
}

// Get retrieves a cached balance by address. The second return value is
// false when the key does not exist.
func (c *BalanceCache) Get(ctx context.Context, address string) (decimal.Decimal, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+address).Result()
	if err != nil {
		if err == goredis.Nil {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("redis balance get: %w", err)
	}

	bal, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parse cached balance: %w", err)
	}
	return bal, true, nil
}

// Set stores a balance snapshot with TTL.
func (c *BalanceCache) Set(ctx context.Context, address string, balance decimal.Decimal, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+address, balance.String(), ttl).Err(); err != nil {
		return fmt.Errorf("redis balance set: %w", err)
	}
	return nil
}
