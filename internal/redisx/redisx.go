// Package redisx holds the Redis client setup and the cache used for
// advisory stock reads. Cached data may be slightly stale; every path that
// reads through it tolerates that.
package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BuseglY/order-management-api/internal/domain"
)

const (
	// Low-stock alert cache: lowstock:{threshold} -> JSON alert list.
	keyLowStock = "lowstock:%d"

	ttlLowStock = 30 * time.Second
)

// New connects a client and verifies the server is reachable.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// AlertCache caches low-stock alert lists per threshold.
type AlertCache struct {
	client *redis.Client
}

func NewAlertCache(client *redis.Client) *AlertCache {
	return &AlertCache{client: client}
}

// GetLowStock returns the cached alert list and whether it was present.
// Cache errors are reported as a miss.
func (c *AlertCache) GetLowStock(ctx context.Context, threshold int) ([]domain.LowStockAlert, bool) {
	raw, err := c.client.Get(ctx, fmt.Sprintf(keyLowStock, threshold)).Bytes()
	if err != nil {
		return nil, false
	}
	var alerts []domain.LowStockAlert
	if err := json.Unmarshal(raw, &alerts); err != nil {
		return nil, false
	}
	return alerts, true
}

// SetLowStock stores the alert list with a short TTL.
func (c *AlertCache) SetLowStock(ctx context.Context, threshold int, alerts []domain.LowStockAlert) error {
	raw, err := json.Marshal(alerts)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, fmt.Sprintf(keyLowStock, threshold), raw, ttlLowStock).Err()
}
