// Package cache keeps contractor rate tables in Redis in front of the backend lookup.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"parkflow/internal/checkout"
	"parkflow/internal/domain"
	"parkflow/internal/fee"
	"parkflow/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	rateKeyPrefix = "parkflow:rates:%s"
	// DefaultRateTTL bounds how stale a cached rate table can be.
	DefaultRateTTL = 60 * time.Second
)

func NewRedis(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// RateCache is a read-through checkout.RateProvider. Redis failures are logged and the
// lookup falls through to the wrapped provider. "Not configured" answers are never cached
// so a contractor who sets rates is picked up on the next checkout.
type RateCache struct {
	redis redis.Cmdable
	next  checkout.RateProvider
	ttl   time.Duration
}

func NewRateCache(rdb redis.Cmdable, next checkout.RateProvider, ttl time.Duration) *RateCache {
	if ttl <= 0 {
		ttl = DefaultRateTTL
	}
	return &RateCache{redis: rdb, next: next, ttl: ttl}
}

func (c *RateCache) GetRates(ctx context.Context, actor domain.Actor, contractorID string) (*fee.RateTable, error) {
	key := rateKey(contractorID)

	table, err := c.lookup(ctx, key)
	if err != nil {
		logger.Warn("Rate cache read failed", zap.String("key", key), zap.Error(err))
	} else if table != nil {
		return table, nil
	}

	table, err = c.next.GetRates(ctx, actor, contractorID)
	if err != nil || table == nil {
		return table, err
	}

	if err := c.store(ctx, key, table); err != nil {
		logger.Warn("Rate cache write failed", zap.String("key", key), zap.Error(err))
	}
	return table, nil
}

// Invalidate drops the cached table for a contractor.
func (c *RateCache) Invalidate(ctx context.Context, contractorID string) error {
	return c.redis.Del(ctx, rateKey(contractorID)).Err()
}

func (c *RateCache) lookup(ctx context.Context, key string) (*fee.RateTable, error) {
	val, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var lookup domain.RateLookup
	if err := json.Unmarshal(val, &lookup); err != nil {
		return nil, fmt.Errorf("decode cached rates: %w", err)
	}
	return lookup.Table()
}

func (c *RateCache) store(ctx context.Context, key string, table *fee.RateTable) error {
	val, err := json.Marshal(domain.RateLookupFromTable(*table))
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, key, val, c.ttl).Err()
}

func rateKey(contractorID string) string {
	return fmt.Sprintf(rateKeyPrefix, contractorID)
}
