// Package cache provides a read-through cache for current stock levels.
// Reads of current state only need eventual consistency, so a short TTL
// plus explicit invalidation after each committed mutation is enough;
// the ledger itself is never cached.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// StockLevels caches the stock level read query keyed by product+location.
type StockLevels interface {
	Get(ctx context.Context, productID, locationID string) (*dto.StockLevelResponse, bool)
	Set(ctx context.Context, resp *dto.StockLevelResponse)
	Invalidate(ctx context.Context, productID, locationID string)
}

type redisStockLevels struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStockLevels(rdb *redis.Client, ttl time.Duration) StockLevels {
	return &redisStockLevels{rdb: rdb, ttl: ttl}
}

func levelKey(productID, locationID string) string {
	return "stock:level:" + productID + ":" + locationID
}

func (c *redisStockLevels) Get(ctx context.Context, productID, locationID string) (*dto.StockLevelResponse, bool) {
	raw, err := c.rdb.Get(ctx, levelKey(productID, locationID)).Bytes()
	if err != nil {
		return nil, false
	}
	var resp dto.StockLevelResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (c *redisStockLevels) Set(ctx context.Context, resp *dto.StockLevelResponse) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, levelKey(resp.ProductID, resp.LocationID), raw, c.ttl).Err(); err != nil {
		log.Debug().Err(err).Msg("stock level cache set failed")
	}
}

func (c *redisStockLevels) Invalidate(ctx context.Context, productID, locationID string) {
	if err := c.rdb.Del(ctx, levelKey(productID, locationID)).Err(); err != nil {
		log.Debug().Err(err).Msg("stock level cache invalidate failed")
	}
}

// noop satisfies StockLevels when no Redis is configured (tests, dev).
type noop struct{}

func NewNoop() StockLevels { return noop{} }

func (noop) Get(context.Context, string, string) (*dto.StockLevelResponse, bool) { return nil, false }
func (noop) Set(context.Context, *dto.StockLevelResponse)                        {}
func (noop) Invalidate(context.Context, string, string)                          {}
