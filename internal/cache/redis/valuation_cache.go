package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harborfin/rwaledger/internal/domain"
)

// ValuationCache implements domain.ValuationCache using Redis hashes.
// Each pledge's latest valuation is stored as a hash at key
// "valuation:{pledgeID}" with fields "value" (int64 minor units) and
// "ts" (Unix nanosecond timestamp).
type ValuationCache struct {
	rdb *redis.Client
}

// NewValuationCache creates a ValuationCache backed by the given Client.
func NewValuationCache(c *Client) *ValuationCache {
	return &ValuationCache{rdb: c.Underlying()}
}

func valuationKey(pledgeID string) string {
	return "valuation:" + pledgeID
}

// SetValuation stores the latest official value and timestamp for a pledge.
func (vc *ValuationCache) SetValuation(ctx context.Context, pledgeID string, value int64, ts time.Time) error {
	key := valuationKey(pledgeID)
	fields := map[string]interface{}{
		"value": strconv.FormatInt(value, 10),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := vc.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis: set valuation %s: %w", pledgeID, err)
	}
	return nil
}

// GetValuation retrieves the latest official value and timestamp for a
// pledge. It returns domain.ErrNotFound when the key does not exist.
func (vc *ValuationCache) GetValuation(ctx context.Context, pledgeID string) (int64, time.Time, error) {
	key := valuationKey(pledgeID)
	vals, err := vc.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get valuation %s: %w", pledgeID, err)
	}
	if len(vals) == 0 {
		return 0, time.Time{}, domain.ErrNotFound
	}

	valueStr, ok := vals["value"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse valuation %s: %w", pledgeID, err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse ts %s: %w", pledgeID, err)
	}

	return value, time.Unix(0, tsNano), nil
}

// Compile-time interface check.
var _ domain.ValuationCache = (*ValuationCache)(nil)
