package redis

import (
	"context"
	"fmt"
	"time"
)

// Order velocity is tracked as one counter per item per hour bucket.
// Buckets expire after 25h so the trailing-24h read never touches
// stale keys.

const velocityBucketTTL = 25 * time.Hour

func velocityKey(itemID string, bucket time.Time) string {
	return fmt.Sprintf("order_velocity:%s:%s", itemID, bucket.UTC().Format("2006010215"))
}

// RecordOrder increments the current hour's counter for an item.
func (c *Client) RecordOrder(ctx context.Context, itemID string, at time.Time) error {
	key := velocityKey(itemID, at.Truncate(time.Hour))

	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, velocityBucketTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record order velocity: %w", err)
	}
	return nil
}

// OrdersLast24h sums the item's hourly counters over the trailing 24
// hours ending at now.
func (c *Client) OrdersLast24h(ctx context.Context, itemID string, now time.Time) (int, error) {
	keys := make([]string, 0, 25)
	bucket := now.Truncate(time.Hour)
	for i := 0; i < 25; i++ {
		keys = append(keys, velocityKey(itemID, bucket))
		bucket = bucket.Add(-time.Hour)
	}

	values, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read order velocity: %w", err)
	}

	total := 0
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(s, "%d", &n); err == nil {
			total += n
		}
	}
	return total, nil
}
