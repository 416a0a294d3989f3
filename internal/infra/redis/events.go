package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/storefront/internal/core/domain"
)

const eventQueueKey = "order_events"

// PushEvent enqueues an order event as JSON for the external
// notification dispatcher.
func (c *Client) PushEvent(ctx context.Context, event *domain.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	if err := c.rdb.LPush(ctx, eventQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("lpush failed: %w", err)
	}
	return nil
}

// PopEvent pops the oldest pending order event. Returns nil when the
// queue is empty. Used by the admin requeue tool.
func (c *Client) PopEvent(ctx context.Context) (*domain.OrderEvent, error) {
	payload, err := c.rdb.RPop(ctx, eventQueueKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("rpop failed: %w", err)
	}

	var event domain.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("invalid event payload: %w", err)
	}
	return &event, nil
}

// QueueDepth returns the number of pending order events.
func (c *Client) QueueDepth(ctx context.Context) (int64, error) {
	return c.rdb.LLen(ctx, eventQueueKey).Result()
}
