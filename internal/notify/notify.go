// Package notify hands order lifecycle events to the external
// notification dispatcher (email/SMS). Delivery is fire-and-forget: a
// failed dispatch is logged and dropped, never propagated back into
// the triggering transition.
package notify

import (
	"context"
	"log/slog"

	"github.com/vietddude/storefront/internal/core/domain"
	redisclient "github.com/vietddude/storefront/internal/infra/redis"
)

// Dispatcher enqueues an order event for delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, event *domain.OrderEvent) error
}

// RedisDispatcher pushes events onto the Redis order-events queue
// consumed by the external notification service.
type RedisDispatcher struct {
	client *redisclient.Client
}

func NewRedisDispatcher(client *redisclient.Client) *RedisDispatcher {
	return &RedisDispatcher{client: client}
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, event *domain.OrderEvent) error {
	return d.client.PushEvent(ctx, event)
}

// LogDispatcher only logs events. Used in memory mode and tests.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(ctx context.Context, event *domain.OrderEvent) error {
	slog.Info("Order event",
		"type", event.EventType,
		"order_id", event.OrderID,
		"order_number", event.OrderNumber,
	)
	return nil
}
