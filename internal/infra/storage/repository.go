package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/storefront/internal/core/domain"
)

var (
	// ErrOrderNotFound is returned when an order doesn't exist
	ErrOrderNotFound = errors.New("order not found")

	// ErrItemNotFound is returned when a menu item doesn't exist
	ErrItemNotFound = errors.New("menu item not found")
)

// InventoryStore handles durable raw-inventory operations. Raw
// inventory is only ever mutated through the atomic operations here;
// the reservation tracker keeps its own soft ledger on top.
type InventoryStore interface {
	// GetMenuItem retrieves a menu item by id
	GetMenuItem(ctx context.Context, itemID string) (*domain.MenuItem, error)

	// GetRawInventory retrieves current raw stock for an item.
	// Returns domain.UnboundedInventory for untracked items.
	GetRawInventory(ctx context.Context, itemID string) (int, error)

	// DecrementIfAvailable atomically decrements raw stock by qty if
	// at least qty remains. Returns false (and leaves stock untouched)
	// otherwise. Always succeeds for unbounded items.
	DecrementIfAvailable(ctx context.Context, itemID string, qty int) (bool, error)

	// Increment atomically adds qty back to raw stock (cancellation
	// refund). No-op for unbounded items.
	Increment(ctx context.Context, itemID string, qty int) error
}

// OrderRepository handles order persistence.
type OrderRepository interface {
	// Create persists a new order
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by id
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)

	// Update rewrites the order's item set and pricing (only legal
	// while the order is still pending)
	Update(ctx context.Context, order *domain.Order) error

	// UpdateStatus records a status transition and its timestamp
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, at time.Time) error

	// ListPendingBefore retrieves pending orders whose grace period
	// expired at or before the cutoff (auto-finalize scan)
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*domain.Order, error)

	// CountItemOrdersSince counts orders containing an item created
	// at or after since (order-velocity fallback when Redis is absent)
	CountItemOrdersSince(ctx context.Context, itemID string, since time.Time) (int, error)
}
