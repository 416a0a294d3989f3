package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/storefront/internal/core/domain"
	"github.com/vietddude/storefront/internal/infra/storage"
)

// MemoryStorage backs the repositories when no database is configured
// and in tests.
type MemoryStorage struct {
	items  map[string]*domain.MenuItem
	orders map[string]*domain.Order
	mu     sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		items:  make(map[string]*domain.MenuItem),
		orders: make(map[string]*domain.Order),
	}
}

// SeedItem installs a menu item. Test and memory-mode setup helper.
func (s *MemoryStorage) SeedItem(item *domain.MenuItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *item
	s.items[item.ID] = &copied
}

// -----------------------------------------------------------------------------
// Inventory Store
// -----------------------------------------------------------------------------

type InventoryStore struct {
	store *MemoryStorage
}

func NewInventoryStore(store *MemoryStorage) *InventoryStore {
	return &InventoryStore{store: store}
}

func (r *InventoryStore) GetMenuItem(ctx context.Context, itemID string) (*domain.MenuItem, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	item, ok := r.store.items[itemID]
	if !ok {
		return nil, storage.ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (r *InventoryStore) GetRawInventory(ctx context.Context, itemID string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	item, ok := r.store.items[itemID]
	if !ok {
		return 0, storage.ErrItemNotFound
	}
	return item.RawInventory, nil
}

func (r *InventoryStore) DecrementIfAvailable(ctx context.Context, itemID string, qty int) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	item, ok := r.store.items[itemID]
	if !ok {
		return false, storage.ErrItemNotFound
	}
	if item.Unbounded() {
		return true, nil
	}
	if item.RawInventory < qty {
		return false, nil
	}
	item.RawInventory -= qty
	return true, nil
}

func (r *InventoryStore) Increment(ctx context.Context, itemID string, qty int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	item, ok := r.store.items[itemID]
	if !ok {
		return storage.ErrItemNotFound
	}
	if item.Unbounded() {
		return nil
	}
	item.RawInventory += qty
	return nil
}

// -----------------------------------------------------------------------------
// Order Repository
// -----------------------------------------------------------------------------

type OrderRepo struct {
	store *MemoryStorage
}

func NewOrderRepo(store *MemoryStorage) *OrderRepo {
	return &OrderRepo{store: store}
}

func (r *OrderRepo) Create(ctx context.Context, order *domain.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := cloneOrder(order)
	r.store.orders[order.ID] = copied
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	order, ok := r.store.orders[orderID]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (r *OrderRepo) Update(ctx context.Context, order *domain.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.orders[order.ID]; !ok {
		return storage.ErrOrderNotFound
	}
	r.store.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *OrderRepo) UpdateStatus(
	ctx context.Context,
	orderID string,
	status domain.OrderStatus,
	at time.Time,
) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	order, ok := r.store.orders[orderID]
	if !ok {
		return storage.ErrOrderNotFound
	}
	order.Status = status
	switch status {
	case domain.OrderStatusConfirmed:
		order.ConfirmedAt = at
	case domain.OrderStatusPreparing:
		order.PreparingAt = at
	case domain.OrderStatusReady:
		order.ReadyAt = at
	case domain.OrderStatusDelivered:
		order.DeliveredAt = at
	case domain.OrderStatusCancelled:
		order.CancelledAt = at
	}
	return nil
}

func (r *OrderRepo) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var pending []*domain.Order
	for _, order := range r.store.orders {
		if order.Status == domain.OrderStatusPendingConfirmation &&
			!order.GracePeriodExpiresAt.After(cutoff) {
			pending = append(pending, cloneOrder(order))
		}
	}
	return pending, nil
}

func (r *OrderRepo) CountItemOrdersSince(
	ctx context.Context,
	itemID string,
	since time.Time,
) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	count := 0
	for _, order := range r.store.orders {
		if order.CreatedAt.Before(since) || order.Status == domain.OrderStatusCancelled {
			continue
		}
		if order.Quantity(itemID) > 0 {
			count++
		}
	}
	return count, nil
}

func cloneOrder(order *domain.Order) *domain.Order {
	copied := *order
	copied.Items = make([]domain.LineItem, len(order.Items))
	copy(copied.Items, order.Items)
	return &copied
}
