// Package order implements the grace-period state machine governing an
// order from creation through confirmation, kitchen progress, and the
// customer cancellation window.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/storefront/internal/core/apperr"
	"github.com/vietddude/storefront/internal/core/clock"
	"github.com/vietddude/storefront/internal/core/config"
	"github.com/vietddude/storefront/internal/core/domain"
	"github.com/vietddude/storefront/internal/infra/storage"
	"github.com/vietddude/storefront/internal/metrics"
	"github.com/vietddude/storefront/internal/notify"
	"github.com/vietddude/storefront/internal/reservation"
)

// FinalizeTrigger labels what drove a finalize transition.
type FinalizeTrigger string

const (
	TriggerExplicit FinalizeTrigger = "explicit"
	TriggerAuto     FinalizeTrigger = "auto"
)

// VelocityRecorder feeds the demand-pressure order counters. Optional.
type VelocityRecorder interface {
	RecordOrder(ctx context.Context, itemID string, at time.Time) error
}

// Machine drives order lifecycle transitions. All mutations of one
// order are serialized under a per-order lock, so a finalize and a
// cancel racing for the same order have exactly one winner and the
// loser observes the post-transition state.
type Machine struct {
	orders    storage.OrderRepository
	inventory storage.InventoryStore
	tracker   *reservation.Tracker
	notifier  notify.Dispatcher
	velocity  VelocityRecorder // may be nil
	clk       clock.Clock
	cfg       config.OrderConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMachine creates the order state machine.
func NewMachine(
	orders storage.OrderRepository,
	inventory storage.InventoryStore,
	tracker *reservation.Tracker,
	notifier notify.Dispatcher,
	velocity VelocityRecorder,
	clk clock.Clock,
	cfg config.OrderConfig,
) *Machine {
	return &Machine{
		orders:    orders,
		inventory: inventory,
		tracker:   tracker,
		notifier:  notifier,
		velocity:  velocity,
		clk:       clk,
		cfg:       cfg,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Admit registers a freshly submitted order with the state machine.
// The order enters PENDING_CONFIRMATION and its grace-period and
// cancellation-window deadlines are stamped from the authoritative
// creation time, never from a client-reported remainder.
func (m *Machine) Admit(ctx context.Context, order *domain.Order) error {
	if order.ID == "" {
		return apperr.Validation("id", "order id is required")
	}
	if len(order.Items) == 0 {
		return apperr.Validation("items", "order must contain at least one item")
	}

	if order.CreatedAt.IsZero() {
		order.CreatedAt = m.clk.Now()
	}
	order.Status = domain.OrderStatusPendingConfirmation
	order.GracePeriodExpiresAt = order.CreatedAt.Add(m.cfg.GracePeriod)
	order.CancelWindowEndsAt = order.CreatedAt.Add(m.cfg.CancelWindow)

	if err := m.orders.Create(ctx, order); err != nil {
		return fmt.Errorf("failed to persist order %s: %w", order.ID, err)
	}
	return nil
}

// ModifyItems replaces the order's item set while it is still inside
// the grace period, re-running reservation adjustments and recomputing
// pricing. Rejected once the grace period has expired or the order has
// left PENDING_CONFIRMATION.
func (m *Machine) ModifyItems(
	ctx context.Context,
	orderID string,
	items []domain.LineItem,
	discountCents, tipCents int64,
) error {
	lock := m.lockFor(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := m.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", orderID, err)
	}

	now := m.clk.Now()
	if order.Status != domain.OrderStatusPendingConfirmation {
		return apperr.Permanent(fmt.Sprintf("order %s is %s and no longer modifiable", orderID, order.Status))
	}
	if !now.Before(order.GracePeriodExpiresAt) {
		return apperr.Permanent(fmt.Sprintf("grace period for order %s has expired", orderID))
	}
	if len(items) == 0 {
		return apperr.Validation("items", "order must contain at least one item")
	}
	for _, li := range items {
		item, err := m.inventory.GetMenuItem(ctx, li.ItemID)
		if errors.Is(err, storage.ErrItemNotFound) {
			return apperr.Validation("items", fmt.Sprintf("unknown item %s", li.ItemID))
		}
		if err != nil {
			return fmt.Errorf("failed to load item %s: %w", li.ItemID, err)
		}
		if !item.Available {
			return apperr.Validation("items", fmt.Sprintf("item %s is not available", li.ItemID))
		}
	}

	if err := m.adjustReservations(ctx, order, items); err != nil {
		return err
	}

	order.Items = items
	order.Pricing = ComputePricing(items, m.cfg, discountCents, tipCents)
	if err := m.orders.Update(ctx, order); err != nil {
		return fmt.Errorf("failed to update order %s: %w", orderID, err)
	}
	return nil
}

// adjustReservations moves the session's holds from the order's
// current item set to the new one. On failure the already-adjusted
// holds are restored so a rejected modification leaves the ledger as
// it was.
func (m *Machine) adjustReservations(
	ctx context.Context,
	order *domain.Order,
	items []domain.LineItem,
) error {
	adjusted := make([]domain.LineItem, 0, len(items))
	for _, li := range items {
		if li.Quantity == order.Quantity(li.ItemID) {
			continue
		}
		if err := m.tracker.Reserve(ctx, order.SessionID, li.ItemID, li.Quantity); err != nil {
			for _, prev := range adjusted {
				if q := order.Quantity(prev.ItemID); q > 0 {
					_ = m.tracker.Reserve(ctx, order.SessionID, prev.ItemID, q)
				} else {
					m.tracker.Release(order.SessionID, prev.ItemID)
				}
			}
			return err
		}
		adjusted = append(adjusted, li)
	}

	// Drop holds for items no longer in the order.
	for _, old := range order.Items {
		still := false
		for _, li := range items {
			if li.ItemID == old.ItemID {
				still = true
				break
			}
		}
		if !still {
			m.tracker.Release(order.SessionID, old.ItemID)
		}
	}
	return nil
}

// Finalize commits a pending order into CONFIRMED: every soft hold is
// converted into a permanent stock decrement on the durable store and
// released. Idempotent: finalizing an already confirmed order is a
// no-op. The explicit call and the grace-period expiry drive the same
// transition and are serialized by the order lock.
func (m *Machine) Finalize(ctx context.Context, orderID string, trigger FinalizeTrigger) error {
	lock := m.lockFor(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := m.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", orderID, err)
	}

	switch order.Status {
	case domain.OrderStatusPendingConfirmation:
		// proceed
	case domain.OrderStatusConfirmed:
		return nil // already finalized
	default:
		return apperr.Permanent(fmt.Sprintf("order %s is %s and cannot be finalized", orderID, order.Status))
	}

	if err := m.commitStock(ctx, order); err != nil {
		return err
	}

	now := m.clk.Now()
	if err := m.orders.UpdateStatus(ctx, orderID, domain.OrderStatusConfirmed, now); err != nil {
		// The order is still pending; put the stock back so the next
		// finalize attempt does not decrement twice.
		m.uncommitStock(ctx, orderID, order.Items)
		return fmt.Errorf("failed to confirm order %s: %w", orderID, err)
	}

	// The transition is durable; only now do the holds come off.
	m.tracker.ReleaseSession(order.SessionID)

	metrics.OrdersFinalized.WithLabelValues(string(trigger)).Inc()
	m.recordVelocity(order, now)
	m.emit(order, domain.OrderEventConfirmed, "")
	return nil
}

// commitStock decrements raw inventory for every line item. If one
// decrement is refused the earlier ones are rolled back so stock is
// neither created nor destroyed by a failed finalize.
func (m *Machine) commitStock(ctx context.Context, order *domain.Order) error {
	committed := make([]domain.LineItem, 0, len(order.Items))
	for _, li := range order.Items {
		ok, err := m.inventory.DecrementIfAvailable(ctx, li.ItemID, li.Quantity)
		if err == nil && !ok {
			err = apperr.InsufficientStock(li.ItemID, li.Quantity, 0)
		}
		if err != nil {
			m.uncommitStock(ctx, order.ID, committed)
			return fmt.Errorf("failed to commit stock for order %s: %w", order.ID, err)
		}
		committed = append(committed, li)
	}
	return nil
}

// uncommitStock puts committed decrements back. Best effort; failures
// are logged because there is no further fallback.
func (m *Machine) uncommitStock(ctx context.Context, orderID string, items []domain.LineItem) {
	for _, li := range items {
		if err := m.inventory.Increment(ctx, li.ItemID, li.Quantity); err != nil {
			slog.Error("Failed to restore committed stock",
				"order_id", orderID, "item", li.ItemID, "error", err)
		}
	}
}

// refundStock returns a confirmed order's committed stock to
// inventory. If one increment fails the earlier ones are taken back so
// a retried cancellation does not mint stock.
func (m *Machine) refundStock(ctx context.Context, order *domain.Order) error {
	refunded := make([]domain.LineItem, 0, len(order.Items))
	for _, li := range order.Items {
		if err := m.inventory.Increment(ctx, li.ItemID, li.Quantity); err != nil {
			m.redeductStock(ctx, order.ID, refunded)
			return fmt.Errorf("failed to refund stock for order %s: %w", order.ID, err)
		}
		refunded = append(refunded, li)
	}
	return nil
}

// redeductStock re-commits refunded stock after a cancellation failed
// to persist. Best effort.
func (m *Machine) redeductStock(ctx context.Context, orderID string, items []domain.LineItem) {
	for _, li := range items {
		ok, err := m.inventory.DecrementIfAvailable(ctx, li.ItemID, li.Quantity)
		if err != nil || !ok {
			slog.Error("Failed to re-deduct refunded stock",
				"order_id", orderID, "item", li.ItemID, "decremented", ok, "error", err)
		}
	}
}

// Cancel performs a customer-initiated cancellation. Allowed from any
// non-terminal state inside the cancellation window as long as the
// kitchen has not started preparing; past either gate the rejection is
// permanent so clients do not retry it. Uncommitted holds are
// released; stock already committed by finalize is incremented back.
func (m *Machine) Cancel(ctx context.Context, orderID, reason string) error {
	lock := m.lockFor(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := m.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", orderID, err)
	}

	if order.Status.IsTerminal() {
		return apperr.Permanent(fmt.Sprintf("order %s is already %s", orderID, order.Status))
	}
	if !order.PreparingAt.IsZero() {
		return apperr.Permanent(fmt.Sprintf("order %s is being prepared and can no longer be cancelled", orderID))
	}

	now := m.clk.Now()
	if now.After(order.CancelWindowEndsAt) {
		return apperr.Permanent(fmt.Sprintf("cancellation window for order %s has closed", orderID))
	}

	// Finalize already decremented confirmed orders; pending ones hold
	// only soft reservations, released after the write lands.
	if order.Status == domain.OrderStatusConfirmed {
		if err := m.refundStock(ctx, order); err != nil {
			return err
		}
	}

	order.CancelReason = reason
	err = m.orders.Update(ctx, order)
	if err == nil {
		err = m.orders.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled, now)
	}
	if err != nil {
		// A refunded order is still confirmed; take the refund back
		// so the next cancel attempt does not increment twice.
		if order.Status == domain.OrderStatusConfirmed {
			m.redeductStock(ctx, orderID, order.Items)
		}
		return fmt.Errorf("failed to cancel order %s: %w", orderID, err)
	}

	m.tracker.ReleaseSession(order.SessionID)

	metrics.OrdersCancelled.Inc()
	m.emit(order, domain.OrderEventCancelled, reason)
	return nil
}

// MarkPreparing records that the kitchen started cooking. From here on
// customer cancellation is refused.
func (m *Machine) MarkPreparing(ctx context.Context, orderID string) error {
	return m.advance(ctx, orderID, domain.OrderStatusPreparing)
}

// MarkReady records that the order is plated and ready.
func (m *Machine) MarkReady(ctx context.Context, orderID string) error {
	return m.advance(ctx, orderID, domain.OrderStatusReady)
}

// MarkOutForDelivery records hand-off to the courier.
func (m *Machine) MarkOutForDelivery(ctx context.Context, orderID string) error {
	return m.advance(ctx, orderID, domain.OrderStatusOutForDelivery)
}

// MarkDelivered records the terminal delivered state.
func (m *Machine) MarkDelivered(ctx context.Context, orderID string) error {
	return m.advance(ctx, orderID, domain.OrderStatusDelivered)
}

// advance performs a forward-only kitchen transition, recording its
// timestamp exactly once.
func (m *Machine) advance(ctx context.Context, orderID string, to domain.OrderStatus) error {
	lock := m.lockFor(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := m.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", orderID, err)
	}

	if !domain.CanTransition(order.Status, to) {
		return apperr.Permanent(fmt.Sprintf("order %s cannot move from %s to %s", orderID, order.Status, to))
	}

	if err := m.orders.UpdateStatus(ctx, orderID, to, m.clk.Now()); err != nil {
		return fmt.Errorf("failed to advance order %s: %w", orderID, err)
	}
	return nil
}

// TimeRemaining reports how much of the grace period and cancellation
// window is left, computed from the stored deadlines. Both clamp at
// zero; the cancel remainder is zero once preparing has started or the
// order is terminal.
func (m *Machine) TimeRemaining(ctx context.Context, orderID string) (grace, cancel time.Duration, err error) {
	order, err := m.orders.GetByID(ctx, orderID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}

	now := m.clk.Now()
	if order.Status == domain.OrderStatusPendingConfirmation {
		grace = order.GracePeriodExpiresAt.Sub(now)
	}
	if !order.Status.IsTerminal() && order.PreparingAt.IsZero() {
		cancel = order.CancelWindowEndsAt.Sub(now)
	}
	if grace < 0 {
		grace = 0
	}
	if cancel < 0 {
		cancel = 0
	}
	return grace, cancel, nil
}

func (m *Machine) recordVelocity(order *domain.Order, at time.Time) {
	if m.velocity == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, li := range order.Items {
			if err := m.velocity.RecordOrder(ctx, li.ItemID, at); err != nil {
				slog.Warn("Failed to record order velocity", "item", li.ItemID, "error", err)
			}
		}
	}()
}

// emit dispatches the lifecycle event without blocking the
// transition.
func (m *Machine) emit(order *domain.Order, eventType domain.OrderEventType, reason string) {
	if m.notifier == nil {
		return
	}
	event := &domain.OrderEvent{
		EventType:   eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Customer:    order.Customer,
		Reason:      reason,
		EmittedAt:   m.clk.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.notifier.Dispatch(ctx, event); err != nil {
			metrics.NotifyFailures.Inc()
			slog.Warn("Failed to dispatch order event",
				"order_id", order.ID, "type", eventType, "error", err)
		}
	}()
}

func (m *Machine) lockFor(orderID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[orderID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[orderID] = lock
	}
	return lock
}
