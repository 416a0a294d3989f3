// Package reservation implements soft, time-bounded stock holds shared
// across concurrently shopping cart sessions.
package reservation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/storefront/internal/core/apperr"
	"github.com/vietddude/storefront/internal/core/clock"
	"github.com/vietddude/storefront/internal/core/domain"
	"github.com/vietddude/storefront/internal/infra/storage"
	"github.com/vietddude/storefront/internal/metrics"
)

// Tracker owns the soft reservation ledger. Raw inventory is never
// mutated here; the tracker only layers expiring holds on top of the
// durable store's numbers.
//
// Holds for one item are mutated under that item's lock, so two
// concurrent Reserve calls for the last unit serialize and exactly one
// observes insufficient stock.
type Tracker struct {
	inventory storage.InventoryStore
	clk       clock.Clock
	ttl       time.Duration

	mu    sync.RWMutex
	items map[string]*itemHolds
}

type itemHolds struct {
	mu    sync.Mutex
	holds map[string]*domain.Reservation // keyed by session
}

// NewTracker creates a tracker with the given hold TTL.
func NewTracker(inventory storage.InventoryStore, clk clock.Clock, ttl time.Duration) *Tracker {
	return &Tracker{
		inventory: inventory,
		clk:       clk,
		ttl:       ttl,
		items:     make(map[string]*itemHolds),
	}
}

// TTL returns the configured hold lifetime.
func (t *Tracker) TTL() time.Duration {
	return t.ttl
}

// Reserve creates or adjusts the session's hold on an item so it
// covers quantity units, failing with an insufficient-stock error when
// the item cannot cover the request on top of other sessions' active
// holds. Unbounded-inventory items never fail the check. The hold's
// expiry is reset on every successful call.
func (t *Tracker) Reserve(ctx context.Context, sessionID, itemID string, quantity int) error {
	if quantity <= 0 {
		return apperr.Validation("quantity", "must be a positive integer")
	}

	h := t.forItem(itemID)
	h.mu.Lock()
	defer h.mu.Unlock()

	// Availability is computed under the item lock so no reserve can
	// read a snapshot that predates a concurrent mutation.
	raw, err := t.inventory.GetRawInventory(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to read inventory for %s: %w", itemID, err)
	}

	now := t.clk.Now()
	h.dropExpired(now)

	if raw != domain.UnboundedInventory {
		reservedByOthers := 0
		for session, r := range h.holds {
			if session != sessionID {
				reservedByOthers += r.Quantity
			}
		}
		available := domain.StockWithReservations(raw, reservedByOthers)
		if quantity > available {
			metrics.ReservationsRejected.WithLabelValues(itemID).Inc()
			return apperr.InsufficientStock(itemID, quantity, available)
		}
	}

	if existing, ok := h.holds[sessionID]; ok {
		existing.Quantity = quantity
		existing.ExpiresAt = now.Add(t.ttl)
	} else {
		h.holds[sessionID] = &domain.Reservation{
			SessionID: sessionID,
			ItemID:    itemID,
			Quantity:  quantity,
			CreatedAt: now,
			ExpiresAt: now.Add(t.ttl),
		}
	}
	metrics.ReservationsActive.WithLabelValues(itemID).Set(float64(len(h.holds)))
	return nil
}

// Release removes the session's hold on an item. Idempotent; a missing
// hold is a no-op.
func (t *Tracker) Release(sessionID, itemID string) {
	h, ok := t.lookup(itemID)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.holds, sessionID)
	metrics.ReservationsActive.WithLabelValues(itemID).Set(float64(len(h.holds)))
}

// Renew resets the hold's expiry to now+TTL. Called on cart view or
// heartbeat so an actively shopped cart keeps its hold through
// checkout. A missing or already expired hold is a no-op.
func (t *Tracker) Renew(sessionID, itemID string) {
	h, ok := t.lookup(itemID)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	now := t.clk.Now()
	r, ok := h.holds[sessionID]
	if !ok || r.Expired(now) {
		return
	}
	r.ExpiresAt = now.Add(t.ttl)
}

// ReleaseSession drops every hold owned by a session (cart abandoned
// or its order finalized).
func (t *Tracker) ReleaseSession(sessionID string) {
	for _, itemID := range t.itemIDs() {
		t.Release(sessionID, itemID)
	}
}

// SweepExpired removes all lapsed holds and returns how many were
// dropped. Safe to call concurrently with reserve/release.
func (t *Tracker) SweepExpired() int {
	now := t.clk.Now()
	removed := 0
	for _, itemID := range t.itemIDs() {
		h, ok := t.lookup(itemID)
		if !ok {
			continue
		}
		h.mu.Lock()
		n := h.dropExpired(now)
		metrics.ReservationsActive.WithLabelValues(itemID).Set(float64(len(h.holds)))
		h.mu.Unlock()
		removed += n
	}
	if removed > 0 {
		metrics.ReservationsExpired.Add(float64(removed))
	}
	return removed
}

// ActiveQuantity returns the total quantity currently held on an item
// across sessions, ignoring lapsed holds.
func (t *Tracker) ActiveQuantity(itemID string) int {
	h, ok := t.lookup(itemID)
	if !ok {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	now := t.clk.Now()
	total := 0
	for _, r := range h.holds {
		if !r.Expired(now) {
			total += r.Quantity
		}
	}
	return total
}

// ActiveCartCount returns how many distinct sessions currently hold
// the item.
func (t *Tracker) ActiveCartCount(itemID string) int {
	h, ok := t.lookup(itemID)
	if !ok {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	now := t.clk.Now()
	count := 0
	for _, r := range h.holds {
		if !r.Expired(now) {
			count++
		}
	}
	return count
}

// Available returns the item's current availability after active
// holds, or domain.UnboundedInventory for untracked items.
func (t *Tracker) Available(ctx context.Context, itemID string) (int, error) {
	raw, err := t.inventory.GetRawInventory(ctx, itemID)
	if err != nil {
		return 0, fmt.Errorf("failed to read inventory for %s: %w", itemID, err)
	}
	return domain.StockWithReservations(raw, t.ActiveQuantity(itemID)), nil
}

func (t *Tracker) forItem(itemID string) *itemHolds {
	t.mu.RLock()
	h, ok := t.items[itemID]
	t.mu.RUnlock()
	if ok {
		return h
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if h, ok := t.items[itemID]; ok {
		return h
	}
	h = &itemHolds{holds: make(map[string]*domain.Reservation)}
	t.items[itemID] = h
	return h
}

func (t *Tracker) lookup(itemID string) (*itemHolds, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.items[itemID]
	return h, ok
}

func (t *Tracker) itemIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.items))
	for id := range t.items {
		ids = append(ids, id)
	}
	return ids
}

// dropExpired removes lapsed holds. Caller holds h.mu.
func (h *itemHolds) dropExpired(now time.Time) int {
	removed := 0
	for session, r := range h.holds {
		if r.Expired(now) {
			delete(h.holds, session)
			removed++
		}
	}
	return removed
}
