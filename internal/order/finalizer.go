package order

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/storefront/internal/core/clock"
	"github.com/vietddude/storefront/internal/infra/storage"
)

// Finalizer auto-confirms pending orders whose grace period has
// expired. The scan re-validates each deadline server-side; the
// finalize itself goes through the same serialized transition as an
// explicit call, so racing against one is harmless.
type Finalizer struct {
	machine  *Machine
	orders   storage.OrderRepository
	clk      clock.Clock
	interval time.Duration
}

// NewFinalizer creates the auto-finalize worker.
func NewFinalizer(
	machine *Machine,
	orders storage.OrderRepository,
	clk clock.Clock,
	interval time.Duration,
) *Finalizer {
	return &Finalizer{machine: machine, orders: orders, clk: clk, interval: interval}
}

// Start runs the scan loop until the context is cancelled.
func (f *Finalizer) Start(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Tick(ctx)
		}
	}
}

// Tick runs one scan pass. Exposed for the admin CLI and tests.
func (f *Finalizer) Tick(ctx context.Context) {
	expired, err := f.orders.ListPendingBefore(ctx, f.clk.Now())
	if err != nil {
		slog.Error("Failed to scan for expired pending orders", "error", err)
		return
	}

	for _, order := range expired {
		if err := f.machine.Finalize(ctx, order.ID, TriggerAuto); err != nil {
			// A concurrent cancel may have won the race; that's fine.
			slog.Warn("Auto-finalize failed", "order_id", order.ID, "error", err)
		}
	}
}
