package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/vietddude/storefront/internal/core/clock"
	"github.com/vietddude/storefront/internal/core/config"
	"github.com/vietddude/storefront/internal/core/domain"
	"github.com/vietddude/storefront/internal/infra/storage/memory"
)

type fixedVelocity int

func (v fixedVelocity) OrdersLast24h(ctx context.Context, itemID string, now time.Time) (int, error) {
	return int(v), nil
}

func demandConfig() config.DemandConfig {
	return config.DemandConfig{
		CartWeight:     2.0,
		VelocityWeight: 1.0,
		StockWeight:    0.5,
		HighPercentile: 0.75,
		LowScore:       1.0,
		BaselineWindow: 64,
	}
}

func newTestCalculator(t *testing.T, stock, velocity int) (*Calculator, *Tracker) {
	t.Helper()
	store := memory.NewMemoryStorage()
	store.SeedItem(item("burger", stock))
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	tracker := NewTracker(memory.NewInventoryStore(store), clk, time.Minute)
	return NewCalculator(tracker, fixedVelocity(velocity), clk, demandConfig()), tracker
}

func TestSnapshot_ScoreIsWeightedSum(t *testing.T) {
	calc, tracker := newTestCalculator(t, 10, 4)
	ctx := context.Background()

	for _, session := range []string{"a", "b", "c"} {
		if err := tracker.Reserve(ctx, session, "burger", 1); err != nil {
			t.Fatalf("Reserve failed: %v", err)
		}
	}

	snap, err := calc.Snapshot(ctx, "burger")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	// 2.0*3 carts + 1.0*4 orders - 0.5*7 available = 6.5
	if snap.DemandScore != 6.5 {
		t.Errorf("Expected score 6.5, got %f", snap.DemandScore)
	}
	if snap.ActiveCartCount != 3 {
		t.Errorf("Expected 3 active carts, got %d", snap.ActiveCartCount)
	}
	if snap.AvailableStock != 7 {
		t.Errorf("Expected 7 available, got %d", snap.AvailableStock)
	}
}

func TestSnapshot_ScoreClampsAtZero(t *testing.T) {
	calc, _ := newTestCalculator(t, 100, 0)

	snap, err := calc.Snapshot(context.Background(), "burger")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.DemandScore != 0 {
		t.Errorf("Expected clamped score 0, got %f", snap.DemandScore)
	}
	if snap.UrgencyTier != domain.UrgencyNone {
		t.Errorf("Expected tier none, got %s", snap.UrgencyTier)
	}
}

func TestSnapshot_CriticalWhenSoldOut(t *testing.T) {
	calc, tracker := newTestCalculator(t, 2, 0)
	ctx := context.Background()

	if err := tracker.Reserve(ctx, "a", "burger", 2); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	snap, err := calc.Snapshot(ctx, "burger")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.AvailableStock != 0 {
		t.Fatalf("Expected 0 available, got %d", snap.AvailableStock)
	}
	if snap.UrgencyTier != domain.UrgencyCritical {
		t.Errorf("Expected critical tier, got %s", snap.UrgencyTier)
	}
}

func TestSnapshot_HighWhenCartsCoverStock(t *testing.T) {
	calc, tracker := newTestCalculator(t, 3, 0)
	ctx := context.Background()

	// Two carts hold one each; 1 left, 2 active carts.
	if err := tracker.Reserve(ctx, "a", "burger", 1); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if err := tracker.Reserve(ctx, "b", "burger", 1); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	snap, err := calc.Snapshot(ctx, "burger")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.UrgencyTier != domain.UrgencyHigh {
		t.Errorf("Expected high tier, got %s", snap.UrgencyTier)
	}
}

func TestSnapshot_UnboundedNeverExceedsLow(t *testing.T) {
	store := memory.NewMemoryStorage()
	store.SeedItem(item("soda", domain.UnboundedInventory))
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	tracker := NewTracker(memory.NewInventoryStore(store), clk, time.Minute)
	calc := NewCalculator(tracker, fixedVelocity(50), clk, demandConfig())

	if err := tracker.Reserve(context.Background(), "a", "soda", 5); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	snap, err := calc.Snapshot(context.Background(), "soda")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.AvailableStock != domain.UnboundedInventory {
		t.Errorf("Expected unbounded sentinel, got %d", snap.AvailableStock)
	}
	if snap.UrgencyTier == domain.UrgencyCritical {
		t.Errorf("Unbounded item must never be critical")
	}
}

func TestBaseline_PercentileWindow(t *testing.T) {
	b := newBaseline(16)

	// Not enough samples: no high-water mark yet.
	for i := 0; i < 4; i++ {
		b.record(float64(i))
	}
	if got := b.percentile(0.75); got != 0 {
		t.Errorf("Expected 0 before window fills, got %f", got)
	}

	for i := 4; i < 16; i++ {
		b.record(float64(i))
	}
	got := b.percentile(0.75)
	if got < 10 || got > 12 {
		t.Errorf("Expected p75 near 11, got %f", got)
	}
}
