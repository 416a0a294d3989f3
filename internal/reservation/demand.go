package reservation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/storefront/internal/core/clock"
	"github.com/vietddude/storefront/internal/core/config"
	"github.com/vietddude/storefront/internal/core/domain"
	"github.com/vietddude/storefront/internal/infra/storage"
)

// Velocity reports recent order counts for an item. Backed by Redis
// hourly counters in production, by the order repository otherwise.
type Velocity interface {
	OrdersLast24h(ctx context.Context, itemID string, now time.Time) (int, error)
}

// RepoVelocity derives order velocity from the order repository when
// no Redis client is configured.
type RepoVelocity struct {
	Orders storage.OrderRepository
}

func (v RepoVelocity) OrdersLast24h(ctx context.Context, itemID string, now time.Time) (int, error) {
	return v.Orders.CountItemOrdersSince(ctx, itemID, now.Add(-24*time.Hour))
}

// Calculator computes demand pressure for items. Score weights and
// urgency thresholds come from configuration.
type Calculator struct {
	tracker  *Tracker
	velocity Velocity
	clk      clock.Clock
	cfg      config.DemandConfig

	baseline *baseline
}

// NewCalculator creates a demand calculator.
func NewCalculator(tracker *Tracker, velocity Velocity, clk clock.Clock, cfg config.DemandConfig) *Calculator {
	return &Calculator{
		tracker:  tracker,
		velocity: velocity,
		clk:      clk,
		cfg:      cfg,
		baseline: newBaseline(cfg.BaselineWindow),
	}
}

// Snapshot returns the current demand pressure for an item.
//
// demandScore = w1*activeCartCount + w2*ordersLast24h - w3*availableStock,
// clamped at zero. Unbounded-inventory items skip the stock term and
// never exceed the low tier.
func (c *Calculator) Snapshot(ctx context.Context, itemID string) (*domain.DemandSnapshot, error) {
	activeCarts := c.tracker.ActiveCartCount(itemID)

	orders24h, err := c.velocity.OrdersLast24h(ctx, itemID, c.clk.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to read order velocity for %s: %w", itemID, err)
	}

	available, err := c.tracker.Available(ctx, itemID)
	if err != nil {
		return nil, err
	}

	score := c.cfg.CartWeight*float64(activeCarts) + c.cfg.VelocityWeight*float64(orders24h)
	if available != domain.UnboundedInventory {
		score -= c.cfg.StockWeight * float64(available)
	}
	if score < 0 {
		score = 0
	}

	highWater := c.baseline.percentile(c.cfg.HighPercentile)
	c.baseline.record(score)

	return &domain.DemandSnapshot{
		ItemID:          itemID,
		DemandScore:     score,
		ActiveCartCount: activeCarts,
		OrdersLast24h:   orders24h,
		AvailableStock:  available,
		UrgencyTier:     c.tier(score, available, activeCarts, highWater),
	}, nil
}

func (c *Calculator) tier(score float64, available, activeCarts int, highWater float64) domain.UrgencyTier {
	bounded := available != domain.UnboundedInventory

	if bounded && available == 0 {
		return domain.UrgencyCritical
	}
	if bounded && activeCarts > 0 && available <= activeCarts {
		return domain.UrgencyHigh
	}
	if highWater > 0 && score > highWater {
		return domain.UrgencyHigh
	}
	if score >= c.cfg.LowScore {
		return domain.UrgencyLow
	}
	return domain.UrgencyNone
}

// baseline is a rolling window of recent demand scores used to judge
// whether a score is unusually high.
type baseline struct {
	mu     sync.Mutex
	scores []float64
	next   int
	filled bool
}

func newBaseline(window int) *baseline {
	if window <= 0 {
		window = 256
	}
	return &baseline{scores: make([]float64, window)}
}

func (b *baseline) record(score float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scores[b.next] = score
	b.next++
	if b.next == len(b.scores) {
		b.next = 0
		b.filled = true
	}
}

// percentile returns the p-th percentile of the window, or 0 until
// enough samples accumulate to make the comparison meaningful.
func (b *baseline) percentile(p float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.next
	if b.filled {
		n = len(b.scores)
	}
	if n < 8 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, b.scores[:n])
	sort.Float64s(sorted)

	idx := int(p * float64(n-1))
	return sorted[idx]
}
