package reservation

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically drops expired holds so stale carts release
// their stock.
type Sweeper struct {
	tracker  *Tracker
	interval time.Duration
}

// NewSweeper creates a sweeper worker. A zero interval defaults to
// TTL/4.
func NewSweeper(tracker *Tracker, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = tracker.TTL() / 4
	}
	return &Sweeper{tracker: tracker, interval: interval}
}

// Start runs the sweep loop until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.tracker.SweepExpired(); removed > 0 {
				slog.Debug("Swept expired reservations", "removed", removed)
			}
		}
	}
}
