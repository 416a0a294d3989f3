package domain

// UrgencyTier buckets demand pressure for storefront display.
type UrgencyTier string

const (
	UrgencyNone     UrgencyTier = "none"
	UrgencyLow      UrgencyTier = "low"
	UrgencyHigh     UrgencyTier = "high"
	UrgencyCritical UrgencyTier = "critical"
)

// DemandSnapshot is a derived, point-in-time view of demand pressure
// on one item. Never persisted.
type DemandSnapshot struct {
	ItemID          string
	DemandScore     float64
	ActiveCartCount int
	OrdersLast24h   int
	AvailableStock  int // UnboundedInventory when untracked
	UrgencyTier     UrgencyTier
}
