package domain

// UnboundedInventory is the sentinel raw inventory value for items
// whose stock is not tracked. Reservations against such items always
// succeed.
const UnboundedInventory = -1

// MenuItem is the sellable catalog entry the storefront reserves
// against.
type MenuItem struct {
	ID           string
	Name         string
	Category     string
	PriceCents   int64
	RawInventory int // UnboundedInventory when untracked
	Available    bool
}

// Unbounded reports whether stock tracking is disabled for the item.
func (m *MenuItem) Unbounded() bool {
	return m.RawInventory == UnboundedInventory
}

// StockWithReservations returns point-in-time availability given raw
// inventory and the quantity currently held by active reservations.
// Never negative; unbounded inventory passes through unchanged.
func StockWithReservations(rawInventory, reserved int) int {
	if rawInventory == UnboundedInventory {
		return UnboundedInventory
	}
	available := rawInventory - reserved
	if available < 0 {
		return 0
	}
	return available
}
