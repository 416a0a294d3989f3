package domain

import "time"

// Reservation is a soft, expiring hold on item quantity for one cart
// session. Owned exclusively by the reservation tracker; callers only
// mutate it through tracker operations.
type Reservation struct {
	SessionID string
	ItemID    string
	Quantity  int
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the hold has lapsed at the given instant.
func (r *Reservation) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
