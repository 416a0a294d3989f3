package domain

import "time"

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPendingConfirmation OrderStatus = "pending_confirmation"
	OrderStatusConfirmed           OrderStatus = "confirmed"
	OrderStatusPreparing           OrderStatus = "preparing"
	OrderStatusReady               OrderStatus = "ready"
	OrderStatusOutForDelivery      OrderStatus = "out_for_delivery"
	OrderStatusDelivered           OrderStatus = "delivered"
	OrderStatusCancelled           OrderStatus = "cancelled"
)

// ValidTransitions defines allowed status transitions.
// Key is the current status, value is the list of valid next statuses.
var ValidTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingConfirmation: {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:           {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:           {OrderStatusReady},
	OrderStatusReady:               {OrderStatusOutForDelivery},
	OrderStatusOutForDelivery:      {OrderStatusDelivered},
	OrderStatusDelivered:           {},
	OrderStatusCancelled:           {},
}

// CanTransition checks if a transition from one status to another is valid.
func CanTransition(from, to OrderStatus) bool {
	validTargets, ok := ValidTransitions[from]
	if !ok {
		return false
	}

	for _, target := range validTargets {
		if target == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true for statuses that accept no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// LineItem is one item of an order with its unit price frozen at
// submission time.
type LineItem struct {
	ItemID         string
	Name           string
	Quantity       int
	UnitPriceCents int64
}

// Pricing is the monetary snapshot of an order. Derived once at
// submission, recomputed only while the order is still pending, and
// frozen thereafter.
type Pricing struct {
	SubtotalCents    int64
	TaxCents         int64
	DeliveryFeeCents int64
	DiscountCents    int64
	TipCents         int64
	TotalCents       int64
}

// Order is the unit governed by the grace-period state machine.
type Order struct {
	ID          string
	OrderNumber string
	SessionID   string
	Customer    CustomerContact
	Items       []LineItem
	Pricing     Pricing
	Status      OrderStatus

	CreatedAt            time.Time
	GracePeriodExpiresAt time.Time
	CancelWindowEndsAt   time.Time

	ConfirmedAt time.Time
	PreparingAt time.Time
	ReadyAt     time.Time
	DeliveredAt time.Time
	CancelledAt time.Time

	CancelReason string
}

// CustomerContact carries the fields the notification dispatcher needs.
type CustomerContact struct {
	Name  string
	Email string
	Phone string
}

// Quantity returns the ordered quantity of one item, 0 if absent.
func (o *Order) Quantity(itemID string) int {
	for _, li := range o.Items {
		if li.ItemID == itemID {
			return li.Quantity
		}
	}
	return 0
}
