package domain

import "time"

// OrderEvent is emitted to the notification dispatcher on order
// confirmation and cancellation. Delivery is fire-and-forget; a failed
// emit never rolls back the triggering transition.
type OrderEvent struct {
	EventType   OrderEventType  `json:"event_type"`
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Customer    CustomerContact `json:"customer"`
	Reason      string          `json:"reason,omitempty"`
	EmittedAt   time.Time       `json:"emitted_at"`
}

type OrderEventType string

const (
	OrderEventConfirmed OrderEventType = "order_confirmed"
	OrderEventCancelled OrderEventType = "order_cancelled"
)
