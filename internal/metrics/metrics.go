package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationsActive tracks currently held soft reservations per item
	ReservationsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storefront_reservations_active",
			Help: "Number of active soft reservations",
		},
		[]string{"item"},
	)

	// ReservationsRejected tracks reservations refused for insufficient stock
	ReservationsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_reservations_rejected_total",
			Help: "Total reservations rejected due to insufficient stock",
		},
		[]string{"item"},
	)

	// ReservationsExpired tracks holds removed by the expiry sweep
	ReservationsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_reservations_expired_total",
			Help: "Total reservations removed by the expiry sweep",
		},
	)

	// OrdersFinalized tracks orders committed into CONFIRMED
	OrdersFinalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_orders_finalized_total",
			Help: "Total orders finalized",
		},
		[]string{"trigger"}, // explicit, auto
	)

	// OrdersCancelled tracks customer cancellations
	OrdersCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_orders_cancelled_total",
			Help: "Total orders cancelled",
		},
	)

	// SubmitAttempts tracks order submission attempts by outcome kind
	SubmitAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_submit_attempts_total",
			Help: "Total order submission attempts",
		},
		[]string{"outcome"},
	)

	// SubmitLatency tracks order submission attempt latency
	SubmitLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storefront_submit_latency_seconds",
			Help:    "Order submission attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// NotifyFailures tracks dropped notification events
	NotifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_notify_failures_total",
			Help: "Total notification events that failed to enqueue",
		},
	)
)
