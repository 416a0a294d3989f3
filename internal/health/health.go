// Package health provides system health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Report contains the full system health report.
type Report struct {
	Status        SystemStatus `json:"status"`
	Database      string       `json:"database"`
	Redis         string       `json:"redis"`
	PendingOrders int          `json:"pending_orders"`
	EventBacklog  int64        `json:"event_backlog"`
}
