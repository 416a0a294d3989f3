package config

import (
	"time"

	redisclient "github.com/vietddude/storefront/internal/infra/redis"
	"github.com/vietddude/storefront/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server      ServerConfig       `yaml:"server"`
	Logging     LoggingConfig      `yaml:"logging"`
	Database    postgres.Config    `yaml:"database"`
	Redis       redisclient.Config `yaml:"redis"`
	Reservation ReservationConfig  `yaml:"reservation"`
	Demand      DemandConfig       `yaml:"demand"`
	Order       OrderConfig        `yaml:"order"`
	Submit      SubmitConfig       `yaml:"submit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ReservationConfig holds soft-hold settings.
type ReservationConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"` // defaults to TTL/4
}

// DemandConfig holds demand-pressure weights and urgency thresholds.
// These are restaurant-tunable, not baked into the algorithm.
type DemandConfig struct {
	CartWeight     float64 `yaml:"cart_weight"`     // w1: active cart count
	VelocityWeight float64 `yaml:"velocity_weight"` // w2: orders last 24h
	StockWeight    float64 `yaml:"stock_weight"`    // w3: available stock (subtractive)

	HighPercentile float64 `yaml:"high_percentile"` // baseline percentile marking "high"
	LowScore       float64 `yaml:"low_score"`       // minimum score marking "low"
	BaselineWindow int     `yaml:"baseline_window"` // rolling baseline sample count
}

// OrderConfig holds grace-period and cancellation-window policy.
type OrderConfig struct {
	GracePeriod          time.Duration `yaml:"grace_period"`
	CancelWindow         time.Duration `yaml:"cancel_window"`
	FinalizeScanInterval time.Duration `yaml:"finalize_scan_interval"`

	TaxRateBps       int   `yaml:"tax_rate_bps"` // basis points, e.g. 875 = 8.75%
	DeliveryFeeCents int64 `yaml:"delivery_fee_cents"`
}

// SubmitConfig holds order submission client settings.
type SubmitConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	MaxAttempts    int           `yaml:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
}
