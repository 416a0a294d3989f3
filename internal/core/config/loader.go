package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Reservation.TTL == 0 {
		cfg.Reservation.TTL = 10 * time.Minute
	}
	if cfg.Reservation.SweepInterval == 0 {
		cfg.Reservation.SweepInterval = cfg.Reservation.TTL / 4
	}

	if cfg.Demand.CartWeight == 0 {
		cfg.Demand.CartWeight = 2.0
	}
	if cfg.Demand.VelocityWeight == 0 {
		cfg.Demand.VelocityWeight = 1.0
	}
	if cfg.Demand.StockWeight == 0 {
		cfg.Demand.StockWeight = 0.5
	}
	if cfg.Demand.HighPercentile == 0 {
		cfg.Demand.HighPercentile = 0.75
	}
	if cfg.Demand.LowScore == 0 {
		cfg.Demand.LowScore = 1.0
	}
	if cfg.Demand.BaselineWindow == 0 {
		cfg.Demand.BaselineWindow = 256
	}

	if cfg.Order.GracePeriod == 0 {
		cfg.Order.GracePeriod = 3 * time.Minute
	}
	if cfg.Order.CancelWindow == 0 {
		cfg.Order.CancelWindow = 15 * time.Minute
	}
	if cfg.Order.FinalizeScanInterval == 0 {
		cfg.Order.FinalizeScanInterval = 15 * time.Second
	}

	if cfg.Submit.MaxAttempts == 0 {
		cfg.Submit.MaxAttempts = 3
	}
	if cfg.Submit.BaseDelay == 0 {
		cfg.Submit.BaseDelay = 500 * time.Millisecond
	}
	if cfg.Submit.AttemptTimeout == 0 {
		cfg.Submit.AttemptTimeout = 10 * time.Second
	}
}
