// Package control wires the order core together and manages its
// lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pressly/goose/v3"

	"github.com/vietddude/storefront/internal/core/clock"
	"github.com/vietddude/storefront/internal/core/config"
	"github.com/vietddude/storefront/internal/health"
	redisclient "github.com/vietddude/storefront/internal/infra/redis"
	"github.com/vietddude/storefront/internal/infra/storage"
	"github.com/vietddude/storefront/internal/infra/storage/memory"
	"github.com/vietddude/storefront/internal/infra/storage/postgres"
	"github.com/vietddude/storefront/internal/notify"
	"github.com/vietddude/storefront/internal/order"
	"github.com/vietddude/storefront/internal/reservation"
	"github.com/vietddude/storefront/internal/submit"
	"github.com/vietddude/storefront/migrations"
)

// Config holds the application configuration.
type Config struct {
	Port        int
	Database    postgres.Config
	Redis       redisclient.Config
	Reservation config.ReservationConfig
	Demand      config.DemandConfig
	Order       config.OrderConfig
	Submit      config.SubmitConfig
}

// Storefront is the main application struct that manages the order
// core's lifecycle.
type Storefront struct {
	cfg Config

	db          *postgres.DB
	store       *memory.MemoryStorage
	redisClient *redisclient.Client

	Orders    storage.OrderRepository
	Inventory storage.InventoryStore
	Tracker   *reservation.Tracker
	Demand    *reservation.Calculator
	Machine   *order.Machine
	Submitter *submit.Client

	sweeper      *reservation.Sweeper
	finalizer    *order.Finalizer
	healthServer *health.Server

	cancel context.CancelFunc
}

// NewStorefront creates a Storefront with all dependencies
// initialized.
func NewStorefront(cfg Config) (*Storefront, error) {
	s := &Storefront{cfg: cfg}
	clk := clock.System{}

	// 1. Storage
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		s.db = db

		goose.SetBaseFS(migrations.FS)
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "."); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		s.Orders = postgres.NewOrderRepo(db)
		s.Inventory = postgres.NewInventoryRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		s.store = memory.NewMemoryStorage()
		s.Orders = memory.NewOrderRepo(s.store)
		s.Inventory = memory.NewInventoryStore(s.store)
		slog.Info("Using Memory storage")
	}

	// 2. Redis (optional): order velocity counters + event queue
	var velocity reservation.Velocity = reservation.RepoVelocity{Orders: s.Orders}
	var recorder order.VelocityRecorder
	var dispatcher notify.Dispatcher = notify.LogDispatcher{}
	if cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		s.redisClient = rc
		velocity = rc
		recorder = rc
		dispatcher = notify.NewRedisDispatcher(rc)
		slog.Info("Redis connected")
	}

	// 3. Core components
	s.Tracker = reservation.NewTracker(s.Inventory, clk, cfg.Reservation.TTL)
	s.Demand = reservation.NewCalculator(s.Tracker, velocity, clk, cfg.Demand)
	s.Machine = order.NewMachine(s.Orders, s.Inventory, s.Tracker, dispatcher, recorder, clk, cfg.Order)
	s.Submitter = submit.NewClient(cfg.Submit)

	// 4. Workers
	s.sweeper = reservation.NewSweeper(s.Tracker, cfg.Reservation.SweepInterval)
	s.finalizer = order.NewFinalizer(s.Machine, s.Orders, clk, cfg.Order.FinalizeScanInterval)

	// 5. Health server
	var pinger health.Pinger
	if s.db != nil {
		pinger = dbPinger{db: s.db}
	}
	monitor := health.NewMonitor(pinger, s.redisClient, s.Orders, clk)
	s.healthServer = health.NewServer(monitor, cfg.Port)

	return s, nil
}

// Start launches the background workers and the health server.
func (s *Storefront) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	go s.sweeper.Start(ctx)
	go s.finalizer.Start(ctx)
	go func() {
		if err := s.healthServer.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("Health server error", "error", err)
		}
	}()

	slog.Info("Storefront started",
		"port", s.cfg.Port,
		"reservation_ttl", s.cfg.Reservation.TTL,
		"grace_period", s.cfg.Order.GracePeriod,
		"cancel_window", s.cfg.Order.CancelWindow,
	)
	return nil
}

// Stop shuts the application down gracefully.
func (s *Storefront) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	if err := s.healthServer.Stop(ctx); err != nil {
		slog.Warn("Health server shutdown error", "error", err)
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			slog.Warn("Redis close error", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Warn("Database close error", "error", err)
		}
	}
	return nil
}

type dbPinger struct {
	db *postgres.DB
}

func (p dbPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
