package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/txsync/internal/api"
	"github.com/vietddude/txsync/internal/core/config"
	redisclient "github.com/vietddude/txsync/internal/infra/redis"
	"github.com/vietddude/txsync/internal/infra/storage"
	"github.com/vietddude/txsync/internal/infra/storage/postgres"
)

// Service is the long running process: HTTP API plus scheduled runs.
type Service struct {
	cfg          *config.AppConfig
	orchestrator *Orchestrator
	sources      *ConfigSources
	ledger       storage.Ledger
	db           *postgres.DB
	redisClient  *redisclient.Client
	server       *api.Server
	scheduler    *Scheduler
	log          *slog.Logger
}

// NewService creates a Service with all dependencies initialized.
func NewService(ctx context.Context, cfg *config.AppConfig) (*Service, error) {
	if err := ValidateSchedule(cfg.Pipeline.Schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Pipeline.Schedule, err)
	}

	// 1. Ledger
	ledger, db, err := OpenLedger(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// 2. Redis coordination, optional
	var redisClient *redisclient.Client
	var coord Coordinator
	if cfg.Redis.Enabled() {
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, run lock disabled", "error", err)
		} else {
			coord = redisClient
		}
	}

	// 3. Pipeline
	sources := NewConfigSources(cfg)
	orchestrator := NewOrchestrator(sources, ledger, NewFilter(cfg), coord, RunOptions(cfg.Pipeline))

	// 4. HTTP API
	server := api.NewServer(orchestrator, ledger, cfg.Server.Port)
	if db != nil {
		server.AddHealthCheck("database", db.Health)
	}

	// 5. Schedule
	scheduler := NewScheduler()
	err = scheduler.Add(cfg.Pipeline.Schedule, "sync", func(ctx context.Context) {
		orchestrator.Run(ctx, RunRequest{})
	})
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		_ = sources.Close()
		_ = ledger.Close()
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Pipeline.Schedule, err)
	}

	return &Service{
		cfg:          cfg,
		orchestrator: orchestrator,
		sources:      sources,
		ledger:       ledger,
		db:           db,
		redisClient:  redisClient,
		server:       server,
		scheduler:    scheduler,
		log:          slog.Default(),
	}, nil
}

// Orchestrator exposes the pipeline for one-shot runs.
func (s *Service) Orchestrator() *Orchestrator { return s.orchestrator }

// Start starts the API server and the scheduler. It does not block.
func (s *Service) Start(ctx context.Context) error {
	go func() {
		if err := s.server.Start(); err != nil {
			s.log.Error("API server failed", "error", err)
		}
	}()

	if s.db != nil {
		s.db.StartMetricsCollector(ctx)
	}

	s.scheduler.Start()
	s.log.Info("Service started", "port", s.cfg.Server.Port, "schedule", s.cfg.Pipeline.Schedule)
	return nil
}

// Stop stops the service.
func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("Stopping service...")

	s.scheduler.Stop(ctx)

	if err := s.server.Stop(ctx); err != nil {
		s.log.Warn("Failed to stop API server", "error", err)
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Failed to close Redis", "error", err)
		}
	}

	_ = s.sources.Close()

	if err := s.ledger.Close(); err != nil {
		return fmt.Errorf("failed to close ledger: %w", err)
	}

	s.log.Info("Service stopped")
	return nil
}
