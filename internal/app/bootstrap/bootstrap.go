package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	boardservice "pressroom/contexts/community-engagement/board-service"
	boardpostgres "pressroom/contexts/community-engagement/board-service/adapters/postgres"
	boardworkers "pressroom/contexts/community-engagement/board-service/application/workers"
	votingservice "pressroom/contexts/community-engagement/voting-service"
	votingpostgres "pressroom/contexts/community-engagement/voting-service/adapters/postgres"
	votingworkers "pressroom/contexts/community-engagement/voting-service/application/workers"
	publicationservice "pressroom/contexts/editorial-pipeline/publication-service"
	publicationpostgres "pressroom/contexts/editorial-pipeline/publication-service/adapters/postgres"
	publicationworkers "pressroom/contexts/editorial-pipeline/publication-service/application/workers"
	"pressroom/internal/platform/auth"
	"pressroom/internal/platform/config"
	"pressroom/internal/platform/db"
	"pressroom/internal/platform/httpserver"
	"pressroom/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres *db.Postgres

	boardConsumer    votingworkers.BoardContentConsumer
	votingRelay      votingworkers.OutboxRelay
	boardRelay       boardworkers.OutboxRelay
	publicationRelay publicationworkers.OutboxRelay
	publishDue       publicationworkers.PublishDueJob

	consumerEnabled bool
	relaysEnabled   bool
	pollInterval    time.Duration
	logger          *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := migrate(pg); err != nil {
		pg.Close()
		return nil, err
	}

	votingRepo := votingpostgres.NewRepository(pg.DB, logger)
	votingModule := votingservice.NewModule(votingservice.Dependencies{
		Votes:          votingRepo,
		Projections:    votingRepo,
		Idempotency:    votingRepo,
		Outbox:         votingRepo,
		Clock:          votingpostgres.SystemClock{},
		IDGen:          votingpostgres.UUIDGenerator{},
		IdempotencyTTL: 7 * 24 * time.Hour,
		Logger:         logger,
	})

	boardRepo := boardpostgres.NewRepository(pg.DB, logger)
	boardModule := boardservice.NewModule(boardservice.Dependencies{
		Repository: boardRepo,
		VoteState:  boardRepo,
		Outbox:     boardRepo,
		Clock:      boardpostgres.SystemClock{},
		IDGen:      boardpostgres.UUIDGenerator{},
		Logger:     logger,
	})

	publicationRepo := publicationpostgres.NewRepository(pg.DB, logger)
	publicationModule := publicationservice.NewModule(publicationservice.Dependencies{
		Reviews:        publicationRepo,
		Idempotency:    publicationRepo,
		Clock:          publicationpostgres.SystemClock{},
		IDGen:          publicationpostgres.UUIDGenerator{},
		IdempotencyTTL: 7 * 24 * time.Hour,
		Logger:         logger,
	})

	server := httpserver.New(
		votingModule,
		boardModule,
		publicationModule,
		auth.NewVerifier(cfg.JWTSecret),
		logger,
		normalizeAddr(cfg.HTTPPort),
	)
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := migrate(pg); err != nil {
		pg.Close()
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	votingRepo := votingpostgres.NewRepository(pg.DB, logger)
	boardRepo := boardpostgres.NewRepository(pg.DB, logger)
	publicationRepo := publicationpostgres.NewRepository(pg.DB, logger)

	publicationModule := publicationservice.NewModule(publicationservice.Dependencies{
		Reviews:        publicationRepo,
		Idempotency:    publicationRepo,
		Clock:          publicationpostgres.SystemClock{},
		IDGen:          publicationpostgres.UUIDGenerator{},
		IdempotencyTTL: 7 * 24 * time.Hour,
		Logger:         logger,
	})

	return &WorkerApp{
		postgres: pg,
		boardConsumer: votingworkers.BoardContentConsumer{
			Subscriber:    kafka,
			Dedup:         votingRepo,
			Projections:   votingRepo,
			Clock:         votingpostgres.SystemClock{},
			ConsumerGroup: "voting-service-board-cg",
			DedupTTL:      7 * 24 * time.Hour,
			Logger:        logger,
		},
		votingRelay: votingworkers.OutboxRelay{
			Outbox:    votingRepo,
			Publisher: kafka,
			Clock:     votingpostgres.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		boardRelay: boardworkers.OutboxRelay{
			Outbox:    boardRepo,
			Publisher: kafka,
			Clock:     boardpostgres.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		publicationRelay: publicationworkers.OutboxRelay{
			Outbox:    publicationRepo,
			Publisher: kafka,
			Clock:     publicationpostgres.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		publishDue: publicationworkers.PublishDueJob{
			Reviews:   publicationRepo,
			Actions:   publicationModule.Reviews,
			Clock:     publicationpostgres.SystemClock{},
			BatchSize: 50,
			Disabled:  !cfg.EnableScheduledPublisher,
			Logger:    logger,
		},
		consumerEnabled: cfg.EnableVoteProjectionConsumer,
		relaysEnabled:   cfg.EnableOutboxRelays,
		pollInterval:    cfg.WorkerPollInterval,
		logger:          logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.consumerEnabled {
		if err := w.boardConsumer.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"relays_enabled", w.relaysEnabled,
		"consumer_enabled", w.consumerEnabled,
	)

	for {
		if err := w.publishDue.RunOnce(ctx); err != nil {
			return err
		}
		if w.relaysEnabled {
			if err := w.votingRelay.RunOnce(ctx); err != nil {
				return err
			}
			if err := w.boardRelay.RunOnce(ctx); err != nil {
				return err
			}
			if err := w.publicationRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func migrate(pg *db.Postgres) error {
	if err := votingpostgres.AutoMigrate(pg.DB); err != nil {
		return err
	}
	if err := boardpostgres.AutoMigrate(pg.DB); err != nil {
		return err
	}
	return publicationpostgres.AutoMigrate(pg.DB)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
