package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/kitchenledger-backend/internal/cron"
	"github.com/angelmondragon/kitchenledger-backend/internal/inventory"
	"github.com/angelmondragon/kitchenledger-backend/internal/units"
	"github.com/angelmondragon/kitchenledger-backend/pkg/config"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
	"github.com/angelmondragon/kitchenledger-backend/pkg/metrics"
	"github.com/angelmondragon/kitchenledger-backend/pkg/migrate"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox"
	"github.com/angelmondragon/kitchenledger-backend/pkg/redis"
)

const (
	serviceKind          = "cron-worker"
	outboxRetentionEvery = 6 * time.Hour
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: serviceKind}).Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "serviceKind": serviceKind})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer redisClient.Close()

	locks, err := cron.NewRedisLocker(redisClient, 0)
	if err != nil {
		return err
	}

	registry, err := buildJobs(cfg, logg, dbClient)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Locks:    locks,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Metrics.Addr, prometheus.DefaultGatherer, logg); err != nil {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()

	logg.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

// buildJobs wires every scheduled job with its interval.
func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

	converter, err := units.NewService(units.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, fmt.Errorf("unit converter: %w", err)
	}
	inventoryService, err := inventory.NewService(
		inventory.NewRepository(dbClient.DB()),
		dbClient,
		outboxService,
		converter,
		metrics.NewInventoryMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		return nil, fmt.Errorf("inventory service: %w", err)
	}

	digestJob, err := cron.NewLowStockDigestJob(cron.LowStockDigestJobParams{
		Logger:    logg,
		DB:        dbClient,
		Inventory: inventoryService,
		Outbox:    outboxService,
	})
	if err != nil {
		return nil, fmt.Errorf("low stock digest job: %w", err)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		DLQ:        outbox.NewDLQRepository(dbClient.DB()),
		Config:     cfg.Outbox,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}

	registry := cron.NewRegistry()
	registry.Register(digestJob, cfg.Inventory.LowStockDigestInterval)
	registry.Register(retentionJob, outboxRetentionEvery)
	return registry, nil
}
