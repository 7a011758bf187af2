package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/kitchenledger-backend/api/routes"
	"github.com/angelmondragon/kitchenledger-backend/internal/catalog"
	"github.com/angelmondragon/kitchenledger-backend/internal/inventory"
	"github.com/angelmondragon/kitchenledger-backend/internal/numbering"
	"github.com/angelmondragon/kitchenledger-backend/internal/purchasing"
	"github.com/angelmondragon/kitchenledger-backend/internal/recipes"
	"github.com/angelmondragon/kitchenledger-backend/internal/sales"
	"github.com/angelmondragon/kitchenledger-backend/internal/stockrequests"
	"github.com/angelmondragon/kitchenledger-backend/internal/transfers"
	"github.com/angelmondragon/kitchenledger-backend/internal/units"
	"github.com/angelmondragon/kitchenledger-backend/pkg/config"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db"
	"github.com/angelmondragon/kitchenledger-backend/pkg/instance"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
	"github.com/angelmondragon/kitchenledger-backend/pkg/metrics"
	"github.com/angelmondragon/kitchenledger-backend/pkg/migrate"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox"
	"github.com/angelmondragon/kitchenledger-backend/pkg/redis"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	params := routes.Params{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Idempotency: redisClient,
		Gatherer:    prometheus.DefaultGatherer,
	}
	if err := wireServices(cfg, logg, dbClient, &params); err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	addr := ":" + cfg.App.Port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shutting down gracefully")
	}
}

// wireServices builds the domain services in dependency order and stores
// them on params.
func wireServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, params *routes.Params) error {
	conn := dbClient.DB()

	catalogService, err := catalog.NewService(catalog.NewRepository(conn))
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	converter, err := units.NewService(units.NewRepository(conn))
	if err != nil {
		return fmt.Errorf("units: %w", err)
	}
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	inventoryService, err := inventory.NewService(
		inventory.NewRepository(conn),
		dbClient,
		outboxService,
		converter,
		metrics.NewInventoryMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		return fmt.Errorf("inventory: %w", err)
	}

	recipeService, err := recipes.NewService(recipes.NewRepository(conn), dbClient, catalogService, inventoryService, converter, logg)
	if err != nil {
		return fmt.Errorf("recipes: %w", err)
	}

	loc, err := cfg.App.Location()
	if err != nil {
		return fmt.Errorf("business timezone: %w", err)
	}
	numbers, err := numbering.NewService(numbering.NewRepository(conn), loc)
	if err != nil {
		return fmt.Errorf("numbering: %w", err)
	}

	salesService, err := sales.NewService(sales.NewRepository(conn), dbClient, catalogService, recipeService, inventoryService, numbers, outboxService, logg)
	if err != nil {
		return fmt.Errorf("sales: %w", err)
	}
	salesReports, err := sales.NewReports(sales.NewRepository(conn), loc)
	if err != nil {
		return fmt.Errorf("sales reports: %w", err)
	}
	purchasingService, err := purchasing.NewService(purchasing.NewRepository(conn), dbClient, catalogService, inventoryService, numbers, outboxService, logg)
	if err != nil {
		return fmt.Errorf("purchasing: %w", err)
	}
	requestService, err := stockrequests.NewService(stockrequests.NewRepository(conn), dbClient, catalogService, inventoryService, converter, numbers, outboxService, logg)
	if err != nil {
		return fmt.Errorf("stock requests: %w", err)
	}
	transferService, err := transfers.NewService(transfers.NewRepository(conn), dbClient, catalogService, inventoryService, converter, requestService, numbers, outboxService, logg)
	if err != nil {
		return fmt.Errorf("stock transfers: %w", err)
	}

	params.Catalog = catalogService
	params.Units = converter
	params.Inventory = inventoryService
	params.Recipes = recipeService
	params.Sales = salesService
	params.SalesReports = salesReports
	params.Purchasing = purchasingService
	params.StockRequests = requestService
	params.Transfers = transferService
	return nil
}
