package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/gridveil/internal/adapters/http"
	natsadapter "github.com/samirrijal/gridveil/internal/adapters/nats"
	"github.com/samirrijal/gridveil/internal/adapters/postgres"
	"github.com/samirrijal/gridveil/internal/adapters/valkey"
	"github.com/samirrijal/gridveil/internal/core/ports"
	"github.com/samirrijal/gridveil/internal/core/usecases"
	"github.com/samirrijal/gridveil/internal/pkg/config"
	"github.com/samirrijal/gridveil/internal/pkg/logging"
	"github.com/samirrijal/gridveil/internal/pkg/telemetry"
	"github.com/samirrijal/gridveil/internal/workflows"
)

func main() {
	cfg, err := config.Load("gridveil-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolMetrics(ctx, 15*time.Second)

	// Cache (optional; the service degrades to uncached reads)
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		cacheSvc = cache
		defer cache.Close()
	}

	// NATS (optional; job events are simply not published without it)
	var publisher ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		publisher = nc
		defer nc.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Repos
	datasetRepo := postgres.NewDatasetRepo(db)
	jobRepo := postgres.NewJobRepo(db)
	resultRepo := postgres.NewResultRepo(db)

	// Use cases
	datasetSvc := usecases.NewDatasetService(datasetRepo, cacheSvc)
	anonymiseSvc := usecases.NewAnonymiseService(datasetSvc, jobRepo, resultRepo, publisher)
	resultSvc := usecases.NewResultService(resultRepo, cacheSvc)

	// Job runner: hand jobs to the Temporal worker fleet when a cluster is
	// reachable, otherwise run them on a goroutine in this process.
	var runner http.JobStarter
	temporalClient, err := client.Dial(client.Options{HostPort: cfg.Temporal.HostPort})
	if err != nil {
		slog.Warn("temporal unavailable, running jobs in-process", "error", err)
		runner = usecases.NewInProcessRunner(anonymiseSvc)
	} else {
		runner = workflows.NewTemporalRunner(temporalClient, cfg.Temporal.TaskQueue)
		defer temporalClient.Close()
	}

	deps := &http.Dependencies{
		Datasets:  datasetSvc,
		Anonymise: anonymiseSvc,
		Results:   resultSvc,
		Runner:    runner,
		Defaults:  cfg.Anonymise,
		NATS:      natsConn,
		DB:        db,
		Cache:     cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    16 * 1024 * 1024, // point uploads can be large
		AppName:      "GridVeil API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
