package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/gridveil/internal/adapters/nats"
	"github.com/samirrijal/gridveil/internal/adapters/postgres"
	"github.com/samirrijal/gridveil/internal/core/ports"
	"github.com/samirrijal/gridveil/internal/core/usecases"
	"github.com/samirrijal/gridveil/internal/pkg/config"
	"github.com/samirrijal/gridveil/internal/pkg/logging"
	"github.com/samirrijal/gridveil/internal/workflows"
)

func main() {
	cfg, err := config.Load("gridveil-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var publisher ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, job events will not be published", "error", err)
	} else {
		publisher = nc
		defer nc.Close()
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.AnonymiseWorkflow)
	w.RegisterActivity(&workflows.AnonymiseActivities{
		Datasets:  usecases.NewDatasetService(postgres.NewDatasetRepo(db), nil),
		Jobs:      postgres.NewJobRepo(db),
		Results:   postgres.NewResultRepo(db),
		Publisher: publisher,
	})

	slog.Info("anonymisation worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
