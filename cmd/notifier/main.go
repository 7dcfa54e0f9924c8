package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsadapter "github.com/samirrijal/gridveil/internal/adapters/nats"
	"github.com/samirrijal/gridveil/internal/core/domain"
	"github.com/samirrijal/gridveil/internal/pkg/config"
	"github.com/samirrijal/gridveil/internal/pkg/logging"
	"github.com/samirrijal/gridveil/internal/pkg/telemetry"
)

// notifier consumes terminal job events from JetStream and forwards them to
// a webhook. The subscription is durable, so events published while the
// notifier is down are delivered on restart.
func main() {
	cfg, err := config.Load("gridveil-notifier")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	client := &http.Client{Timeout: 10 * time.Second}
	webhook := cfg.Notifier.WebhookURL

	err = sub.SubscribeJobEvents(ctx, func(ctx context.Context, event *domain.JobEvent) error {
		queueAge := time.Since(event.Time)
		switch event.Status {
		case domain.JobCompleted:
			slog.Info("job completed",
				"job_id", event.JobID,
				"dataset_id", event.DatasetID,
				telemetry.MetricJobQueueAge, queueAge.Seconds(),
				telemetry.MetricJobsCompleted, 1)
		case domain.JobFailed:
			slog.Warn("job failed",
				"job_id", event.JobID,
				"dataset_id", event.DatasetID,
				"reason", event.Reason,
				telemetry.MetricJobsFailed, 1)
		}

		if webhook == "" {
			return nil
		}
		return deliver(ctx, client, webhook, event)
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("notifier started", "webhook_configured", webhook != "")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutting down notifier", "signal", sig.String())
}

// deliver POSTs the event to the webhook. A non-2xx response is an error so
// JetStream redelivers the message.
func deliver(ctx context.Context, client *http.Client, url string, event *domain.JobEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver event for job %s: %w", event.JobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %d for job %s", resp.StatusCode, event.JobID)
	}
	return nil
}
