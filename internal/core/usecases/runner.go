package usecases

import (
	"context"
	"log/slog"
	"time"

	"github.com/samirrijal/gridveil/internal/pkg/metrics"
)

// InProcessRunner executes jobs on a goroutine inside the API process.
// It is the default runner when no Temporal cluster is configured.
type InProcessRunner struct {
	anonymise *AnonymiseService
}

func NewInProcessRunner(anonymise *AnonymiseService) *InProcessRunner {
	return &InProcessRunner{anonymise: anonymise}
}

// StartJob launches the job in the background and returns immediately. The
// job's status row is the record of the outcome; errors here are logged,
// not returned to the submitting request.
func (r *InProcessRunner) StartJob(ctx context.Context, jobID string) error {
	go func() {
		// Detached from the request context: the job outlives the HTTP
		// request that submitted it.
		runCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		start := time.Now()
		result, err := r.anonymise.Run(runCtx, jobID)
		metrics.SearchDuration.Observe(time.Since(start).Seconds())

		if err != nil {
			if IsNoSolution(err) {
				metrics.SearchesCompleted.WithLabelValues("no_solution").Inc()
			} else {
				metrics.SearchesCompleted.WithLabelValues("error").Inc()
			}
			slog.Error("anonymisation job failed", "job_id", jobID, "error", err)
			return
		}

		metrics.SearchesCompleted.WithLabelValues("success").Inc()
		metrics.PointsDiscarded.Observe(float64(len(result.Discarded)))
		slog.Info("anonymisation job completed",
			"job_id", jobID,
			"cell_width", result.Resolution.CellWidth,
			"discarded", len(result.Discarded))
	}()
	return nil
}
