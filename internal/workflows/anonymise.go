package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/gridveil/internal/core/domain"
)

// AnonymiseInput is the input for the anonymisation workflow.
type AnonymiseInput struct {
	JobID string
}

// AnonymiseWorkflow runs a grid search job as a sequence of activities so a
// worker restart resumes the job instead of losing it. The job row in the
// database tracks status; whatever happens, the workflow leaves the job in a
// terminal state and publishes the outcome.
func AnonymiseWorkflow(ctx workflow.Context, input AnonymiseInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting anonymisation workflow", "jobID", input.JobID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: mark the job running
	if err := workflow.ExecuteActivity(ctx, "SetJobStatus", input.JobID, domain.JobRunning, "").Get(ctx, nil); err != nil {
		return err
	}

	// Step 2: load points and search for the finest acceptable grid.
	// A no-solution outcome is non-retryable; retrying the same search
	// over the same points cannot change the answer.
	var result domain.GridResult
	if err := workflow.ExecuteActivity(ctx, "RunSearch", input.JobID).Get(ctx, &result); err != nil {
		return failJob(ctx, input.JobID, err)
	}

	// Step 3: persist the result
	if err := workflow.ExecuteActivity(ctx, "PersistResult", input.JobID, result).Get(ctx, nil); err != nil {
		return failJob(ctx, input.JobID, err)
	}

	// Step 4: mark completed and publish
	if err := workflow.ExecuteActivity(ctx, "SetJobStatus", input.JobID, domain.JobCompleted, "").Get(ctx, nil); err != nil {
		return err
	}
	_ = workflow.ExecuteActivity(ctx, "PublishOutcome", input.JobID, domain.JobCompleted, "").Get(ctx, nil)

	logger.Info("Anonymisation workflow completed", "jobID", input.JobID,
		"cellWidth", result.Resolution.CellWidth, "discarded", len(result.Discarded))
	return nil
}

// failJob flips the job to failed and publishes the failure before passing
// the original error through.
func failJob(ctx workflow.Context, jobID string, cause error) error {
	logger := workflow.GetLogger(ctx)
	logger.Warn("anonymisation failed, marking job", "jobID", jobID, "error", cause)

	_ = workflow.ExecuteActivity(ctx, "SetJobStatus", jobID, domain.JobFailed, cause.Error()).Get(ctx, nil)
	_ = workflow.ExecuteActivity(ctx, "PublishOutcome", jobID, domain.JobFailed, cause.Error()).Get(ctx, nil)
	return cause
}
