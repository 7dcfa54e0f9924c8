package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
)

// TemporalRunner starts anonymisation workflows on a Temporal cluster. It
// satisfies the HTTP layer's JobStarter so the API can hand jobs off to the
// worker fleet instead of running them in-process.
type TemporalRunner struct {
	client    client.Client
	taskQueue string
}

func NewTemporalRunner(c client.Client, taskQueue string) *TemporalRunner {
	return &TemporalRunner{client: c, taskQueue: taskQueue}
}

// StartJob launches the workflow for a job. The workflow ID is derived from
// the job ID so resubmitting the same job is an idempotent no-op while a
// run is in flight.
func (r *TemporalRunner) StartJob(ctx context.Context, jobID string) error {
	opts := client.StartWorkflowOptions{
		ID:        "anonymise-" + jobID,
		TaskQueue: r.taskQueue,
	}
	_, err := r.client.ExecuteWorkflow(ctx, opts, AnonymiseWorkflow, AnonymiseInput{JobID: jobID})
	if err != nil {
		return fmt.Errorf("start workflow for job %s: %w", jobID, err)
	}
	return nil
}
