package workflows

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/gridveil/internal/core/domain"
	"github.com/samirrijal/gridveil/internal/core/grid"
	"github.com/samirrijal/gridveil/internal/core/ports"
	"github.com/samirrijal/gridveil/internal/core/usecases"
)

// AnonymiseActivities holds the activity implementations for the
// anonymisation workflow.
type AnonymiseActivities struct {
	Datasets  *usecases.DatasetService
	Jobs      ports.JobRepository
	Results   ports.ResultRepository
	Publisher ports.EventPublisher
}

// SetJobStatus transitions a job; errMsg is stored for failed jobs.
func (a *AnonymiseActivities) SetJobStatus(ctx context.Context, jobID, status, errMsg string) error {
	if err := a.Jobs.SetStatus(ctx, jobID, status, errMsg); err != nil {
		return fmt.Errorf("set job %s status %s: %w", jobID, status, err)
	}
	return nil
}

// RunSearch loads the job's point set and searches for the finest grid
// where every occupied cell meets the minimum population. The points stay
// inside the activity; only the result crosses the workflow boundary.
func (a *AnonymiseActivities) RunSearch(ctx context.Context, jobID string) (*domain.GridResult, error) {
	job, err := a.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}

	ps, err := a.Datasets.PointSet(ctx, job.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("load point set: %w", err)
	}

	result, err := grid.FindFinestGrid(ps, job.MinPoints, job.Tolerance, grid.SourceForPolicy(job.Policy))
	if err != nil {
		if usecases.IsNoSolution(err) {
			// Retrying the same search over the same points cannot succeed
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), "NoSolution", err)
		}
		return nil, err
	}
	return result, nil
}

// PersistResult stores the grid result for a job, replacing any earlier
// attempt of the same job.
func (a *AnonymiseActivities) PersistResult(ctx context.Context, jobID string, result *domain.GridResult) error {
	if err := a.Results.Save(ctx, jobID, result); err != nil {
		return fmt.Errorf("save result for job %s: %w", jobID, err)
	}
	return nil
}

// PublishOutcome emits the terminal job event. A completed event carries the
// stored result so subscribers do not have to fetch it separately.
func (a *AnonymiseActivities) PublishOutcome(ctx context.Context, jobID, status, reason string) error {
	if a.Publisher == nil {
		return nil
	}

	job, err := a.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}

	event := &domain.JobEvent{
		JobID:     jobID,
		DatasetID: job.DatasetID,
		Status:    status,
		Reason:    reason,
		Time:      time.Now(),
	}

	if status == domain.JobCompleted {
		if result, err := a.Results.GetByJob(ctx, jobID); err == nil {
			event.Result = result
		}
		return a.Publisher.PublishJobCompleted(ctx, event)
	}
	return a.Publisher.PublishJobFailed(ctx, event)
}
