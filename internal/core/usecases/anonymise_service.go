package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samirrijal/gridveil/internal/core/domain"
	"github.com/samirrijal/gridveil/internal/core/grid"
	"github.com/samirrijal/gridveil/internal/core/ports"
	"github.com/samirrijal/gridveil/internal/pkg/metrics"
)

// AnonymiseService creates and runs anonymisation jobs.
type AnonymiseService struct {
	datasets  *DatasetService
	jobs      ports.JobRepository
	results   ports.ResultRepository
	publisher ports.EventPublisher
}

// NewAnonymiseService creates a new AnonymiseService. publisher may be nil
// when no broker is configured (e.g. the one-shot CLI).
func NewAnonymiseService(
	datasets *DatasetService,
	jobs ports.JobRepository,
	results ports.ResultRepository,
	publisher ports.EventPublisher,
) *AnonymiseService {
	return &AnonymiseService{
		datasets:  datasets,
		jobs:      jobs,
		results:   results,
		publisher: publisher,
	}
}

// CreateJob validates parameters and registers a pending job. Invalid
// parameters are rejected here, before anything is queued; nothing is
// silently defaulted.
func (s *AnonymiseService) CreateJob(ctx context.Context, datasetID string, minPoints, tolerance int, policy domain.CandidatePolicy) (*domain.AnonymisationJob, error) {
	if minPoints <= 0 {
		return nil, &domain.InvalidParameterError{Name: "min_points", Value: float64(minPoints)}
	}
	if tolerance < 0 {
		return nil, &domain.InvalidParameterError{Name: "tolerance", Value: float64(tolerance)}
	}
	if len(policy.Resolutions) == 0 {
		if policy.StartCellSize <= 0 {
			return nil, &domain.InvalidParameterError{Name: "start_cell_size", Value: policy.StartCellSize}
		}
		if policy.MaxHalvings <= 0 {
			return nil, &domain.InvalidParameterError{Name: "max_halvings", Value: float64(policy.MaxHalvings)}
		}
	}
	for _, r := range policy.Resolutions {
		if r.CellWidth <= 0 {
			return nil, &domain.InvalidParameterError{Name: "cell_width", Value: r.CellWidth}
		}
		if r.CellHeight <= 0 {
			return nil, &domain.InvalidParameterError{Name: "cell_height", Value: r.CellHeight}
		}
	}

	// The dataset must exist before a job is accepted for it.
	if _, err := s.datasets.GetByID(ctx, datasetID); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", datasetID, err)
	}

	job := &domain.AnonymisationJob{
		DatasetID: datasetID,
		MinPoints: minPoints,
		Tolerance: tolerance,
		Policy:    policy,
		Status:    domain.JobPending,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// Run executes a job end to end: load the point set, search for the finest
// acceptable grid, persist the result, and publish the outcome. A
// NoSolutionError marks the job failed but is an algorithmic outcome, not a
// processing fault; the caller decides whether to relax the parameters and
// submit a new job.
func (s *AnonymiseService) Run(ctx context.Context, jobID string) (*domain.GridResult, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}

	if err := s.jobs.SetStatus(ctx, job.ID, domain.JobRunning, ""); err != nil {
		return nil, fmt.Errorf("mark running: %w", err)
	}

	ps, err := s.datasets.PointSet(ctx, job.DatasetID)
	if err != nil {
		return nil, s.fail(ctx, job, err)
	}

	result, err := grid.FindFinestGrid(ps, job.MinPoints, job.Tolerance, meteredSource{grid.SourceForPolicy(job.Policy)})
	if err != nil {
		return nil, s.fail(ctx, job, err)
	}

	if err := s.results.Save(ctx, job.ID, result); err != nil {
		return nil, s.fail(ctx, job, fmt.Errorf("save result: %w", err))
	}

	if err := s.jobs.SetStatus(ctx, job.ID, domain.JobCompleted, ""); err != nil {
		return nil, fmt.Errorf("mark completed: %w", err)
	}

	if s.publisher != nil {
		_ = s.publisher.PublishJobCompleted(ctx, &domain.JobEvent{
			JobID:     job.ID,
			DatasetID: job.DatasetID,
			Status:    domain.JobCompleted,
			Result:    result,
			Time:      time.Now(),
		})
	}

	return result, nil
}

// fail flips the job to failed, publishes the outcome, and passes the
// original error through.
func (s *AnonymiseService) fail(ctx context.Context, job *domain.AnonymisationJob, cause error) error {
	_ = s.jobs.SetStatus(ctx, job.ID, domain.JobFailed, cause.Error())

	if s.publisher != nil {
		_ = s.publisher.PublishJobFailed(ctx, &domain.JobEvent{
			JobID:     job.ID,
			DatasetID: job.DatasetID,
			Status:    domain.JobFailed,
			Reason:    cause.Error(),
			Time:      time.Now(),
		})
	}
	return cause
}

// GetJob returns a job by id.
func (s *AnonymiseService) GetJob(ctx context.Context, id string) (*domain.AnonymisationJob, error) {
	return s.jobs.GetByID(ctx, id)
}

// ListJobs returns the jobs submitted for a dataset.
func (s *AnonymiseService) ListJobs(ctx context.Context, datasetID string) ([]domain.AnonymisationJob, error) {
	return s.jobs.ListByDataset(ctx, datasetID)
}

// meteredSource counts candidate resolutions as the search draws them.
type meteredSource struct {
	inner grid.CandidateSource
}

func (m meteredSource) Next() (domain.GridResolution, bool) {
	res, ok := m.inner.Next()
	if ok {
		metrics.GridEvaluations.Inc()
	}
	return res, ok
}

// IsNoSolution reports whether err is the no-acceptable-grid outcome.
func IsNoSolution(err error) bool {
	var nserr *domain.NoSolutionError
	return errors.As(err, &nserr)
}
