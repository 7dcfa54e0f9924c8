package ports

import (
	"context"

	"github.com/samirrijal/gridveil/internal/core/domain"
)

// DatasetRepository persists datasets and their points.
type DatasetRepository interface {
	Create(ctx context.Context, ds *domain.Dataset) error
	GetByID(ctx context.Context, id string) (*domain.Dataset, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Dataset, error)
	List(ctx context.Context) ([]domain.Dataset, error)
	Delete(ctx context.Context, id string) error

	// InsertPoints bulk-inserts validated points for a dataset and
	// refreshes the stored point count and extent.
	InsertPoints(ctx context.Context, datasetID string, points []domain.Point) error
	// GetPoints returns every point of a dataset in insertion order.
	GetPoints(ctx context.Context, datasetID string) ([]domain.Point, error)
}

// JobRepository persists anonymisation jobs.
type JobRepository interface {
	Create(ctx context.Context, job *domain.AnonymisationJob) error
	GetByID(ctx context.Context, id string) (*domain.AnonymisationJob, error)
	ListByDataset(ctx context.Context, datasetID string) ([]domain.AnonymisationJob, error)
	// SetStatus transitions a job; errMsg is stored for failed jobs.
	SetStatus(ctx context.Context, id, status, errMsg string) error
}

// ResultRepository persists the outcome of completed jobs.
type ResultRepository interface {
	// Save stores a grid result (resolution, cell assignments, discard
	// list) for a job, replacing any earlier attempt.
	Save(ctx context.Context, jobID string, result *domain.GridResult) error
	GetByJob(ctx context.Context, jobID string) (*domain.GridResult, error)
	// CellCounts returns the per-cell population of a stored result.
	CellCounts(ctx context.Context, jobID string) (map[domain.Cell]int, error)
}
