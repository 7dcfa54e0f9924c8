package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samirrijal/gridveil/internal/core/domain"
)

// JobRepo implements ports.JobRepository with pgx.
type JobRepo struct {
	db *DB
}

// NewJobRepo creates a new JobRepo.
func NewJobRepo(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

// Create inserts a pending job and fills in its generated ID and timestamp.
func (r *JobRepo) Create(ctx context.Context, job *domain.AnonymisationJob) error {
	policy, err := json.Marshal(job.Policy)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO anonymisation_jobs (dataset_id, min_points, tolerance, policy, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, job.DatasetID, job.MinPoints, job.Tolerance, policy, job.Status).
		Scan(&job.ID, &job.CreatedAt)
}

// GetByID returns a job by UUID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*domain.AnonymisationJob, error) {
	var (
		j      domain.AnonymisationJob
		policy []byte
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, dataset_id, min_points, tolerance, policy, status,
		       COALESCE(error, ''), created_at, completed_at
		FROM anonymisation_jobs WHERE id = $1
	`, id).Scan(
		&j.ID, &j.DatasetID, &j.MinPoints, &j.Tolerance, &policy, &j.Status,
		&j.Error, &j.CreatedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(policy, &j.Policy); err != nil {
		return nil, fmt.Errorf("unmarshal policy: %w", err)
	}
	return &j, nil
}

// ListByDataset returns a dataset's jobs, newest first.
func (r *JobRepo) ListByDataset(ctx context.Context, datasetID string) ([]domain.AnonymisationJob, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, dataset_id, min_points, tolerance, policy, status,
		       COALESCE(error, ''), created_at, completed_at
		FROM anonymisation_jobs
		WHERE dataset_id = $1
		ORDER BY created_at DESC
	`, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.AnonymisationJob
	for rows.Next() {
		var (
			j      domain.AnonymisationJob
			policy []byte
		)
		if err := rows.Scan(
			&j.ID, &j.DatasetID, &j.MinPoints, &j.Tolerance, &policy, &j.Status,
			&j.Error, &j.CreatedAt, &j.CompletedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(policy, &j.Policy); err != nil {
			return nil, fmt.Errorf("unmarshal policy: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// SetStatus transitions a job. Terminal statuses also set completed_at.
func (r *JobRepo) SetStatus(ctx context.Context, id, status, errMsg string) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE anonymisation_jobs
		SET status = $2,
		    error = NULLIF($3, ''),
		    completed_at = CASE WHEN $2 IN ('completed', 'failed') THEN now() ELSE NULL END
		WHERE id = $1
	`, id, status, errMsg)
	return err
}
