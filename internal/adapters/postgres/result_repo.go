package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/gridveil/internal/core/domain"
)

// ResultRepo implements ports.ResultRepository with pgx.
type ResultRepo struct {
	db *DB
}

// NewResultRepo creates a new ResultRepo.
func NewResultRepo(db *DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// Save stores a grid result for a job, replacing any earlier attempt. The
// result row and its cell assignments are written in one transaction.
func (r *ResultRepo) Save(ctx context.Context, jobID string, result *domain.GridResult) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM grid_results WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("clear previous result: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO grid_results (job_id, cell_width, cell_height, discarded)
		VALUES ($1, $2, $3, $4)
	`, jobID, result.Resolution.CellWidth, result.Resolution.CellHeight, result.Discarded); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	batch := &pgx.Batch{}
	for pointID, cell := range result.Assignments {
		batch.Queue(`
			INSERT INTO cell_assignments (job_id, point_id, cell_x, cell_y)
			VALUES ($1, $2, $3, $4)
		`, jobID, pointID, cell.X, cell.Y)
	}
	br := tx.SendBatch(ctx, batch)
	for range result.Assignments {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByJob reconstructs a stored result, cell counts included.
func (r *ResultRepo) GetByJob(ctx context.Context, jobID string) (*domain.GridResult, error) {
	result := &domain.GridResult{
		Assignments: make(map[string]domain.Cell),
		CellCounts:  make(map[domain.Cell]int),
	}

	err := r.db.Pool.QueryRow(ctx, `
		SELECT cell_width, cell_height, discarded
		FROM grid_results WHERE job_id = $1
	`, jobID).Scan(&result.Resolution.CellWidth, &result.Resolution.CellHeight, &result.Discarded)
	if err != nil {
		return nil, err
	}
	if result.Discarded == nil {
		result.Discarded = []string{}
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT point_id, cell_x, cell_y
		FROM cell_assignments WHERE job_id = $1
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pointID string
			cell    domain.Cell
		)
		if err := rows.Scan(&pointID, &cell.X, &cell.Y); err != nil {
			return nil, err
		}
		result.Assignments[pointID] = cell
		result.CellCounts[cell]++
	}
	return result, rows.Err()
}

// CellCounts returns the per-cell population of a stored result.
func (r *ResultRepo) CellCounts(ctx context.Context, jobID string) (map[domain.Cell]int, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT cell_x, cell_y, COUNT(*)
		FROM cell_assignments
		WHERE job_id = $1
		GROUP BY cell_x, cell_y
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Cell]int)
	for rows.Next() {
		var (
			cell domain.Cell
			n    int
		)
		if err := rows.Scan(&cell.X, &cell.Y, &n); err != nil {
			return nil, err
		}
		counts[cell] = n
	}
	return counts, rows.Err()
}
