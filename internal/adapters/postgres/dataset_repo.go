package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/gridveil/internal/core/domain"
)

// DatasetRepo implements ports.DatasetRepository with pgx.
type DatasetRepo struct {
	db *DB
}

// NewDatasetRepo creates a new DatasetRepo.
func NewDatasetRepo(db *DB) *DatasetRepo {
	return &DatasetRepo{db: db}
}

const datasetColumns = `
	d.id, d.slug, d.name, d.created_at,
	COUNT(p.point_id) AS point_count,
	ST_XMin(ST_Extent(p.location::geometry)) AS min_lon,
	ST_YMin(ST_Extent(p.location::geometry)) AS min_lat,
	ST_XMax(ST_Extent(p.location::geometry)) AS max_lon,
	ST_YMax(ST_Extent(p.location::geometry)) AS max_lat`

// Create inserts a dataset and fills in its generated ID and timestamp.
func (r *DatasetRepo) Create(ctx context.Context, ds *domain.Dataset) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO datasets (slug, name)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, ds.Slug, ds.Name).Scan(&ds.ID, &ds.CreatedAt)
}

// GetByID returns a dataset by UUID, with its point count and extent.
func (r *DatasetRepo) GetByID(ctx context.Context, id string) (*domain.Dataset, error) {
	return r.getOne(ctx, `d.id = $1`, id)
}

// GetBySlug returns a dataset by slug.
func (r *DatasetRepo) GetBySlug(ctx context.Context, slug string) (*domain.Dataset, error) {
	return r.getOne(ctx, `d.slug = $1`, slug)
}

func (r *DatasetRepo) getOne(ctx context.Context, where string, arg any) (*domain.Dataset, error) {
	var (
		ds                             domain.Dataset
		minLon, minLat, maxLon, maxLat *float64
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT `+datasetColumns+`
		FROM datasets d
		LEFT JOIN dataset_points p ON p.dataset_id = d.id
		WHERE `+where+`
		GROUP BY d.id
	`, arg).Scan(
		&ds.ID, &ds.Slug, &ds.Name, &ds.CreatedAt,
		&ds.PointCount, &minLon, &minLat, &maxLon, &maxLat,
	)
	if err != nil {
		return nil, err
	}
	if minLon != nil {
		ds.Extent = &domain.Bounds{MinLon: *minLon, MinLat: *minLat, MaxLon: *maxLon, MaxLat: *maxLat}
	}
	return &ds, nil
}

// List returns all datasets, newest first.
func (r *DatasetRepo) List(ctx context.Context) ([]domain.Dataset, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+datasetColumns+`
		FROM datasets d
		LEFT JOIN dataset_points p ON p.dataset_id = d.id
		GROUP BY d.id
		ORDER BY d.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []domain.Dataset
	for rows.Next() {
		var (
			ds                             domain.Dataset
			minLon, minLat, maxLon, maxLat *float64
		)
		if err := rows.Scan(
			&ds.ID, &ds.Slug, &ds.Name, &ds.CreatedAt,
			&ds.PointCount, &minLon, &minLat, &maxLon, &maxLat,
		); err != nil {
			return nil, err
		}
		if minLon != nil {
			ds.Extent = &domain.Bounds{MinLon: *minLon, MinLat: *minLat, MaxLon: *maxLon, MaxLat: *maxLat}
		}
		datasets = append(datasets, ds)
	}
	return datasets, rows.Err()
}

// Delete removes a dataset; points, jobs and results cascade.
func (r *DatasetRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// InsertPoints bulk-inserts points using pgx.Batch.
func (r *DatasetRepo) InsertPoints(ctx context.Context, datasetID string, points []domain.Point) error {
	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(`
			INSERT INTO dataset_points (dataset_id, point_id, location)
			VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography)
		`, datasetID, p.ID, p.Longitude, p.Latitude)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range points {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// GetPoints returns every point of a dataset in insertion order.
func (r *DatasetRepo) GetPoints(ctx context.Context, datasetID string) ([]domain.Point, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT point_id,
		       ST_X(location::geometry) AS lon,
		       ST_Y(location::geometry) AS lat
		FROM dataset_points
		WHERE dataset_id = $1
		ORDER BY seq
	`, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.Point
	for rows.Next() {
		var p domain.Point
		if err := rows.Scan(&p.ID, &p.Longitude, &p.Latitude); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
