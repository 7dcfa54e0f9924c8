package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samirrijal/gridveil/internal/core/domain"
	"github.com/samirrijal/gridveil/internal/core/ports"
)

// DatasetService handles dataset and point-ingestion business logic.
type DatasetService struct {
	datasets ports.DatasetRepository
	cache    ports.CacheService
}

// NewDatasetService creates a new DatasetService.
func NewDatasetService(datasets ports.DatasetRepository, cache ports.CacheService) *DatasetService {
	return &DatasetService{datasets: datasets, cache: cache}
}

// Create registers a new, empty dataset.
func (s *DatasetService) Create(ctx context.Context, slug, name string) (*domain.Dataset, error) {
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == "" {
		return nil, fmt.Errorf("dataset slug must not be empty")
	}
	if name == "" {
		name = slug
	}

	ds := &domain.Dataset{Slug: slug, Name: name}
	if err := s.datasets.Create(ctx, ds); err != nil {
		return nil, fmt.Errorf("create dataset: %w", err)
	}
	return ds, nil
}

// IngestPoints validates a batch of points and stores it. Validation is the
// load-time gate for the whole pipeline: a duplicate id or an out-of-range
// coordinate rejects the batch before anything is written.
func (s *DatasetService) IngestPoints(ctx context.Context, datasetID string, points []domain.Point) (int, error) {
	if len(points) == 0 {
		return 0, fmt.Errorf("no points in batch")
	}

	ps, err := domain.NewPointSet(points)
	if err != nil {
		return 0, err
	}

	if err := s.datasets.InsertPoints(ctx, datasetID, ps.Points()); err != nil {
		return 0, fmt.Errorf("insert points: %w", err)
	}

	// Dataset metadata changed; drop cached copies.
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "datasets:id:"+datasetID)
	}

	return ps.Len(), nil
}

// GetByID returns a single dataset.
func (s *DatasetService) GetByID(ctx context.Context, id string) (*domain.Dataset, error) {
	cacheKey := "datasets:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var ds domain.Dataset
			if err := json.Unmarshal(data, &ds); err == nil {
				return &ds, nil
			}
		}
	}

	ds, err := s.datasets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(ds); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}

	return ds, nil
}

// GetBySlug returns a single dataset by its slug.
func (s *DatasetService) GetBySlug(ctx context.Context, slug string) (*domain.Dataset, error) {
	return s.datasets.GetBySlug(ctx, slug)
}

// List returns all datasets.
func (s *DatasetService) List(ctx context.Context) ([]domain.Dataset, error) {
	return s.datasets.List(ctx)
}

// Delete removes a dataset and everything hanging off it.
func (s *DatasetService) Delete(ctx context.Context, id string) error {
	if err := s.datasets.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "datasets:id:"+id)
	}
	return nil
}

// PointSet loads a dataset's points as an immutable PointSet, ready for the
// resolution search. Stored points were validated on ingest, but the set is
// re-validated here so corrupted storage cannot smuggle a duplicate past
// the search.
func (s *DatasetService) PointSet(ctx context.Context, datasetID string) (*domain.PointSet, error) {
	points, err := s.datasets.GetPoints(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("load points: %w", err)
	}
	return domain.NewPointSet(points)
}
