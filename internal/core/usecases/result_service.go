package usecases

import (
	"context"
	"encoding/json"

	"github.com/samirrijal/gridveil/internal/core/domain"
	"github.com/samirrijal/gridveil/internal/core/ports"
)

// ResultService serves stored grid results with read-through caching.
type ResultService struct {
	results ports.ResultRepository
	cache   ports.CacheService
}

// NewResultService creates a new ResultService.
func NewResultService(results ports.ResultRepository, cache ports.CacheService) *ResultService {
	return &ResultService{results: results, cache: cache}
}

// GetByJob returns the grid result of a completed job.
func (s *ResultService) GetByJob(ctx context.Context, jobID string) (*domain.GridResult, error) {
	cacheKey := "results:job:" + jobID
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var result domain.GridResult
			if err := json.Unmarshal(data, &result); err == nil {
				// CellCounts is not serialised; rebuild it from the
				// assignments so cached and repo-loaded results agree.
				result.CellCounts = make(map[domain.Cell]int, len(result.Assignments))
				for _, cell := range result.Assignments {
					result.CellCounts[cell]++
				}
				return &result, nil
			}
		}
	}

	result, err := s.results.GetByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	// Results are immutable once written; cache them for an hour.
	if s.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 3600)
		}
	}

	return result, nil
}

// CellCounts returns the per-cell population of a stored result, keyed by
// cell indices.
func (s *ResultService) CellCounts(ctx context.Context, jobID string) (map[domain.Cell]int, error) {
	return s.results.CellCounts(ctx, jobID)
}
