package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/gridveil/internal/core/domain"
	"github.com/samirrijal/gridveil/internal/core/usecases"
)

type mockCache struct {
	entries map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := m.entries[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return data, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.entries[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

type countingResultRepo struct {
	result *domain.GridResult
	gets   int
}

func (r *countingResultRepo) Save(ctx context.Context, jobID string, result *domain.GridResult) error {
	r.result = result
	return nil
}

func (r *countingResultRepo) GetByJob(ctx context.Context, jobID string) (*domain.GridResult, error) {
	r.gets++
	if r.result == nil {
		return nil, errors.New("no result")
	}
	return r.result, nil
}

func (r *countingResultRepo) CellCounts(ctx context.Context, jobID string) (map[domain.Cell]int, error) {
	return nil, nil
}

func TestGetByJob_CachedResultKeepsCellCounts(t *testing.T) {
	cell := domain.Cell{X: 1800, Y: 900}
	repo := &countingResultRepo{result: &domain.GridResult{
		Resolution: domain.GridResolution{CellWidth: 0.1, CellHeight: 0.1},
		Discarded:  []string{},
		Assignments: map[string]domain.Cell{
			"a": cell, "b": cell, "c": cell,
		},
		CellCounts: map[domain.Cell]int{cell: 3},
	}}
	svc := usecases.NewResultService(repo, newMockCache())

	cold, err := svc.GetByJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("cold read: %v", err)
	}

	warm, err := svc.GetByJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("warm read: %v", err)
	}
	if repo.gets != 1 {
		t.Fatalf("expected the warm read to be served from cache, repository hit %d times", repo.gets)
	}

	if len(warm.CellCounts) != len(cold.CellCounts) {
		t.Fatalf("cell counts changed across the cache: cold %d cells, warm %d cells",
			len(cold.CellCounts), len(warm.CellCounts))
	}
	if warm.CellCounts[cell] != 3 {
		t.Errorf("expected cell %v to hold 3 points, got %d", cell, warm.CellCounts[cell])
	}
	if len(warm.Assignments) != 3 || warm.Discarded == nil {
		t.Errorf("warm read mangled the result: %+v", warm)
	}
}

func TestGetByJob_NilCacheFallsThrough(t *testing.T) {
	cell := domain.Cell{X: 0, Y: 0}
	repo := &countingResultRepo{result: &domain.GridResult{
		Resolution:  domain.GridResolution{CellWidth: 1, CellHeight: 1},
		Discarded:   []string{},
		Assignments: map[string]domain.Cell{"a": cell},
		CellCounts:  map[domain.Cell]int{cell: 1},
	}}
	svc := usecases.NewResultService(repo, nil)

	for i := 0; i < 2; i++ {
		if _, err := svc.GetByJob(context.Background(), "job-1"); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
	}
	if repo.gets != 2 {
		t.Errorf("expected every read to hit the repository without a cache, got %d", repo.gets)
	}
}
