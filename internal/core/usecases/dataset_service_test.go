package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/gridveil/internal/core/domain"
	"github.com/samirrijal/gridveil/internal/core/usecases"
)

func TestDatasetService_Create_NormalisesSlug(t *testing.T) {
	svc := usecases.NewDatasetService(&mockDatasetRepo{}, nil)

	ds, err := svc.Create(context.Background(), "  Exeter-PV  ", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Slug != "exeter-pv" {
		t.Errorf("expected normalised slug, got %q", ds.Slug)
	}
	if ds.Name != "exeter-pv" {
		t.Errorf("expected name to default to slug, got %q", ds.Name)
	}
}

func TestDatasetService_Create_EmptySlug(t *testing.T) {
	svc := usecases.NewDatasetService(&mockDatasetRepo{}, nil)
	if _, err := svc.Create(context.Background(), "   ", "name"); err == nil {
		t.Error("expected error for empty slug")
	}
}

func TestIngestPoints_RejectsDuplicateIDs(t *testing.T) {
	repo := &mockDatasetRepo{}
	svc := usecases.NewDatasetService(repo, nil)

	_, err := svc.IngestPoints(context.Background(), "ds-1", []domain.Point{
		{ID: "1", Longitude: 0, Latitude: 0},
		{ID: "1", Longitude: 1, Latitude: 1},
	})

	var derr *domain.DuplicateIDError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DuplicateIDError, got %v", err)
	}
	if derr.ID != "1" {
		t.Errorf("expected duplicate id 1, got %q", derr.ID)
	}
	if len(repo.insertedIDs) != 0 {
		t.Error("nothing should be written when validation fails")
	}
}

func TestIngestPoints_RejectsOutOfRange(t *testing.T) {
	repo := &mockDatasetRepo{}
	svc := usecases.NewDatasetService(repo, nil)

	_, err := svc.IngestPoints(context.Background(), "ds-1", []domain.Point{
		{ID: "1", Longitude: 181, Latitude: 0},
	})

	var rerr *domain.OutOfRangeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected OutOfRangeError, got %v", err)
	}
	if len(repo.insertedIDs) != 0 {
		t.Error("nothing should be written when validation fails")
	}
}

func TestIngestPoints_StoresValidBatch(t *testing.T) {
	repo := &mockDatasetRepo{}
	svc := usecases.NewDatasetService(repo, nil)

	n, err := svc.IngestPoints(context.Background(), "ds-1", []domain.Point{
		{ID: "1", Longitude: -3.53, Latitude: 50.72},
		{ID: "2", Longitude: -3.54, Latitude: 50.73},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 || len(repo.insertedIDs) != 2 {
		t.Errorf("expected 2 stored points, got n=%d stored=%d", n, len(repo.insertedIDs))
	}
}

func TestPointSet_PropagatesValidation(t *testing.T) {
	repo := &mockDatasetRepo{
		getPointsFn: func(ctx context.Context, datasetID string) ([]domain.Point, error) {
			// Simulates corrupted storage with a duplicated id.
			return []domain.Point{{ID: "x"}, {ID: "x"}}, nil
		},
	}
	svc := usecases.NewDatasetService(repo, nil)

	_, err := svc.PointSet(context.Background(), "ds-1")
	var derr *domain.DuplicateIDError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DuplicateIDError, got %v", err)
	}
}
