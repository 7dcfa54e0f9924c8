package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/gridveil/internal/core/domain"
	"github.com/samirrijal/gridveil/internal/core/ports"
	"github.com/samirrijal/gridveil/internal/core/usecases"
)

// --- Mock repositories ---

type mockDatasetRepo struct {
	getByIDFn   func(ctx context.Context, id string) (*domain.Dataset, error)
	getPointsFn func(ctx context.Context, datasetID string) ([]domain.Point, error)
	insertedIDs []string
}

func (m *mockDatasetRepo) Create(ctx context.Context, ds *domain.Dataset) error { return nil }
func (m *mockDatasetRepo) GetBySlug(ctx context.Context, slug string) (*domain.Dataset, error) {
	return nil, errors.New("not found")
}
func (m *mockDatasetRepo) List(ctx context.Context) ([]domain.Dataset, error) { return nil, nil }
func (m *mockDatasetRepo) Delete(ctx context.Context, id string) error        { return nil }

func (m *mockDatasetRepo) GetByID(ctx context.Context, id string) (*domain.Dataset, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &domain.Dataset{ID: id, Slug: "test"}, nil
}

func (m *mockDatasetRepo) InsertPoints(ctx context.Context, datasetID string, points []domain.Point) error {
	for _, p := range points {
		m.insertedIDs = append(m.insertedIDs, p.ID)
	}
	return nil
}

func (m *mockDatasetRepo) GetPoints(ctx context.Context, datasetID string) ([]domain.Point, error) {
	if m.getPointsFn != nil {
		return m.getPointsFn(ctx, datasetID)
	}
	return nil, nil
}

type mockJobRepo struct {
	jobs     map[string]*domain.AnonymisationJob
	statuses []string
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: make(map[string]*domain.AnonymisationJob)}
}

func (m *mockJobRepo) Create(ctx context.Context, job *domain.AnonymisationJob) error {
	if job.ID == "" {
		job.ID = "job-1"
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobRepo) GetByID(ctx context.Context, id string) (*domain.AnonymisationJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, errors.New("job not found")
	}
	return job, nil
}

func (m *mockJobRepo) ListByDataset(ctx context.Context, datasetID string) ([]domain.AnonymisationJob, error) {
	return nil, nil
}

func (m *mockJobRepo) SetStatus(ctx context.Context, id, status, errMsg string) error {
	m.statuses = append(m.statuses, status)
	if job, ok := m.jobs[id]; ok {
		job.Status = status
		job.Error = errMsg
	}
	return nil
}

type mockResultRepo struct {
	saved  *domain.GridResult
	saveFn func(ctx context.Context, jobID string, result *domain.GridResult) error
}

func (m *mockResultRepo) Save(ctx context.Context, jobID string, result *domain.GridResult) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, jobID, result)
	}
	m.saved = result
	return nil
}

func (m *mockResultRepo) GetByJob(ctx context.Context, jobID string) (*domain.GridResult, error) {
	if m.saved == nil {
		return nil, errors.New("no result")
	}
	return m.saved, nil
}

func (m *mockResultRepo) CellCounts(ctx context.Context, jobID string) (map[domain.Cell]int, error) {
	return nil, nil
}

type mockPublisher struct {
	completed []*domain.JobEvent
	failed    []*domain.JobEvent
}

func (m *mockPublisher) PublishJobCompleted(ctx context.Context, e *domain.JobEvent) error {
	m.completed = append(m.completed, e)
	return nil
}

func (m *mockPublisher) PublishJobFailed(ctx context.Context, e *domain.JobEvent) error {
	m.failed = append(m.failed, e)
	return nil
}

// --- Tests ---

func newService(datasets *mockDatasetRepo, jobs *mockJobRepo, results *mockResultRepo, pub *mockPublisher) *usecases.AnonymiseService {
	// Pass a true nil interface when pub is nil; a nil *mockPublisher wrapped
	// in the interface would defeat the service's publisher != nil guard.
	var publisher ports.EventPublisher
	if pub != nil {
		publisher = pub
	}
	return usecases.NewAnonymiseService(
		usecases.NewDatasetService(datasets, nil),
		jobs, results, publisher,
	)
}

func TestCreateJob_RejectsInvalidParameters(t *testing.T) {
	svc := newService(&mockDatasetRepo{}, newMockJobRepo(), &mockResultRepo{}, nil)
	policy := domain.CandidatePolicy{StartCellSize: 0.1, MaxHalvings: 5}

	cases := []struct {
		name      string
		minPoints int
		tolerance int
		policy    domain.CandidatePolicy
	}{
		{"zero min points", 0, 0, policy},
		{"negative tolerance", 3, -1, policy},
		{"zero start cell", 3, 0, domain.CandidatePolicy{MaxHalvings: 5}},
		{"zero halvings", 3, 0, domain.CandidatePolicy{StartCellSize: 0.1}},
		{"bad explicit resolution", 3, 0, domain.CandidatePolicy{
			Resolutions: []domain.GridResolution{{CellWidth: -1, CellHeight: 1}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateJob(context.Background(), "ds-1", tc.minPoints, tc.tolerance, tc.policy)
			var perr *domain.InvalidParameterError
			if !errors.As(err, &perr) {
				t.Fatalf("expected InvalidParameterError, got %v", err)
			}
		})
	}
}

func TestCreateJob_ReportsInvalidResolutionDimension(t *testing.T) {
	svc := newService(&mockDatasetRepo{}, newMockJobRepo(), &mockResultRepo{}, nil)

	_, err := svc.CreateJob(context.Background(), "ds-1", 3, 0, domain.CandidatePolicy{
		Resolutions: []domain.GridResolution{{CellWidth: 1, CellHeight: -0.5}},
	})
	var perr *domain.InvalidParameterError
	if !errors.As(err, &perr) {
		t.Fatalf("expected InvalidParameterError, got %v", err)
	}
	if perr.Name != "cell_height" || perr.Value != -0.5 {
		t.Errorf("expected cell_height=-0.5 to be reported, got %s=%g", perr.Name, perr.Value)
	}
}

func TestCreateJob_RequiresExistingDataset(t *testing.T) {
	datasets := &mockDatasetRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Dataset, error) {
			return nil, errors.New("not found")
		},
	}
	svc := newService(datasets, newMockJobRepo(), &mockResultRepo{}, nil)

	_, err := svc.CreateJob(context.Background(), "missing", 3, 0, domain.CandidatePolicy{StartCellSize: 0.1, MaxHalvings: 5})
	if err == nil {
		t.Fatal("expected error for missing dataset")
	}
}

func TestRun_CompletesAndPublishes(t *testing.T) {
	datasets := &mockDatasetRepo{
		getPointsFn: func(ctx context.Context, datasetID string) ([]domain.Point, error) {
			return []domain.Point{
				{ID: "1", Longitude: 0.01, Latitude: 0.01},
				{ID: "2", Longitude: 0.02, Latitude: 0.02},
				{ID: "3", Longitude: 0.03, Latitude: 0.03},
			}, nil
		},
	}
	jobs := newMockJobRepo()
	results := &mockResultRepo{}
	pub := &mockPublisher{}
	svc := newService(datasets, jobs, results, pub)

	job, err := svc.CreateJob(context.Background(), "ds-1", 3, 0, domain.CandidatePolicy{StartCellSize: 0.1, MaxHalvings: 3})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	result, err := svc.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if results.saved == nil {
		t.Fatal("result was not persisted")
	}
	if len(result.Assignments) != 3 {
		t.Errorf("expected 3 assignments, got %d", len(result.Assignments))
	}
	if len(pub.completed) != 1 {
		t.Fatalf("expected 1 completed event, got %d", len(pub.completed))
	}
	if pub.completed[0].JobID != job.ID {
		t.Errorf("event carries wrong job id %q", pub.completed[0].JobID)
	}
	if got := jobs.statuses; len(got) != 2 || got[0] != domain.JobRunning || got[1] != domain.JobCompleted {
		t.Errorf("unexpected status transitions %v", got)
	}
}

func TestRun_NoSolutionMarksFailed(t *testing.T) {
	datasets := &mockDatasetRepo{
		getPointsFn: func(ctx context.Context, datasetID string) ([]domain.Point, error) {
			// Two points can never satisfy min_points=3 with zero tolerance.
			return []domain.Point{
				{ID: "1", Longitude: 0, Latitude: 0},
				{ID: "2", Longitude: 0, Latitude: 0},
			}, nil
		},
	}
	jobs := newMockJobRepo()
	pub := &mockPublisher{}
	svc := newService(datasets, jobs, &mockResultRepo{}, pub)

	job, err := svc.CreateJob(context.Background(), "ds-1", 3, 0, domain.CandidatePolicy{StartCellSize: 1, MaxHalvings: 4})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	_, err = svc.Run(context.Background(), job.ID)
	if !usecases.IsNoSolution(err) {
		t.Fatalf("expected NoSolutionError, got %v", err)
	}

	if jobs.jobs[job.ID].Status != domain.JobFailed {
		t.Errorf("expected job failed, got %s", jobs.jobs[job.ID].Status)
	}
	if len(pub.failed) != 1 {
		t.Fatalf("expected 1 failed event, got %d", len(pub.failed))
	}
	if pub.failed[0].Reason == "" {
		t.Error("failed event is missing the reason")
	}
}

func TestRun_PersistFailureMarksFailed(t *testing.T) {
	datasets := &mockDatasetRepo{
		getPointsFn: func(ctx context.Context, datasetID string) ([]domain.Point, error) {
			return []domain.Point{
				{ID: "1", Longitude: 0, Latitude: 0},
				{ID: "2", Longitude: 0, Latitude: 0},
				{ID: "3", Longitude: 0, Latitude: 0},
			}, nil
		},
	}
	jobs := newMockJobRepo()
	results := &mockResultRepo{
		saveFn: func(ctx context.Context, jobID string, result *domain.GridResult) error {
			return errors.New("disk full")
		},
	}
	svc := newService(datasets, jobs, results, nil)

	job, _ := svc.CreateJob(context.Background(), "ds-1", 3, 0, domain.CandidatePolicy{StartCellSize: 1, MaxHalvings: 2})
	if _, err := svc.Run(context.Background(), job.ID); err == nil {
		t.Fatal("expected persist error")
	}
	if jobs.jobs[job.ID].Status != domain.JobFailed {
		t.Errorf("expected job failed after persist error, got %s", jobs.jobs[job.ID].Status)
	}
}
