package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/gridveil/internal/adapters/http"
	"github.com/samirrijal/gridveil/internal/core/domain"
	"github.com/samirrijal/gridveil/internal/core/usecases"
	"github.com/samirrijal/gridveil/internal/pkg/config"
)

// ---- Mock repositories ----

type mockDatasetRepo struct {
	createFn     func(ctx context.Context, ds *domain.Dataset) error
	getBySlugFn  func(ctx context.Context, slug string) (*domain.Dataset, error)
	getByIDFn    func(ctx context.Context, id string) (*domain.Dataset, error)
	listFn       func(ctx context.Context) ([]domain.Dataset, error)
	insertFn     func(ctx context.Context, datasetID string, points []domain.Point) error
	getPointsFn  func(ctx context.Context, datasetID string) ([]domain.Point, error)
	deleteCalled bool
}

func (m *mockDatasetRepo) Create(ctx context.Context, ds *domain.Dataset) error {
	if m.createFn != nil {
		return m.createFn(ctx, ds)
	}
	ds.ID = "ds-1"
	return nil
}
func (m *mockDatasetRepo) GetByID(ctx context.Context, id string) (*domain.Dataset, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &domain.Dataset{ID: id}, nil
}
func (m *mockDatasetRepo) GetBySlug(ctx context.Context, slug string) (*domain.Dataset, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, fmt.Errorf("no rows")
}
func (m *mockDatasetRepo) List(ctx context.Context) ([]domain.Dataset, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}
func (m *mockDatasetRepo) Delete(ctx context.Context, id string) error {
	m.deleteCalled = true
	return nil
}
func (m *mockDatasetRepo) InsertPoints(ctx context.Context, datasetID string, points []domain.Point) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, datasetID, points)
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
	createFn      func(ctx context.Context, job *domain.AnonymisationJob) error
	getByIDFn     func(ctx context.Context, id string) (*domain.AnonymisationJob, error)
	listByDatasFn func(ctx context.Context, datasetID string) ([]domain.AnonymisationJob, error)
}

func (m *mockJobRepo) Create(ctx context.Context, job *domain.AnonymisationJob) error {
	if m.createFn != nil {
		return m.createFn(ctx, job)
	}
	job.ID = "job-1"
	return nil
}
func (m *mockJobRepo) GetByID(ctx context.Context, id string) (*domain.AnonymisationJob, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, fmt.Errorf("no rows")
}
func (m *mockJobRepo) ListByDataset(ctx context.Context, datasetID string) ([]domain.AnonymisationJob, error) {
	if m.listByDatasFn != nil {
		return m.listByDatasFn(ctx, datasetID)
	}
	return nil, nil
}
func (m *mockJobRepo) SetStatus(ctx context.Context, id, status, errMsg string) error { return nil }

type mockResultRepo struct {
	getByJobFn func(ctx context.Context, jobID string) (*domain.GridResult, error)
}

func (m *mockResultRepo) Save(ctx context.Context, jobID string, result *domain.GridResult) error {
	return nil
}
func (m *mockResultRepo) GetByJob(ctx context.Context, jobID string) (*domain.GridResult, error) {
	if m.getByJobFn != nil {
		return m.getByJobFn(ctx, jobID)
	}
	return nil, fmt.Errorf("no rows")
}
func (m *mockResultRepo) CellCounts(ctx context.Context, jobID string) (map[domain.Cell]int, error) {
	return nil, nil
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	datasets := usecases.NewDatasetService(&mockDatasetRepo{}, nil)
	d := &handler.Dependencies{
		Datasets:  datasets,
		Anonymise: usecases.NewAnonymiseService(datasets, &mockJobRepo{}, &mockResultRepo{}, nil),
		Results:   usecases.NewResultService(&mockResultRepo{}, nil),
		Defaults: config.AnonymiseConfig{
			MinPoints:     3,
			Tolerance:     0,
			StartCellSize: 0.1,
			MaxHalvings:   8,
		},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

// ---- Dataset handler tests ----

func TestListDatasets_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Datasets = usecases.NewDatasetService(&mockDatasetRepo{
			listFn: func(ctx context.Context) ([]domain.Dataset, error) {
				return []domain.Dataset{
					{ID: "d1", Slug: "gp-surgeries", Name: "GP Surgeries"},
					{ID: "d2", Slug: "charge-points", Name: "Charge Points"},
				}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/datasets", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Dataset `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 2 {
		t.Errorf("expected total 2, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 datasets, got %d", len(result.Data))
	}
}

func TestListDatasets_Pagination(t *testing.T) {
	datasets := make([]domain.Dataset, 5)
	for i := range datasets {
		datasets[i] = domain.Dataset{ID: fmt.Sprintf("d%d", i), Slug: fmt.Sprintf("set-%d", i)}
	}

	deps := makeDeps(func(d *handler.Dependencies) {
		d.Datasets = usecases.NewDatasetService(&mockDatasetRepo{
			listFn: func(ctx context.Context) ([]domain.Dataset, error) { return datasets, nil },
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/datasets?offset=2&limit=2", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Dataset `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 datasets in page, got %d", len(result.Data))
	}
	if result.Pagination.Offset != 2 {
		t.Errorf("expected offset 2, got %d", result.Pagination.Offset)
	}
}

func TestCreateDataset_Success(t *testing.T) {
	app := setupApp(makeDeps())

	body := strings.NewReader(`{"slug":"GP-Surgeries","name":"GP Surgeries"}`)
	req := httptest.NewRequest("POST", "/v1/datasets", body)
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var ds domain.Dataset
	json.NewDecoder(resp.Body).Decode(&ds)
	if ds.Slug != "gp-surgeries" {
		t.Errorf("expected normalised slug gp-surgeries, got %s", ds.Slug)
	}
}

func TestCreateDataset_EmptySlug(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/datasets", strings.NewReader(`{"slug":""}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetDataset_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/datasets/nonexistent", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Status int    `json:"status"`
		Code   string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "not_found" {
		t.Errorf("expected not_found error, got %s", apiErr.Code)
	}
}

func TestGetDataset_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Datasets = usecases.NewDatasetService(&mockDatasetRepo{
			getBySlugFn: func(ctx context.Context, slug string) (*domain.Dataset, error) {
				return &domain.Dataset{ID: "d1", Slug: slug, Name: "GP Surgeries", PointCount: 42}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/datasets/gp-surgeries", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var ds domain.Dataset
	json.NewDecoder(resp.Body).Decode(&ds)
	if ds.PointCount != 42 {
		t.Errorf("expected 42 points, got %d", ds.PointCount)
	}
}

// ---- Point upload tests ----

func datasetWith(slug string) *mockDatasetRepo {
	return &mockDatasetRepo{
		getBySlugFn: func(ctx context.Context, s string) (*domain.Dataset, error) {
			if s == slug {
				return &domain.Dataset{ID: "d1", Slug: slug}, nil
			}
			return nil, fmt.Errorf("no rows")
		},
	}
}

func TestUploadPoints_JSON(t *testing.T) {
	repo := datasetWith("surgeries")
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Datasets = usecases.NewDatasetService(repo, nil)
	})
	app := setupApp(deps)

	body := strings.NewReader(`[
		{"id":"a","longitude":-2.93,"latitude":43.26},
		{"id":"b","longitude":-2.94,"latitude":43.27}
	]`)
	req := httptest.NewRequest("POST", "/v1/datasets/surgeries/points", body)
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var result struct {
		Ingested int `json:"ingested"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Ingested != 2 {
		t.Errorf("expected 2 ingested, got %d", result.Ingested)
	}
}

func TestUploadPoints_CSV(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Datasets = usecases.NewDatasetService(datasetWith("surgeries"), nil)
	})
	app := setupApp(deps)

	body := strings.NewReader("id,longitude,latitude\na,-2.93,43.26\nb,-2.94,43.27\n")
	req := httptest.NewRequest("POST", "/v1/datasets/surgeries/points", body)
	req.Header.Set("Content-Type", "text/csv")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
}

func TestUploadPoints_CSVBadHeader(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Datasets = usecases.NewDatasetService(datasetWith("surgeries"), nil)
	})
	app := setupApp(deps)

	body := strings.NewReader("name,x,y\na,-2.93,43.26\n")
	req := httptest.NewRequest("POST", "/v1/datasets/surgeries/points", body)
	req.Header.Set("Content-Type", "text/csv")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUploadPoints_DuplicateIDRejected(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Datasets = usecases.NewDatasetService(datasetWith("surgeries"), nil)
	})
	app := setupApp(deps)

	body := strings.NewReader(`[
		{"id":"a","longitude":-2.93,"latitude":43.26},
		{"id":"a","longitude":-2.94,"latitude":43.27}
	]`)
	req := httptest.NewRequest("POST", "/v1/datasets/surgeries/points", body)
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "unprocessable" {
		t.Errorf("expected unprocessable error, got %s", apiErr.Code)
	}
}

func TestUploadPoints_OutOfRangeRejected(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Datasets = usecases.NewDatasetService(datasetWith("surgeries"), nil)
	})
	app := setupApp(deps)

	body := strings.NewReader(`[{"id":"a","longitude":-200,"latitude":43.26}]`)
	req := httptest.NewRequest("POST", "/v1/datasets/surgeries/points", body)
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestUploadPoints_EmptyBatch(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Datasets = usecases.NewDatasetService(datasetWith("surgeries"), nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/datasets/surgeries/points", strings.NewReader(`[]`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Job handler tests ----

type recordingStarter struct {
	started []string
}

func (r *recordingStarter) StartJob(ctx context.Context, jobID string) error {
	r.started = append(r.started, jobID)
	return nil
}

func TestCreateJob_AppliesDefaultsAndStarts(t *testing.T) {
	starter := &recordingStarter{}
	var captured *domain.AnonymisationJob
	deps := makeDeps(func(d *handler.Dependencies) {
		datasets := usecases.NewDatasetService(datasetWith("surgeries"), nil)
		d.Datasets = datasets
		d.Anonymise = usecases.NewAnonymiseService(datasets, &mockJobRepo{
			createFn: func(ctx context.Context, job *domain.AnonymisationJob) error {
				job.ID = "job-9"
				captured = job
				return nil
			},
		}, &mockResultRepo{}, nil)
		d.Runner = starter
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/datasets/surgeries/jobs", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 202 {
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	if captured == nil {
		t.Fatal("job was not created")
	}
	if captured.MinPoints != 3 {
		t.Errorf("expected default min_points 3, got %d", captured.MinPoints)
	}
	if captured.Policy.StartCellSize != 0.1 {
		t.Errorf("expected default start cell size 0.1, got %g", captured.Policy.StartCellSize)
	}
	if len(starter.started) != 1 || starter.started[0] != "job-9" {
		t.Errorf("expected runner to start job-9, got %v", starter.started)
	}
}

func TestCreateJob_InvalidTolerance(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		datasets := usecases.NewDatasetService(datasetWith("surgeries"), nil)
		d.Datasets = datasets
		d.Anonymise = usecases.NewAnonymiseService(datasets, &mockJobRepo{}, &mockResultRepo{}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/datasets/surgeries/jobs",
		strings.NewReader(`{"tolerance":-1}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateJob_DatasetNotFound(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/datasets/nope/jobs", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetJob_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		datasets := usecases.NewDatasetService(&mockDatasetRepo{}, nil)
		d.Anonymise = usecases.NewAnonymiseService(datasets, &mockJobRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.AnonymisationJob, error) {
				return &domain.AnonymisationJob{ID: id, Status: domain.JobCompleted}, nil
			},
		}, &mockResultRepo{}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/jobs/job-1", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var job domain.AnonymisationJob
	json.NewDecoder(resp.Body).Decode(&job)
	if job.Status != domain.JobCompleted {
		t.Errorf("expected completed, got %s", job.Status)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/jobs/bad-id", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Result handler tests ----

func resultFixture() *domain.GridResult {
	return &domain.GridResult{
		Resolution: domain.GridResolution{CellWidth: 0.1, CellHeight: 0.1},
		Discarded:  []string{"x"},
		Assignments: map[string]domain.Cell{
			"a": {X: 1770, Y: 1332},
			"b": {X: 1770, Y: 1332},
			"c": {X: 1770, Y: 1332},
		},
		CellCounts: map[domain.Cell]int{
			{X: 1770, Y: 1332}: 3,
		},
	}
}

func TestGetResult_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Results = usecases.NewResultService(&mockResultRepo{
			getByJobFn: func(ctx context.Context, jobID string) (*domain.GridResult, error) {
				return resultFixture(), nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/jobs/job-1/result", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result domain.GridResult
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Resolution.CellWidth != 0.1 {
		t.Errorf("expected cell width 0.1, got %g", result.Resolution.CellWidth)
	}
	if len(result.Discarded) != 1 {
		t.Errorf("expected 1 discarded id, got %d", len(result.Discarded))
	}

	cc := resp.Header.Get("Cache-Control")
	if cc != "public, max-age=3600" {
		t.Errorf("expected long-lived Cache-Control, got %q", cc)
	}
}

func TestGetResult_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/jobs/job-1/result", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestResultCells_BoundsAndCounts(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Results = usecases.NewResultService(&mockResultRepo{
			getByJobFn: func(ctx context.Context, jobID string) (*domain.GridResult, error) {
				return resultFixture(), nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/jobs/job-1/cells", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Resolution domain.GridResolution `json:"resolution"`
		Cells      []struct {
			X      int     `json:"x"`
			Y      int     `json:"y"`
			Count  int     `json:"count"`
			MinLon float64 `json:"min_lon"`
			MaxLon float64 `json:"max_lon"`
		} `json:"cells"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Cells) != 1 {
		t.Fatalf("expected 1 cell, got %d", len(result.Cells))
	}
	cell := result.Cells[0]
	if cell.Count != 3 {
		t.Errorf("expected count 3, got %d", cell.Count)
	}
	// Cell 1770 at width 0.1 from origin -180 starts at -3.0
	if cell.MinLon != -3.0 {
		t.Errorf("expected min_lon -3.0, got %g", cell.MinLon)
	}
	if cell.MaxLon != -2.9 {
		t.Errorf("expected max_lon -2.9, got %g", cell.MaxLon)
	}
}

func TestDiscarded_DeprecationHeaders(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Results = usecases.NewResultService(&mockResultRepo{
			getByJobFn: func(ctx context.Context, jobID string) (*domain.GridResult, error) {
				return resultFixture(), nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/jobs/job-1/discarded", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if resp.Header.Get("Deprecation") != "true" {
		t.Error("expected Deprecation header on legacy route")
	}
	if resp.Header.Get("Sunset") == "" {
		t.Error("expected Sunset header on legacy route")
	}
}

// ---- Health handler tests ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result["status"])
	}
}

func TestReady_NoDB(t *testing.T) {
	deps := makeDeps()
	// DB, NATS, Cache are nil → should report not ready
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/ready", nil)
	resp, _ := app.Test(req, -1)
	// With nil DB, ready should return 503
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

// ---- X-API-Version header ----

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	v := resp.Header.Get("X-API-Version")
	if v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
}

// ---- Link header on pagination ----

func TestListDatasets_LinkHeader(t *testing.T) {
	datasets := make([]domain.Dataset, 10)
	for i := range datasets {
		datasets[i] = domain.Dataset{ID: fmt.Sprintf("d%d", i), Slug: fmt.Sprintf("set-%d", i)}
	}

	deps := makeDeps(func(d *handler.Dependencies) {
		d.Datasets = usecases.NewDatasetService(&mockDatasetRepo{
			listFn: func(ctx context.Context) ([]domain.Dataset, error) { return datasets, nil },
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/datasets?offset=0&limit=3", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	link := resp.Header.Get("Link")
	if link == "" {
		t.Fatal("expected Link header, got empty")
	}
	// Should contain rel="next"
	if !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected next link, got %s", link)
	}
	if !strings.Contains(link, `rel="first"`) {
		t.Errorf("expected first link, got %s", link)
	}
	if !strings.Contains(link, `rel="last"`) {
		t.Errorf("expected last link, got %s", link)
	}
}

// TestAccessLogMiddleware verifies structured access logging is emitted.
func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()

	// Register middleware
	app.Use(handler.AccessLogMiddleware())

	// Simple test route
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	// Make request
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "test-req-123")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	// Verify response body
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", string(body))
	}
}
