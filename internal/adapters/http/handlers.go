package http

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/samirrijal/gridveil/internal/core/domain"
	"github.com/samirrijal/gridveil/internal/pkg/geospatial"
	"github.com/samirrijal/gridveil/internal/pkg/metrics"
)

// ServiceStats holds row counts across the anonymisation tables.
type ServiceStats struct {
	Datasets   int    `json:"datasets"`
	Points     int    `json:"points"`
	Jobs       int    `json:"jobs"`
	Results    int    `json:"results"`
	LastUpload string `json:"last_upload,omitempty"`
}

// StatsHandler returns row counts from the anonymisation tables.
func StatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats ServiceStats
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(*) FROM datasets),
				(SELECT count(*) FROM dataset_points),
				(SELECT count(*) FROM anonymisation_jobs),
				(SELECT count(*) FROM grid_results),
				COALESCE((SELECT max(created_at)::text FROM datasets), '')
		`)
		if err := row.Scan(&stats.Datasets, &stats.Points, &stats.Jobs,
			&stats.Results, &stats.LastUpload); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}

// ListDatasetsHandler returns all datasets.
func ListDatasetsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		datasets, err := deps.Datasets.List(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}

		// Apply offset/limit pagination on the full list
		offset, limit := ParsePagination(c, 100, 200)

		total := len(datasets)
		if offset >= total {
			datasets = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			datasets = datasets[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: datasets, Pagination: pg})
	}
}

// CreateDatasetHandler registers a new, empty dataset.
func CreateDatasetHandler(deps *Dependencies) fiber.Handler {
	type createRequest struct {
		Slug string `json:"slug"`
		Name string `json:"name"`
	}

	return func(c *fiber.Ctx) error {
		var req createRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		ds, err := deps.Datasets.Create(c.Context(), req.Slug, req.Name)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return errConflict(c, "dataset slug already exists")
			}
			var invalid *domain.InvalidParameterError
			if errors.As(err, &invalid) {
				return errBadRequest(c, invalid.Error())
			}
			return errInternal(c, err.Error())
		}

		return c.Status(201).JSON(ds)
	}
}

// GetDatasetHandler returns a single dataset by slug.
func GetDatasetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if slug == "" {
			return errBadRequest(c, "dataset slug is required")
		}
		ds, err := deps.Datasets.GetBySlug(c.Context(), slug)
		if err != nil {
			return errNotFound(c, "dataset not found")
		}
		return c.JSON(ds)
	}
}

// DeleteDatasetHandler removes a dataset with its points, jobs, and results.
func DeleteDatasetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if slug == "" {
			return errBadRequest(c, "dataset slug is required")
		}
		ds, err := deps.Datasets.GetBySlug(c.Context(), slug)
		if err != nil {
			return errNotFound(c, "dataset not found")
		}
		if err := deps.Datasets.Delete(c.Context(), ds.ID); err != nil {
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// UploadPointsHandler ingests a batch of points into a dataset. The body is
// either a JSON array of points or CSV with an id,longitude,latitude header.
// The whole batch is validated before anything is stored: a duplicate ID or
// an out-of-range coordinate rejects the entire upload.
func UploadPointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if slug == "" {
			return errBadRequest(c, "dataset slug is required")
		}
		ds, err := deps.Datasets.GetBySlug(c.Context(), slug)
		if err != nil {
			return errNotFound(c, "dataset not found")
		}

		var points []domain.Point
		if strings.Contains(c.Get(fiber.HeaderContentType), "csv") {
			points, err = parseCSVPoints(c.Body())
			if err != nil {
				return errBadRequest(c, err.Error())
			}
		} else {
			if err := c.BodyParser(&points); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}
		if len(points) == 0 {
			return errBadRequest(c, "at least one point is required")
		}

		n, err := deps.Datasets.IngestPoints(c.Context(), ds.ID, points)
		if err != nil {
			var dup *domain.DuplicateIDError
			var oor *domain.OutOfRangeError
			if errors.As(err, &dup) || errors.As(err, &oor) {
				return errUnprocessable(c, err.Error())
			}
			return errInternal(c, err.Error())
		}

		metrics.PointsIngested.WithLabelValues(ds.Slug).Add(float64(n))
		return c.Status(201).JSON(fiber.Map{"ingested": n})
	}
}

// parseCSVPoints reads id,longitude,latitude rows. The header row is
// required and names the columns; order does not matter.
func parseCSVPoints(body []byte) ([]domain.Point, error) {
	r := csv.NewReader(strings.NewReader(string(body)))
	header, err := r.Read()
	if err != nil {
		return nil, errors.New("missing CSV header")
	}

	idx := map[string]int{}
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	idCol, okID := idx["id"]
	lonCol, okLon := idx["longitude"]
	latCol, okLat := idx["latitude"]
	if !okID || !okLon || !okLat {
		return nil, errors.New("CSV header must contain id, longitude, latitude")
	}

	var points []domain.Point
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		lon, err := strconv.ParseFloat(rec[lonCol], 64)
		if err != nil {
			return nil, errors.New("invalid longitude: " + rec[lonCol])
		}
		lat, err := strconv.ParseFloat(rec[latCol], 64)
		if err != nil {
			return nil, errors.New("invalid latitude: " + rec[latCol])
		}
		points = append(points, domain.Point{ID: rec[idCol], Longitude: lon, Latitude: lat})
	}
	return points, nil
}

// ListJobsHandler returns the anonymisation jobs of a dataset, newest first.
func ListJobsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if slug == "" {
			return errBadRequest(c, "dataset slug is required")
		}
		ds, err := deps.Datasets.GetBySlug(c.Context(), slug)
		if err != nil {
			return errNotFound(c, "dataset not found")
		}
		jobs, err := deps.Anonymise.ListJobs(c.Context(), ds.ID)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(jobs)
	}
}

// CreateJobHandler creates an anonymisation job and hands it to the runner.
// Unset parameters fall back to the configured defaults.
func CreateJobHandler(deps *Dependencies) fiber.Handler {
	type createRequest struct {
		MinPoints int                    `json:"min_points"`
		Tolerance int                    `json:"tolerance"`
		Policy    domain.CandidatePolicy `json:"policy"`
	}

	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if slug == "" {
			return errBadRequest(c, "dataset slug is required")
		}
		ds, err := deps.Datasets.GetBySlug(c.Context(), slug)
		if err != nil {
			return errNotFound(c, "dataset not found")
		}

		var req createRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.MinPoints == 0 {
			req.MinPoints = deps.Defaults.MinPoints
		}
		if req.Policy.StartCellSize == 0 && len(req.Policy.Resolutions) == 0 {
			req.Policy.StartCellSize = deps.Defaults.StartCellSize
			req.Policy.MaxHalvings = deps.Defaults.MaxHalvings
		}

		job, err := deps.Anonymise.CreateJob(c.Context(), ds.ID, req.MinPoints, req.Tolerance, req.Policy)
		if err != nil {
			var invalid *domain.InvalidParameterError
			if errors.As(err, &invalid) {
				return errBadRequest(c, invalid.Error())
			}
			return errInternal(c, err.Error())
		}

		if deps.Runner != nil {
			if err := deps.Runner.StartJob(c.Context(), job.ID); err != nil {
				LoggerFromCtx(c.UserContext()).Warn("start job", "job_id", job.ID, "error", err)
			}
		}

		return c.Status(202).JSON(job)
	}
}

// GetJobHandler returns a job by ID.
func GetJobHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "job id is required")
		}
		job, err := deps.Anonymise.GetJob(c.Context(), id)
		if err != nil {
			return errNotFound(c, "job not found")
		}
		return c.JSON(job)
	}
}

// GetResultHandler returns the grid result of a completed job.
func GetResultHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "job id is required")
		}
		result, err := deps.Results.GetByJob(c.Context(), id)
		if err != nil {
			return errNotFound(c, "no result for job")
		}

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(result)
	}
}

// DiscardedHandler returns only the discard list of a result. Kept for older
// clients; the full result payload carries the same list.
func DiscardedHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "job id is required")
		}
		result, err := deps.Results.GetByJob(c.Context(), id)
		if err != nil {
			return errNotFound(c, "no result for job")
		}
		return c.JSON(fiber.Map{
			"discarded": result.Discarded,
			"count":     len(result.Discarded),
		})
	}
}

// ResultCellsHandler returns the occupied cells of a result with their
// geographic bounds, population, and approximate ground dimensions.
func ResultCellsHandler(deps *Dependencies) fiber.Handler {
	type cellResponse struct {
		X       int     `json:"x"`
		Y       int     `json:"y"`
		Count   int     `json:"count"`
		MinLon  float64 `json:"min_lon"`
		MinLat  float64 `json:"min_lat"`
		MaxLon  float64 `json:"max_lon"`
		MaxLat  float64 `json:"max_lat"`
		WidthM  float64 `json:"approx_width_m"`
		HeightM float64 `json:"approx_height_m"`
	}

	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "job id is required")
		}
		result, err := deps.Results.GetByJob(c.Context(), id)
		if err != nil {
			return errNotFound(c, "no result for job")
		}

		res := result.Resolution
		cells := make([]cellResponse, 0, len(result.CellCounts))
		for cell, count := range result.CellCounts {
			minLon, minLat, maxLon, maxLat := cell.Bounds(res)
			midLat := (minLat + maxLat) / 2
			wM, hM := geospatial.CellDimensionsMeters(res.CellWidth, res.CellHeight, midLat)
			cells = append(cells, cellResponse{
				X: cell.X, Y: cell.Y, Count: count,
				MinLon: minLon, MinLat: minLat, MaxLon: maxLon, MaxLat: maxLat,
				WidthM: wM, HeightM: hM,
			})
		}

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(fiber.Map{
			"resolution": res,
			"cells":      cells,
		})
	}
}
