package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/samirrijal/gridveil/internal/adapters/postgres"
	"github.com/samirrijal/gridveil/internal/core/domain"
	"github.com/samirrijal/gridveil/internal/core/usecases"
	"github.com/samirrijal/gridveil/internal/pkg/config"
)

// ---------------------------------------------------------------------------
// Manifest types
// ---------------------------------------------------------------------------

type Manifest struct {
	Source   string         `json:"source"`
	Datasets []DatasetEntry `json:"datasets"`
}

type DatasetEntry struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	// CSV is a local path or an http(s) URL to a file with an
	// id,longitude,latitude header row.
	CSV string `json:"csv"`
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	cfg, err := config.Load("gridveil-ingest")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	datasets := usecases.NewDatasetService(postgres.NewDatasetRepo(db), nil)

	// Load manifest
	manifestPath := "manifest.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		log.Fatalf("read manifest: %v", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Fatalf("parse manifest: %v", err)
	}

	log.Printf("GridVeil ingest — %d datasets from %s", len(manifest.Datasets), manifest.Source)

	// Filter datasets (optional CLI arg: slug list)
	slugFilter := map[string]bool{}
	if len(os.Args) > 2 {
		for _, s := range strings.Split(os.Args[2], ",") {
			slugFilter[strings.TrimSpace(s)] = true
		}
	}

	client := &http.Client{Timeout: 120 * time.Second}

	var wg sync.WaitGroup
	sem := make(chan struct{}, 4) // max 4 concurrent ingests

	for _, entry := range manifest.Datasets {
		if len(slugFilter) > 0 && !slugFilter[entry.Slug] {
			continue
		}

		wg.Add(1)
		go func(e DatasetEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ingestDataset(ctx, datasets, client, e); err != nil {
				log.Printf("ERROR [%s]: %v", e.Slug, err)
			}
		}(entry)
	}

	wg.Wait()
	log.Println("ingestion complete")
}

// ---------------------------------------------------------------------------
// Per-dataset ingestion
// ---------------------------------------------------------------------------

func ingestDataset(ctx context.Context, datasets *usecases.DatasetService, client *http.Client, entry DatasetEntry) error {
	body, err := openSource(client, entry.CSV)
	if err != nil {
		return err
	}
	defer body.Close()

	points, err := readPoints(body)
	if err != nil {
		return fmt.Errorf("parse %s: %w", entry.CSV, err)
	}
	if len(points) == 0 {
		return fmt.Errorf("no points in %s", entry.CSV)
	}

	ds, err := upsertDataset(ctx, datasets, entry)
	if err != nil {
		return fmt.Errorf("upsert dataset: %w", err)
	}
	log.Printf("[%s] dataset_id=%s", entry.Slug, ds.ID)

	n, err := datasets.IngestPoints(ctx, ds.ID, points)
	if err != nil {
		return fmt.Errorf("ingest points: %w", err)
	}

	log.Printf("[%s] ingested %d points", entry.Slug, n)
	return nil
}

// openSource returns the CSV body of a local path or an http(s) URL.
func openSource(client *http.Client, src string) (io.ReadCloser, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		resp, err := client.Get(src)
		if err != nil {
			return nil, fmt.Errorf("download: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, src)
		}
		return resp.Body, nil
	}
	return os.Open(src)
}

// upsertDataset creates the dataset or returns the existing one with the
// same slug.
func upsertDataset(ctx context.Context, datasets *usecases.DatasetService, entry DatasetEntry) (*domain.Dataset, error) {
	ds, err := datasets.Create(ctx, entry.Slug, entry.Name)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return datasets.GetBySlug(ctx, entry.Slug)
		}
		return nil, err
	}
	return ds, nil
}

// readPoints parses id,longitude,latitude rows. Column order does not
// matter; the header names the columns.
func readPoints(r io.Reader) ([]domain.Point, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)

	idCol, okID := cols["id"]
	lonCol, okLon := cols["longitude"]
	latCol, okLat := cols["latitude"]
	if !okID || !okLon || !okLat {
		return nil, fmt.Errorf("header must contain id, longitude, latitude; got %v", header)
	}

	var points []domain.Point
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		lon, err := strconv.ParseFloat(strings.TrimSpace(record[lonCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad longitude %q", len(points)+2, record[lonCol])
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(record[latCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad latitude %q", len(points)+2, record[latCol])
		}

		points = append(points, domain.Point{
			ID:        strings.TrimSpace(record[idCol]),
			Longitude: lon,
			Latitude:  lat,
		})
	}
	return points, nil
}

func indexColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		// Strip BOM from first column
		col = strings.TrimPrefix(col, "\xef\xbb\xbf")
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}
