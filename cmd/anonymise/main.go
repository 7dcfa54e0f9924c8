package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/samirrijal/gridveil/internal/core/domain"
	"github.com/samirrijal/gridveil/internal/core/grid"
	"github.com/samirrijal/gridveil/internal/core/usecases"
	"github.com/samirrijal/gridveil/internal/pkg/geospatial"
)

// anonymise runs a single grid search over a CSV of points without touching
// the database. It is the batch-friendly face of the same search the API
// runs: same validation, same candidate policy, same output semantics.
func main() {
	var (
		input     = flag.String("input", "", "CSV file with id,longitude,latitude header (required)")
		output    = flag.String("output", "", "write per-point cell assignments as CSV (default: stdout report only)")
		minPoints = flag.Int("n", 3, "minimum points per occupied cell")
		tolerance = flag.Int("t", 0, "maximum points that may be discarded")
		startSize = flag.Float64("start", 0.1, "cell edge in degrees for the coarsest candidate")
		halvings  = flag.Int("steps", 8, "number of times the start size is halved")
	)
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("open input: %v", err)
	}
	defer f.Close()

	points, err := readPoints(f)
	if err != nil {
		log.Fatalf("parse %s: %v", *input, err)
	}

	ps, err := domain.NewPointSet(points)
	if err != nil {
		log.Fatalf("invalid point set: %v", err)
	}

	coarsest := domain.GridResolution{CellWidth: *startSize, CellHeight: *startSize}
	if !coarsest.Valid() || *halvings <= 0 {
		log.Fatalf("start cell size and steps must be positive (got -start=%g -steps=%d)", *startSize, *halvings)
	}

	policy := domain.CandidatePolicy{
		StartCellSize: *startSize,
		MaxHalvings:   *halvings,
	}
	result, err := grid.FindFinestGrid(ps, *minPoints, *tolerance, grid.SourceForPolicy(policy))
	if err != nil {
		if usecases.IsNoSolution(err) {
			log.Fatalf("no acceptable grid: %v", err)
		}
		log.Fatalf("search failed: %v", err)
	}

	printReport(os.Stdout, ps, result)

	if *output != "" {
		if err := writeAssignments(*output, result); err != nil {
			log.Fatalf("write assignments: %v", err)
		}
		fmt.Printf("assignments written to %s\n", *output)
	}
}

// printReport summarises the chosen resolution and the cell population.
func printReport(w io.Writer, ps *domain.PointSet, result *domain.GridResult) {
	res := result.Resolution

	// Ground dimensions at the latitude midpoint of the data
	minLat, maxLat := ps.At(0).Latitude, ps.At(0).Latitude
	for i := 1; i < ps.Len(); i++ {
		lat := ps.At(i).Latitude
		if lat < minLat {
			minLat = lat
		}
		if lat > maxLat {
			maxLat = lat
		}
	}
	widthM, heightM := geospatial.CellDimensionsMeters(res.CellWidth, res.CellHeight, (minLat+maxLat)/2)

	minCount, maxCount, total := 0, 0, 0
	for _, count := range result.CellCounts {
		if minCount == 0 || count < minCount {
			minCount = count
		}
		if count > maxCount {
			maxCount = count
		}
		total += count
	}

	fmt.Fprintf(w, "points:      %d (%d assigned, %d discarded)\n",
		ps.Len(), len(result.Assignments), len(result.Discarded))
	fmt.Fprintf(w, "resolution:  %g x %g deg (~%.0f x %.0f m)\n",
		res.CellWidth, res.CellHeight, widthM, heightM)
	fmt.Fprintf(w, "cells:       %d occupied, population %d..%d (mean %.1f)\n",
		len(result.CellCounts), minCount, maxCount, float64(total)/float64(len(result.CellCounts)))

	if len(result.Discarded) > 0 {
		sorted := append([]string(nil), result.Discarded...)
		sort.Strings(sorted)
		fmt.Fprintf(w, "discarded:   %s\n", strings.Join(sorted, ", "))
	}
}

// writeAssignments writes id,cell_x,cell_y rows for every assigned point.
func writeAssignments(path string, result *domain.GridResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "cell_x", "cell_y"}); err != nil {
		return err
	}

	ids := make([]string, 0, len(result.Assignments))
	for id := range result.Assignments {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		cell := result.Assignments[id]
		if err := w.Write([]string{id, strconv.Itoa(cell.X), strconv.Itoa(cell.Y)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
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

	cols := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimPrefix(col, "\xef\xbb\xbf")
		cols[strings.ToLower(strings.TrimSpace(col))] = i
	}
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
