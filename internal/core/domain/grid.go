package domain

import "math"

// Grid origin: cells are anchored at the south-west corner of the lon/lat
// domain so that cell indices are reproducible and independent of any
// particular point set's bounding box.
const (
	OriginLongitude = -180.0
	OriginLatitude  = -90.0
)

// GridResolution is the size of one uniform grid cell, in degrees.
type GridResolution struct {
	CellWidth  float64 `json:"cell_width"`
	CellHeight float64 `json:"cell_height"`
}

// Valid reports whether both cell dimensions are positive.
func (r GridResolution) Valid() bool {
	return r.CellWidth > 0 && r.CellHeight > 0
}

// FinerThan reports whether r is strictly smaller than other in both
// dimensions.
func (r GridResolution) FinerThan(other GridResolution) bool {
	return r.CellWidth < other.CellWidth && r.CellHeight < other.CellHeight
}

// Cell identifies one axis-aligned grid cell by integer indices from the
// fixed origin.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CellFor maps a point to its cell at the given resolution. The single
// division-and-floor formula is the only assignment rule in the system:
// evaluating the same point at the same resolution always yields the same
// cell, with no accumulated stepping error.
func CellFor(p Point, res GridResolution) Cell {
	return Cell{
		X: int(math.Floor((p.Longitude - OriginLongitude) / res.CellWidth)),
		Y: int(math.Floor((p.Latitude - OriginLatitude) / res.CellHeight)),
	}
}

// Bounds returns the geographic bounding box of the cell at a resolution.
func (c Cell) Bounds(res GridResolution) (minLon, minLat, maxLon, maxLat float64) {
	minLon = OriginLongitude + float64(c.X)*res.CellWidth
	minLat = OriginLatitude + float64(c.Y)*res.CellHeight
	return minLon, minLat, minLon + res.CellWidth, minLat + res.CellHeight
}

// Evaluation is the outcome of assigning every point of a set to the grid
// at one candidate resolution. DiscardedCount is the total number of points
// sitting in cells that are occupied but hold fewer than the minimum; empty
// cells contribute nothing.
type Evaluation struct {
	Resolution     GridResolution `json:"resolution"`
	CellCounts     map[Cell]int   `json:"-"`
	DiscardedCount int            `json:"discarded_count"`
}

// GridResult is the published outcome of a successful resolution search.
type GridResult struct {
	Resolution  GridResolution  `json:"resolution"`
	Discarded   []string        `json:"discarded"`
	Assignments map[string]Cell `json:"assignments"`
	CellCounts  map[Cell]int    `json:"-"`
}
