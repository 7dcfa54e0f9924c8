package domain

// Point is a single geolocated record (WGS 84).
type Point struct {
	ID        string  `json:"id"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// PointSet is an immutable, ordered collection of points. IDs are unique
// within a set; coordinates are validated at construction. Iteration order
// is insertion order, which keeps downstream tie-breaking reproducible.
type PointSet struct {
	points []Point
}

// NewPointSet validates and copies the given points into a PointSet.
// It fails with DuplicateIDError on a repeated id and OutOfRangeError
// on a coordinate outside the lon/lat domain.
func NewPointSet(points []Point) (*PointSet, error) {
	seen := make(map[string]struct{}, len(points))
	for _, p := range points {
		if _, dup := seen[p.ID]; dup {
			return nil, &DuplicateIDError{ID: p.ID}
		}
		seen[p.ID] = struct{}{}

		if p.Longitude < -180 || p.Longitude > 180 || p.Latitude < -90 || p.Latitude > 90 {
			return nil, &OutOfRangeError{ID: p.ID, Longitude: p.Longitude, Latitude: p.Latitude}
		}
	}

	ps := &PointSet{points: make([]Point, len(points))}
	copy(ps.points, points)
	return ps, nil
}

// Len returns the number of points in the set.
func (ps *PointSet) Len() int {
	return len(ps.points)
}

// At returns the point at index i, in insertion order.
func (ps *PointSet) At(i int) Point {
	return ps.points[i]
}

// Points returns a copy of the underlying slice, preserving insertion order.
func (ps *PointSet) Points() []Point {
	out := make([]Point, len(ps.points))
	copy(out, ps.points)
	return out
}
