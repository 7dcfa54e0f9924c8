package domain

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// ExtentOf computes the bounding box of a slice of points. Returns nil for
// an empty slice.
func ExtentOf(points []Point) *Bounds {
	if len(points) == 0 {
		return nil
	}
	b := &Bounds{
		MinLat: points[0].Latitude, MaxLat: points[0].Latitude,
		MinLon: points[0].Longitude, MaxLon: points[0].Longitude,
	}
	for _, p := range points[1:] {
		if p.Latitude < b.MinLat {
			b.MinLat = p.Latitude
		}
		if p.Latitude > b.MaxLat {
			b.MaxLat = p.Latitude
		}
		if p.Longitude < b.MinLon {
			b.MinLon = p.Longitude
		}
		if p.Longitude > b.MaxLon {
			b.MaxLon = p.Longitude
		}
	}
	return b
}
