package geospatial

import "math"

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// CellDimensionsMeters returns the approximate ground size of a grid cell
// spanning widthDeg by heightDeg, measured at the given latitude. Longitudinal
// degrees shrink towards the poles, so the same cell is narrower at 60°N than
// at the equator.
func CellDimensionsMeters(widthDeg, heightDeg, lat float64) (widthM, heightM float64) {
	widthM = widthDeg * 111320.0 * math.Cos(toRad(lat))
	heightM = heightDeg * 111320.0
	return widthM, heightM
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
