// Package geo computes great-circle distances for geofence checks.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by Distance.
const EarthRadiusMeters = 6371000.0

type Coordinate struct {
	Lat float64
	Lng float64
}

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b Coordinate) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Within reports whether p lies inside the circle of radiusMeters around center.
// A point exactly on the boundary is inside.
func Within(center, p Coordinate, radiusMeters float64) (bool, float64) {
	d := Distance(center, p)
	return d <= radiusMeters, d
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
