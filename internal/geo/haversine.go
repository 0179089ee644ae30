// Package geo provides great-circle distance calculations used to rank
// emergencies by proximity to a responder.
package geo

import "math"

const (
	// EarthRadiusKm is the mean Earth radius in kilometers.
	EarthRadiusKm = 6371
	// EarthRadiusMeters is the mean Earth radius in meters.
	EarthRadiusMeters = 6371000
)

// DistanceKm returns the Haversine great-circle distance in kilometers
// between two WGS84 coordinates.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	return haversine(lat1, lon1, lat2, lon2) * EarthRadiusKm
}

// DistanceMeters returns the Haversine great-circle distance in meters
// between two WGS84 coordinates. It shares the formula with DistanceKm so the
// two agree under unit scaling.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return haversine(lat1, lon1, lat2, lon2) * EarthRadiusMeters
}

// haversine returns the central angle in radians between two coordinates.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * (math.Pi / 180)
	dLon := (lon2 - lon1) * (math.Pi / 180)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*(math.Pi/180))*math.Cos(lat2*(math.Pi/180))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
