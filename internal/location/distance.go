package location

import (
	"math"

	"github.com/randytsao24/ventra/internal/models"
)

const earthRadiusKm = 6371

// Haversine calculates the great-circle distance in kilometers between two lat/lng points
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// DistanceKm returns the haversine distance between two coordinates.
// The result is NaN when either coordinate is not finite.
func DistanceKm(a, b models.Coordinate) float64 {
	if !a.Valid() || !b.Valid() {
		return math.NaN()
	}
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

// Within reports whether b lies within radiusKm of a, boundary included.
// Non-finite coordinates are never within any radius.
func Within(a, b models.Coordinate, radiusKm float64) bool {
	d := DistanceKm(a, b)
	return !math.IsNaN(d) && d <= radiusKm
}
