package geo

import (
	"math"

	"factory-tracker/internal/models"
)

const (
	// EarthRadiusKm is the mean Earth radius used by the Haversine formula
	EarthRadiusKm = 6371.0

	// AverageSpeedKmh is the assumed truck speed for ETA estimates
	AverageSpeedKmh = 50.0
)

// DistanceKm calculates the great-circle distance between two coordinates in kilometers.
// Out-of-range coordinates are not rejected; they just produce a meaningless distance.
func DistanceKm(a, b models.Location) float64 {
	lat1Rad := toRadians(a.Latitude)
	lat2Rad := toRadians(b.Latitude)
	deltaLat := toRadians(b.Latitude - a.Latitude)
	deltaLon := toRadians(b.Longitude - a.Longitude)

	// Haversine formula
	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// EtaMinutes converts a distance into whole minutes at AverageSpeedKmh
func EtaMinutes(distanceKm float64) int {
	return int(math.Round(distanceKm / AverageSpeedKmh * 60))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
