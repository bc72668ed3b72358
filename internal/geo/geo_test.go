package geo_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"factory-tracker/internal/geo"
	"factory-tracker/internal/models"
)

// referenceHaversine is an independent asin-based formulation
func referenceHaversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	sinLat := math.Sin(rad(lat2-lat1) / 2)
	sinLon := math.Sin(rad(lon2-lon1) / 2)
	h := sinLat*sinLat + math.Cos(rad(lat1))*math.Cos(rad(lat2))*sinLon*sinLon
	return 2 * 6371 * math.Asin(math.Sqrt(h))
}

func TestDistanceKm_CityFixtures(t *testing.T) {
	t.Parallel()

	factory := models.DefaultFactory.Point()

	tests := []struct {
		name  string
		point models.Location
		minKm float64
		maxKm float64
	}{
		{name: "Istanbul", point: models.Location{Latitude: 41.0082, Longitude: 28.9784}, minKm: 330, maxKm: 360},
		{name: "Ankara", point: models.Location{Latitude: 39.9334, Longitude: 32.8597}, minKm: 500, maxKm: 525},
		{name: "Izmir", point: models.Location{Latitude: 38.4192, Longitude: 27.1287}, minKm: 25, maxKm: 40},
		{name: "Sanliurfa", point: models.Location{Latitude: 37.0662, Longitude: 37.3833}, minKm: 880, maxKm: 900},
		{name: "Antalya", point: models.Location{Latitude: 36.8969, Longitude: 30.7133}, minKm: 320, maxKm: 340},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := geo.DistanceKm(factory, tt.point)
			want := referenceHaversine(factory.Latitude, factory.Longitude, tt.point.Latitude, tt.point.Longitude)

			assert.InDelta(t, want, got, 0.01)
			assert.GreaterOrEqual(t, got, tt.minKm)
			assert.LessOrEqual(t, got, tt.maxKm)
		})
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	t.Parallel()

	points := []models.Location{
		{Latitude: 41.0082, Longitude: 28.9784},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 0, Longitude: 0},
		{Latitude: 89.9, Longitude: -179.9},
		{Latitude: 39.0, Longitude: 32.0},
	}

	for _, a := range points {
		assert.Zero(t, geo.DistanceKm(a, a))
		for _, b := range points {
			assert.InDelta(t, geo.DistanceKm(a, b), geo.DistanceKm(b, a), 1e-9)
		}
	}
}

func TestDistanceKm_OutOfRangeIsNotRejected(t *testing.T) {
	t.Parallel()

	d := geo.DistanceKm(models.Location{Latitude: 200, Longitude: 500}, models.Location{})
	assert.False(t, math.IsNaN(d))
}

func TestEtaMinutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		distance float64
		want     int
	}{
		{distance: 0, want: 0},
		{distance: 50, want: 60},
		{distance: 25, want: 30},
		{distance: 0.4, want: 0},
		{distance: 0.45, want: 1},
		{distance: 323, want: 388},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, geo.EtaMinutes(tt.distance), "distance %.2f", tt.distance)
	}
}
