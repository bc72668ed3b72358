package tracker

import (
	"time"

	"factory-tracker/internal/models"

	"go.uber.org/zap"
)

type demoDriver struct {
	name, phone, plate string
	location           models.Location
	status             models.DriverStatus
	destination        string
	age                time.Duration
}

var demoDrivers = []demoDriver{
	// İstanbul
	{
		name:        "Mehmet Yılmaz",
		phone:       "+90 532 123 4567",
		plate:       "34 ABC 123",
		location:    models.Location{Latitude: 41.0082, Longitude: 28.9784},
		status:      models.StatusOnline,
		destination: "Philip Morris Fabrikası",
	},
	// Ankara
	{
		name:        "Ahmet Kaya",
		phone:       "+90 533 234 5678",
		plate:       "06 DEF 456",
		location:    models.Location{Latitude: 39.9334, Longitude: 32.8597},
		status:      models.StatusOnline,
		destination: "Philip Morris Fabrikası",
	},
	// İzmir, closest to the plant
	{
		name:        "Fatma Özkan",
		phone:       "+90 534 345 6789",
		plate:       "35 GHI 789",
		location:    models.Location{Latitude: 38.4192, Longitude: 27.1287},
		status:      models.StatusOnline,
		destination: "Philip Morris Fabrikası",
	},
	// Şanlıurfa
	{
		name:        "Ali Demir",
		phone:       "+90 535 456 7890",
		plate:       "01 JKL 012",
		location:    models.Location{Latitude: 37.0662, Longitude: 37.3833},
		status:      models.StatusOnline,
		destination: "Philip Morris Fabrikası",
	},
	// Antalya, last seen half an hour ago
	{
		name:     "Zeynep Arslan",
		phone:    "+90 536 567 8901",
		plate:    "07 MNO 345",
		location: models.Location{Latitude: 36.8969, Longitude: 30.7133},
		status:   models.StatusOffline,
		age:      30 * time.Minute,
	},
}

// SeedDemoDrivers fills an empty registry with a handful of drivers spread
// across Türkiye. It is a no-op when drivers already exist.
func SeedDemoDrivers(r *Registry) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.active) > 0 || len(r.deleted) > 0 {
		r.log.Info("✓ drivers already present, skipping demo seed")
		return 0
	}

	now := r.now()
	for _, demo := range demoDrivers {
		r.seq++
		seenAt := now.Add(-demo.age)

		d := models.Driver{
			ID:           r.newID(),
			Name:         demo.name,
			Phone:        demo.phone,
			VehiclePlate: demo.plate,
			CreatedAt:    now,
		}
		r.applyLocationLocked(&d, demo.location, seenAt)
		d.Status = demo.status
		if demo.destination != "" {
			dest := demo.destination
			d.Destination = &dest
		}

		r.active[d.ID] = &entry{driver: d, seq: r.seq}
	}
	r.updateGaugeLocked()

	r.log.Info("🌱 demo drivers seeded", zap.Int("count", len(demoDrivers)))
	return len(demoDrivers)
}
