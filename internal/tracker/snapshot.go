package tracker

import (
	"sort"

	"factory-tracker/internal/geo"
	"factory-tracker/internal/models"
)

// Factory returns the fixed destination
func (r *Registry) Factory() models.FactoryLocation {
	return r.factory
}

// ListDrivers returns every active driver, closest to the factory first.
// Distance and ETA are recomputed from the stored location rather than read
// from the cached fields. Drivers without a location come last, in
// registration order.
func (r *Registry) ListDrivers() []models.Driver {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.active))
	for _, e := range r.active {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	drivers := make([]models.Driver, 0, len(entries))
	for _, e := range entries {
		drivers = append(drivers, e.driver.Clone())
	}
	r.mu.Unlock()

	factory := r.factory.Point()
	for i := range drivers {
		d := &drivers[i]
		if d.Location == nil {
			d.DistanceToFactory = nil
			d.EtaMinutes = nil
			continue
		}
		distance := geo.DistanceKm(*d.Location, factory)
		eta := geo.EtaMinutes(distance)
		d.DistanceToFactory = &distance
		d.EtaMinutes = &eta
	}

	sort.SliceStable(drivers, func(i, j int) bool {
		a, b := drivers[i].DistanceToFactory, drivers[j].DistanceToFactory
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})

	return drivers
}

// Stats summarizes the active set the way the dashboard header shows it
func (r *Registry) Stats() models.DriverStats {
	drivers := r.ListDrivers()

	stats := models.DriverStats{Total: len(drivers)}
	var located int
	var sum float64
	for _, d := range drivers {
		if d.Status == models.StatusOnline || d.Status == models.StatusActive {
			stats.Online++
		}
		if d.Location != nil && d.Destination != nil {
			stats.EnRoute++
		}
		if d.DistanceToFactory != nil {
			located++
			sum += *d.DistanceToFactory
		}
	}
	if located > 0 {
		stats.AverageDistance = sum / float64(located)
	}
	return stats
}
