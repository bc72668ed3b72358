package tracker

import (
	"fmt"
	"strings"

	"factory-tracker/internal/events"
	"factory-tracker/internal/models"

	"go.uber.org/zap"
)

// LocationResult is what the reporting device gets back
type LocationResult struct {
	DistanceToFactory float64 `json:"distanceToFactory"`
	EtaMinutes        int     `json:"etaMinutes"`
}

// ReportLocation applies a position report. A soft-deleted driver pinging
// under its own id is restored first. The driver always ends up active.
func (r *Registry) ReportLocation(id string, loc models.Location) (LocationResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return LocationResult{}, fmt.Errorf("%w: driver id is required", ErrValidation)
	}

	r.mu.Lock()
	now := r.now()

	var restored *models.Driver
	e, ok := r.active[id]
	if !ok {
		e, ok = r.restoreLocked(id, loc, now)
		if ok {
			snapshot := e.driver.Clone()
			restored = &snapshot
			r.publisher.Publish(restoredEvent(snapshot))
		}
	}
	if !ok {
		r.mu.Unlock()
		return LocationResult{}, fmt.Errorf("report location for %s: %w", id, ErrNotFound)
	}

	d := &e.driver
	distance, eta := r.applyLocationLocked(d, loc, now)
	d.Status = models.StatusActive

	update := events.LocationUpdate{
		DriverID:          d.ID,
		Location:          loc,
		DistanceToFactory: distance,
		EtaMinutes:        eta,
		Status:            d.Status,
	}
	r.publisher.Publish(events.NewLocationEvent(update, now))
	r.mu.Unlock()

	if restored != nil {
		r.logRestored(*restored)
	}

	r.log.Debug("📍 location updated",
		zap.String("driver_id", id),
		zap.Float64("lat", loc.Latitude),
		zap.Float64("lng", loc.Longitude),
		zap.Float64("distance_km", distance),
		zap.Int("eta_minutes", eta),
	)

	return LocationResult{DistanceToFactory: distance, EtaMinutes: eta}, nil
}

// SetDestination stores a free-text destination. An empty string clears it.
func (r *Registry) SetDestination(id, destination string) error {
	destination = strings.TrimSpace(destination)

	r.mu.Lock()
	e, ok := r.active[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("set destination for %s: %w", id, ErrNotFound)
	}

	now := r.now()
	if destination == "" {
		e.driver.Destination = nil
	} else {
		dest := destination
		e.driver.Destination = &dest
	}
	e.driver.Touch(now)
	r.publisher.Publish(events.NewDestinationEvent(events.DestinationUpdate{
		DriverID:    id,
		Destination: destination,
	}, now))
	r.mu.Unlock()

	r.log.Info("🎯 destination updated",
		zap.String("driver_id", id),
		zap.String("destination", destination),
	)
	return nil
}
