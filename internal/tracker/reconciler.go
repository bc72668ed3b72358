package tracker

import (
	"context"
	"time"

	"factory-tracker/internal/metrics"
	"factory-tracker/internal/models"

	"go.uber.org/zap"
)

const (
	DefaultReconcileInterval = 30 * time.Second
	DefaultStaleAfter        = 5 * time.Minute
	DefaultFreshWithin       = 1 * time.Minute
)

// Reconciler periodically demotes drivers whose last update has gone stale.
// Between FreshWithin and StaleAfter the status is left alone so it does not
// flap. The sweep publishes nothing; observers see the new status on their
// next snapshot or location update.
type Reconciler struct {
	registry    *Registry
	interval    time.Duration
	staleAfter  time.Duration
	freshWithin time.Duration
	log         *zap.Logger
}

// NewReconciler creates the sweep task. Zero durations fall back to defaults.
func NewReconciler(registry *Registry, interval, staleAfter, freshWithin time.Duration, log *zap.Logger) *Reconciler {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if freshWithin <= 0 {
		freshWithin = DefaultFreshWithin
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Reconciler{
		registry:    registry,
		interval:    interval,
		staleAfter:  staleAfter,
		freshWithin: freshWithin,
		log:         log,
	}
}

func (rc *Reconciler) TTL() time.Duration {
	return rc.interval
}

func (rc *Reconciler) Do(_ context.Context) error {
	if changed := rc.Sweep(); changed > 0 {
		rc.log.Info("🔄 driver statuses reconciled", zap.Int("changed", changed))
	}
	return nil
}

func (rc *Reconciler) Info() string {
	return "driver status reconciler"
}

// Sweep applies the staleness rules to every active driver and returns how
// many statuses changed
func (rc *Reconciler) Sweep() int {
	r := rc.registry

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	changed := 0
	for _, e := range r.active {
		next := rc.nextStatus(&e.driver, now)
		if next == e.driver.Status {
			continue
		}
		e.driver.Status = next
		changed++
		metrics.StatusTransitions.WithLabelValues(string(next)).Inc()
	}
	return changed
}

func (rc *Reconciler) nextStatus(d *models.Driver, now time.Time) models.DriverStatus {
	if d.Location == nil {
		return models.StatusOffline
	}

	elapsed := now.Sub(d.LastUpdate)
	switch {
	case elapsed > rc.staleAfter:
		return models.StatusInactive
	case elapsed <= rc.freshWithin:
		return models.StatusActive
	default:
		return d.Status
	}
}
