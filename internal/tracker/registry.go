package tracker

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"factory-tracker/internal/events"
	"factory-tracker/internal/geo"
	"factory-tracker/internal/metrics"
	"factory-tracker/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher receives state-change events. Publish is called with the registry
// lock held so events leave in mutation order; implementations must not block
// or call back into the registry.
type Publisher interface {
	Publish(e events.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event) {}

type entry struct {
	driver models.Driver
	seq    uint64 // registration order, used to keep snapshots stable
}

// Registry owns every driver record. One mutex guards both the active and the
// soft-deleted set; every read-modify-write happens under it.
type Registry struct {
	mu      sync.Mutex
	active  map[string]*entry
	deleted map[string]*entry
	seq     uint64

	factory   models.FactoryLocation
	publisher Publisher
	now       func() time.Time
	newID     func() string
	log       *zap.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithPublisher sets where events are sent
func WithPublisher(p Publisher) Option {
	return func(r *Registry) {
		if p != nil {
			r.publisher = p
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator overrides uuid generation
func WithIDGenerator(newID func() string) Option {
	return func(r *Registry) {
		if newID != nil {
			r.newID = newID
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRegistry creates an empty registry measuring distances against factory
func NewRegistry(factory models.FactoryLocation, opts ...Option) *Registry {
	r := &Registry{
		active:    make(map[string]*entry),
		deleted:   make(map[string]*entry),
		factory:   factory,
		publisher: nopPublisher{},
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterResult tells a fresh registration apart from a restore
type RegisterResult struct {
	Driver   models.Driver
	Restored bool
}

// Register creates a driver, or restores a soft-deleted one with the same
// phone + plate. Fails with ErrDuplicateIdentity if an active driver has them.
func (r *Registry) Register(name, phone, plate string) (RegisterResult, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	plate = strings.TrimSpace(plate)
	if name == "" || phone == "" || plate == "" {
		return RegisterResult{}, fmt.Errorf("%w: name, phone and vehicle plate are required", ErrValidation)
	}

	r.mu.Lock()
	now := r.now()

	if existing := r.findActiveByIdentityLocked(phone, plate); existing != nil {
		r.mu.Unlock()
		return RegisterResult{}, fmt.Errorf("register %s/%s: %w", phone, plate, ErrDuplicateIdentity)
	}

	if e := r.findDeletedByIdentityLocked(phone, plate); e != nil {
		delete(r.deleted, e.driver.ID)
		r.active[e.driver.ID] = e

		d := &e.driver
		d.Name = name
		d.Status = models.StatusOffline
		d.ClearPosition()
		d.Destination = nil
		d.DeletedAt = nil
		d.Touch(now)

		snapshot := d.Clone()
		r.updateGaugeLocked()
		r.publisher.Publish(events.NewDriverEvent(events.TypeDriverRestored, snapshot, now))
		r.mu.Unlock()

		metrics.DriverLifecycle.WithLabelValues("restored").Inc()
		r.log.Info("♻️ driver restored by re-registration",
			zap.String("driver_id", snapshot.ID),
			zap.String("phone", phone),
			zap.String("plate", plate),
		)
		return RegisterResult{Driver: snapshot, Restored: true}, nil
	}

	r.seq++
	e := &entry{
		seq: r.seq,
		driver: models.Driver{
			ID:           r.newID(),
			Name:         name,
			Phone:        phone,
			VehiclePlate: plate,
			Status:       models.StatusOffline,
			LastUpdate:   now,
			CreatedAt:    now,
		},
	}
	r.active[e.driver.ID] = e

	snapshot := e.driver.Clone()
	r.updateGaugeLocked()
	r.publisher.Publish(events.NewDriverEvent(events.TypeDriverRegistered, snapshot, now))
	r.mu.Unlock()

	metrics.DriverLifecycle.WithLabelValues("registered").Inc()
	r.log.Info("✅ driver registered",
		zap.String("driver_id", snapshot.ID),
		zap.String("name", snapshot.Name),
		zap.String("plate", plate),
	)
	return RegisterResult{Driver: snapshot}, nil
}

// FindByIdentity looks up an active driver by phone + plate
func (r *Registry) FindByIdentity(phone, plate string) (models.Driver, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e := r.findActiveByIdentityLocked(phone, plate); e != nil {
		return e.driver.Clone(), true
	}
	return models.Driver{}, false
}

// FindByID looks up an active driver by id
func (r *Registry) FindByID(id string) (models.Driver, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.active[id]; ok {
		return e.driver.Clone(), true
	}
	return models.Driver{}, false
}

// Login marks the driver with this phone + plate online
func (r *Registry) Login(phone, plate string) (models.Driver, error) {
	phone = strings.TrimSpace(phone)
	plate = strings.TrimSpace(plate)
	if phone == "" || plate == "" {
		return models.Driver{}, fmt.Errorf("%w: phone and vehicle plate are required", ErrValidation)
	}

	r.mu.Lock()
	e := r.findActiveByIdentityLocked(phone, plate)
	if e == nil {
		r.mu.Unlock()
		return models.Driver{}, fmt.Errorf("login %s/%s: %w", phone, plate, ErrNotFound)
	}
	now := r.now()
	e.driver.Status = models.StatusOnline
	e.driver.Touch(now)
	snapshot := e.driver.Clone()
	r.publisher.Publish(events.NewDriverEvent(events.TypeDriverStatusChanged, snapshot, now))
	r.mu.Unlock()

	metrics.DriverLifecycle.WithLabelValues("login").Inc()
	r.log.Info("🔐 driver logged in", zap.String("driver_id", snapshot.ID))
	return snapshot, nil
}

// Logout marks the driver offline
func (r *Registry) Logout(id string) (models.Driver, error) {
	r.mu.Lock()
	e, ok := r.active[id]
	if !ok {
		r.mu.Unlock()
		return models.Driver{}, fmt.Errorf("logout %s: %w", id, ErrNotFound)
	}
	now := r.now()
	e.driver.Status = models.StatusOffline
	e.driver.Touch(now)
	snapshot := e.driver.Clone()
	r.publisher.Publish(events.NewDriverEvent(events.TypeDriverStatusChanged, snapshot, now))
	r.mu.Unlock()

	metrics.DriverLifecycle.WithLabelValues("logout").Inc()
	r.log.Info("👋 driver logged out", zap.String("driver_id", id))
	return snapshot, nil
}

// Delete soft-deletes an active driver. The record is kept and can come back
// through Register or a location ping.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	e, ok := r.active[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}

	now := r.now()
	delete(r.active, id)
	r.deleted[id] = e

	deletedAt := now
	e.driver.DeletedAt = &deletedAt
	e.driver.Status = models.StatusDeleted

	snapshot := e.driver.Clone()
	r.updateGaugeLocked()
	r.publisher.Publish(events.NewDriverEvent(events.TypeDriverDeleted, snapshot, now))
	r.mu.Unlock()

	metrics.DriverLifecycle.WithLabelValues("deleted").Inc()
	r.log.Info("🗑️ driver soft-deleted", zap.String("driver_id", id))
	return nil
}

// RestoreOnPing brings a soft-deleted driver back because its device reported
// loc. Returns false when id is not in the deleted set.
func (r *Registry) RestoreOnPing(id string, loc models.Location) (models.Driver, bool) {
	r.mu.Lock()
	e, ok := r.restoreLocked(id, loc, r.now())
	if !ok {
		r.mu.Unlock()
		return models.Driver{}, false
	}
	snapshot := e.driver.Clone()
	r.publisher.Publish(restoredEvent(snapshot))
	r.mu.Unlock()

	r.logRestored(snapshot)
	return snapshot, true
}

func (r *Registry) restoreLocked(id string, loc models.Location, now time.Time) (*entry, bool) {
	e, ok := r.deleted[id]
	if !ok {
		return nil, false
	}

	delete(r.deleted, id)
	r.active[id] = e

	d := &e.driver
	d.Status = models.StatusOnline
	d.DeletedAt = nil
	r.applyLocationLocked(d, loc, now)
	r.updateGaugeLocked()

	return e, true
}

func restoredEvent(snapshot models.Driver) events.Event {
	return events.NewDriverEvent(events.TypeDriverRestored, snapshot, snapshot.LastUpdate)
}

func (r *Registry) logRestored(snapshot models.Driver) {
	metrics.DriverLifecycle.WithLabelValues("restored").Inc()
	r.log.Info("♻️ driver restored by location ping", zap.String("driver_id", snapshot.ID))
}

// applyLocationLocked stores loc and refreshes the cached distance and ETA
func (r *Registry) applyLocationLocked(d *models.Driver, loc models.Location, now time.Time) (float64, int) {
	distance := geo.DistanceKm(loc, r.factory.Point())
	eta := geo.EtaMinutes(distance)

	d.Location = &loc
	d.DistanceToFactory = &distance
	d.EtaMinutes = &eta
	d.Touch(now)

	return distance, eta
}

func (r *Registry) findActiveByIdentityLocked(phone, plate string) *entry {
	for _, e := range r.active {
		if e.driver.HasIdentity(phone, plate) {
			return e
		}
	}
	return nil
}

// findDeletedByIdentityLocked prefers the most recently deleted match
func (r *Registry) findDeletedByIdentityLocked(phone, plate string) *entry {
	var found *entry
	for _, e := range r.deleted {
		if !e.driver.HasIdentity(phone, plate) {
			continue
		}
		if found == nil || deletedLater(e, found) {
			found = e
		}
	}
	return found
}

func deletedLater(a, b *entry) bool {
	if a.driver.DeletedAt == nil || b.driver.DeletedAt == nil {
		return a.seq > b.seq
	}
	return a.driver.DeletedAt.After(*b.driver.DeletedAt)
}

func (r *Registry) updateGaugeLocked() {
	metrics.ActiveDrivers.Set(float64(len(r.active)))
}
