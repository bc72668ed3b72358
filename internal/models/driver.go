package models

import "time"

// DriverStatus is the canonical lifecycle state of a driver
type DriverStatus string

const (
	StatusOffline  DriverStatus = "offline"  // registered or logged out, or never reported a position
	StatusOnline   DriverStatus = "online"   // logged in, waiting for fresh pings
	StatusActive   DriverStatus = "active"   // pinged within the fresh window
	StatusInactive DriverStatus = "inactive" // location has gone stale
	StatusDeleted  DriverStatus = "deleted"  // soft-deleted by an admin
)

// IsValid reports whether s is one of the canonical statuses
func (s DriverStatus) IsValid() bool {
	switch s {
	case StatusOffline, StatusOnline, StatusActive, StatusInactive, StatusDeleted:
		return true
	}
	return false
}

// Location is a WGS84 coordinate pair in degrees
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// FactoryLocation is the fixed destination every distance is measured against
type FactoryLocation struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Name      string  `json:"name"`
}

// Point returns the factory coordinates as a Location
func (f FactoryLocation) Point() Location {
	return Location{Latitude: f.Latitude, Longitude: f.Longitude}
}

// DefaultFactory is the Philip Morris plant near Torbalı
var DefaultFactory = FactoryLocation{
	Latitude:  38.19970884298463,
	Longitude: 27.367337114805427,
	Name:      "Philip Morris Fabrikası",
}

// Driver is a registered delivery operator.
// DistanceToFactory and EtaMinutes are caches of the last location write.
type Driver struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Phone             string       `json:"phone"`
	VehiclePlate      string       `json:"vehiclePlate"`
	Status            DriverStatus `json:"status"`
	Location          *Location    `json:"location"`
	Destination       *string      `json:"destination"`
	DistanceToFactory *float64     `json:"distanceToFactory"`
	EtaMinutes        *int         `json:"etaMinutes"`
	LastUpdate        time.Time    `json:"lastUpdate"`
	CreatedAt         time.Time    `json:"createdAt"`
	DeletedAt         *time.Time   `json:"deletedAt,omitempty"`
}

// Clone returns a deep copy safe to hand out of the registry lock
func (d *Driver) Clone() Driver {
	c := *d
	if d.Location != nil {
		loc := *d.Location
		c.Location = &loc
	}
	if d.Destination != nil {
		dest := *d.Destination
		c.Destination = &dest
	}
	if d.DistanceToFactory != nil {
		dist := *d.DistanceToFactory
		c.DistanceToFactory = &dist
	}
	if d.EtaMinutes != nil {
		eta := *d.EtaMinutes
		c.EtaMinutes = &eta
	}
	if d.DeletedAt != nil {
		at := *d.DeletedAt
		c.DeletedAt = &at
	}
	return c
}

// HasIdentity reports whether the driver matches the (phone, plate) key
func (d *Driver) HasIdentity(phone, plate string) bool {
	return d.Phone == phone && d.VehiclePlate == plate
}

// Touch moves LastUpdate forward, never backwards
func (d *Driver) Touch(now time.Time) {
	if now.After(d.LastUpdate) {
		d.LastUpdate = now
	}
}

// ClearPosition drops the location and every field derived from it
func (d *Driver) ClearPosition() {
	d.Location = nil
	d.DistanceToFactory = nil
	d.EtaMinutes = nil
}

// DriverStats summarizes the fleet for the dashboard header cards
type DriverStats struct {
	Total           int     `json:"total"`
	Online          int     `json:"online"`
	EnRoute         int     `json:"enRoute"`
	AverageDistance float64 `json:"averageDistance"` // km over drivers with a known position
}
