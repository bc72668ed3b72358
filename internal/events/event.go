package events

import (
	"time"

	"factory-tracker/internal/models"
)

// Type identifies a driver state change
type Type string

const (
	TypeDriverRegistered    Type = "driverRegistered"
	TypeDriverRestored      Type = "driverRestored"
	TypeDriverStatusChanged Type = "driverStatusChanged"
	TypeLocationUpdate      Type = "locationUpdate"
	TypeDestinationUpdate   Type = "destinationUpdate"
	TypeDriverDeleted       Type = "driverDeleted"
)

// AdminChannel receives every event
const AdminChannel = "admin"

// DriverChannel is the channel carrying events about a single driver
func DriverChannel(driverID string) string {
	return "driver:" + driverID
}

// Event is a single state-change notification
type Event struct {
	Type      Type        `json:"type"`
	DriverID  string      `json:"driverId"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Channels lists the logical channels that receive e
func (e Event) Channels() []string {
	if e.DriverID == "" {
		return []string{AdminChannel}
	}
	return []string{AdminChannel, DriverChannel(e.DriverID)}
}

// LocationUpdate is the payload of TypeLocationUpdate
type LocationUpdate struct {
	DriverID          string              `json:"driverId"`
	Location          models.Location     `json:"location"`
	DistanceToFactory float64             `json:"distanceToFactory"`
	EtaMinutes        int                 `json:"etaMinutes"`
	Status            models.DriverStatus `json:"status"`
}

// DestinationUpdate is the payload of TypeDestinationUpdate
type DestinationUpdate struct {
	DriverID    string `json:"driverId"`
	Destination string `json:"destination"`
}

// NewDriverEvent wraps a driver snapshot (registered, restored, status changed, deleted)
func NewDriverEvent(t Type, d models.Driver, at time.Time) Event {
	return Event{Type: t, DriverID: d.ID, Data: d, Timestamp: at}
}

func NewLocationEvent(u LocationUpdate, at time.Time) Event {
	return Event{Type: TypeLocationUpdate, DriverID: u.DriverID, Data: u, Timestamp: at}
}

func NewDestinationEvent(u DestinationUpdate, at time.Time) Event {
	return Event{Type: TypeDestinationUpdate, DriverID: u.DriverID, Data: u, Timestamp: at}
}
