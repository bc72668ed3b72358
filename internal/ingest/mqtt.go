package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"factory-tracker/internal/metrics"
	"factory-tracker/internal/models"
	"factory-tracker/internal/tracker"
	"factory-tracker/pkg/mqtt"

	"go.uber.org/zap"
)

// LocationTopic matches device pings published as drivers/{id}/location
const LocationTopic = "drivers/+/location"

// LocationPayload is the body of a device ping
type LocationPayload struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// MQTTIngest feeds location pings from in-cab devices into the registry
type MQTTIngest struct {
	registry *tracker.Registry
	log      *zap.Logger
}

func NewMQTTIngest(registry *tracker.Registry, log *zap.Logger) *MQTTIngest {
	if log == nil {
		log = zap.NewNop()
	}
	return &MQTTIngest{registry: registry, log: log}
}

// Start subscribes to LocationTopic on an already connected client
func (m *MQTTIngest) Start(client *mqtt.Client) error {
	return client.Subscribe(LocationTopic, 1, m.HandleMessage)
}

// HandleMessage processes one ping. Bad messages are logged and dropped;
// there is nobody to answer on this transport.
func (m *MQTTIngest) HandleMessage(topic string, payload []byte) {
	err := m.handle(topic, payload)
	metrics.ObserveLocationReport("mqtt", err)
	if err != nil {
		m.log.Warn("⚠️ rejected mqtt location ping", zap.String("topic", topic), zap.Error(err))
	}
}

func (m *MQTTIngest) handle(topic string, payload []byte) error {
	driverID, err := DriverIDFromTopic(topic)
	if err != nil {
		return err
	}

	var p LocationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if p.Lat == nil || p.Lng == nil {
		return fmt.Errorf("%w: lat and lng are required", tracker.ErrValidation)
	}

	_, err = m.registry.ReportLocation(driverID, models.Location{Latitude: *p.Lat, Longitude: *p.Lng})
	return err
}

// DriverIDFromTopic extracts {id} from drivers/{id}/location
func DriverIDFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "drivers" || parts[2] != "location" || parts[1] == "" {
		return "", fmt.Errorf("unexpected topic %q", topic)
	}
	return parts[1], nil
}
