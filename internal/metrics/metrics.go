package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LocationReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_location_reports_total",
			Help: "Location reports received, by transport and outcome",
		},
		[]string{"transport", "outcome"},
	)

	DriverLifecycle = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_driver_lifecycle_total",
			Help: "Driver lifecycle transitions (registered, restored, deleted, login, logout)",
		},
		[]string{"action"},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_reconciler_transitions_total",
			Help: "Status changes applied by the reconciler sweep",
		},
		[]string{"status"},
	)

	ActiveDrivers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_active_drivers",
			Help: "Drivers currently in the active set",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_events_published_total",
			Help: "Events handed to the broadcaster, by type",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_events_dropped_total",
			Help: "Events dropped because a subscriber queue was full",
		},
		[]string{"subscriber"},
	)

	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_websocket_clients",
			Help: "Connected websocket clients",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveLocationReport counts one ingest attempt for a transport
func ObserveLocationReport(transport string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	LocationReports.WithLabelValues(transport, outcome).Inc()
}
