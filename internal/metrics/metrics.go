package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the application's Prometheus collectors.
type Metrics struct {
	// Total HTTP requests by method, path and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency by method and path.
	HTTPRequestDuration *prometheus.HistogramVec

	// Reservation attempts by outcome (reserved, conflict, lock_failed, error).
	ReservationsTotal *prometheus.CounterVec

	// Time spent in seat lock operations (operation: acquire/release,
	// status: success/failed).
	SeatLockDuration *prometheus.HistogramVec

	// Reservations reclaimed by the expiration sweeper.
	ExpiredReservationsTotal prometheus.Counter

	// Current number of PENDING reservations.
	PendingReservations prometheus.Gauge
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on the given registry.
// Tests pass a fresh registry to avoid duplicate registration panics.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ReservationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservations_total",
				Help: "Total number of seat reservation attempts",
			},
			[]string{"status"},
		),
		SeatLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seat_lock_duration_seconds",
				Help:    "Time spent on seat lock operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "status"},
		),
		ExpiredReservationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "expired_reservations_total",
				Help: "Reservations reclaimed by the expiration sweeper",
			},
		),
		PendingReservations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pending_reservations",
				Help: "Current number of pending reservations",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReservationsTotal,
		m.SeatLockDuration,
		m.ExpiredReservationsTotal,
		m.PendingReservations,
	)

	return m
}

var defaultMetrics *Metrics

// Init creates and stores the process-wide Metrics instance.
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get returns the process-wide Metrics instance; may be nil before Init.
func Get() *Metrics {
	return defaultMetrics
}
