package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Reservation Metrics
	ReservationMutationsTotal *prometheus.CounterVec
	ReservationsExpiredTotal  *prometheus.CounterVec
	ReservationsPurgedTotal   prometheus.Counter
	LockWaitDuration          *prometheus.HistogramVec

	// HTTP Request Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// Init returns a Prometheus backed recorder registered on reg when enabled, or a
// NoopMetrics otherwise.
func Init(enabled bool, reg prometheus.Registerer) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}
	return New(reg)
}

// New creates and registers all Prometheus metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReservationMutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_reservation_mutations_total",
				Help: "Total number of reservation mutations by operation and result",
			},
			[]string{"operation", "result"}, // result: success, rejected, error
		),
		ReservationsExpiredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_reservations_expired_total",
				Help: "Total number of reservations that expired without validation",
			},
			[]string{"resource_id"},
		),
		ReservationsPurgedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "booking_reservations_purged_total",
				Help: "Total number of finished reservations removed by the sweeper",
			},
		),
		LockWaitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "booking_resource_lock_wait_seconds",
				Help:    "Time spent waiting for the per-resource mutation lock",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2, 5},
			},
			[]string{"resource_id"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// RecordReservationMutation counts a reservation mutation outcome.
func (m *Metrics) RecordReservationMutation(operation, result string) {
	m.ReservationMutationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordReservationExpired counts a reservation that passed its grace period unvalidated.
func (m *Metrics) RecordReservationExpired(resourceID string) {
	m.ReservationsExpiredTotal.WithLabelValues(resourceID).Inc()
}

// RecordLockWait observes how long a mutation waited for its resource lock.
func (m *Metrics) RecordLockWait(resourceID string, wait time.Duration) {
	m.LockWaitDuration.WithLabelValues(resourceID).Observe(wait.Seconds())
}

// RecordPurged counts reservations removed by the sweeper.
func (m *Metrics) RecordPurged(count int) {
	if count <= 0 {
		return
	}
	m.ReservationsPurgedTotal.Add(float64(count))
}

// RecordHTTPRequest records one served HTTP request. route is the registered
// pattern, never the raw path.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
