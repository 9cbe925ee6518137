// Package metrics exposes Prometheus instrumentation for the booking service.
package metrics

import "time"

// Result labels shared by the mutation counters.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Reservation mutations: operation is create, modify, cancel or validate.
	RecordReservationMutation(operation, result string)
	RecordReservationExpired(resourceID string)
	RecordLockWait(resourceID string, wait time.Duration)
	RecordPurged(count int)

	// HTTP
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}
