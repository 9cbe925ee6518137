package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder used when metrics are disabled.
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordReservationMutation(operation, result string)                  {}
func (n *NoopMetrics) RecordReservationExpired(resourceID string)                          {}
func (n *NoopMetrics) RecordLockWait(resourceID string, wait time.Duration)                {}
func (n *NoopMetrics) RecordPurged(count int)                                              {}
func (n *NoopMetrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {}
