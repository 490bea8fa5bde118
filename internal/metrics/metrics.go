// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Sync lifecycle metrics
	IncSync(status string) // status: "success" or "failure"
	ObserveSyncDuration(duration time.Duration)
	ObserveSyncAttempts(attempts int)

	// Delete lifecycle metrics
	IncDelete(status string) // status: "success" or "failure"
	ObserveDeleteDuration(duration time.Duration)

	// Policy metrics
	IncPolicyDenied(operation string) // operation: "read", "insert", "update"
}
