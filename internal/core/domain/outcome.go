package domain

import "time"

// Outcome is the structured result of one synchronizer or deleter
// invocation. It is a value, never a raised error: the event-trigger
// machinery upstream must not be blocked by a projection failure.
type Outcome struct {
	Success  bool
	Attempts int
	Duration time.Duration
	Err      error
}

// DurationMs returns the invocation duration in milliseconds for logging
// and response bodies.
func (o Outcome) DurationMs() int64 {
	return o.Duration.Milliseconds()
}

// ErrorString returns the failure message, or the empty string on success.
func (o Outcome) ErrorString() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
