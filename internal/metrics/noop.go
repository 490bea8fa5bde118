package metrics

import "time"

// Noop is a Recorder that discards everything. Useful as a default and in
// tests that do not assert on metrics.
type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) IncSync(string)                      {}
func (Noop) ObserveSyncDuration(time.Duration)   {}
func (Noop) ObserveSyncAttempts(int)             {}
func (Noop) IncDelete(string)                    {}
func (Noop) ObserveDeleteDuration(time.Duration) {}
func (Noop) IncPolicyDenied(string)              {}
