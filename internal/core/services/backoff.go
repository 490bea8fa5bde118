package services

import "time"

// Retry discipline shared by the synchronizer and the deleter. The loop is
// an explicit bounded counter, not recursion, so the bound on total latency
// stays auditable: with 3 attempts and a 100ms base the worst case adds
// 100ms + 200ms of waiting on top of the store calls.
const (
	// DefaultMaxAttempts is the total number of attempts (1 initial + 2 retries).
	DefaultMaxAttempts = 3

	// DefaultRetryBaseDelay is multiplied by the attempt number to produce
	// the wait before the next attempt.
	DefaultRetryBaseDelay = 100 * time.Millisecond

	// DefaultSoftDeadline is the duration after which a completed invocation
	// is logged as slow. The operation is never cancelled mid-flight.
	DefaultSoftDeadline = 5 * time.Second
)

// retryDelay returns the wait after the given failed attempt (1-indexed):
// base x 1 after the first attempt, base x 2 after the second.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(attempt)
}
