package metrics

import (
	"sync"
	"time"
)

// InMemory is a Recorder that keeps counters in process memory. It backs the
// health/debug surface and the tests; a real exporter can replace it without
// touching callers.
type InMemory struct {
	mu sync.Mutex

	syncByStatus   map[string]int64
	deleteByStatus map[string]int64
	deniedByOp     map[string]int64

	syncDurationTotal   time.Duration
	deleteDurationTotal time.Duration
	syncAttemptsTotal   int64
	syncObservations    int64
	deleteObservations  int64
}

// Snapshot is a point-in-time copy of the in-memory counters.
type Snapshot struct {
	SyncByStatus        map[string]int64 `json:"sync_by_status"`
	DeleteByStatus      map[string]int64 `json:"delete_by_status"`
	PolicyDeniedByOp    map[string]int64 `json:"policy_denied_by_op"`
	AvgSyncDurationMs   int64            `json:"avg_sync_duration_ms"`
	AvgDeleteDurationMs int64            `json:"avg_delete_duration_ms"`
	AvgSyncAttempts     float64          `json:"avg_sync_attempts"`
}

// NewInMemory creates an in-memory metrics recorder.
func NewInMemory() *InMemory {
	return &InMemory{
		syncByStatus:   make(map[string]int64),
		deleteByStatus: make(map[string]int64),
		deniedByOp:     make(map[string]int64),
	}
}

func (m *InMemory) IncSync(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncByStatus[status]++
}

func (m *InMemory) ObserveSyncDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncDurationTotal += duration
	m.syncObservations++
}

func (m *InMemory) ObserveSyncAttempts(attempts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncAttemptsTotal += int64(attempts)
}

func (m *InMemory) IncDelete(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteByStatus[status]++
}

func (m *InMemory) ObserveDeleteDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteDurationTotal += duration
	m.deleteObservations++
}

func (m *InMemory) IncPolicyDenied(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deniedByOp[operation]++
}

// Snapshot returns a copy of the current counters.
func (m *InMemory) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		SyncByStatus:     make(map[string]int64, len(m.syncByStatus)),
		DeleteByStatus:   make(map[string]int64, len(m.deleteByStatus)),
		PolicyDeniedByOp: make(map[string]int64, len(m.deniedByOp)),
	}
	for k, v := range m.syncByStatus {
		snap.SyncByStatus[k] = v
	}
	for k, v := range m.deleteByStatus {
		snap.DeleteByStatus[k] = v
	}
	for k, v := range m.deniedByOp {
		snap.PolicyDeniedByOp[k] = v
	}
	if m.syncObservations > 0 {
		snap.AvgSyncDurationMs = (m.syncDurationTotal / time.Duration(m.syncObservations)).Milliseconds()
		snap.AvgSyncAttempts = float64(m.syncAttemptsTotal) / float64(m.syncObservations)
	}
	if m.deleteObservations > 0 {
		snap.AvgDeleteDurationMs = (m.deleteDurationTotal / time.Duration(m.deleteObservations)).Milliseconds()
	}
	return snap
}
