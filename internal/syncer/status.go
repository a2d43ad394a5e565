package syncer

import "sync"

// StatusSnapshot is the UI-facing view of the orchestrator. Snapshots are
// copied out under the lock so observers never see a torn intermediate state.
type StatusSnapshot struct {
	IsSyncing    bool
	LastResult   string
	PendingCount int
}

// Status holds the observable sync state.
type Status struct {
	mu       sync.Mutex
	snapshot StatusSnapshot
}

// NewStatus constructs an idle Status.
func NewStatus() *Status {
	return &Status{}
}

// Snapshot returns a consistent copy of the current state.
func (s *Status) Snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

func (s *Status) beginSync() {
	s.mu.Lock()
	s.snapshot.IsSyncing = true
	s.mu.Unlock()
}

// endSync records the outcome atomically. pending < 0 means the pending
// count could not be refreshed; the previous value is kept.
func (s *Status) endSync(message string, pending int) {
	s.mu.Lock()
	s.snapshot.IsSyncing = false
	s.snapshot.LastResult = message
	if pending >= 0 {
		s.snapshot.PendingCount = pending
	}
	s.mu.Unlock()
}
