package cache

import (
	"sync"
	"time"
)

const (
	// ArrivalWindow is how long a clicked call stays marked as recently opened
	ArrivalWindow = 10 * time.Minute
)

// ArrivalTracker remembers which calls the user opened recently. Entries
// older than ArrivalWindow are pruned on every write.
type ArrivalTracker struct {
	clicks map[string]time.Time // callID -> click time
	now    func() time.Time
	mu     sync.RWMutex
}

// NewArrivalTracker creates an empty tracker. A nil clock uses time.Now.
func NewArrivalTracker(now func() time.Time) *ArrivalTracker {
	if now == nil {
		now = time.Now
	}
	return &ArrivalTracker{
		clicks: make(map[string]time.Time),
		now:    now,
	}
}

// Click records that the user opened callID
func (t *ArrivalTracker) Click(callID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clicks[callID] = t.now()
	t.pruneLocked()
}

// IsRecent reports whether callID was opened within the window
func (t *ArrivalTracker) IsRecent(callID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	at, ok := t.clicks[callID]
	return ok && t.now().Sub(at) < ArrivalWindow
}

// Snapshot returns the live entries as unix milliseconds, for persistence
func (t *ArrivalTracker) Snapshot() map[string]int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	out := make(map[string]int64, len(t.clicks))
	for id, at := range t.clicks {
		if now.Sub(at) < ArrivalWindow {
			out[id] = at.UnixMilli()
		}
	}
	return out
}

// Load replaces the entries from a persisted snapshot, dropping expired ones
func (t *ArrivalTracker) Load(snapshot map[string]int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clicks = make(map[string]time.Time, len(snapshot))
	for id, ms := range snapshot {
		t.clicks[id] = time.UnixMilli(ms)
	}
	t.pruneLocked()
}

func (t *ArrivalTracker) pruneLocked() {
	now := t.now()
	for id, at := range t.clicks {
		if now.Sub(at) >= ArrivalWindow {
			delete(t.clicks, id)
		}
	}
}
