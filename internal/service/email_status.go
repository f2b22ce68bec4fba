package service

import (
	"fmt"
	"sync"
	"time"
)

// DeliveryStatus records one delivery attempt for diagnostics.
type DeliveryStatus struct {
	Email     string
	Sent      bool
	Timestamp time.Time
	Attempts  int
}

// DeliveryTracker is a process-local, time-bounded record of recent email
// delivery attempts. Diagnostic only: it is not authoritative state and
// is lost on restart. Entries older than the TTL are swept hourly.
type DeliveryTracker struct {
	mu      sync.Mutex
	entries map[string]DeliveryStatus
	ttl     time.Duration
}

func NewDeliveryTracker(ttl time.Duration) *DeliveryTracker {
	t := &DeliveryTracker{
		entries: make(map[string]DeliveryStatus),
		ttl:     ttl,
	}
	go t.sweepLoop()
	return t
}

// Begin registers a pending delivery and returns its entry ID.
func (t *DeliveryTracker) Begin(email string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := fmt.Sprintf("%s_%d", email, time.Now().UnixNano())
	t.entries[id] = DeliveryStatus{
		Email:     email,
		Timestamp: time.Now(),
	}
	return id
}

// Finish records the outcome of a delivery started with Begin.
func (t *DeliveryTracker) Finish(id string, sent bool, attempts int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[id]
	if !ok {
		return
	}
	entry.Sent = sent
	entry.Attempts = attempts
	t.entries[id] = entry
}

// Status returns the recorded status for an entry ID.
func (t *DeliveryTracker) Status(id string) (DeliveryStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[id]
	return entry, ok
}

// Sweep drops entries older than the TTL relative to now and returns the
// number removed.
func (t *DeliveryTracker) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-t.ttl)
	removed := 0
	for id, entry := range t.entries {
		if entry.Timestamp.Before(cutoff) {
			delete(t.entries, id)
			removed++
		}
	}
	return removed
}

func (t *DeliveryTracker) sweepLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		t.Sweep(time.Now())
	}
}
