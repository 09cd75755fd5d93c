// Package session tracks armed capture windows: short-lived markers that
// the next image from a participant should be ingested rather than
// matched for repost.
package session

import (
	"sync"
	"time"
)

// Key identifies one capture slot: a participant within a conversation.
// Either field may be empty when the platform omits it; the pair is still
// a valid, if degenerate, key.
type Key struct {
	Conversation string
	Participant  string
}

// Tracker holds at most one armed window per key. Entries expire lazily
// on lookup; there is no sweeper and nothing is persisted, so a restart
// clears all windows.
type Tracker struct {
	mu    sync.Mutex
	ttl   time.Duration
	armed map[Key]time.Time
}

// NewTracker returns a tracker whose windows stay open for ttl.
func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{ttl: ttl, armed: make(map[Key]time.Time)}
}

func (t *Tracker) TTL() time.Duration { return t.ttl }

// Arm opens the capture window for k, replacing any existing one.
func (t *Tracker) Arm(k Key, now time.Time) {
	t.mu.Lock()
	t.armed[k] = now.Add(t.ttl)
	t.mu.Unlock()
}

// TakeIfArmed consumes the window for k and reports whether it was open
// and fresh. Call it only for image-bearing events: the window is spent on
// one candidate image whether or not the ingest that follows succeeds.
// A stale window is discarded on sight and reported as not armed.
func (t *Tracker) TakeIfArmed(k Key, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	expiry, ok := t.armed[k]
	if !ok {
		return false
	}
	delete(t.armed, k)
	return !now.After(expiry)
}

// Len reports how many windows are currently recorded, stale ones
// included.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.armed)
}
