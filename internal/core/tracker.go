package core

import (
	"time"

	"github.com/benbjohnson/clock"
)

// PendingRemoval defers the side effects of a disconnect. It holds weak
// references only (room id + connection id); the registry keeps owning the
// room.
type PendingRemoval struct {
	ConnID   string
	RoomID   string
	Name     string
	WasOwner bool

	timer *clock.Timer
}

// Tracker schedules grace-period timers for disconnected members. All map
// access happens on the hub goroutine; the timer callback only posts the
// record to the Expired channel, which re-enters the hub loop.
type Tracker struct {
	clock   clock.Clock
	grace   time.Duration
	pending map[string]*PendingRemoval
	expired chan *PendingRemoval
}

// NewTracker constructs a tracker with the given clock and grace period.
func NewTracker(clk clock.Clock, grace time.Duration) *Tracker {
	return &Tracker{
		clock:   clk,
		grace:   grace,
		pending: make(map[string]*PendingRemoval),
		expired: make(chan *PendingRemoval, 16),
	}
}

// Expired delivers records whose grace period has fully elapsed.
func (t *Tracker) Expired() <-chan *PendingRemoval {
	return t.expired
}

// Schedule starts the grace timer for a disconnecting connection.
func (t *Tracker) Schedule(connID, roomID, name string, wasOwner bool) {
	pr := &PendingRemoval{
		ConnID:   connID,
		RoomID:   roomID,
		Name:     name,
		WasOwner: wasOwner,
	}
	pr.timer = t.clock.AfterFunc(t.grace, func() {
		t.expired <- pr
	})
	t.pending[connID] = pr
}

// Cancel stops the timer for the given connection and returns its record.
func (t *Tracker) Cancel(connID string) (*PendingRemoval, bool) {
	pr, ok := t.pending[connID]
	if !ok {
		return nil, false
	}
	pr.timer.Stop()
	delete(t.pending, connID)
	return pr, true
}

// CancelMatching stops the first pending removal in the room whose stale
// membership entry carries the given display name. This is the legacy
// reconnection heuristic; rejoin tokens take precedence when presented.
func (t *Tracker) CancelMatching(roomID, name string) (*PendingRemoval, bool) {
	for connID, pr := range t.pending {
		if pr.RoomID == roomID && pr.Name == name {
			pr.timer.Stop()
			delete(t.pending, connID)
			return pr, true
		}
	}
	return nil, false
}

// CancelRoom drops every pending removal referencing the room. Used when the
// room is deleted outright.
func (t *Tracker) CancelRoom(roomID string) {
	for connID, pr := range t.pending {
		if pr.RoomID == roomID {
			pr.timer.Stop()
			delete(t.pending, connID)
		}
	}
}

// Resolve consumes a fired record. Returns false when a cancellation won the
// race against the timer, in which case the expiry must be ignored.
func (t *Tracker) Resolve(pr *PendingRemoval) bool {
	if t.pending[pr.ConnID] != pr {
		return false
	}
	delete(t.pending, pr.ConnID)
	return true
}

// Len returns the number of connections currently in their grace period.
func (t *Tracker) Len() int {
	return len(t.pending)
}
