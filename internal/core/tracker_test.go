package core

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerExpiry(t *testing.T) {
	mock := clock.NewMock()
	tracker := NewTracker(mock, 30*time.Second)

	tracker.Schedule("conn-1", "room-1", "alice", true)
	require.Equal(t, 1, tracker.Len())

	mock.Add(31 * time.Second)

	select {
	case pr := <-tracker.Expired():
		assert.Equal(t, "conn-1", pr.ConnID)
		assert.Equal(t, "room-1", pr.RoomID)
		assert.Equal(t, "alice", pr.Name)
		assert.True(t, pr.WasOwner)
		assert.True(t, tracker.Resolve(pr))
		assert.False(t, tracker.Resolve(pr), "double resolve must fail")
	case <-time.After(time.Second):
		t.Fatal("expiry not delivered")
	}
	assert.Equal(t, 0, tracker.Len())
}

func TestTrackerCancelMatching(t *testing.T) {
	mock := clock.NewMock()
	tracker := NewTracker(mock, 30*time.Second)

	tracker.Schedule("conn-1", "room-1", "alice", false)
	tracker.Schedule("conn-2", "room-2", "alice", false)

	// Matching is scoped to the room.
	_, ok := tracker.CancelMatching("room-1", "bob")
	assert.False(t, ok)

	pr, ok := tracker.CancelMatching("room-1", "alice")
	require.True(t, ok)
	assert.Equal(t, "conn-1", pr.ConnID)
	assert.Equal(t, 1, tracker.Len())

	// The cancelled timer never fires.
	mock.Add(time.Minute)
	select {
	case got := <-tracker.Expired():
		assert.Equal(t, "conn-2", got.ConnID, "only the room-2 record may expire")
	case <-time.After(time.Second):
		t.Fatal("remaining record did not expire")
	}
}

func TestTrackerCancelRoom(t *testing.T) {
	mock := clock.NewMock()
	tracker := NewTracker(mock, 30*time.Second)

	tracker.Schedule("conn-1", "room-1", "alice", false)
	tracker.Schedule("conn-2", "room-1", "bob", false)
	tracker.Schedule("conn-3", "room-2", "carol", false)

	tracker.CancelRoom("room-1")
	assert.Equal(t, 1, tracker.Len())

	_, ok := tracker.Cancel("conn-3")
	assert.True(t, ok)
	assert.Equal(t, 0, tracker.Len())
}
