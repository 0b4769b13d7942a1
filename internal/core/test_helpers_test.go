package core

import (
	"context"
	"testing"
	"time"
)

func startHub(t *testing.T, opts HubOptions) *Hub {
	t.Helper()

	hub := NewHub(opts)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// joinRoom sends a join command and consumes the direct reply.
func joinRoom(t *testing.T, c *Client, roomID, user string, create *CreationIntent) *RoomSnapshot {
	t.Helper()

	c.Commands <- &Command{Kind: CommandJoinRoom, Room: roomID, Name: user, Creation: create}
	ev := mustEvent(t, c.Events, EventJoined)
	if ev.Snapshot == nil {
		t.Fatalf("joined event without snapshot: %+v", ev)
	}
	return ev.Snapshot
}

// settle blocks until the hub has drained everything handed to it directly
// (register/unregister). Commands travel through an extra forwarding hop, so
// they are synchronized via their resulting events instead.
func settle(t *testing.T, hub *Hub) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := hub.RoomExists(ctx, "__settle__"); err != nil {
		t.Fatalf("hub settle: %v", err)
	}
}

// eventually polls a condition the hub reaches asynchronously.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

// drain discards everything buffered on an event stream. Callers must have
// synchronized on the hub (via mustEvent or settle) first so nothing is in
// flight.
func drain(ch <-chan *Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func systemTexts(msgs []Message) []string {
	var texts []string
	for _, m := range msgs {
		if m.Kind == MessageKindSystem {
			texts = append(texts, m.Text)
		}
	}
	return texts
}
