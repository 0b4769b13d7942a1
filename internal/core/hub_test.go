package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestJoinWithCreationIntentCreatesRoom(t *testing.T) {
	hub := startHub(t, HubOptions{})

	alice := NewClient("a")
	hub.RegisterClient(alice)

	snap := joinRoom(t, alice, "room-1", "alice", &CreationIntent{Name: "My Room"})
	if snap.Name != "My Room" {
		t.Fatalf("unexpected room name: %q", snap.Name)
	}
	if snap.OwnerID != "a" {
		t.Fatalf("creator should own the room, got owner %q", snap.OwnerID)
	}
	if len(snap.Members) != 1 || snap.Members[0].Name != "alice" {
		t.Fatalf("unexpected members: %+v", snap.Members)
	}
	texts := systemTexts(snap.Messages)
	if len(texts) != 1 || texts[0] != "alice has joined the room." {
		t.Fatalf("unexpected history: %v", texts)
	}

	ev := mustEvent(t, alice.Events, EventMembersUpdated)
	if len(ev.Members) != 1 {
		t.Fatalf("unexpected members update: %+v", ev.Members)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	exists, err := hub.RoomExists(ctx, "room-1")
	if err != nil || !exists {
		t.Fatalf("room should exist: exists=%v err=%v", exists, err)
	}
}

func TestJoinUnknownRoomFails(t *testing.T) {
	hub := startHub(t, HubOptions{})

	alice := NewClient("a")
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandJoinRoom, Room: "ghost", Name: "alice"}
	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeRoomNotFound {
		t.Fatalf("expected room_not_found, got %+v", ev)
	}

	// The failed join must not create the room as a side effect.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	exists, err := hub.RoomExists(ctx, "ghost")
	if err != nil || exists {
		t.Fatalf("room should not exist: exists=%v err=%v", exists, err)
	}
}

func TestJoinCreationRequiresRoomName(t *testing.T) {
	hub := startHub(t, HubOptions{})

	alice := NewClient("a")
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandJoinRoom, Room: "room-1", Name: "alice", Creation: &CreationIntent{}}
	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeInvalidCreation {
		t.Fatalf("expected invalid_creation_payload, got %+v", ev)
	}
}

func TestJoinRequiresUsername(t *testing.T) {
	hub := startHub(t, HubOptions{})

	alice := NewClient("a")
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandJoinRoom, Room: "room-1", Creation: &CreationIntent{Name: "My Room"}}
	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeUsernameRequired {
		t.Fatalf("expected username_required, got %+v", ev)
	}
}

func TestCreationIntentOnExistingRoomJoinsNormally(t *testing.T) {
	hub := startHub(t, HubOptions{})

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	joinRoom(t, alice, "room-1", "alice", &CreationIntent{Name: "My Room"})
	snap := joinRoom(t, bob, "room-1", "bob", &CreationIntent{Name: "Bob's Room"})

	// The intent is ignored: the live room keeps its name and owner.
	if snap.Name != "My Room" || snap.OwnerID != "a" {
		t.Fatalf("duplicate creation must degrade to a plain join, got %+v", snap)
	}
	if len(snap.Members) != 2 {
		t.Fatalf("unexpected members: %+v", snap.Members)
	}
}

func TestMessageOrderPreservedAcrossMembers(t *testing.T) {
	hub := startHub(t, HubOptions{})

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	joinRoom(t, alice, "room-1", "alice", &CreationIntent{Name: "My Room"})
	joinRoom(t, bob, "room-1", "bob", nil)
	drain(alice.Events)

	want := []string{"first", "second", "third"}
	for _, text := range want {
		alice.Commands <- &Command{Kind: CommandSendMessage, Room: "room-1", Text: text}
	}

	for _, member := range []*Client{alice, bob} {
		for _, text := range want {
			ev := mustEvent(t, member.Events, EventMessage)
			if ev.Message.Kind != MessageKindUser {
				t.Fatalf("unexpected kind: %+v", ev.Message)
			}
			if ev.Message.Text != text || ev.Message.User != "alice" {
				t.Fatalf("order violated: want %q got %+v", text, ev.Message)
			}
		}
	}
}

func TestSendMessageAppliesTextFilter(t *testing.T) {
	hub := startHub(t, HubOptions{
		Filter: func(text string) string { return strings.ToUpper(text) },
	})

	alice := NewClient("a")
	hub.RegisterClient(alice)
	joinRoom(t, alice, "room-1", "alice", &CreationIntent{Name: "My Room"})

	alice.Commands <- &Command{Kind: CommandSendMessage, Room: "room-1", Text: "quiet please"}
	ev := mustEvent(t, alice.Events, EventMessage)
	if ev.Message.Text != "QUIET PLEASE" {
		t.Fatalf("filter not applied: %+v", ev.Message)
	}
}

func TestSendMessageRequiresMembership(t *testing.T) {
	hub := startHub(t, HubOptions{})

	alice := NewClient("a")
	mallory := NewClient("m")
	hub.RegisterClient(alice)
	hub.RegisterClient(mallory)
	joinRoom(t, alice, "room-1", "alice", &CreationIntent{Name: "My Room"})

	mallory.Commands <- &Command{Kind: CommandSendMessage, Room: "room-1", Text: "hi"}
	ev := mustEvent(t, mallory.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNotInRoom {
		t.Fatalf("expected not_in_room, got %+v", ev)
	}
}

func TestChangeNameRewritesMembership(t *testing.T) {
	hub := startHub(t, HubOptions{})

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	joinRoom(t, alice, "room-1", "alice", &CreationIntent{Name: "My Room"})
	joinRoom(t, bob, "room-1", "bob", nil)
	drain(alice.Events)

	bob.Commands <- &Command{Kind: CommandChangeName, Room: "room-1", Name: "robert"}

	ev := mustEvent(t, alice.Events, EventMessage)
	if ev.Message.Kind != MessageKindSystem || ev.Message.Text != "bob is now known as robert." {
		t.Fatalf("unexpected notice: %+v", ev.Message)
	}

	update := mustEvent(t, alice.Events, EventMembersUpdated)
	found := false
	for _, m := range update.Members {
		if m.ID == "b" && m.Name == "robert" {
			found = true
		}
	}
	if !found {
		t.Fatalf("membership not rewritten: %+v", update.Members)
	}
}

func TestRenameRoomIsOwnerOnly(t *testing.T) {
	hub := startHub(t, HubOptions{})

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	joinRoom(t, alice, "room-1", "alice", &CreationIntent{Name: "My Room"})
	joinRoom(t, bob, "room-1", "bob", nil)

	bob.Commands <- &Command{Kind: CommandRenameRoom, Room: "room-1", Name: "Bob's Room"}
	ev := mustEvent(t, bob.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeUnauthorized {
		t.Fatalf("expected unauthorized, got %+v", ev)
	}
	if got := hub.registry.Get("room-1").Name; got != "My Room" {
		t.Fatalf("room renamed by non-owner: %q", got)
	}

	alice.Commands <- &Command{Kind: CommandRenameRoom, Room: "room-1", Name: "Our Room"}
	renamed := mustEvent(t, bob.Events, EventRoomRenamed)
	if renamed.Name != "Our Room" {
		t.Fatalf("unexpected rename event: %+v", renamed)
	}
}

func TestClearHistoryIsOwnerOnly(t *testing.T) {
	hub := startHub(t, HubOptions{})

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	joinRoom(t, alice, "room-1", "alice", &CreationIntent{Name: "My Room"})
	joinRoom(t, bob, "room-1", "bob", nil)

	alice.Commands <- &Command{Kind: CommandSendMessage, Room: "room-1", Text: "keep me?"}
	mustEvent(t, bob.Events, EventMessage)

	bob.Commands <- &Command{Kind: CommandClearHistory, Room: "room-1"}
	ev := mustEvent(t, bob.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeUnauthorized {
		t.Fatalf("expected unauthorized, got %+v", ev)
	}
	if history := hub.registry.Get("room-1").Messages(); len(history) < 3 {
		t.Fatalf("history mutated by non-owner: %d messages", len(history))
	}

	alice.Commands <- &Command{Kind: CommandClearHistory, Room: "room-1"}
	cleared := mustEvent(t, bob.Events, EventHistoryCleared)
	if len(cleared.Messages) != 1 {
		t.Fatalf("cleared history should hold a single notice, got %d", len(cleared.Messages))
	}
	notice := cleared.Messages[0]
	if notice.Kind != MessageKindSystem || notice.Text != "alice has cleared the chat history." {
		t.Fatalf("unexpected notice: %+v", notice)
	}
}

func TestDeleteRoomKicksEveryMember(t *testing.T) {
	hub := startHub(t, HubOptions{})

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	joinRoom(t, alice, "room-1", "alice", &CreationIntent{Name: "My Room"})
	joinRoom(t, bob, "room-1", "bob", nil)

	alice.Commands <- &Command{Kind: CommandDeleteRoom, Room: "room-1"}

	for _, member := range []*Client{alice, bob} {
		mustEvent(t, member.Events, EventRoomDeleted)
		// Kicked connections have their event stream closed.
		eventually(t, func() bool {
			select {
			case _, ok := <-member.Events:
				return !ok
			default:
				return false
			}
		}, "events channel not closed after room deletion")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	exists, err := hub.RoomExists(ctx, "room-1")
	if err != nil || exists {
		t.Fatalf("room should be gone: exists=%v err=%v", exists, err)
	}
}

func TestReconnectWithinGraceIsSilent(t *testing.T) {
	mock := clock.NewMock()
	hub := startHub(t, HubOptions{Clock: mock})

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	joinRoom(t, alice, "room-1", "alice", &CreationIntent{Name: "My Room"})
	joinRoom(t, bob, "room-1", "bob", nil)

	hub.UnregisterClient(bob)
	settle(t, hub)

	// Same display name, fresh connection: silently absorbs the pending
	// removal slot.
	bob2 := NewClient("b2")
	hub.RegisterClient(bob2)
	snap := joinRoom(t, bob2, "room-1", "bob", nil)

	if len(snap.Members) != 2 {
		t.Fatalf("stale entry not replaced: %+v", snap.Members)
	}
	for _, m := range snap.Members {
		if m.ID == "b" {
			t.Fatalf("stale connection still a member: %+v", snap.Members)
		}
	}

	// The timer was cancelled; advancing past the grace period changes nothing.
	mock.Add(DefaultGracePeriod + time.Second)
	drain(alice.Events)
	alice.Commands <- &Command{Kind: CommandSendMessage, Room: "room-1", Text: "ping"}
	mustEvent(t, alice.Events, EventMessage)

	texts := systemTexts(hub.registry.Get("room-1").Messages())
	for _, text := range texts {
		if strings.Contains(text, "left") {
			t.Fatalf("reconnection leaked a departure notice: %v", texts)
		}
	}
	joins := 0
	for _, text := range texts {
		if strings.Contains(text, "has joined") {
			joins++
		}
	}
	if joins != 2 {
		t.Fatalf("expected exactly the two original join notices, got %v", texts)
	}
}

func TestGraceExpiryRemovesMember(t *testing.T) {
	mock := clock.NewMock()
	hub := startHub(t, HubOptions{Clock: mock})

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	joinRoom(t, alice, "room-1", "alice", &CreationIntent{Name: "My Room"})
	joinRoom(t, bob, "room-1", "bob", nil)
	drain(alice.Events)

	hub.UnregisterClient(bob)
	settle(t, hub)
	mock.Add(DefaultGracePeriod + time.Second)

	ev := mustEvent(t, alice.Events, EventMessage)
	if ev.Message.Kind != MessageKindSystem || ev.Message.Text != "bob has left the room." {
		t.Fatalf("unexpected departure notice: %+v", ev.Message)
	}
	update := mustEvent(t, alice.Events, EventMembersUpdated)
	if len(update.Members) != 1 || update.Members[0].ID != "a" {
		t.Fatalf("membership not pruned: %+v", update.Members)
	}

	departures := 0
	for _, text := range systemTexts(hub.registry.Get("room-1").Messages()) {
		if strings.Contains(text, "left") {
			departures++
		}
	}
	if departures != 1 {
		t.Fatalf("expected exactly one departure notice, got %d", departures)
	}
}

func TestOwnerExpiryElectsFirstMember(t *testing.T) {
	mock := clock.NewMock()
	hub := startHub(t, HubOptions{Clock: mock})

	alice := NewClient("a")
	bob := NewClient("b")
	carol := NewClient("c")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	hub.RegisterClient(carol)
	joinRoom(t, alice, "room-1", "alice", &CreationIntent{Name: "My Room"})
	joinRoom(t, bob, "room-1", "bob", nil)
	joinRoom(t, carol, "room-1", "carol", nil)
	drain(bob.Events)
	drain(carol.Events)

	hub.UnregisterClient(alice)
	settle(t, hub)
	mock.Add(DefaultGracePeriod + time.Second)

	ev := mustEvent(t, bob.Events, EventMessage)
	want := "alice (the room owner) has left. bob is now the new room owner."
	if ev.Message.Kind != MessageKindSystem || ev.Message.Text != want {
		t.Fatalf("unexpected transfer notice: %+v", ev.Message)
	}

	owner := mustEvent(t, carol.Events, EventOwnerChanged)
	if owner.OwnerID != "b" {
		t.Fatalf("expected bob to inherit the room, got %q", owner.OwnerID)
	}

	// Owner invariant: the new owner is a current member, and the transfer
	// notice superseded the plain departure message.
	room := hub.registry.Get("room-1")
	if !room.HasMember(room.OwnerID) {
		t.Fatalf("owner %q is not a member", room.OwnerID)
	}
	for _, text := range systemTexts(room.Messages()) {
		if text == "alice has left the room." {
			t.Fatalf("both departure notices emitted: %v", text)
		}
	}
}

func TestLastMemberExpiryDeletesRoom(t *testing.T) {
	mock := clock.NewMock()
	hub := startHub(t, HubOptions{Clock: mock})

	alice := NewClient("a")
	hub.RegisterClient(alice)
	joinRoom(t, alice, "room-1", "alice", &CreationIntent{Name: "My Room"})

	hub.UnregisterClient(alice)
	settle(t, hub)
	mock.Add(DefaultGracePeriod + time.Second)

	eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		exists, err := hub.RoomExists(ctx, "room-1")
		return err == nil && !exists
	}, "room not deleted after last member's grace period")
}

func TestOwnerReconnectKeepsOwnership(t *testing.T) {
	mock := clock.NewMock()
	hub := startHub(t, HubOptions{Clock: mock})

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	joinRoom(t, alice, "room-1", "alice", &CreationIntent{Name: "My Room"})
	joinRoom(t, bob, "room-1", "bob", nil)

	hub.UnregisterClient(alice)
	settle(t, hub)

	alice2 := NewClient("a2")
	hub.RegisterClient(alice2)
	snap := joinRoom(t, alice2, "room-1", "alice", nil)

	// Ownership follows the participant onto its new connection identity.
	if snap.OwnerID != "a2" {
		t.Fatalf("ownership lost across reconnect: %q", snap.OwnerID)
	}
	owner := mustEvent(t, bob.Events, EventOwnerChanged)
	if owner.OwnerID != "a2" {
		t.Fatalf("unexpected owner broadcast: %q", owner.OwnerID)
	}
	room := hub.registry.Get("room-1")
	if !room.HasMember(room.OwnerID) {
		t.Fatalf("owner %q is not a member", room.OwnerID)
	}
}

type stubTokens struct {
	minted map[string][2]string
}

func newStubTokens() *stubTokens {
	return &stubTokens{minted: make(map[string][2]string)}
}

func (s *stubTokens) Mint(roomID, connID, name string) (string, error) {
	token := "tok-" + connID
	s.minted[token] = [2]string{roomID, connID}
	return token, nil
}

func (s *stubTokens) Verify(token string) (string, string, error) {
	entry, ok := s.minted[token]
	if !ok {
		return "", "", ErrUnauthorized
	}
	return entry[0], entry[1], nil
}

func TestRejoinTokenBeatsDisplayNameMatching(t *testing.T) {
	mock := clock.NewMock()
	hub := startHub(t, HubOptions{Clock: mock, Rejoin: newStubTokens()})

	alice := NewClient("a")
	bob := NewClient("b")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	joinRoom(t, alice, "room-1", "alice", &CreationIntent{Name: "My Room"})
	snap := joinRoom(t, bob, "room-1", "bob", nil)
	if snap.RejoinToken == "" {
		t.Fatal("join reply should carry a rejoin token")
	}

	hub.UnregisterClient(bob)
	settle(t, hub)

	// A valid token reclaims the slot even under a different display name.
	bob2 := NewClient("b2")
	hub.RegisterClient(bob2)
	bob2.Commands <- &Command{Kind: CommandJoinRoom, Room: "room-1", Name: "robert", RejoinToken: snap.RejoinToken}
	ev := mustEvent(t, bob2.Events, EventJoined)

	if len(ev.Snapshot.Members) != 2 {
		t.Fatalf("stale entry not replaced: %+v", ev.Snapshot.Members)
	}
	for _, text := range systemTexts(ev.Snapshot.Messages) {
		if strings.Contains(text, "robert") {
			t.Fatalf("token reconnection leaked a join notice: %v", text)
		}
	}
}
