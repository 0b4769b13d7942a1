package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventJoined is the direct reply to a successful join, carrying a full
	// room snapshot. Never broadcast.
	EventJoined EventKind = iota
	// EventMessage notifies room members about a new message (user or system).
	EventMessage
	// EventMembersUpdated carries the full membership list after any change.
	EventMembersUpdated
	// EventRoomRenamed notifies members that the room display name changed.
	EventRoomRenamed
	// EventHistoryCleared carries the replacement (singleton) history.
	EventHistoryCleared
	// EventRoomDeleted is the last event members of a deleted room observe.
	EventRoomDeleted
	// EventOwnerChanged announces the new owner's connection id.
	EventOwnerChanged
	// EventError reports a domain error to the requesting client only.
	EventError
)

// RoomSnapshot is the state handed to a client when it joins.
type RoomSnapshot struct {
	RoomID      string
	Name        string
	Messages    []Message
	Members     []Member
	OwnerID     string
	RejoinToken string
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Room     string
	Name     string // new room name for EventRoomRenamed
	OwnerID  string // for EventOwnerChanged
	Message  *Message
	Messages []Message // for EventHistoryCleared
	Members  []Member  // for EventMembersUpdated
	Snapshot *RoomSnapshot
	Error    *CoreError
}
