// Package proto defines the JSON wire protocol: a typed envelope with one
// payload variant per message name, validated at the transport boundary.
package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin         = "join"
	InboundTypeMsg          = "msg"
	InboundTypeChangeName   = "change-name"
	InboundTypeRenameRoom   = "rename-room"
	InboundTypeClearHistory = "clear-history"
	InboundTypeDeleteRoom   = "delete-room"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventJoined         = "joined"
	EventMessage        = "message"
	EventMembersUpdated = "members-updated"
	EventRoomRenamed    = "room-renamed"
	EventHistoryCleared = "history-cleared"
	EventRoomDeleted    = "room-deleted"
	EventOwnerChanged   = "owner-changed"
)

// RoomCreation is the optional creation intent accompanying a join.
type RoomCreation struct {
	Name string `json:"name"`
}

// JoinData requests to join (or create) a room.
type JoinData struct {
	Room        string        `json:"room"`
	User        string        `json:"user"`
	Create      *RoomCreation `json:"create,omitempty"`
	RejoinToken string        `json:"rejoin_token,omitempty"`
}

// AttachmentData is an opaque payload relayed with a message. Data is a
// base64 data URI the server never decodes.
type AttachmentData struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data"`
}

// MsgData is a chat message from the client. Text may be empty for
// attachment-only messages.
type MsgData struct {
	Room       string          `json:"room"`
	Text       string          `json:"text,omitempty"`
	Attachment *AttachmentData `json:"attachment,omitempty"`
}

// ChangeNameData rewrites the sender's display name.
type ChangeNameData struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

// RenameRoomData changes the room's display name (owner only).
type RenameRoomData struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

// RoomRefData identifies a room with no further arguments (clear-history,
// delete-room).
type RoomRefData struct {
	Room string `json:"room"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// MemberData is one entry of a room's membership list.
type MemberData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MessageData is a message as seen on the wire.
type MessageData struct {
	ID         string          `json:"id"`
	User       string          `json:"user"`
	Text       string          `json:"text,omitempty"`
	TS         int64           `json:"ts"`
	Kind       string          `json:"kind"`
	Attachment *AttachmentData `json:"attachment,omitempty"`
}

// EventJoinedData is the direct reply to a successful join.
type EventJoinedData struct {
	Room        string        `json:"room"`
	Name        string        `json:"name"`
	Messages    []MessageData `json:"messages"`
	Members     []MemberData  `json:"members"`
	Owner       string        `json:"owner"`
	RejoinToken string        `json:"rejoin_token,omitempty"`
}

// EventMessageData notifies room members about a new message.
type EventMessageData struct {
	Room string `json:"room"`
	MessageData
}

// EventMembersData carries the full membership list after a change.
type EventMembersData struct {
	Room    string       `json:"room"`
	Members []MemberData `json:"members"`
}

// EventRoomRenamedData announces the room's new display name.
type EventRoomRenamedData struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

// EventHistoryData carries the replacement history after a clear.
type EventHistoryData struct {
	Room     string        `json:"room"`
	Messages []MessageData `json:"messages"`
}

// EventRoomDeletedData is the final event for a deleted room.
type EventRoomDeletedData struct {
	Room string `json:"room"`
}

// EventOwnerChangedData announces the new owner's connection id.
type EventOwnerChangedData struct {
	Room  string `json:"room"`
	Owner string `json:"owner"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
