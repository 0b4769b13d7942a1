package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom joins (or creates) a room.
	CommandJoinRoom CommandKind = iota
	// CommandSendMessage delivers a chat message to room members.
	CommandSendMessage
	// CommandChangeName rewrites the sender's display name.
	CommandChangeName
	// CommandRenameRoom changes the room's display name (owner only).
	CommandRenameRoom
	// CommandClearHistory wipes the room history (owner only).
	CommandClearHistory
	// CommandDeleteRoom destroys the room and kicks everyone (owner only).
	CommandDeleteRoom
)

// CreationIntent accompanies a join that is allowed to create the room.
type CreationIntent struct {
	Name string
}

// Command represents an action requested by a client. Which fields are
// meaningful depends on Kind; the transport mapper validates them before the
// command enters the hub.
type Command struct {
	Kind CommandKind
	Room string

	// Name carries the display name for joins and change-name, or the new
	// room name for rename-room.
	Name string

	Creation    *CreationIntent
	RejoinToken string

	Text       string
	Attachment *Attachment
}
