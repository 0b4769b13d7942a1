package core

// MessageKind separates client-authored messages from coordinator notices.
type MessageKind string

const (
	MessageKindUser   MessageKind = "user"
	MessageKindSystem MessageKind = "system"
)

// SystemUser is the author name stamped on synthesized notices.
const SystemUser = "System"

// Attachment rides along with a message. The payload is an opaque reference
// (typically a base64 data URI); the coordinator never inspects its bytes.
type Attachment struct {
	Name string
	Mime string
	Data string
}

// Message is the domain model for a chat message.
type Message struct {
	ID         string
	User       string
	Text       string
	Timestamp  int64 // unix milliseconds
	Kind       MessageKind
	Attachment *Attachment
}
