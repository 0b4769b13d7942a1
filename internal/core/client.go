package core

// Client is one active connection as seen by the core layer. The ID is the
// transport-assigned connection identity; it is not stable across reconnects.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	// Owned by the hub goroutine. Set once the client has been kicked so the
	// hub never writes to a closed Events channel.
	gone bool
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 32),
	}
}
