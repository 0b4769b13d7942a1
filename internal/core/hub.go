package core

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-server/internal/utils"
)

// DefaultGracePeriod is how long a disconnected member stays notionally
// present before its departure takes effect.
const DefaultGracePeriod = 30 * time.Second

// TextFilter transforms outbound message text before it is stored and
// broadcast. It must be pure: no side effects on room state.
type TextFilter func(string) string

// RejoinTokens mints and verifies opaque reconnection tokens. A token issued
// at join time lets a client reclaim its membership slot after a transient
// drop without trusting display-name equality.
type RejoinTokens interface {
	Mint(roomID, connID, name string) (string, error)
	Verify(token string) (roomID, connID string, err error)
}

// HubOptions configures a hub. Zero values fall back to sane defaults.
type HubOptions struct {
	Logger      *zerolog.Logger
	Clock       clock.Clock
	GracePeriod time.Duration
	Filter      TextFilter
	Rejoin      RejoinTokens
}

// Hub is the room membership and broadcast coordinator. A single goroutine
// (Run) owns all room state: every client command, grace-timer expiry, and
// registry query is handled to completion before the next one begins, so
// per-room event order is identical for every member and no locks are needed.
type Hub struct {
	log      zerolog.Logger
	clock    clock.Clock
	registry *Registry
	tracker  *Tracker
	filter   TextFilter
	rejoin   RejoinTokens

	clients  map[string]*Client
	memberOf map[string]string // connection id -> room id

	commands   chan clientCommand
	register   chan *Client
	unregister chan *Client
	queries    chan existsQuery
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

type existsQuery struct {
	roomID string
	reply  chan bool
}

// NewHub constructs a hub. Pass zero-value HubOptions for defaults: real
// clock, 30s grace period, no text filter, no rejoin tokens.
func NewHub(opts HubOptions) *Hub {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	grace := opts.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Hub{
		log:        logger,
		clock:      clk,
		registry:   NewRegistry(),
		tracker:    NewTracker(clk, grace),
		filter:     opts.Filter,
		rejoin:     opts.Rejoin,
		clients:    make(map[string]*Client),
		memberOf:   make(map[string]string),
		commands:   make(chan clientCommand, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		queries:    make(chan existsQuery),
	}
}

// RegisterClient hands a new connection to the hub.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient tells the hub the connection is gone. Membership is not
// removed immediately; the reconnection tracker takes over.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// RoomExists answers whether a room is live, serialized through the hub loop.
func (h *Hub) RoomExists(ctx context.Context, roomID string) (bool, error) {
	q := existsQuery{roomID: roomID, reply: make(chan bool, 1)}
	select {
	case h.queries <- q:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case exists := <-q.reply:
		return exists, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Run processes the serialized event stream until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case cc := <-h.commands:
			h.dispatch(cc.client, cc.cmd)
		case pr := <-h.tracker.Expired():
			h.handleExpiry(pr)
		case q := <-h.queries:
			q.reply <- h.registry.Get(q.roomID) != nil
		}
	}
}

func (h *Hub) handleRegister(c *Client) {
	h.clients[c.ID] = c
	// Forward this client's commands into the single serialized stream.
	// The goroutine exits when the transport closes c.Commands.
	go func() {
		for cmd := range c.Commands {
			h.commands <- clientCommand{client: c, cmd: cmd}
		}
	}()
	h.log.Debug().Str("conn_id", c.ID).Msg("client registered")
}

func (h *Hub) handleUnregister(c *Client) {
	delete(h.clients, c.ID)

	roomID, ok := h.memberOf[c.ID]
	if !ok {
		return
	}
	delete(h.memberOf, c.ID)

	room := h.registry.Get(roomID)
	if room == nil {
		return
	}
	name, ok := room.MemberName(c.ID)
	if !ok {
		return
	}

	// The membership entry stays in place during the grace period so the
	// member remains notionally present to everyone else.
	h.tracker.Schedule(c.ID, roomID, name, room.OwnerID == c.ID)
	h.log.Debug().Str("conn_id", c.ID).Str("room", roomID).Msg("grace period started")
}

func (h *Hub) dispatch(c *Client, cmd *Command) {
	if _, ok := h.clients[c.ID]; !ok {
		// Command queued behind an unregister; the connection is gone.
		return
	}
	switch cmd.Kind {
	case CommandJoinRoom:
		h.handleJoin(c, cmd)
	case CommandSendMessage:
		h.handleSendMessage(c, cmd)
	case CommandChangeName:
		h.handleChangeName(c, cmd)
	case CommandRenameRoom:
		h.handleRenameRoom(c, cmd)
	case CommandClearHistory:
		h.handleClearHistory(c, cmd)
	case CommandDeleteRoom:
		h.handleDeleteRoom(c, cmd)
	default:
		h.replyError(c, cmd.Room, ErrCodeBadRequest, "unknown command")
	}
}

func (h *Hub) handleJoin(c *Client, cmd *Command) {
	if cmd.Name == "" {
		h.replyError(c, cmd.Room, ErrCodeUsernameRequired, "username is required")
		return
	}
	if _, joined := h.memberOf[c.ID]; joined {
		h.replyError(c, cmd.Room, ErrCodeBadRequest, "connection already joined a room")
		return
	}

	room := h.registry.Get(cmd.Room)
	created := false
	if room == nil {
		if cmd.Creation == nil {
			h.replyError(c, cmd.Room, ErrCodeRoomNotFound, "room not found")
			return
		}
		if cmd.Creation.Name == "" {
			h.replyError(c, cmd.Room, ErrCodeInvalidCreation, "invalid room creation data")
			return
		}
		var err error
		room, err = h.registry.Create(cmd.Room, cmd.Creation.Name, c.ID)
		if err != nil {
			h.replyError(c, cmd.Room, ErrCodeRoomAlreadyExists, "room already exists")
			return
		}
		created = true
	}

	// A pending removal for the same slot makes this join a silent
	// reconnection: the stale entry is discarded and no join notice is sent.
	staleWasOwner := false
	reconnected := false
	if pr := h.matchPendingRemoval(room, cmd); pr != nil {
		room.RemoveMember(pr.ConnID)
		staleWasOwner = room.OwnerID == pr.ConnID
		reconnected = true
	}

	if !reconnected {
		h.systemMessage(room, fmt.Sprintf("%s has joined the room.", cmd.Name))
	}

	room.AddMember(c.ID, cmd.Name)
	h.memberOf[c.ID] = room.ID
	if staleWasOwner {
		// Same participant, fresh connection identity. Keep the owner
		// invariant intact without running an election.
		room.OwnerID = c.ID
	}

	snapshot := &RoomSnapshot{
		RoomID:   room.ID,
		Name:     room.Name,
		Messages: room.Messages(),
		Members:  room.Members(),
		OwnerID:  room.OwnerID,
	}
	if h.rejoin != nil {
		token, err := h.rejoin.Mint(room.ID, c.ID, cmd.Name)
		if err != nil {
			h.log.Warn().Err(err).Str("conn_id", c.ID).Msg("mint rejoin token")
		} else {
			snapshot.RejoinToken = token
		}
	}

	h.send(c, &Event{Kind: EventJoined, Room: room.ID, Snapshot: snapshot})
	h.broadcast(room, &Event{Kind: EventMembersUpdated, Room: room.ID, Members: room.Members()})
	if staleWasOwner {
		h.broadcast(room, &Event{Kind: EventOwnerChanged, Room: room.ID, OwnerID: c.ID})
	}

	h.log.Info().
		Str("conn_id", c.ID).
		Str("room", room.ID).
		Str("user", cmd.Name).
		Bool("created", created).
		Bool("reconnected", reconnected).
		Msg("joined room")
}

func (h *Hub) matchPendingRemoval(room *Room, cmd *Command) *PendingRemoval {
	if h.rejoin != nil && cmd.RejoinToken != "" {
		roomID, connID, err := h.rejoin.Verify(cmd.RejoinToken)
		if err == nil && roomID == room.ID {
			if pr, ok := h.tracker.Cancel(connID); ok {
				return pr
			}
		} else if err != nil {
			h.log.Debug().Err(err).Str("room", room.ID).Msg("rejoin token rejected")
		}
	}
	if pr, ok := h.tracker.CancelMatching(room.ID, cmd.Name); ok {
		return pr
	}
	return nil
}

func (h *Hub) handleSendMessage(c *Client, cmd *Command) {
	room := h.registry.Get(cmd.Room)
	if room == nil {
		h.replyError(c, cmd.Room, ErrCodeRoomNotFound, "room not found")
		return
	}
	name, ok := room.MemberName(c.ID)
	if !ok {
		h.replyError(c, cmd.Room, ErrCodeNotInRoom, "not in room")
		return
	}

	text := cmd.Text
	if h.filter != nil {
		text = h.filter(text)
	}
	msg := Message{
		ID:         utils.NewID(),
		User:       name,
		Text:       text,
		Timestamp:  h.clock.Now().UnixMilli(),
		Kind:       MessageKindUser,
		Attachment: cmd.Attachment,
	}
	room.AppendMessage(msg)
	h.broadcast(room, &Event{Kind: EventMessage, Room: room.ID, Message: &msg})
}

func (h *Hub) handleChangeName(c *Client, cmd *Command) {
	room := h.registry.Get(cmd.Room)
	if room == nil {
		h.replyError(c, cmd.Room, ErrCodeRoomNotFound, "room not found")
		return
	}
	old, ok := room.RenameMember(c.ID, cmd.Name)
	if !ok {
		h.replyError(c, cmd.Room, ErrCodeNotInRoom, "not in room")
		return
	}

	h.systemMessage(room, fmt.Sprintf("%s is now known as %s.", old, cmd.Name))
	h.broadcast(room, &Event{Kind: EventMembersUpdated, Room: room.ID, Members: room.Members()})
}

func (h *Hub) handleRenameRoom(c *Client, cmd *Command) {
	room, ok := h.requireOwner(c, cmd.Room)
	if !ok {
		return
	}

	name, found := room.MemberName(c.ID)
	if !found {
		name = "The room owner"
	}
	if err := h.registry.Rename(room.ID, cmd.Name); err != nil {
		h.replyError(c, room.ID, ErrCodeRoomNotFound, "room not found")
		return
	}

	h.systemMessage(room, fmt.Sprintf("%s changed the room name to %q.", name, cmd.Name))
	h.broadcast(room, &Event{Kind: EventRoomRenamed, Room: room.ID, Name: cmd.Name})
}

func (h *Hub) handleClearHistory(c *Client, cmd *Command) {
	room, ok := h.requireOwner(c, cmd.Room)
	if !ok {
		return
	}

	name, found := room.MemberName(c.ID)
	if !found {
		name = "The room owner"
	}
	notice := h.newSystemMessage(fmt.Sprintf("%s has cleared the chat history.", name))
	room.ClearHistory(notice)

	h.broadcast(room, &Event{Kind: EventHistoryCleared, Room: room.ID, Messages: room.Messages()})
	h.log.Info().Str("room", room.ID).Msg("history cleared")
}

func (h *Hub) handleDeleteRoom(c *Client, cmd *Command) {
	room, ok := h.requireOwner(c, cmd.Room)
	if !ok {
		return
	}

	h.broadcast(room, &Event{Kind: EventRoomDeleted, Room: room.ID})

	// Force-close every member connection. Closing Events makes the
	// transport write loop return and tear the socket down.
	for _, id := range room.MemberIDs() {
		delete(h.memberOf, id)
		if cl, present := h.clients[id]; present && !cl.gone {
			cl.gone = true
			close(cl.Events)
		}
	}
	h.tracker.CancelRoom(room.ID)
	h.registry.Delete(room.ID)
	h.log.Info().Str("room", room.ID).Msg("room deleted")
}

// requireOwner resolves the room and enforces owner-only actions. A non-owner
// caller gets an explicit unauthorized reply and no broadcast happens.
func (h *Hub) requireOwner(c *Client, roomID string) (*Room, bool) {
	room := h.registry.Get(roomID)
	if room == nil {
		h.replyError(c, roomID, ErrCodeRoomNotFound, "room not found")
		return nil, false
	}
	if room.OwnerID != c.ID {
		h.replyError(c, roomID, ErrCodeUnauthorized, "only the room owner can do that")
		return nil, false
	}
	return room, true
}

func (h *Hub) handleExpiry(pr *PendingRemoval) {
	if !h.tracker.Resolve(pr) {
		// A reconnection cancelled this removal after the timer fired.
		return
	}
	room := h.registry.Get(pr.RoomID)
	if room == nil {
		return
	}
	if !room.RemoveMember(pr.ConnID) {
		return
	}

	if room.Empty() {
		// Last member gone for good: the room vanishes silently.
		h.registry.Delete(room.ID)
		h.log.Info().Str("room", room.ID).Msg("empty room deleted")
		return
	}

	if room.OwnerID == pr.ConnID {
		next, _ := room.FirstMember()
		room.OwnerID = next.ID
		// The transfer notice supersedes the plain departure message.
		h.systemMessage(room, fmt.Sprintf("%s (the room owner) has left. %s is now the new room owner.", pr.Name, next.Name))
		h.broadcast(room, &Event{Kind: EventOwnerChanged, Room: room.ID, OwnerID: next.ID})
	} else {
		h.systemMessage(room, fmt.Sprintf("%s has left the room.", pr.Name))
	}
	h.broadcast(room, &Event{Kind: EventMembersUpdated, Room: room.ID, Members: room.Members()})
}

// newSystemMessage builds a coordinator-authored notice.
func (h *Hub) newSystemMessage(text string) Message {
	return Message{
		ID:        utils.NewID(),
		User:      SystemUser,
		Text:      text,
		Timestamp: h.clock.Now().UnixMilli(),
		Kind:      MessageKindSystem,
	}
}

// systemMessage appends a notice to the history and broadcasts it.
func (h *Hub) systemMessage(room *Room, text string) {
	msg := h.newSystemMessage(text)
	room.AppendMessage(msg)
	h.broadcast(room, &Event{Kind: EventMessage, Room: room.ID, Message: &msg})
}

func (h *Hub) replyError(c *Client, roomID, code, msg string) {
	h.send(c, &Event{Kind: EventError, Room: roomID, Error: coreError(code, msg)})
}

func (h *Hub) send(c *Client, event *Event) {
	if c.gone {
		return
	}
	select {
	case c.Events <- event:
	default:
		// Drop if slow consumer.
		h.log.Warn().Str("conn_id", c.ID).Msg("event dropped, slow consumer")
	}
}

// broadcast delivers an event to every connection currently in the room, in
// the order the membership was established. Members in their grace period
// have no live client and are skipped.
func (h *Hub) broadcast(room *Room, event *Event) {
	for _, id := range room.MemberIDs() {
		if cl, present := h.clients[id]; present {
			h.send(cl, event)
		}
	}
}
