package core

// Member is one entry of a room's membership list.
type Member struct {
	ID   string
	Name string
}

// Room is an ephemeral container for membership and message history. The id
// is a caller-supplied opaque token; only uniqueness is enforced (by the
// registry). Membership preserves insertion order so that owner election is
// deterministic.
type Room struct {
	ID      string
	Name    string
	OwnerID string

	messages []Message
	order    []string
	names    map[string]string
}

// NewRoom constructs a room with no members and no history.
func NewRoom(id, name, ownerID string) *Room {
	return &Room{
		ID:      id,
		Name:    name,
		OwnerID: ownerID,
		names:   make(map[string]string),
	}
}

// AddMember inserts a member at the end of the iteration order.
// Returns false if the connection is already a member.
func (r *Room) AddMember(connID, name string) bool {
	if _, exists := r.names[connID]; exists {
		return false
	}
	r.names[connID] = name
	r.order = append(r.order, connID)
	return true
}

// RemoveMember deletes a member. Returns true if it was present.
func (r *Room) RemoveMember(connID string) bool {
	if _, exists := r.names[connID]; !exists {
		return false
	}
	delete(r.names, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// RenameMember rewrites a member's display name in place, keeping its
// position in the iteration order. Returns the old name.
func (r *Room) RenameMember(connID, newName string) (string, bool) {
	old, exists := r.names[connID]
	if !exists {
		return "", false
	}
	r.names[connID] = newName
	return old, true
}

// MemberName looks up the display name for a connection.
func (r *Room) MemberName(connID string) (string, bool) {
	name, ok := r.names[connID]
	return name, ok
}

// HasMember reports whether the connection is currently a member.
func (r *Room) HasMember(connID string) bool {
	_, ok := r.names[connID]
	return ok
}

// Members returns the membership list in insertion order.
func (r *Room) Members() []Member {
	members := make([]Member, 0, len(r.order))
	for _, id := range r.order {
		members = append(members, Member{ID: id, Name: r.names[id]})
	}
	return members
}

// MemberIDs returns the connection ids in insertion order.
func (r *Room) MemberIDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// FirstMember returns the member that joined earliest among those still
// present. Used for owner election.
func (r *Room) FirstMember() (Member, bool) {
	if len(r.order) == 0 {
		return Member{}, false
	}
	id := r.order[0]
	return Member{ID: id, Name: r.names[id]}, true
}

// Empty returns true if no members remain.
func (r *Room) Empty() bool {
	return len(r.order) == 0
}

// Size returns the current member count.
func (r *Room) Size() int {
	return len(r.order)
}

// AppendMessage adds a message to the end of the history.
func (r *Room) AppendMessage(msg Message) {
	r.messages = append(r.messages, msg)
}

// Messages returns a copy of the history in append order.
func (r *Room) Messages() []Message {
	msgs := make([]Message, len(r.messages))
	copy(msgs, r.messages)
	return msgs
}

// ClearHistory replaces the entire history with a single notice.
func (r *Room) ClearHistory(notice Message) {
	r.messages = []Message{notice}
}
