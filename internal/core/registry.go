package core

// Registry owns the set of live rooms. It performs no synchronization of its
// own; all access happens on the hub goroutine.
type Registry struct {
	rooms map[string]*Room
}

// NewRegistry constructs an empty room registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Create inserts a new room under the given id. The id is an opaque token
// supplied by the caller; the registry enforces uniqueness and nothing else.
func (reg *Registry) Create(id, name, ownerID string) (*Room, error) {
	if _, exists := reg.rooms[id]; exists {
		return nil, ErrRoomAlreadyExists
	}
	room := NewRoom(id, name, ownerID)
	reg.rooms[id] = room
	return room, nil
}

// Get returns the room for the id, or nil if absent.
func (reg *Registry) Get(id string) *Room {
	return reg.rooms[id]
}

// Delete removes a room. Idempotent.
func (reg *Registry) Delete(id string) {
	delete(reg.rooms, id)
}

// Rename mutates a room's display name in place.
func (reg *Registry) Rename(id, newName string) error {
	room, exists := reg.rooms[id]
	if !exists {
		return ErrRoomNotFound
	}
	room.Name = newName
	return nil
}

// Len returns the number of live rooms.
func (reg *Registry) Len() int {
	return len(reg.rooms)
}
