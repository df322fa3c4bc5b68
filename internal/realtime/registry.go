package realtime

// Registry tracks which connections are subscribed to which rooms.
//
// It keeps a forward index (room → members) and a reverse index
// (connection → rooms) so that dropping a connection costs O(rooms the
// connection was in) rather than a scan of every room.
//
// Registry is not safe for concurrent use on its own: every mutation and
// lookup happens on the hub's single run loop, so no locking is needed.
type Registry struct {
	rooms   map[RoomKey]map[*Client]struct{}
	members map[*Client]map[RoomKey]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:   make(map[RoomKey]map[*Client]struct{}),
		members: make(map[*Client]map[RoomKey]struct{}),
	}
}

// Join subscribes a connection to a room. Idempotent: joining a room the
// connection is already in is a no-op.
func (r *Registry) Join(c *Client, key RoomKey) {
	room, ok := r.rooms[key]
	if !ok {
		room = make(map[*Client]struct{})
		r.rooms[key] = room
	}
	room[c] = struct{}{}

	rooms, ok := r.members[c]
	if !ok {
		rooms = make(map[RoomKey]struct{})
		r.members[c] = rooms
	}
	rooms[key] = struct{}{}
}

// Leave unsubscribes a connection from a room. Idempotent: leaving a room
// the connection is not in is a no-op. Empty rooms are garbage-collected
// immediately; an empty room and an unknown room are indistinguishable.
func (r *Registry) Leave(c *Client, key RoomKey) {
	if room, ok := r.rooms[key]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(r.rooms, key)
		}
	}
	if rooms, ok := r.members[c]; ok {
		delete(rooms, key)
		if len(rooms) == 0 {
			delete(r.members, c)
		}
	}
}

// MembersOf returns the connections currently subscribed to a room. An
// unknown key yields an empty result, never an error. The returned map is
// the registry's own; callers must not retain it across mutations.
func (r *Registry) MembersOf(key RoomKey) map[*Client]struct{} {
	return r.rooms[key]
}

// RoomsOf returns the rooms a connection currently belongs to.
func (r *Registry) RoomsOf(c *Client) map[RoomKey]struct{} {
	return r.members[c]
}

// DropConnection removes a connection from every room it belonged to.
// Called on disconnect.
func (r *Registry) DropConnection(c *Client) {
	for key := range r.members[c] {
		if room, ok := r.rooms[key]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(r.rooms, key)
			}
		}
	}
	delete(r.members, c)
}

// RoomCount returns the number of non-empty rooms, for observability.
func (r *Registry) RoomCount() int {
	return len(r.rooms)
}
