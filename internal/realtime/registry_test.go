package realtime

import (
	"io"
	"testing"

	"github.com/prathamps/Sculpt/internal/logging"
)

func init() {
	cfg := logging.DefaultConfig()
	cfg.Output = io.Discard
	logging.Init(cfg)
}

func newTestClients(h *Hub, n int) []*Client {
	clients := make([]*Client, n)
	for i := range clients {
		clients[i] = NewClient(h, nil)
	}
	return clients
}

func TestRegistryJoinLeave(t *testing.T) {
	r := NewRegistry()
	h := NewHub()
	cs := newTestClients(h, 2)
	room := RoomKey{Scope: ScopeImageVersion, ID: "iv1"}

	r.Join(cs[0], room)
	r.Join(cs[1], room)
	if got := len(r.MembersOf(room)); got != 2 {
		t.Fatalf("members = %d, want 2", got)
	}

	// Joining again is a no-op.
	r.Join(cs[0], room)
	if got := len(r.MembersOf(room)); got != 2 {
		t.Errorf("members after duplicate join = %d, want 2", got)
	}

	r.Leave(cs[0], room)
	if got := len(r.MembersOf(room)); got != 1 {
		t.Errorf("members after leave = %d, want 1", got)
	}
	if _, still := r.MembersOf(room)[cs[0]]; still {
		t.Error("left client still a member")
	}

	// Leaving a room you are not in is a no-op.
	r.Leave(cs[0], room)
	if got := len(r.MembersOf(room)); got != 1 {
		t.Errorf("members after double leave = %d, want 1", got)
	}
}

func TestRegistryEmptyRoomCollected(t *testing.T) {
	r := NewRegistry()
	h := NewHub()
	c := NewClient(h, nil)
	room := RoomKey{Scope: ScopeProject, ID: "p1"}

	r.Join(c, room)
	if r.RoomCount() != 1 {
		t.Fatalf("room count = %d, want 1", r.RoomCount())
	}
	r.Leave(c, room)
	if r.RoomCount() != 0 {
		t.Errorf("room count after last leave = %d, want 0", r.RoomCount())
	}
	if got := len(r.MembersOf(room)); got != 0 {
		t.Errorf("members of collected room = %d, want 0", got)
	}
}

func TestRegistryTracksMultipleRoomsPerConnection(t *testing.T) {
	r := NewRegistry()
	h := NewHub()
	c := NewClient(h, nil)

	rooms := []RoomKey{
		{Scope: ScopeUser, ID: "u1"},
		{Scope: ScopeProject, ID: "p1"},
		{Scope: ScopeImageVersion, ID: "iv1"},
	}
	for _, room := range rooms {
		r.Join(c, room)
	}
	if got := len(r.RoomsOf(c)); got != 3 {
		t.Fatalf("rooms of connection = %d, want 3", got)
	}
}

func TestRegistryDropConnection(t *testing.T) {
	r := NewRegistry()
	h := NewHub()
	cs := newTestClients(h, 2)
	shared := RoomKey{Scope: ScopeImageVersion, ID: "iv1"}
	private := RoomKey{Scope: ScopeUser, ID: "u1"}

	r.Join(cs[0], shared)
	r.Join(cs[0], private)
	r.Join(cs[1], shared)

	r.DropConnection(cs[0])

	if got := len(r.MembersOf(shared)); got != 1 {
		t.Errorf("shared room members = %d, want 1", got)
	}
	if r.RoomCount() != 1 {
		t.Errorf("room count = %d, want 1 (user room collected)", r.RoomCount())
	}
	if r.RoomsOf(cs[0]) != nil {
		t.Error("dropped connection still has rooms")
	}

	// Dropping twice is safe.
	r.DropConnection(cs[0])
}
