package realtime

import (
	"context"
	"testing"
	"time"
)

// startHub runs a hub until the test ends.
func startHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()
	h := NewHub(opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("hub did not stop")
		}
	})
	return h
}

func register(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := NewClient(h, nil)
	select {
	case h.Register <- c:
	case <-time.After(time.Second):
		t.Fatal("register blocked")
	}
	return c
}

// join issues a room request and consumes the confirmation, which also
// synchronizes with the hub loop.
func join(t *testing.T, h *Hub, c *Client, key RoomKey) Message {
	t.Helper()
	select {
	case h.requests <- roomRequest{client: c, key: key, join: true}:
	case <-time.After(time.Second):
		t.Fatal("join request blocked")
	}
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatalf("no join confirmation for %s", key)
		return Message{}
	}
}

func leave(t *testing.T, h *Hub, c *Client, key RoomKey) {
	t.Helper()
	select {
	case h.requests <- roomRequest{client: c, key: key, join: false}:
	case <-time.After(time.Second):
		t.Fatal("leave request blocked")
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return Message{}
	}
}

func expectSilence(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message %q", msg.Event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestJoinConfirmationsPerScope(t *testing.T) {
	h := startHub(t)
	c := register(t, h)

	tests := []struct {
		key       RoomKey
		wantEvent string
	}{
		{RoomKey{Scope: ScopeUser, ID: "u1"}, EventConnectionConfirmed},
		{RoomKey{Scope: ScopeProject, ID: "p1"}, EventProjectJoined},
		{RoomKey{Scope: ScopeImageVersion, ID: "iv1"}, EventImageVersionJoined},
	}
	for _, tt := range tests {
		msg := join(t, h, c, tt.key)
		if msg.Event != tt.wantEvent {
			t.Errorf("join %s confirmation = %q, want %q", tt.key, msg.Event, tt.wantEvent)
		}
	}
}

func TestUserRoomJoinRecordsIdentity(t *testing.T) {
	h := startHub(t)
	c := register(t, h)
	if got := c.UserID(); got != "" {
		t.Fatalf("UserID() before join = %q, want empty", got)
	}

	join(t, h, c, RoomKey{Scope: ScopeUser, ID: "u1"})
	if got := c.UserID(); got != "u1" {
		t.Errorf("UserID() = %q, want u1", got)
	}
}

func TestJoinConfirmationGoesToRequesterOnly(t *testing.T) {
	h := startHub(t)
	a := register(t, h)
	b := register(t, h)
	room := RoomKey{Scope: ScopeImageVersion, ID: "iv1"}

	join(t, h, a, room)
	join(t, h, b, room) // b's confirmation consumed by join()

	expectSilence(t, a) // a must not see b's join
}

func TestPublishReachesAllRoomMembers(t *testing.T) {
	h := startHub(t)
	a := register(t, h)
	b := register(t, h)
	room := RoomKey{Scope: ScopeImageVersion, ID: "iv1"}
	join(t, h, a, room)
	join(t, h, b, room)

	h.Publish(ScopeImageVersion, "iv1", EventNewComment, map[string]string{"id": "c1"})

	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		if msg.Event != EventNewComment {
			t.Errorf("event = %q, want new-comment", msg.Event)
		}
	}
}

func TestPublishIsIsolatedPerRoom(t *testing.T) {
	h := startHub(t)
	a := register(t, h)
	b := register(t, h)
	join(t, h, a, RoomKey{Scope: ScopeImageVersion, ID: "iv1"})
	join(t, h, b, RoomKey{Scope: ScopeImageVersion, ID: "iv2"})

	h.Publish(ScopeImageVersion, "iv1", EventNewComment, nil)

	if msg := receive(t, a); msg.Event != EventNewComment {
		t.Errorf("event = %q", msg.Event)
	}
	expectSilence(t, b)

	// Same id under a different scope is a different room.
	h.Publish(ScopeProject, "iv1", EventProjectUpdate, nil)
	expectSilence(t, a)
}

func TestPublishOrderIsPreservedPerRoom(t *testing.T) {
	h := startHub(t)
	c := register(t, h)
	join(t, h, c, RoomKey{Scope: ScopeImageVersion, ID: "iv1"})

	events := []string{EventNewComment, EventCommentUpdated, EventCommentLikeUpdated, EventCommentDeleted}
	for _, e := range events {
		h.Publish(ScopeImageVersion, "iv1", e, nil)
	}

	for i, want := range events {
		if msg := receive(t, c); msg.Event != want {
			t.Fatalf("message %d = %q, want %q", i, msg.Event, want)
		}
	}
}

func TestPublishToEmptyRoomIsNoop(t *testing.T) {
	h := startHub(t)
	c := register(t, h)
	join(t, h, c, RoomKey{Scope: ScopeImageVersion, ID: "iv1"})

	h.Publish(ScopeImageVersion, "nobody-here", EventNewComment, nil)
	expectSilence(t, c)
}

func TestLeaveStopsDelivery(t *testing.T) {
	h := startHub(t)
	c := register(t, h)
	room := RoomKey{Scope: ScopeImageVersion, ID: "iv1"}
	join(t, h, c, room)
	leave(t, h, c, room)

	// Synchronize on the loop with another join.
	join(t, h, c, RoomKey{Scope: ScopeUser, ID: "u1"})

	h.Publish(ScopeImageVersion, "iv1", EventNewComment, nil)
	expectSilence(t, c)
}

func TestStaleClientIsDroppedNotBlocking(t *testing.T) {
	h := startHub(t, WithSendBuffer(1))
	stale := register(t, h)
	healthy := register(t, h)
	room := RoomKey{Scope: ScopeImageVersion, ID: "iv1"}
	join(t, h, stale, room)
	join(t, h, healthy, room)

	// First publish fills stale's queue (healthy drains as we go).
	h.Publish(ScopeImageVersion, "iv1", EventNewComment, nil)
	receive(t, healthy)
	// Second publish finds stale's queue full: stale is unregistered.
	h.Publish(ScopeImageVersion, "iv1", EventCommentUpdated, nil)
	receive(t, healthy)

	deadline := time.After(2 * time.Second)
	for h.ClientCount() != 1 {
		select {
		case <-deadline:
			t.Fatalf("clients = %d, want stale connection dropped", h.ClientCount())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestUnregisterDropsRoomsAndClosesQueue(t *testing.T) {
	h := startHub(t)
	c := register(t, h)
	join(t, h, c, RoomKey{Scope: ScopeImageVersion, ID: "iv1"})

	select {
	case h.Unregister <- c:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked")
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-c.send:
			if !open {
				if h.ClientCount() != 0 {
					t.Errorf("clients = %d, want 0", h.ClientCount())
				}
				return
			}
		case <-deadline:
			t.Fatal("send queue never closed")
		}
	}
}

func TestEmptyRoomIDIgnored(t *testing.T) {
	h := startHub(t)
	c := register(t, h)

	select {
	case h.requests <- roomRequest{client: c, key: RoomKey{Scope: ScopeProject, ID: ""}, join: true}:
	case <-time.After(time.Second):
		t.Fatal("request blocked")
	}
	expectSilence(t, c) // no confirmation for an invalid join
}

func TestShutdownClosesClients(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	c := NewClient(h, nil)
	h.Register <- c
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-c.send:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("client queue not closed on shutdown")
		}
	}
}
