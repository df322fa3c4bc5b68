package realtime

import (
	"context"
	"sort"
	"sync"

	"github.com/prathamps/Sculpt/internal/logging"
	"github.com/prathamps/Sculpt/internal/metrics"
)

// roomRequest is a join or leave issued by a connection's read pump.
type roomRequest struct {
	client *Client
	key    RoomKey
	join   bool
}

// envelope is one publish waiting for fan-out.
type envelope struct {
	room RoomKey
	msg  Message
}

// Hub owns room membership and event fan-out for all live connections.
//
// A single run loop processes connection lifecycle, room requests, and
// publishes sequentially. Because fan-out for a publish completes before
// the next publish is dequeued, events for the same room reach every
// subscribed connection's queue in publish order.
type Hub struct {
	registry *Registry
	clients  map[*Client]bool

	Register   chan *Client
	Unregister chan *Client
	requests   chan roomRequest
	broadcast  chan envelope

	sendBuffer int

	// mu guards clients for reads from outside the run loop
	// (ClientCount); the registry is touched only on the loop.
	mu sync.RWMutex
}

// Option configures a Hub.
type Option func(*Hub)

// WithSendBuffer sets the per-connection outbound queue length.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithBroadcastBuffer sets the pending-publish queue length.
func WithBroadcastBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.broadcast = make(chan envelope, n)
		}
	}
}

// NewHub creates a new Hub. The hub does nothing until Run is started.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		registry:   NewRegistry(),
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		requests:   make(chan roomRequest, 64),
		broadcast:  make(chan envelope, 256),
		sendBuffer: 256,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish delivers an event to every connection subscribed to the
// (scope, scopeID) room. Fire-and-forget: if the hub's queue is full the
// event is dropped with a warning rather than blocking the caller.
func (h *Hub) Publish(scope Scope, scopeID, event string, payload interface{}) {
	if scopeID == "" {
		return
	}
	env := envelope{
		room: RoomKey{Scope: scope, ID: scopeID},
		msg:  Message{Event: event, Data: payload},
	}
	select {
	case h.broadcast <- env:
		metrics.EventsPublished.WithLabelValues(event).Inc()
	default:
		logging.Warn().Str("event", event).Str("room", env.room.String()).Msg("broadcast queue full, dropping event")
		metrics.DeliveriesDropped.Inc()
	}
}

// Run starts the hub loop and blocks until ctx is canceled, at which point
// all connected clients are closed and ctx.Err() is returned. Designed for
// suture supervision, so it can be restarted without orphaned state.
//
// Channel selection is prioritized so that shutdown and connection
// lifecycle are always observed before pending broadcasts: client state is
// consistent before any fan-out touches it.
func (h *Hub) Run(ctx context.Context) error {
	for {
		// Priority 1: shutdown.
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		// Priority 2: connection lifecycle.
		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		// Priority 3: wait for any work.
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case req := <-h.requests:
			h.handleRoomRequest(req)
		case env := <-h.broadcast:
			h.fanOut(env)
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WebsocketConnections.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	total := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}
	h.registry.DropConnection(c)
	close(c.send)
	metrics.WebsocketConnections.Set(float64(total))
	metrics.WebsocketRooms.Set(float64(h.registry.RoomCount()))
	logging.Info().Str("user_id", c.userID).Int("total_clients", total).Msg("websocket client disconnected")
}

// handleRoomRequest applies a join or leave and, for joins, acknowledges
// to the requesting connection only. Join and leave are both idempotent.
func (h *Hub) handleRoomRequest(req roomRequest) {
	if req.key.ID == "" {
		logging.Warn().Str("scope", string(req.key.Scope)).Msg("room request with empty id ignored")
		return
	}

	if !req.join {
		h.registry.Leave(req.client, req.key)
		metrics.WebsocketRooms.Set(float64(h.registry.RoomCount()))
		logging.Debug().Str("room", req.key.String()).Msg("client left room")
		return
	}

	h.registry.Join(req.client, req.key)
	metrics.WebsocketRooms.Set(float64(h.registry.RoomCount()))
	logging.Debug().Str("room", req.key.String()).Msg("client joined room")

	h.confirmJoin(req.client, req.key)
}

// confirmJoin sends the scope-specific acknowledgment to the requester.
// Never broadcast: peers do not receive presence notifications.
func (h *Hub) confirmJoin(c *Client, key RoomKey) {
	var msg Message
	switch key.Scope {
	case ScopeUser:
		c.userID = key.ID
		msg = Message{Event: EventConnectionConfirmed, Data: joinConfirmation("Successfully connected to notification service", key)}
	case ScopeProject:
		msg = Message{Event: EventProjectJoined, Data: joinConfirmation("Successfully joined project room "+key.ID, key)}
	case ScopeImageVersion:
		msg = Message{Event: EventImageVersionJoined, Data: joinConfirmation("Successfully joined image version room "+key.ID, key)}
	default:
		return
	}
	select {
	case c.send <- msg:
	default:
		// Queue full; the client will learn its state on reconnect.
	}
}

// fanOut delivers one published event to every member of its room in
// deterministic (connection id) order. Members whose queues are full are
// treated as stale and dropped from the hub entirely; delivery failure is
// never an error for the publishing path.
func (h *Hub) fanOut(env envelope) {
	members := h.registry.MembersOf(env.room)
	if len(members) == 0 {
		return
	}

	ordered := make([]*Client, 0, len(members))
	for c := range members {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].id < ordered[j].id })

	var stale []*Client
	for _, c := range ordered {
		select {
		case c.send <- env.msg:
			metrics.EventsDelivered.Inc()
		default:
			stale = append(stale, c)
		}
	}

	for _, c := range stale {
		metrics.DeliveriesDropped.Inc()
		h.unregister(c)
	}
}

// shutdown closes every connected client in deterministic order.
func (h *Hub) shutdown() {
	h.mu.Lock()
	ordered := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].id < ordered[j].id })
	for _, c := range ordered {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	h.registry = NewRegistry()
	metrics.WebsocketConnections.Set(0)
	metrics.WebsocketRooms.Set(0)
	logging.Info().
		Str("component", "realtime-hub").
		Int("clients_closed", len(ordered)).
		Msg("realtime hub stopped")
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
