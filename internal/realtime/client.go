package realtime

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prathamps/Sculpt/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64 KB, room requests and pings only
)

// clientIDCounter hands out monotonically increasing connection ids so
// fan-out can iterate clients in a stable order.
var clientIDCounter atomic.Uint64

// Client bridges one websocket connection and the hub.
type Client struct {
	id     uint64
	userID string // set when the connection joins its user room
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message
}

// NewClient creates a Client for an upgraded connection. The caller must
// register it with the hub and then call Start.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan Message, hub.sendBuffer),
	}
}

// ID returns the connection's server-assigned identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// UserID returns the id recorded by the user-room join, or "" before one.
// It is synchronized by the join confirmation: callers may read it once
// they have received that frame.
func (c *Client) UserID() string {
	return c.userID
}

// Start begins the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump consumes client frames: room join/leave requests and pings.
// Any read error tears the connection down via the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close() // best-effort cleanup
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg InboundMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			break
		}
		c.handleMessage(msg)
	}
}

// handleMessage routes one inbound frame. Join/leave requests go to the
// hub loop; unknown events are ignored so protocol additions stay
// backward compatible.
func (c *Client) handleMessage(msg InboundMessage) {
	switch msg.Event {
	case EventJoin:
		c.request(RoomKey{Scope: ScopeUser, ID: decodeRoomID(msg.Data)}, true)
	case EventJoinProject:
		c.request(RoomKey{Scope: ScopeProject, ID: decodeRoomID(msg.Data)}, true)
	case EventJoinImageVersion:
		c.request(RoomKey{Scope: ScopeImageVersion, ID: decodeRoomID(msg.Data)}, true)
	case EventLeaveImageVersion:
		c.request(RoomKey{Scope: ScopeImageVersion, ID: decodeRoomID(msg.Data)}, false)
	case EventPing:
		select {
		case c.send <- Message{Event: EventPong}:
		default:
		}
	}
}

// request forwards a join/leave to the hub loop. Dropping a request when
// the hub is saturated is safe: clients re-issue joins on reconnect, and
// an unjoined room only means missed best-effort events.
func (c *Client) request(key RoomKey, join bool) {
	if key.ID == "" {
		logging.Warn().Str("scope", string(key.Scope)).Uint64("client", c.id).Msg("join request without id ignored")
		return
	}
	select {
	case c.hub.requests <- roomRequest{client: c, key: key, join: join}:
	default:
		logging.Warn().Str("room", key.String()).Uint64("client", c.id).Msg("hub request queue full, dropping room request")
	}
}

// writePump serializes queued messages onto the websocket and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// Hub closed the channel.
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Error().Err(err).Msg("failed to write close message")
				}
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Msg("failed to write JSON message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
