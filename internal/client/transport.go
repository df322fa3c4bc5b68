package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/prathamps/Sculpt/internal/logging"
)

const (
	defaultRetryDelay  = time.Second
	defaultMaxAttempts = 10
)

// MessageHandler receives every inbound frame. Data stays raw until the
// event name says how to decode it.
type MessageHandler func(event string, data json.RawMessage)

// Transport owns the websocket connection to /ws. On read failure it
// redials with a fixed delay, up to a bounded number of attempts; a
// successful connect resets the budget.
type Transport struct {
	url         string
	token       string
	dialer      *websocket.Dialer
	handler     MessageHandler
	onConnect   func()
	onDropped   func()
	retryDelay  time.Duration
	maxAttempts int

	mu   sync.Mutex
	conn *websocket.Conn
}

// TransportOption adjusts a Transport.
type TransportOption func(*Transport)

// WithRetry overrides the reconnect delay and attempt budget.
func WithRetry(delay time.Duration, maxAttempts int) TransportOption {
	return func(t *Transport) {
		t.retryDelay = delay
		t.maxAttempts = maxAttempts
	}
}

// WithConnectionCallbacks registers hooks for connection establishment and
// loss. onConnect fires after every successful dial, including redials, so
// the caller can re-join its rooms.
func WithConnectionCallbacks(onConnect, onDropped func()) TransportOption {
	return func(t *Transport) {
		t.onConnect = onConnect
		t.onDropped = onDropped
	}
}

// NewTransport builds a transport for the ws:// or wss:// url. The session
// token rides in the cookie the server's auth middleware reads.
func NewTransport(url, token string, handler MessageHandler, opts ...TransportOption) *Transport {
	t := &Transport{
		url:         url,
		token:       token,
		dialer:      websocket.DefaultDialer,
		handler:     handler,
		retryDelay:  defaultRetryDelay,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run connects and reads until ctx is cancelled or the reconnect budget is
// exhausted. It returns nil on cancellation.
func (t *Transport) Run(ctx context.Context) error {
	attempts := 0
	for {
		if err := t.dial(ctx); err != nil {
			attempts++
			if attempts >= t.maxAttempts {
				return fmt.Errorf("connect failed after %d attempts: %w", attempts, err)
			}
			logging.Warn().Err(err).Int("attempt", attempts).Msg("Connect failed, retrying")
			if !t.sleep(ctx) {
				return nil
			}
			continue
		}
		attempts = 0

		err := t.readLoop(ctx)
		t.closeConn()
		if t.onDropped != nil {
			t.onDropped()
		}
		if ctx.Err() != nil {
			return nil
		}
		logging.Warn().Err(err).Msg("Connection lost, reconnecting")
		if !t.sleep(ctx) {
			return nil
		}
	}
}

func (t *Transport) dial(ctx context.Context) error {
	header := http.Header{}
	if t.token != "" {
		header.Set("Cookie", "token="+t.token)
	}
	conn, _, err := t.dialer.DialContext(ctx, t.url, header)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	if t.onConnect != nil {
		t.onConnect()
	}
	return nil
}

func (t *Transport) readLoop(ctx context.Context) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	// The watcher lives exactly as long as this connection's read loop;
	// otherwise every redial would strand one goroutine until Run exits.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var frame struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}
		if t.handler != nil {
			t.handler(frame.Event, frame.Data)
		}
	}
}

// Send writes one frame. It fails when no connection is up; callers treat
// that as "re-join on reconnect" rather than an error to surface.
func (t *Transport) Send(event string, payload interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return fmt.Errorf("not connected")
	}
	return t.conn.WriteJSON(map[string]interface{}{
		"event": event,
		"data":  payload,
	})
}

func (t *Transport) closeConn() {
	t.mu.Lock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.mu.Unlock()
}

func (t *Transport) sleep(ctx context.Context) bool {
	select {
	case <-time.After(t.retryDelay):
		return true
	case <-ctx.Done():
		return false
	}
}
