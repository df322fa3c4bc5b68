package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/prathamps/Sculpt/internal/logging"
	"github.com/prathamps/Sculpt/internal/realtime"
)

// WebSocket serves GET /ws. The request is already authenticated by the
// session middleware (cookie or bearer token); after the upgrade the
// client drives room membership with join/leave frames.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser clients
			}
			return h.middleware.AllowedOrigin(origin)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	client := realtime.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}
