package api

import (
	"net/http"
	"time"
)

type healthStatus struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Connections int    `json:"connections"`
	Timestamp   string `json:"timestamp"`
}

// Health serves GET /api/health: database reachability plus the live
// websocket connection count.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status:      "ok",
		Database:    "ok",
		Connections: h.hub.ClientCount(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	code := http.StatusOK
	if err := h.users.Ping(r.Context()); err != nil {
		status.Status = "degraded"
		status.Database = "unreachable"
		code = http.StatusServiceUnavailable
	}
	respondSuccess(w, code, status)
}

// HealthLive serves GET /api/health/live: process liveness only.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}
