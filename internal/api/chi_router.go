package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prathamps/Sculpt/internal/auth"
)

// Router ties the handler and middleware into a Chi route tree.
type Router struct {
	handler    *Handler
	middleware *auth.Middleware
}

// NewRouter builds the router.
func NewRouter(handler *Handler, mw *auth.Middleware) *Router {
	return &Router{handler: handler, middleware: mw}
}

// Setup returns the complete HTTP handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(prometheusMetrics)
	r.Use(router.middleware.CORS)

	// Health and metrics stay outside auth so probes and Prometheus can
	// reach them.
	r.Get("/api/health", router.handler.Health)
	r.Get("/api/health/live", router.handler.HealthLive)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(router.middleware.RateLimit)
		r.Post("/login", router.handler.Login)
		r.Post("/logout", router.handler.Logout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(router.middleware.RateLimit)
		r.Use(router.middleware.Authenticate)

		r.Get("/image-versions/{id}/comments", router.handler.ListComments)
		r.Post("/image-versions/{id}/comments", router.handler.CreateComment)
		r.Put("/comments/{id}", router.handler.UpdateComment)
		r.Delete("/comments/{id}", router.handler.DeleteComment)
		r.Post("/comments/{id}/like", router.handler.ToggleLike)

		r.Get("/notifications", router.handler.ListNotifications)
		r.Put("/notifications/{id}/read", router.handler.MarkNotificationRead)
		r.Put("/notifications/read-all", router.handler.MarkAllNotificationsRead)
	})

	// The websocket upgrade authenticates via the session cookie; browsers
	// cannot attach Authorization headers to websocket handshakes.
	r.With(router.middleware.Authenticate).Get("/ws", router.handler.WebSocket)

	return r
}
