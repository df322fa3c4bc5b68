package api

import (
	"context"

	"github.com/prathamps/Sculpt/internal/auth"
	"github.com/prathamps/Sculpt/internal/models"
	"github.com/prathamps/Sculpt/internal/realtime"
	"github.com/prathamps/Sculpt/internal/service"
)

// UserStore is the slice of the store the auth handlers need.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	Ping(ctx context.Context) error
}

// Handler carries the dependencies every endpoint draws from.
type Handler struct {
	comments      *service.CommentService
	notifications *service.NotificationService
	users         UserStore
	hub           *realtime.Hub
	jwt           *auth.JWTManager
	middleware    *auth.Middleware
	secureCookies bool
}

// NewHandler wires the handler. secureCookies should be true outside
// development so session cookies carry the Secure flag.
func NewHandler(
	comments *service.CommentService,
	notifications *service.NotificationService,
	users UserStore,
	hub *realtime.Hub,
	jwt *auth.JWTManager,
	mw *auth.Middleware,
	secureCookies bool,
) *Handler {
	return &Handler{
		comments:      comments,
		notifications: notifications,
		users:         users,
		hub:           hub,
		jwt:           jwt,
		middleware:    mw,
		secureCookies: secureCookies,
	}
}
