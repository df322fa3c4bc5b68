package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/prathamps/Sculpt/internal/auth"
	"github.com/prathamps/Sculpt/internal/logging"
	"github.com/prathamps/Sculpt/internal/store"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

// Login serves POST /api/auth/login. On success the session token is both
// returned in the body and set as an HTTP-only cookie, which is what the
// websocket upgrade authenticates with.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) || !validateRequest(w, &req) {
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Same response as a bad password so the endpoint does not
			// leak which emails exist.
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials", nil)
			return
		}
		respondServiceError(w, err)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		logging.Debug().Str("email", sanitizeLogValue(req.Email)).Msg("Login failed")
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials", nil)
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create session", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(24 * time.Hour),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	logging.Info().Str("user_id", user.ID).Msg("User logged in")
	respondSuccess(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// Logout serves POST /api/auth/logout by expiring the session cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	respondSuccess(w, http.StatusOK, map[string]bool{"loggedOut": true})
}
