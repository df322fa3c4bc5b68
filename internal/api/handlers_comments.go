package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prathamps/Sculpt/internal/auth"
	"github.com/prathamps/Sculpt/internal/models"
	"github.com/prathamps/Sculpt/internal/service"
)

type createCommentRequest struct {
	Content    string            `json:"content" validate:"required,max=2000"`
	ParentID   *string           `json:"parentId" validate:"omitempty,uuid"`
	Annotation models.Annotation `json:"annotation"`
}

type updateCommentRequest struct {
	Content  *string `json:"content" validate:"omitempty,max=2000"`
	Resolved *bool   `json:"resolved"`
}

// ListComments serves GET /api/image-versions/{id}/comments: the comment
// tree for the image version as the requesting user sees it.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return
	}
	imageVersionID := chi.URLParam(r, "id")

	snapshots, err := h.comments.ListSnapshots(r.Context(), imageVersionID, claims.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, snapshots)
}

// CreateComment serves POST /api/image-versions/{id}/comments.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return
	}

	var req createCommentRequest
	if !decodeBody(w, r, &req) || !validateRequest(w, &req) {
		return
	}

	if err := req.Annotation.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	snapshot, err := h.comments.Create(r.Context(), service.CreateCommentInput{
		UserID:         claims.UserID,
		ImageVersionID: chi.URLParam(r, "id"),
		Content:        req.Content,
		ParentID:       req.ParentID,
		Annotation:     req.Annotation,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, snapshot)
}

// UpdateComment serves PUT /api/comments/{id}. Author only.
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return
	}

	var req updateCommentRequest
	if !decodeBody(w, r, &req) || !validateRequest(w, &req) {
		return
	}
	if req.Content == nil && req.Resolved == nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Nothing to update", nil)
		return
	}

	snapshot, err := h.comments.Update(r.Context(), chi.URLParam(r, "id"), claims.UserID, service.UpdateCommentInput{
		Content:  req.Content,
		Resolved: req.Resolved,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, snapshot)
}

// DeleteComment serves DELETE /api/comments/{id}. Author only.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return
	}

	if err := h.comments.Delete(r.Context(), chi.URLParam(r, "id"), claims.UserID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")})
}

// ToggleLike serves POST /api/comments/{id}/like.
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return
	}

	payload, err := h.comments.ToggleLike(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, payload)
}
