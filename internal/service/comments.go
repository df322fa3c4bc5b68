package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prathamps/Sculpt/internal/logging"
	"github.com/prathamps/Sculpt/internal/models"
	"github.com/prathamps/Sculpt/internal/realtime"
	"github.com/prathamps/Sculpt/internal/store"
)

// ErrParentMismatch reports a reply whose parent lives on a different
// image version.
var ErrParentMismatch = errors.New("service: parent comment belongs to a different image version")

// Publisher is the realtime fan-out surface the services need. *realtime.Hub
// satisfies it.
type Publisher interface {
	Publish(scope realtime.Scope, scopeID, event string, payload interface{})
}

// CommentStore is the persistence surface CommentService consumes.
type CommentStore interface {
	CreateComment(ctx context.Context, p store.CreateCommentParams) (*models.Comment, error)
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	UpdateComment(ctx context.Context, id string, p store.UpdateCommentParams) (*models.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, commentID, userID string) (liked bool, count int, err error)
	ListCommentSnapshots(ctx context.Context, imageVersionID, viewerID string) ([]models.CommentSnapshot, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	ResolveImageVersion(ctx context.Context, imageVersionID string) (*store.ImageVersionContext, error)
}

// CommentService is the mutation coordinator for comments and likes.
type CommentService struct {
	store         CommentStore
	pub           Publisher
	notifications *NotificationService
}

// NewCommentService wires the coordinator. notifications may be nil to
// disable fan-out, which tests use when they only care about broadcasts.
func NewCommentService(s CommentStore, pub Publisher, n *NotificationService) *CommentService {
	return &CommentService{store: s, pub: pub, notifications: n}
}

// CreateCommentInput is a validated create request.
type CreateCommentInput struct {
	UserID         string
	ImageVersionID string
	Content        string
	ParentID       *string
	Annotation     models.Annotation
}

// Create inserts a comment or reply, broadcasts new-comment to the image
// version room, and fans out notifications. The returned snapshot is what
// was broadcast.
func (s *CommentService) Create(ctx context.Context, in CreateCommentInput) (*models.CommentSnapshot, error) {
	ivc, err := s.store.ResolveImageVersion(ctx, in.ImageVersionID)
	if err != nil {
		return nil, err
	}

	var parent *models.Comment
	if in.ParentID != nil {
		parent, err = s.store.GetComment(ctx, *in.ParentID)
		if err != nil {
			return nil, fmt.Errorf("lookup parent comment: %w", err)
		}
		if parent.ImageVersionID != in.ImageVersionID {
			return nil, ErrParentMismatch
		}
	}

	// Resolve the author before writing: once the row is committed the
	// broadcast must fire, so anything that can still fail happens first.
	author, err := s.store.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup comment author: %w", err)
	}

	comment, err := s.store.CreateComment(ctx, store.CreateCommentParams{
		Content:        in.Content,
		UserID:         in.UserID,
		ImageVersionID: in.ImageVersionID,
		ParentID:       in.ParentID,
		Annotation:     in.Annotation,
	})
	if err != nil {
		return nil, err
	}

	snapshot := &models.CommentSnapshot{Comment: *comment, User: author}
	s.pub.Publish(realtime.ScopeImageVersion, in.ImageVersionID, realtime.EventNewComment, snapshot)

	s.fanOutCommentNotifications(ctx, ivc, comment, parent, author)
	return snapshot, nil
}

// fanOutCommentNotifications notifies the parent author on a reply, or
// every other project member on a top-level comment. Best-effort.
func (s *CommentService) fanOutCommentNotifications(ctx context.Context, ivc *store.ImageVersionContext, comment *models.Comment, parent *models.Comment, author *models.User) {
	if s.notifications == nil {
		return
	}
	meta := models.NotificationMetadata{
		ProjectID:      ivc.ProjectID,
		ImageID:        ivc.ImageID,
		ImageVersionID: ivc.ImageVersionID,
		CommentID:      comment.ID,
	}

	if parent != nil {
		if parent.UserID == author.ID {
			return
		}
		meta.Type = models.NotificationTypeReply
		content := fmt.Sprintf("%s replied to your comment on %s", author.Name, ivc.ImageName)
		if _, err := s.notifications.Deliver(ctx, parent.UserID, content, meta); err != nil {
			logging.Warn().Err(err).Str("comment_id", comment.ID).Msg("Reply notification failed")
		}
		return
	}

	meta.Type = models.NotificationTypeNewComment
	content := fmt.Sprintf("%s commented on %s", author.Name, ivc.ImageName)
	if err := s.notifications.NotifyProject(ctx, ivc.ProjectID, author.ID, content, meta); err != nil {
		logging.Warn().Err(err).Str("comment_id", comment.ID).Msg("Comment notification fan-out failed")
	}
}

// UpdateCommentInput carries an edit. Nil fields are left unchanged, so a
// content-only edit preserves the resolved flag and vice versa.
type UpdateCommentInput struct {
	Content  *string
	Resolved *bool
}

// Update edits a comment. Only the comment's author may edit it; a
// non-author gets store.ErrForbidden without touching the row. Broadcasts
// comment-updated on success.
func (s *CommentService) Update(ctx context.Context, commentID, actorID string, in UpdateCommentInput) (*models.CommentSnapshot, error) {
	existing, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != actorID {
		return nil, store.ErrForbidden
	}

	// Author lookup precedes the write so a committed edit is always
	// broadcast.
	author, err := s.store.GetUser(ctx, existing.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup comment author: %w", err)
	}

	updated, err := s.store.UpdateComment(ctx, commentID, store.UpdateCommentParams{
		Content:  in.Content,
		Resolved: in.Resolved,
	})
	if err != nil {
		return nil, err
	}

	snapshot := &models.CommentSnapshot{Comment: *updated, User: author}
	s.pub.Publish(realtime.ScopeImageVersion, updated.ImageVersionID, realtime.EventCommentUpdated, snapshot)
	return snapshot, nil
}

// Delete removes a comment. Only the author may delete; replies cascade.
// Broadcasts comment-deleted with just the keys clients need.
func (s *CommentService) Delete(ctx context.Context, commentID, actorID string) error {
	existing, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if existing.UserID != actorID {
		return store.ErrForbidden
	}

	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return err
	}

	s.pub.Publish(realtime.ScopeImageVersion, existing.ImageVersionID, realtime.EventCommentDeleted, models.CommentDeletedPayload{
		ID:             commentID,
		ImageVersionID: existing.ImageVersionID,
	})
	return nil
}

// ToggleLike flips the actor's like on a comment, broadcasts the new count
// to the image version room, and notifies the comment's author on a fresh
// like. Liking your own comment produces no notification.
func (s *CommentService) ToggleLike(ctx context.Context, commentID, actorID string) (*models.LikeUpdatedPayload, error) {
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}

	liked, count, err := s.store.ToggleLike(ctx, commentID, actorID)
	if err != nil {
		return nil, err
	}

	payload := &models.LikeUpdatedPayload{
		ID:             commentID,
		Liked:          liked,
		Count:          count,
		UserID:         actorID,
		ImageVersionID: comment.ImageVersionID,
	}
	s.pub.Publish(realtime.ScopeImageVersion, comment.ImageVersionID, realtime.EventCommentLikeUpdated, payload)

	if liked && comment.UserID != actorID && s.notifications != nil {
		s.notifyLike(ctx, comment, actorID)
	}
	return payload, nil
}

func (s *CommentService) notifyLike(ctx context.Context, comment *models.Comment, actorID string) {
	actor, err := s.store.GetUser(ctx, actorID)
	if err != nil {
		logging.Warn().Err(err).Str("user_id", actorID).Msg("Like notification skipped, actor lookup failed")
		return
	}
	ivc, err := s.store.ResolveImageVersion(ctx, comment.ImageVersionID)
	if err != nil {
		logging.Warn().Err(err).Str("comment_id", comment.ID).Msg("Like notification skipped, image version lookup failed")
		return
	}
	meta := models.NotificationMetadata{
		Type:           models.NotificationTypeLike,
		ProjectID:      ivc.ProjectID,
		ImageID:        ivc.ImageID,
		ImageVersionID: ivc.ImageVersionID,
		CommentID:      comment.ID,
	}
	content := fmt.Sprintf("%s liked your comment on %s", actor.Name, ivc.ImageName)
	if _, err := s.notifications.Deliver(ctx, comment.UserID, content, meta); err != nil {
		logging.Warn().Err(err).Str("comment_id", comment.ID).Msg("Like notification failed")
	}
}

// ListSnapshots returns the comment tree for an image version as seen by
// the viewer. The image version must exist.
func (s *CommentService) ListSnapshots(ctx context.Context, imageVersionID, viewerID string) ([]models.CommentSnapshot, error) {
	if _, err := s.store.ResolveImageVersion(ctx, imageVersionID); err != nil {
		return nil, err
	}
	snapshots, err := s.store.ListCommentSnapshots(ctx, imageVersionID, viewerID)
	if err != nil {
		return nil, err
	}
	if snapshots == nil {
		snapshots = []models.CommentSnapshot{}
	}
	return snapshots, nil
}
