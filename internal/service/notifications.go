package service

import (
	"context"
	"fmt"

	"github.com/prathamps/Sculpt/internal/cache"
	"github.com/prathamps/Sculpt/internal/logging"
	"github.com/prathamps/Sculpt/internal/models"
	"github.com/prathamps/Sculpt/internal/realtime"
)

// NotificationStore is the persistence surface NotificationService
// consumes.
type NotificationStore interface {
	CreateNotification(ctx context.Context, userID, content string, meta models.NotificationMetadata) (*models.Notification, error)
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
	ListProjectMemberIDs(ctx context.Context, projectID, excludeUserID string) ([]string, error)
}

// NotificationService persists notifications and delivers them twice: the
// row for later retrieval, and an immediate push to the recipient's user
// room. Reads go through the Redis cache when one is configured.
type NotificationService struct {
	store NotificationStore
	cache *cache.NotificationCache
	pub   Publisher
}

// NewNotificationService wires the service. cache may be nil.
func NewNotificationService(s NotificationStore, c *cache.NotificationCache, pub Publisher) *NotificationService {
	return &NotificationService{store: s, cache: c, pub: pub}
}

// Deliver persists one notification, mirrors it into the cache, and pushes
// it to the recipient's user room. The push happens only after the row is
// committed.
func (s *NotificationService) Deliver(ctx context.Context, userID, content string, meta models.NotificationMetadata) (*models.Notification, error) {
	n, err := s.store.CreateNotification(ctx, userID, content, meta)
	if err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}
	s.cache.Put(ctx, n)
	s.pub.Publish(realtime.ScopeUser, userID, realtime.EventNotification, n)
	return n, nil
}

// NotifyProject delivers a per-member notification to every project member
// except excludeUserID, then broadcasts one project-update to the project
// room. Individual delivery failures are logged and skipped so one bad
// recipient cannot starve the rest.
func (s *NotificationService) NotifyProject(ctx context.Context, projectID, excludeUserID, content string, meta models.NotificationMetadata) error {
	memberIDs, err := s.store.ListProjectMemberIDs(ctx, projectID, excludeUserID)
	if err != nil {
		return fmt.Errorf("list recipients: %w", err)
	}
	for _, id := range memberIDs {
		if _, err := s.Deliver(ctx, id, content, meta); err != nil {
			logging.Warn().Err(err).Str("user_id", id).Str("project_id", projectID).Msg("Notification delivery failed")
		}
	}

	s.pub.Publish(realtime.ScopeProject, projectID, realtime.EventProjectUpdate, models.ProjectUpdatePayload{
		Type:      meta.Type,
		Content:   content,
		ProjectID: projectID,
		Metadata:  meta,
	})
	return nil
}

// List returns the user's notifications newest first, serving from the
// cache when possible and refilling it on a miss.
func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	if cached, ok := s.cache.Get(ctx, userID); ok {
		return cached, nil
	}
	list, err := s.store.ListNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Notification{}
	}
	s.cache.Fill(ctx, userID, list)
	return list, nil
}

// MarkRead flags one notification as read and drops the cached list so the
// next read reflects it.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.store.MarkNotificationRead(ctx, id, userID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, userID)
	return nil
}

// MarkAllRead flags every unread notification for the user.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.store.MarkAllNotificationsRead(ctx, userID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, userID)
	return nil
}
