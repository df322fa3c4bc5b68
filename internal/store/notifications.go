package store

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/prathamps/Sculpt/internal/metrics"
	"github.com/prathamps/Sculpt/internal/models"
)

// CreateNotification persists a notification for one recipient and returns
// the stored row.
func (d *DB) CreateNotification(ctx context.Context, userID, content string, meta models.NotificationMetadata) (*models.Notification, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode notification metadata: %w", err)
	}

	const q = `
INSERT INTO notifications (id, user_id, content, metadata)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, content, read, metadata, created_at`

	n, err := scanNotification(d.pool.QueryRow(ctx, q, uuid.NewString(), userID, content, metaJSON))
	if err != nil {
		metrics.StoreQueryErrors.Inc()
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns a user's notifications newest first.
func (d *DB) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	const q = `
SELECT id, user_id, content, read, metadata, created_at
FROM notifications WHERE user_id = $1
ORDER BY created_at DESC`

	rows, err := d.pool.Query(ctx, q, userID)
	if err != nil {
		metrics.StoreQueryErrors.Inc()
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			metrics.StoreQueryErrors.Inc()
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		metrics.StoreQueryErrors.Inc()
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

// MarkNotificationRead flags one notification, scoped to its owner so a
// user cannot mark someone else's.
func (d *DB) MarkNotificationRead(ctx context.Context, id, userID string) error {
	tag, err := d.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		metrics.StoreQueryErrors.Inc()
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead flags every unread notification for a user.
func (d *DB) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := d.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		metrics.StoreQueryErrors.Inc()
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanNotification(row scannable) (*models.Notification, error) {
	var (
		n        models.Notification
		metaJSON []byte
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Content, &n.Read, &metaJSON, &n.CreatedAt); err != nil {
		return nil, err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &n.Metadata); err != nil {
			return nil, fmt.Errorf("decode notification metadata: %w", err)
		}
	}
	return &n, nil
}
