package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prathamps/Sculpt/internal/metrics"
	"github.com/prathamps/Sculpt/internal/models"
)

// GetUser fetches a user by id.
func (d *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	const q = `SELECT id, name, email, password_hash, created_at FROM users WHERE id = $1`
	return d.scanUser(d.pool.QueryRow(ctx, q, id))
}

// GetUserByEmail fetches a user by email for login.
func (d *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, name, email, password_hash, created_at FROM users WHERE email = $1`
	return d.scanUser(d.pool.QueryRow(ctx, q, email))
}

func (d *DB) scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		metrics.StoreQueryErrors.Inc()
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

// ImageVersionContext locates an image version inside the project tree.
// Notification fan-out needs the project for membership and the image name
// for message text.
type ImageVersionContext struct {
	ImageVersionID string
	ImageID        string
	ImageName      string
	ProjectID      string
}

// ResolveImageVersion walks image_version -> image -> project.
func (d *DB) ResolveImageVersion(ctx context.Context, imageVersionID string) (*ImageVersionContext, error) {
	const q = `
SELECT iv.id, i.id, i.name, i.project_id
FROM image_versions iv
JOIN images i ON i.id = iv.image_id
WHERE iv.id = $1`

	var ivc ImageVersionContext
	err := d.pool.QueryRow(ctx, q, imageVersionID).Scan(&ivc.ImageVersionID, &ivc.ImageID, &ivc.ImageName, &ivc.ProjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		metrics.StoreQueryErrors.Inc()
		return nil, fmt.Errorf("resolve image version: %w", err)
	}
	return &ivc, nil
}

// ListProjectMemberIDs returns the ids of every member of a project except
// excludeUserID. Pass an empty exclude to list everyone.
func (d *DB) ListProjectMemberIDs(ctx context.Context, projectID, excludeUserID string) ([]string, error) {
	const q = `
SELECT user_id FROM project_members
WHERE project_id = $1 AND ($2 = '' OR user_id <> $2)
ORDER BY user_id`

	rows, err := d.pool.Query(ctx, q, projectID, excludeUserID)
	if err != nil {
		metrics.StoreQueryErrors.Inc()
		return nil, fmt.Errorf("list project members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			metrics.StoreQueryErrors.Inc()
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		metrics.StoreQueryErrors.Inc()
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return ids, nil
}
