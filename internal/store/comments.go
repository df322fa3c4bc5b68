package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prathamps/Sculpt/internal/metrics"
	"github.com/prathamps/Sculpt/internal/models"
)

// CreateCommentParams carries the validated fields for a new comment or
// reply. Annotation is optional and stored as jsonb.
type CreateCommentParams struct {
	Content        string
	UserID         string
	ImageVersionID string
	ParentID       *string
	Annotation     models.Annotation
}

// CreateComment inserts a comment and returns the stored row.
func (d *DB) CreateComment(ctx context.Context, p CreateCommentParams) (*models.Comment, error) {
	var annotation []byte
	if len(p.Annotation) > 0 {
		b, err := json.Marshal(p.Annotation)
		if err != nil {
			return nil, fmt.Errorf("encode annotation: %w", err)
		}
		annotation = b
	}

	const q = `
INSERT INTO comments (id, content, user_id, image_version_id, parent_id, annotation)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, content, user_id, image_version_id, parent_id, annotation, resolved, created_at, updated_at`

	row := d.pool.QueryRow(ctx, q, uuid.NewString(), p.Content, p.UserID, p.ImageVersionID, p.ParentID, annotation)
	c, err := scanComment(row)
	if err != nil {
		metrics.StoreQueryErrors.Inc()
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return c, nil
}

// GetComment fetches a single comment by id.
func (d *DB) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	const q = `
SELECT id, content, user_id, image_version_id, parent_id, annotation, resolved, created_at, updated_at
FROM comments WHERE id = $1`

	c, err := scanComment(d.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		metrics.StoreQueryErrors.Inc()
		return nil, fmt.Errorf("select comment: %w", err)
	}
	return c, nil
}

// UpdateCommentParams carries the mutable comment fields. Nil means "leave
// unchanged", so a content-only edit preserves the resolved flag.
type UpdateCommentParams struct {
	Content  *string
	Resolved *bool
}

// UpdateComment applies the non-nil fields and returns the updated row.
func (d *DB) UpdateComment(ctx context.Context, id string, p UpdateCommentParams) (*models.Comment, error) {
	const q = `
UPDATE comments
SET content = COALESCE($2, content),
    resolved = COALESCE($3, resolved),
    updated_at = now()
WHERE id = $1
RETURNING id, content, user_id, image_version_id, parent_id, annotation, resolved, created_at, updated_at`

	c, err := scanComment(d.pool.QueryRow(ctx, q, id, p.Content, p.Resolved))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		metrics.StoreQueryErrors.Inc()
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return c, nil
}

// DeleteComment removes a comment. Replies and likes cascade.
func (d *DB) DeleteComment(ctx context.Context, id string) error {
	tag, err := d.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		metrics.StoreQueryErrors.Inc()
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleLike flips the (comment, user) like row and returns the new state
// plus the recomputed count. The UNIQUE constraint on comment_likes keeps
// concurrent toggles from double-inserting.
func (d *DB) ToggleLike(ctx context.Context, commentID, userID string) (liked bool, count int, err error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("begin toggle like: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM comment_likes WHERE comment_id = $1 AND user_id = $2`, commentID, userID)
	if err != nil {
		metrics.StoreQueryErrors.Inc()
		return false, 0, fmt.Errorf("remove like: %w", err)
	}
	if tag.RowsAffected() == 0 {
		const ins = `
INSERT INTO comment_likes (id, comment_id, user_id)
VALUES ($1, $2, $3)
ON CONFLICT (comment_id, user_id) DO NOTHING`
		if _, err := tx.Exec(ctx, ins, uuid.NewString(), commentID, userID); err != nil {
			metrics.StoreQueryErrors.Inc()
			return false, 0, fmt.Errorf("insert like: %w", err)
		}
		liked = true
	}

	if err := tx.QueryRow(ctx, `SELECT count(*) FROM comment_likes WHERE comment_id = $1`, commentID).Scan(&count); err != nil {
		metrics.StoreQueryErrors.Inc()
		return false, 0, fmt.Errorf("count likes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, fmt.Errorf("commit toggle like: %w", err)
	}
	return liked, count, nil
}

// ListCommentSnapshots returns the full comment tree for an image version
// as the viewer sees it: top-level comments newest first, replies nested
// oldest first, with author info and like state derived per row.
func (d *DB) ListCommentSnapshots(ctx context.Context, imageVersionID, viewerID string) ([]models.CommentSnapshot, error) {
	const q = `
SELECT c.id, c.content, c.user_id, c.image_version_id, c.parent_id, c.annotation,
       c.resolved, c.created_at, c.updated_at,
       u.id, u.name, u.email, u.created_at,
       (SELECT count(*) FROM comment_likes cl WHERE cl.comment_id = c.id),
       EXISTS (SELECT 1 FROM comment_likes cl WHERE cl.comment_id = c.id AND cl.user_id = $2)
FROM comments c
JOIN users u ON u.id = c.user_id
WHERE c.image_version_id = $1
ORDER BY c.created_at ASC`

	rows, err := d.pool.Query(ctx, q, imageVersionID, viewerID)
	if err != nil {
		metrics.StoreQueryErrors.Inc()
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var flat []models.CommentSnapshot
	for rows.Next() {
		var (
			s          models.CommentSnapshot
			u          models.User
			annotation []byte
		)
		err := rows.Scan(
			&s.ID, &s.Content, &s.UserID, &s.ImageVersionID, &s.ParentID, &annotation,
			&s.Resolved, &s.CreatedAt, &s.UpdatedAt,
			&u.ID, &u.Name, &u.Email, &u.CreatedAt,
			&s.LikeCount, &s.IsLikedByCurrentUser,
		)
		if err != nil {
			metrics.StoreQueryErrors.Inc()
			return nil, fmt.Errorf("scan comment row: %w", err)
		}
		if len(annotation) > 0 {
			if err := json.Unmarshal(annotation, &s.Annotation); err != nil {
				return nil, fmt.Errorf("decode annotation for comment %s: %w", s.ID, err)
			}
		}
		s.User = &u
		flat = append(flat, s)
	}
	if err := rows.Err(); err != nil {
		metrics.StoreQueryErrors.Inc()
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return nestSnapshots(flat), nil
}

// nestSnapshots turns the flat created_at-ordered rows into a tree:
// top-level comments newest first, each carrying its replies oldest first.
// Replies to replies flatten under the nearest top-level ancestor's thread
// via their direct parent, which in this schema is always top-level.
func nestSnapshots(flat []models.CommentSnapshot) []models.CommentSnapshot {
	byID := make(map[string]*models.CommentSnapshot, len(flat))
	var topLevel []*models.CommentSnapshot
	for i := range flat {
		s := &flat[i]
		byID[s.ID] = s
		if s.ParentID == nil {
			topLevel = append(topLevel, s)
		}
	}
	for i := range flat {
		s := &flat[i]
		if s.ParentID == nil {
			continue
		}
		if parent, ok := byID[*s.ParentID]; ok {
			parent.Replies = append(parent.Replies, *s)
		}
	}

	out := make([]models.CommentSnapshot, 0, len(topLevel))
	for i := len(topLevel) - 1; i >= 0; i-- {
		out = append(out, *topLevel[i])
	}
	return out
}

func scanComment(row pgx.Row) (*models.Comment, error) {
	var (
		c          models.Comment
		annotation []byte
	)
	err := row.Scan(&c.ID, &c.Content, &c.UserID, &c.ImageVersionID, &c.ParentID, &annotation,
		&c.Resolved, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(annotation) > 0 {
		if err := json.Unmarshal(annotation, &c.Annotation); err != nil {
			return nil, fmt.Errorf("decode annotation: %w", err)
		}
	}
	return &c, nil
}
