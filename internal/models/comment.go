package models

import "time"

// Comment is a threaded annotation comment on an image version.
//
// ParentID is nil for top-level comments. A reply's parent always lives on
// the same image version; the store enforces this on create.
type Comment struct {
	ID             string     `json:"id"`
	Content        string     `json:"content"`
	UserID         string     `json:"userId"`
	ImageVersionID string     `json:"imageVersionId"`
	ParentID       *string    `json:"parentId"`
	Annotation     Annotation `json:"annotation,omitempty"`
	Resolved       bool       `json:"resolved"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// CommentLike is the unique (comment, user) like row. Toggling a like
// deletes or inserts this row; counts are always derived, never stored.
type CommentLike struct {
	ID        string    `json:"id"`
	CommentID string    `json:"commentId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// CommentSnapshot is a comment enriched for a particular viewer: author
// info, derived like state, and nested replies. This is the shape served by
// the snapshot endpoint and broadcast in new-comment / comment-updated
// events.
type CommentSnapshot struct {
	Comment
	User                 *User             `json:"user,omitempty"`
	LikeCount            int               `json:"likeCount"`
	IsLikedByCurrentUser bool              `json:"isLikedByCurrentUser"`
	Replies              []CommentSnapshot `json:"replies,omitempty"`
}
