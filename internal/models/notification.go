package models

import "time"

// Notification subtypes carried in metadata.
const (
	NotificationTypeReply      = "comment_reply"
	NotificationTypeNewComment = "new_comment"
	NotificationTypeLike       = "like"
)

// NotificationMetadata points a notification at the resource that caused
// it so the client can navigate on click.
type NotificationMetadata struct {
	Type           string `json:"type,omitempty"`
	ProjectID      string `json:"projectId,omitempty"`
	ImageID        string `json:"imageId,omitempty"`
	ImageVersionID string `json:"imageVersionId,omitempty"`
	CommentID      string `json:"commentId,omitempty"`
}

// Notification is delivered twice: persisted for later retrieval and
// broadcast immediately to the recipient's user room.
type Notification struct {
	ID        string               `json:"id"`
	UserID    string               `json:"userId"`
	Content   string               `json:"content"`
	Read      bool                 `json:"read"`
	Metadata  NotificationMetadata `json:"metadata"`
	CreatedAt time.Time            `json:"createdAt"`
}
