package models

// CommentDeletedPayload is broadcast to the image-version room when a
// comment is removed. Only the keys a client needs to drop its local entry.
type CommentDeletedPayload struct {
	ID             string `json:"id"`
	ImageVersionID string `json:"imageVersionId"`
}

// LikeUpdatedPayload is broadcast on every like toggle, in both
// directions. Count reflects a real database count at the time it was
// computed; clients treat the latest received count as authoritative.
type LikeUpdatedPayload struct {
	ID             string `json:"id"`
	Liked          bool   `json:"liked"`
	Count          int    `json:"count"`
	UserID         string `json:"userId"`
	ImageVersionID string `json:"imageVersionId"`
}

// ProjectUpdatePayload is broadcast to a project room alongside per-member
// notification rows.
type ProjectUpdatePayload struct {
	Type      string               `json:"type"`
	Content   string               `json:"content"`
	ProjectID string               `json:"projectId"`
	Metadata  NotificationMetadata `json:"metadata"`
}

// JoinConfirmedPayload acknowledges a room join to the requesting
// connection only. One of UserID, ProjectID, or ImageVersionID is set
// depending on the room scope joined.
type JoinConfirmedPayload struct {
	Message        string `json:"message"`
	UserID         string `json:"userId,omitempty"`
	ProjectID      string `json:"projectId,omitempty"`
	ImageVersionID string `json:"imageVersionId,omitempty"`
}
