package models

import "time"

// User is a registered account. PasswordHash never crosses the wire.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ProjectRole distinguishes owners from invited members.
type ProjectRole string

const (
	RoleOwner  ProjectRole = "OWNER"
	RoleMember ProjectRole = "MEMBER"
)

// Project groups images and members.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProjectMember links a user to a project with a role.
type ProjectMember struct {
	ProjectID string      `json:"projectId"`
	UserID    string      `json:"userId"`
	Role      ProjectRole `json:"role"`
}

// Image is an uploaded asset inside a project. Each upload of a revised
// file becomes a new ImageVersion; comments attach to versions, not images.
type Image struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ImageVersion is one revision of an image.
type ImageVersion struct {
	ID        string    `json:"id"`
	ImageID   string    `json:"imageId"`
	URL       string    `json:"url"`
	Number    int       `json:"versionNumber"`
	CreatedAt time.Time `json:"createdAt"`
}
