package realtime

import (
	"github.com/goccy/go-json"

	"github.com/prathamps/Sculpt/internal/models"
)

// Scope identifies the kind of resource a room is keyed on.
type Scope string

const (
	ScopeUser         Scope = "user"
	ScopeProject      Scope = "project"
	ScopeImageVersion Scope = "imageVersion"
)

// RoomKey is the composite identity of a room.
type RoomKey struct {
	Scope Scope
	ID    string
}

// String renders the key in the "scope:id" form used in logs.
func (k RoomKey) String() string {
	return string(k.Scope) + ":" + k.ID
}

// Client→server events.
const (
	EventJoin              = "join"
	EventJoinProject       = "joinProject"
	EventJoinImageVersion  = "joinImageVersion"
	EventLeaveImageVersion = "leaveImageVersion"
	EventPing              = "ping"
)

// Server→client events.
const (
	EventConnectionConfirmed = "connection_confirmed"
	EventProjectJoined       = "project_joined"
	EventImageVersionJoined  = "image_version_joined"
	EventNewComment          = "new-comment"
	EventCommentUpdated      = "comment-updated"
	EventCommentDeleted      = "comment-deleted"
	EventCommentLikeUpdated  = "comment-like-updated"
	EventNotification        = "notification"
	EventProjectUpdate       = "project-update"
	EventPong                = "pong"
)

// Message is one websocket frame in either direction: an event name and
// its payload. Inbound payloads stay raw until the event name tells the
// reader how to decode them.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// InboundMessage is the client→server frame shape before payload decoding.
type InboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// joinConfirmation builds the ack payload for a join, with the id echoed
// back under the field matching the room's scope.
func joinConfirmation(message string, key RoomKey) models.JoinConfirmedPayload {
	p := models.JoinConfirmedPayload{Message: message}
	switch key.Scope {
	case ScopeUser:
		p.UserID = key.ID
	case ScopeProject:
		p.ProjectID = key.ID
	case ScopeImageVersion:
		p.ImageVersionID = key.ID
	}
	return p
}

// decodeRoomID extracts the room identifier from an inbound join/leave
// payload. The web client sends the id as a bare JSON string; an object
// wrapper with an "id" field is also accepted.
func decodeRoomID(data json.RawMessage) string {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		return id
	}
	var wrapped struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		return wrapped.ID
	}
	return ""
}
