package client

import (
	"context"
	"sync"

	"github.com/goccy/go-json"

	"github.com/prathamps/Sculpt/internal/logging"
	"github.com/prathamps/Sculpt/internal/models"
	"github.com/prathamps/Sculpt/internal/realtime"
)

// State is the CommentView lifecycle.
type State int

const (
	// StateIdle means no image version is selected.
	StateIdle State = iota
	// StateLoading means the snapshot fetch is in flight.
	StateLoading
	// StateSubscribed means the local mirror is live.
	StateSubscribed
	// StateTransitioning means the view is switching image versions: the
	// old room is being left and its snapshot has been discarded.
	StateTransitioning
	// StateDisconnected means the transport dropped; the mirror is stale
	// until the next reconnect and refetch.
	StateDisconnected
)

// SnapshotFetcher retrieves the authoritative comment tree over REST.
type SnapshotFetcher interface {
	FetchComments(ctx context.Context, imageVersionID string) ([]models.CommentSnapshot, error)
}

// Sender is the outbound frame surface of the transport.
type Sender interface {
	Send(event string, payload interface{}) error
}

type roomID struct {
	ID string `json:"id"`
}

// CommentView mirrors one image version's comment thread and the user's
// notification list. Wire it as the transport's MessageHandler via
// HandleFrame and connection callbacks via HandleConnected and
// HandleDisconnected.
type CommentView struct {
	conn    Sender
	fetcher SnapshotFetcher

	mu             sync.Mutex
	state          State
	userID         string
	projectID      string
	imageVersionID string
	epoch          uint64 // bumped on every switch; stale fetches compare against it
	comments       []models.CommentSnapshot
	notifications  []models.Notification
}

// NewCommentView builds a view for one authenticated user.
func NewCommentView(conn Sender, fetcher SnapshotFetcher, userID string) *CommentView {
	return &CommentView{
		conn:    conn,
		fetcher: fetcher,
		userID:  userID,
		state:   StateIdle,
	}
}

// HandleConnected re-establishes room membership after every connect and,
// on a reconnect, re-fetches the snapshot: events published while the
// transport was down are gone, so the mirror must be rebuilt from the
// authoritative thread. The server's registry is per-connection state, so
// a fresh connection starts with no rooms regardless of what the old one
// had joined.
func (v *CommentView) HandleConnected() {
	v.mu.Lock()
	userID, projectID, imageVersionID := v.userID, v.projectID, v.imageVersionID
	refetch := false
	if v.state == StateDisconnected {
		if imageVersionID != "" {
			v.epoch++
			v.state = StateLoading
			refetch = true
		} else {
			v.state = StateIdle
		}
	}
	epoch := v.epoch
	v.mu.Unlock()

	v.send(realtime.EventJoin, roomID{ID: userID})
	if projectID != "" {
		v.send(realtime.EventJoinProject, roomID{ID: projectID})
	}
	if imageVersionID != "" {
		v.send(realtime.EventJoinImageVersion, roomID{ID: imageVersionID})
	}

	if refetch {
		if err := v.fetchSnapshot(context.Background(), imageVersionID, epoch); err != nil {
			logging.Warn().Err(err).Str("image_version_id", imageVersionID).Msg("Snapshot refetch after reconnect failed")
		}
	}
}

// HandleDisconnected marks the mirror stale.
func (v *CommentView) HandleDisconnected() {
	v.mu.Lock()
	v.state = StateDisconnected
	v.mu.Unlock()
}

// SetProject joins the project room for project-update and membership
// notifications.
func (v *CommentView) SetProject(projectID string) {
	v.mu.Lock()
	old := v.projectID
	v.projectID = projectID
	v.mu.Unlock()
	if projectID != "" && projectID != old {
		v.send(realtime.EventJoinProject, roomID{ID: projectID})
	}
}

// SetImageVersion switches the view to another image version: leave the
// old room first, join the new one, then fetch the snapshot. A snapshot
// that lands after another switch is discarded, so events for the new room
// are never overwritten by an older room's data.
func (v *CommentView) SetImageVersion(ctx context.Context, imageVersionID string) error {
	v.mu.Lock()
	old := v.imageVersionID
	if old == imageVersionID {
		v.mu.Unlock()
		return nil
	}
	v.imageVersionID = imageVersionID
	v.epoch++
	epoch := v.epoch
	v.comments = nil
	switch {
	case imageVersionID == "":
		v.state = StateIdle
	case old != "":
		v.state = StateTransitioning
	default:
		v.state = StateLoading
	}
	v.mu.Unlock()

	if old != "" {
		v.send(realtime.EventLeaveImageVersion, roomID{ID: old})
	}
	if imageVersionID == "" {
		return nil
	}
	v.send(realtime.EventJoinImageVersion, roomID{ID: imageVersionID})

	v.mu.Lock()
	if v.epoch == epoch && v.state == StateTransitioning {
		v.state = StateLoading
	}
	v.mu.Unlock()

	return v.fetchSnapshot(ctx, imageVersionID, epoch)
}

// fetchSnapshot loads the authoritative thread and installs it, unless the
// view moved to another epoch while the fetch was in flight.
func (v *CommentView) fetchSnapshot(ctx context.Context, imageVersionID string, epoch uint64) error {
	snapshot, err := v.fetcher.FetchComments(ctx, imageVersionID)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.epoch != epoch {
		return nil
	}
	v.comments = snapshot
	v.state = StateSubscribed
	return nil
}

// HandleFrame applies one inbound event to the mirror. Unknown events are
// ignored so the client tolerates newer servers.
func (v *CommentView) HandleFrame(event string, data json.RawMessage) {
	switch event {
	case realtime.EventNewComment, realtime.EventCommentUpdated:
		var snapshot models.CommentSnapshot
		if err := json.Unmarshal(data, &snapshot); err != nil {
			logging.Warn().Err(err).Str("event", event).Msg("Undecodable comment event")
			return
		}
		v.upsertComment(snapshot)
	case realtime.EventCommentDeleted:
		var payload models.CommentDeletedPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			logging.Warn().Err(err).Msg("Undecodable comment-deleted event")
			return
		}
		v.removeComment(payload)
	case realtime.EventCommentLikeUpdated:
		var payload models.LikeUpdatedPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			logging.Warn().Err(err).Msg("Undecodable like event")
			return
		}
		v.applyLike(payload)
	case realtime.EventNotification:
		var n models.Notification
		if err := json.Unmarshal(data, &n); err != nil {
			logging.Warn().Err(err).Msg("Undecodable notification event")
			return
		}
		v.mu.Lock()
		v.notifications = append([]models.Notification{n}, v.notifications...)
		v.mu.Unlock()
	}
}

// upsertComment inserts a comment or replaces the copy already present,
// so replayed events cannot duplicate entries. Top-level comments go to
// the front (newest first); replies append to their parent.
func (v *CommentView) upsertComment(snapshot models.CommentSnapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if snapshot.ImageVersionID != v.imageVersionID {
		return // event for a room we already left
	}

	if snapshot.ParentID == nil {
		for i := range v.comments {
			if v.comments[i].ID == snapshot.ID {
				snapshot.Replies = v.comments[i].Replies
				v.comments[i] = snapshot
				return
			}
		}
		v.comments = append([]models.CommentSnapshot{snapshot}, v.comments...)
		return
	}

	for i := range v.comments {
		if v.comments[i].ID != *snapshot.ParentID {
			continue
		}
		replies := v.comments[i].Replies
		for j := range replies {
			if replies[j].ID == snapshot.ID {
				replies[j] = snapshot
				return
			}
		}
		v.comments[i].Replies = append(replies, snapshot)
		return
	}
	// Parent not mirrored (e.g. it arrived before our snapshot). Drop the
	// reply; the next snapshot fetch reconciles.
}

func (v *CommentView) removeComment(payload models.CommentDeletedPayload) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if payload.ImageVersionID != v.imageVersionID {
		return
	}

	for i := range v.comments {
		if v.comments[i].ID == payload.ID {
			v.comments = append(v.comments[:i], v.comments[i+1:]...)
			return
		}
		replies := v.comments[i].Replies
		for j := range replies {
			if replies[j].ID == payload.ID {
				v.comments[i].Replies = append(replies[:j], replies[j+1:]...)
				return
			}
		}
	}
}

// applyLike overwrites the count with the broadcast value; the latest
// event wins regardless of arrival order of our own optimistic updates.
func (v *CommentView) applyLike(payload models.LikeUpdatedPayload) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if payload.ImageVersionID != v.imageVersionID {
		return
	}

	update := func(s *models.CommentSnapshot) bool {
		if s.ID != payload.ID {
			return false
		}
		s.LikeCount = payload.Count
		if payload.UserID == v.userID {
			s.IsLikedByCurrentUser = payload.Liked
		}
		return true
	}

	for i := range v.comments {
		if update(&v.comments[i]) {
			return
		}
		for j := range v.comments[i].Replies {
			if update(&v.comments[i].Replies[j]) {
				return
			}
		}
	}
}

// State returns the current lifecycle state.
func (v *CommentView) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Comments returns a copy of the mirrored thread, newest first.
func (v *CommentView) Comments() []models.CommentSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.CommentSnapshot, len(v.comments))
	copy(out, v.comments)
	return out
}

// UnreadCount reports how many mirrored notifications are unread.
func (v *CommentView) UnreadCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for i := range v.notifications {
		if !v.notifications[i].Read {
			n++
		}
	}
	return n
}

// Notifications returns a copy of the notification list, newest first.
func (v *CommentView) Notifications() []models.Notification {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.Notification, len(v.notifications))
	copy(out, v.notifications)
	return out
}

func (v *CommentView) send(event string, payload interface{}) {
	if err := v.conn.Send(event, payload); err != nil {
		logging.Debug().Err(err).Str("event", event).Msg("Frame not sent, will re-join on reconnect")
	}
}
