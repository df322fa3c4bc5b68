package client

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/prathamps/Sculpt/internal/logging"
	"github.com/prathamps/Sculpt/internal/models"
	"github.com/prathamps/Sculpt/internal/realtime"
)

func init() {
	cfg := logging.DefaultConfig()
	cfg.Output = io.Discard
	logging.Init(cfg)
}

type sentFrame struct {
	event   string
	payload interface{}
}

type fakeSender struct {
	mu     sync.Mutex
	frames []sentFrame
	fail   bool
}

func (s *fakeSender) Send(event string, payload interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("not connected")
	}
	s.frames = append(s.frames, sentFrame{event, payload})
	return nil
}

func (s *fakeSender) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.event
	}
	return out
}

type fakeFetcher struct {
	mu        sync.Mutex
	snapshots map[string][]models.CommentSnapshot
	err       error
	calls     int
	// hook runs while the fetch is "in flight", before returning.
	hook func(imageVersionID string)
}

func (f *fakeFetcher) FetchComments(_ context.Context, imageVersionID string) ([]models.CommentSnapshot, error) {
	if f.hook != nil {
		f.hook(imageVersionID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshots[imageVersionID], nil
}

func (f *fakeFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func snapshotFor(id, imageVersionID, userID, content string) models.CommentSnapshot {
	return models.CommentSnapshot{
		Comment: models.Comment{
			ID: id, Content: content, UserID: userID, ImageVersionID: imageVersionID,
		},
	}
}

func frameFor(t *testing.T, payload interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return b
}

func newSubscribedView(t *testing.T) (*CommentView, *fakeSender, *fakeFetcher) {
	t.Helper()
	sender := &fakeSender{}
	fetcher := &fakeFetcher{snapshots: map[string][]models.CommentSnapshot{
		"iv1": {snapshotFor("c1", "iv1", "alice", "from snapshot")},
	}}
	v := NewCommentView(sender, fetcher, "me")
	v.HandleConnected()
	if err := v.SetImageVersion(context.Background(), "iv1"); err != nil {
		t.Fatalf("SetImageVersion: %v", err)
	}
	if v.State() != StateSubscribed {
		t.Fatalf("state = %v, want subscribed", v.State())
	}
	return v, sender, fetcher
}

func TestSetImageVersionLoadsSnapshot(t *testing.T) {
	v, sender, _ := newSubscribedView(t)

	comments := v.Comments()
	if len(comments) != 1 || comments[0].ID != "c1" {
		t.Fatalf("comments = %+v", comments)
	}
	want := []string{realtime.EventJoin, realtime.EventJoinImageVersion}
	if got := sender.events(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("sent events = %v, want %v", got, want)
	}
}

func TestSwitchLeavesOldRoomBeforeJoiningNew(t *testing.T) {
	v, sender, fetcher := newSubscribedView(t)
	fetcher.snapshots["iv2"] = nil

	if err := v.SetImageVersion(context.Background(), "iv2"); err != nil {
		t.Fatalf("SetImageVersion: %v", err)
	}

	got := sender.events()
	// join(user), joinImageVersion(iv1), leaveImageVersion(iv1), joinImageVersion(iv2)
	if len(got) != 4 || got[2] != realtime.EventLeaveImageVersion || got[3] != realtime.EventJoinImageVersion {
		t.Fatalf("sent events = %v, want leave before join", got)
	}
	if sender.frames[2].payload.(roomID).ID != "iv1" {
		t.Errorf("left room %v, want iv1", sender.frames[2].payload)
	}
	if sender.frames[3].payload.(roomID).ID != "iv2" {
		t.Errorf("joined room %v, want iv2", sender.frames[3].payload)
	}
	if len(v.Comments()) != 0 {
		t.Error("old room's comments survived the switch")
	}
}

func TestSwitchPassesThroughLoadingState(t *testing.T) {
	v, _, fetcher := newSubscribedView(t)
	fetcher.snapshots["iv2"] = nil

	var during State
	fetcher.hook = func(string) { during = v.State() }
	if err := v.SetImageVersion(context.Background(), "iv2"); err != nil {
		t.Fatalf("SetImageVersion: %v", err)
	}

	if during != StateLoading {
		t.Errorf("state during fetch = %v, want loading", during)
	}
	if v.State() != StateSubscribed {
		t.Errorf("state after fetch = %v, want subscribed", v.State())
	}
}

func TestStaleSnapshotDiscarded(t *testing.T) {
	sender := &fakeSender{}
	fetcher := &fakeFetcher{snapshots: map[string][]models.CommentSnapshot{
		"iv1": {snapshotFor("old", "iv1", "alice", "stale")},
		"iv2": {snapshotFor("new", "iv2", "alice", "fresh")},
	}}
	v := NewCommentView(sender, fetcher, "me")

	// While iv1's fetch is in flight, the view switches to iv2.
	first := true
	fetcher.hook = func(imageVersionID string) {
		if imageVersionID == "iv1" && first {
			first = false
			fetcher.hook = nil
			if err := v.SetImageVersion(context.Background(), "iv2"); err != nil {
				t.Errorf("inner SetImageVersion: %v", err)
			}
		}
	}

	if err := v.SetImageVersion(context.Background(), "iv1"); err != nil {
		t.Fatalf("SetImageVersion: %v", err)
	}

	comments := v.Comments()
	if len(comments) != 1 || comments[0].ID != "new" {
		t.Errorf("comments = %+v, want only iv2's snapshot", comments)
	}
}

func TestNewCommentEventIsIdempotent(t *testing.T) {
	v, _, _ := newSubscribedView(t)

	frame := frameFor(t, snapshotFor("c2", "iv1", "bob", "hello"))
	v.HandleFrame(realtime.EventNewComment, frame)
	v.HandleFrame(realtime.EventNewComment, frame) // replay

	comments := v.Comments()
	if len(comments) != 2 {
		t.Fatalf("got %d comments after replay, want 2", len(comments))
	}
	if comments[0].ID != "c2" {
		t.Errorf("newest comment = %s, want c2 first", comments[0].ID)
	}
}

func TestReplyAttachesToParent(t *testing.T) {
	v, _, _ := newSubscribedView(t)

	parentID := "c1"
	reply := snapshotFor("r1", "iv1", "bob", "a reply")
	reply.ParentID = &parentID
	v.HandleFrame(realtime.EventNewComment, frameFor(t, reply))

	comments := v.Comments()
	if len(comments) != 1 {
		t.Fatalf("top-level count = %d, want 1", len(comments))
	}
	if len(comments[0].Replies) != 1 || comments[0].Replies[0].ID != "r1" {
		t.Errorf("replies = %+v", comments[0].Replies)
	}
}

func TestCommentUpdatedPreservesReplies(t *testing.T) {
	v, _, _ := newSubscribedView(t)

	parentID := "c1"
	reply := snapshotFor("r1", "iv1", "bob", "a reply")
	reply.ParentID = &parentID
	v.HandleFrame(realtime.EventNewComment, frameFor(t, reply))

	updated := snapshotFor("c1", "iv1", "alice", "edited")
	updated.Resolved = true
	v.HandleFrame(realtime.EventCommentUpdated, frameFor(t, updated))

	comments := v.Comments()
	if comments[0].Content != "edited" || !comments[0].Resolved {
		t.Errorf("comment = %+v", comments[0].Comment)
	}
	if len(comments[0].Replies) != 1 {
		t.Error("update dropped the nested replies")
	}
}

func TestCommentDeletedRemovesEntry(t *testing.T) {
	v, _, _ := newSubscribedView(t)

	v.HandleFrame(realtime.EventCommentDeleted, frameFor(t, models.CommentDeletedPayload{
		ID: "c1", ImageVersionID: "iv1",
	}))
	if len(v.Comments()) != 0 {
		t.Error("deleted comment still mirrored")
	}

	// Deleting again is a no-op.
	v.HandleFrame(realtime.EventCommentDeleted, frameFor(t, models.CommentDeletedPayload{
		ID: "c1", ImageVersionID: "iv1",
	}))
}

func TestEventsForOtherRoomsIgnored(t *testing.T) {
	v, _, _ := newSubscribedView(t)

	v.HandleFrame(realtime.EventNewComment, frameFor(t, snapshotFor("x", "iv-other", "bob", "wrong room")))
	v.HandleFrame(realtime.EventCommentDeleted, frameFor(t, models.CommentDeletedPayload{
		ID: "c1", ImageVersionID: "iv-other",
	}))

	comments := v.Comments()
	if len(comments) != 1 || comments[0].ID != "c1" {
		t.Errorf("comments = %+v, cross-room events must not apply", comments)
	}
}

func TestLikeUpdateSetsCountAndViewerFlag(t *testing.T) {
	v, _, _ := newSubscribedView(t)

	v.HandleFrame(realtime.EventCommentLikeUpdated, frameFor(t, models.LikeUpdatedPayload{
		ID: "c1", Liked: true, Count: 3, UserID: "someone-else", ImageVersionID: "iv1",
	}))
	c := v.Comments()[0]
	if c.LikeCount != 3 || c.IsLikedByCurrentUser {
		t.Errorf("like state = count %d liked %v, want 3/false", c.LikeCount, c.IsLikedByCurrentUser)
	}

	v.HandleFrame(realtime.EventCommentLikeUpdated, frameFor(t, models.LikeUpdatedPayload{
		ID: "c1", Liked: true, Count: 4, UserID: "me", ImageVersionID: "iv1",
	}))
	c = v.Comments()[0]
	if c.LikeCount != 4 || !c.IsLikedByCurrentUser {
		t.Errorf("like state = count %d liked %v, want 4/true", c.LikeCount, c.IsLikedByCurrentUser)
	}
}

func TestNotificationsPrepend(t *testing.T) {
	v, _, _ := newSubscribedView(t)

	v.HandleFrame(realtime.EventNotification, frameFor(t, models.Notification{ID: "n1", Content: "first"}))
	v.HandleFrame(realtime.EventNotification, frameFor(t, models.Notification{ID: "n2", Content: "second"}))

	list := v.Notifications()
	if len(list) != 2 || list[0].ID != "n2" {
		t.Errorf("notifications = %+v, want newest first", list)
	}
	if got := v.UnreadCount(); got != 2 {
		t.Errorf("UnreadCount() = %d, want 2", got)
	}
}

func TestReconnectRejoinsRoomsAndRefetches(t *testing.T) {
	v, sender, fetcher := newSubscribedView(t)
	v.SetProject("p1")

	v.HandleDisconnected()
	if v.State() != StateDisconnected {
		t.Fatalf("state = %v, want disconnected", v.State())
	}

	// A comment lands while the transport is down; only a fresh snapshot
	// can surface it.
	fetcher.mu.Lock()
	fetcher.snapshots["iv1"] = []models.CommentSnapshot{
		snapshotFor("c2", "iv1", "bob", "posted while offline"),
		snapshotFor("c1", "iv1", "alice", "from snapshot"),
	}
	fetcher.mu.Unlock()

	sender.mu.Lock()
	sender.frames = nil
	sender.mu.Unlock()

	v.HandleConnected()
	got := sender.events()
	want := []string{realtime.EventJoin, realtime.EventJoinProject, realtime.EventJoinImageVersion}
	if len(got) != len(want) {
		t.Fatalf("rejoin events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rejoin events = %v, want %v", got, want)
		}
	}
	if v.State() != StateSubscribed {
		t.Errorf("state = %v, want subscribed after reconnect", v.State())
	}
	if got := fetcher.fetchCount(); got != 2 {
		t.Errorf("snapshot fetched %d time(s), want 2", got)
	}
	comments := v.Comments()
	if len(comments) != 2 || comments[0].ID != "c2" {
		t.Errorf("comments after reconnect = %+v, want refetched [c2 c1]", comments)
	}
}

func TestReconnectRefetchFailureKeepsStaleMirror(t *testing.T) {
	v, _, fetcher := newSubscribedView(t)

	v.HandleDisconnected()
	fetcher.mu.Lock()
	fetcher.err = errors.New("server unavailable")
	fetcher.mu.Unlock()

	v.HandleConnected()
	if v.State() != StateLoading {
		t.Errorf("state = %v, want loading until a snapshot lands", v.State())
	}
	if len(v.Comments()) != 1 {
		t.Error("failed refetch dropped the stale mirror")
	}
}

func TestUnknownEventIgnored(t *testing.T) {
	v, _, _ := newSubscribedView(t)
	v.HandleFrame("future-event", json.RawMessage(`{"whatever":true}`))
	if len(v.Comments()) != 1 {
		t.Error("unknown event mutated the mirror")
	}
}

func TestSendFailureIsTolerated(t *testing.T) {
	sender := &fakeSender{fail: true}
	fetcher := &fakeFetcher{snapshots: map[string][]models.CommentSnapshot{}}
	v := NewCommentView(sender, fetcher, "me")

	v.HandleConnected() // must not panic or error out
	if err := v.SetImageVersion(context.Background(), "iv1"); err != nil {
		t.Fatalf("SetImageVersion: %v", err)
	}
}
