// Package client is the Go client for the realtime sync surface. It
// keeps a local mirror of one image version's comment thread plus the
// user's notification list, reconciled from the event stream.
//
// Transport owns the websocket connection and a bounded reconnect loop.
// CommentView is the state machine on top: it joins rooms, fetches a
// snapshot over REST, and then applies broadcast events to the snapshot.
// Event application is idempotent; a duplicate new-comment replaces the
// entry it already created instead of inserting twice. Snapshots that
// finish loading after the view has moved to another image version are
// discarded.
package client
