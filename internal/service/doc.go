// Package service coordinates comment and notification mutations: each
// write goes to the store first, and only a committed write is published
// to the realtime hub. Notification fan-out rides on the same mutation but
// is best-effort; a failed notification never rolls back or fails the
// comment write that caused it.
//
// Services depend on interfaces declared here, satisfied by *store.DB in
// production and by fakes in tests.
package service
