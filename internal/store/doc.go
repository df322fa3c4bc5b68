// Package store is the PostgreSQL persistence gateway for Sculpt.
//
// DB wraps a pgx connection pool and exposes the entity operations the
// services consume: comments and their likes, notifications, users, and
// project membership resolution. Services depend on small interfaces they
// declare themselves, so tests substitute fakes without touching this
// package.
//
// Two sentinel errors matter to callers: ErrNotFound for absent rows and
// ErrForbidden for ownership violations surfaced by the service layer.
// Everything else is a wrapped driver error.
//
// Schema migrations are embedded and applied with golang-migrate at
// startup (database.migrate, default true).
package store
