// Package models defines the domain entities shared across the Sculpt
// backend: users, projects, images and their versions, comments with
// annotations, likes, and notifications.
//
// Entities are treated as immutable value objects once loaded from the
// store. Wire shapes (JSON tags) match what the web client consumes, so
// the same structs serve both REST responses and realtime event payloads.
package models
