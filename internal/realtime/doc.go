// Package realtime implements the room-based publish/subscribe gateway
// that keeps connected clients' comment threads, like counts, and
// notifications in sync.
//
// # Architecture
//
// Three pieces cooperate:
//
//   - Registry: an in-memory map of room keys to the connections currently
//     subscribed. Pure bookkeeping, no persistence, owned by the hub loop.
//   - Hub: the single goroutine that owns all registry mutation and all
//     fan-out. Connection lifecycle events, room join/leave requests, and
//     publishes are processed sequentially, which is what gives events for
//     the same room their delivery ordering guarantee.
//   - Client: the per-connection websocket read/write pumps bridging the
//     gorilla/websocket transport to the hub.
//
// # Rooms
//
// Rooms are scoped per user ("user:<id>", private notifications), per
// project ("project:<id>", project-wide updates), and per image version
// ("imageVersion:<id>", live comment threads). Rooms are created lazily on
// first join and are indistinguishable from absent once their last member
// leaves.
//
// # Delivery semantics
//
// Delivery is best-effort and fire-and-forget: a connection whose send
// queue is full or whose transport died between lookup and send is dropped
// from the room and does not receive the event. No retries, no queues, no
// replay. Clients that reconnect must rejoin their rooms and re-fetch
// snapshots over REST.
//
// The hub is constructed explicitly and injected into every service that
// publishes; there is no package-level shared instance.
package realtime
