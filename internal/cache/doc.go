/*
Package cache provides the Redis-backed notification cache.

Notifications are written through to a per-user Redis hash whenever one is
delivered, so the notification list endpoint can usually answer without a
database read. The cache is strictly optional: a nil *NotificationCache is
valid and every method degrades to a no-op or a miss, and Redis failures are
logged and swallowed so a cache outage never breaks notification delivery.

# Key Layout

Each user owns one hash:

	notifications:<userId>  field = notification id, value = JSON notification

Hashes expire after 24 hours of not being refilled. A corrupt entry drops the
whole key, forcing the next read through to the database.
*/
package cache
