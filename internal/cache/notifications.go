package cache

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/prathamps/Sculpt/internal/config"
	"github.com/prathamps/Sculpt/internal/logging"
	"github.com/prathamps/Sculpt/internal/metrics"
	"github.com/prathamps/Sculpt/internal/models"
)

const keyTTL = 24 * time.Hour

// NotificationCache mirrors each user's notifications in a Redis hash
// keyed notifications:<userId>, one field per notification id.
type NotificationCache struct {
	rdb *redis.Client
}

// New connects to Redis per cfg. An empty Addr disables the cache and
// returns nil, which every method accepts.
func New(ctx context.Context, cfg config.RedisConfig) (*NotificationCache, error) {
	if cfg.Addr == "" {
		logging.Info().Msg("Notification cache disabled (no redis addr)")
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logging.Info().Str("addr", cfg.Addr).Msg("Notification cache connected")
	return &NotificationCache{rdb: rdb}, nil
}

// NewWithClient wraps an existing client. Tests pass a miniredis-backed
// client here.
func NewWithClient(rdb *redis.Client) *NotificationCache {
	return &NotificationCache{rdb: rdb}
}

// Close releases the Redis connection.
func (c *NotificationCache) Close() {
	if c != nil && c.rdb != nil {
		c.rdb.Close()
	}
}

func key(userID string) string {
	return "notifications:" + userID
}

// Put writes one notification into its owner's hash.
func (c *NotificationCache) Put(ctx context.Context, n *models.Notification) {
	if c == nil {
		return
	}
	b, err := json.Marshal(n)
	if err != nil {
		logging.Warn().Err(err).Str("notification_id", n.ID).Msg("Failed to encode notification for cache")
		return
	}
	k := key(n.UserID)
	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, k, n.ID, b)
	pipe.Expire(ctx, k, keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logging.Warn().Err(err).Str("user_id", n.UserID).Msg("Failed to cache notification")
	}
}

// Get returns the user's cached notifications newest first, or ok=false
// when the key is absent or Redis is unreachable.
func (c *NotificationCache) Get(ctx context.Context, userID string) ([]models.Notification, bool) {
	if c == nil {
		return nil, false
	}
	fields, err := c.rdb.HGetAll(ctx, key(userID)).Result()
	if err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("Notification cache read failed")
		metrics.NotificationCacheMisses.Inc()
		return nil, false
	}
	if len(fields) == 0 {
		metrics.NotificationCacheMisses.Inc()
		return nil, false
	}

	out := make([]models.Notification, 0, len(fields))
	for id, raw := range fields {
		var n models.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			logging.Warn().Err(err).Str("notification_id", id).Msg("Corrupt cached notification, dropping key")
			c.Invalidate(ctx, userID)
			metrics.NotificationCacheMisses.Inc()
			return nil, false
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	metrics.NotificationCacheHits.Inc()
	return out, true
}

// Fill replaces the user's hash with a fresh database read.
func (c *NotificationCache) Fill(ctx context.Context, userID string, list []models.Notification) {
	if c == nil || len(list) == 0 {
		return
	}
	k := key(userID)
	pipe := c.rdb.Pipeline()
	pipe.Del(ctx, k)
	for i := range list {
		b, err := json.Marshal(&list[i])
		if err != nil {
			logging.Warn().Err(err).Str("notification_id", list[i].ID).Msg("Failed to encode notification for cache")
			return
		}
		pipe.HSet(ctx, k, list[i].ID, b)
	}
	pipe.Expire(ctx, k, keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("Failed to fill notification cache")
	}
}

// Invalidate drops the user's hash. Called after read-state mutations so
// the next list re-reads the database.
func (c *NotificationCache) Invalidate(ctx context.Context, userID string) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, key(userID)).Err(); err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("Failed to invalidate notification cache")
	}
}
