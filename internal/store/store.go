package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prathamps/Sculpt/internal/config"
	"github.com/prathamps/Sculpt/internal/logging"
)

// ErrNotFound reports that the requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrForbidden reports that the acting user does not own the target row.
// It is distinct from ErrNotFound so handlers can map it to 403 rather
// than 404.
var ErrForbidden = errors.New("store: forbidden")

// DB is the PostgreSQL persistence gateway. All methods are safe for
// concurrent use; the underlying pgx pool handles connection management.
type DB struct {
	pool *pgxpool.Pool
}

// New opens a connection pool against cfg.Database.URL, pings it, and
// optionally applies pending schema migrations.
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}

	if cfg.Migrate {
		if err := MigrateUp(cfg.URL); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		logging.Info().Msg("Database migrations applied")
	}

	logging.Info().Int("max_conns", int(poolCfg.MaxConns)).Msg("Database pool ready")
	return &DB{pool: pool}, nil
}

// NewWithPool wraps an existing pool. Used by tests that provision their
// own database.
func NewWithPool(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

// Ping verifies the pool can reach the database.
func (d *DB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Close releases the connection pool.
func (d *DB) Close() {
	if d != nil && d.pool != nil {
		d.pool.Close()
	}
}
