// Package db provides connection management for the profile stores.
// Postgres uses pgx as the driver; the local store uses SQLite via database/sql.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"neuroforge/src/infra/config"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id        TEXT PRIMARY KEY,
	display_name   TEXT NOT NULL DEFAULT '',
	cloud_credits  INTEGER NOT NULL DEFAULT 0,
	elo_rating     INTEGER NOT NULL DEFAULT 1000,
	matches_played INTEGER NOT NULL DEFAULT 0,
	match_history  JSONB NOT NULL DEFAULT '[]'::jsonb,
	version        BIGINT NOT NULL DEFAULT 1,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres wraps a pgx connection pool with helper methods.
type Postgres struct {
	Pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgres creates a new PostgreSQL connection pool.
// It validates the connection by pinging the database.
func NewPostgres(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Apply connection pool settings
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("database connection established",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Name,
	)

	return &Postgres{
		Pool: pool,
		log:  log,
	}, nil
}

// EnsureSchema creates the profiles table when it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.Pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create profiles table: %w", err)
	}
	return nil
}

// Close closes the connection pool.
// Call this during graceful shutdown.
func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
		p.log.Info("database connection closed")
	}
}

// Health checks if the database is reachable.
func (p *Postgres) Health(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}
