package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id        TEXT PRIMARY KEY,
	display_name   TEXT NOT NULL DEFAULT '',
	cloud_credits  INTEGER NOT NULL DEFAULT 0,
	elo_rating     INTEGER NOT NULL DEFAULT 1000,
	matches_played INTEGER NOT NULL DEFAULT 0,
	match_history  TEXT NOT NULL DEFAULT '[]',
	version        INTEGER NOT NULL DEFAULT 1,
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL
)`

// SQLite wraps a database/sql handle on a local SQLite file.
type SQLite struct {
	DB   *sql.DB
	path string
	log  *slog.Logger
}

// NewSQLite opens (creating if needed) the database at path, switches it to WAL
// and creates the schema.
func NewSQLite(ctx context.Context, path string, log *slog.Logger) (*SQLite, error) {
	// busy_timeout keeps concurrent writers waiting instead of failing with SQLITE_BUSY.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create profiles table: %w", err)
	}

	log.Info("sqlite database opened", "path", path)
	return &SQLite{DB: db, path: path, log: log}, nil
}

// Close closes the database handle.
func (s *SQLite) Close() {
	if s.DB != nil {
		s.DB.Close()
		s.log.Info("sqlite database closed", "path", s.path)
	}
}

// Health checks if the database file is usable.
func (s *SQLite) Health(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}
