package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattn/go-sqlite3"

	"neuroforge/src/core/domain"
	"neuroforge/src/core/ports"
	"neuroforge/src/infra/db"
)

// maxUpdateAttempts bounds the compare-and-swap retries of UpdateProfile.
const maxUpdateAttempts = 5

// SQLiteProfileRepository implements ProfileRepository on a local SQLite file.
type SQLiteProfileRepository struct {
	store *db.SQLite
	db    *sql.DB
	log   *slog.Logger
}

var _ ports.ProfileRepository = (*SQLiteProfileRepository)(nil)

// NewSQLiteProfileRepository constructs a repository backed by SQLite.
func NewSQLiteProfileRepository(s *db.SQLite, log *slog.Logger) *SQLiteProfileRepository {
	return &SQLiteProfileRepository{store: s, db: s.DB, log: log}
}

func (r *SQLiteProfileRepository) Health(ctx context.Context) error {
	return r.store.Health(ctx)
}

func isSQLiteConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

func isSQLiteBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteProfile(row rowScanner) (*domain.Profile, error) {
	var p domain.Profile
	var history string
	if err := row.Scan(
		&p.UserID, &p.DisplayName, &p.CloudCredits, &p.EloRating, &p.MatchesPlayed,
		&history, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := decodeHistory([]byte(history), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SQLiteProfileRepository) CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	history, err := encodeHistory(p.MatchHistory)
	if err != nil {
		return nil, err
	}
	const q = `
		INSERT INTO profiles (user_id, display_name, cloud_credits, elo_rating, matches_played, match_history, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
	`
	created := p.CreatedAt.UTC()
	if _, err := r.db.ExecContext(ctx, q,
		p.UserID, p.DisplayName, p.CloudCredits, p.EloRating, p.MatchesPlayed, string(history), created, created,
	); err != nil {
		if isSQLiteConstraint(err) {
			return nil, domain.NewAlreadyExistsError("profile")
		}
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return r.GetProfile(ctx, p.UserID)
}

func (r *SQLiteProfileRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = ?`
	p, err := scanSQLiteProfile(r.db.QueryRowContext(ctx, q, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("profile")
		}
		return nil, fmt.Errorf("select profile: %w", err)
	}
	return p, nil
}

// UpdateProfile writes only if the row still carries the version that was read,
// retrying with a fresh read when another writer got there first.
func (r *SQLiteProfileRepository) UpdateProfile(ctx context.Context, userID string, mutate ports.ProfileMutation) (*domain.Profile, error) {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		updated, err := r.tryUpdate(ctx, userID, mutate)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, domain.ErrConflict) && !isSQLiteBusy(err) {
			return nil, err
		}
		r.log.Debug("profile version conflict, retrying", "user_id", userID, "attempt", attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 5 * time.Millisecond):
		}
	}
	return nil, domain.NewConflictError("profile is being updated concurrently")
}

func (r *SQLiteProfileRepository) tryUpdate(ctx context.Context, userID string, mutate ports.ProfileMutation) (*domain.Profile, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	selectQ := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = ?`
	current, err := scanSQLiteProfile(tx.QueryRowContext(ctx, selectQ, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("profile")
		}
		return nil, fmt.Errorf("select profile: %w", err)
	}

	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	history, err := encodeHistory(working.MatchHistory)
	if err != nil {
		return nil, err
	}

	const updateQ = `
		UPDATE profiles
		SET display_name = ?, cloud_credits = ?, elo_rating = ?, matches_played = ?,
			match_history = ?, version = version + 1, updated_at = ?
		WHERE user_id = ? AND version = ?
	`
	res, err := tx.ExecContext(ctx, updateQ,
		working.DisplayName, working.CloudCredits, working.EloRating, working.MatchesPlayed,
		string(history), working.UpdatedAt.UTC(), userID, current.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.NewConflictError("profile version changed")
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	working.Version = current.Version + 1
	working.UserID = current.UserID
	working.CreatedAt = current.CreatedAt
	working.UpdatedAt = working.UpdatedAt.UTC()
	return working, nil
}
