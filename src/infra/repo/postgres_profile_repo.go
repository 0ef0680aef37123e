package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"neuroforge/src/core/domain"
	"neuroforge/src/core/ports"
	"neuroforge/src/infra/db"
)

// PostgresProfileRepository implements ProfileRepository using pgx.
type PostgresProfileRepository struct {
	pg   *db.Postgres
	pool *pgxpool.Pool
	log  *slog.Logger
}

var _ ports.ProfileRepository = (*PostgresProfileRepository)(nil)

// NewPostgresProfileRepository constructs a repository backed by Postgres.
func NewPostgresProfileRepository(pg *db.Postgres, log *slog.Logger) *PostgresProfileRepository {
	return &PostgresProfileRepository{
		pg:   pg,
		pool: pg.Pool,
		log:  log,
	}
}

func (r *PostgresProfileRepository) Health(ctx context.Context) error {
	return r.pg.Health(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

const profileColumns = `user_id, display_name, cloud_credits, elo_rating, matches_played, match_history, version, created_at, updated_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	var history []byte
	if err := row.Scan(
		&p.UserID, &p.DisplayName, &p.CloudCredits, &p.EloRating, &p.MatchesPlayed,
		&history, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := decodeHistory(history, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresProfileRepository) CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	history, err := encodeHistory(p.MatchHistory)
	if err != nil {
		return nil, err
	}
	const q = `
		INSERT INTO profiles (user_id, display_name, cloud_credits, elo_rating, matches_played, match_history, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $7)
		RETURNING ` + profileColumns
	created, err := scanProfile(r.pool.QueryRow(ctx, q,
		p.UserID, p.DisplayName, p.CloudCredits, p.EloRating, p.MatchesPlayed, history, p.CreatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.NewAlreadyExistsError("profile")
		}
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return created, nil
}

func (r *PostgresProfileRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	p, err := scanProfile(r.pool.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("profile")
		}
		return nil, fmt.Errorf("select profile: %w", err)
	}
	return p, nil
}

// UpdateProfile locks the row for the duration of the transaction, so concurrent
// settlements of the same player queue up behind each other.
func (r *PostgresProfileRepository) UpdateProfile(ctx context.Context, userID string, mutate ports.ProfileMutation) (*domain.Profile, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	selectQ := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1 FOR UPDATE`
	current, err := scanProfile(tx.QueryRow(ctx, selectQ, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("profile")
		}
		return nil, fmt.Errorf("lock profile: %w", err)
	}

	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	history, err := encodeHistory(working.MatchHistory)
	if err != nil {
		return nil, err
	}

	updateQ := `
		UPDATE profiles
		SET display_name = $2,
			cloud_credits = $3,
			elo_rating = $4,
			matches_played = $5,
			match_history = $6,
			version = version + 1,
			updated_at = $7
		WHERE user_id = $1
		RETURNING ` + profileColumns
	updated, err := scanProfile(tx.QueryRow(ctx, updateQ,
		userID, working.DisplayName, working.CloudCredits, working.EloRating,
		working.MatchesPlayed, history, working.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.log.Debug("profile updated", "user_id", userID, "version", updated.Version)
	return updated, nil
}

func encodeHistory(history []domain.MatchSummary) ([]byte, error) {
	if history == nil {
		history = []domain.MatchSummary{}
	}
	b, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("encode match history: %w", err)
	}
	return b, nil
}

func decodeHistory(raw []byte, p *domain.Profile) error {
	p.MatchHistory = []domain.MatchSummary{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &p.MatchHistory); err != nil {
		return fmt.Errorf("decode match history: %w", err)
	}
	return nil
}
