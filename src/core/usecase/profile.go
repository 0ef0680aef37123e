package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"neuroforge/src/core/domain"
	"neuroforge/src/core/ports"
)

// maxDisplayNameLength is counted in characters, matching the request binding.
const maxDisplayNameLength = 64

// ProfileService handles player profile registration and lookup.
type ProfileService struct {
	repo        ports.ProfileRepository
	log         *slog.Logger
	startingElo int
	now         func() time.Time
}

// NewProfileService creates a ProfileService. New profiles start at startingElo;
// a non-positive value falls back to domain.DefaultStartingElo.
func NewProfileService(repo ports.ProfileRepository, log *slog.Logger, startingElo int) *ProfileService {
	if startingElo <= 0 {
		startingElo = domain.DefaultStartingElo
	}
	return &ProfileService{
		repo:        repo,
		log:         log,
		startingElo: startingElo,
		now:         time.Now,
	}
}

// Register creates the profile of userID, or returns the existing one.
// The bool reports whether a new profile was created.
func (s *ProfileService) Register(ctx context.Context, userID, displayName string) (*domain.Profile, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, false, domain.NewUnauthorizedError("X-User-Id header is required")
	}
	displayName = strings.TrimSpace(displayName)
	if utf8.RuneCountInString(displayName) > maxDisplayNameLength {
		return nil, false, domain.NewValidationError("display_name", "must be at most 64 characters")
	}

	p := domain.NewProfile(userID, displayName, s.now())
	p.EloRating = s.startingElo

	created, err := s.repo.CreateProfile(ctx, p)
	if err == nil {
		s.log.Info("profile registered", "user_id", userID)
		return created, true, nil
	}
	if !domain.IsAlreadyExists(err) {
		return nil, false, err
	}

	existing, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Get returns the profile of userID.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.NewUnauthorizedError("X-User-Id header is required")
	}
	return s.repo.GetProfile(ctx, userID)
}

// MatchHistory returns the stored summaries of userID, newest last.
func (s *ProfileService) MatchHistory(ctx context.Context, userID string) ([]domain.MatchSummary, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.MatchHistory == nil {
		return []domain.MatchSummary{}, nil
	}
	return p.MatchHistory, nil
}

// EloPurchaseResult is a completed credit-for-rating exchange.
type EloPurchaseResult struct {
	Purchase domain.EloPurchase
	Profile  *domain.Profile
}

// BuyElo spends credits of userID's balance on rating points. The balance is
// checked and debited inside one profile update, so rewards settling at the same
// time are never lost.
func (s *ProfileService) BuyElo(ctx context.Context, userID string, credits int) (*EloPurchaseResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.NewUnauthorizedError("X-User-Id header is required")
	}

	at := s.now()
	var purchase domain.EloPurchase
	updated, err := s.repo.UpdateProfile(ctx, userID, func(p *domain.Profile) error {
		var err error
		purchase, err = domain.BuyElo(p, credits, at)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("elo purchased",
		"user_id", userID,
		"credits_spent", purchase.CreditsSpent,
		"elo_gained", purchase.EloGained,
	)
	return &EloPurchaseResult{Purchase: purchase, Profile: updated}, nil
}
