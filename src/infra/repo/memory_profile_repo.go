package repo

import (
	"context"
	"sync"

	"neuroforge/src/core/domain"
	"neuroforge/src/core/ports"
)

// MemoryProfileRepository keeps profiles in a map guarded by one mutex.
type MemoryProfileRepository struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
}

var _ ports.ProfileRepository = (*MemoryProfileRepository)(nil)

// NewMemoryProfileRepository creates an empty store.
func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{profiles: make(map[string]*domain.Profile)}
}

func (r *MemoryProfileRepository) Health(ctx context.Context) error {
	return ctx.Err()
}

func (r *MemoryProfileRepository) CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[p.UserID]; ok {
		return nil, domain.NewAlreadyExistsError("profile")
	}
	stored := p.Clone()
	stored.Version = 1
	r.profiles[p.UserID] = stored
	return stored.Clone(), nil
}

func (r *MemoryProfileRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil, domain.NewNotFoundError("profile")
	}
	return p.Clone(), nil
}

func (r *MemoryProfileRepository) UpdateProfile(ctx context.Context, userID string, mutate ports.ProfileMutation) (*domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.profiles[userID]
	if !ok {
		return nil, domain.NewNotFoundError("profile")
	}
	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	working.UserID = current.UserID
	working.CreatedAt = current.CreatedAt
	working.Version = current.Version + 1
	r.profiles[userID] = working
	return working.Clone(), nil
}
