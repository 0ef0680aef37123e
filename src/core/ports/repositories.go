// Package ports defines interfaces (ports) that connect core domain to infrastructure.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern.
//
// Ports are defined here in the core layer, while implementations (adapters)
// live in src/infra/repo and src/app/realtime. The core never depends on them.
package ports

import (
	"context"

	"neuroforge/src/core/domain"
)

// Repository is the base interface for all repositories.
type Repository interface {
	// Health checks if the underlying storage is reachable.
	Health(ctx context.Context) error
}

// ProfileMutation edits a profile in place inside ProfileRepository.UpdateProfile.
// Returning an error aborts the write.
type ProfileMutation func(p *domain.Profile) error

// ProfileRepository persists player profiles.
type ProfileRepository interface {
	Repository

	// CreateProfile inserts p. It returns an ErrAlreadyExists domain error when the
	// user already has a profile.
	CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error)

	// GetProfile returns the profile of userID or an ErrNotFound domain error.
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)

	// UpdateProfile reads the current profile, applies mutate and writes the result
	// as one atomic unit: concurrent updates of the same profile are serialized and
	// none is lost. The stored version is incremented on every successful write.
	UpdateProfile(ctx context.Context, userID string, mutate ProfileMutation) (*domain.Profile, error)
}
