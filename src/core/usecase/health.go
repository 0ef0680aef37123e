package usecase

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"neuroforge/src/core/ports"
)

// Overall health states reported by HealthService.Check.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// HealthService reports the health of the application and its store.
type HealthService struct {
	log      *slog.Logger
	store    ports.Repository
	sessions *SessionService
}

// NewHealthService creates a new HealthService. store and sessions may be nil.
func NewHealthService(log *slog.Logger, store ports.Repository, sessions *SessionService) *HealthService {
	return &HealthService{
		log:      log,
		store:    store,
		sessions: sessions,
	}
}

// HealthStatus represents the health of the application.
type HealthStatus struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Check performs a health check of all application components.
func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:     HealthOK,
		Components: make(map[string]ComponentHealth),
	}

	if s.store != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.store.Health(ctx); err != nil {
			s.log.Warn("store health check failed", "error", err)
			status.Status = HealthDegraded
			status.Components["store"] = ComponentHealth{
				Status:  "unhealthy",
				Message: err.Error(),
			}
		} else {
			status.Components["store"] = ComponentHealth{Status: "healthy"}
		}
	}

	if s.sessions != nil {
		status.Components["sessions"] = ComponentHealth{
			Status:  "healthy",
			Message: strconv.Itoa(s.sessions.Count()) + " hosted",
		}
	}

	return status
}
