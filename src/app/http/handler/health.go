// Package handler contains the gin handlers of the minigame API. Handlers bind
// requests, call one use case method and map the result or domain error onto
// the response envelope.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"neuroforge/src/core/usecase"
)

// HealthHandler serves liveness and readiness checks.
type HealthHandler struct {
	healthService *usecase.HealthService
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(healthService *usecase.HealthService) *HealthHandler {
	return &HealthHandler{healthService: healthService}
}

// HealthResponse is the response for the liveness endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// Health reports that the process is serving. It never touches the store.
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// DetailedHealth reports the store and hosted sessions. A degraded store
// answers 503.
// GET /health/detailed
func (h *HealthHandler) DetailedHealth(c *gin.Context) {
	status := h.healthService.Check(c.Request.Context())
	code := http.StatusOK
	if status.Status == usecase.HealthDegraded {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
