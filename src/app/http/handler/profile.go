package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"neuroforge/src/app/http/dto"
	"neuroforge/src/app/http/response"
	"neuroforge/src/app/middleware"
	"neuroforge/src/core/usecase"
)

// ProfileHandler handles player profile endpoints.
type ProfileHandler struct {
	profileService *usecase.ProfileService
}

func NewProfileHandler(profileService *usecase.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// Register creates the caller's profile, or returns it when it already exists.
// POST /v1/profiles
func (h *ProfileHandler) Register(c *gin.Context) {
	var req dto.RegisterProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid payload", middleware.GetRequestID(c))
		return
	}

	p, created, err := h.profileService.Register(c.Request.Context(), middleware.GetPlayerID(c), req.DisplayName)
	if err != nil {
		c.Error(err)
		response.FromDomainError(c, err, middleware.GetRequestID(c))
		return
	}

	if created {
		response.Created(c, dto.ProfileFromDomain(p))
		return
	}
	response.OK(c, dto.ProfileFromDomain(p))
}

// Me returns the caller's profile.
// GET /v1/profiles/me
func (h *ProfileHandler) Me(c *gin.Context) {
	p, err := h.profileService.Get(c.Request.Context(), middleware.GetPlayerID(c))
	if err != nil {
		response.FromDomainError(c, err, middleware.GetRequestID(c))
		return
	}
	response.OK(c, dto.ProfileFromDomain(p))
}

// Matches returns the caller's stored match summaries, oldest first.
// GET /v1/profiles/me/matches
func (h *ProfileHandler) Matches(c *gin.Context) {
	history, err := h.profileService.MatchHistory(c.Request.Context(), middleware.GetPlayerID(c))
	if err != nil {
		response.FromDomainError(c, err, middleware.GetRequestID(c))
		return
	}
	response.OK(c, history)
}

// BuyElo exchanges the caller's credits for rating points.
// POST /v1/profiles/me/elo
func (h *ProfileHandler) BuyElo(c *gin.Context) {
	var req dto.BuyEloRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid payload", middleware.GetRequestID(c))
		return
	}

	res, err := h.profileService.BuyElo(c.Request.Context(), middleware.GetPlayerID(c), req.Credits)
	if err != nil {
		response.FromDomainError(c, err, middleware.GetRequestID(c))
		return
	}
	response.OK(c, dto.EloPurchaseFromResult(res))
}
