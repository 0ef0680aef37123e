package handler

import (
	"github.com/gin-gonic/gin"

	"neuroforge/src/app/http/dto"
	"neuroforge/src/app/http/response"
	"neuroforge/src/core/usecase"
)

// GameHandler lists the playable modes.
type GameHandler struct {
	sessionService *usecase.SessionService
}

func NewGameHandler(sessionService *usecase.SessionService) *GameHandler {
	return &GameHandler{sessionService: sessionService}
}

// List returns every game mode.
// GET /v1/games
func (h *GameHandler) List(c *gin.Context) {
	response.OK(c, dto.GamesFromDomain(h.sessionService.Games()))
}
