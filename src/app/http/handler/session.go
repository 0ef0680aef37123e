package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"neuroforge/src/app/http/dto"
	"neuroforge/src/app/http/response"
	"neuroforge/src/app/middleware"
	"neuroforge/src/app/realtime"
	"neuroforge/src/core/domain"
	"neuroforge/src/core/usecase"
)

// SessionHandler handles game session endpoints.
type SessionHandler struct {
	sessionService *usecase.SessionService
	hub            *realtime.Hub
	log            *slog.Logger
}

func NewSessionHandler(sessionService *usecase.SessionService, hub *realtime.Hub, log *slog.Logger) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, hub: hub, log: log}
}

// Create hosts a new session. Unknown game types still produce a session, in the
// ERROR state.
// POST /v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "game_type", "game_type is required", middleware.GetRequestID(c))
		return
	}

	view, err := h.sessionService.Create(c.Request.Context(), middleware.GetPlayerID(c), req.GameType)
	if err != nil {
		c.Error(err)
		response.FromDomainError(c, err, middleware.GetRequestID(c))
		return
	}
	response.Created(c, dto.SessionFromView(view))
}

// Get returns the session snapshot.
// GET /v1/sessions/:session_id
func (h *SessionHandler) Get(c *gin.Context) {
	view, err := h.sessionService.Get(c.Request.Context(), middleware.GetPlayerID(c), c.Param("session_id"))
	if err != nil {
		response.FromDomainError(c, err, middleware.GetRequestID(c))
		return
	}
	response.OK(c, dto.SessionFromView(view))
}

// Start begins the first round, or replays a finished session.
// POST /v1/sessions/:session_id/start
func (h *SessionHandler) Start(c *gin.Context) {
	view, accepted, err := h.sessionService.Start(c.Request.Context(), middleware.GetPlayerID(c), c.Param("session_id"))
	if err != nil {
		response.FromDomainError(c, err, middleware.GetRequestID(c))
		return
	}
	response.OK(c, dto.TransitionResponse{
		Accepted: accepted,
		Session:  dto.SessionFromView(view),
	})
}

// Answer submits an answer for the round in progress.
// POST /v1/sessions/:session_id/answers
func (h *SessionHandler) Answer(c *gin.Context) {
	var req dto.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid payload", middleware.GetRequestID(c))
		return
	}

	res, err := h.sessionService.SubmitAnswer(c.Request.Context(), middleware.GetPlayerID(c), c.Param("session_id"), req.Answer)
	if err != nil {
		response.FromDomainError(c, err, middleware.GetRequestID(c))
		return
	}
	response.OK(c, dto.TransitionResponse{
		Accepted: res.Accepted,
		Round:    res.Round,
		Session:  dto.SessionFromView(&res.View),
		Rewards:  dto.RewardsFromOutcome(res.Rewards),
	})
}

// Finalize settles a finished session; repeated calls never pay twice.
// POST /v1/sessions/:session_id/finalize
func (h *SessionHandler) Finalize(c *gin.Context) {
	out, err := h.sessionService.Finalize(c.Request.Context(), middleware.GetPlayerID(c), c.Param("session_id"))
	if err != nil {
		c.Error(err)
		response.FromDomainError(c, err, middleware.GetRequestID(c))
		return
	}
	response.OK(c, dto.RewardsFromOutcome(out))
}

// Discard stops hosting the session without settling it.
// DELETE /v1/sessions/:session_id
func (h *SessionHandler) Discard(c *gin.Context) {
	if err := h.sessionService.Discard(c.Request.Context(), middleware.GetPlayerID(c), c.Param("session_id")); err != nil {
		response.FromDomainError(c, err, middleware.GetRequestID(c))
		return
	}
	response.NoContent(c)
}

// Events upgrades to a websocket streaming the session's events. Browsers cannot
// set headers on the handshake, so the player may also come from ?user_id=.
// GET /v1/sessions/:session_id/events
func (h *SessionHandler) Events(c *gin.Context) {
	player := middleware.GetPlayerID(c)
	if player == "" {
		player = c.Query("user_id")
	}
	sessionID := c.Param("session_id")

	initial, err := h.sessionService.Snapshot(c.Request.Context(), player, sessionID)
	if err != nil {
		response.FromDomainError(c, err, middleware.GetRequestID(c))
		return
	}

	if err := h.hub.Serve(c.Writer, c.Request, sessionID, initial); err != nil {
		// The upgrader has already written the HTTP error.
		h.log.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
		c.Abort()
		return
	}

	// A discard that landed before the client registered was never delivered to it.
	if _, err := h.sessionService.Get(c.Request.Context(), player, sessionID); domain.IsNotFound(err) {
		h.hub.Disconnect(sessionID)
	}
}
