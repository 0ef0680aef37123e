package dto

import (
	"time"

	"neuroforge/src/core/domain"
	"neuroforge/src/core/ports"
	"neuroforge/src/core/usecase"
)

// CreateSessionRequest is the payload for POST /v1/sessions.
type CreateSessionRequest struct {
	GameType string `json:"game_type" binding:"required"`
}

// SubmitAnswerRequest is the payload for POST /v1/sessions/:session_id/answers.
type SubmitAnswerRequest struct {
	Answer string `json:"answer"`
}

// RegisterProfileRequest is the payload for POST /v1/profiles.
type RegisterProfileRequest struct {
	DisplayName string `json:"display_name" binding:"max=64"`
}

// BuyEloRequest is the payload for POST /v1/profiles/me/elo.
type BuyEloRequest struct {
	Credits int `json:"credits"`
}

// GameResponse describes one playable mode.
type GameResponse struct {
	GameType              string `json:"game_type"`
	ModeName              string `json:"mode_name"`
	TotalRounds           int    `json:"total_rounds"`
	RoundTimeLimitSeconds int    `json:"round_time_limit_seconds"`
	CreditDivisor         int    `json:"credit_divisor"`
}

func GamesFromDomain(specs []domain.GameSpec) []GameResponse {
	out := make([]GameResponse, 0, len(specs))
	for _, g := range specs {
		out = append(out, GameResponse{
			GameType:              string(g.Type),
			ModeName:              g.ModeName,
			TotalRounds:           g.TotalRounds,
			RoundTimeLimitSeconds: g.RoundTimeLimitSeconds,
			CreditDivisor:         g.CreditDivisor,
		})
	}
	return out
}

// QuestionResponse is the current question without its answer.
type QuestionResponse struct {
	Text         string   `json:"text"`
	QuestionType string   `json:"question_type"`
	SourceLang   string   `json:"source_lang,omitempty"`
	TargetLang   string   `json:"target_lang,omitempty"`
	Options      []string `json:"options,omitempty"`
}

// SessionResponse is the public snapshot of a session.
type SessionResponse struct {
	ID                    string               `json:"id"`
	UserID                string               `json:"user_id,omitempty"`
	GameType              string               `json:"game_type"`
	ModeName              string               `json:"mode_name,omitempty"`
	Status                string               `json:"status"`
	GameState             string               `json:"game_state"`
	TotalRounds           int                  `json:"total_rounds"`
	CurrentRound          int                  `json:"current_round"`
	Score                 int                  `json:"score"`
	RoundTimeLimitSeconds int                  `json:"round_time_limit_seconds"`
	RemainingSeconds      int                  `json:"remaining_seconds"`
	RoundStartedAt        *time.Time           `json:"round_started_at,omitempty"`
	CurrentQuestion       *QuestionResponse    `json:"current_question,omitempty"`
	RoundHistory          []domain.RoundResult `json:"round_history"`
	RewardsProcessed      bool                 `json:"rewards_processed"`
}

func SessionFromDomain(s *domain.Session, remaining int, rewardsProcessed bool) SessionResponse {
	out := SessionResponse{
		ID:                    s.ID,
		UserID:                s.UserID,
		GameType:              string(s.GameType),
		ModeName:              s.ModeName,
		Status:                string(s.Status),
		GameState:             s.GameState,
		TotalRounds:           s.TotalRounds,
		CurrentRound:          s.CurrentRound,
		Score:                 s.Score,
		RoundTimeLimitSeconds: s.RoundTimeLimitSeconds,
		RemainingSeconds:      remaining,
		RoundHistory:          s.RoundHistory,
		RewardsProcessed:      rewardsProcessed,
	}
	if out.RoundHistory == nil {
		out.RoundHistory = []domain.RoundResult{}
	}
	if !s.RoundStartedAt.IsZero() {
		started := s.RoundStartedAt
		out.RoundStartedAt = &started
	}
	if q, ok := s.CurrentQuestion(); ok {
		out.CurrentQuestion = &QuestionResponse{
			Text:         q.Text,
			QuestionType: string(q.QuestionType),
			SourceLang:   q.SourceLang,
			TargetLang:   q.TargetLang,
			Options:      q.Options,
		}
	}
	return out
}

func SessionFromView(v *usecase.SessionView) SessionResponse {
	return SessionFromDomain(&v.Session, v.RemainingSeconds, v.RewardsProcessed)
}

// RewardsResponse reports a settlement attempt.
type RewardsResponse struct {
	Status          string               `json:"status"`
	CreditsEarned   int                  `json:"credits_earned,omitempty"`
	ScorePercentage float64              `json:"score_percentage,omitempty"`
	EloChange       int                  `json:"elo_change,omitempty"`
	Match           *domain.MatchSummary `json:"match,omitempty"`
	Profile         *ProfileResponse     `json:"profile,omitempty"`
	Error           string               `json:"error,omitempty"`
}

func RewardsFromOutcome(o *usecase.RewardOutcome) *RewardsResponse {
	if o == nil {
		return nil
	}
	out := &RewardsResponse{Status: string(o.Status), Error: o.Error}
	if st := o.Settlement; st != nil {
		out.CreditsEarned = st.CreditsEarned
		out.ScorePercentage = st.ScorePercentage
		out.EloChange = st.EloChange
		summary := st.Summary
		out.Match = &summary
		if st.Profile != nil {
			p := ProfileFromDomain(st.Profile)
			out.Profile = &p
		}
	}
	return out
}

// TransitionResponse wraps start and answer results.
type TransitionResponse struct {
	Accepted bool                `json:"accepted"`
	Round    *domain.RoundResult `json:"round,omitempty"`
	Session  SessionResponse     `json:"session"`
	Rewards  *RewardsResponse    `json:"rewards,omitempty"`
}

// ProfileResponse is the public view of a profile.
type ProfileResponse struct {
	UserID        string    `json:"user_id"`
	DisplayName   string    `json:"display_name,omitempty"`
	CloudCredits  int       `json:"cloud_credits"`
	EloRating     int       `json:"elo_rating"`
	MatchesPlayed int       `json:"matches_played"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func ProfileFromDomain(p *domain.Profile) ProfileResponse {
	return ProfileResponse{
		UserID:        p.UserID,
		DisplayName:   p.DisplayName,
		CloudCredits:  p.CloudCredits,
		EloRating:     p.EloRating,
		MatchesPlayed: p.MatchesPlayed,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// EloPurchaseResponse reports a credit-for-rating exchange.
type EloPurchaseResponse struct {
	CreditsSpent int             `json:"credits_spent"`
	EloGained    int             `json:"elo_gained"`
	Profile      ProfileResponse `json:"profile"`
}

func EloPurchaseFromResult(r *usecase.EloPurchaseResult) EloPurchaseResponse {
	return EloPurchaseResponse{
		CreditsSpent: r.Purchase.CreditsSpent,
		EloGained:    r.Purchase.EloGained,
		Profile:      ProfileFromDomain(r.Profile),
	}
}

// EventMessage is the websocket frame for a session event.
type EventMessage struct {
	Type             string              `json:"type"`
	SessionID        string              `json:"session_id"`
	At               time.Time           `json:"at"`
	RemainingSeconds int                 `json:"remaining_seconds"`
	Session          *SessionResponse    `json:"session,omitempty"`
	Round            *domain.RoundResult `json:"round,omitempty"`
	Rewards          *RewardsResponse    `json:"rewards,omitempty"`
	Error            string              `json:"error,omitempty"`
}

func EventFromPort(e ports.SessionEvent) EventMessage {
	out := EventMessage{
		Type:             string(e.Type),
		SessionID:        e.SessionID,
		At:               e.At,
		RemainingSeconds: e.RemainingSeconds,
		Round:            e.Round,
		Error:            e.Error,
	}
	if e.Session != nil {
		s := SessionFromDomain(e.Session, e.RemainingSeconds, e.Session.RewardsProcessed())
		out.Session = &s
	}
	if e.Settlement != nil {
		out.Rewards = RewardsFromOutcome(&usecase.RewardOutcome{
			Status:     usecase.RewardRecorded,
			Settlement: e.Settlement,
		})
	}
	return out
}
