package domain

import (
	"math/rand/v2"
	"time"
)

// Session is the complete state of one solo game.
//
// Fields are exported for snapshots and serialization; mutate a session only
// through Start, SubmitAnswer and Expire so the round invariants hold:
//
//	len(RoundHistory) == CurrentRound-1   while ROUND_IN_PROGRESS
//	len(RoundHistory) == TotalRounds      at GAME_OVER
//	Score == sum(RoundHistory[i].PointsAwarded)
type Session struct {
	ID                    string        `json:"id"`
	UserID                string        `json:"user_id,omitempty"`
	GameType              GameType      `json:"game_type"`
	ModeName              string        `json:"mode_name,omitempty"`
	TotalRounds           int           `json:"total_rounds"`
	CurrentRound          int           `json:"current_round"`
	CurrentPhraseIndex    int           `json:"current_phrase_index"`
	Questions             []Question    `json:"questions"`
	Score                 int           `json:"score"`
	RoundHistory          []RoundResult `json:"round_history"`
	Status                Status        `json:"status"`
	GameState             string        `json:"game_state"`
	RoundTimeLimitSeconds int           `json:"round_time_limit_seconds"`
	RoundStartedAt        time.Time     `json:"round_started_at"`
	CreditDivisor         int           `json:"-"`

	rewardsProcessed bool
}

// NewSession seeds a session for t. A nil rng falls back to a randomly seeded source.
// Unknown modes produce a session in StatusError with no questions; callers must
// check Status before starting it.
func NewSession(t GameType, rng *rand.Rand) *Session {
	spec, ok := LookupGame(t)
	if !ok {
		return &Session{
			GameType:           t,
			CurrentPhraseIndex: -1,
			Status:             StatusError,
			GameState:          GameStateUnknownGameType,
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	questions, _ := GenerateQuestions(t, rng)

	return &Session{
		GameType:              spec.Type,
		ModeName:              spec.ModeName,
		TotalRounds:           spec.TotalRounds,
		CurrentPhraseIndex:    -1,
		Questions:             questions,
		RoundHistory:          []RoundResult{},
		Status:                StatusNotStarted,
		GameState:             string(StatusNotStarted),
		RoundTimeLimitSeconds: spec.RoundTimeLimitSeconds,
		CreditDivisor:         spec.CreditDivisor,
	}
}

// Start begins round one. It is valid from NOT_STARTED, WAITING_FOR_PLAYERS and
// GAME_OVER (play again, same questions, reward guard cleared); otherwise it
// reports false and changes nothing.
func (s *Session) Start(now time.Time) bool {
	switch s.Status {
	case StatusNotStarted, StatusWaitingPlayers, StatusGameOver:
	default:
		return false
	}
	if len(s.Questions) == 0 {
		return false
	}

	s.CurrentRound = 1
	s.CurrentPhraseIndex = 0
	s.Score = 0
	s.RoundHistory = []RoundResult{}
	s.RoundStartedAt = now
	s.setStatus(StatusRoundInProgress)
	s.rewardsProcessed = false
	return true
}

// CurrentQuestion returns the question of the round in progress.
func (s *Session) CurrentQuestion() (Question, bool) {
	if s.Status != StatusRoundInProgress {
		return Question{}, false
	}
	if s.CurrentPhraseIndex < 0 || s.CurrentPhraseIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentPhraseIndex], true
}

// SubmitAnswer grades raw against the current question and closes the round.
// Blank answers and calls outside ROUND_IN_PROGRESS are ignored (false).
// An answer arriving after the round deadline closes the round as a timeout.
func (s *Session) SubmitAnswer(raw string, now time.Time) (RoundResult, bool) {
	q, ok := s.CurrentQuestion()
	if !ok || isBlank(raw) {
		return RoundResult{}, false
	}
	if s.RemainingSeconds(now) == 0 {
		return s.closeRound(q, raw, false, true, now), true
	}
	return s.closeRound(q, raw, Grade(q, raw), false, now), true
}

// Expire closes round as a timeout with 0 points. It is ignored unless round is
// the round currently in progress, so a stale timer cannot close a later round.
func (s *Session) Expire(round int, now time.Time) (RoundResult, bool) {
	q, ok := s.CurrentQuestion()
	if !ok || round != s.CurrentRound {
		return RoundResult{}, false
	}
	return s.closeRound(q, "", false, true, now), true
}

func (s *Session) closeRound(q Question, answer string, correct, timedOut bool, now time.Time) RoundResult {
	points := 0
	if correct {
		points = PointsPerCorrectAnswer
	}
	res := RoundResult{
		RoundNumber:     s.CurrentRound,
		QuestionText:    q.Text,
		SubmittedAnswer: answer,
		CorrectAnswer:   q.CorrectAnswer,
		PointsAwarded:   points,
		IsCorrect:       correct,
		QuestionType:    q.QuestionType,
		TimedOut:        timedOut,
	}
	s.RoundHistory = append(s.RoundHistory, res)
	s.Score += points

	if s.CurrentRound >= s.TotalRounds {
		s.setStatus(StatusGameOver)
		return res
	}
	s.CurrentRound++
	s.CurrentPhraseIndex++
	s.RoundStartedAt = now
	return res
}

// Deadline is the instant the current round times out.
func (s *Session) Deadline() time.Time {
	return s.RoundStartedAt.Add(time.Duration(s.RoundTimeLimitSeconds) * time.Second)
}

// RemainingSeconds is derived from RoundStartedAt rather than decremented, so a
// suspended client never drifts by more than one tick.
func (s *Session) RemainingSeconds(now time.Time) int {
	if s.Status != StatusRoundInProgress {
		return 0
	}
	elapsed := int(now.Sub(s.RoundStartedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := s.RoundTimeLimitSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsTerminal reports whether no round can be played without a fresh Start.
func (s *Session) IsTerminal() bool {
	return s.Status == StatusGameOver || s.Status == StatusError
}

// RewardsProcessed reports whether this run has already been settled.
func (s *Session) RewardsProcessed() bool {
	return s.rewardsProcessed
}

// MarkRewardsProcessed consumes the one-shot settlement guard.
func (s *Session) MarkRewardsProcessed() {
	s.rewardsProcessed = true
}

// Snapshot returns a deep copy safe to hand to other goroutines.
func (s *Session) Snapshot() Session {
	out := *s
	out.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = append([]string(nil), q.Options...)
		out.Questions[i] = q
	}
	out.RoundHistory = append([]RoundResult{}, s.RoundHistory...)
	return out
}

func (s *Session) setStatus(st Status) {
	s.Status = st
	s.GameState = string(st)
}
