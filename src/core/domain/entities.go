package domain

import "time"

// QuestionType tells the grader how to compare answers.
type QuestionType string

const (
	QuestionTranslation QuestionType = "TRANSLATION"
	QuestionMath        QuestionType = "MATH"
	QuestionTextInput   QuestionType = "TEXT_INPUT"
)

// Status represents the lifecycle of a session.
type Status string

const (
	StatusNotStarted      Status = "NOT_STARTED"
	StatusWaitingPlayers  Status = "WAITING_FOR_PLAYERS"
	StatusRoundInProgress Status = "ROUND_IN_PROGRESS"
	StatusGameOver        Status = "GAME_OVER"
	StatusError           Status = "ERROR"
)

// GameStateUnknownGameType is the detail recorded on sessions built for an unknown mode.
const GameStateUnknownGameType = "ERROR_UNKNOWN_GAMETYPE"

// MatchResult is the outcome label stored in match history.
type MatchResult string

const (
	ResultVictory   MatchResult = "Victory"
	ResultDefeat    MatchResult = "Defeat"
	ResultCompleted MatchResult = "Completed"
)

// Question is the prompt of one round. It is never modified after generation.
type Question struct {
	Text          string       `json:"text"`
	QuestionType  QuestionType `json:"question_type"`
	CorrectAnswer string       `json:"correct_answer"`
	SourceLang    string       `json:"source_lang,omitempty"`
	TargetLang    string       `json:"target_lang,omitempty"`
	Options       []string     `json:"options,omitempty"`
}

// RoundResult records a completed round.
type RoundResult struct {
	RoundNumber     int          `json:"round_number"`
	QuestionText    string       `json:"question_text"`
	SubmittedAnswer string       `json:"submitted_answer"`
	CorrectAnswer   string       `json:"correct_answer"`
	PointsAwarded   int          `json:"points_awarded"`
	IsCorrect       bool         `json:"is_correct"`
	QuestionType    QuestionType `json:"question_type"`
	TimedOut        bool         `json:"timed_out"`
}

// MatchRound is the display copy of a RoundResult kept in match history.
type MatchRound struct {
	Round         int    `json:"round"`
	QuestionText  string `json:"question_text"`
	PlayerAnswer  string `json:"player_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Score         int    `json:"score"`
	IsCorrect     bool   `json:"is_correct"`
}

// MatchSummary is the persisted record of one finished session.
type MatchSummary struct {
	ID              string       `json:"id"`
	Date            time.Time    `json:"date"`
	Mode            string       `json:"mode"`
	FinalScore      int          `json:"final_score"`
	Result          MatchResult  `json:"result"`
	Rounds          []MatchRound `json:"rounds"`
	EloChange       int          `json:"elo_change"`
	ScorePercentage float64      `json:"score_percentage"`
}

// Profile is the persisted per-player record.
type Profile struct {
	UserID        string         `json:"user_id"`
	DisplayName   string         `json:"display_name"`
	CloudCredits  int            `json:"cloud_credits"`
	EloRating     int            `json:"elo_rating"`
	MatchesPlayed int            `json:"matches_played"`
	MatchHistory  []MatchSummary `json:"match_history"`
	Version       int64          `json:"version"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewProfile returns a profile with the starting balance and rating.
func NewProfile(userID, displayName string, now time.Time) *Profile {
	return &Profile{
		UserID:       userID,
		DisplayName:  displayName,
		EloRating:    DefaultStartingElo,
		MatchHistory: []MatchSummary{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone returns a deep copy so callers can mutate it without aliasing the history.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	out.MatchHistory = make([]MatchSummary, len(p.MatchHistory))
	for i, m := range p.MatchHistory {
		m.Rounds = append([]MatchRound(nil), m.Rounds...)
		out.MatchHistory[i] = m
	}
	return &out
}
