package domain

import (
	"fmt"
	"math"
	"time"
)

// Settlement is what one finished session contributes to a profile.
type Settlement struct {
	CreditsEarned   int          `json:"credits_earned"`
	ScorePercentage float64      `json:"score_percentage"`
	EloChange       int          `json:"elo_change"`
	Summary         MatchSummary `json:"match_summary"`
	Profile         *Profile     `json:"profile"`
}

// CreditsFor converts points to credits at the mode's exchange rate.
func CreditsFor(score, divisor int) int {
	if divisor <= 0 {
		divisor = 1
	}
	if score <= 0 {
		return 0
	}
	return score / divisor
}

// ScorePercentage is 100*score/max, clamped to [0,100] and not rounded.
// Settle rounds it to one decimal before banding.
func ScorePercentage(score, totalRounds int) float64 {
	maxScore := totalRounds * PointsPerCorrectAnswer
	if maxScore <= 0 {
		return 0
	}
	pct := 100 * float64(score) / float64(maxScore)
	return math.Min(100, math.Max(0, pct))
}

// EloChangeFor maps a score percentage to a rating delta.
// [20,40) deliberately yields 0.
func EloChangeFor(pct float64) int {
	switch {
	case pct >= 70:
		return 10
	case pct >= 40:
		return 5
	case pct < 20:
		return -5
	default:
		return 0
	}
}

// ResultFor labels a match by the sign of its rating delta.
func ResultFor(eloChange int) MatchResult {
	switch {
	case eloChange > 0:
		return ResultVictory
	case eloChange < 0:
		return ResultDefeat
	default:
		return ResultCompleted
	}
}

// AppendMatchHistory appends m and evicts from the front until at most limit remain.
// The input slice is not modified.
func AppendMatchHistory(history []MatchSummary, m MatchSummary, limit int) []MatchSummary {
	out := make([]MatchSummary, 0, len(history)+1)
	out = append(out, history...)
	out = append(out, m)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Settle computes the settlement of a GAME_OVER session against profile p.
// It ignores the one-shot guard and does not modify s or p; the returned
// Settlement carries an updated copy of p.
func Settle(s *Session, p *Profile, matchID string, at time.Time) (*Settlement, bool) {
	if s == nil || p == nil || s.Status != StatusGameOver {
		return nil, false
	}

	credits := CreditsFor(s.Score, s.CreditDivisor)
	pct := math.Round(ScorePercentage(s.Score, s.TotalRounds)*10) / 10
	delta := EloChangeFor(pct)

	rounds := make([]MatchRound, 0, len(s.RoundHistory))
	for _, r := range s.RoundHistory {
		rounds = append(rounds, MatchRound{
			Round:         r.RoundNumber,
			QuestionText:  r.QuestionText,
			PlayerAnswer:  r.SubmittedAnswer,
			CorrectAnswer: r.CorrectAnswer,
			Score:         r.PointsAwarded,
			IsCorrect:     r.IsCorrect,
		})
	}

	summary := MatchSummary{
		ID:              matchID,
		Date:            at,
		Mode:            s.ModeName,
		FinalScore:      s.Score,
		Result:          ResultFor(delta),
		Rounds:          rounds,
		EloChange:       delta,
		ScorePercentage: pct,
	}

	updated := p.Clone()
	updated.CloudCredits += credits
	updated.EloRating = max(0, updated.EloRating+delta)
	updated.MatchesPlayed++
	updated.MatchHistory = AppendMatchHistory(p.MatchHistory, summary, MaxMatchHistory)
	updated.UpdatedAt = at

	return &Settlement{
		CreditsEarned:   credits,
		ScorePercentage: summary.ScorePercentage,
		EloChange:       delta,
		Summary:         summary,
		Profile:         updated,
	}, true
}

// Finalize settles s against p once per run. Later calls, calls before GAME_OVER
// and calls without a profile report false and leave everything untouched.
func (s *Session) Finalize(p *Profile, matchID string, at time.Time) (*Settlement, bool) {
	if s.rewardsProcessed {
		return nil, false
	}
	res, ok := Settle(s, p, matchID, at)
	if !ok {
		return nil, false
	}
	s.rewardsProcessed = true
	return res, true
}

// CreditsPerEloPoint is the exchange rate of BuyElo: half a rating point per credit.
const CreditsPerEloPoint = 2

// EloPurchase is the result of exchanging credits for rating.
type EloPurchase struct {
	CreditsSpent int `json:"credits_spent"`
	EloGained    int `json:"elo_gained"`
}

// BuyElo exchanges up to credits of p's balance for whole rating points and
// applies the result to p. Only the credits that buy whole points are spent.
func BuyElo(p *Profile, credits int, at time.Time) (EloPurchase, error) {
	if credits <= 0 {
		return EloPurchase{}, NewValidationError("credits", "must be positive")
	}
	if credits > p.CloudCredits {
		return EloPurchase{}, NewValidationError("credits", fmt.Sprintf("exceeds the balance of %d credits", p.CloudCredits))
	}
	gained := credits / CreditsPerEloPoint
	if gained == 0 {
		return EloPurchase{}, NewValidationError("credits", fmt.Sprintf("at least %d credits buy one rating point", CreditsPerEloPoint))
	}

	purchase := EloPurchase{CreditsSpent: gained * CreditsPerEloPoint, EloGained: gained}
	p.CloudCredits -= purchase.CreditsSpent
	p.EloRating += purchase.EloGained
	p.UpdatedAt = at
	return purchase, nil
}
