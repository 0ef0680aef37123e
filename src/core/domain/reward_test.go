package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrade(t *testing.T) {
	math15 := Question{Text: "7 + 8 = ?", QuestionType: QuestionMath, CorrectAnswer: "15"}
	hello := Question{Text: "Hello", QuestionType: QuestionTranslation, CorrectAnswer: "Привет"}
	saturn := Question{Text: "rings?", QuestionType: QuestionTextInput, CorrectAnswer: "Сатурн"}

	tests := []struct {
		name string
		q    Question
		raw  string
		want bool
	}{
		{"math exact", math15, "15", true},
		{"math float form", math15, "15.0", true},
		{"math padded", math15, " 15 ", true},
		{"math wrong", math15, "14", false},
		{"math malformed", math15, "fifteen", false},
		{"math trailing junk", math15, "15abc", false},
		{"translation exact", hello, "Привет", true},
		{"translation case and space", hello, " привет ", true},
		{"translation upper", hello, "ПРИВЕТ", true},
		{"translation wrong", hello, "Пока", false},
		{"text input", saturn, "сатурн", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Grade(tt.q, tt.raw))
		})
	}
}

func TestEloChangeFor_Bands(t *testing.T) {
	tests := []struct {
		pct  float64
		want int
	}{
		{100, 10},
		{70, 10},
		{69.9, 5},
		{40, 5},
		{39.9, 0},
		{35, 0},
		{20, 0},
		{19.9, -5},
		{10, -5},
		{0, -5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.1f", tt.pct), func(t *testing.T) {
			assert.Equal(t, tt.want, EloChangeFor(tt.pct))
		})
	}
}

func TestCreditsFor(t *testing.T) {
	assert.Equal(t, 70, CreditsFor(70, 1))
	assert.Equal(t, 35, CreditsFor(70, 2))
	assert.Equal(t, 2, CreditsFor(5, 2))
	assert.Equal(t, 0, CreditsFor(0, 2))
	assert.Equal(t, 40, CreditsFor(40, 0), "non-positive divisor falls back to 1:1")
}

func TestScorePercentage(t *testing.T) {
	assert.Equal(t, 100.0, ScorePercentage(100, 10))
	assert.Equal(t, 35.0, ScorePercentage(35, 10))
	assert.Equal(t, 100.0, ScorePercentage(250, 10), "clamped high")
	assert.Equal(t, 0.0, ScorePercentage(-10, 10), "clamped low")
	assert.Equal(t, 0.0, ScorePercentage(10, 0))
}

// gameOverWithScore builds a finished session with the given score, spread over
// whole rounds so the history stays consistent with Score.
func gameOverWithScore(t *testing.T, gameType GameType, score int) *Session {
	t.Helper()
	s := NewSession(gameType, seeded(42))
	require.True(t, s.Start(t0))
	correct := score / PointsPerCorrectAnswer
	for i := 0; s.Status == StatusRoundInProgress; i++ {
		q, _ := s.CurrentQuestion()
		answer := "definitely wrong"
		if i < correct {
			answer = q.CorrectAnswer
		}
		_, ok := s.SubmitAnswer(answer, t0)
		require.True(t, ok)
	}
	require.Equal(t, score, s.Score)
	return s
}

func TestSettle_Examples(t *testing.T) {
	tests := []struct {
		score     int
		pct       float64
		eloChange int
		result    MatchResult
	}{
		{100, 100.0, 10, ResultVictory},
		{70, 70.0, 10, ResultVictory},
		{50, 50.0, 5, ResultVictory},
		{30, 30.0, 0, ResultCompleted},
		{10, 10.0, -5, ResultDefeat},
		{0, 0.0, -5, ResultDefeat},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("score %d", tt.score), func(t *testing.T) {
			s := gameOverWithScore(t, GameTranslation, tt.score)
			p := NewProfile("u1", "Ada", t0)
			p.CloudCredits = 7

			res, ok := Settle(s, p, "m-1", t0)
			require.True(t, ok)
			assert.Equal(t, tt.pct, res.ScorePercentage)
			assert.Equal(t, tt.eloChange, res.EloChange)
			assert.Equal(t, tt.result, res.Summary.Result)
			assert.Equal(t, tt.score, res.CreditsEarned)

			assert.Equal(t, 7+tt.score, res.Profile.CloudCredits)
			assert.Equal(t, DefaultStartingElo+tt.eloChange, res.Profile.EloRating)
			assert.Equal(t, 1, res.Profile.MatchesPlayed)
			require.Len(t, res.Profile.MatchHistory, 1)
			assert.Equal(t, res.Summary, res.Profile.MatchHistory[0])

			assert.Equal(t, 7, p.CloudCredits, "input profile untouched")
			assert.Empty(t, p.MatchHistory)
		})
	}
}

func TestSettle_ThirtyFivePercentIsCompleted(t *testing.T) {
	// 35 points cannot come from whole rounds; build the terminal state directly.
	s := &Session{
		GameType:      GameTranslation,
		ModeName:      "Solo Translation",
		TotalRounds:   10,
		Score:         35,
		Status:        StatusGameOver,
		CreditDivisor: 1,
	}
	res, ok := Settle(s, NewProfile("u1", "", t0), "m", t0)
	require.True(t, ok)
	assert.Equal(t, 35.0, res.ScorePercentage)
	assert.Equal(t, 0, res.EloChange)
	assert.Equal(t, ResultCompleted, res.Summary.Result)
}

func TestSettle_ScorePercentageOneDecimal(t *testing.T) {
	s := &Session{TotalRounds: 3, Score: 10, Status: StatusGameOver, CreditDivisor: 1}
	res, ok := Settle(s, NewProfile("u1", "", t0), "m", t0)
	require.True(t, ok)
	assert.Equal(t, 33.3, res.ScorePercentage)
}

func TestSettle_SciPopExchangeRate(t *testing.T) {
	s := gameOverWithScore(t, GameSciPopQuiz, 70)
	res, ok := Settle(s, NewProfile("u1", "", t0), "m", t0)
	require.True(t, ok)
	assert.Equal(t, 35, res.CreditsEarned)
	assert.Equal(t, "Научпоп Викторина", res.Summary.Mode)
}

func TestSettle_EloFloorAtZero(t *testing.T) {
	s := gameOverWithScore(t, GameMathQuiz, 0)
	p := NewProfile("u1", "", t0)
	p.EloRating = 3

	res, ok := Settle(s, p, "m", t0)
	require.True(t, ok)
	assert.Equal(t, 0, res.Profile.EloRating)
}

func TestSettle_RoundsCopied(t *testing.T) {
	s := gameOverWithScore(t, GameTranslation, 20)
	res, ok := Settle(s, NewProfile("u1", "", t0), "m", t0)
	require.True(t, ok)

	require.Len(t, res.Summary.Rounds, 10)
	for i, r := range res.Summary.Rounds {
		h := s.RoundHistory[i]
		assert.Equal(t, h.RoundNumber, r.Round)
		assert.Equal(t, h.SubmittedAnswer, r.PlayerAnswer)
		assert.Equal(t, h.PointsAwarded, r.Score)
	}
}

func TestSettle_RequiresGameOverAndProfile(t *testing.T) {
	s := NewSession(GameTranslation, seeded(1))
	_, ok := Settle(s, NewProfile("u1", "", t0), "m", t0)
	assert.False(t, ok)

	s = gameOverWithScore(t, GameTranslation, 10)
	_, ok = Settle(s, nil, "m", t0)
	assert.False(t, ok)
}

func TestFinalize_OneShot(t *testing.T) {
	s := gameOverWithScore(t, GameTranslation, 100)
	p := NewProfile("u1", "", t0)

	first, ok := s.Finalize(p, "m-1", t0)
	require.True(t, ok)
	p = first.Profile
	assert.True(t, s.RewardsProcessed())

	second, ok := s.Finalize(p, "m-2", t0.Add(time.Second))
	assert.False(t, ok)
	assert.Nil(t, second)
	assert.Equal(t, 1, p.MatchesPlayed)
	assert.Equal(t, 100, p.CloudCredits)
	assert.Len(t, p.MatchHistory, 1)
}

func TestFinalize_WithoutProfileKeepsGuard(t *testing.T) {
	s := gameOverWithScore(t, GameTranslation, 100)

	_, ok := s.Finalize(nil, "m", t0)
	assert.False(t, ok)
	assert.False(t, s.RewardsProcessed())
}

func TestAppendMatchHistory_Bounded(t *testing.T) {
	history := make([]MatchSummary, 0, MaxMatchHistory)
	for i := 0; i < MaxMatchHistory; i++ {
		history = append(history, MatchSummary{ID: fmt.Sprintf("m-%d", i)})
	}

	out := AppendMatchHistory(history, MatchSummary{ID: "m-new"}, MaxMatchHistory)

	require.Len(t, out, MaxMatchHistory)
	assert.Equal(t, "m-1", out[0].ID, "oldest entry evicted")
	assert.Equal(t, "m-new", out[len(out)-1].ID)
	assert.Equal(t, "m-0", history[0].ID, "input untouched")
}

func TestAppendMatchHistory_UnderLimit(t *testing.T) {
	out := AppendMatchHistory(nil, MatchSummary{ID: "a"}, MaxMatchHistory)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestGames_Listing(t *testing.T) {
	games := Games()
	require.Len(t, games, 4)
	for i := 1; i < len(games); i++ {
		assert.Less(t, games[i-1].Type, games[i].Type)
	}

	gt, ok := ParseGameType("MATH_QUIZ")
	assert.True(t, ok)
	assert.Equal(t, GameMathQuiz, gt)

	_, ok = ParseGameType("math_quiz")
	assert.False(t, ok)
}

func TestSettle_BandsOnRoundedPercentage(t *testing.T) {
	// 4000/10010 is 39.96%, stored as 40.0.
	s := &Session{TotalRounds: 1001, Score: 4000, Status: StatusGameOver, CreditDivisor: 1}
	res, ok := Settle(s, NewProfile("u1", "", t0), "m", t0)
	require.True(t, ok)
	assert.Equal(t, 40.0, res.ScorePercentage)
	assert.Equal(t, 5, res.EloChange)
	assert.Equal(t, ResultVictory, res.Summary.Result)
}

func TestBuyElo(t *testing.T) {
	tests := []struct {
		name     string
		balance  int
		credits  int
		wantErr  bool
		spent    int
		gained   int
		leftover int
	}{
		{"whole points", 100, 40, false, 40, 20, 60},
		{"whole balance", 31, 30, false, 30, 15, 1},
		{"odd amount keeps the spare credit", 10, 7, false, 6, 3, 4},
		{"zero", 10, 0, true, 0, 0, 10},
		{"negative", 10, -4, true, 0, 0, 10},
		{"over balance", 10, 12, true, 0, 0, 10},
		{"too few for a point", 10, 1, true, 0, 0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProfile("u1", "", t0)
			p.CloudCredits = tt.balance

			got, err := BuyElo(p, tt.credits, t0.Add(time.Minute))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidationError(err))
				assert.Equal(t, DefaultStartingElo, p.EloRating)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.spent, got.CreditsSpent)
				assert.Equal(t, tt.gained, got.EloGained)
				assert.Equal(t, DefaultStartingElo+tt.gained, p.EloRating)
				assert.Equal(t, t0.Add(time.Minute), p.UpdatedAt)
			}
			assert.Equal(t, tt.leftover, p.CloudCredits)
		})
	}
}
