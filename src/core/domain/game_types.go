package domain

import (
	"math/rand/v2"
	"sort"
)

// GameType is the closed set of solo modes a session can be created for.
type GameType string

const (
	GameTranslation      GameType = "TRANSLATION"
	GameTranslationBlitz GameType = "TRANSLATION_BLITZ"
	GameMathQuiz         GameType = "MATH_QUIZ"
	GameSciPopQuiz       GameType = "SCIPOP_QUIZ"
)

// GameSpec describes how one mode is seeded, timed and rewarded.
type GameSpec struct {
	Type                  GameType
	ModeName              string
	TotalRounds           int
	RoundTimeLimitSeconds int
	// CreditDivisor converts points to credits: credits = score / CreditDivisor.
	CreditDivisor int

	generate func(rng *rand.Rand, rounds int) []Question
}

var gameSpecs = map[GameType]GameSpec{
	GameTranslation: {
		Type:                  GameTranslation,
		ModeName:              "Solo Translation",
		TotalRounds:           DefaultTotalRounds,
		RoundTimeLimitSeconds: DefaultRoundTimeLimitSeconds,
		CreditDivisor:         1,
		generate:              generateTranslation,
	},
	GameTranslationBlitz: {
		Type:                  GameTranslationBlitz,
		ModeName:              "Blitz Translation",
		TotalRounds:           DefaultTotalRounds,
		RoundTimeLimitSeconds: BlitzRoundTimeLimitSeconds,
		CreditDivisor:         1,
		generate:              generateTranslation,
	},
	GameMathQuiz: {
		Type:                  GameMathQuiz,
		ModeName:              "Math Quiz",
		TotalRounds:           DefaultTotalRounds,
		RoundTimeLimitSeconds: MathRoundTimeLimitSeconds,
		CreditDivisor:         1,
		generate:              generateMath,
	},
	GameSciPopQuiz: {
		Type:                  GameSciPopQuiz,
		ModeName:              "Научпоп Викторина",
		TotalRounds:           DefaultTotalRounds,
		RoundTimeLimitSeconds: DefaultRoundTimeLimitSeconds,
		CreditDivisor:         2,
		generate:              generateSciPop,
	},
}

// LookupGame returns the GameSpec registered for t.
func LookupGame(t GameType) (GameSpec, bool) {
	spec, ok := gameSpecs[t]
	return spec, ok
}

// ParseGameType maps a raw mode name onto the enum.
func ParseGameType(raw string) (GameType, bool) {
	t := GameType(raw)
	_, ok := gameSpecs[t]
	return t, ok
}

// Games lists every registered mode ordered by type.
func Games() []GameSpec {
	out := make([]GameSpec, 0, len(gameSpecs))
	for _, spec := range gameSpecs {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
