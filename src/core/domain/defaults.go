package domain

// DefaultTotalRounds is the number of rounds of every solo mode.
const DefaultTotalRounds = 10

// PointsPerCorrectAnswer is awarded for a correct round; wrong or timed out rounds earn 0.
const PointsPerCorrectAnswer = 10

// DefaultRoundTimeLimitSeconds applies to modes without a specific limit.
const DefaultRoundTimeLimitSeconds = 60

// BlitzRoundTimeLimitSeconds is the round limit of TRANSLATION_BLITZ.
const BlitzRoundTimeLimitSeconds = 15

// MathRoundTimeLimitSeconds is the round limit of MATH_QUIZ.
const MathRoundTimeLimitSeconds = 45

// DefaultStartingElo is the rating of a freshly registered profile.
const DefaultStartingElo = 1000

// MaxMatchHistory bounds Profile.MatchHistory; the oldest entries are evicted first.
const MaxMatchHistory = 20
