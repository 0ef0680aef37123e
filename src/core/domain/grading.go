package domain

import (
	"strconv"
	"strings"
)

// Grade reports whether raw answers q.
//
// MATH answers are parsed as floats and compared exactly; anything that does not
// parse is wrong. Every other type compares trimmed, lower-cased text.
func Grade(q Question, raw string) bool {
	switch q.QuestionType {
	case QuestionMath:
		got, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return false
		}
		want, err := strconv.ParseFloat(strings.TrimSpace(q.CorrectAnswer), 64)
		if err != nil {
			return false
		}
		return got == want
	default:
		return normalizeText(raw) == normalizeText(q.CorrectAnswer)
	}
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
