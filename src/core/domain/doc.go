// Package domain contains the core model of the NeuroForge minigames.
//
// This package defines:
//   - Game modes: the closed GameType enum and its strategy table (game_types.go)
//   - Question banks: randomized round content per mode (questionbank.go)
//   - Session: the solo game state machine driven by Start/SubmitAnswer/Expire (session.go)
//   - Settlement: credits, ELO and bounded match history computed once per
//     finished session (reward.go)
//   - Domain Errors: business rule violation errors (errors.go)
//
// Rules for this package:
//   - No external dependencies except the standard library
//   - No infrastructure concerns (database, HTTP, timers)
//   - Time and randomness are passed in by the caller
//   - Invalid transitions are no-ops reported through a bool, never panics
//
// Example:
//
//	s := domain.NewSession(domain.GameMathQuiz, rng)
//	if s.Status == domain.StatusError {
//	    return
//	}
//	s.Start(time.Now())
//	res, ok := s.SubmitAnswer("15", time.Now())
package domain
