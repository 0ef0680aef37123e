package ports

import (
	"time"

	"neuroforge/src/core/domain"
)

// EventType names a session event pushed to live subscribers.
type EventType string

const (
	EventSnapshot           EventType = "snapshot"
	EventRoundStarted       EventType = "round_started"
	EventTick               EventType = "tick"
	EventRoundCompleted     EventType = "round_completed"
	EventGameOver           EventType = "game_over"
	EventRewardsRecorded    EventType = "rewards_recorded"
	EventRewardsNotRecorded EventType = "rewards_not_recorded"
	EventRewardsFailed      EventType = "rewards_failed"
	EventSessionDiscarded   EventType = "session_discarded"
)

// SessionEvent is one notification about a hosted session.
type SessionEvent struct {
	Type             EventType           `json:"type"`
	SessionID        string              `json:"session_id"`
	At               time.Time           `json:"at"`
	RemainingSeconds int                 `json:"remaining_seconds"`
	Session          *domain.Session     `json:"session,omitempty"`
	Round            *domain.RoundResult `json:"round,omitempty"`
	Settlement       *domain.Settlement  `json:"settlement,omitempty"`
	Error            string              `json:"error,omitempty"`
}

// SessionPublisher fans session events out to subscribers. Publish must not block
// the caller on slow subscribers.
type SessionPublisher interface {
	Publish(event SessionEvent)
}

// Cancel stops a scheduled callback. It reports whether the callback was stopped
// before running.
type Cancel func() bool

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Cancel
}
