package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"neuroforge/src/core/domain"
	"neuroforge/src/core/ports"
)

// settleTimeout bounds the profile write started by a timer-driven game over.
const settleTimeout = 10 * time.Second

// RewardStatus describes what happened to a session's rewards.
type RewardStatus string

const (
	RewardRecorded        RewardStatus = "RECORDED"
	RewardAlreadyRecorded RewardStatus = "ALREADY_RECORDED"
	RewardNotRecorded     RewardStatus = "NOT_RECORDED"
	RewardNotFinished     RewardStatus = "NOT_FINISHED"
	RewardFailed          RewardStatus = "FAILED"
)

// SessionView is a consistent snapshot of a hosted session.
type SessionView struct {
	Session          domain.Session
	RemainingSeconds int
	RewardsProcessed bool
}

// RewardOutcome reports the settlement attempt of a finished session.
type RewardOutcome struct {
	Status     RewardStatus
	Settlement *domain.Settlement
	Error      string
}

// AnswerResult is returned by SubmitAnswer.
type AnswerResult struct {
	Accepted bool
	Round    *domain.RoundResult
	View     SessionView
	Rewards  *RewardOutcome
}

type hostedSession struct {
	mu         sync.Mutex
	session    *domain.Session
	timer      *RoundTimer
	run        int
	lastActive time.Time
	discarded  bool
	settlement *domain.Settlement

	settleMu sync.Mutex
}

// SessionService hosts solo sessions in memory, drives their round timers and
// settles finished sessions into the profile store.
type SessionService struct {
	profiles  ports.ProfileRepository
	publisher ports.SessionPublisher
	scheduler ports.Scheduler
	log       *slog.Logger

	now     func() time.Time
	newRand func() *rand.Rand
	newID   func() string
	idleTTL time.Duration

	mu       sync.RWMutex
	sessions map[string]*hostedSession
}

// SessionOption customizes a SessionService.
type SessionOption func(*SessionService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

// WithScheduler replaces the runtime timer used for round countdowns.
func WithScheduler(sch ports.Scheduler) SessionOption {
	return func(s *SessionService) { s.scheduler = sch }
}

// WithRandSource sets the factory of question bank random sources.
func WithRandSource(f func() *rand.Rand) SessionOption {
	return func(s *SessionService) { s.newRand = f }
}

// WithIDGenerator sets the generator of session and match ids.
func WithIDGenerator(f func() string) SessionOption {
	return func(s *SessionService) { s.newID = f }
}

// WithPublisher sets where session events go.
func WithPublisher(p ports.SessionPublisher) SessionOption {
	return func(s *SessionService) { s.publisher = p }
}

// WithIdleTTL sets how long an untouched session stays hosted.
func WithIdleTTL(d time.Duration) SessionOption {
	return func(s *SessionService) { s.idleTTL = d }
}

type nopPublisher struct{}

func (nopPublisher) Publish(ports.SessionEvent) {}

func NewSessionService(profiles ports.ProfileRepository, log *slog.Logger, opts ...SessionOption) *SessionService {
	s := &SessionService{
		profiles:  profiles,
		publisher: nopPublisher{},
		scheduler: SystemScheduler{},
		log:       log,
		now:       time.Now,
		newRand:   func() *rand.Rand { return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) },
		newID:     uuid.NewString,
		idleTTL:   30 * time.Minute,
		sessions:  make(map[string]*hostedSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Games lists the playable modes.
func (s *SessionService) Games() []domain.GameSpec {
	return domain.Games()
}

// Create hosts a new session for gameType. Unknown modes are hosted in the ERROR
// state rather than rejected so the caller can inspect them.
func (s *SessionService) Create(ctx context.Context, userID, gameType string) (*SessionView, error) {
	gameType = strings.TrimSpace(gameType)
	if gameType == "" {
		return nil, domain.NewValidationError("game_type", "is required")
	}

	sess := domain.NewSession(domain.GameType(gameType), s.newRand())
	sess.ID = s.newID()
	sess.UserID = userID

	h := &hostedSession{
		session:    sess,
		timer:      NewRoundTimer(s.scheduler),
		lastActive: s.now(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = h
	s.mu.Unlock()

	if sess.Status == domain.StatusError {
		s.log.Warn("session created for unknown game type",
			"session_id", sess.ID,
			"game_type", gameType,
		)
	} else {
		s.log.Info("session created",
			"session_id", sess.ID,
			"game_type", sess.GameType,
			"user_id", userID,
		)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	view := s.viewLocked(h)
	return &view, nil
}

// Get returns the current snapshot of a session.
func (s *SessionService) Get(ctx context.Context, userID, sessionID string) (*SessionView, error) {
	h, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	view := s.viewLocked(h)
	return &view, nil
}

// Snapshot returns the current state of a session as the first event of a live
// subscription.
func (s *SessionService) Snapshot(ctx context.Context, userID, sessionID string) (*ports.SessionEvent, error) {
	h, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	view := s.viewLocked(h)
	return &ports.SessionEvent{
		Type:             ports.EventSnapshot,
		SessionID:        sessionID,
		At:               s.now(),
		RemainingSeconds: view.RemainingSeconds,
		Session:          &view.Session,
	}, nil
}

// Start begins (or restarts after game over) a session and arms its round timer.
// The bool reports whether the transition was accepted.
func (s *SessionService) Start(ctx context.Context, userID, sessionID string) (*SessionView, bool, error) {
	h, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, false, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := s.now()
	h.lastActive = now
	if h.discarded || !h.session.Start(now) {
		view := s.viewLocked(h)
		return &view, false, nil
	}
	h.run++
	h.settlement = nil
	s.armLocked(h)
	s.log.Info("session started", "session_id", sessionID, "run", h.run)

	view := s.viewLocked(h)
	return &view, true, nil
}

// SubmitAnswer grades an answer for the round in progress. When it ends the game
// the rewards are settled before returning; a failed profile write is reported in
// the result and does not fail the call.
func (s *SessionService) SubmitAnswer(ctx context.Context, userID, sessionID, answer string) (*AnswerResult, error) {
	h, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	now := s.now()
	h.lastActive = now
	if h.discarded {
		view := s.viewLocked(h)
		h.mu.Unlock()
		return &AnswerResult{View: view}, nil
	}
	res, ok := h.session.SubmitAnswer(answer, now)
	if !ok {
		view := s.viewLocked(h)
		h.mu.Unlock()
		return &AnswerResult{View: view}, nil
	}
	gameOver := s.afterRoundLocked(h, res)
	h.mu.Unlock()

	out := &AnswerResult{Accepted: true, Round: &res}
	if gameOver {
		outcome, err := s.settle(ctx, h)
		if err != nil {
			outcome = &RewardOutcome{Status: RewardFailed, Error: err.Error()}
		}
		out.Rewards = outcome
	}

	h.mu.Lock()
	out.View = s.viewLocked(h)
	h.mu.Unlock()
	return out, nil
}

// Finalize settles a finished session. It is idempotent: only the first successful
// call writes to the profile store.
func (s *SessionService) Finalize(ctx context.Context, userID, sessionID string) (*RewardOutcome, error) {
	h, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, h)
}

// Discard stops hosting a session. Its timer is cancelled and it is never settled.
func (s *SessionService) Discard(ctx context.Context, userID, sessionID string) error {
	h, err := s.lookup(userID, sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.discard(h, "discarded")
	return nil
}

// Reap discards sessions idle for longer than the configured TTL.
func (s *SessionService) Reap() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	var stale []*hostedSession
	for id, h := range s.sessions {
		h.mu.Lock()
		idle := h.lastActive.Before(cutoff)
		h.mu.Unlock()
		if idle {
			stale = append(stale, h)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, h := range stale {
		s.discard(h, "idle")
	}
	return len(stale)
}

// RunJanitor reaps idle sessions every interval until ctx is done.
func (s *SessionService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.Reap(); n > 0 {
				s.log.Info("reaped idle sessions", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Count returns the number of hosted sessions.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionService) discard(h *hostedSession, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.discarded {
		return
	}
	h.discarded = true
	h.timer.Stop()
	s.publisher.Publish(ports.SessionEvent{
		Type:      ports.EventSessionDiscarded,
		SessionID: h.session.ID,
		At:        s.now(),
		Error:     reason,
	})
	s.log.Info("session discarded", "session_id", h.session.ID, "reason", reason)
}

func (s *SessionService) lookup(userID, sessionID string) (*hostedSession, error) {
	s.mu.RLock()
	h, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFoundError("session")
	}
	// Guest sessions are reachable by id alone; owned sessions only by their player.
	if owner := h.session.UserID; owner != "" && owner != userID {
		return nil, domain.NewForbiddenError("session belongs to another player")
	}
	return h, nil
}

func (s *SessionService) viewLocked(h *hostedSession) SessionView {
	return SessionView{
		Session:          h.session.Snapshot(),
		RemainingSeconds: h.session.RemainingSeconds(s.now()),
		RewardsProcessed: h.session.RewardsProcessed(),
	}
}

// armLocked re-arms the round timer for the round in progress and announces it.
func (s *SessionService) armLocked(h *hostedSession) {
	sess := h.session
	round := sess.CurrentRound
	d := sess.Deadline().Sub(s.now())
	h.timer.Arm(round, d,
		func(r int) { s.onExpire(h, r) },
		func(r int) { s.onTick(h, r) },
	)

	snap := sess.Snapshot()
	s.publisher.Publish(ports.SessionEvent{
		Type:             ports.EventRoundStarted,
		SessionID:        sess.ID,
		At:               s.now(),
		RemainingSeconds: sess.RemainingSeconds(s.now()),
		Session:          &snap,
	})
}

// afterRoundLocked publishes a closed round and moves the timer along. It reports
// whether the session reached GAME_OVER.
func (s *SessionService) afterRoundLocked(h *hostedSession, res domain.RoundResult) bool {
	sess := h.session
	s.publisher.Publish(ports.SessionEvent{
		Type:      ports.EventRoundCompleted,
		SessionID: sess.ID,
		At:        s.now(),
		Round:     &res,
	})

	if sess.Status == domain.StatusRoundInProgress {
		s.armLocked(h)
		return false
	}

	h.timer.Stop()
	snap := sess.Snapshot()
	s.publisher.Publish(ports.SessionEvent{
		Type:      ports.EventGameOver,
		SessionID: sess.ID,
		At:        s.now(),
		Session:   &snap,
	})
	s.log.Info("session finished",
		"session_id", sess.ID,
		"game_type", sess.GameType,
		"score", sess.Score,
	)
	return sess.Status == domain.StatusGameOver
}

func (s *SessionService) onExpire(h *hostedSession, round int) {
	h.mu.Lock()
	if h.discarded {
		h.mu.Unlock()
		return
	}
	res, ok := h.session.Expire(round, s.now())
	if !ok {
		h.mu.Unlock()
		return
	}
	s.log.Debug("round timed out", "session_id", h.session.ID, "round", round)
	gameOver := s.afterRoundLocked(h, res)
	h.mu.Unlock()

	if !gameOver {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
	defer cancel()
	if _, err := s.settle(ctx, h); err != nil {
		s.log.Error("settle after timeout failed", "session_id", h.session.ID, "error", err)
	}
}

func (s *SessionService) onTick(h *hostedSession, round int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.discarded || h.session.Status != domain.StatusRoundInProgress || h.session.CurrentRound != round {
		return
	}
	s.publisher.Publish(ports.SessionEvent{
		Type:             ports.EventTick,
		SessionID:        h.session.ID,
		At:               s.now(),
		RemainingSeconds: h.session.RemainingSeconds(s.now()),
	})
}

// errNotSettled aborts a profile update when the snapshot cannot be settled.
var errNotSettled = errors.New("session not settled")

// settle writes the rewards of a finished run exactly once. The guard is consumed
// only after the profile write succeeds, so failures may be retried.
func (s *SessionService) settle(ctx context.Context, h *hostedSession) (*RewardOutcome, error) {
	h.settleMu.Lock()
	defer h.settleMu.Unlock()

	h.mu.Lock()
	sess := h.session
	switch {
	case sess.Status != domain.StatusGameOver:
		h.mu.Unlock()
		return &RewardOutcome{Status: RewardNotFinished}, nil
	case sess.RewardsProcessed():
		out := &RewardOutcome{Status: RewardAlreadyRecorded, Settlement: h.settlement}
		h.mu.Unlock()
		return out, nil
	case h.discarded:
		h.mu.Unlock()
		return &RewardOutcome{Status: RewardNotRecorded}, nil
	}
	snap := sess.Snapshot()
	run := h.run
	h.mu.Unlock()

	if snap.UserID == "" {
		s.publishRewards(ports.EventRewardsNotRecorded, snap.ID, nil, "")
		return &RewardOutcome{Status: RewardNotRecorded}, nil
	}

	matchID := strings.ToLower(string(snap.GameType)) + "-" + s.newID()
	at := s.now()
	var settlement *domain.Settlement
	updated, err := s.profiles.UpdateProfile(ctx, snap.UserID, func(p *domain.Profile) error {
		res, ok := domain.Settle(&snap, p, matchID, at)
		if !ok {
			return errNotSettled
		}
		*p = *res.Profile
		settlement = res
		return nil
	})
	if err != nil {
		if domain.IsNotFound(err) {
			s.log.Info("rewards not recorded, no profile", "session_id", snap.ID, "user_id", snap.UserID)
			s.publishRewards(ports.EventRewardsNotRecorded, snap.ID, nil, "")
			return &RewardOutcome{Status: RewardNotRecorded}, nil
		}
		s.log.Error("failed to record rewards", "session_id", snap.ID, "user_id", snap.UserID, "error", err)
		s.publishRewards(ports.EventRewardsFailed, snap.ID, nil, err.Error())
		return nil, fmt.Errorf("record rewards for session %s: %w", snap.ID, err)
	}
	settlement.Profile = updated

	h.mu.Lock()
	if h.run == run {
		h.session.MarkRewardsProcessed()
		h.settlement = settlement
	}
	h.mu.Unlock()

	s.log.Info("rewards recorded",
		"session_id", snap.ID,
		"user_id", snap.UserID,
		"credits", settlement.CreditsEarned,
		"elo_change", settlement.EloChange,
	)
	s.publishRewards(ports.EventRewardsRecorded, snap.ID, settlement, "")
	return &RewardOutcome{Status: RewardRecorded, Settlement: settlement}, nil
}

func (s *SessionService) publishRewards(t ports.EventType, sessionID string, st *domain.Settlement, errMsg string) {
	s.publisher.Publish(ports.SessionEvent{
		Type:       t,
		SessionID:  sessionID,
		At:         s.now(),
		Settlement: st,
		Error:      errMsg,
	})
}
