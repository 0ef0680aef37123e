package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuroforge/src/core/domain"
	"neuroforge/src/core/ports"
	"neuroforge/src/infra/repo"
)

// fakeScheduler records callbacks instead of running them; tests fire them by hand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) ports.Cancel {
	s.mu.Lock()
	defer s.mu.Unlock()
	ft := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, ft)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		wasPending := !ft.stopped && !ft.fired
		ft.stopped = true
		return wasPending
	}
}

// pending returns live timers; expiries are the ones longer than a tick.
func (s *fakeScheduler) pending(expiry bool) []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTimer
	for _, ft := range s.timers {
		if ft.stopped || ft.fired {
			continue
		}
		if (ft.d > tickInterval) == expiry {
			out = append(out, ft)
		}
	}
	return out
}

func (s *fakeScheduler) fire(t *testing.T, expiry bool) {
	t.Helper()
	live := s.pending(expiry)
	require.Len(t, live, 1, "expected exactly one pending timer")
	ft := live[0]
	s.mu.Lock()
	ft.fired = true
	s.mu.Unlock()
	ft.f()
}

func (s *fakeScheduler) fireExpiry(t *testing.T) { t.Helper(); s.fire(t, true) }
func (s *fakeScheduler) fireTick(t *testing.T)   { t.Helper(); s.fire(t, false) }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.SessionEvent
}

func (p *recordingPublisher) Publish(e ports.SessionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []ports.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ports.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) last(t ports.EventType) (ports.SessionEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Type == t {
			return p.events[i], true
		}
	}
	return ports.SessionEvent{}, false
}

// flakyRepo fails the first failures UpdateProfile calls.
type flakyRepo struct {
	*repo.MemoryProfileRepository
	failures atomic.Int32
}

func (r *flakyRepo) UpdateProfile(ctx context.Context, userID string, mutate ports.ProfileMutation) (*domain.Profile, error) {
	if r.failures.Add(-1) >= 0 {
		return nil, errors.New("store unavailable")
	}
	return r.MemoryProfileRepository.UpdateProfile(ctx, userID, mutate)
}

type harness struct {
	svc      *SessionService
	profiles ports.ProfileRepository
	sched    *fakeScheduler
	clock    *fakeClock
	pub      *recordingPublisher
}

func newHarness(t *testing.T, profiles ports.ProfileRepository) *harness {
	t.Helper()
	if profiles == nil {
		profiles = repo.NewMemoryProfileRepository()
	}
	h := &harness{
		profiles: profiles,
		sched:    &fakeScheduler{},
		clock:    &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		pub:      &recordingPublisher{},
	}
	var seed atomic.Uint64
	var ids atomic.Int64
	h.svc = NewSessionService(profiles, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithClock(h.clock.Now),
		WithScheduler(h.sched),
		WithPublisher(h.pub),
		WithIdleTTL(10*time.Minute),
		WithRandSource(func() *rand.Rand {
			n := seed.Add(1)
			return rand.New(rand.NewPCG(n, n*31))
		}),
		WithIDGenerator(func() string { return fmt.Sprintf("id-%d", ids.Add(1)) }),
	)
	return h
}

func (h *harness) register(t *testing.T, userID string) {
	t.Helper()
	_, err := h.profiles.CreateProfile(context.Background(), domain.NewProfile(userID, "", h.clock.Now()))
	require.NoError(t, err)
}

func (h *harness) startSession(t *testing.T, userID string, gameType domain.GameType) string {
	t.Helper()
	ctx := context.Background()
	view, err := h.svc.Create(ctx, userID, string(gameType))
	require.NoError(t, err)
	_, accepted, err := h.svc.Start(ctx, userID, view.Session.ID)
	require.NoError(t, err)
	require.True(t, accepted)
	return view.Session.ID
}

// playOut answers every remaining round, the first correct ones right.
func (h *harness) playOut(t *testing.T, userID, sessionID string, correct int) *AnswerResult {
	t.Helper()
	ctx := context.Background()
	var last *AnswerResult
	for i := 0; ; i++ {
		view, err := h.svc.Get(ctx, userID, sessionID)
		require.NoError(t, err)
		if view.Session.Status != domain.StatusRoundInProgress {
			return last
		}
		q := view.Session.Questions[view.Session.CurrentPhraseIndex]
		answer := "wrong"
		if i < correct {
			answer = q.CorrectAnswer
		}
		last, err = h.svc.SubmitAnswer(ctx, userID, sessionID, answer)
		require.NoError(t, err)
		require.True(t, last.Accepted)
	}
}

func TestSessionService_CreateAndStart(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	view, err := h.svc.Create(ctx, "u1", "TRANSLATION")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotStarted, view.Session.Status)
	assert.Equal(t, "id-1", view.Session.ID)
	assert.Equal(t, 0, view.RemainingSeconds)

	started, accepted, err := h.svc.Start(ctx, "u1", view.Session.ID)
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, domain.StatusRoundInProgress, started.Session.Status)
	assert.Equal(t, 60, started.RemainingSeconds)
	assert.Len(t, h.sched.pending(true), 1)
	assert.Equal(t, []ports.EventType{ports.EventRoundStarted}, h.pub.types())

	_, accepted, err = h.svc.Start(ctx, "u1", view.Session.ID)
	require.NoError(t, err)
	assert.False(t, accepted, "start while a round runs is a no-op")
	assert.Len(t, h.sched.pending(true), 1)
}

func TestSessionService_CreateValidation(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.svc.Create(context.Background(), "u1", "  ")
	assert.True(t, domain.IsValidationError(err))
}

func TestSessionService_UnknownGameTypeIsHostedInError(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	view, err := h.svc.Create(ctx, "", "BOGUS")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, view.Session.Status)
	assert.Equal(t, domain.GameStateUnknownGameType, view.Session.GameState)

	_, accepted, err := h.svc.Start(ctx, "", view.Session.ID)
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Empty(t, h.sched.pending(true))
}

func TestSessionService_OwnershipAndLookup(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.startSession(t, "u1", domain.GameMathQuiz)

	_, err := h.svc.Get(ctx, "u2", id)
	assert.True(t, domain.IsForbidden(err))

	_, err = h.svc.Get(ctx, "u1", "missing")
	assert.True(t, domain.IsNotFound(err))

	guest := h.startSession(t, "", domain.GameMathQuiz)
	_, err = h.svc.Get(ctx, "anyone", guest)
	assert.NoError(t, err, "guest sessions are reachable by id")
}

func TestSessionService_ExpiryAdvancesRound(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.startSession(t, "", domain.GameTranslationBlitz)

	first := h.sched.pending(true)
	require.Len(t, first, 1)
	assert.Equal(t, 15*time.Second, first[0].d)

	h.clock.Advance(15 * time.Second)
	h.sched.fireExpiry(t)

	view, err := h.svc.Get(ctx, "", id)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Session.CurrentRound)
	require.Len(t, view.Session.RoundHistory, 1)
	assert.True(t, view.Session.RoundHistory[0].TimedOut)
	assert.Equal(t, 0, view.Session.Score)
	assert.Equal(t, 15, view.RemainingSeconds)

	ev, ok := h.pub.last(ports.EventRoundCompleted)
	require.True(t, ok)
	assert.True(t, ev.Round.TimedOut)

	// The superseded expiry must not close round two.
	first[0].f()
	view, err = h.svc.Get(ctx, "", id)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Session.CurrentRound)
	assert.Len(t, view.Session.RoundHistory, 1)
}

func TestSessionService_AnswerRearmsTimer(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.startSession(t, "", domain.GameMathQuiz)
	before := h.sched.pending(true)
	require.Len(t, before, 1)

	res, err := h.svc.SubmitAnswer(ctx, "", id, "-1")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, 2, res.View.Session.CurrentRound)

	after := h.sched.pending(true)
	require.Len(t, after, 1)
	assert.NotSame(t, before[0], after[0])
	assert.True(t, before[0].stopped)
}

func TestSessionService_RejectedAnswers(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	view, err := h.svc.Create(ctx, "", "MATH_QUIZ")
	require.NoError(t, err)
	res, err := h.svc.SubmitAnswer(ctx, "", view.Session.ID, "3")
	require.NoError(t, err)
	assert.False(t, res.Accepted, "no round in progress yet")

	id := h.startSession(t, "", domain.GameMathQuiz)
	res, err = h.svc.SubmitAnswer(ctx, "", id, "   ")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, 1, res.View.Session.CurrentRound)
}

func TestSessionService_TickPublishesRemaining(t *testing.T) {
	h := newHarness(t, nil)
	h.startSession(t, "", domain.GameMathQuiz)

	h.clock.Advance(time.Second)
	h.sched.fireTick(t)

	ev, ok := h.pub.last(ports.EventTick)
	require.True(t, ok)
	assert.Equal(t, 44, ev.RemainingSeconds)
	assert.Len(t, h.sched.pending(false), 1, "tick reschedules itself")
}

func TestSessionService_GameOverSettlesOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.register(t, "u1")
	ctx := context.Background()
	id := h.startSession(t, "u1", domain.GameTranslation)

	last := h.playOut(t, "u1", id, 7)
	require.NotNil(t, last.Rewards)
	assert.Equal(t, RewardRecorded, last.Rewards.Status)
	assert.Equal(t, 70, last.Rewards.Settlement.CreditsEarned)
	assert.Equal(t, 10, last.Rewards.Settlement.EloChange)
	assert.True(t, last.View.RewardsProcessed)
	assert.Empty(t, h.sched.pending(true), "timer stopped at game over")
	assert.Empty(t, h.sched.pending(false))

	again, err := h.svc.Finalize(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, RewardAlreadyRecorded, again.Status)

	p, err := h.profiles.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 70, p.CloudCredits)
	assert.Equal(t, 1010, p.EloRating)
	assert.Equal(t, 1, p.MatchesPlayed)
	require.Len(t, p.MatchHistory, 1)
	assert.Equal(t, domain.ResultVictory, p.MatchHistory[0].Result)
	assert.Equal(t, "Solo Translation", p.MatchHistory[0].Mode)

	types := h.pub.types()
	assert.Contains(t, types, ports.EventGameOver)
	assert.Contains(t, types, ports.EventRewardsRecorded)
}

func TestSessionService_FinalizeBeforeGameOver(t *testing.T) {
	h := newHarness(t, nil)
	h.register(t, "u1")
	id := h.startSession(t, "u1", domain.GameMathQuiz)

	out, err := h.svc.Finalize(context.Background(), "u1", id)
	require.NoError(t, err)
	assert.Equal(t, RewardNotFinished, out.Status)
}

func TestSessionService_GuestAndUnknownPlayerNotRecorded(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	guest := h.startSession(t, "", domain.GameMathQuiz)
	last := h.playOut(t, "", guest, 10)
	assert.Equal(t, RewardNotRecorded, last.Rewards.Status)

	stranger := h.startSession(t, "nobody", domain.GameMathQuiz)
	last = h.playOut(t, "nobody", stranger, 10)
	assert.Equal(t, RewardNotRecorded, last.Rewards.Status)
	assert.False(t, last.View.RewardsProcessed)

	_, err := h.profiles.GetProfile(ctx, "nobody")
	assert.True(t, domain.IsNotFound(err), "settlement never creates profiles")
}

func TestSessionService_AllRoundsTimeOut(t *testing.T) {
	h := newHarness(t, nil)
	h.register(t, "u1")
	ctx := context.Background()
	id := h.startSession(t, "u1", domain.GameTranslationBlitz)

	for i := 0; i < domain.DefaultTotalRounds; i++ {
		h.clock.Advance(15 * time.Second)
		h.sched.fireExpiry(t)
	}

	view, err := h.svc.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusGameOver, view.Session.Status)
	assert.Equal(t, 0, view.Session.Score)
	assert.True(t, view.RewardsProcessed)
	assert.Empty(t, h.sched.pending(true))

	p, err := h.profiles.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 995, p.EloRating)
	assert.Equal(t, domain.ResultDefeat, p.MatchHistory[0].Result)
}

func TestSessionService_DiscardCancelsTimerAndRewards(t *testing.T) {
	h := newHarness(t, nil)
	h.register(t, "u1")
	ctx := context.Background()
	id := h.startSession(t, "u1", domain.GameTranslationBlitz)

	for i := 0; i < domain.DefaultTotalRounds-1; i++ {
		_, err := h.svc.SubmitAnswer(ctx, "u1", id, "wrong")
		require.NoError(t, err)
	}
	armed := h.sched.pending(true)
	require.Len(t, armed, 1)

	require.NoError(t, h.svc.Discard(ctx, "u1", id))
	assert.Empty(t, h.sched.pending(true))
	assert.Empty(t, h.sched.pending(false))

	// A callback that was already in flight when the timer stopped does nothing.
	armed[0].f()

	_, err := h.svc.Get(ctx, "u1", id)
	assert.True(t, domain.IsNotFound(err))

	p, err := h.profiles.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.MatchesPlayed)

	_, ok := h.pub.last(ports.EventSessionDiscarded)
	assert.True(t, ok)
}

func TestSessionService_FailedWriteCanBeRetried(t *testing.T) {
	store := &flakyRepo{MemoryProfileRepository: repo.NewMemoryProfileRepository()}
	store.failures.Store(1)
	h := newHarness(t, store)
	h.register(t, "u1")
	ctx := context.Background()
	id := h.startSession(t, "u1", domain.GameMathQuiz)

	last := h.playOut(t, "u1", id, 10)
	require.NotNil(t, last.Rewards)
	assert.Equal(t, RewardFailed, last.Rewards.Status)
	assert.NotEmpty(t, last.Rewards.Error)
	assert.False(t, last.View.RewardsProcessed)
	_, ok := h.pub.last(ports.EventRewardsFailed)
	assert.True(t, ok)

	out, err := h.svc.Finalize(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, RewardRecorded, out.Status)

	out, err = h.svc.Finalize(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, RewardAlreadyRecorded, out.Status)

	p, err := h.profiles.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, p.CloudCredits)
	assert.Equal(t, 1, p.MatchesPlayed)
}

func TestSessionService_FinalizeErrorSurfaces(t *testing.T) {
	store := &flakyRepo{MemoryProfileRepository: repo.NewMemoryProfileRepository()}
	h := newHarness(t, store)
	h.register(t, "u1")
	id := h.startSession(t, "u1", domain.GameMathQuiz)
	store.failures.Store(2)

	last := h.playOut(t, "u1", id, 0)
	assert.Equal(t, RewardFailed, last.Rewards.Status)

	_, err := h.svc.Finalize(context.Background(), "u1", id)
	assert.Error(t, err)
}

func TestSessionService_ConcurrentFinalizeRecordsOnce(t *testing.T) {
	store := &flakyRepo{MemoryProfileRepository: repo.NewMemoryProfileRepository()}
	store.failures.Store(1)
	h := newHarness(t, store)
	h.register(t, "u1")
	ctx := context.Background()
	id := h.startSession(t, "u1", domain.GameMathQuiz)
	h.playOut(t, "u1", id, 5)

	var wg sync.WaitGroup
	var recorded atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := h.svc.Finalize(ctx, "u1", id)
			if err == nil && out.Status == RewardRecorded {
				recorded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), recorded.Load())
	p, err := h.profiles.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.MatchesPlayed)
	assert.Equal(t, 50, p.CloudCredits)
}

func TestSessionService_ConcurrentSessionsDoNotLoseUpdates(t *testing.T) {
	h := newHarness(t, nil)
	h.register(t, "u1")
	ctx := context.Background()

	const sessions = 6
	ids := make([]string, sessions)
	for i := range ids {
		ids[i] = h.startSession(t, "u1", domain.GameSciPopQuiz)
		for j := 0; j < domain.DefaultTotalRounds; j++ {
			view, err := h.svc.Get(ctx, "u1", ids[i])
			require.NoError(t, err)
			q := view.Session.Questions[view.Session.CurrentPhraseIndex]
			_, err = h.svc.SubmitAnswer(ctx, "u1", ids[i], q.CorrectAnswer)
			require.NoError(t, err)
		}
	}

	// Each session already settled on its last answer; the parallel calls only
	// confirm nothing is applied twice.
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = h.svc.Finalize(ctx, "u1", id)
		}(id)
	}
	wg.Wait()

	p, err := h.profiles.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, sessions, p.MatchesPlayed)
	assert.Equal(t, sessions*50, p.CloudCredits, "SCIPOP pays half a credit per point")
	assert.Equal(t, 1000+sessions*10, p.EloRating)
	assert.Len(t, p.MatchHistory, sessions)
}

func TestSessionService_PlayAgainRecordsNewRun(t *testing.T) {
	h := newHarness(t, nil)
	h.register(t, "u1")
	ctx := context.Background()
	id := h.startSession(t, "u1", domain.GameMathQuiz)
	h.playOut(t, "u1", id, 10)

	view, accepted, err := h.svc.Start(ctx, "u1", id)
	require.NoError(t, err)
	require.True(t, accepted)
	assert.False(t, view.RewardsProcessed)
	assert.Equal(t, 1, view.Session.CurrentRound)

	last := h.playOut(t, "u1", id, 0)
	assert.Equal(t, RewardRecorded, last.Rewards.Status)

	p, err := h.profiles.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.MatchesPlayed)
	assert.Equal(t, 100, p.CloudCredits)
	assert.Equal(t, 1005, p.EloRating)
}

func TestSessionService_ReapIdleSessions(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	stale := h.startSession(t, "", domain.GameMathQuiz)

	h.clock.Advance(9 * time.Minute)
	fresh := h.startSession(t, "", domain.GameMathQuiz)
	h.clock.Advance(2 * time.Minute)

	assert.Equal(t, 1, h.svc.Reap())
	assert.Equal(t, 1, h.svc.Count())

	_, err := h.svc.Get(ctx, "", stale)
	assert.True(t, domain.IsNotFound(err))
	_, err = h.svc.Get(ctx, "", fresh)
	assert.NoError(t, err)
	assert.Len(t, h.sched.pending(true), 1, "only the fresh session keeps a timer")
}

func TestSessionService_RunJanitorStopsWithContext(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.svc.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestSessionService_SnapshotUsesServiceClock(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.startSession(t, "u1", domain.GameMathQuiz)
	h.clock.Advance(5 * time.Second)

	ev, err := h.svc.Snapshot(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, ports.EventSnapshot, ev.Type)
	assert.Equal(t, id, ev.SessionID)
	assert.Equal(t, h.clock.Now(), ev.At)
	assert.Equal(t, 40, ev.RemainingSeconds)
	require.NotNil(t, ev.Session)
	assert.Equal(t, 1, ev.Session.CurrentRound)

	_, err = h.svc.Snapshot(ctx, "u2", id)
	assert.True(t, domain.IsForbidden(err))

	require.NoError(t, h.svc.Discard(ctx, "u1", id))
	_, err = h.svc.Snapshot(ctx, "u1", id)
	assert.True(t, domain.IsNotFound(err))
}
