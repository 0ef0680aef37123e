package usecase

import (
	"sync"
	"time"

	"neuroforge/src/core/ports"
)

// tickInterval is how often a running round reports its remaining time.
const tickInterval = time.Second

// SystemScheduler schedules callbacks on the runtime timer.
type SystemScheduler struct{}

// AfterFunc implements ports.Scheduler with time.AfterFunc.
func (SystemScheduler) AfterFunc(d time.Duration, f func()) ports.Cancel {
	t := time.AfterFunc(d, f)
	return t.Stop
}

// RoundTimer owns the countdown of one session: an expiry callback for the round
// in progress plus a one-second tick. Arming a new round cancels the previous one.
type RoundTimer struct {
	scheduler ports.Scheduler

	mu     sync.Mutex
	gen    uint64
	expire ports.Cancel
	tick   ports.Cancel
}

// NewRoundTimer creates a stopped timer.
func NewRoundTimer(scheduler ports.Scheduler) *RoundTimer {
	if scheduler == nil {
		scheduler = SystemScheduler{}
	}
	return &RoundTimer{scheduler: scheduler}
}

// Arm starts the countdown for round, expiring after d. onExpire and onTick receive
// the round they were armed for; callbacks from a superseded arming never fire.
func (t *RoundTimer) Arm(round int, d time.Duration, onExpire, onTick func(round int)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.gen++
	gen := t.gen

	if d < 0 {
		d = 0
	}
	t.expire = t.scheduler.AfterFunc(d, func() {
		if !t.current(gen) {
			return
		}
		onExpire(round)
	})
	if onTick != nil {
		t.scheduleTick(gen, round, onTick)
	}
}

func (t *RoundTimer) scheduleTick(gen uint64, round int, onTick func(round int)) {
	t.tick = t.scheduler.AfterFunc(tickInterval, func() {
		if !t.current(gen) {
			return
		}
		onTick(round)

		t.mu.Lock()
		defer t.mu.Unlock()
		if t.gen == gen {
			t.scheduleTick(gen, round, onTick)
		}
	})
}

// Stop cancels any pending expiry and tick.
func (t *RoundTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.gen++
}

func (t *RoundTimer) current(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen == gen
}

func (t *RoundTimer) stopLocked() {
	if t.expire != nil {
		t.expire()
		t.expire = nil
	}
	if t.tick != nil {
		t.tick()
		t.tick = nil
	}
}
