package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/penwyp/go-code-activity/internal/util"
)

// SchedulerState of the auto-refresh poller
type SchedulerState int

const (
	SchedulerIdle SchedulerState = iota
	SchedulerPolling
)

func (s SchedulerState) String() string {
	if s == SchedulerPolling {
		return "polling"
	}
	return "idle"
}

// Scheduler polls while auto-refresh is enabled and the initial load has
// completed. The next tick is armed after the previous refresh returns, so
// scheduled refreshes never overlap each other.
type Scheduler struct {
	mu      sync.Mutex
	clock   util.Clock
	period  time.Duration
	refresh func(ctx context.Context)

	enabled bool
	loaded  bool
	stopped bool
	state   SchedulerState

	timer      util.Timer
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	ticks      int
}

// NewScheduler creates an idle scheduler
func NewScheduler(clock util.Clock, period time.Duration, refresh func(ctx context.Context)) *Scheduler {
	return &Scheduler{
		clock:   clock,
		period:  period,
		refresh: refresh,
	}
}

// SetEnabled toggles auto-refresh
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
	s.evaluateLocked()
}

// Enabled reports whether auto-refresh is switched on
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// MarkLoaded records that the initial load completed
func (s *Scheduler) MarkLoaded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.evaluateLocked()
}

// Stop tears the scheduler down; it never polls again
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.evaluateLocked()
}

// State returns the current state
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ticks returns how many scheduled refreshes have run
func (s *Scheduler) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

func (s *Scheduler) evaluateLocked() {
	want := s.enabled && s.loaded && !s.stopped
	switch {
	case want && s.state == SchedulerIdle:
		s.state = SchedulerPolling
		s.ctx, s.cancel = context.WithCancel(context.Background())
		s.armLocked()
		util.LogDebug("auto-refresh polling", util.F("period", s.period.String()))
	case !want && s.state == SchedulerPolling:
		s.state = SchedulerIdle
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		s.cancel()
		s.generation++
		util.LogDebug("auto-refresh idle")
	}
}

func (s *Scheduler) armLocked() {
	s.generation++
	gen := s.generation
	s.timer = s.clock.AfterFunc(s.period, func() { s.tick(gen) })
}

func (s *Scheduler) tick(gen uint64) {
	s.mu.Lock()
	if s.state != SchedulerPolling || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.ticks++
	ctx := s.ctx
	s.mu.Unlock()

	s.refresh(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SchedulerPolling && gen == s.generation {
		s.armLocked()
	}
}
