package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/penwyp/go-code-activity/internal/util"
	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)

func newTestScheduler() (*Scheduler, *util.ManualClock, *int) {
	clock := util.NewManualClock(epoch)
	calls := 0
	s := NewScheduler(clock, time.Minute, func(context.Context) { calls++ })
	return s, clock, &calls
}

func TestSchedulerPollsOnlyWhenEnabledAndLoaded(t *testing.T) {
	s, clock, calls := newTestScheduler()

	s.SetEnabled(true)
	assert.Equal(t, SchedulerIdle, s.State(), "not loaded yet")
	clock.Advance(5 * time.Minute)
	assert.Zero(t, *calls)

	s.MarkLoaded()
	assert.Equal(t, SchedulerPolling, s.State())
	assert.Equal(t, "polling", s.State().String())

	clock.Advance(time.Minute)
	assert.Equal(t, 1, *calls)
	clock.Advance(3 * time.Minute)
	assert.Equal(t, 4, *calls)
	assert.Equal(t, 4, s.Ticks())
}

func TestSchedulerLoadedButDisabled(t *testing.T) {
	s, clock, calls := newTestScheduler()

	s.MarkLoaded()
	assert.Equal(t, SchedulerIdle, s.State())
	clock.Advance(10 * time.Minute)
	assert.Zero(t, *calls)
	assert.Zero(t, clock.Pending())
}

func TestSchedulerDisableCancelsPendingTick(t *testing.T) {
	s, clock, calls := newTestScheduler()
	s.MarkLoaded()
	s.SetEnabled(true)

	clock.Advance(30 * time.Second)
	s.SetEnabled(false)
	assert.Equal(t, SchedulerIdle, s.State())
	assert.Zero(t, clock.Pending())

	clock.Advance(5 * time.Minute)
	assert.Zero(t, *calls)

	// re-enabling starts a fresh period
	s.SetEnabled(true)
	clock.Advance(59 * time.Second)
	assert.Zero(t, *calls)
	clock.Advance(time.Second)
	assert.Equal(t, 1, *calls)
}

func TestSchedulerStopIsFinal(t *testing.T) {
	s, clock, calls := newTestScheduler()
	s.MarkLoaded()
	s.SetEnabled(true)

	s.Stop()
	assert.Equal(t, SchedulerIdle, s.State())
	s.SetEnabled(true)
	assert.Equal(t, SchedulerIdle, s.State(), "a stopped scheduler never polls again")

	clock.Advance(10 * time.Minute)
	assert.Zero(t, *calls)
}

func TestSchedulerRearmsAfterRefreshReturns(t *testing.T) {
	clock := util.NewManualClock(epoch)
	var ranAt []time.Time
	s := NewScheduler(clock, time.Minute, func(context.Context) {
		ranAt = append(ranAt, clock.Now())
		// a refresh that takes virtual time delays the next tick
		clock.Set(clock.Now().Add(20 * time.Second))
	})
	s.MarkLoaded()
	s.SetEnabled(true)

	clock.Advance(3 * time.Minute)
	if assert.Len(t, ranAt, 2) {
		assert.Equal(t, epoch.Add(time.Minute), ranAt[0])
		assert.Equal(t, epoch.Add(2*time.Minute+20*time.Second), ranAt[1])
	}
}

func TestSchedulerCancelsContextWhenIdle(t *testing.T) {
	clock := util.NewManualClock(epoch)
	var captured context.Context
	s := NewScheduler(clock, time.Minute, func(ctx context.Context) { captured = ctx })
	s.MarkLoaded()
	s.SetEnabled(true)

	clock.Advance(time.Minute)
	if assert.NotNil(t, captured) {
		assert.NoError(t, captured.Err())
		s.SetEnabled(false)
		assert.ErrorIs(t, captured.Err(), context.Canceled)
	}
}
