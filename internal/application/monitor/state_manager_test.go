package monitor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func TestStateManagerAssignment(t *testing.T) {
	sm := NewStateManager()

	_, ok := sm.GetAssignment()
	assert.False(t, ok, "nothing loaded yet")

	a := model.Assignment{ID: "a1", Start: epoch, End: epoch.Add(24 * time.Hour)}
	sm.SetAssignment(a)
	got, ok := sm.GetAssignment()
	assert.True(t, ok)
	assert.Equal(t, a, got)
}

func TestStateManagerErrorKeepsSeries(t *testing.T) {
	sm := NewStateManager()
	series := model.Series{{Timestamp: epoch, TotalBytes: 10, Delta: 10}}
	sm.SetSeries(series, epoch)

	sm.SetError(errors.New("timeout"), epoch.Add(time.Minute))
	assert.Equal(t, series, sm.GetSeries())
	assert.Equal(t, epoch, sm.GetLastDataUpdate())

	indicator := sm.GetError()
	assert.EqualError(t, indicator.Err, "timeout")
	assert.Equal(t, epoch.Add(time.Minute), indicator.At)

	sm.ClearError()
	assert.NoError(t, sm.GetError().Err)
	assert.True(t, sm.GetError().At.IsZero())
}

func TestStateManagerLoadingAndInteraction(t *testing.T) {
	sm := NewStateManager()

	sm.SetLoadingState(true, "Loading")
	loading, msg := sm.GetLoadingState()
	assert.True(t, loading)
	assert.Equal(t, "Loading", msg)

	sm.UpdateInteractionState(func(s *model.InteractionState) {
		s.ShowHelp = true
		s.ActiveChart = model.ChartDelta
	})
	state := sm.GetInteractionState()
	assert.True(t, state.ShowHelp)
	assert.Equal(t, model.ChartDelta, state.ActiveChart)
}

func TestStateManagerConcurrentAccess(t *testing.T) {
	sm := NewStateManager()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			sm.UpdateInteractionState(func(s *model.InteractionState) { s.CursorFrac += 0.01 })
			sm.SetLogs(model.LogSet{Runs: []model.LogEvent{{Timestamp: epoch.Add(time.Duration(i) * time.Second)}}})
		}(i)
		go func() {
			defer wg.Done()
			_ = sm.GetInteractionState()
			_ = sm.GetLogs()
		}()
	}
	wg.Wait()
	assert.InDelta(t, 0.2, sm.GetInteractionState().CursorFrac, 1e-9)
	assert.Len(t, sm.GetLogs().Runs, 1)
}
