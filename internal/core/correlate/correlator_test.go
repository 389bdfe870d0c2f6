package correlate

import (
	"testing"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)

func runs() []model.LogEvent {
	return []model.LogEvent{
		{Timestamp: base, Kind: model.KindRun, ExitCode: 1, Command: "go run ."},
		{Timestamp: base.Add(30 * time.Minute), Kind: model.KindRun, ExitCode: 0, Command: "go run ."},
		{Timestamp: base.Add(2 * time.Hour), Kind: model.KindRun, ExitCode: 2, Command: "go run ./cmd"},
	}
}

func TestNearest(t *testing.T) {
	c := New()
	failure := Target{Kind: model.KindRun, Outcome: model.OutcomeFailure}

	tests := []struct {
		name      string
		at        time.Time
		wantIndex int
		wantOK    bool
	}{
		{name: "exact timestamp", at: base, wantIndex: 0, wantOK: true},
		{name: "closer to later failure", at: base.Add(100 * time.Minute), wantIndex: 2, wantOK: true},
		{name: "65 minutes away is outside tolerance", at: base.Add(-65 * time.Minute), wantOK: false},
		{name: "exactly one hour is outside tolerance", at: base.Add(-time.Hour), wantOK: false},
		{name: "just inside tolerance", at: base.Add(-59 * time.Minute), wantIndex: 0, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := c.Nearest(runs(), tt.at, failure)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantIndex, m.Index)
				assert.Equal(t, runs()[tt.wantIndex], m.Event)
			} else {
				assert.Equal(t, Match{}, m)
			}
		})
	}
}

func TestNearestFiltersOutcome(t *testing.T) {
	m, ok := New().Nearest(runs(), base.Add(25*time.Minute), Target{Kind: model.KindRun, Outcome: model.OutcomeSuccess})
	require.True(t, ok)
	assert.Equal(t, 1, m.Index)
	assert.Equal(t, 5*time.Minute, m.Distance)
}

func TestNearestTieGoesToEarliest(t *testing.T) {
	events := []model.LogEvent{
		{Timestamp: base.Add(-10 * time.Minute), Kind: model.KindBuild, ExitCode: 1},
		{Timestamp: base.Add(10 * time.Minute), Kind: model.KindBuild, ExitCode: 1},
	}
	m, ok := New().Nearest(events, base, Target{Kind: model.KindBuild, Outcome: model.OutcomeFailure})
	require.True(t, ok)
	assert.Equal(t, 0, m.Index)
}

func TestResolveUsesKindList(t *testing.T) {
	logs := model.LogSet{
		Builds: []model.LogEvent{{Timestamp: base, Kind: model.KindBuild, ExitCode: 1}},
		Runs:   runs(),
	}
	m, ok := New().Resolve(logs, base.Add(time.Minute), Target{Kind: model.KindBuild, Outcome: model.OutcomeFailure})
	require.True(t, ok)
	assert.Equal(t, model.KindBuild, m.Event.Kind)

	_, ok = New().Resolve(model.LogSet{}, base, Target{Kind: model.KindRun, Outcome: model.OutcomeFailure})
	assert.False(t, ok)
}

func TestParseTarget(t *testing.T) {
	target, err := ParseTarget("run-failure")
	require.NoError(t, err)
	assert.Equal(t, Target{Kind: model.KindRun, Outcome: model.OutcomeFailure}, target)
	assert.Equal(t, "run-failure", target.String())

	target, err = ParseTarget("build-ok")
	require.NoError(t, err)
	assert.Equal(t, Target{Kind: model.KindBuild, Outcome: model.OutcomeSuccess}, target)

	for _, bad := range []string{"run", "deploy-failure", "run-maybe"} {
		_, err := ParseTarget(bad)
		assert.ErrorIs(t, err, ErrUnknownKind, bad)
	}
}
