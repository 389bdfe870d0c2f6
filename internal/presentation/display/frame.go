package display

import (
	"time"

	"github.com/penwyp/go-code-activity/internal/core/chart"
	"github.com/penwyp/go-code-activity/internal/core/model"
)

// Frame is everything one redraw needs. It is assembled from snapshots so
// rendering never holds a chart or state lock.
type Frame struct {
	Title       string
	Cumulative  chart.Snapshot
	Delta       chart.Snapshot
	Interaction model.InteractionState
	Status      Status
}

// Status summarises refresh and log state for the status panel
type Status struct {
	LastUpdate     time.Time
	Err            error
	ErrAt          time.Time
	Loading        bool
	LoadingMessage string
	Refreshing     bool
	Polling        bool
	Interval       model.Interval
	Builds         int
	BuildFailures  int
	Runs           int
	RunFailures    int
}

// Snapshot returns the snapshot of the given chart
func (f Frame) Snapshot(id model.ChartID) chart.Snapshot {
	if id == model.ChartDelta {
		return f.Delta
	}
	return f.Cumulative
}
