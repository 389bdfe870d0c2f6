package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/chart"
	"github.com/penwyp/go-code-activity/internal/core/chartsync"
	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/metrics"
	"github.com/penwyp/go-code-activity/internal/util"
)

var (
	// ErrRefreshInProgress is returned when a user-triggered refresh overlaps another
	ErrRefreshInProgress = errors.New("refresh already in progress")
	// ErrNotLoaded is returned by Refresh before the initial load completed
	ErrNotLoaded = errors.New("initial load has not completed")
)

// Trigger names what started a refresh
type Trigger int

const (
	TriggerSilent Trigger = iota
	TriggerManual
	TriggerReload
)

func (t Trigger) String() string {
	switch t {
	case TriggerManual:
		return "manual"
	case TriggerReload:
		return "reload"
	default:
		return "silent"
	}
}

// RefreshController replaces the chart series while keeping the live viewport
type RefreshController struct {
	loader      *DataLoader
	state       *StateManager
	cumulative  *chart.Chart
	delta       *chart.Chart
	coordinator *chartsync.Coordinator
	clock       util.Clock
	metrics     *metrics.Metrics

	gateMu       sync.Mutex
	isRefreshing bool // gates manual refreshes and full reloads only

	applyMu    sync.Mutex
	nextGen    uint64
	appliedGen uint64
}

// NewRefreshController creates a new RefreshController instance
func NewRefreshController(loader *DataLoader, state *StateManager, cumulative, delta *chart.Chart,
	coordinator *chartsync.Coordinator, clock util.Clock, m *metrics.Metrics) *RefreshController {
	return &RefreshController{
		loader:      loader,
		state:       state,
		cumulative:  cumulative,
		delta:       delta,
		coordinator: coordinator,
		clock:       clock,
		metrics:     m,
	}
}

// IsRefreshing reports whether a manual refresh or reload is running
func (rc *RefreshController) IsRefreshing() bool {
	rc.gateMu.Lock()
	defer rc.gateMu.Unlock()
	return rc.isRefreshing
}

// Refresh re-runs the pipeline and swaps in the new series. Silent refreshes
// are never gated; manual ones fail fast with ErrRefreshInProgress while
// another manual refresh or reload is running. A result that finishes after
// a newer one was applied is dropped.
func (rc *RefreshController) Refresh(ctx context.Context, trigger Trigger) error {
	if trigger != TriggerSilent {
		if !rc.acquireGate() {
			rc.observe(trigger, "skipped", 0)
			return ErrRefreshInProgress
		}
		defer rc.releaseGate()
	}

	assignment, ok := rc.state.GetAssignment()
	if !ok {
		return ErrNotLoaded
	}
	return rc.refreshSeries(ctx, trigger, assignment, false)
}

// Reload is the full reload: assignment window, log arrays and series, with
// the viewport reset to the full bounds
func (rc *RefreshController) Reload(ctx context.Context) error {
	if !rc.acquireGate() {
		rc.observe(TriggerReload, "skipped", 0)
		return ErrRefreshInProgress
	}
	defer rc.releaseGate()

	rc.state.SetLoadingState(true, "Loading assignment and logs...")
	defer rc.state.SetLoadingState(false, "")

	assignment, err := rc.loader.LoadAssignment(ctx)
	if err != nil {
		rc.state.SetError(err, rc.clock.Now())
		rc.observe(TriggerReload, "error", 0)
		return err
	}
	rc.state.SetAssignment(assignment)

	if err := rc.ReloadLogs(); err != nil {
		util.LogWarn("Log reload incomplete", util.F("error", err.Error()))
	}

	return rc.refreshSeries(ctx, TriggerReload, assignment, true)
}

// ReloadLogs replaces only the build and run log arrays and their markers.
// Events from files that parsed are kept even when others failed.
func (rc *RefreshController) ReloadLogs() error {
	logs, err := rc.loader.LoadLogs()
	rc.state.SetLogs(logs)

	events := make([]model.LogEvent, 0, logs.Len())
	events = append(events, logs.Builds...)
	events = append(events, logs.Runs...)
	bucket := rc.loader.Bucket()
	rc.cumulative.SetMarkers(events, bucket)
	rc.delta.SetMarkers(events, bucket)
	return err
}

func (rc *RefreshController) refreshSeries(ctx context.Context, trigger Trigger, assignment model.Assignment, resetViewport bool) error {
	gen := rc.beginGeneration()
	start := time.Now()

	result, err := rc.loader.LoadSeries(ctx, assignment)
	took := time.Since(start)
	if err != nil {
		rc.state.SetError(err, rc.clock.Now())
		rc.observe(trigger, "error", took)
		util.LogWarn("Refresh failed, keeping last series",
			util.F("trigger", trigger.String()), util.F("error", err.Error()))
		return fmt.Errorf("failed to refresh series: %w", err)
	}
	rc.metrics.AddDiscarded(result.Discarded)

	if !rc.apply(gen, result, resetViewport) {
		rc.observe(trigger, "stale", took)
		util.LogDebug("Dropped stale refresh result", util.F("trigger", trigger.String()), util.F("generation", gen))
		return nil
	}

	rc.observe(trigger, "ok", took)
	util.LogDebug("Refresh applied",
		util.F("trigger", trigger.String()), util.F("points", len(result.Series)), util.F("generation", gen))
	return nil
}

// apply swaps the series on both charts and reapplies the captured viewport
func (rc *RefreshController) apply(gen uint64, result LoadResult, resetViewport bool) bool {
	rc.applyMu.Lock()
	defer rc.applyMu.Unlock()

	if gen <= rc.appliedGen {
		return false
	}
	rc.appliedGen = gen

	captured := rc.cumulative.Viewport()

	rc.cumulative.SetData(result.Series, result.Bounds)
	rc.delta.SetData(result.Series, result.Bounds)

	vp := result.Bounds
	switch {
	case resetViewport || !captured.Valid():
	case captured.Inside(result.Bounds):
		vp = captured
	default:
		vp = captured.Clamp(result.Bounds)
	}
	rc.coordinator.ApplyAll(vp)

	rc.state.SetSeries(result.Series, result.FetchedAt)
	rc.state.ClearError()

	rc.metrics.SetSeriesPoints(model.ChartCumulative.String(), len(result.Series))
	rc.metrics.SetSeriesPoints(model.ChartDelta.String(), len(result.Series))
	return true
}

func (rc *RefreshController) beginGeneration() uint64 {
	rc.applyMu.Lock()
	defer rc.applyMu.Unlock()
	rc.nextGen++
	return rc.nextGen
}

func (rc *RefreshController) acquireGate() bool {
	rc.gateMu.Lock()
	defer rc.gateMu.Unlock()
	if rc.isRefreshing {
		return false
	}
	rc.isRefreshing = true
	return true
}

func (rc *RefreshController) releaseGate() {
	rc.gateMu.Lock()
	defer rc.gateMu.Unlock()
	rc.isRefreshing = false
}

func (rc *RefreshController) observe(trigger Trigger, result string, took time.Duration) {
	rc.metrics.ObserveRefresh(trigger.String(), result, took, rc.clock.Now())
}
