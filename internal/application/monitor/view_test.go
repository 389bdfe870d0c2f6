package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/correlate"
	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/data/ingest"
	"github.com/penwyp/go-code-activity/internal/testing/fixtures"
	"github.com/penwyp/go-code-activity/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	windowStart = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	windowEnd   = windowStart.Add(48 * time.Hour)
	mountedAt   = windowStart.Add(6 * time.Hour)
)

type harness struct {
	endpoint *fixtures.FakeEndpoint
	clock    *util.ManualClock
	config   *Config
	view     *View
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()
	require.NoError(t, util.InitializeTimeProvider("UTC"))

	endpoint := fixtures.NewFakeEndpoint()
	endpoint.SetWindow("a1", windowStart, windowEnd)
	endpoint.AddEdits(fixtures.SteadyEdits(windowStart, 24, 10*time.Minute, 100)...)
	srv := httptest.NewServer(endpoint.Router())
	t.Cleanup(srv.Close)

	cfg := validConfig()
	cfg.BaseURL = srv.URL
	cfg.Timezone = "UTC"
	for _, m := range mutate {
		m(cfg)
	}
	require.NoError(t, cfg.Validate())

	clock := util.NewManualClock(mountedAt)
	view, err := NewView(cfg, ingest.NewClient(srv.URL), WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(view.Close)

	return &harness{endpoint: endpoint, clock: clock, config: cfg, view: view}
}

func (h *harness) viewports() (model.Viewport, model.Viewport) {
	return h.view.Chart(model.ChartCumulative).Viewport(), h.view.Chart(model.ChartDelta).Viewport()
}

func TestViewLoadShowsAssignmentWindow(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.view.Load(context.Background()))

	assignment, ok := h.view.State().GetAssignment()
	require.True(t, ok)
	assert.Equal(t, "a1", assignment.ID)

	cum, delta := h.viewports()
	want := model.Viewport{XMin: windowStart, XMax: windowEnd}
	assert.True(t, cum.Equal(want), "got %s", cum)
	assert.True(t, delta.Equal(want), "got %s", delta)

	series := h.view.State().GetSeries()
	require.NotEmpty(t, series)
	assert.True(t, series[0].Timestamp.Equal(windowStart))
	assert.True(t, series[len(series)-1].Timestamp.Equal(mountedAt), "series is filled up to now")
	assert.Equal(t, series[len(series)-2].TotalBytes, series[len(series)-1].TotalBytes)
	assert.Equal(t, mountedAt, h.view.State().GetLastDataUpdate())
	assert.True(t, h.view.Chart(model.ChartCumulative).HasData())
}

func TestViewRefreshBeforeLoad(t *testing.T) {
	h := newHarness(t)
	err := h.view.RefreshNow(context.Background())
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.Zero(t, h.endpoint.Requests())
}

func TestViewSilentRefreshKeepsZoom(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.AutoRefresh = true })
	require.NoError(t, h.view.Load(context.Background()))
	assert.Equal(t, SchedulerPolling, h.view.Scheduler().State())
	h.clock.Advance(h.config.SyncCooldown)

	zoomed := model.Viewport{XMin: windowStart.Add(time.Hour), XMax: windowStart.Add(3 * time.Hour)}
	h.view.Chart(model.ChartCumulative).SetViewport(zoomed)
	_, delta := h.viewports()
	assert.False(t, delta.Equal(zoomed), "the other chart follows only after the debounce")

	h.clock.Advance(h.config.SyncDebounce + h.config.SyncCooldown)
	_, delta = h.viewports()
	assert.True(t, delta.Equal(zoomed))

	before := len(h.view.State().GetSeries())
	h.endpoint.AddEdits(fixtures.Edit{At: mountedAt.Add(30 * time.Second), Change: 700})
	h.clock.Advance(h.config.RefreshPeriod)

	assert.Equal(t, 1, h.view.Scheduler().Ticks())
	cum, delta := h.viewports()
	assert.True(t, cum.Equal(zoomed), "silent refresh keeps the zoom, got %s", cum)
	assert.True(t, delta.Equal(zoomed), "got %s", delta)

	series := h.view.State().GetSeries()
	assert.GreaterOrEqual(t, len(series), before)
	last := series[len(series)-1]
	assert.True(t, last.Timestamp.Equal(mountedAt.Add(h.config.RefreshPeriod)), "filled up to the tick")
}

func TestViewReloadResetsViewport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.view.Load(ctx))
	h.clock.Advance(h.config.SyncCooldown)

	h.view.Chart(model.ChartDelta).SetViewport(model.Viewport{XMin: windowStart.Add(time.Hour), XMax: windowStart.Add(2 * time.Hour)})
	h.clock.Advance(time.Second)

	require.NoError(t, h.view.Load(ctx))
	cum, delta := h.viewports()
	want := model.Viewport{XMin: windowStart, XMax: windowEnd}
	assert.True(t, cum.Equal(want))
	assert.True(t, delta.Equal(want))
}

func TestRefreshApplyClampsOutsideViewport(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.view.Load(context.Background()))

	late := model.Viewport{XMin: windowStart.Add(40 * time.Hour), XMax: windowStart.Add(46 * time.Hour)}
	h.view.Coordinator().ApplyAll(late)
	h.clock.Advance(time.Second)

	rc := h.view.refresh
	narrow := model.Bounds{XMin: windowStart, XMax: windowStart.Add(24 * time.Hour)}
	applied := rc.apply(rc.beginGeneration(), LoadResult{
		Series:    h.view.State().GetSeries(),
		Bounds:    narrow,
		FetchedAt: h.clock.Now(),
	}, false)
	require.True(t, applied)

	cum, delta := h.viewports()
	want := model.Viewport{XMin: windowStart.Add(18 * time.Hour), XMax: windowStart.Add(24 * time.Hour)}
	assert.True(t, cum.Equal(want), "shifted back inside keeping its span, got %s", cum)
	assert.True(t, delta.Equal(want))
}

func TestRefreshApplyDropsStaleResult(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.view.Load(context.Background()))
	rc := h.view.refresh

	older := rc.beginGeneration()
	newer := rc.beginGeneration()
	newSeries := model.Series{{Timestamp: windowStart, TotalBytes: 42, Delta: 42}}
	bounds := model.Bounds{XMin: windowStart, XMax: windowEnd}

	require.True(t, rc.apply(newer, LoadResult{Series: newSeries, Bounds: bounds, FetchedAt: h.clock.Now()}, false))
	assert.False(t, rc.apply(older, LoadResult{Series: model.Series{}, Bounds: bounds}, false))
	assert.Equal(t, newSeries, h.view.State().GetSeries())
}

func TestManualRefreshIsGated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.view.Load(ctx))

	h.endpoint.SetDelay(300 * time.Millisecond)
	done := make(chan error, 1)
	go func() { done <- h.view.RefreshNow(ctx) }()

	require.Eventually(t, h.view.refresh.IsRefreshing, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, h.view.RefreshNow(ctx), ErrRefreshInProgress)
	assert.ErrorIs(t, h.view.Load(ctx), ErrRefreshInProgress)
	assert.NoError(t, h.view.refresh.Refresh(ctx, TriggerSilent), "silent refreshes are never gated")

	require.NoError(t, <-done)
	assert.False(t, h.view.refresh.IsRefreshing())
	assert.NoError(t, h.view.RefreshNow(ctx))
}

func TestRefreshFailureKeepsLastSeries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.view.Load(ctx))
	before := h.view.State().GetSeries()
	updated := h.view.State().GetLastDataUpdate()

	h.endpoint.SetStatus(http.StatusServiceUnavailable)
	h.clock.Advance(time.Minute)
	err := h.view.RefreshNow(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ingest.ErrUnexpectedStatus)

	assert.Equal(t, before, h.view.State().GetSeries())
	assert.Equal(t, before, h.view.Chart(model.ChartCumulative).Series())
	assert.Equal(t, updated, h.view.State().GetLastDataUpdate())
	indicator := h.view.State().GetError()
	assert.Error(t, indicator.Err)
	assert.Equal(t, h.clock.Now(), indicator.At)

	h.endpoint.SetStatus(http.StatusOK)
	require.NoError(t, h.view.RefreshNow(ctx))
	assert.NoError(t, h.view.State().GetError().Err, "a successful refresh clears the indicator")
}

func TestViewFillsSingleSampleToNow(t *testing.T) {
	h := newHarness(t)
	h.endpoint.SetRaw([]fixtures.Trend{
		{Timestamp: "20240301_0900", TotalSize: 1000, SizeChange: 1000},
		{Timestamp: "garbage", TotalSize: 5},
	})
	require.NoError(t, h.view.Load(context.Background()))

	series := h.view.State().GetSeries()
	require.GreaterOrEqual(t, len(series), 3)
	assert.True(t, series[0].Timestamp.Equal(windowStart))
	assert.Zero(t, series[0].TotalBytes, "zero sample prepended at the assignment start")
	assert.True(t, series[1].Timestamp.Equal(windowStart.Add(time.Hour)))
	last := series[len(series)-1]
	assert.True(t, last.Timestamp.Equal(mountedAt))
	assert.Equal(t, uint64(1000), last.TotalBytes)
	assert.Zero(t, last.Delta)
}

func TestViewReloadLogsPlacesMarkers(t *testing.T) {
	dir := t.TempDir()
	gen := fixtures.NewTestDataGenerator(dir)
	require.NoError(t, gen.GenerateWorkSession("a1", windowStart.Add(time.Hour), 6))

	h := newHarness(t, func(c *Config) { c.LogDir = dir })
	require.NoError(t, h.view.Load(context.Background()))

	logs := h.view.State().GetLogs()
	assert.Len(t, logs.Builds, 6)
	assert.Equal(t, 2, logs.Failures(model.KindBuild))
	assert.Len(t, logs.Runs, 4)

	markers := h.view.Chart(model.ChartDelta).Markers()
	assert.Len(t, markers, 10)
	for _, m := range markers {
		assert.True(t, m.Position.Equal(m.Position.Truncate(5*time.Minute)), "markers align to the bucket width")
	}
	assert.Len(t, h.view.Chart(model.ChartCumulative).Markers(), 10)
}

func TestViewLookup(t *testing.T) {
	h := newHarness(t)
	h.view.State().SetLogs(model.LogSet{
		Builds: []model.LogEvent{
			{Timestamp: windowStart.Add(40 * time.Minute), Kind: model.KindBuild, ExitCode: 1, Command: "make"},
			{Timestamp: windowStart.Add(50 * time.Minute), Kind: model.KindBuild, ExitCode: 0, Command: "make"},
		},
	})

	match, ok := h.view.Lookup(windowStart.Add(30*time.Minute), correlate.Target{Kind: model.KindBuild, Outcome: model.OutcomeFailure})
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, match.Distance)
	state := h.view.State().GetInteractionState()
	require.NotNil(t, state.Detail)
	assert.Equal(t, "10m", state.Detail.Distance)
	assert.Equal(t, 1, state.Detail.Event.ExitCode)

	_, ok = h.view.Lookup(windowStart.Add(30*time.Minute), correlate.Target{Kind: model.KindRun, Outcome: model.OutcomeSuccess})
	assert.False(t, ok)
	state = h.view.State().GetInteractionState()
	assert.Nil(t, state.Detail)
	assert.Contains(t, state.StatusMessage, "no run-success event near 2024-03-01 08:30")

	_, ok = h.view.Lookup(windowStart.Add(3*time.Hour), correlate.Target{Kind: model.KindBuild, Outcome: model.OutcomeFailure})
	assert.False(t, ok, "events beyond the tolerance do not match")
}

func TestViewCloseStopsTimers(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.AutoRefresh = true })
	require.NoError(t, h.view.Load(context.Background()))
	h.view.Chart(model.ChartCumulative).Pan(-0.1)

	h.view.Close()
	assert.Equal(t, SchedulerIdle, h.view.Scheduler().State())
	assert.Zero(t, h.clock.Pending())

	requests := h.endpoint.Requests()
	h.clock.Advance(5 * time.Minute)
	assert.Equal(t, requests, h.endpoint.Requests())
}
