package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/penwyp/go-code-activity/internal/core/chart"
	"github.com/penwyp/go-code-activity/internal/core/chartsync"
	"github.com/penwyp/go-code-activity/internal/core/correlate"
	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/metrics"
	"github.com/penwyp/go-code-activity/internal/util"
)

// ViewOption configures a View
type ViewOption func(*viewOptions)

type viewOptions struct {
	clock   util.Clock
	metrics *metrics.Metrics
}

// WithClock drives every timer of the view from clock
func WithClock(clock util.Clock) ViewOption {
	return func(o *viewOptions) { o.clock = clock }
}

// WithMetrics records refresh and sync metrics
func WithMetrics(m *metrics.Metrics) ViewOption {
	return func(o *viewOptions) { o.metrics = m }
}

// View is one mount of the monitor for a (course, assignment, user). It owns
// both charts, their sync coordinator and every timer; nothing is shared
// between views.
type View struct {
	id          string
	config      *Config
	clock       util.Clock
	cumulative  *chart.Chart
	delta       *chart.Chart
	coordinator *chartsync.Coordinator
	state       *StateManager
	loader      *DataLoader
	refresh     *RefreshController
	scheduler   *Scheduler
	correlator  correlate.Correlator

	closeOnce sync.Once
}

// NewView wires a view. The config must already be validated.
func NewView(config *Config, source TelemetrySource, opts ...ViewOption) (*View, error) {
	o := viewOptions{clock: util.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := util.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}

	v := &View{
		id:         uuid.NewString(),
		config:     config,
		clock:      o.clock,
		cumulative: chart.New(model.ChartCumulative),
		delta:      chart.New(model.ChartDelta),
		state:      NewStateManager(),
		correlator: correlate.Correlator{Tolerance: config.CorrelationTolerance},
	}

	v.cumulative.SetLocation(loc)
	v.delta.SetLocation(loc)

	v.coordinator = chartsync.New(
		chartsync.WithClock(o.clock),
		chartsync.WithTimings(config.SyncDebounce, config.SyncCooldown),
		chartsync.WithObserver(o.metrics.ObserveSync),
	)
	for _, c := range []*chart.Chart{v.cumulative, v.delta} {
		if _, err := v.coordinator.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register %s chart: %w", c.ID(), err)
		}
	}

	v.loader = NewDataLoader(config, source, o.clock)
	v.refresh = NewRefreshController(v.loader, v.state, v.cumulative, v.delta, v.coordinator, o.clock, o.metrics)
	v.scheduler = NewScheduler(o.clock, config.RefreshPeriod, v.silentRefresh)
	v.scheduler.SetEnabled(config.AutoRefresh)
	v.state.UpdateInteractionState(func(s *model.InteractionState) {
		s.AutoRefresh = config.AutoRefresh
	})

	util.LogInfo("View mounted", util.F("id", v.id), util.F("course", config.Course),
		util.F("assignment", config.Assignment), util.F("user", config.User))
	return v, nil
}

// ID returns the mount identifier
func (v *View) ID() string {
	return v.id
}

// Chart returns one of the two charts
func (v *View) Chart(id model.ChartID) *chart.Chart {
	if id == model.ChartDelta {
		return v.delta
	}
	return v.cumulative
}

// Coordinator returns the sync coordinator shared by both charts
func (v *View) Coordinator() *chartsync.Coordinator {
	return v.coordinator
}

// State returns the state manager
func (v *View) State() *StateManager {
	return v.state
}

// Scheduler returns the auto-refresh scheduler
func (v *View) Scheduler() *Scheduler {
	return v.scheduler
}

// Config returns the view configuration
func (v *View) Config() *Config {
	return v.config
}

// Load performs the initial (or a user requested) full reload. Polling
// starts once the assignment window is known.
func (v *View) Load(ctx context.Context) error {
	err := v.refresh.Reload(ctx)
	if _, ok := v.state.GetAssignment(); ok {
		v.scheduler.MarkLoaded()
	}
	return err
}

// RefreshNow runs a user-triggered refresh
func (v *View) RefreshNow(ctx context.Context) error {
	return v.refresh.Refresh(ctx, TriggerManual)
}

// ReloadLogs replaces only the build and run logs
func (v *View) ReloadLogs() error {
	return v.refresh.ReloadLogs()
}

// SetAutoRefresh toggles polling
func (v *View) SetAutoRefresh(enabled bool) {
	v.scheduler.SetEnabled(enabled)
	v.state.UpdateInteractionState(func(s *model.InteractionState) {
		s.AutoRefresh = enabled
	})
}

// Lookup correlates an instant with the nearest matching log event and
// stores the result in the interaction state
func (v *View) Lookup(at time.Time, target correlate.Target) (correlate.Match, bool) {
	match, ok := v.correlator.Resolve(v.state.GetLogs(), at, target)
	v.state.UpdateInteractionState(func(s *model.InteractionState) {
		if !ok {
			s.Detail = nil
			s.StatusMessage = fmt.Sprintf("no %s event near %s", target, at.Format("2006-01-02 15:04"))
			return
		}
		s.Detail = &model.EventDetail{Event: match.Event, Distance: util.FormatDuration(match.Distance)}
		s.StatusMessage = ""
	})
	return match, ok
}

// LookupAtCursor correlates the instant under the cursor of the active chart
func (v *View) LookupAtCursor(target correlate.Target) (correlate.Match, bool) {
	state := v.state.GetInteractionState()
	at := v.Chart(state.ActiveChart).TimeAt(state.CursorFrac)
	return v.Lookup(at, target)
}

// Close cancels the poll, debounce and cool-down timers
func (v *View) Close() {
	v.closeOnce.Do(func() {
		v.scheduler.Stop()
		v.coordinator.Close()
		util.LogInfo("View unmounted", util.F("id", v.id))
	})
}

func (v *View) silentRefresh(ctx context.Context) {
	if err := v.refresh.Refresh(ctx, TriggerSilent); err != nil {
		util.LogWarn("Scheduled refresh failed", util.F("error", err.Error()))
	}
}
