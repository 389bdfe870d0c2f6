package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/penwyp/go-code-activity/internal/core/correlate"
	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/metrics"
	"github.com/penwyp/go-code-activity/internal/presentation/display"
	"github.com/penwyp/go-code-activity/internal/presentation/interaction"
	"github.com/penwyp/go-code-activity/internal/util"
)

// Key bindings that move the view
const (
	panStep    = 0.25
	cursorStep = 0.05
	zoomIn     = 0.5
	zoomOut    = 2.0
)

// Orchestrator runs the interactive monitor: it draws frames, reacts to
// keys and reloads logs when their files change
type Orchestrator struct {
	config  *Config
	view    *View
	metrics *metrics.Metrics

	display  DisplayController
	keyboard InputHandler
	watcher  FileMonitor

	metricsServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

// NewOrchestrator validates the config and mounts a view over source
func NewOrchestrator(config *Config, source TelemetrySource, m *metrics.Metrics, opts ...ViewOption) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	view, err := NewView(config, source, append([]ViewOption{WithMetrics(m)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create view: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		config:  config,
		view:    view,
		metrics: m,
		display: display.NewTerminalDisplay(),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// View returns the mounted view
func (o *Orchestrator) View() *View {
	return o.view
}

// Run starts the main monitoring loop
func (o *Orchestrator) Run(ctx context.Context) error {
	util.LogInfo("Starting code activity monitor...")
	defer o.Close()

	if err := util.InitializeTimeProvider(o.config.Timezone); err != nil {
		return fmt.Errorf("failed to initialize timezone: %w", err)
	}

	if o.keyboard == nil {
		keyboard, err := interaction.NewKeyboardReader()
		if err != nil {
			return fmt.Errorf("failed to initialize keyboard: %w", err)
		}
		o.keyboard = keyboard
	}

	o.display.EnterAlternateScreen()
	defer o.display.ExitAlternateScreen()

	o.startMetricsServer()

	o.view.State().SetLoadingState(true, "Loading assignment and activity...")
	o.updateDisplay()

	// A failed first load still leaves the loop running so the error is
	// shown and the user can retry with R
	if err := o.view.Load(ctx); err != nil {
		util.LogError("Initial load failed", util.F("error", err.Error()))
		o.setStatus(fmt.Sprintf("load failed: %v", err))
	}
	o.view.State().SetLoadingState(false, "")

	if err := o.startWatcher(); err != nil {
		util.LogWarn("Log watching disabled", util.F("error", err.Error()))
	}

	uiTicker := time.NewTicker(time.Duration(1000/o.config.UIRefreshRate) * time.Millisecond)
	defer uiTicker.Stop()

	o.updateDisplay()

	for {
		select {
		case <-ctx.Done():
			util.LogInfo("Shutting down code activity monitor...")
			return nil

		case <-uiTicker.C:
			o.updateDisplay()

		case event := <-o.watcherEvents():
			o.handleFileChange(event)

		case keyEvent := <-o.keyboard.Events():
			if o.handleKeyboard(keyEvent) {
				return nil
			}
			o.updateDisplay()
		}
	}
}

// watcherEvents returns a nil channel when logs are not watched; a nil
// channel blocks forever in select
func (o *Orchestrator) watcherEvents() <-chan model.FileEvent {
	if o.watcher == nil {
		return nil
	}
	return o.watcher.Events()
}

func (o *Orchestrator) startWatcher() error {
	if !o.config.WatchLogs || o.config.LogDir == "" || o.watcher != nil {
		return nil
	}
	watcher, err := NewLogWatcher([]string{o.config.LogDir})
	if err != nil {
		return err
	}
	o.watcher = watcher
	return nil
}

func (o *Orchestrator) startMetricsServer() {
	if o.config.MetricsAddr == "" || o.metrics == nil {
		return
	}

	router := mux.NewRouter()
	router.Handle("/metrics", o.metrics.Handler()).Methods(http.MethodGet)
	o.metricsServer = &http.Server{
		Addr:              o.config.MetricsAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		util.LogInfo("Serving metrics", util.F("addr", o.config.MetricsAddr))
		if err := o.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.LogError("Metrics server stopped", util.F("error", err.Error()))
		}
	}()
}

func (o *Orchestrator) handleFileChange(event model.FileEvent) {
	util.LogDebug("Log file changed", util.F("path", event.Path), util.F("op", event.Operation))
	if err := o.view.ReloadLogs(); err != nil {
		util.LogWarn("Failed to reload logs", util.F("error", err.Error()))
		o.setStatus(fmt.Sprintf("log reload failed: %v", err))
	}
}

func (o *Orchestrator) updateDisplay() {
	o.display.Render(o.buildFrame())
}

// buildFrame snapshots both charts and the view state
func (o *Orchestrator) buildFrame() display.Frame {
	state := o.view.State()
	loading, loadingMsg := state.GetLoadingState()
	indicator := state.GetError()
	logs := state.GetLogs()

	return display.Frame{
		Title:       fmt.Sprintf("%s / %s / %s", o.config.Course, o.config.Assignment, o.config.User),
		Cumulative:  o.view.Chart(model.ChartCumulative).Snapshot(),
		Delta:       o.view.Chart(model.ChartDelta).Snapshot(),
		Interaction: state.GetInteractionState(),
		Status: display.Status{
			LastUpdate:     state.GetLastDataUpdate(),
			Err:            indicator.Err,
			ErrAt:          indicator.At,
			Loading:        loading,
			LoadingMessage: loadingMsg,
			Refreshing:     o.view.refresh.IsRefreshing(),
			Polling:        o.view.Scheduler().State() == SchedulerPolling,
			Interval:       o.config.Interval,
			Builds:         len(logs.Builds),
			BuildFailures:  logs.Failures(model.KindBuild),
			Runs:           len(logs.Runs),
			RunFailures:    logs.Failures(model.KindRun),
		},
	}
}

// handleKeyboard applies one key and reports whether the monitor should exit
func (o *Orchestrator) handleKeyboard(event interaction.KeyEvent) bool {
	state := o.view.State().GetInteractionState()
	active := o.view.Chart(state.ActiveChart)

	switch event.Type {
	case interaction.KeyEscape:
		if state.ShowHelp {
			o.view.State().UpdateInteractionState(func(s *model.InteractionState) {
				s.ShowHelp = false
			})
			return false
		}
		return true
	case interaction.KeyLeft:
		active.Pan(-panStep)
	case interaction.KeyRight:
		active.Pan(panStep)
	case interaction.KeyChar:
		switch event.Key {
		case 'q', 'Q', interaction.KeyCtrlC:
			return true
		case '?':
			o.view.State().UpdateInteractionState(func(s *model.InteractionState) {
				s.ShowHelp = !s.ShowHelp
			})
		case '+', '=':
			active.Zoom(zoomIn, state.CursorFrac)
		case '-':
			active.Zoom(zoomOut, state.CursorFrac)
		case '0':
			active.ResetZoom()
		case interaction.KeyTab:
			o.view.State().UpdateInteractionState(func(s *model.InteractionState) {
				if s.ActiveChart == model.ChartCumulative {
					s.ActiveChart = model.ChartDelta
				} else {
					s.ActiveChart = model.ChartCumulative
				}
			})
		case 'h':
			o.moveCursor(-cursorStep)
		case 'l':
			o.moveCursor(cursorStep)
		case 'a':
			o.view.SetAutoRefresh(!o.view.Scheduler().Enabled())
		case 'r':
			go o.refresh(TriggerManual)
		case 'R':
			go o.refresh(TriggerReload)
		case 'b':
			o.view.LookupAtCursor(correlate.Target{Kind: model.KindBuild, Outcome: model.OutcomeFailure})
		case 'B':
			o.view.LookupAtCursor(correlate.Target{Kind: model.KindBuild, Outcome: model.OutcomeSuccess})
		case 'u':
			o.view.LookupAtCursor(correlate.Target{Kind: model.KindRun, Outcome: model.OutcomeFailure})
		case 'U':
			o.view.LookupAtCursor(correlate.Target{Kind: model.KindRun, Outcome: model.OutcomeSuccess})
		}
	}
	return false
}

func (o *Orchestrator) moveCursor(step float64) {
	o.view.State().UpdateInteractionState(func(s *model.InteractionState) {
		s.CursorFrac += step
		if s.CursorFrac < 0 {
			s.CursorFrac = 0
		} else if s.CursorFrac > 1 {
			s.CursorFrac = 1
		}
	})
}

func (o *Orchestrator) refresh(trigger Trigger) {
	var err error
	if trigger == TriggerReload {
		o.view.State().SetLoadingState(true, "Reloading...")
		err = o.view.Load(o.ctx)
		o.view.State().SetLoadingState(false, "")
	} else {
		err = o.view.RefreshNow(o.ctx)
	}

	switch {
	case errors.Is(err, ErrRefreshInProgress):
		o.setStatus("refresh already in progress")
	case err != nil:
		o.setStatus(fmt.Sprintf("%s failed: %v", trigger, err))
	default:
		o.setStatus("")
	}
}

func (o *Orchestrator) setStatus(msg string) {
	o.view.State().UpdateInteractionState(func(s *model.InteractionState) {
		s.StatusMessage = msg
	})
}

// Close releases the view, keyboard, watcher and metrics server
func (o *Orchestrator) Close() {
	o.cancel()
	o.view.Close()

	if o.keyboard != nil {
		if err := o.keyboard.Close(); err != nil {
			util.LogWarn("Failed to restore terminal", util.F("error", err.Error()))
		}
		o.keyboard = nil
	}
	if o.watcher != nil {
		if err := o.watcher.Close(); err != nil {
			util.LogWarn("Failed to close log watcher", util.F("error", err.Error()))
		}
		o.watcher = nil
	}
	if o.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := o.metricsServer.Shutdown(ctx); err != nil {
			util.LogWarn("Failed to stop metrics server", util.F("error", err.Error()))
		}
		o.metricsServer = nil
	}
}
