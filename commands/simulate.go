package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/penwyp/go-code-activity/internal/testing/fixtures"
	"github.com/penwyp/go-code-activity/internal/util"
	"github.com/spf13/cobra"
)

var (
	simulateListen string
	simulateStart  string
	simulateWindow time.Duration
	simulateEdits  int
	simulateStep   time.Duration
	simulateSize   int64
	simulateLive   bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Serve a fake telemetry endpoint for local testing",
	Long: `Serves /graph_data/interval/{minutes} and /assignments/{id} from generated
activity so report and watch can be tried without a grading server.

Examples:
  go-code-activity simulate --assignment a1 --edits 200 --step 5m
  go-code-activity simulate --live --log-dir ./logs   # Keep editing and write build/run logs`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simulateListen, "listen", ":8080",
		"Address to listen on")
	simulateCmd.Flags().StringVar(&simulateStart, "start", "",
		"Assignment start (\"2006-01-02 15:04\" or RFC3339, default 24h ago)")
	simulateCmd.Flags().DurationVar(&simulateWindow, "window", 7*24*time.Hour,
		"Assignment length")
	simulateCmd.Flags().IntVar(&simulateEdits, "edits", 100,
		"Number of generated edits")
	simulateCmd.Flags().DurationVar(&simulateStep, "step", 10*time.Minute,
		"Time between generated edits")
	simulateCmd.Flags().Int64Var(&simulateSize, "size", 120,
		"Bytes added by each edit")
	simulateCmd.Flags().BoolVar(&simulateLive, "live", false,
		"Append an edit every --step while serving")
}

// simulation is the generated data behind one simulate run
type simulation struct {
	endpoint   *fixtures.FakeEndpoint
	assignment string
	start      time.Time
	end        time.Time
}

func newSimulation(assignment string, start time.Time, window time.Duration, edits int, step time.Duration, size int64) *simulation {
	endpoint := fixtures.NewFakeEndpoint()
	end := start.Add(window)
	endpoint.SetWindow(assignment, start, end)
	endpoint.AddEdits(fixtures.SteadyEdits(start, edits, step, size)...)
	return &simulation{endpoint: endpoint, assignment: assignment, start: start, end: end}
}

// handler wraps the endpoint routes with request logging and panic recovery
func (s *simulation) handler() http.Handler {
	logged := handlers.LoggingHandler(util.LogWriter(util.LevelInfo), s.endpoint.Router())
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(logged)
}

// live appends one edit per step until ctx is done
func (s *simulation) live(ctx context.Context, step time.Duration, size int64) {
	ticker := time.NewTicker(step)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.endpoint.AddEdits(fixtures.Edit{At: now, Change: size})
			util.LogDebug("Simulated edit", util.F("at", now), util.F("size", size))
		}
	}
}

func runSimulate(cmd *cobra.Command, args []string) error {
	initLogging()

	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := util.InitializeTimeProvider(config.Timezone); err != nil {
		return err
	}
	if simulateEdits < 0 || simulateStep <= 0 {
		return errors.New("--edits must be non-negative and --step positive")
	}

	assignment := config.Assignment
	if assignment == "" {
		assignment = "a1"
	}
	start := util.GetTimeProvider().Now().Add(-24 * time.Hour).Truncate(time.Hour)
	if simulateStart != "" {
		if start, err = parseAt(simulateStart); err != nil {
			return err
		}
	}

	sim := newSimulation(assignment, start, simulateWindow, simulateEdits, simulateStep, simulateSize)
	if config.LogDir != "" {
		builds := simulateEdits / 10
		if err := fixtures.NewTestDataGenerator(config.LogDir).GenerateWorkSession(assignment, start, builds); err != nil {
			return fmt.Errorf("failed to write logs: %w", err)
		}
		util.LogInfo("Logs written", util.F("dir", config.LogDir), util.F("builds", builds))
	}

	ctx, cancel := signalContext()
	defer cancel()

	if simulateLive {
		go sim.live(ctx, simulateStep, simulateSize)
	}

	srv := &http.Server{
		Addr:              simulateListen,
		Handler:           sim.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	tp := util.GetTimeProvider()
	fmt.Fprintf(cmd.OutOrStdout(), "Serving assignment %s (%s to %s) on %s\n",
		assignment, tp.Format(sim.start, "2006-01-02 15:04"), tp.Format(sim.end, "2006-01-02 15:04"), simulateListen)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	util.LogInfo("Simulator stopped")
	return nil
}
