package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/penwyp/go-code-activity/internal/application/monitor"
	"github.com/penwyp/go-code-activity/internal/core/constants"
	"github.com/penwyp/go-code-activity/internal/data/ingest"
	"github.com/penwyp/go-code-activity/internal/metrics"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show live cumulative and delta charts for one student",
	Long: `Similar to the Linux top command, draws the cumulative code size and the
per-bucket change of one student's assignment side by side and keeps them
current.

Controls:
- Zooming or panning one chart moves the other to the same time range
- The series is refetched every refresh period without losing the zoom
- r refreshes now, R reloads and resets the zoom, a toggles auto-refresh
- b/B and u/U jump to the nearest failed/successful build and run`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	// Display flags
	watchCmd.Flags().Float64("refresh-per-second", 1,
		"Display refresh rate (0.1-60 Hz)")

	// Refresh flags
	watchCmd.Flags().Bool("auto-refresh", true,
		"Refetch the series periodically")
	watchCmd.Flags().Duration("refresh-period", constants.RefreshPeriod,
		"Time between automatic refreshes")

	// Sync flags
	watchCmd.Flags().Duration("sync-debounce", constants.SyncDebounce,
		"Quiet time before a viewport change is copied to the other chart")
	watchCmd.Flags().Duration("sync-cooldown", constants.SyncCooldown,
		"Time after a copy during which echoed changes are ignored")

	// Log flags
	watchCmd.Flags().Bool("watch-logs", true,
		"Reload markers when files in --log-dir change")

	// Observability flags
	watchCmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address (e.g., :9090)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	config, err := setup(cmd)
	if err != nil {
		return err
	}

	m := metrics.New()
	orchestrator, err := monitor.NewOrchestrator(config, ingest.NewClient(config.BaseURL), m)
	if err != nil {
		return err
	}
	defer orchestrator.Close()

	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	return orchestrator.Run(ctx)
}
