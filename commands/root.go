package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/penwyp/go-code-activity/internal/analyzer"
	"github.com/penwyp/go-code-activity/internal/application/monitor"
	"github.com/penwyp/go-code-activity/internal/data/ingest"
	"github.com/penwyp/go-code-activity/internal/util"
	"github.com/spf13/cobra"
)

var (
	// Logging related
	debug bool

	// Config file
	configFile string

	// Output related
	outputFormat string
	formatAlias  string
	lookback     string
	pngPath      string
	groupBy      string

	rootCmd = &cobra.Command{
		Use:   "go-code-activity [flags]",
		Short: "Student code activity monitoring tool",
		Long: `go-code-activity fetches code-size telemetry for one student and assignment,
fills the gaps up to now, thins it to a point budget and reports it.

Every flag can also be set in the config file or through an ACTIVITY_ prefixed
environment variable (e.g. ACTIVITY_BASE_URL, ACTIVITY_USER).

Examples:
  go-code-activity --course cs101 --assignment a1 --user u42       # Table of the series
  go-code-activity --course cs101 --assignment a1 --user u42 -o json
  go-code-activity ... --interval hour --lookback 2d               # Hourly buckets, last 2 days
  go-code-activity ... --log-dir ./logs --png activity.png         # Export both charts with log markers
  go-code-activity watch ...                                       # Live terminal charts`,
		SilenceUsage: true,
		RunE:         runReport,
	}
)

const defaultLogFile = "~/.go-code-activity/logs/app.log"

func init() {
	addTargetFlags(rootCmd.PersistentFlags())

	// Output configuration
	rootCmd.Flags().StringVarP(&outputFormat, "output", "o", "table",
		"Output format (table, json, csv, summary)")
	rootCmd.Flags().StringVar(&formatAlias, "format", "",
		"Alias for --output")
	rootCmd.Flags().StringVarP(&lookback, "lookback", "d", "",
		"Only report the trailing window (e.g., 12h, 7d, 2w, 1d12h)")
	rootCmd.Flags().StringVar(&pngPath, "png", "",
		"Also export both charts to this PNG file")
	rootCmd.Flags().StringVar(&groupBy, "group-by", "day",
		"Activity breakdown period in the summary and json output (hour, day, week, none)")
}

func runReport(cmd *cobra.Command, args []string) error {
	// Handle format alias
	if cmd.Flags().Changed("format") {
		outputFormat = formatAlias
	}

	config, err := setup(cmd)
	if err != nil {
		return err
	}

	a := analyzer.New(&analyzer.Config{
		Monitor:      config,
		OutputFormat: outputFormat,
		Output:       cmd.OutOrStdout(),
		Lookback:     lookback,
		PNGPath:      expandOptional(pngPath),
		GroupBy:      groupBy,
	}, ingest.NewClient(config.BaseURL), nil)

	ctx, cancel := signalContext()
	defer cancel()
	return a.Run(ctx)
}

// setup initializes logging and the time provider and returns the
// validated config
func setup(cmd *cobra.Command) (*monitor.Config, error) {
	initLogging()

	config, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := util.InitializeTimeProvider(config.Timezone); err != nil {
		return nil, err
	}
	return config, nil
}

func initLogging() {
	logLevel := "info"
	if debug {
		logLevel = "debug"
	}
	logFile := expandPath(defaultLogFile)
	if err := ensureDir(filepath.Dir(logFile)); err != nil {
		logFile = ""
	}
	if err := util.InitLogger(logLevel, logFile, debug); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
	}
}

// signalContext is cancelled on interrupt
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func Execute() error {
	return rootCmd.Execute()
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func expandOptional(path string) string {
	if path == "" {
		return ""
	}
	return expandPath(path)
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
