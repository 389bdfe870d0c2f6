package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/correlate"
	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/data/parser"
	"github.com/penwyp/go-code-activity/internal/data/scanner"
	"github.com/penwyp/go-code-activity/internal/presentation/interaction"
	"github.com/penwyp/go-code-activity/internal/util"
	"github.com/spf13/cobra"
)

var (
	correlateAt     string
	correlateTarget string
	correlateList   bool
	correlateSort   string
	correlateDesc   bool
)

// atLayouts are tried in order by parseAt
var atLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Find the build or run log event nearest to a time",
	Long: `Searches the JSONL logs in --log-dir for the event of the given kind and
outcome closest to --at. Only events closer than --tolerance match.

Examples:
  go-code-activity correlate --log-dir ./logs --at "2024-03-01 09:30" --target build-failure
  go-code-activity correlate --log-dir ./logs --list --sort exit --desc`,
	RunE: runCorrelate,
}

func init() {
	rootCmd.AddCommand(correlateCmd)

	correlateCmd.Flags().StringVar(&correlateAt, "at", "",
		"Time to look up (\"2006-01-02 15:04\" or RFC3339, in --timezone)")
	correlateCmd.Flags().StringVar(&correlateTarget, "target", "build-failure",
		"Event to find: build-failure, build-success, run-failure, run-success")
	correlateCmd.Flags().BoolVar(&correlateList, "list", false,
		"List every event instead of looking one up")
	correlateCmd.Flags().StringVar(&correlateSort, "sort", "time",
		"Sort field for --list (time, exit, command)")
	correlateCmd.Flags().BoolVar(&correlateDesc, "desc", false,
		"Sort --list in descending order")
}

func runCorrelate(cmd *cobra.Command, args []string) error {
	initLogging()

	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if config.LogDir == "" {
		return errors.New("--log-dir is required")
	}
	if err := util.InitializeTimeProvider(config.Timezone); err != nil {
		return err
	}
	concurrency := config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	files, err := scanner.NewFileScanner(config.LogDir).Scan()
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", config.LogDir, err)
	}
	logs, err := parser.NewParser(concurrency).LoadLogSet(files)
	if err != nil {
		util.LogWarn("Some log files could not be read", util.F("error", err.Error()))
	}

	out := cmd.OutOrStdout()
	if correlateList {
		sorter, err := newSorter(correlateSort, correlateDesc)
		if err != nil {
			return err
		}
		return listEvents(out, logs, sorter)
	}

	if correlateAt == "" {
		return errors.New("--at is required unless --list is set")
	}
	at, err := parseAt(correlateAt)
	if err != nil {
		return err
	}
	target, err := correlate.ParseTarget(correlateTarget)
	if err != nil {
		return err
	}

	c := correlate.Correlator{Tolerance: config.CorrelationTolerance}
	match, ok := c.Resolve(logs, at, target)
	if !ok {
		fmt.Fprintf(out, "no %s event near %s\n", target, util.GetTimeProvider().Format(at, atLayouts[0]))
		return nil
	}
	writeMatch(out, target, match)
	return nil
}

// parseAt reads t in the configured timezone
func parseAt(s string) (time.Time, error) {
	tp := util.GetTimeProvider()
	for _, layout := range atLayouts {
		if t, err := tp.ParseInLocation(layout, strings.TrimSpace(s)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --at time %q: use \"2006-01-02 15:04\" or RFC3339", s)
}

func newSorter(field string, desc bool) (*interaction.EventSorter, error) {
	sorter := interaction.NewEventSorter()
	switch strings.ToLower(field) {
	case "time":
		sorter.SetField(interaction.SortByTime)
	case "exit":
		sorter.SetField(interaction.SortByExitCode)
	case "command":
		sorter.SetField(interaction.SortByCommand)
	default:
		return nil, fmt.Errorf("unknown sort field %q: use time, exit or command", field)
	}
	if desc {
		sorter.SetOrder(interaction.SortDescending)
	} else {
		sorter.SetOrder(interaction.SortAscending)
	}
	return sorter, nil
}

func listEvents(w io.Writer, logs model.LogSet, sorter *interaction.EventSorter) error {
	events := make([]model.LogEvent, 0, logs.Len())
	events = append(events, logs.Builds...)
	events = append(events, logs.Runs...)
	sorter.Sort(events)

	tp := util.GetTimeProvider()
	for _, e := range events {
		if _, err := fmt.Fprintf(w, "%s  %-5s  %4d  %s\n",
			tp.Format(e.Timestamp, "2006-01-02 15:04:05"), e.Kind, e.ExitCode,
			util.TruncateToWidth(e.Command, 60)); err != nil {
			return err
		}
	}
	return nil
}

func writeMatch(w io.Writer, target correlate.Target, match correlate.Match) {
	e := match.Event
	tp := util.GetTimeProvider()
	fmt.Fprintf(w, "%s at %s (%s away)\n", target, tp.Format(e.Timestamp, "2006-01-02 15:04:05"), util.FormatDuration(match.Distance))
	fmt.Fprintf(w, "  command: %s\n", e.Command)
	fmt.Fprintf(w, "  exit:    %d\n", e.ExitCode)
	if e.Stderr != "" {
		fmt.Fprintf(w, "  stderr:  %s\n", firstLine(e.Stderr))
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
