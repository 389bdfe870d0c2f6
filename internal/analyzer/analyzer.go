// Package analyzer runs the ingestion pipeline once and writes a report.
package analyzer

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/penwyp/go-code-activity/internal/application/monitor"
	"github.com/penwyp/go-code-activity/internal/core/chart"
	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/data/aggregator"
	"github.com/penwyp/go-code-activity/internal/presentation/formatter"
	"github.com/penwyp/go-code-activity/internal/presentation/plot"
	"github.com/penwyp/go-code-activity/internal/util"
)

var lookbackPattern = regexp.MustCompile(`(\d+)([hymwd])`)

// Config selects what to report and where to write it
type Config struct {
	Monitor      *monitor.Config
	OutputFormat string
	Output       io.Writer
	// Lookback limits the report to the trailing window, e.g. "12h" or "1w2d"
	Lookback string
	// PNGPath, when set, also exports both charts as an image
	PNGPath string
	// GroupBy is the period of the activity breakdown: hour, day, week or none
	GroupBy string
}

// Analyzer produces one report
type Analyzer struct {
	config *Config
	loader *monitor.DataLoader
	clock  util.Clock
}

// New creates an analyzer reading from source
func New(config *Config, source monitor.TelemetrySource, clock util.Clock) *Analyzer {
	if clock == nil {
		clock = util.NewRealClock()
	}
	return &Analyzer{
		config: config,
		loader: monitor.NewDataLoader(config.Monitor, source, clock),
		clock:  clock,
	}
}

// Run builds the report, formats it and optionally exports the PNG
func (a *Analyzer) Run(ctx context.Context) error {
	startTime := time.Now()
	util.LogInfo("Starting code activity report...")

	// Resolve the format first so a typo fails before any request
	f, err := formatter.New(a.config.OutputFormat, a.config.Output)
	if err != nil {
		return err
	}

	if _, err := aggregator.ParseGroupBy(a.config.GroupBy); err != nil {
		return err
	}

	report, bounds, err := a.BuildReport(ctx)
	if err != nil {
		return err
	}

	outputStart := time.Now()
	if err := f.Format(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	util.LogDebug(fmt.Sprintf("Formatting and output duration: %v", time.Since(outputStart)))

	if a.config.PNGPath != "" {
		if err := a.exportPNG(report, bounds); err != nil {
			return err
		}
		util.LogInfo("Chart exported", util.F("path", a.config.PNGPath))
	}

	util.LogDebug(fmt.Sprintf("Total duration: %v", time.Since(startTime)))
	return nil
}

// BuildReport fetches the assignment, the prepared series and the logs. The
// returned bounds are the window the charts would show.
func (a *Analyzer) BuildReport(ctx context.Context) (formatter.Report, model.Bounds, error) {
	assignment, err := a.loader.LoadAssignment(ctx)
	if err != nil {
		return formatter.Report{}, model.Bounds{}, err
	}

	fetchStart := time.Now()
	result, err := a.loader.LoadSeries(ctx, assignment)
	if err != nil {
		return formatter.Report{}, model.Bounds{}, fmt.Errorf("failed to load series: %w", err)
	}
	util.LogDebug(fmt.Sprintf("Series fetch duration: %v, raw records: %d, points: %d",
		time.Since(fetchStart), result.Raw, len(result.Series)))

	logs, err := a.loader.LoadLogs()
	if err != nil {
		// Events from readable files are still reported
		util.LogWarn("Some log files could not be read", util.F("error", err.Error()))
	}

	series, bounds := result.Series, result.Bounds
	if a.config.Lookback != "" {
		window, err := parseLookback(a.config.Lookback)
		if err != nil {
			return formatter.Report{}, model.Bounds{}, err
		}
		bounds = trailing(bounds, result.FetchedAt, window)
		series = series.Within(bounds)
		util.LogDebug(fmt.Sprintf("Lookback %s applied, points after filtering: %d", a.config.Lookback, len(series)))
	}

	groupBy, err := aggregator.ParseGroupBy(a.config.GroupBy)
	if err != nil {
		return formatter.Report{}, model.Bounds{}, err
	}
	agg := aggregator.NewAggregatorWithTimezone(a.config.Monitor.Timezone)

	return formatter.Report{
		Target:      a.config.Monitor.Target(),
		Assignment:  assignment,
		Interval:    a.config.Monitor.Interval,
		Series:      series,
		Discarded:   result.Discarded,
		Logs:        logs,
		GroupBy:     groupBy,
		Periods:     agg.Aggregate(series, logs, groupBy),
		GeneratedAt: result.FetchedAt,
	}, bounds, nil
}

func (a *Analyzer) exportPNG(report formatter.Report, bounds model.Bounds) error {
	events := make([]model.LogEvent, 0, report.Logs.Len())
	events = append(events, report.Logs.Builds...)
	events = append(events, report.Logs.Runs...)

	loc, err := util.LoadLocation(a.config.Monitor.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone: %w", err)
	}

	snap := func(id model.ChartID) chart.Snapshot {
		c := chart.New(id)
		c.SetLocation(loc)
		c.SetData(report.Series, bounds)
		c.SetViewport(bounds)
		c.SetMarkers(events, a.loader.Bucket())
		return c.Snapshot()
	}

	t := report.Target
	return plot.SavePNG(a.config.PNGPath, plot.Options{
		Title:      fmt.Sprintf("%s / %s / %s", t.Course, t.Assignment, t.User),
		Cumulative: snap(model.ChartCumulative),
		Delta:      snap(model.ChartDelta),
	})
}

// trailing narrows bounds to the window ending at now
func trailing(bounds model.Bounds, now time.Time, window time.Duration) model.Bounds {
	from := now.Add(-window)
	if from.Before(bounds.XMin) {
		from = bounds.XMin
	}
	return model.Bounds{XMin: from, XMax: bounds.XMax}
}

// parseLookback accepts concatenated components such as "1d12h" or "2w3d";
// months are 30 days and years 365 days
func parseLookback(s string) (time.Duration, error) {
	matches := lookbackPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid lookback format: %s", s)
	}

	var total time.Duration
	for _, match := range matches {
		value, err := strconv.Atoi(match[1])
		if err != nil {
			return 0, fmt.Errorf("invalid number in lookback: %s", match[1])
		}

		switch match[2] {
		case "h":
			total += time.Duration(value) * time.Hour
		case "d":
			total += time.Duration(value) * 24 * time.Hour
		case "w":
			total += time.Duration(value) * 7 * 24 * time.Hour
		case "m":
			total += time.Duration(value) * 30 * 24 * time.Hour
		case "y":
			total += time.Duration(value) * 365 * 24 * time.Hour
		}
	}
	return total, nil
}
