package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/core/timeseries"
	"github.com/penwyp/go-code-activity/internal/data/ingest"
	"github.com/penwyp/go-code-activity/internal/data/parser"
	"github.com/penwyp/go-code-activity/internal/data/scanner"
	"github.com/penwyp/go-code-activity/internal/util"
)

// LoadResult is one run of the fetch, fill and downsample pipeline
type LoadResult struct {
	Series    model.Series
	Bounds    model.Bounds
	Raw       int
	Discarded int
	FetchedAt time.Time
}

// DataLoader runs the ingestion pipeline and loads build and run logs
type DataLoader struct {
	config  *Config
	source  TelemetrySource
	clock   util.Clock
	scanner *scanner.FileScanner
	parser  *parser.Parser
}

// NewDataLoader creates a new DataLoader instance. Log loading is disabled
// when no log directory is configured.
func NewDataLoader(config *Config, source TelemetrySource, clock util.Clock) *DataLoader {
	dl := &DataLoader{
		config: config,
		source: source,
		clock:  clock,
		parser: parser.NewParser(config.Concurrency),
	}
	if config.LogDir != "" {
		dl.scanner = scanner.NewFileScanner(config.LogDir)
	}
	return dl
}

// LoadAssignment fetches the assignment window
func (dl *DataLoader) LoadAssignment(ctx context.Context) (model.Assignment, error) {
	a, err := dl.source.FetchAssignment(ctx, dl.config.Assignment)
	if err != nil {
		return model.Assignment{}, fmt.Errorf("failed to load assignment %s: %w", dl.config.Assignment, err)
	}
	if !a.Start.Before(a.End) {
		util.LogWarn("Assignment ends before it starts",
			util.F("assignment", a.ID), util.F("start", a.Start), util.F("end", a.End))
	}
	return a, nil
}

// LoadSeries fetches the raw series, fills it to [start, now] and thins it
// to the point budget
func (dl *DataLoader) LoadSeries(ctx context.Context, assignment model.Assignment) (LoadResult, error) {
	batch, err := dl.source.FetchTrends(ctx, ingest.Query{
		Target:   dl.config.Target(),
		Interval: dl.config.Interval,
	})
	if err != nil {
		return LoadResult{}, err
	}

	now := dl.clock.Now()
	series := timeseries.Prepare(batch.Series, timeseries.Options{
		Start:    assignment.Start,
		Now:      now,
		Interval: dl.config.Interval,
		Budget:   dl.config.PointBudget,
	})

	util.LogDebug("Series prepared",
		util.F("raw", len(batch.Series)), util.F("discarded", batch.Discarded), util.F("points", len(series)))

	return LoadResult{
		Series:    series,
		Bounds:    assignment.Bounds(now),
		Raw:       len(batch.Series),
		Discarded: batch.Discarded,
		FetchedAt: now,
	}, nil
}

// LoadLogs scans the log directory and parses every log file
func (dl *DataLoader) LoadLogs() (model.LogSet, error) {
	if dl.scanner == nil {
		return model.LogSet{}, nil
	}

	files, err := dl.scanner.Scan()
	if err != nil {
		return model.LogSet{}, fmt.Errorf("failed to scan log directory: %w", err)
	}

	set, err := dl.parser.LoadLogSet(files)
	util.LogInfo(fmt.Sprintf("Loaded %d build and %d run events from %d files", len(set.Builds), len(set.Runs), len(files)))
	return set, err
}

// Bucket returns the bucket width markers are aligned to
func (dl *DataLoader) Bucket() time.Duration {
	return timeseries.FillStride(dl.config.Interval)
}
