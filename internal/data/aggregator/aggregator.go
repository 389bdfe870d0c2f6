package aggregator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/util"
)

// GroupBy selects the calendar period samples are grouped into
type GroupBy string

const (
	GroupByNone GroupBy = "none"
	GroupByHour GroupBy = "hour"
	GroupByDay  GroupBy = "day"
	GroupByWeek GroupBy = "week"
)

// ParseGroupBy accepts hour, day, week or none; an empty string means day
func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GroupByDay, nil
	case GroupByNone, GroupByHour, GroupByDay, GroupByWeek:
		return g, nil
	default:
		return "", fmt.Errorf("invalid group-by %q: want hour, day, week or none", s)
	}
}

// PeriodData holds the activity of one period.
type PeriodData struct {
	Start         time.Time `json:"start"`
	Added         uint64    `json:"added"`   // sum of positive deltas
	Removed       uint64    `json:"removed"` // sum of |negative deltas|
	Net           int64     `json:"net"`
	ActiveBuckets int       `json:"active_buckets"`
	EndBytes      uint64    `json:"end_bytes"` // cumulative size at the last sample of the period
	Builds        int       `json:"builds"`
	BuildFailures int       `json:"build_failures"`
	Runs          int       `json:"runs"`
	RunFailures   int       `json:"run_failures"`
}

// Aggregator groups a series and its log events by calendar period in one
// location.
type Aggregator struct {
	location *time.Location
}

// NewAggregatorWithTimezone creates an Aggregator for the named timezone,
// falling back to UTC when it cannot be loaded.
func NewAggregatorWithTimezone(timezone string) *Aggregator {
	loc, err := util.LoadLocation(timezone)
	if err != nil {
		util.LogWarn(fmt.Sprintf("Unknown timezone %q, aggregating in UTC", timezone))
		loc = time.UTC
	}
	return &Aggregator{location: loc}
}

// Aggregate returns one entry per period that holds a sample or an event,
// ordered by period start. Only the samples it is given are counted, so a
// downsampled series yields the changes of the kept points. GroupByNone
// returns nil.
func (a *Aggregator) Aggregate(series model.Series, logs model.LogSet, groupBy GroupBy) []PeriodData {
	if groupBy == GroupByNone {
		return nil
	}

	periods := make(map[int64]*PeriodData)
	get := func(ts time.Time) *PeriodData {
		start := a.periodStart(ts, groupBy)
		key := start.Unix()
		if p, ok := periods[key]; ok {
			return p
		}
		p := &PeriodData{Start: start}
		periods[key] = p
		return p
	}

	for _, s := range series {
		p := get(s.Timestamp)
		switch {
		case s.Delta > 0:
			p.Added += uint64(s.Delta)
		case s.Delta < 0:
			p.Removed += uint64(-s.Delta)
		}
		if s.Delta != 0 {
			p.ActiveBuckets++
		}
		p.Net += s.Delta
		// series is time ordered, so the last write is the period's end size
		p.EndBytes = s.TotalBytes
	}

	for _, e := range logs.Builds {
		p := get(e.Timestamp)
		p.Builds++
		if e.Outcome() == model.OutcomeFailure {
			p.BuildFailures++
		}
	}
	for _, e := range logs.Runs {
		p := get(e.Timestamp)
		p.Runs++
		if e.Outcome() == model.OutcomeFailure {
			p.RunFailures++
		}
	}

	result := make([]PeriodData, 0, len(periods))
	for _, p := range periods {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Start.Before(result[j].Start)
	})
	return result
}

// periodStart truncates ts to the start of its period in the aggregator's
// location. Weeks start on Monday.
func (a *Aggregator) periodStart(ts time.Time, groupBy GroupBy) time.Time {
	t := ts.In(a.location)
	switch groupBy {
	case GroupByHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, a.location)
	case GroupByWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, a.location)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, a.location)
	}
}
