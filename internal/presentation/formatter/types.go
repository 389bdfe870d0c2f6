package formatter

import (
	"time"

	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/data/aggregator"
)

// Report is the rendered series of one (course, assignment, user)
type Report struct {
	Target      model.Target
	Assignment  model.Assignment
	Interval    model.Interval
	Series      model.Series
	Discarded   int
	Logs        model.LogSet
	GroupBy     aggregator.GroupBy
	Periods     []aggregator.PeriodData
	GeneratedAt time.Time
}

// Formatter writes a report in one output format
type Formatter interface {
	Format(report Report) error
}

// Stats are the aggregates shared by the table and summary outputs
type Stats struct {
	Samples     int
	Synthetic   int
	Active      int // samples with a non-zero change
	Peak        uint64
	Final       uint64
	NetChange   int64
	MaxIncrease model.Sample
	MaxDecrease model.Sample
	FirstSample time.Time
	LastSample  time.Time
}

// ComputeStats aggregates a time-ordered series
func ComputeStats(series model.Series) Stats {
	var st Stats
	st.Samples = len(series)
	st.Peak = series.Peak()
	if first, last, ok := series.Span(); ok {
		st.FirstSample, st.LastSample = first, last
		st.Final = series[len(series)-1].TotalBytes
	}
	for _, s := range series {
		if s.Synthetic {
			st.Synthetic++
		}
		if s.Delta != 0 {
			st.Active++
		}
		st.NetChange += s.Delta
		if s.Delta > st.MaxIncrease.Delta {
			st.MaxIncrease = s
		}
		if s.Delta < st.MaxDecrease.Delta {
			st.MaxDecrease = s
		}
	}
	return st
}
