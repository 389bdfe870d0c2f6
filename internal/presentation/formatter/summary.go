package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/data/aggregator"
	"github.com/penwyp/go-code-activity/internal/util"
)

// SummaryFormatter is responsible for formatting and outputting summary reports.
type SummaryFormatter struct {
	w io.Writer
}

// NewSummaryFormatter creates a new instance of SummaryFormatter.
func NewSummaryFormatter(w io.Writer) *SummaryFormatter {
	return &SummaryFormatter{w: w}
}

// Format writes the aggregate view of a report.
func (f *SummaryFormatter) Format(report Report) error {
	tp := util.GetTimeProvider()
	p := func(format string, args ...interface{}) {
		fmt.Fprintf(f.w, format+"\n", args...)
	}

	p("%s", strings.Repeat("=", 60))
	p("Code Activity Summary Report")
	p("%s", strings.Repeat("=", 60))
	p("")

	t := report.Target
	p("Student: %s  Course: %s  Assignment: %s", t.User, t.Course, t.Assignment)
	a := report.Assignment
	if !a.Start.IsZero() {
		p("Window: %s to %s", tp.Format(a.Start, "2006-01-02 15:04"), tp.Format(a.End, "2006-01-02 15:04"))
	}
	p("Interval: %s", report.Interval)
	p("")

	if len(report.Series) == 0 || report.Series.AllZero() {
		p("No activity recorded")
		p("")
		p("%s", strings.Repeat("=", 60))
		return nil
	}

	stats := ComputeStats(report.Series)
	p("Size:")
	p("  Final: %s", util.FormatBytes(stats.Final))
	p("  Peak: %s", util.FormatBytes(stats.Peak))
	p("  Net Change: %s", util.FormatDelta(stats.NetChange))
	p("")

	p("Activity:")
	p("  Samples: %d (%d filled)", stats.Samples, stats.Synthetic)
	p("  Active Buckets: %d", stats.Active)
	p("  First Sample: %s", tp.Format(stats.FirstSample, "2006-01-02 15:04"))
	p("  Last Sample: %s", tp.Format(stats.LastSample, "2006-01-02 15:04"))
	if stats.MaxIncrease.Delta > 0 {
		p("  Largest Increase: %s at %s", util.FormatDelta(stats.MaxIncrease.Delta), tp.Format(stats.MaxIncrease.Timestamp, "2006-01-02 15:04"))
	}
	if stats.MaxDecrease.Delta < 0 {
		p("  Largest Decrease: %s at %s", util.FormatDelta(stats.MaxDecrease.Delta), tp.Format(stats.MaxDecrease.Timestamp, "2006-01-02 15:04"))
	}
	if report.Discarded > 0 {
		p("  Discarded Records: %d", report.Discarded)
	}

	if len(report.Periods) > 0 {
		p("")
		p("Activity by %s:", report.GroupBy)
		p("%s", strings.Repeat("-", 60))
		layout := periodLayout(report.GroupBy)
		for _, period := range report.Periods {
			line := fmt.Sprintf("  %-16s +%-9s -%-9s net %-9s end %s",
				tp.Format(period.Start, layout),
				util.FormatBytes(period.Added), util.FormatBytes(period.Removed),
				util.FormatDelta(period.Net), util.FormatBytes(period.EndBytes))
			if period.Builds+period.Runs > 0 {
				line += fmt.Sprintf("  builds %d/%d runs %d/%d",
					period.BuildFailures, period.Builds, period.RunFailures, period.Runs)
			}
			p("%s", line)
		}
	}

	if report.Logs.Len() > 0 {
		p("")
		p("Logs:")
		p("%s", strings.Repeat("-", 60))
		p("  Builds: %d (%d failed)", len(report.Logs.Builds), report.Logs.Failures(model.KindBuild))
		p("  Runs: %d (%d failed)", len(report.Logs.Runs), report.Logs.Failures(model.KindRun))
	}

	p("")
	p("%s", strings.Repeat("=", 60))
	return nil
}

func periodLayout(groupBy aggregator.GroupBy) string {
	if groupBy == aggregator.GroupByHour {
		return "2006-01-02 15:04"
	}
	return "2006-01-02 Mon"
}
