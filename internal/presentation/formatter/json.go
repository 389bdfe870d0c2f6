package formatter

import (
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/data/aggregator"
)

type JSONFormatter struct {
	w io.Writer
}

func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{w: w}
}

type jsonReport struct {
	Target      model.Target            `json:"target"`
	Assignment  model.Assignment        `json:"assignment"`
	Interval    string                  `json:"interval"`
	GeneratedAt time.Time               `json:"generated_at"`
	Discarded   int                     `json:"discarded"`
	Builds      jsonLogCounts           `json:"builds"`
	Runs        jsonLogCounts           `json:"runs"`
	Periods     []aggregator.PeriodData `json:"periods,omitempty"`
	Samples     model.Series            `json:"samples"`
}

type jsonLogCounts struct {
	Total    int `json:"total"`
	Failures int `json:"failures"`
}

func (f *JSONFormatter) Format(report Report) error {
	samples := report.Series
	if samples == nil {
		samples = model.Series{}
	}
	out := jsonReport{
		Target:      report.Target,
		Assignment:  report.Assignment,
		Interval:    report.Interval.String(),
		GeneratedAt: report.GeneratedAt,
		Discarded:   report.Discarded,
		Builds:      jsonLogCounts{Total: len(report.Logs.Builds), Failures: report.Logs.Failures(model.KindBuild)},
		Runs:        jsonLogCounts{Total: len(report.Logs.Runs), Failures: report.Logs.Failures(model.KindRun)},
		Periods:     report.Periods,
		Samples:     samples,
	}

	data, err := sonic.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = f.w.Write(data)
	return err
}
