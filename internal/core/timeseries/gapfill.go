// Package timeseries holds the pure transformations applied to a fetched
// series before it reaches the charts.
package timeseries

import (
	"time"

	"github.com/penwyp/go-code-activity/internal/core/constants"
	"github.com/penwyp/go-code-activity/internal/core/model"
)

// FillGaps extends series so that it spans [start, now].
//
// When the first sample is later than start a zero sample is prepended at
// start. After the last sample, synthetic samples are appended every stride
// while strictly before now, followed by one final sample at now; all of
// them carry the last TotalBytes forward with Delta 0. Filling runs to now
// even when now is past the assignment end. The input is not modified.
func FillGaps(series model.Series, start, now time.Time, stride time.Duration) model.Series {
	if stride <= 0 {
		stride = constants.FallbackFillStride
	}

	out := make(model.Series, 0, len(series)+2)
	if len(series) == 0 || series[0].Timestamp.After(start) {
		out = append(out, model.Sample{Timestamp: start, Synthetic: true})
	}
	out = append(out, series...)

	last := out[len(out)-1]
	if !last.Timestamp.Before(now) {
		return out
	}

	for ts := last.Timestamp.Add(stride); ts.Before(now); ts = ts.Add(stride) {
		out = append(out, model.Sample{
			Timestamp:  ts,
			TotalBytes: last.TotalBytes,
			Synthetic:  true,
		})
	}
	out = append(out, model.Sample{
		Timestamp:  now,
		TotalBytes: last.TotalBytes,
		Synthetic:  true,
	})
	return out
}

// FillStride resolves the gap-fill stride for a bucket width. The stride is
// always the bucket width itself, whatever unit it was selected in.
func FillStride(iv model.Interval) time.Duration {
	if !iv.Valid() {
		return constants.FallbackFillStride
	}
	return iv.Duration()
}
