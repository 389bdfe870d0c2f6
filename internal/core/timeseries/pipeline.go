package timeseries

import (
	"time"

	"github.com/penwyp/go-code-activity/internal/core/model"
)

// Options configures Prepare
type Options struct {
	Start    time.Time
	Now      time.Time
	Interval model.Interval
	Budget   int
}

// Prepare runs gap filling followed by downsampling
func Prepare(series model.Series, opts Options) model.Series {
	filled := FillGaps(series, opts.Start, opts.Now, FillStride(opts.Interval))
	return Downsample(filled, opts.Budget)
}
