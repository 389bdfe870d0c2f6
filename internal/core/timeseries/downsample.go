package timeseries

import (
	"github.com/penwyp/go-code-activity/internal/core/model"
)

// minBudget keeps room for the first and last sample
const minBudget = 2

// Downsample bounds the number of points by fixed-stride decimation.
//
// With N <= budget the input is returned unchanged. Otherwise every
// ceil(N/budget)-th sample is kept starting at index 0; when the last index
// does not fall on the stride the final kept sample is replaced by the last
// sample, so the result holds at most budget samples and always includes
// both ends. Nothing is interpolated or aggregated.
func Downsample(series model.Series, budget int) model.Series {
	if budget < minBudget {
		budget = minBudget
	}
	n := len(series)
	if n <= budget {
		return series
	}

	stride := (n + budget - 1) / budget
	out := make(model.Series, 0, (n+stride-1)/stride)
	for i := 0; i < n; i += stride {
		out = append(out, series[i])
	}
	if (n-1)%stride != 0 {
		out[len(out)-1] = series[n-1]
	}
	return out
}
