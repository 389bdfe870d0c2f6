package timeseries

import (
	"testing"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSeries(n int) model.Series {
	s := make(model.Series, n)
	for i := range s {
		s[i] = model.Sample{
			Timestamp:  assignmentStart.Add(time.Duration(i) * time.Minute),
			TotalBytes: uint64(i),
			Delta:      1,
		}
	}
	return s
}

func TestDownsampleBudgetProperty(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 10, 499, 500, 501, 999, 1000, 1001, 4321, 10000} {
		for _, budget := range []int{2, 3, 7, 100, 500} {
			in := makeSeries(n)
			out := Downsample(in, budget)

			assert.LessOrEqual(t, len(out), budget, "n=%d budget=%d", n, budget)
			if n <= budget {
				assert.Equal(t, in, out, "n=%d budget=%d", n, budget)
				continue
			}
			require.NotEmpty(t, out)
			assert.Equal(t, in[0], out[0])
			assert.Equal(t, in[n-1], out[len(out)-1])
			for i := 1; i < len(out); i++ {
				assert.True(t, out[i-1].Timestamp.Before(out[i].Timestamp))
			}
		}
	}
}

func TestDownsampleTenThousandPoints(t *testing.T) {
	out := Downsample(makeSeries(10000), 500)

	assert.GreaterOrEqual(t, len(out), 500)
	assert.LessOrEqual(t, len(out), 501)
	assert.Equal(t, uint64(20), out[1].TotalBytes, "stride of 20")
	assert.Equal(t, uint64(9999), out[len(out)-1].TotalBytes)
}

func TestDownsampleTinyBudget(t *testing.T) {
	out := Downsample(makeSeries(10), 0)
	require.Len(t, out, 2)
	assert.Equal(t, uint64(0), out[0].TotalBytes)
	assert.Equal(t, uint64(9), out[1].TotalBytes)
}

func TestPrepare(t *testing.T) {
	now := assignmentStart.Add(48 * time.Hour)
	out := Prepare(model.Series{{Timestamp: assignmentStart.Add(time.Hour), TotalBytes: 10}}, Options{
		Start:    assignmentStart,
		Now:      now,
		Interval: 1,
		Budget:   100,
	})

	assert.LessOrEqual(t, len(out), 100)
	assert.Equal(t, assignmentStart, out[0].Timestamp)
	assert.Equal(t, now, out[len(out)-1].Timestamp)
}
