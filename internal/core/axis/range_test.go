package axis

import (
	"testing"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func samples(values ...int64) model.Series {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var total int64
	s := make(model.Series, len(values))
	for i, v := range values {
		total += v
		if total < 0 {
			total = 0
		}
		s[i] = model.Sample{Timestamp: base.Add(time.Duration(i) * time.Minute), TotalBytes: uint64(total), Delta: v}
	}
	return s
}

func TestCumulativeRange(t *testing.T) {
	calc := NewCalculator(Cumulative)

	tests := []struct {
		name     string
		series   model.Series
		expected Range
	}{
		{name: "1200 rounds to 1500", series: samples(1200), expected: Range{0, 1500}},
		{name: "exact multiple after headroom", series: samples(5000), expected: Range{0, 5500}},
		{name: "large exact multiple after headroom", series: samples(50000), expected: Range{0, 55000}},
		{name: "just past a multiple rounds up", series: samples(50001), expected: Range{0, 55500}},
		{name: "small value gets one step", series: samples(10), expected: Range{0, 500}},
		{name: "all zero gets one step", series: samples(0, 0), expected: Range{0, 500}},
		{name: "peak inside slice", series: samples(100, 2000, -1500), expected: Range{0, 2500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calc.Compute(tt.series, Range{}))
		})
	}
}

func TestDeltaRangeIsSymmetric(t *testing.T) {
	calc := NewCalculator(Delta)

	cases := []model.Series{
		samples(1200),
		samples(-3000, 100),
		samples(10, 20, 30),
		samples(-1, -2),
		samples(0),
		samples(450, -460, 2),
	}
	for _, s := range cases {
		r := calc.Compute(s, Range{})
		assert.Equal(t, -r.Min, r.Max, "symmetry for %v", r)
		assert.Greater(t, r.Max, 0.0)
	}

	assert.Equal(t, Range{-3500, 3500}, calc.Compute(samples(-3000, 100), Range{}))
	assert.Equal(t, Range{-1500, 1500}, calc.Compute(samples(1200, -5), Range{}))
	assert.Equal(t, Range{-55000, 55000}, calc.Compute(samples(-50000), Range{}))
}

func TestEmptySliceRetainsPrevious(t *testing.T) {
	previous := Range{Min: -1000, Max: 1000}
	assert.Equal(t, previous, NewCalculator(Delta).Compute(model.Series{}, previous))
	assert.Equal(t, Range{0, 2000}, NewCalculator(Cumulative).Compute(nil, Range{0, 2000}))
}
