package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSizer(t *testing.T) {
	tests := []struct {
		name       string
		width      int
		height     int
		wantWidth  int
		wantHeight int
	}{
		{name: "standard_terminal", width: 80, height: 24, wantWidth: 80, wantHeight: 24},
		{name: "wide_terminal", width: 200, height: 50, wantWidth: 200, wantHeight: 50},
		{name: "negative_dimensions", width: -10, height: -3, wantWidth: 0, wantHeight: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sizer := NewSizer(tt.width, tt.height)
			assert.Equal(t, tt.wantWidth, sizer.Width)
			assert.Equal(t, tt.wantHeight, sizer.Height)
		})
	}
}

func TestSizerMaxWidthIsClamped(t *testing.T) {
	assert.Equal(t, 40, NewSizer(20, 24).GetMaxWidth())
	assert.Equal(t, 100, NewSizer(100, 24).GetMaxWidth())
	assert.Equal(t, 160, NewSizer(10000, 24).GetMaxWidth())
	assert.Equal(t, 100-AxisGutter-1, NewSizer(100, 24).PlotColumns())
}

func TestSizerChartRows(t *testing.T) {
	tests := []struct {
		name     string
		height   int
		reserved int
		want     int
	}{
		{name: "standard_layout", height: 40, reserved: 8, want: 12},
		{name: "tall_terminal", height: 100, reserved: 8, want: 42},
		{name: "no_space_uses_minimum", height: 10, reserved: 8, want: 3},
		{name: "zero_height", height: 0, reserved: 0, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewSizer(80, tt.height).ChartRows(tt.reserved))
		})
	}
}

func TestPadAndFitString(t *testing.T) {
	s := NewSizer(80, 24)

	assert.Equal(t, "ab   ", s.PadString("ab", 5, true))
	assert.Equal(t, "   ab", s.PadString("ab", 5, false))
	assert.Equal(t, "abcdef", s.PadString("abcdef", 3, true))

	// wide runes occupy two cells
	assert.Equal(t, "日本 ", s.PadString("日本", 5, true))

	assert.Equal(t, "abcd…", s.FitString("abcdefgh", 5))
	assert.Equal(t, "ab   ", s.FitString("ab", 5))
}
