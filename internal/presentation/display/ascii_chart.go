package display

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/chart"
	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/presentation/layout"
	"github.com/penwyp/go-code-activity/internal/util"
)

const (
	glyphBar      = '█'
	glyphNegative = '▒'
	glyphZero     = '┄'
	glyphCursor   = '▲'

	noDataMessage = "no data yet"
)

// Marker glyphs; failures are upper case and win over successes sharing a column
var markerGlyphs = map[model.EventKind][2]rune{
	model.KindBuild: {'b', 'B'},
	model.KindRun:   {'r', 'R'},
}

// ChartOptions controls how a chart snapshot is drawn
type ChartOptions struct {
	Columns    int
	Rows       int
	Active     bool
	CursorFrac float64
}

// column is the value drawn in one plot column
type column struct {
	value float64
	ok    bool
}

// RenderChart draws a snapshot as text lines: a title, the plot rows, a
// marker row, the x axis and the time labels. A chart without data gets a
// placeholder of the same height.
func RenderChart(snap chart.Snapshot, opts ChartOptions) []string {
	cols, rows := opts.Columns, opts.Rows
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	lines := make([]string, 0, rows+4)
	lines = append(lines, chartTitle(snap, opts.Active))
	if !snap.HasData || !snap.Viewport.Valid() {
		return append(lines, placeholder(cols, rows+3, noDataMessage)...)
	}

	lo, hi := snap.YRange.Min, snap.YRange.Max
	if hi <= lo {
		hi = lo + 1
	}

	grid := make([][]rune, rows)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", cols))
	}

	zeroRow := rowOf(0, lo, hi, rows)
	for c, v := range columnValues(snap, cols) {
		if !v.ok {
			continue
		}
		r := rowOf(v.value, lo, hi, rows)
		switch {
		case snap.ID == model.ChartDelta && v.value != 0:
			glyph := glyphBar
			if v.value < 0 {
				glyph = glyphNegative
			}
			from, to := r, zeroRow
			if from > to {
				from, to = to, from
			}
			for i := from; i <= to; i++ {
				grid[i][c] = glyph
			}
		case snap.ID == model.ChartCumulative && v.value > lo:
			for i := r; i < rows; i++ {
				grid[i][c] = glyphBar
			}
		}
	}
	if snap.ID == model.ChartDelta {
		for c := range grid[zeroRow] {
			if grid[zeroRow][c] == ' ' {
				grid[zeroRow][c] = glyphZero
			}
		}
	}

	for i, row := range grid {
		label := ""
		switch {
		case i == 0:
			label = formatAxisValue(snap.ID, hi)
		case i == rows-1:
			label = formatAxisValue(snap.ID, lo)
		case snap.ID == model.ChartDelta && i == zeroRow:
			label = "0"
		}
		lines = append(lines, gutter(label, '│')+string(row))
	}

	lines = append(lines, gutter("logs", '┆')+markerRow(snap, cols))
	lines = append(lines, strings.Repeat(" ", layout.AxisGutter-1)+"└"+axisRow(cols, opts))
	lines = append(lines, strings.Repeat(" ", layout.AxisGutter)+timeLabels(snap.Viewport, cols, opts))
	return lines
}

func chartTitle(snap chart.Snapshot, active bool) string {
	prefix := "  "
	if active {
		prefix = "▶ "
	}
	name := "Cumulative size"
	if snap.ID == model.ChartDelta {
		name = "Change per bucket"
	}
	if !snap.HasData {
		return prefix + name
	}
	return fmt.Sprintf("%s%s  y=%s  %d/%d points", prefix, name, snap.YRange, len(snap.Visible), len(snap.Series))
}

func placeholder(cols, rows int, message string) []string {
	sizer := layout.NewSizer(cols, rows)
	lines := make([]string, rows)
	for i := range lines {
		lines[i] = strings.Repeat(" ", layout.AxisGutter)
	}
	pad := (cols - util.GetDisplayWidth(message)) / 2
	if pad < 0 {
		pad = 0
	}
	lines[rows/2] += sizer.FitString(strings.Repeat(" ", pad)+message, cols)
	return lines
}

// columnValues maps visible samples to plot columns. The cumulative chart
// holds the last size of each column and carries it forward until the last
// sample; the delta chart sums the changes inside a column.
func columnValues(snap chart.Snapshot, cols int) []column {
	values := make([]column, cols)
	vp := snap.Viewport
	span := float64(vp.Span())

	last := -1
	for _, s := range snap.Visible {
		c := int(float64(s.Timestamp.Sub(vp.XMin)) / span * float64(cols))
		if c >= cols {
			c = cols - 1
		}
		if c < 0 {
			c = 0
		}
		if snap.ID == model.ChartDelta {
			values[c].value += float64(s.Delta)
		} else {
			values[c].value = float64(s.TotalBytes)
		}
		values[c].ok = true
		last = c
	}

	if snap.ID == model.ChartCumulative {
		carry, have := priorSize(snap.Series, vp.XMin)
		for c := 0; c <= last; c++ {
			if values[c].ok {
				carry, have = values[c].value, true
				continue
			}
			if have {
				values[c] = column{value: carry, ok: true}
			}
		}
	}
	return values
}

// priorSize returns the size of the last sample before t
func priorSize(series model.Series, t time.Time) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if series[i].Timestamp.Before(t) {
			return float64(series[i].TotalBytes), true
		}
	}
	return 0, false
}

func rowOf(v, lo, hi float64, rows int) int {
	frac := (v - lo) / (hi - lo)
	frac = math.Max(0, math.Min(1, frac))
	return rows - 1 - int(math.Round(frac*float64(rows-1)))
}

func markerRow(snap chart.Snapshot, cols int) string {
	row := []rune(strings.Repeat(" ", cols))
	vp := snap.Viewport
	span := float64(vp.Span())
	for _, m := range snap.Markers {
		if !vp.Contains(m.Position) {
			continue
		}
		c := int(float64(m.Position.Sub(vp.XMin)) / span * float64(cols))
		if c >= cols {
			c = cols - 1
		}
		glyphs, ok := markerGlyphs[m.Event.Kind]
		if !ok {
			continue
		}
		if m.Event.Outcome() == model.OutcomeFailure {
			row[c] = glyphs[1]
		} else if row[c] == ' ' {
			row[c] = glyphs[0]
		}
	}
	return string(row)
}

func axisRow(cols int, opts ChartOptions) string {
	row := []rune(strings.Repeat("─", cols))
	if opts.Active {
		row[cursorColumn(opts.CursorFrac, cols)] = glyphCursor
	}
	return string(row)
}

func cursorColumn(frac float64, cols int) int {
	return int(math.Round(math.Max(0, math.Min(1, frac)) * float64(cols-1)))
}

func timeLabels(vp model.Viewport, cols int, opts ChartOptions) string {
	span := vp.Span()
	left := util.FormatAxisTime(vp.XMin, span)
	right := util.FormatAxisTime(vp.XMax, span)
	middle := ""
	if opts.Active {
		at := vp.XMin.Add(time.Duration(math.Max(0, math.Min(1, opts.CursorFrac)) * float64(span)))
		middle = "cursor " + util.FormatAxisTime(at, span)
	}

	free := cols - util.GetDisplayWidth(left) - util.GetDisplayWidth(right)
	if free < util.GetDisplayWidth(middle)+2 {
		middle = ""
	}
	if free < 1 {
		return util.TruncateToWidth(left, cols)
	}
	gap := free - util.GetDisplayWidth(middle)
	leftGap := gap / 2
	return left + strings.Repeat(" ", leftGap) + middle + strings.Repeat(" ", gap-leftGap) + right
}

func gutter(label string, edge rune) string {
	return fmt.Sprintf("%*s %c", layout.AxisGutter-2, util.TruncateToWidth(label, layout.AxisGutter-2), edge)
}

func formatAxisValue(id model.ChartID, v float64) string {
	if id == model.ChartDelta {
		return util.FormatDelta(int64(v))
	}
	if v < 0 {
		v = 0
	}
	return util.FormatBytes(uint64(v))
}
