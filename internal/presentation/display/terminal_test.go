package display

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/axis"
	"github.com/penwyp/go-code-activity/internal/core/chart"
	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/presentation/layout"
	"github.com/penwyp/go-code-activity/internal/testing/e2e"
	"github.com/penwyp/go-code-activity/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

func minute(m int) time.Time {
	return t0.Add(time.Duration(m) * time.Minute)
}

func plot(line string) string {
	return string([]rune(line)[layout.AxisGutter:])
}

func cumulativeSnapshot() chart.Snapshot {
	series := model.Series{
		{Timestamp: minute(0), TotalBytes: 1000, Delta: 1000},
		{Timestamp: minute(30), TotalBytes: 2000, Delta: 1000},
		{Timestamp: minute(55), TotalBytes: 3000, Delta: 1000},
	}
	return chart.Snapshot{
		ID:       model.ChartCumulative,
		Series:   series,
		Visible:  series,
		Viewport: model.Viewport{XMin: minute(0), XMax: minute(60)},
		YRange:   axis.Range{Min: 0, Max: 3500},
		Markers: []chart.Marker{
			{Position: minute(30), Event: model.LogEvent{Kind: model.KindRun, ExitCode: 0}},
			{Position: minute(30), Event: model.LogEvent{Kind: model.KindBuild, ExitCode: 2}},
			{Position: minute(5), Event: model.LogEvent{Kind: model.KindRun, ExitCode: 0}},
			{Position: minute(90), Event: model.LogEvent{Kind: model.KindBuild, ExitCode: 1}},
		},
		HasData: true,
	}
}

func TestRenderChartCumulative(t *testing.T) {
	util.InitializeTimeProvider("UTC")
	rows := 5
	lines := RenderChart(cumulativeSnapshot(), ChartOptions{Columns: 12, Rows: rows})
	require.Len(t, lines, rows+4)

	assert.Contains(t, lines[0], "Cumulative size")
	assert.Contains(t, lines[1], "3.5K", "top label is the axis max")
	assert.NotContains(t, plot(lines[1]), "█", "no sample reaches the headroom")
	assert.Equal(t, "█", string([]rune(plot(lines[2]))[11]), "last column holds the peak")
	assert.Equal(t, 12, strings.Count(plot(lines[rows]), "█"), "size is carried forward between samples")
	assert.Contains(t, lines[rows], "0B")

	markers := []rune(plot(lines[rows+1]))
	assert.Equal(t, 'B', markers[6], "a failure wins over a success in the same column")
	assert.Equal(t, 'r', markers[1])
	assert.Equal(t, 2, strings.Count(string(markers), "B")+strings.Count(string(markers), "r"), "markers outside the viewport are skipped")

	assert.Contains(t, lines[rows+3], "10:00")
	assert.Contains(t, lines[rows+3], "11:00")
}

func TestRenderChartDelta(t *testing.T) {
	series := model.Series{
		{Timestamp: minute(0), TotalBytes: 500, Delta: 500},
		{Timestamp: minute(30), TotalBytes: 0, Delta: -1500},
	}
	snap := chart.Snapshot{
		ID:       model.ChartDelta,
		Series:   series,
		Visible:  series,
		Viewport: model.Viewport{XMin: minute(0), XMax: minute(60)},
		YRange:   axis.Range{Min: -2000, Max: 2000},
		HasData:  true,
	}

	lines := RenderChart(snap, ChartOptions{Columns: 40, Rows: 5, Active: true, CursorFrac: 1})
	require.Len(t, lines, 9)

	assert.True(t, strings.HasPrefix(lines[0], "▶ "), "active chart is flagged")
	assert.Equal(t, '█', []rune(plot(lines[2]))[0])
	assert.Equal(t, '█', []rune(plot(lines[3]))[0])
	assert.Equal(t, '▒', []rune(plot(lines[3]))[20])
	assert.Equal(t, '▒', []rune(plot(lines[4]))[20])
	assert.Equal(t, '┄', []rune(plot(lines[3]))[3], "zero line on empty columns")
	assert.Contains(t, lines[3], "0 │")

	axisLine := []rune(lines[7])
	assert.Equal(t, glyphCursor, axisLine[len(axisLine)-1], "cursor at the right edge")
	assert.Contains(t, lines[8], "cursor")
}

func TestRenderChartPlaceholder(t *testing.T) {
	snap := chart.Snapshot{
		ID:       model.ChartCumulative,
		Series:   model.Series{{Timestamp: minute(0)}, {Timestamp: minute(5)}},
		Viewport: model.Viewport{XMin: minute(0), XMax: minute(60)},
		HasData:  false,
	}

	lines := RenderChart(snap, ChartOptions{Columns: 30, Rows: 4})
	require.Len(t, lines, 8, "placeholder keeps the chart height")
	assert.Contains(t, strings.Join(lines, "\n"), noDataMessage)
	assert.NotContains(t, strings.Join(lines, "\n"), "└")
}

func newTestDisplay(buf *bytes.Buffer) *TerminalDisplay {
	return newTerminalDisplay(buf, func() *layout.Sizer { return layout.NewSizer(80, 40) })
}

func testFrame() Frame {
	delta := cumulativeSnapshot()
	delta.ID = model.ChartDelta
	delta.YRange = axis.Range{Min: -1500, Max: 1500}
	return Frame{
		Title:      "cs101 / a1 / alice",
		Cumulative: cumulativeSnapshot(),
		Delta:      delta,
		Status: Status{
			LastUpdate:    minute(59),
			Interval:      5,
			Builds:        2,
			BuildFailures: 1,
			Runs:          3,
		},
	}
}

func TestRenderFrame(t *testing.T) {
	util.InitializeTimeProvider("UTC")
	var buf bytes.Buffer
	td := newTestDisplay(&buf)

	frame := testFrame()
	frame.Status.Err = errors.New("connection refused")
	frame.Status.ErrAt = minute(60)
	frame.Interaction.StatusMessage = "no run-failure event near 2024-03-02 10:30"
	frame.Interaction.Detail = &model.EventDetail{
		Event:    model.LogEvent{Timestamp: minute(31), Kind: model.KindBuild, ExitCode: 2, Command: "make test", Stderr: "line1\nerror: boom\n"},
		Distance: "1m",
	}
	td.Render(frame)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, util.MoveCursorHome))
	assert.Contains(t, out, "cs101 / a1 / alice")
	assert.Contains(t, out, "Cumulative size")
	assert.Contains(t, out, "Change per bucket")
	assert.Contains(t, out, "builds 2 (1 failed)")
	assert.Contains(t, out, "updated 10:59:00")
	assert.Contains(t, out, "refresh failed at 11:00:00: connection refused")
	assert.Contains(t, out, "$ make test")
	assert.Contains(t, out, "error: boom")
	assert.Contains(t, out, "Status: no run-failure event")
}

func TestRenderRecoversFromChartPanic(t *testing.T) {
	var buf bytes.Buffer
	td := newTestDisplay(&buf)
	td.renderChart = func(snap chart.Snapshot, opts ChartOptions) []string {
		if snap.ID == model.ChartDelta {
			panic("index out of range")
		}
		return RenderChart(snap, opts)
	}

	assert.NotPanics(t, func() { td.Render(testFrame()) })
	out := buf.String()
	assert.Contains(t, out, "Cumulative size")
	assert.Contains(t, out, "chart unavailable")
	assert.Contains(t, out, "builds 2 (1 failed)", "status panel still renders")
}

func TestRenderHelpAndLoading(t *testing.T) {
	var buf bytes.Buffer
	td := newTestDisplay(&buf)

	frame := testFrame()
	frame.Interaction.ShowHelp = true
	td.Render(frame)
	assert.Contains(t, buf.String(), "Toggle auto-refresh")

	buf.Reset()
	td.Render(Frame{Status: Status{Loading: true, LoadingMessage: "Fetching series"}})
	assert.Contains(t, buf.String(), "Fetching series")
	assert.Contains(t, buf.String(), "Press 'q' to quit")
}

func TestAlternateScreenIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	td := newTestDisplay(&buf)

	td.EnterAlternateScreen()
	td.EnterAlternateScreen()
	assert.Equal(t, 1, strings.Count(buf.String(), util.EnterAltScreen))

	td.ExitAlternateScreen()
	td.ExitAlternateScreen()
	assert.Equal(t, 1, strings.Count(buf.String(), util.ExitAltScreen))
}

func TestTail(t *testing.T) {
	assert.Equal(t, []string{"b", "c"}, tail("a\n\nb\nc\n", 2))
	assert.Empty(t, tail("", 3))
}

func TestRenderOverwritesPreviousFrame(t *testing.T) {
	util.InitializeTimeProvider("UTC")
	var buf bytes.Buffer
	td := newTestDisplay(&buf)
	td.EnterAlternateScreen()

	frame := testFrame()
	frame.Interaction.Detail = &model.EventDetail{
		Event:    model.LogEvent{Timestamp: minute(31), Kind: model.KindBuild, ExitCode: 2, Command: "make test"},
		Distance: "1m",
	}
	td.Render(frame)
	td.Render(testFrame())

	screen := e2e.Replay(100, 80, buf.String())
	assert.True(t, screen.Alternate())
	assert.True(t, screen.Contains("cs101 / a1 / alice"))
	assert.True(t, screen.Contains("builds 2 (1 failed)"))
	assert.False(t, screen.Contains("$ make test"), "detail panel of the previous frame is erased")
}
