package display

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/penwyp/go-code-activity/internal/core/chart"
	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/presentation/layout"
	"github.com/penwyp/go-code-activity/internal/util"
)

// Erase sequences used by in-place redraws
const (
	clearToEOL = "\033[K"
	clearToEOS = "\033[J"
)

// reservedRows are the non-chart lines of a frame: header, status panel
// and status message
const reservedRows = 8

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("6")).
			Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	detailStyle = panelStyle.BorderForeground(lipgloss.Color("3"))
)

// chartRenderer draws one chart; it is a field so rendering failures can be
// exercised in tests
type chartRenderer func(snap chart.Snapshot, opts ChartOptions) []string

// TerminalDisplay redraws the two charts and the status panel in place
type TerminalDisplay struct {
	out               io.Writer
	sizer             func() *layout.Sizer
	renderChart       chartRenderer
	inAlternateScreen bool
	isFirstRender     bool
	lastHelp          bool
	lastDraw          time.Time
}

// NewTerminalDisplay creates a display writing to stdout and sized from the
// terminal
func NewTerminalDisplay() *TerminalDisplay {
	return newTerminalDisplay(os.Stdout, layout.DetectSizer)
}

func newTerminalDisplay(out io.Writer, sizer func() *layout.Sizer) *TerminalDisplay {
	return &TerminalDisplay{
		out:           out,
		sizer:         sizer,
		renderChart:   RenderChart,
		isFirstRender: true,
	}
}

// EnterAlternateScreen switches to alternate screen buffer
func (td *TerminalDisplay) EnterAlternateScreen() {
	if td.inAlternateScreen {
		return
	}
	fmt.Fprint(td.out, util.EnterAltScreen)
	fmt.Fprint(td.out, util.ClearScreen)
	fmt.Fprint(td.out, util.ClearScrollback)
	fmt.Fprint(td.out, util.HideCursor)
	fmt.Fprint(td.out, util.MoveCursorHome)
	td.inAlternateScreen = true
	td.isFirstRender = true
}

// ExitAlternateScreen returns to normal screen buffer
func (td *TerminalDisplay) ExitAlternateScreen() {
	if !td.inAlternateScreen {
		return
	}
	fmt.Fprint(td.out, util.ClearScreen)
	fmt.Fprint(td.out, util.MoveCursorHome)
	fmt.Fprint(td.out, util.ShowCursor)
	fmt.Fprint(td.out, util.ExitAltScreen)
	td.inAlternateScreen = false
}

// ClearScreen clears the alternate screen buffer
func (td *TerminalDisplay) ClearScreen() {
	if td.inAlternateScreen {
		fmt.Fprint(td.out, util.ClearScreen)
		fmt.Fprint(td.out, util.MoveCursorHome)
	}
}

// Render draws one frame. Lines are overwritten in place from the home
// position so unchanged text is not cleared between frames.
func (td *TerminalDisplay) Render(frame Frame) {
	sizer := td.sizer()

	var lines []string
	switch {
	case frame.Interaction.ShowHelp:
		lines = helpLines()
	case frame.Status.Loading && len(frame.Cumulative.Series) == 0 && len(frame.Delta.Series) == 0:
		lines = loadingLines(frame.Status.LoadingMessage, sizer.GetMaxWidth())
	default:
		lines = td.frameLines(frame, sizer)
	}

	// Mode changes leave stale text behind, so clear fully once
	if td.isFirstRender || td.lastHelp != frame.Interaction.ShowHelp {
		td.ClearScreen()
		td.isFirstRender = false
		td.lastHelp = frame.Interaction.ShowHelp
	}

	var buf bytes.Buffer
	buf.WriteString(util.MoveCursorHome)
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteString(clearToEOL)
		buf.WriteString("\r\n")
	}
	buf.WriteString(clearToEOS)
	if _, err := td.out.Write(buf.Bytes()); err != nil {
		util.LogWarn("Failed to write frame", util.F("error", err.Error()))
	}
	td.lastDraw = time.Now()
}

func (td *TerminalDisplay) frameLines(frame Frame, sizer *layout.Sizer) []string {
	width := sizer.GetMaxWidth()
	opts := ChartOptions{
		Columns:    sizer.PlotColumns(),
		Rows:       sizer.ChartRows(reservedRows),
		CursorFrac: frame.Interaction.CursorFrac,
	}

	lines := []string{header(frame, width)}
	for _, id := range []model.ChartID{model.ChartCumulative, model.ChartDelta} {
		o := opts
		o.Active = frame.Interaction.ActiveChart == id
		lines = append(lines, td.safeChart(frame.Snapshot(id), o)...)
	}

	lines = append(lines, splitLines(statusPanel(frame, width))...)
	if d := frame.Interaction.Detail; d != nil {
		lines = append(lines, splitLines(detailPanel(*d, width))...)
	}
	if msg := frame.Interaction.StatusMessage; msg != "" {
		lines = append(lines, "  Status: "+msg)
	}
	return lines
}

// safeChart draws one chart, replacing it with a placeholder if drawing
// panics so the other chart and the status panel still render
func (td *TerminalDisplay) safeChart(snap chart.Snapshot, opts ChartOptions) (lines []string) {
	defer func() {
		if r := recover(); r != nil {
			util.LogError("Chart render failed", util.F("chart", snap.ID.String()), util.F("panic", fmt.Sprint(r)))
			lines = append([]string{chartTitle(chart.Snapshot{ID: snap.ID}, opts.Active)},
				placeholder(opts.Columns, opts.Rows+3, "chart unavailable")...)
		}
	}()
	return td.renderChart(snap, opts)
}

func header(frame Frame, width int) string {
	title := frame.Title
	if title == "" {
		title = "Code Activity"
	}
	clock := util.GetTimeProvider().Now().Format("15:04:05")
	left := util.FormatHeaderTitle(title)
	gap := width - util.GetDisplayWidth(title) - len(clock)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + clock
}

func statusPanel(frame Frame, width int) string {
	st := frame.Status
	poll := "off"
	if frame.Interaction.AutoRefresh {
		poll = "on"
		if st.Polling {
			poll = "polling"
		}
	}

	updated := "never"
	if !st.LastUpdate.IsZero() {
		updated = util.GetTimeProvider().Format(st.LastUpdate, "15:04:05")
	}
	first := fmt.Sprintf("updated %s  interval %s  auto-refresh %s", updated, st.Interval, poll)
	if st.Refreshing || st.Loading {
		first += "  refreshing…"
	}

	second := fmt.Sprintf("builds %d (%d failed)  runs %d (%d failed)", st.Builds, st.BuildFailures, st.Runs, st.RunFailures)
	third := mutedStyle.Render("markers: B/b build fail/ok  R/r run fail/ok  ? help")

	body := []string{first, second}
	if st.Err != nil {
		at := util.GetTimeProvider().Format(st.ErrAt, "15:04:05")
		body = append(body, errorStyle.Render(fmt.Sprintf("refresh failed at %s: %v", at, st.Err)))
	}
	body = append(body, third)
	return panelStyle.Width(width - 2).Render(strings.Join(body, "\n"))
}

func detailPanel(d model.EventDetail, width int) string {
	e := d.Event
	ts := util.GetTimeProvider().Format(e.Timestamp, "2006-01-02 15:04:05")
	body := []string{
		fmt.Sprintf("%s %s at %s (%s away)  exit %d", e.Kind, e.Outcome(), ts, d.Distance, e.ExitCode),
		"$ " + e.Command,
	}
	for _, out := range []string{e.Stdout, e.Stderr} {
		for _, line := range tail(out, 3) {
			body = append(body, mutedStyle.Render(util.TruncateToWidth(line, width-6)))
		}
	}
	return detailStyle.Width(width - 2).Render(strings.Join(body, "\n"))
}

// tail returns the last n non-empty lines of text
func tail(text string, n int) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

func splitLines(block string) []string {
	return strings.Split(block, "\n")
}

func helpLines() []string {
	return []string{
		"Code Activity - Help",
		strings.Repeat("═", 60),
		"",
		"Navigation:",
		"  ←/→       - Pan both charts",
		"  +/-       - Zoom in/out around the cursor",
		"  0         - Reset zoom to the assignment window",
		"  Tab       - Switch active chart",
		"  h/l       - Move the cursor",
		"",
		"Logs under the cursor:",
		"  b/B       - Nearest build failure/success",
		"  u/U       - Nearest run failure/success",
		"",
		"Data:",
		"  r         - Refresh now",
		"  R         - Reload assignment, series and logs",
		"  a         - Toggle auto-refresh",
		"",
		"  q/Esc/Ctrl+C - Quit",
		strings.Repeat("═", 60),
		"Press '?' to return...",
	}
}

// loadingLines draws the boxed loading screen shown before the first series
func loadingLines(message string, width int) []string {
	boxWidth := 50
	if boxWidth > width {
		boxWidth = width
	}
	padding := strings.Repeat(" ", (width-boxWidth)/2)
	inner := boxWidth - 2
	sizer := layout.NewSizer(width, 0)

	if message == "" {
		message = "Loading data..."
	}
	loadingChars := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	anim := loadingChars[int(time.Now().Unix())%len(loadingChars)]

	center := func(text string) string {
		pad := (inner - util.GetDisplayWidth(text)) / 2
		if pad < 0 {
			pad = 0
		}
		return padding + "║" + sizer.FitString(strings.Repeat(" ", pad)+text, inner) + "║"
	}

	return []string{
		"", "", "", "",
		padding + "╔" + strings.Repeat("═", inner) + "╗",
		center("Code Activity"),
		padding + "╠" + strings.Repeat("═", inner) + "╣",
		center(""),
		center(anim + " " + message),
		center(""),
		center("Press 'q' to quit"),
		padding + "╚" + strings.Repeat("═", inner) + "╝",
	}
}
