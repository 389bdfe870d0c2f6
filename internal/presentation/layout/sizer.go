package layout

import (
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/penwyp/go-code-activity/internal/util"
	"golang.org/x/term"
)

const (
	fallbackWidth  = 80
	fallbackHeight = 24
	minWidth       = 40
	maxWidth       = 160

	// AxisGutter is the width reserved left of a chart for y-axis labels
	AxisGutter = 9
	// minChartRows is the smallest plot area a chart is drawn with
	minChartRows = 3
	chartChrome  = 4
)

// Sizer carries the terminal dimensions a frame is laid out for
type Sizer struct {
	Width  int
	Height int
}

// NewSizer creates a sizer for explicit dimensions. Negative values are
// clamped to zero.
func NewSizer(width, height int) *Sizer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Sizer{Width: width, Height: height}
}

// DetectSizer reads the terminal size from stdout, falling back to 80x24
func DetectSizer() *Sizer {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 || height <= 0 {
		util.LogDebug("Terminal size unavailable, using fallback", util.F("width", fallbackWidth), util.F("height", fallbackHeight))
		return NewSizer(fallbackWidth, fallbackHeight)
	}
	return NewSizer(width, height)
}

// displayWidth calculates the actual display width of a string containing emojis and Unicode characters
func (s Sizer) displayWidth(text string) int {
	return runewidth.StringWidth(text)
}

// PadString pads a string to a specific display width, handling wide runes correctly
func (s Sizer) PadString(text string, width int, leftAlign bool) string {
	actual := s.displayWidth(text)
	if actual >= width {
		return text
	}

	padding := strings.Repeat(" ", width-actual)
	if leftAlign {
		return text + padding
	}
	return padding + text
}

// FitString pads or truncates text to exactly width cells
func (s Sizer) FitString(text string, width int) string {
	if s.displayWidth(text) > width {
		text = util.TruncateToWidth(text, width)
	}
	return s.PadString(text, width, true)
}

// GetMaxWidth returns the usable frame width
func (s Sizer) GetMaxWidth() int {
	width := s.Width
	if width < minWidth {
		width = minWidth
	}
	if width > maxWidth {
		width = maxWidth
	}
	return width
}

// PlotColumns returns the number of data columns of a chart
func (s Sizer) PlotColumns() int {
	return s.GetMaxWidth() - AxisGutter - 1
}

// ChartRows splits the rows left after reserved lines between the two
// charts. Each chart also needs a title, a marker, an axis and a label line.
func (s Sizer) ChartRows(reserved int) int {
	available := s.Height - reserved
	rows := available/2 - chartChrome
	if rows < minChartRows {
		return minChartRows
	}
	return rows
}
