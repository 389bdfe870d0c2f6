package util

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Terminal control sequences
const (
	ColorReset   = "\033[0m"
	ColorBlue    = "\033[34m"
	ColorCyan    = "\033[36m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorRed     = "\033[31m"
	ColorMagenta = "\033[35m"
	ColorBold    = "\033[1m"

	ClearScreen     = "\033[2J"
	ClearLine       = "\033[2K"
	ClearScrollback = "\033[3J"
	MoveCursorHome  = "\033[H"
	HideCursor      = "\033[?25l"
	ShowCursor      = "\033[?25h"
	EnterAltScreen  = "\033[?1049h"
	ExitAltScreen   = "\033[?1049l"
)

// GetDisplayWidth calculates the display width of a string, accounting for wide runes
func GetDisplayWidth(text string) int {
	return runewidth.StringWidth(text)
}

// TruncateToWidth cuts text so it occupies at most width cells
func TruncateToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(text, width, "…")
}

// FormatHeaderTitle formats main header titles (Magenta + Bold)
func FormatHeaderTitle(title string) string {
	return fmt.Sprintf("%s%s%s%s", ColorBold, ColorMagenta, title, ColorReset)
}

// FormatSectionSeparator creates a separator line of the given width
func FormatSectionSeparator(width int) string {
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("%s%s%s", ColorCyan, strings.Repeat("─", width), ColorReset)
}
