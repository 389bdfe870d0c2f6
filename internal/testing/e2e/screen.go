// Package e2e replays terminal output into a virtual screen so tests can
// assert on what a user would actually see after in-place redraws.
package e2e

import (
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)

// StripANSI removes all CSI escape sequences
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// Screen is a fixed-size grid of cells. It understands cursor positioning,
// the erase sequences used by the frame renderer and the alternate screen
// switch; colour and other SGR sequences are ignored.
type Screen struct {
	rows, cols int
	cells      [][]rune
	x, y       int
	alternate  bool
}

// NewScreen creates a blank screen
func NewScreen(rows, cols int) *Screen {
	s := &Screen{rows: rows, cols: cols, cells: make([][]rune, rows)}
	for i := range s.cells {
		s.cells[i] = blankRow(cols)
	}
	return s
}

// Replay parses a complete output stream onto a fresh screen
func Replay(rows, cols int, output string) *Screen {
	s := NewScreen(rows, cols)
	s.Write([]byte(output))
	return s
}

// Write implements io.Writer so a screen can stand in for a terminal
func (s *Screen) Write(p []byte) (int, error) {
	runes := []rune(string(p))
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; {
		case r == '\x1b' && i+1 < len(runes) && runes[i+1] == '[':
			i = s.csi(runes, i+2)
		case r == '\r':
			s.x = 0
		case r == '\n':
			s.lineFeed()
		default:
			s.put(r)
		}
	}
	return len(p), nil
}

// csi handles one control sequence starting at the parameter bytes and
// returns the index of its final byte
func (s *Screen) csi(runes []rune, i int) int {
	private := false
	if i < len(runes) && runes[i] == '?' {
		private = true
		i++
	}

	var params []int
	current, seen := 0, false
	for ; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r >= '0' && r <= '9':
			current = current*10 + int(r-'0')
			seen = true
		case r == ';':
			params = append(params, current)
			current, seen = 0, false
		default:
			if seen {
				params = append(params, current)
			}
			if private {
				s.privateMode(r, params)
			} else {
				s.command(r, params)
			}
			return i
		}
	}
	return i
}

func (s *Screen) privateMode(cmd rune, params []int) {
	if len(params) == 0 || params[0] != 1049 {
		return
	}
	switch cmd {
	case 'h':
		s.alternate = true
		s.clearAll()
	case 'l':
		s.alternate = false
	}
}

func (s *Screen) command(cmd rune, params []int) {
	arg := func(idx, def int) int {
		if idx < len(params) && params[idx] > 0 {
			return params[idx]
		}
		return def
	}
	mode := 0
	if len(params) > 0 {
		mode = params[0]
	}

	switch cmd {
	case 'H', 'f':
		s.y = clamp(arg(0, 1)-1, 0, s.rows-1)
		s.x = clamp(arg(1, 1)-1, 0, s.cols-1)
	case 'A':
		s.y = clamp(s.y-arg(0, 1), 0, s.rows-1)
	case 'B':
		s.y = clamp(s.y+arg(0, 1), 0, s.rows-1)
	case 'C':
		s.x = clamp(s.x+arg(0, 1), 0, s.cols-1)
	case 'D':
		s.x = clamp(s.x-arg(0, 1), 0, s.cols-1)
	case 'J':
		switch mode {
		case 0:
			s.eraseLine(s.x, s.cols)
			for row := s.y + 1; row < s.rows; row++ {
				s.cells[row] = blankRow(s.cols)
			}
		case 2, 3:
			s.clearAll()
		}
	case 'K':
		switch mode {
		case 0:
			s.eraseLine(s.x, s.cols)
		case 1:
			s.eraseLine(0, s.x+1)
		case 2:
			s.eraseLine(0, s.cols)
		}
	}
}

func (s *Screen) put(r rune) {
	w := runewidth.RuneWidth(r)
	if w == 0 {
		return
	}
	if s.x+w > s.cols {
		// the frame renderer never wraps; drop overflow like a terminal
		// with autowrap disabled
		return
	}
	s.cells[s.y][s.x] = r
	for k := 1; k < w; k++ {
		s.cells[s.y][s.x+k] = 0
	}
	s.x += w
}

func (s *Screen) lineFeed() {
	if s.y < s.rows-1 {
		s.y++
		return
	}
	copy(s.cells, s.cells[1:])
	s.cells[s.rows-1] = blankRow(s.cols)
}

func (s *Screen) eraseLine(from, to int) {
	for col := from; col < to && col < s.cols; col++ {
		s.cells[s.y][col] = ' '
	}
}

func (s *Screen) clearAll() {
	for row := range s.cells {
		s.cells[row] = blankRow(s.cols)
	}
}

// Alternate reports whether the alternate screen buffer is active
func (s *Screen) Alternate() bool {
	return s.alternate
}

// Line returns one row without trailing blanks
func (s *Screen) Line(row int) string {
	if row < 0 || row >= s.rows {
		return ""
	}
	var b strings.Builder
	for _, r := range s.cells[row] {
		if r != 0 {
			b.WriteRune(r)
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Lines returns every row up to the last non-blank one
func (s *Screen) Lines() []string {
	out := make([]string, s.rows)
	last := -1
	for i := range out {
		out[i] = s.Line(i)
		if out[i] != "" {
			last = i
		}
	}
	return out[:last+1]
}

// Text returns the visible screen content
func (s *Screen) Text() string {
	return strings.Join(s.Lines(), "\n")
}

// Contains reports whether the visible content holds text
func (s *Screen) Contains(text string) bool {
	return strings.Contains(s.Text(), text)
}

func blankRow(cols int) []rune {
	row := make([]rune, cols)
	for i := range row {
		row[i] = ' '
	}
	return row
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
