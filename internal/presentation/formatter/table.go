package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-code-activity/internal/util"
)

type TableFormatter struct {
	w       io.Writer
	headers []string
}

func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{
		w:       w,
		headers: []string{"Time", "Total", "Change", "Note"},
	}
}

func (f *TableFormatter) Format(report Report) error {
	rows := make([][]string, 0, len(report.Series)+1)
	tp := util.GetTimeProvider()
	for _, s := range report.Series {
		note := ""
		if s.Synthetic {
			note = "filled"
		}
		rows = append(rows, []string{
			tp.Format(s.Timestamp, "2006-01-02 15:04"),
			formatNumber(int64(s.TotalBytes)),
			formatSigned(s.Delta),
			note,
		})
	}

	stats := ComputeStats(report.Series)
	total := []string{
		"Total",
		formatNumber(int64(stats.Final)),
		formatSigned(stats.NetChange),
		fmt.Sprintf("%d samples", stats.Samples),
	}

	widths := f.calculateColumnWidths(append(rows, total))

	f.printBorder(widths, "top")
	f.printRow(f.headers, widths)
	f.printBorder(widths, "middle")
	for _, row := range rows {
		f.printRow(row, widths)
	}
	f.printBorder(widths, "middle")
	f.printRow(total, widths)
	f.printBorder(widths, "bottom")
	return nil
}

// calculateColumnWidths determines optimal width for each column based on content
func (f *TableFormatter) calculateColumnWidths(rows [][]string) []int {
	widths := make([]int, len(f.headers))
	for i, header := range f.headers {
		widths[i] = len(header)
	}
	for _, row := range rows {
		for i, value := range row {
			if w := util.GetDisplayWidth(value); w > widths[i] {
				widths[i] = w
			}
		}
	}

	// Apply minimum widths for readability
	for i := range widths {
		if widths[i] < 8 {
			widths[i] = 8
		}
	}
	return widths
}

// printBorder prints table borders (top, middle, bottom)
func (f *TableFormatter) printBorder(widths []int, borderType string) {
	var left, middle, right string

	switch borderType {
	case "top":
		left, middle, right = "┌", "┬", "┐"
	case "middle":
		left, middle, right = "├", "┼", "┤"
	case "bottom":
		left, middle, right = "└", "┴", "┘"
	}

	var b strings.Builder
	b.WriteString(left)
	for i, width := range widths {
		b.WriteString(strings.Repeat("─", width+2))
		if i < len(widths)-1 {
			b.WriteString(middle)
		}
	}
	b.WriteString(right)
	fmt.Fprintln(f.w, b.String())
}

// printRow prints a row; the time and note columns are left-aligned and
// the numeric columns right-aligned
func (f *TableFormatter) printRow(values []string, widths []int) {
	var b strings.Builder
	b.WriteString("│")
	for i, value := range values {
		if i == 0 || i == len(values)-1 {
			fmt.Fprintf(&b, " %-*s │", widths[i], value)
		} else {
			fmt.Fprintf(&b, " %*s │", widths[i], value)
		}
	}
	fmt.Fprintln(f.w, b.String())
}

func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}

	var result []byte
	for i, digit := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, digit)
	}

	return sign + string(result)
}

func formatSigned(n int64) string {
	if n > 0 {
		return "+" + formatNumber(n)
	}
	return formatNumber(n)
}
