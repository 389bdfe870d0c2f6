package util

import (
	"fmt"
	"time"
)

// FormatBytes renders a byte count with a binary-ish K/M suffix as used in
// the chart axes
func FormatBytes(n uint64) string {
	switch {
	case n < 1000:
		return fmt.Sprintf("%dB", n)
	case n < 1000000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	default:
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
}

// FormatDelta renders a signed change with an explicit sign
func FormatDelta(d int64) string {
	if d > 0 {
		return "+" + FormatBytes(uint64(d))
	}
	if d < 0 {
		return "-" + FormatBytes(uint64(-d))
	}
	return "0B"
}

// FormatDuration renders a duration as "2d 3h", "3h 5m" or "5m"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// FormatAxisTime picks a time layout that fits the visible span
func FormatAxisTime(t time.Time, span time.Duration) string {
	tp := GetTimeProvider()
	switch {
	case span <= 6*time.Hour:
		return tp.Format(t, "15:04")
	case span <= 72*time.Hour:
		return tp.Format(t, "01-02 15:04")
	default:
		return tp.Format(t, "01-02")
	}
}
