package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownInterval is returned for bucket widths the endpoint does not serve
var ErrUnknownInterval = errors.New("unknown interval")

// Interval is a telemetry bucket width in minutes
type Interval int

const (
	IntervalHour  Interval = 60
	IntervalDay   Interval = 1440
	IntervalWeek  Interval = 10080
	IntervalMonth Interval = 43200
)

// minuteIntervals are the bucket widths selectable in minute mode
var minuteIntervals = []Interval{1, 3, 5, 10, 15, 30, 60}

var unitIntervals = map[string]Interval{
	"hour":  IntervalHour,
	"day":   IntervalDay,
	"week":  IntervalWeek,
	"month": IntervalMonth,
}

// ParseInterval accepts a minute count ("5", "5m") or a unit name
// ("hour", "day", "week", "month")
func ParseInterval(s string) (Interval, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	if iv, ok := unitIntervals[raw]; ok {
		return iv, nil
	}

	n, err := strconv.Atoi(strings.TrimSuffix(raw, "m"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownInterval, s)
	}
	iv := Interval(n)
	if !iv.Valid() {
		return 0, fmt.Errorf("%w: %d minutes", ErrUnknownInterval, n)
	}
	return iv, nil
}

// Valid reports whether the endpoint serves this bucket width
func (iv Interval) Valid() bool {
	for _, m := range minuteIntervals {
		if iv == m {
			return true
		}
	}
	for _, u := range unitIntervals {
		if iv == u {
			return true
		}
	}
	return false
}

// Minutes returns the bucket width in minutes
func (iv Interval) Minutes() int {
	return int(iv)
}

// Duration returns the bucket width
func (iv Interval) Duration() time.Duration {
	return time.Duration(iv) * time.Minute
}

func (iv Interval) String() string {
	for name, u := range unitIntervals {
		if iv == u && iv != IntervalHour {
			return name
		}
	}
	return fmt.Sprintf("%dm", int(iv))
}

// UnmarshalText lets config files and flags name an interval ("5m", "day")
func (iv *Interval) UnmarshalText(text []byte) error {
	parsed, err := ParseInterval(string(text))
	if err != nil {
		return err
	}
	*iv = parsed
	return nil
}
