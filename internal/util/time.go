package util

import (
	"fmt"
	"sync"
	"time"
)

// TelemetryLayout is the compact timestamp layout used by the telemetry
// endpoint, e.g. 20240302_1000
const TelemetryLayout = "20060102_1504"

// TimeProvider resolves "now" and parses zone-less timestamps in the
// configured timezone
type TimeProvider struct {
	location *time.Location
	mu       sync.RWMutex
}

var (
	globalTimeProvider *TimeProvider
	mu                 sync.Mutex
)

// InitializeTimeProvider initializes the global time provider with the specified timezone
func InitializeTimeProvider(timezone string) error {
	provider := &TimeProvider{}
	if err := provider.SetTimezone(timezone); err != nil {
		return err
	}

	mu.Lock()
	globalTimeProvider = provider
	mu.Unlock()
	return nil
}

// GetTimeProvider returns the global time provider, defaulting to Local
func GetTimeProvider() *TimeProvider {
	mu.Lock()
	defer mu.Unlock()
	if globalTimeProvider == nil {
		globalTimeProvider = &TimeProvider{location: time.Local}
	}
	return globalTimeProvider
}

// SetTimezone updates the timezone for the time provider
func (tp *TimeProvider) SetTimezone(timezone string) error {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return err
	}

	tp.mu.Lock()
	tp.location = loc
	tp.mu.Unlock()
	return nil
}

// LoadLocation resolves a timezone name; "" and "Local" mean the system zone
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w\nValid examples: Local, UTC, America/New_York, Europe/Berlin", timezone, err)
	}
	return loc, nil
}

// Location returns the configured timezone
func (tp *TimeProvider) Location() *time.Location {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return tp.location
}

// Now returns the current time in the configured timezone
func (tp *TimeProvider) Now() time.Time {
	return time.Now().In(tp.Location())
}

// Format formats t in the configured timezone
func (tp *TimeProvider) Format(t time.Time, layout string) string {
	return t.In(tp.Location()).Format(layout)
}

// ParseInLocation parses a timestamp without zone information in the
// configured timezone
func (tp *TimeProvider) ParseInLocation(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, tp.Location())
}

// ParseTelemetryTimestamp parses a compact YYYYMMDD_HHmm timestamp
func ParseTelemetryTimestamp(value string) (time.Time, error) {
	return GetTimeProvider().ParseInLocation(TelemetryLayout, value)
}
