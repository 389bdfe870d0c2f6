package constants

import "time"

const (
	// Chart synchronisation
	SyncDebounce = 200 * time.Millisecond
	SyncCooldown = 100 * time.Millisecond

	// Auto-refresh poll period
	RefreshPeriod = 60 * time.Second

	// Log correlation tolerance between a clicked marker and a log event
	CorrelationTolerance = time.Hour

	// Default rendered point budget per chart
	DefaultPointBudget = 500

	// Gap-fill stride used when the selected interval is unusable
	FallbackFillStride = 5 * time.Minute

	// Axis rounding
	AxisStep     = 500
	AxisHeadroom = 1.1

	// HTTP
	RequestTimeout = 30 * time.Second
)
