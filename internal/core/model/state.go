package model

// FileEvent represents a file system event on a watched log file
type FileEvent struct {
	Path      string
	Operation string
}

// ChartID names one of the two time-aligned charts
type ChartID int

const (
	ChartCumulative ChartID = iota
	ChartDelta
)

func (c ChartID) String() string {
	if c == ChartDelta {
		return "delta"
	}
	return "cumulative"
}

// InteractionState represents the current UI interaction state
type InteractionState struct {
	ShowHelp      bool
	AutoRefresh   bool
	ActiveChart   ChartID
	CursorFrac    float64 // cursor position inside the viewport, 0..1
	StatusMessage string
	Detail        *EventDetail
}

// EventDetail is the log event surfaced by the last correlation lookup
type EventDetail struct {
	Event    LogEvent
	Distance string
}
