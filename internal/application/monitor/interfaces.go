package monitor

import (
	"context"

	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/data/ingest"
	"github.com/penwyp/go-code-activity/internal/presentation/display"
	"github.com/penwyp/go-code-activity/internal/presentation/interaction"
)

// TelemetrySource fetches series and assignment metadata
type TelemetrySource interface {
	// FetchTrends downloads one raw series
	FetchTrends(ctx context.Context, q ingest.Query) (ingest.Batch, error)
	// FetchAssignment downloads the assignment window
	FetchAssignment(ctx context.Context, id string) (model.Assignment, error)
}

// DisplayController handles terminal display operations
type DisplayController interface {
	// EnterAlternateScreen switches to alternate terminal screen
	EnterAlternateScreen()
	// ExitAlternateScreen returns to normal terminal screen
	ExitAlternateScreen()
	// ClearScreen clears the terminal screen
	ClearScreen()
	// Render draws one frame
	Render(frame display.Frame)
}

// InputHandler processes keyboard and other input events
type InputHandler interface {
	// Events returns a channel of keyboard events
	Events() <-chan interaction.KeyEvent
	// Close cleans up input handler resources
	Close() error
}

// FileMonitor watches for file changes
type FileMonitor interface {
	// Events returns a channel of file change events
	Events() <-chan model.FileEvent
	// Close stops monitoring and cleans up resources
	Close() error
}
