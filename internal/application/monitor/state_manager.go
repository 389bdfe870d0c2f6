package monitor

import (
	"sync"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/model"
)

// StateManager manages application state in a thread-safe manner
type StateManager struct {
	mu sync.RWMutex

	// Data state
	assignment model.Assignment
	loaded     bool
	series     model.Series // last successfully applied series
	logs       model.LogSet

	// Loading and error state
	isLoading      bool
	loadingMessage string
	lastError      error
	lastErrorAt    time.Time

	// Interaction state
	interactionState model.InteractionState

	// Metadata
	lastDataUpdate time.Time
}

// NewStateManager creates a new StateManager instance
func NewStateManager() *StateManager {
	return &StateManager{}
}

// SetAssignment stores the assignment window and marks the view loaded
func (sm *StateManager) SetAssignment(a model.Assignment) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.assignment = a
	sm.loaded = true
}

// GetAssignment returns the assignment; ok is false before the first load
func (sm *StateManager) GetAssignment() (model.Assignment, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.assignment, sm.loaded
}

// SetSeries records a successfully applied series
func (sm *StateManager) SetSeries(series model.Series, at time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.series = series
	sm.lastDataUpdate = at
}

// GetSeries returns the last successfully applied series
func (sm *StateManager) GetSeries() model.Series {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.series
}

// SetLogs replaces the build and run logs
func (sm *StateManager) SetLogs(logs model.LogSet) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.logs = logs
}

// GetLogs returns the most recently loaded logs
func (sm *StateManager) GetLogs() model.LogSet {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.logs
}

// SetError records a non-fatal failure; the previous series is kept
func (sm *StateManager) SetError(err error, at time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.lastError = err
	sm.lastErrorAt = at
}

// ClearError removes the error indicator
func (sm *StateManager) ClearError() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.lastError = nil
	sm.lastErrorAt = time.Time{}
}

// ErrorIndicator describes the last non-fatal failure
type ErrorIndicator struct {
	Err error
	At  time.Time
}

// GetError returns the last failure; Err is nil when there is none
func (sm *StateManager) GetError() ErrorIndicator {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return ErrorIndicator{Err: sm.lastError, At: sm.lastErrorAt}
}

// GetLoadingState returns current loading state and message
func (sm *StateManager) GetLoadingState() (bool, string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.isLoading, sm.loadingMessage
}

// SetLoadingState updates loading state and message
func (sm *StateManager) SetLoadingState(isLoading bool, message string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.isLoading = isLoading
	sm.loadingMessage = message
}

// GetInteractionState returns current interaction state
func (sm *StateManager) GetInteractionState() model.InteractionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.interactionState
}

// UpdateInteractionState updates specific fields of interaction state
func (sm *StateManager) UpdateInteractionState(updateFunc func(*model.InteractionState)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	updateFunc(&sm.interactionState)
}

// GetLastDataUpdate returns the time of the last successful data update
func (sm *StateManager) GetLastDataUpdate() time.Time {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.lastDataUpdate
}
