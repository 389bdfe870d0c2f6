package interaction

import (
	"sort"

	"github.com/penwyp/go-code-activity/internal/core/model"
)

// SortField represents the field to sort log events by
type SortField int

const (
	SortByTime SortField = iota
	SortByExitCode
	SortByCommand
)

// SortOrder represents the sort order
type SortOrder int

const (
	SortAscending SortOrder = iota
	SortDescending
)

// EventSorter orders log events for listings
type EventSorter struct {
	field SortField
	order SortOrder
}

// NewEventSorter creates a sorter with newest events first
func NewEventSorter() *EventSorter {
	return &EventSorter{
		field: SortByTime,
		order: SortDescending,
	}
}

// SetField changes the sort key
func (s *EventSorter) SetField(field SortField) {
	s.field = field
}

// SetOrder changes the sort order
func (s *EventSorter) SetOrder(order SortOrder) {
	s.order = order
}

// Sort sorts events in place; equal keys keep their input order
func (s *EventSorter) Sort(events []model.LogEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if s.order == SortDescending {
			a, b = b, a
		}

		switch s.field {
		case SortByExitCode:
			return a.ExitCode < b.ExitCode
		case SortByCommand:
			return a.Command < b.Command
		default:
			return a.Timestamp.Before(b.Timestamp)
		}
	})
}
