package interaction

import (
	"testing"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyboardReaderParseInput(t *testing.T) {
	kr := &KeyboardReader{
		input: make(chan KeyEvent, 10),
		stop:  make(chan struct{}),
	}

	tests := []struct {
		name     string
		input    []byte
		expected *KeyEvent
	}{
		{name: "Regular char", input: []byte{'a'}, expected: &KeyEvent{Key: 'a', Type: KeyChar}},
		{name: "Plus", input: []byte{'+'}, expected: &KeyEvent{Key: '+', Type: KeyChar}},
		{name: "Tab", input: []byte{'\t'}, expected: &KeyEvent{Key: KeyTab, Type: KeyChar}},
		{name: "Ctrl+C", input: []byte{3}, expected: &KeyEvent{Key: KeyCtrlC, Type: KeyChar}},
		{name: "Escape", input: []byte{27}, expected: &KeyEvent{Key: 27, Type: KeyEscape}},
		{name: "Left arrow", input: []byte{27, '[', 'D'}, expected: &KeyEvent{Type: KeyLeft}},
		{name: "Right arrow", input: []byte{27, '[', 'C'}, expected: &KeyEvent{Type: KeyRight}},
		{name: "Up arrow application mode", input: []byte{27, 'O', 'A'}, expected: &KeyEvent{Type: KeyUp}},
		{name: "Down arrow", input: []byte{27, '[', 'B'}, expected: &KeyEvent{Type: KeyDown}},
		{name: "Unknown sequence", input: []byte{27, '[', 'Z'}, expected: nil},
		{name: "Empty", input: []byte{}, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := kr.parseInput(tt.input)
			if tt.expected == nil {
				assert.Nil(t, event)
				return
			}
			require.NotNil(t, event)
			assert.Equal(t, *tt.expected, *event)
		})
	}
}

func TestEventSorter(t *testing.T) {
	base := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	events := []model.LogEvent{
		{Timestamp: base.Add(time.Hour), ExitCode: 0, Command: "make test"},
		{Timestamp: base, ExitCode: 2, Command: "make build"},
		{Timestamp: base.Add(2 * time.Hour), ExitCode: 1, Command: "./run"},
	}

	sorter := NewEventSorter()
	sorter.Sort(events)
	assert.Equal(t, base.Add(2*time.Hour), events[0].Timestamp, "newest first by default")
	assert.Equal(t, base, events[2].Timestamp)

	sorter.SetField(SortByExitCode)
	sorter.SetOrder(SortAscending)
	sorter.Sort(events)
	assert.Equal(t, []int{0, 1, 2}, []int{events[0].ExitCode, events[1].ExitCode, events[2].ExitCode})

	sorter.SetField(SortByCommand)
	sorter.Sort(events)
	assert.Equal(t, "./run", events[0].Command)
}
