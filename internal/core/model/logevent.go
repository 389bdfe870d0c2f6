package model

import (
	"fmt"
	"strings"
	"time"
)

// EventKind distinguishes build events from run events
type EventKind int

const (
	KindRun EventKind = iota
	KindBuild
)

func (k EventKind) String() string {
	switch k {
	case KindRun:
		return "run"
	case KindBuild:
		return "build"
	default:
		return "unknown"
	}
}

// ParseEventKind accepts "run" or "build"
func ParseEventKind(s string) (EventKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "run":
		return KindRun, nil
	case "build":
		return KindBuild, nil
	default:
		return 0, fmt.Errorf("unknown event kind %q", s)
	}
}

// Outcome is derived from the exit code
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
)

func (o Outcome) String() string {
	if o == OutcomeFailure {
		return "failure"
	}
	return "success"
}

// ParseOutcome accepts "success"/"ok" or "failure"/"fail"/"error"
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "ok":
		return OutcomeSuccess, nil
	case "failure", "fail", "error":
		return OutcomeFailure, nil
	default:
		return 0, fmt.Errorf("unknown outcome %q", s)
	}
}

// LogEvent is an externally sourced build or run record. It is never
// mutated after loading.
type LogEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      EventKind `json:"kind"`
	ExitCode  int       `json:"exit_code"`
	Command   string    `json:"command"`
	Stdout    string    `json:"stdout,omitempty"`
	Stderr    string    `json:"stderr,omitempty"`
}

// Outcome reports success for exit code 0
func (e LogEvent) Outcome() Outcome {
	if e.ExitCode == 0 {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// LogSet holds the most recently loaded build and run logs
type LogSet struct {
	Builds []LogEvent
	Runs   []LogEvent
}

// ByKind returns the list for kind
func (s LogSet) ByKind(kind EventKind) []LogEvent {
	if kind == KindBuild {
		return s.Builds
	}
	return s.Runs
}

// Len returns the total number of events
func (s LogSet) Len() int {
	return len(s.Builds) + len(s.Runs)
}

// Failures counts failed events of kind
func (s LogSet) Failures(kind EventKind) int {
	n := 0
	for _, e := range s.ByKind(kind) {
		if e.Outcome() == OutcomeFailure {
			n++
		}
	}
	return n
}
