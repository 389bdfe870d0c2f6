// Package correlate maps a point on the time axis to the nearest build or
// run log event.
package correlate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/constants"
	"github.com/penwyp/go-code-activity/internal/core/model"
)

// ErrUnknownKind is returned by ParseTarget for unrecognised lookups
var ErrUnknownKind = errors.New("unknown correlation target")

// Target selects which events to search
type Target struct {
	Kind    model.EventKind
	Outcome model.Outcome
}

func (t Target) String() string {
	return t.Kind.String() + "-" + t.Outcome.String()
}

// ParseTarget accepts "<kind>-<outcome>", e.g. "run-failure" or "build-ok"
func ParseTarget(s string) (Target, error) {
	kindStr, outcomeStr, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	kind, err := model.ParseEventKind(kindStr)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrUnknownKind, err)
	}
	outcome, err := model.ParseOutcome(outcomeStr)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrUnknownKind, err)
	}
	return Target{Kind: kind, Outcome: outcome}, nil
}

// Match is the event found for a lookup
type Match struct {
	Event    model.LogEvent
	Index    int
	Distance time.Duration
}

// Correlator finds the nearest event within a tolerance
type Correlator struct {
	Tolerance time.Duration
}

// New returns a correlator with the one hour tolerance
func New() Correlator {
	return Correlator{Tolerance: constants.CorrelationTolerance}
}

// Nearest scans events of the given kind and outcome and returns the one
// closest to at. A match requires a distance strictly below the tolerance.
// Ties go to the earliest event in input order.
func (c Correlator) Nearest(events []model.LogEvent, at time.Time, target Target) (Match, bool) {
	best := Match{Index: -1}
	for i, e := range events {
		if e.Kind != target.Kind || e.Outcome() != target.Outcome {
			continue
		}
		d := e.Timestamp.Sub(at)
		if d < 0 {
			d = -d
		}
		if best.Index < 0 || d < best.Distance {
			best = Match{Event: e, Index: i, Distance: d}
		}
	}

	tolerance := c.Tolerance
	if tolerance <= 0 {
		tolerance = constants.CorrelationTolerance
	}
	if best.Index < 0 || best.Distance >= tolerance {
		return Match{}, false
	}
	return best, true
}

// Resolve picks the build or run list from logs and searches it
func (c Correlator) Resolve(logs model.LogSet, at time.Time, target Target) (Match, bool) {
	return c.Nearest(logs.ByKind(target.Kind), at, target)
}
