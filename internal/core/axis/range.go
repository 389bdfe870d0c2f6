// Package axis derives y-axis bounds from the samples inside the visible
// x-window.
package axis

import (
	"fmt"
	"math"

	"github.com/penwyp/go-code-activity/internal/core/constants"
	"github.com/penwyp/go-code-activity/internal/core/model"
)

// Policy selects how the bounds are derived
type Policy int

const (
	// Cumulative is zero based: [0, max]
	Cumulative Policy = iota
	// Delta is zero centred and symmetric: [-m, +m]
	Delta
)

func (p Policy) String() string {
	if p == Delta {
		return "delta"
	}
	return "cumulative"
}

// Range is a closed y-axis interval
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// IsZero reports whether the range was never computed
func (r Range) IsZero() bool {
	return r.Min == 0 && r.Max == 0
}

func (r Range) String() string {
	return fmt.Sprintf("[%.0f, %.0f]", r.Min, r.Max)
}

// Calculator computes ranges for one chart
type Calculator struct {
	Policy   Policy
	Step     float64
	Headroom float64
}

// NewCalculator returns a calculator with the default rounding step and headroom
func NewCalculator(policy Policy) Calculator {
	return Calculator{
		Policy:   policy,
		Step:     constants.AxisStep,
		Headroom: constants.AxisHeadroom,
	}
}

// Compute derives the range for the visible samples. An empty slice keeps
// the previous range.
func (c Calculator) Compute(visible model.Series, previous Range) Range {
	if len(visible) == 0 {
		return previous
	}

	switch c.Policy {
	case Delta:
		var maxPos, minNeg int64
		for _, s := range visible {
			if s.Delta > maxPos {
				maxPos = s.Delta
			}
			if s.Delta < minNeg {
				minNeg = s.Delta
			}
		}
		magnitude := math.Max(float64(maxPos), math.Abs(float64(minNeg)))
		m := c.round(magnitude)
		return Range{Min: -m, Max: m}
	default:
		var observed uint64
		for _, s := range visible {
			if s.TotalBytes > observed {
				observed = s.TotalBytes
			}
		}
		return Range{Min: 0, Max: c.round(float64(observed))}
	}
}

// roundingEpsilon absorbs floating point error in the scaled value
const roundingEpsilon = 1e-9

// round applies ceil(v*headroom/step)*step with a floor of one step so the
// axis never collapses to a point
func (c Calculator) round(v float64) float64 {
	step := c.Step
	if step <= 0 {
		step = constants.AxisStep
	}
	headroom := c.Headroom
	if headroom <= 0 {
		headroom = constants.AxisHeadroom
	}

	// v*headroom is inexact for a headroom like 1.1; without the epsilon an
	// exact multiple such as 50000*1.1 would round up a whole step
	bound := math.Ceil(v*headroom/step-roundingEpsilon) * step
	if bound < step {
		bound = step
	}
	return bound
}
