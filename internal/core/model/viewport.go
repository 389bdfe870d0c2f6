package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidViewport is returned when xMin is not strictly before xMax
var ErrInvalidViewport = errors.New("viewport xMin must be before xMax")

// Viewport is the visible time range shared by both charts
type Viewport struct {
	XMin time.Time `json:"x_min"`
	XMax time.Time `json:"x_max"`
}

// Bounds is the outer range every viewport is clamped into:
// [assignmentStart, max(assignmentEnd, now)]
type Bounds = Viewport

// NewViewport validates and builds a viewport
func NewViewport(xMin, xMax time.Time) (Viewport, error) {
	vp := Viewport{XMin: xMin, XMax: xMax}
	if !vp.Valid() {
		return Viewport{}, fmt.Errorf("%w: [%s, %s]", ErrInvalidViewport,
			xMin.Format(time.RFC3339), xMax.Format(time.RFC3339))
	}
	return vp, nil
}

// Valid reports xMin < xMax
func (v Viewport) Valid() bool {
	return v.XMin.Before(v.XMax)
}

// Span returns xMax - xMin
func (v Viewport) Span() time.Duration {
	return v.XMax.Sub(v.XMin)
}

// Equal compares instants, ignoring location
func (v Viewport) Equal(other Viewport) bool {
	return v.XMin.Equal(other.XMin) && v.XMax.Equal(other.XMax)
}

// Contains reports whether t lies in [xMin, xMax]
func (v Viewport) Contains(t time.Time) bool {
	return !t.Before(v.XMin) && !t.After(v.XMax)
}

// Inside reports whether v lies entirely within bounds
func (v Viewport) Inside(bounds Bounds) bool {
	return v.Valid() && !v.XMin.Before(bounds.XMin) && !v.XMax.After(bounds.XMax)
}

// Clamp fits v into bounds. A viewport wider than bounds becomes bounds; a
// viewport that sticks out on one side is shifted back in keeping its span;
// an invalid viewport becomes bounds.
func (v Viewport) Clamp(bounds Bounds) Viewport {
	if !bounds.Valid() {
		return v
	}
	if !v.Valid() || v.Span() >= bounds.Span() {
		return bounds
	}
	span := v.Span()
	if v.XMin.Before(bounds.XMin) {
		return Viewport{XMin: bounds.XMin, XMax: bounds.XMin.Add(span)}
	}
	if v.XMax.After(bounds.XMax) {
		return Viewport{XMin: bounds.XMax.Add(-span), XMax: bounds.XMax}
	}
	return v
}

func (v Viewport) String() string {
	return fmt.Sprintf("[%s, %s]", v.XMin.Format("2006-01-02 15:04:05"), v.XMax.Format("2006-01-02 15:04:05"))
}
