// Package chart models one time-series chart surface: its series, the
// visible x-window, the derived y-axis range and the log markers drawn on it.
package chart

import (
	"sync"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/axis"
	"github.com/penwyp/go-code-activity/internal/core/model"
)

// minSpan is the narrowest window zooming can reach
const minSpan = time.Minute

// Marker is a log event positioned on the chart
type Marker struct {
	Position time.Time      `json:"position"`
	Event    model.LogEvent `json:"event"`
}

// Snapshot is an immutable copy of the chart used for rendering
type Snapshot struct {
	ID       model.ChartID
	Series   model.Series
	Visible  model.Series
	Viewport model.Viewport
	Bounds   model.Bounds
	YRange   axis.Range
	Markers  []Marker
	HasData  bool
}

// Chart is safe for concurrent use. Viewport listeners are invoked after
// the internal lock is released.
type Chart struct {
	mu        sync.RWMutex
	id        model.ChartID
	calc      axis.Calculator
	series    model.Series
	bounds    model.Bounds
	viewport  model.Viewport
	yrange    axis.Range
	markers   []Marker
	location  *time.Location
	listeners map[int]func(model.Viewport)
	nextID    int
}

// New creates an empty chart. The cumulative chart uses the zero based
// axis policy and the delta chart the symmetric one.
func New(id model.ChartID) *Chart {
	policy := axis.Cumulative
	if id == model.ChartDelta {
		policy = axis.Delta
	}
	return &Chart{
		id:        id,
		calc:      axis.NewCalculator(policy),
		listeners: make(map[int]func(model.Viewport)),
	}
}

// ID returns which of the two charts this is
func (c *Chart) ID() model.ChartID {
	return c.id
}

// SetData replaces the series and bounds. The viewport is left untouched.
func (c *Chart) SetData(series model.Series, bounds model.Bounds) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.series = series
	c.bounds = bounds
}

// Series returns the current series
func (c *Chart) Series() model.Series {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.series
}

// Bounds returns the outer range viewports are clamped into
func (c *Chart) Bounds() model.Bounds {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bounds
}

// Viewport returns the visible window
func (c *Chart) Viewport() model.Viewport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewport
}

// YRange returns the last computed y-axis range
func (c *Chart) YRange() axis.Range {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.yrange
}

// SetViewport clamps vp into the bounds, stores it, recomputes the y-axis
// and notifies listeners. Listeners are notified even when the window did
// not change.
func (c *Chart) SetViewport(vp model.Viewport) {
	c.mu.Lock()
	if c.bounds.Valid() {
		vp = vp.Clamp(c.bounds)
	}
	if !vp.Valid() {
		c.mu.Unlock()
		return
	}
	c.viewport = vp
	c.yrange = c.calc.Compute(c.series.Within(vp), c.yrange)
	listeners := c.listenersLocked()
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(vp)
	}
}

// Pan shifts the window by frac of its span; negative moves left
func (c *Chart) Pan(frac float64) {
	vp := c.Viewport()
	if !vp.Valid() {
		return
	}
	shift := time.Duration(float64(vp.Span()) * frac)
	c.SetViewport(model.Viewport{XMin: vp.XMin.Add(shift), XMax: vp.XMax.Add(shift)})
}

// Zoom scales the span by factor around anchor, a fraction of the window
// in [0, 1]. A factor below 1 zooms in.
func (c *Chart) Zoom(factor, anchor float64) {
	vp := c.Viewport()
	if !vp.Valid() || factor <= 0 {
		return
	}
	if anchor < 0 {
		anchor = 0
	} else if anchor > 1 {
		anchor = 1
	}

	span := time.Duration(float64(vp.Span()) * factor)
	if span < minSpan {
		span = minSpan
	}
	at := vp.XMin.Add(time.Duration(float64(vp.Span()) * anchor))
	xMin := at.Add(-time.Duration(float64(span) * anchor))
	c.SetViewport(model.Viewport{XMin: xMin, XMax: xMin.Add(span)})
}

// ResetZoom shows the full bounds
func (c *Chart) ResetZoom() {
	c.SetViewport(c.Bounds())
}

// Visible returns the samples inside the viewport
func (c *Chart) Visible() model.Series {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.series.Within(c.viewport)
}

// RecomputeYRange derives the y-axis from the visible samples
func (c *Chart) RecomputeYRange() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.yrange = c.calc.Compute(c.series.Within(c.viewport), c.yrange)
}

// OnViewportChange subscribes fn to viewport writes and returns a function
// that removes the subscription
func (c *Chart) OnViewportChange(fn func(model.Viewport)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// SetLocation sets the timezone bucket boundaries are aligned to. A nil
// location aligns to UTC.
func (c *Chart) SetLocation(loc *time.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.location = loc
}

// SetMarkers positions events on the chart, truncated to the bucket width
// the series is sampled at
func (c *Chart) SetMarkers(events []model.LogEvent, bucket time.Duration) {
	c.mu.RLock()
	loc := c.location
	c.mu.RUnlock()

	markers := make([]Marker, 0, len(events))
	for _, e := range events {
		pos := e.Timestamp
		if bucket > 0 {
			pos = truncateIn(pos, bucket, loc)
		}
		markers = append(markers, Marker{Position: pos, Event: e})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.markers = markers
}

// truncateIn rounds t down to a multiple of d measured on the wall clock of
// loc, so day buckets start at local midnight
func truncateIn(t time.Time, d time.Duration, loc *time.Location) time.Time {
	if loc == nil {
		return t.Truncate(d)
	}
	_, offset := t.In(loc).Zone()
	shift := time.Duration(offset) * time.Second
	out := t.Add(shift).Truncate(d).Add(-shift)

	// the boundary may sit on the other side of a DST change
	if _, boundary := out.In(loc).Zone(); boundary != offset {
		out = out.Add(time.Duration(offset-boundary) * time.Second)
	}
	return out
}

// Markers returns a copy of the markers
func (c *Chart) Markers() []Marker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Marker, len(c.markers))
	copy(out, c.markers)
	return out
}

// HasData is false for an empty or all-zero series
func (c *Chart) HasData() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.series.AllZero()
}

// TimeAt maps a fraction of the viewport to an instant
func (c *Chart) TimeAt(frac float64) time.Time {
	vp := c.Viewport()
	return vp.XMin.Add(time.Duration(float64(vp.Span()) * frac))
}

// Snapshot copies the chart state for rendering
func (c *Chart) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	markers := make([]Marker, len(c.markers))
	copy(markers, c.markers)
	return Snapshot{
		ID:       c.id,
		Series:   c.series,
		Visible:  c.series.Within(c.viewport),
		Viewport: c.viewport,
		Bounds:   c.bounds,
		YRange:   c.yrange,
		Markers:  markers,
		HasData:  !c.series.AllZero(),
	}
}

func (c *Chart) listenersLocked() []func(model.Viewport) {
	out := make([]func(model.Viewport), 0, len(c.listeners))
	for i := 0; i < c.nextID; i++ {
		if fn, ok := c.listeners[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}
