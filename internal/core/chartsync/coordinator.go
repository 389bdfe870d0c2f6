// Package chartsync keeps the viewports of two chart surfaces identical.
//
// A viewport change on one surface is debounced, written onto the other
// surface, and followed by a short cool-down during which the echo emitted
// by that write is swallowed.
package chartsync

import (
	"errors"
	"sync"
	"time"

	"github.com/penwyp/go-code-activity/internal/core/constants"
	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/util"
)

// ErrTooManySurfaces is returned when a third surface is registered
var ErrTooManySurfaces = errors.New("coordinator already holds two surfaces")

// ErrClosed is returned by Register after Close
var ErrClosed = errors.New("coordinator is closed")

// Surface is the part of a chart the coordinator drives
type Surface interface {
	Viewport() model.Viewport
	SetViewport(vp model.Viewport)
	RecomputeYRange()
	OnViewportChange(fn func(model.Viewport)) (unsubscribe func())
}

// State of the coordinator
type State int

const (
	StateIdle State = iota
	StateDebouncing
	StatePropagating
	StateCoolingDown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StatePropagating:
		return "propagating"
	case StateCoolingDown:
		return "cooling_down"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Outcome of a single viewport-change event, reported to the Observer
const (
	OutcomeDebounced  = "debounced"
	OutcomeSwallowed  = "swallowed"
	OutcomePropagated = "propagated"
)

// Observer receives one outcome per event or write
type Observer func(outcome string)

// Handle identifies a registered surface
type Handle struct {
	id int
}

// Valid reports whether the handle came from Register
func (h Handle) Valid() bool {
	return h.id > 0
}

// Stats counts what the coordinator did
type Stats struct {
	Received   uint64
	Swallowed  uint64
	Restarts   uint64
	Propagated uint64
}

type registration struct {
	handle      Handle
	surface     Surface
	unsubscribe func()
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithClock replaces the real clock
func WithClock(clock util.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithTimings overrides the debounce and cool-down windows
func WithTimings(debounce, cooldown time.Duration) Option {
	return func(c *Coordinator) {
		c.debounce = debounce
		c.cooldown = cooldown
	}
}

// WithObserver installs an event observer
func WithObserver(obs Observer) Option {
	return func(c *Coordinator) { c.observer = obs }
}

// Coordinator mediates viewport changes between two surfaces
type Coordinator struct {
	mu       sync.Mutex
	clock    util.Clock
	debounce time.Duration
	cooldown time.Duration
	observer Observer

	surfaces []registration
	nextID   int
	state    State

	// pending propagation
	source  Handle
	pending model.Viewport

	debounceTimer util.Timer
	cooldownTimer util.Timer
	generation    uint64
	inflight      int

	stats Stats
}

// New creates a coordinator with the default 200ms debounce and 100ms
// cool-down on the real clock
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		clock:    util.NewRealClock(),
		debounce: constants.SyncDebounce,
		cooldown: constants.SyncCooldown,
		nextID:   1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register subscribes to a surface's viewport changes
func (c *Coordinator) Register(s Surface) (Handle, error) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return Handle{}, ErrClosed
	}
	if len(c.surfaces) >= 2 {
		c.mu.Unlock()
		return Handle{}, ErrTooManySurfaces
	}
	h := Handle{id: c.nextID}
	c.nextID++
	c.surfaces = append(c.surfaces, registration{handle: h, surface: s})
	c.mu.Unlock()

	unsubscribe := s.OnViewportChange(func(vp model.Viewport) {
		c.handleChange(h, vp)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.surfaces {
		if c.surfaces[i].handle == h {
			c.surfaces[i].unsubscribe = unsubscribe
		}
	}
	return h, nil
}

// State returns the current state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns a copy of the counters
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Coordinator) handleChange(from Handle, vp model.Viewport) {
	c.mu.Lock()
	c.stats.Received++

	if c.inflight > 0 || c.state == StatePropagating || c.state == StateCoolingDown || c.state == StateClosed {
		c.stats.Swallowed++
		state := c.state
		c.mu.Unlock()
		util.LogDebug("chart sync swallowed viewport event", util.F("state", state.String()))
		c.observe(OutcomeSwallowed)
		return
	}

	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.stats.Restarts++
	}
	c.source = from
	c.pending = vp
	c.transitionLocked(StateDebouncing)
	c.generation++
	gen := c.generation
	c.debounceTimer = c.clock.AfterFunc(c.debounce, func() { c.fire(gen) })
	c.mu.Unlock()

	c.observe(OutcomeDebounced)
}

// fire writes the pending viewport onto the other surface
func (c *Coordinator) fire(gen uint64) {
	c.mu.Lock()
	if c.state != StateDebouncing || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.debounceTimer = nil
	c.transitionLocked(StatePropagating)
	c.inflight++
	vp := c.pending
	var targets []Surface
	for _, r := range c.surfaces {
		if r.handle != c.source {
			targets = append(targets, r.surface)
		}
	}
	c.mu.Unlock()

	c.write(targets, vp)
}

// ApplyAll writes vp onto every surface, cancelling any pending debounce.
// Echoes of these writes are swallowed like those of a propagation.
func (c *Coordinator) ApplyAll(vp model.Viewport) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.stopTimersLocked()
	c.generation++
	c.transitionLocked(StatePropagating)
	c.inflight++
	targets := make([]Surface, 0, len(c.surfaces))
	for _, r := range c.surfaces {
		targets = append(targets, r.surface)
	}
	c.mu.Unlock()

	c.write(targets, vp)
}

// write runs outside the lock; each SetViewport echoes synchronously into
// handleChange
func (c *Coordinator) write(targets []Surface, vp model.Viewport) {
	for _, s := range targets {
		s.SetViewport(vp)
		s.RecomputeYRange()
		c.observe(OutcomePropagated)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Propagated += uint64(len(targets))
	c.inflight--
	if c.state == StateClosed || c.inflight > 0 {
		return
	}
	c.transitionLocked(StateCoolingDown)
	c.generation++
	gen := c.generation
	c.cooldownTimer = c.clock.AfterFunc(c.cooldown, func() { c.release(gen) })
}

func (c *Coordinator) release(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCoolingDown || gen != c.generation {
		return
	}
	c.cooldownTimer = nil
	c.transitionLocked(StateIdle)
}

// Close cancels pending timers and unsubscribes from both surfaces
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.stopTimersLocked()
	c.transitionLocked(StateClosed)
	regs := c.surfaces
	c.surfaces = nil
	c.mu.Unlock()

	for _, r := range regs {
		if r.unsubscribe != nil {
			r.unsubscribe()
		}
	}
}

func (c *Coordinator) stopTimersLocked() {
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
	if c.cooldownTimer != nil {
		c.cooldownTimer.Stop()
		c.cooldownTimer = nil
	}
}

func (c *Coordinator) transitionLocked(next State) {
	if c.state == next {
		return
	}
	util.LogDebug("chart sync state change",
		util.F("from", c.state.String()), util.F("to", next.String()))
	c.state = next
}

func (c *Coordinator) observe(outcome string) {
	if c.observer != nil {
		c.observer(outcome)
	}
}
