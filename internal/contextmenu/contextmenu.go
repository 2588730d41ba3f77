// Package contextmenu decides which context menu is open when several
// nested right-click handlers fire for one physical click.
package contextmenu

import (
	"time"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
)

// GuardWindow is how long a freshly opened menu is protected from a
// competing show of a different kind and from outside-click dismissal.
const GuardWindow = 100 * time.Millisecond

type Kind string

const (
	KindNone        Kind = "none"
	KindCanvas      Kind = "canvas"
	KindDevice      Kind = "device"
	KindMultiDevice Kind = "multi-device"
	KindShape       Kind = "shape"
	KindMultiShape  Kind = "multi-shape"
	KindConnection  Kind = "connection"
)

// Target is the entity a menu was opened for. Each kind has its own payload
// type; switch on the concrete type to handle them.
type Target interface {
	Kind() Kind
}

// CanvasTarget is the empty background. Position is in world space, for
// "add device here" style actions.
type CanvasTarget struct {
	Position geom.Point `json:"position"`
}

type DeviceTarget struct {
	DeviceID int `json:"device_id"`
}

type MultiDeviceTarget struct {
	DeviceIDs []int `json:"device_ids"`
}

type ShapeTarget struct {
	ShapeID int `json:"shape_id"`
}

type MultiShapeTarget struct {
	ShapeIDs []int `json:"shape_ids"`
}

type ConnectionTarget struct {
	ConnectionID int `json:"connection_id"`
	// Position is where the user clicked, used for "add waypoint here".
	Position geom.Point `json:"position"`
}

func (CanvasTarget) Kind() Kind      { return KindCanvas }
func (DeviceTarget) Kind() Kind      { return KindDevice }
func (MultiDeviceTarget) Kind() Kind { return KindMultiDevice }
func (ShapeTarget) Kind() Kind       { return KindShape }
func (MultiShapeTarget) Kind() Kind  { return KindMultiShape }
func (ConnectionTarget) Kind() Kind  { return KindConnection }

// State is a read-only view of the menu.
type State struct {
	Visible  bool
	Position geom.Point
	Target   Target
	OpenedAt time.Time
}

// Kind returns the target kind, or KindNone when nothing is shown.
func (s State) Kind() Kind {
	if !s.Visible || s.Target == nil {
		return KindNone
	}
	return s.Target.Kind()
}

// Resolver owns the menu state. It is not safe for concurrent use.
type Resolver struct {
	now   func() time.Time
	guard time.Duration
	state State
}

type Option func(*Resolver)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func WithGuardWindow(d time.Duration) Option {
	return func(r *Resolver) { r.guard = d }
}

func New(opts ...Option) *Resolver {
	r := &Resolver{now: time.Now, guard: GuardWindow}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) State() State { return r.state }

// Accepts reports whether a Show for kind would take effect now. Callers
// check this before acting on a right-click so a suppressed event leaves
// the selection alone too.
func (r *Resolver) Accepts(kind Kind) bool {
	if !r.state.Visible || r.state.Target == nil {
		return true
	}
	if r.state.Target.Kind() == kind {
		return true
	}
	return r.now().Sub(r.state.OpenedAt) >= r.guard
}

// Show opens the menu at position (screen space) for target. A request for
// a different kind inside the guard window is ignored and false returned.
func (r *Resolver) Show(position geom.Point, target Target) bool {
	if target == nil || !r.Accepts(target.Kind()) {
		return false
	}
	r.state = State{Visible: true, Position: position, Target: target, OpenedAt: r.now()}
	return true
}

func (r *Resolver) Hide() {
	r.state = State{}
}

// HandleOutsideClick closes the menu for a global click unless the click
// landed inside the menu or the menu was opened within the guard window.
// It reports whether the menu was closed.
func (r *Resolver) HandleOutsideClick(insideMenu bool) bool {
	if !r.state.Visible || insideMenu {
		return false
	}
	if r.now().Sub(r.state.OpenedAt) < r.guard {
		return false
	}
	r.Hide()
	return true
}
