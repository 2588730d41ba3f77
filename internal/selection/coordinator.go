package selection

import (
	"math"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
)

const (
	DragThreshold  = 3.0
	ArrowStep      = 1.0
	ArrowStepLarge = 10.0
)

// State is the current gesture.
type State int

const (
	Idle State = iota
	// Pressed is a pointer-down on an entity that has not yet moved past
	// the drag threshold.
	Pressed
	Panning
	BoxSelecting
	DraggingEntities
	DraggingWaypoint
	DraggingPort
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pressed:
		return "pressed"
	case Panning:
		return "panning"
	case BoxSelecting:
		return "box-selecting"
	case DraggingEntities:
		return "dragging-entities"
	case DraggingWaypoint:
		return "dragging-waypoint"
	case DraggingPort:
		return "dragging-port"
	}
	return "unknown"
}

// HitKind identifies what lies under the pointer.
type HitKind int

const (
	HitNone HitKind = iota
	HitDevice
	HitShape
	HitConnection
	HitWaypoint
	HitPort
)

// Hit is the result of hit testing a world point.
type Hit struct {
	Kind HitKind
	// ID is the device, shape or connection id. For ports it is the device.
	ID int
	// Index is the waypoint index for HitWaypoint.
	Index int
	// Port is the port id for HitPort.
	Port string
}

// Modifiers are the keyboard modifiers held during a pointer event.
type Modifiers struct {
	Shift bool
	Ctrl  bool
	Meta  bool
	Alt   bool
}

// Multi reports whether the modifiers request additive selection.
func (m Modifiers) Multi() bool { return m.Shift || m.Ctrl || m.Meta }

// Scene is the subset of the entity store the coordinator reads and moves.
type Scene interface {
	Device(id int) (document.Device, bool)
	Shape(id int) (document.Shape, bool)
	Connection(id int) (document.Connection, bool)
	Devices() []document.Device
	Shapes() []document.Shape
	MoveDevice(id int, pos geom.Point) bool
	MoveShape(id int, pos geom.Point) bool
	MoveWaypoint(connID, index int, p geom.Point) bool
	MovePort(deviceID int, portID string, offset geom.Point) bool
}

// View converts pointer positions and pans.
type View interface {
	ScreenToWorld(p geom.Point) geom.Point
	PanBy(delta geom.Point)
}

// TransformHandle is an optional resize/move handle that follows entity
// drags. It receives the same world delta as the entities.
type TransformHandle interface {
	DragDelta(delta geom.Point)
	DragEnd()
}

// Options configures drag behavior.
type Options struct {
	DragThreshold float64
	SnapToGrid    bool
	GridSize      float64
}

func DefaultOptions() Options {
	return Options{DragThreshold: DragThreshold, GridSize: 50}
}

// DragKind is the kind of an active drag.
type DragKind int

const (
	DragEntities DragKind = iota
	DragWaypoint
	DragPort
)

// Drag is created when a press is promoted to a drag and consumed on
// release or cancel.
type Drag struct {
	Kind       DragKind
	Anchor     Hit
	StartWorld geom.Point
	Devices    map[int]geom.Point
	Shapes     map[int]geom.Point
	// Initial is the starting waypoint position or port offset.
	Initial geom.Point
}

type press struct {
	screen   geom.Point
	world    geom.Point
	hit      Hit
	collapse bool
}

// Coordinator is the selection and drag state machine. It is not safe for
// concurrent use.
type Coordinator struct {
	scene  Scene
	view   View
	opts   Options
	handle TransformHandle

	state State
	sel   Selection
	press press
	drag  *Drag

	lastScreen geom.Point
	boxStart   geom.Point
	boxEnd     geom.Point
}

func NewCoordinator(scene Scene, view View, opts Options) *Coordinator {
	if opts.DragThreshold <= 0 {
		opts.DragThreshold = DragThreshold
	}
	return &Coordinator{scene: scene, view: view, opts: opts, sel: newSelection()}
}

func (c *Coordinator) State() State { return c.state }

// Selection returns a copy of the current selection.
func (c *Coordinator) Selection() Selection { return c.sel.clone() }

func (c *Coordinator) Options() Options { return c.opts }

func (c *Coordinator) SetSnap(enabled bool, gridSize float64) {
	c.opts.SnapToGrid = enabled
	if gridSize > 0 {
		c.opts.GridSize = gridSize
	}
}

// SetTransformHandle attaches or detaches (nil) a transform handle.
func (c *Coordinator) SetTransformHandle(h TransformHandle) {
	c.handle = h
}

// Drag returns the active drag, if any.
func (c *Coordinator) Drag() (Drag, bool) {
	if c.drag == nil {
		return Drag{}, false
	}
	return *c.drag, true
}

// Box returns the world-space selection rectangle while box-selecting.
func (c *Coordinator) Box() (geom.Rect, bool) {
	if c.state != BoxSelecting {
		return geom.Rect{}, false
	}
	return geom.RectFromPoints(c.boxStart, c.boxEnd), true
}

// PointerDown starts a gesture. It is ignored while another gesture is
// active.
func (c *Coordinator) PointerDown(screen geom.Point, hit Hit, mods Modifiers) {
	if c.state != Idle {
		return
	}

	world := c.view.ScreenToWorld(screen)
	c.lastScreen = screen

	switch hit.Kind {
	case HitNone:
		if mods.Multi() {
			c.boxStart, c.boxEnd = world, world
			c.state = BoxSelecting
			return
		}
		c.sel.clear()
		c.state = Panning
		return

	case HitDevice, HitShape:
		collapse := false
		switch {
		case mods.Shift:
			c.toggle(hit)
		case c.contains(hit) && c.sel.IsMulti():
			collapse = true
		default:
			c.sel.clear()
			c.add(hit)
		}
		c.press = press{screen: screen, world: world, hit: hit, collapse: collapse}

	case HitConnection:
		c.sel.clear()
		c.sel.connection = hit.ID
		c.press = press{screen: screen, world: world, hit: hit}

	case HitWaypoint:
		c.sel.clear()
		c.sel.connection = hit.ID
		c.press = press{screen: screen, world: world, hit: hit}

	case HitPort:
		c.press = press{screen: screen, world: world, hit: hit}
	}
	c.state = Pressed
}

// PointerMove advances the active gesture.
func (c *Coordinator) PointerMove(screen geom.Point) {
	world := c.view.ScreenToWorld(screen)

	switch c.state {
	case Pressed:
		if screen.Dist(c.press.screen) < c.opts.DragThreshold {
			return
		}
		if !c.startDrag() {
			return
		}
		c.applyDrag(world)

	case Panning:
		c.view.PanBy(screen.Sub(c.lastScreen))

	case BoxSelecting:
		c.boxEnd = world

	case DraggingEntities, DraggingWaypoint, DraggingPort:
		c.applyDrag(world)
	}
	c.lastScreen = screen
}

// PointerUp always ends the active gesture.
func (c *Coordinator) PointerUp(screen geom.Point) {
	world := c.view.ScreenToWorld(screen)

	switch c.state {
	case Pressed:
		if c.press.collapse {
			c.sel.clear()
			c.add(c.press.hit)
		}

	case BoxSelecting:
		c.boxEnd = world
		c.selectInBox(geom.RectFromPoints(c.boxStart, c.boxEnd))

	case DraggingEntities, DraggingWaypoint, DraggingPort:
		c.applyDrag(world)
		c.finishDrag()
	}

	c.state = Idle
	c.drag = nil
	c.press = press{}
}

// CancelDrag aborts the active gesture. A drag restores every entity to its
// initial position. It reports whether anything was active.
func (c *Coordinator) CancelDrag() bool {
	if c.state == Idle {
		return false
	}

	if d := c.drag; d != nil {
		switch d.Kind {
		case DragEntities:
			for id, p := range d.Devices {
				c.scene.MoveDevice(id, p)
			}
			for id, p := range d.Shapes {
				c.scene.MoveShape(id, p)
			}
			if c.handle != nil {
				c.handle.DragDelta(geom.Point{})
				c.handle.DragEnd()
			}
		case DragWaypoint:
			c.scene.MoveWaypoint(d.Anchor.ID, d.Anchor.Index, d.Initial)
		case DragPort:
			c.scene.MovePort(d.Anchor.ID, d.Anchor.Port, d.Initial)
		}
	}

	c.state = Idle
	c.drag = nil
	c.press = press{}
	return true
}

// LivePositions returns the in-flight positions of dragged devices.
func (c *Coordinator) LivePositions() map[int]geom.Point {
	if c.drag == nil || c.drag.Kind != DragEntities {
		return nil
	}
	out := make(map[int]geom.Point, len(c.drag.Devices))
	for id := range c.drag.Devices {
		if dev, ok := c.scene.Device(id); ok {
			out[id] = dev.Position
		}
	}
	return out
}

// Nudge moves the selection one arrow-key step in direction dir, whose
// components should be -1, 0 or 1. With snap enabled the step is the grid
// size and results land on the grid.
func (c *Coordinator) Nudge(dir geom.Point, large bool) bool {
	if c.state != Idle || c.sel.Len() == 0 {
		return false
	}

	step := ArrowStep
	if large {
		step = ArrowStepLarge
	}
	if c.snapping() {
		step = c.opts.GridSize
	}
	delta := dir.Mul(step)

	for _, id := range c.sel.DeviceIDs() {
		if dev, ok := c.scene.Device(id); ok {
			c.scene.MoveDevice(id, c.snap(dev.Position.Add(delta)))
		}
	}
	for _, id := range c.sel.ShapeIDs() {
		if sh, ok := c.scene.Shape(id); ok {
			c.scene.MoveShape(id, c.snap(sh.Position.Add(delta)))
		}
	}
	return true
}

// SelectOnly replaces the selection with a single entity.
func (c *Coordinator) SelectOnly(hit Hit) {
	c.sel.clear()
	switch hit.Kind {
	case HitConnection, HitWaypoint:
		c.sel.connection = hit.ID
	default:
		c.add(hit)
	}
}

// SelectDevices adds devices to the selection.
func (c *Coordinator) SelectDevices(ids ...int) {
	for _, id := range ids {
		if _, ok := c.scene.Device(id); ok {
			c.sel.addDevice(id)
		}
	}
}

func (c *Coordinator) SelectAll() {
	c.sel.clear()
	for _, d := range c.scene.Devices() {
		c.sel.addDevice(d.ID)
	}
	for _, s := range c.scene.Shapes() {
		c.sel.addShape(s.ID)
	}
}

func (c *Coordinator) ClearSelection() {
	c.sel.clear()
}

// Prune drops selected ids that no longer exist in the scene.
func (c *Coordinator) Prune() {
	for _, id := range c.sel.DeviceIDs() {
		if _, ok := c.scene.Device(id); !ok {
			c.sel.removeDevice(id)
		}
	}
	for _, id := range c.sel.ShapeIDs() {
		if _, ok := c.scene.Shape(id); !ok {
			delete(c.sel.shapes, id)
		}
	}
	if c.sel.connection != 0 {
		if _, ok := c.scene.Connection(c.sel.connection); !ok {
			c.sel.connection = 0
		}
	}
}

// Contains reports whether the hit entity is part of the selection.
func (c *Coordinator) Contains(hit Hit) bool { return c.contains(hit) }

func (c *Coordinator) contains(hit Hit) bool {
	switch hit.Kind {
	case HitDevice:
		return c.sel.HasDevice(hit.ID)
	case HitShape:
		return c.sel.HasShape(hit.ID)
	case HitConnection:
		return c.sel.connection == hit.ID
	}
	return false
}

func (c *Coordinator) add(hit Hit) {
	switch hit.Kind {
	case HitDevice:
		c.sel.addDevice(hit.ID)
	case HitShape:
		c.sel.addShape(hit.ID)
	}
}

func (c *Coordinator) toggle(hit Hit) {
	switch hit.Kind {
	case HitDevice:
		if c.sel.HasDevice(hit.ID) {
			c.sel.removeDevice(hit.ID)
		} else {
			c.sel.addDevice(hit.ID)
		}
	case HitShape:
		if c.sel.HasShape(hit.ID) {
			delete(c.sel.shapes, hit.ID)
		} else {
			c.sel.addShape(hit.ID)
		}
	}
}

func (c *Coordinator) selectInBox(box geom.Rect) {
	for _, d := range c.scene.Devices() {
		if d.Bounds().Overlaps(box) {
			c.sel.addDevice(d.ID)
		}
	}
	for _, s := range c.scene.Shapes() {
		if s.Bounds().Overlaps(box) {
			c.sel.addShape(s.ID)
		}
	}
}

// startDrag promotes the press into a drag value. It reports false when
// there is nothing to drag, which leaves the gesture pressed.
func (c *Coordinator) startDrag() bool {
	hit := c.press.hit
	d := &Drag{Anchor: hit, StartWorld: c.press.world}

	switch hit.Kind {
	case HitDevice, HitShape:
		if !c.contains(hit) {
			return false
		}
		d.Kind = DragEntities
		d.Devices = map[int]geom.Point{}
		d.Shapes = map[int]geom.Point{}
		for _, id := range c.sel.DeviceIDs() {
			if dev, ok := c.scene.Device(id); ok {
				d.Devices[id] = dev.Position
			}
		}
		for _, id := range c.sel.ShapeIDs() {
			if sh, ok := c.scene.Shape(id); ok {
				d.Shapes[id] = sh.Position
			}
		}
		c.press.collapse = false
		c.state = DraggingEntities

	case HitWaypoint:
		conn, ok := c.scene.Connection(hit.ID)
		if !ok || hit.Index < 0 || hit.Index >= len(conn.Waypoints) {
			return false
		}
		d.Kind = DragWaypoint
		d.Initial = conn.Waypoints[hit.Index]
		c.state = DraggingWaypoint

	case HitPort:
		dev, ok := c.scene.Device(hit.ID)
		if !ok {
			return false
		}
		port, ok := dev.Port(hit.Port)
		if !ok {
			return false
		}
		d.Kind = DragPort
		d.Initial = port.Offset()
		c.state = DraggingPort

	default:
		return false
	}

	c.drag = d
	return true
}

func (c *Coordinator) applyDrag(world geom.Point) {
	d := c.drag
	if d == nil {
		return
	}
	delta := world.Sub(d.StartWorld)

	switch d.Kind {
	case DragEntities:
		for id, p := range d.Devices {
			c.scene.MoveDevice(id, p.Add(delta))
		}
		for id, p := range d.Shapes {
			c.scene.MoveShape(id, p.Add(delta))
		}
		if c.handle != nil {
			c.handle.DragDelta(delta)
		}
	case DragWaypoint:
		c.scene.MoveWaypoint(d.Anchor.ID, d.Anchor.Index, d.Initial.Add(delta))
	case DragPort:
		off := d.Initial.Add(delta)
		off.X = math.Max(0, math.Min(document.DeviceSize, off.X))
		off.Y = math.Max(0, math.Min(document.DeviceSize, off.Y))
		c.scene.MovePort(d.Anchor.ID, d.Anchor.Port, off)
	}
}

func (c *Coordinator) finishDrag() {
	d := c.drag
	switch d.Kind {
	case DragEntities:
		if c.snapping() {
			for id := range d.Devices {
				if dev, ok := c.scene.Device(id); ok {
					c.scene.MoveDevice(id, c.snap(dev.Position))
				}
			}
			for id := range d.Shapes {
				if sh, ok := c.scene.Shape(id); ok {
					c.scene.MoveShape(id, c.snap(sh.Position))
				}
			}
		}
		if c.handle != nil {
			c.handle.DragEnd()
		}
	case DragWaypoint:
		if c.snapping() {
			if conn, ok := c.scene.Connection(d.Anchor.ID); ok && d.Anchor.Index < len(conn.Waypoints) {
				c.scene.MoveWaypoint(d.Anchor.ID, d.Anchor.Index, c.snap(conn.Waypoints[d.Anchor.Index]))
			}
		}
	}
}

func (c *Coordinator) snapping() bool {
	return c.opts.SnapToGrid && c.opts.GridSize > 0
}

func (c *Coordinator) snap(p geom.Point) geom.Point {
	if !c.snapping() {
		return p
	}
	return p.Snap(c.opts.GridSize)
}

// Snap applies the grid to p when snapping is enabled.
func (c *Coordinator) Snap(p geom.Point) geom.Point { return c.snap(p) }
