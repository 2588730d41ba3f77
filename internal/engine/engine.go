package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/contextmenu"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/inventory"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/routing"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/selection"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/store"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/viewport"
)

var (
	ErrNeedTwoDevices     = errors.New("select exactly two devices to connect")
	ErrNoPendingDuplicate = errors.New("no duplicate device awaiting resolution")
	ErrUnknownLayer       = errors.New("unknown layer")
)

// Options tunes the engine. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	GridSize      float64       `json:"grid_size"`
	SnapToGrid    bool          `json:"snap_to_grid"`
	DragThreshold float64       `json:"drag_threshold"`
	MenuGuard     time.Duration `json:"menu_guard"`
	// HitTolerance is in screen pixels.
	HitTolerance float64   `json:"hit_tolerance"`
	FitPadding   float64   `json:"fit_padding"`
	ZoomStep     float64   `json:"zoom_step"`
	ViewportSize geom.Size `json:"viewport_size"`

	Now func() time.Time `json:"-"`
}

func DefaultOptions() Options {
	return Options{
		GridSize:      50,
		DragThreshold: selection.DragThreshold,
		MenuGuard:     contextmenu.GuardWindow,
		HitTolerance:  6,
		FitPadding:    40,
		ZoomStep:      1.1,
		ViewportSize:  geom.Size{Width: 1280, Height: 800},
		Now:           time.Now,
	}
}

// Key is a keyboard key name as reported by the browser.
type Key string

const (
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
	KeyArrowUp    Key = "ArrowUp"
	KeyArrowDown  Key = "ArrowDown"
	KeyEscape     Key = "Escape"
	KeyDelete     Key = "Delete"
	KeyBackspace  Key = "Backspace"
	KeySelectAll  Key = "a"
)

// DuplicateChoice resolves a pending duplicate device drop.
type DuplicateChoice int

const (
	ReuseExisting DuplicateChoice = iota
	CreateNew
)

// DropResult reports what a drop created.
type DropResult struct {
	DeviceID int `json:"device_id,omitempty"`
	ShapeID  int `json:"shape_id,omitempty"`
}

// Engine is the event dispatch shell. It owns the store, viewport,
// selection coordinator, router and context menu, and routes raw input to
// them. All methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	opts   Options
	store  *store.Store
	view   *viewport.Viewport
	sel    *selection.Coordinator
	router *routing.Router
	menu   *contextmenu.Resolver

	pending *inventory.DuplicateError
}

// NewEngine creates an engine with an empty canvas.
func NewEngine(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ZoomStep <= 1 {
		opts.ZoomStep = 1.1
	}

	s := store.New()
	v := viewport.New()
	return &Engine{
		opts:  opts,
		store: s,
		view:  v,
		sel: selection.NewCoordinator(s, v, selection.Options{
			DragThreshold: opts.DragThreshold,
			SnapToGrid:    opts.SnapToGrid,
			GridSize:      opts.GridSize,
		}),
		router: routing.New(),
		menu: contextmenu.New(
			contextmenu.WithClock(opts.Now),
			contextmenu.WithGuardWindow(opts.MenuGuard),
		),
	}
}

// --- Commands (frontend → engine) ---

func (e *Engine) PointerDown(screen geom.Point, mods selection.Modifiers) selection.Hit {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sel.State() != selection.Idle {
		return selection.Hit{}
	}

	world := e.view.ScreenToWorld(screen)
	hit := e.hitTest(world)

	// Pressing a selected connection drops a waypoint there and grabs it.
	if hit.Kind == selection.HitConnection && e.sel.Selection().Connection() == hit.ID && !mods.Multi() {
		if idx, ok := e.insertWaypoint(hit.ID, world); ok {
			hit = selection.Hit{Kind: selection.HitWaypoint, ID: hit.ID, Index: idx}
		}
	}

	e.sel.PointerDown(screen, hit, mods)
	return hit
}

func (e *Engine) PointerMove(screen geom.Point) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sel.PointerMove(screen)
	e.router.SetOverrides(e.sel.LivePositions())
}

func (e *Engine) PointerUp(screen geom.Point) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sel.PointerUp(screen)
	e.router.SetOverrides(nil)
}

// Wheel zooms around the cursor. Negative deltaY zooms in.
func (e *Engine) Wheel(screen geom.Point, deltaY float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case deltaY < 0:
		e.view.ZoomAt(screen, e.opts.ZoomStep)
	case deltaY > 0:
		e.view.ZoomAt(screen, 1/e.opts.ZoomStep)
	}
}

// KeyDown handles canvas shortcuts. It reports whether the key was used.
func (e *Engine) KeyDown(key Key, mods selection.Modifiers) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	dirs := map[Key]geom.Point{
		KeyArrowLeft:  {X: -1},
		KeyArrowRight: {X: 1},
		KeyArrowUp:    {Y: -1},
		KeyArrowDown:  {Y: 1},
	}
	if dir, ok := dirs[key]; ok {
		return e.sel.Nudge(dir, mods.Shift)
	}

	switch key {
	case KeyEscape:
		if e.sel.CancelDrag() {
			e.router.SetOverrides(nil)
			return true
		}
		if e.menu.State().Visible {
			e.menu.Hide()
			return true
		}
		if !e.sel.Selection().IsEmpty() {
			e.sel.ClearSelection()
			return true
		}
	case KeyDelete, KeyBackspace:
		return e.deleteSelection() > 0
	}

	// Letter shortcuts arrive upper-cased with Shift or Caps Lock.
	if strings.EqualFold(string(key), string(KeySelectAll)) {
		if mods.Ctrl || mods.Meta {
			e.sel.SelectAll()
			return true
		}
	}
	return false
}

// RightClick opens the context menu for whatever is under the pointer.
func (e *Engine) RightClick(screen geom.Point) contextmenu.State {
	e.mu.Lock()
	defer e.mu.Unlock()

	hit := e.hitTest(e.view.ScreenToWorld(screen))
	e.requestMenu(screen, hit)
	return e.menu.State()
}

// RequestContextMenu is called by each nested right-click handler with the
// entity it is attached to. A bubbled request for a different target inside
// the guard window is dropped without touching the selection.
func (e *Engine) RequestContextMenu(screen geom.Point, hit selection.Hit) contextmenu.State {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.requestMenu(screen, hit)
	return e.menu.State()
}

func (e *Engine) requestMenu(screen geom.Point, hit selection.Hit) {
	world := e.view.ScreenToWorld(screen)
	sel := e.sel.Selection()

	var target contextmenu.Target
	switch hit.Kind {
	case selection.HitDevice, selection.HitPort:
		ids := sel.DeviceIDs()
		if sel.HasDevice(hit.ID) && len(ids) > 1 {
			target = contextmenu.MultiDeviceTarget{DeviceIDs: ids}
		} else {
			target = contextmenu.DeviceTarget{DeviceID: hit.ID}
		}
	case selection.HitShape:
		ids := sel.ShapeIDs()
		if sel.HasShape(hit.ID) && len(ids) > 1 {
			target = contextmenu.MultiShapeTarget{ShapeIDs: ids}
		} else {
			target = contextmenu.ShapeTarget{ShapeID: hit.ID}
		}
	case selection.HitConnection, selection.HitWaypoint:
		target = contextmenu.ConnectionTarget{ConnectionID: hit.ID, Position: world}
	default:
		target = contextmenu.CanvasTarget{Position: world}
	}

	if !e.menu.Accepts(target.Kind()) {
		return
	}

	switch target.(type) {
	case contextmenu.DeviceTarget:
		e.sel.SelectOnly(selection.Hit{Kind: selection.HitDevice, ID: hit.ID})
	case contextmenu.ShapeTarget:
		e.sel.SelectOnly(hit)
	case contextmenu.ConnectionTarget:
		e.sel.SelectOnly(selection.Hit{Kind: selection.HitConnection, ID: hit.ID})
	}
	e.menu.Show(screen, target)
}

// OutsideClick forwards a global click to the menu. It reports whether the
// menu closed.
func (e *Engine) OutsideClick(insideMenu bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.menu.HandleOutsideClick(insideMenu)
}

func (e *Engine) HideMenu() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.menu.Hide()
}

// Drop handles a palette drop at a screen point. Inventory devices that
// already exist return a *inventory.DuplicateError and are held until
// ResolveDuplicate is called.
func (e *Engine) Drop(screen geom.Point, payload []byte) (DropResult, error) {
	drop, err := inventory.DecodeDropPayload(payload)
	if err != nil {
		return DropResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pos := e.sel.Snap(e.view.ScreenToWorld(screen))

	switch d := drop.(type) {
	case inventory.TemplateDrop:
		dev, err := e.store.CreateDevice(store.DeviceSpec{
			Name:     inventory.UniqueName(d.Name, e.nameTaken),
			Kind:     d.Kind,
			Position: pos,
		})
		if err != nil {
			return DropResult{}, err
		}
		e.sel.SelectOnly(selection.Hit{Kind: selection.HitDevice, ID: dev.ID})
		return DropResult{DeviceID: dev.ID}, nil

	case inventory.NautobotDrop:
		spec := inventory.ToDeviceSpec(d.Device, pos)
		if dup := inventory.FindDuplicate(e.store, spec); dup != nil {
			e.pending = dup
			return DropResult{}, dup
		}
		dev, err := e.store.CreateDevice(spec)
		if err != nil {
			return DropResult{}, err
		}
		e.sel.SelectOnly(selection.Hit{Kind: selection.HitDevice, ID: dev.ID})
		return DropResult{DeviceID: dev.ID}, nil

	case inventory.SymbolDrop:
		sh, err := e.store.CreateShape(store.ShapeSpec{
			Kind:        d.Shape,
			Position:    pos,
			Width:       d.Width,
			Height:      d.Height,
			FillColor:   d.FillColor,
			StrokeColor: d.StrokeColor,
			StrokeWidth: d.StrokeWidth,
			Layer:       d.Layer,
		})
		if err != nil {
			return DropResult{}, err
		}
		e.sel.SelectOnly(selection.Hit{Kind: selection.HitShape, ID: sh.ID})
		return DropResult{ShapeID: sh.ID}, nil
	}
	return DropResult{}, fmt.Errorf("%q: %w", drop.DropKind(), inventory.ErrUnknownDrop)
}

// PendingDuplicate returns the duplicate awaiting a decision, if any.
func (e *Engine) PendingDuplicate() (*inventory.DuplicateError, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending, e.pending != nil
}

// ResolveDuplicate settles a pending duplicate drop. The scene is checked
// again since it may have changed while the user was deciding.
func (e *Engine) ResolveDuplicate(choice DuplicateChoice) (document.Device, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dup := e.pending
	if dup == nil {
		return document.Device{}, ErrNoPendingDuplicate
	}
	e.pending = nil

	if choice == ReuseExisting {
		if dev, ok := e.store.Device(dup.Existing.ID); ok {
			e.sel.SelectOnly(selection.Hit{Kind: selection.HitDevice, ID: dev.ID})
			return dev, nil
		}
		if again := inventory.FindDuplicate(e.store, dup.Candidate); again != nil {
			e.sel.SelectOnly(selection.Hit{Kind: selection.HitDevice, ID: again.Existing.ID})
			return again.Existing, nil
		}
	}

	spec := dup.Candidate
	spec.Name = inventory.UniqueName(spec.Name, e.nameTaken)
	dev, err := e.store.CreateDevice(spec)
	if err != nil {
		return document.Device{}, err
	}
	e.sel.SelectOnly(selection.Hit{Kind: selection.HitDevice, ID: dev.ID})
	return dev, nil
}

func (e *Engine) nameTaken(name string) bool {
	_, ok := e.store.FindDeviceByName(name)
	return ok
}

// AddDevice creates a device directly, bypassing drop payloads.
func (e *Engine) AddDevice(spec store.DeviceSpec) (document.Device, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	spec.Position = e.sel.Snap(spec.Position)
	return e.store.CreateDevice(spec)
}

func (e *Engine) UpdateDevice(id int, patch store.DevicePatch) (document.Device, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.UpdateDevice(id, patch)
}

func (e *Engine) AddShape(spec store.ShapeSpec) (document.Shape, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.CreateShape(spec)
}

func (e *Engine) UpdateShape(id int, patch store.ShapePatch) (document.Shape, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.UpdateShape(id, patch)
}

// Connect links two devices.
func (e *Engine) Connect(spec store.ConnectionSpec) (document.Connection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.CreateConnection(spec)
}

// ConnectSelected links the two selected devices.
func (e *Engine) ConnectSelected(connType string) (document.Connection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sel := e.sel.Selection()
	ids := sel.DeviceIDs()
	if len(ids) != 2 {
		return document.Connection{}, ErrNeedTwoDevices
	}
	src, dst := ids[0], ids[1]
	if sel.Primary() == src {
		src, dst = dst, src
	}
	return e.store.CreateConnection(store.ConnectionSpec{SourceID: src, TargetID: dst, Type: connType})
}

func (e *Engine) UpdateConnection(id int, patch store.ConnectionPatch) (document.Connection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.UpdateConnection(id, patch)
}

// AddWaypoint inserts a waypoint at a world point on the closest segment.
func (e *Engine) AddWaypoint(connID int, world geom.Point) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.insertWaypoint(connID, world)
}

func (e *Engine) insertWaypoint(connID int, world geom.Point) (int, bool) {
	c, ok := e.store.Connection(connID)
	if !ok {
		return 0, false
	}
	src, ok1 := e.store.Device(c.SourceID)
	dst, ok2 := e.store.Device(c.TargetID)
	if !ok1 || !ok2 {
		return 0, false
	}
	idx := routing.InsertionIndex(e.router.ControlPoints(c, src, dst), world)
	return idx, e.store.InsertWaypoint(connID, idx, world)
}

func (e *Engine) DeleteWaypoint(connID, index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.DeleteWaypoint(connID, index)
}

// AddPort adds a custom connection port to a device.
func (e *Engine) AddPort(deviceID int, port document.Port) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	dev, ok := e.store.Device(deviceID)
	if !ok {
		return fmt.Errorf("device %d: %w", deviceID, document.ErrUnknownDevice)
	}
	if _, exists := dev.Port(port.ID); exists || port.ID == "" {
		return fmt.Errorf("port %q: %w", port.ID, document.ErrDuplicateID)
	}
	ports := append(dev.ConnectionPorts, port)
	_, err := e.store.UpdateDevice(deviceID, store.DevicePatch{ConnectionPorts: &ports})
	return err
}

// RemovePort deletes a port. Connections using it fall back to the default
// anchor.
func (e *Engine) RemovePort(deviceID int, portID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	dev, ok := e.store.Device(deviceID)
	if !ok {
		return fmt.Errorf("device %d: %w", deviceID, document.ErrUnknownDevice)
	}
	if _, exists := dev.Port(portID); !exists {
		return fmt.Errorf("port %q: %w", portID, document.ErrUnknownPort)
	}
	var ports []document.Port
	for _, p := range dev.ConnectionPorts {
		if p.ID != portID {
			ports = append(ports, p)
		}
	}
	_, err := e.store.UpdateDevice(deviceID, store.DevicePatch{ConnectionPorts: &ports})
	return err
}

// DeleteSelection removes the selected connection, devices (with their
// connections) and shapes. It returns how many entities were removed.
func (e *Engine) DeleteSelection() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deleteSelection()
}

func (e *Engine) deleteSelection() int {
	sel := e.sel.Selection()
	n := 0
	if id := sel.Connection(); id != 0 && e.store.DeleteConnection(id) {
		n++
	}
	for _, id := range sel.DeviceIDs() {
		if e.store.DeleteDevice(id) {
			n++
		}
	}
	for _, id := range sel.ShapeIDs() {
		if e.store.DeleteShape(id) {
			n++
		}
	}
	e.sel.Prune()
	return n
}

// ClearCanvas removes every entity.
func (e *Engine) ClearCanvas() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sel.CancelDrag()
	e.store.Clear()
	e.sel.ClearSelection()
	e.menu.Hide()
	e.pending = nil
}

// LoadSample replaces the scene with the demo topology.
func (e *Engine) LoadSample() error {
	return e.Restore(document.NewSampleCanvas())
}

func (e *Engine) SelectDevices(ids ...int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel.SelectDevices(ids...)
}

func (e *Engine) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel.ClearSelection()
}

func (e *Engine) SetSnap(enabled bool, gridSize float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel.SetSnap(enabled, gridSize)
}

// SetLayerVisible toggles a render layer by name.
func (e *Engine) SetLayerVisible(name string, visible bool) error {
	l, ok := routing.ParseLayer(name)
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownLayer)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.router.SetLayerVisible(l, visible)
	return nil
}

// LayerVisibility reports every layer's visibility keyed by name.
func (e *Engine) LayerVisibility() map[string]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]bool, len(routing.RenderOrder))
	for _, l := range routing.RenderOrder {
		out[l.String()] = e.router.LayerVisible(l)
	}
	return out
}

// --- Viewport ---

func (e *Engine) SetViewportSize(size geom.Size) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.ViewportSize = size
}

func (e *Engine) PanBy(delta geom.Point) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.view.PanBy(delta)
}

// Zoom zooms around the viewport center by factor.
func (e *Engine) Zoom(factor float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	size := e.opts.ViewportSize
	e.view.ZoomAt(geom.Pt(size.Width/2, size.Height/2), factor)
}

func (e *Engine) ResetView() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.view.Reset()
}

// FitToContent frames every entity in the viewport.
func (e *Engine) FitToContent() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.view.FitToContent(e.buildScene().ContentBounds(), e.opts.ViewportSize, e.opts.FitPadding)
}

// ViewState is the viewport as seen by the frontend.
type ViewState struct {
	Scale  float64    `json:"scale"`
	Offset geom.Point `json:"offset"`
}

func (e *Engine) View() ViewState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ViewState{Scale: e.view.Scale(), Offset: e.view.Offset()}
}

func (e *Engine) ScreenToWorld(p geom.Point) geom.Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view.ScreenToWorld(p)
}

// --- Persistence scene ---

// Snapshot returns the scene payload.
func (e *Engine) Snapshot() document.CanvasData {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Snapshot()
}

// Restore replaces the scene, dropping selection, gestures and menus.
func (e *Engine) Restore(data document.CanvasData) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.Replace(data); err != nil {
		return err
	}
	e.sel.CancelDrag()
	e.sel.ClearSelection()
	e.router.SetOverrides(nil)
	e.menu.Hide()
	e.pending = nil
	return nil
}

func (e *Engine) IsEmpty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Empty()
}

func (e *Engine) Revision() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Revision()
}

// --- Queries (frontend ← engine) ---

func (e *Engine) Device(id int) (document.Device, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Device(id)
}

func (e *Engine) Connection(id int) (document.Connection, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Connection(id)
}

func (e *Engine) Shape(id int) (document.Shape, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Shape(id)
}

func (e *Engine) Selection() selection.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel.Selection().Snapshot()
}

func (e *Engine) GestureState() selection.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel.State()
}

func (e *Engine) Menu() contextmenu.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.menu.State()
}

// Paths returns the routed connections, honoring live drag positions.
func (e *Engine) Paths() []routing.Path {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.router.RouteAll(e.store)
}

// HitTest returns the entity under a screen point.
func (e *Engine) HitTest(screen geom.Point) selection.Hit {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hitTest(e.view.ScreenToWorld(screen))
}

func (e *Engine) hitTest(world geom.Point) selection.Hit {
	tol := e.opts.HitTolerance / e.view.Scale()
	return HitTest(e.buildScene(), world, tol, e.router.LayerVisible)
}

// Render compiles the scene into draw commands.
func (e *Engine) Render() []DrawCommand {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CompileDrawCommands(e.buildScene(), e.router.LayerVisible, e.view.Matrix())
}

// RenderJSON is Render serialized for the js bridge.
func (e *Engine) RenderJSON() string {
	result, _ := DrawCommandsToJSON(e.Render())
	return result
}

// SelectionBounds returns the world bounding box of selected devices and
// shapes.
func (e *Engine) SelectionBounds() geom.Rect {
	e.mu.Lock()
	defer e.mu.Unlock()

	sel := e.sel.Selection()
	var r geom.Rect
	for _, id := range sel.DeviceIDs() {
		if d, ok := e.store.Device(id); ok {
			r = r.Union(d.Bounds())
		}
	}
	for _, id := range sel.ShapeIDs() {
		if s, ok := e.store.Shape(id); ok {
			r = r.Union(s.Bounds())
		}
	}
	return r
}

// StateJSON returns a compact summary for the frontend toolbar.
func (e *Engine) StateJSON() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	menu := e.menu.State()
	data, _ := json.Marshal(map[string]any{
		"revision":  e.store.Revision(),
		"gesture":   e.sel.State().String(),
		"selection": e.sel.Selection().Snapshot(),
		"menu": map[string]any{
			"visible":  menu.Visible,
			"kind":     menu.Kind(),
			"position": menu.Position,
			"target":   menu.Target,
		},
		"view": ViewState{Scale: e.view.Scale(), Offset: e.view.Offset()},
		"snap": e.sel.Options().SnapToGrid,
		"grid": e.sel.Options().GridSize,
	})
	return string(data)
}

func (e *Engine) buildScene() *SceneGraph {
	var box *geom.Rect
	if r, ok := e.sel.Box(); ok {
		box = &r
	}
	return BuildSceneGraph(SceneInput{
		Devices:     e.store.Devices(),
		Shapes:      e.store.Shapes(),
		Connections: e.store.Connections(),
		Paths:       e.router.RouteAll(e.store),
		Selection:   e.sel.Selection(),
		Box:         box,
		Visible:     e.router.LayerVisible,
	})
}
