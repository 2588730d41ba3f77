package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/store"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/viewport"
)

type fixture struct {
	store *store.Store
	view  *viewport.Viewport
	coord *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.New()
	v := viewport.New()
	return &fixture{store: s, view: v, coord: NewCoordinator(s, v, DefaultOptions())}
}

func (f *fixture) device(t *testing.T, name string, x, y float64) int {
	t.Helper()
	d, err := f.store.CreateDevice(store.DeviceSpec{Name: name, Kind: document.DeviceRouter, Position: geom.Pt(x, y)})
	require.NoError(t, err)
	return d.ID
}

func (f *fixture) pos(t *testing.T, id int) geom.Point {
	t.Helper()
	d, ok := f.store.Device(id)
	require.True(t, ok)
	return d.Position
}

func (f *fixture) drag(hit Hit, from, to geom.Point, mods Modifiers) {
	f.coord.PointerDown(from, hit, mods)
	mid := from.Add(to.Sub(from).Div(2))
	f.coord.PointerMove(mid)
	f.coord.PointerMove(to)
	f.coord.PointerUp(to)
}

func TestBoxSelectThenDragMovesAll(t *testing.T) {
	f := newFixture(t)
	a := f.device(t, "A", 100, 100)
	b := f.device(t, "B", 300, 100)
	_, err := f.store.CreateConnection(store.ConnectionSpec{SourceID: a, TargetID: b, Type: "ethernet"})
	require.NoError(t, err)

	f.drag(Hit{}, geom.Pt(50, 50), geom.Pt(350, 150), Modifiers{Shift: true})
	assert.Equal(t, []int{a, b}, f.coord.Selection().DeviceIDs())
	assert.Equal(t, Idle, f.coord.State())

	f.drag(Hit{Kind: HitDevice, ID: a}, geom.Pt(130, 130), geom.Pt(150, 130), Modifiers{})

	assert.Equal(t, geom.Pt(120, 100), f.pos(t, a))
	assert.Equal(t, geom.Pt(320, 100), f.pos(t, b))
	assert.Equal(t, []int{a, b}, f.coord.Selection().DeviceIDs(), "drag keeps the multi-selection")
}

func TestBoxSelectIsAdditive(t *testing.T) {
	f := newFixture(t)
	a := f.device(t, "A", 0, 0)
	b := f.device(t, "B", 200, 0)
	c := f.device(t, "C", 400, 0)

	f.coord.PointerDown(geom.Pt(10, 10), Hit{Kind: HitDevice, ID: a}, Modifiers{})
	f.coord.PointerUp(geom.Pt(10, 10))
	require.Equal(t, []int{a}, f.coord.Selection().DeviceIDs())

	f.drag(Hit{}, geom.Pt(150, -10), geom.Pt(500, 100), Modifiers{Ctrl: true})
	assert.Equal(t, []int{a, b, c}, f.coord.Selection().DeviceIDs())
}

func TestBoxSelectHalfOpenEdges(t *testing.T) {
	f := newFixture(t)
	a := f.device(t, "A", 100, 100)

	// Box ends exactly on the device's left edge.
	f.drag(Hit{}, geom.Pt(0, 0), geom.Pt(100, 300), Modifiers{Shift: true})
	assert.False(t, f.coord.Selection().HasDevice(a))

	f.drag(Hit{}, geom.Pt(0, 0), geom.Pt(101, 300), Modifiers{Shift: true})
	assert.True(t, f.coord.Selection().HasDevice(a))
}

func TestBoxSelectOrderIndependent(t *testing.T) {
	f := newFixture(t)
	ids := []int{
		f.device(t, "A", 10, 10),
		f.device(t, "B", 100, 10),
		f.device(t, "C", 10, 100),
	}
	f.device(t, "outside", 600, 600)

	// Drawn from bottom-right to top-left.
	f.drag(Hit{}, geom.Pt(300, 300), geom.Pt(0, 0), Modifiers{Shift: true})
	assert.Equal(t, ids, f.coord.Selection().DeviceIDs())
}

func TestPlainBackgroundPressPansAndClears(t *testing.T) {
	f := newFixture(t)
	a := f.device(t, "A", 0, 0)
	f.coord.SelectDevices(a)

	f.coord.PointerDown(geom.Pt(500, 500), Hit{}, Modifiers{})
	assert.Equal(t, Panning, f.coord.State())
	assert.True(t, f.coord.Selection().IsEmpty())

	f.coord.PointerMove(geom.Pt(520, 490))
	f.coord.PointerUp(geom.Pt(520, 490))
	assert.Equal(t, geom.Pt(20, -10), f.view.Offset())
	assert.Equal(t, geom.Pt(0, 0), f.pos(t, a))
}

func TestClickSemantics(t *testing.T) {
	f := newFixture(t)
	a := f.device(t, "A", 0, 0)
	b := f.device(t, "B", 100, 0)
	sh, err := f.store.CreateShape(store.ShapeSpec{Kind: document.ShapeRectangle, Position: geom.Pt(300, 0), Width: 40, Height: 40})
	require.NoError(t, err)

	click := func(hit Hit, mods Modifiers) {
		f.coord.PointerDown(geom.Pt(1, 1), hit, mods)
		f.coord.PointerUp(geom.Pt(1, 1))
	}

	click(Hit{Kind: HitDevice, ID: a}, Modifiers{})
	click(Hit{Kind: HitDevice, ID: b}, Modifiers{Shift: true})
	click(Hit{Kind: HitShape, ID: sh.ID}, Modifiers{Shift: true})
	sel := f.coord.Selection()
	assert.Equal(t, []int{a, b}, sel.DeviceIDs())
	assert.Equal(t, []int{sh.ID}, sel.ShapeIDs())

	click(Hit{Kind: HitDevice, ID: a}, Modifiers{Shift: true})
	assert.Equal(t, []int{b}, f.coord.Selection().DeviceIDs())

	// A plain click on a member of a multi-selection collapses it.
	click(Hit{Kind: HitDevice, ID: b}, Modifiers{})
	sel = f.coord.Selection()
	assert.Equal(t, []int{b}, sel.DeviceIDs())
	assert.Empty(t, sel.ShapeIDs())

	click(Hit{Kind: HitConnection, ID: 9}, Modifiers{})
	sel = f.coord.Selection()
	assert.Equal(t, 9, sel.Connection())
	assert.Zero(t, sel.Len())
}

func TestMovementBelowThresholdIsAClick(t *testing.T) {
	f := newFixture(t)
	a := f.device(t, "A", 0, 0)

	f.coord.PointerDown(geom.Pt(10, 10), Hit{Kind: HitDevice, ID: a}, Modifiers{})
	f.coord.PointerMove(geom.Pt(11, 11))
	assert.Equal(t, Pressed, f.coord.State())
	f.coord.PointerUp(geom.Pt(11, 11))

	assert.Equal(t, geom.Pt(0, 0), f.pos(t, a))
}

func TestDragSnapsOnRelease(t *testing.T) {
	f := newFixture(t)
	a := f.device(t, "A", 0, 0)
	f.coord.SetSnap(true, 50)

	f.coord.PointerDown(geom.Pt(10, 10), Hit{Kind: HitDevice, ID: a}, Modifiers{})
	f.coord.PointerMove(geom.Pt(47, 73))
	assert.Equal(t, geom.Pt(37, 63), f.pos(t, a), "positions are live during the drag")

	f.coord.PointerUp(geom.Pt(47, 73))
	assert.Equal(t, geom.Pt(50, 50), f.pos(t, a))
}

func TestDragRespectsZoom(t *testing.T) {
	f := newFixture(t)
	a := f.device(t, "A", 0, 0)
	f.view.SetScale(2)

	f.drag(Hit{Kind: HitDevice, ID: a}, geom.Pt(20, 20), geom.Pt(60, 20), Modifiers{})
	assert.Equal(t, geom.Pt(20, 0), f.pos(t, a))
}

func TestCancelDragRestoresPositions(t *testing.T) {
	f := newFixture(t)
	a := f.device(t, "A", 100, 100)
	b := f.device(t, "B", 300, 100)
	f.coord.SelectDevices(a, b)

	f.coord.PointerDown(geom.Pt(110, 110), Hit{Kind: HitDevice, ID: a}, Modifiers{})
	f.coord.PointerMove(geom.Pt(200, 200))
	require.Equal(t, DraggingEntities, f.coord.State())
	live := f.coord.LivePositions()
	assert.Equal(t, geom.Pt(190, 190), live[a])

	assert.True(t, f.coord.CancelDrag())
	assert.Equal(t, Idle, f.coord.State())
	assert.Equal(t, geom.Pt(100, 100), f.pos(t, a))
	assert.Equal(t, geom.Pt(300, 100), f.pos(t, b))
	assert.Nil(t, f.coord.LivePositions())
	assert.False(t, f.coord.CancelDrag())
}

func TestWaypointDrag(t *testing.T) {
	f := newFixture(t)
	a := f.device(t, "A", 0, 0)
	b := f.device(t, "B", 200, 0)
	conn, err := f.store.CreateConnection(store.ConnectionSpec{
		SourceID: a, TargetID: b, Waypoints: []geom.Point{{X: 100, Y: 100}},
	})
	require.NoError(t, err)

	f.drag(Hit{Kind: HitWaypoint, ID: conn.ID, Index: 0}, geom.Pt(100, 100), geom.Pt(120, 90), Modifiers{})

	got, _ := f.store.Connection(conn.ID)
	assert.Equal(t, []geom.Point{{X: 120, Y: 90}}, got.Waypoints)
	assert.Equal(t, conn.ID, f.coord.Selection().Connection())
}

func TestPortDragIsClampedToGlyph(t *testing.T) {
	f := newFixture(t)
	dev, err := f.store.CreateDevice(store.DeviceSpec{
		Name: "fw", Kind: document.DeviceFirewall,
		ConnectionPorts: []document.Port{{ID: "p", X: 30, Y: 0}},
	})
	require.NoError(t, err)

	f.drag(Hit{Kind: HitPort, ID: dev.ID, Port: "p"}, geom.Pt(30, 0), geom.Pt(200, 10), Modifiers{})

	got, _ := f.store.Device(dev.ID)
	port, ok := got.Port("p")
	require.True(t, ok)
	assert.Equal(t, geom.Pt(document.DeviceSize, 10), port.Offset())
}

type recordingHandle struct {
	deltas []geom.Point
	ended  bool
}

func (h *recordingHandle) DragDelta(d geom.Point) { h.deltas = append(h.deltas, d) }
func (h *recordingHandle) DragEnd()               { h.ended = true }

func TestTransformHandleFollowsDrag(t *testing.T) {
	f := newFixture(t)
	a := f.device(t, "A", 0, 0)
	h := &recordingHandle{}
	f.coord.SetTransformHandle(h)

	f.drag(Hit{Kind: HitDevice, ID: a}, geom.Pt(0, 0), geom.Pt(40, 0), Modifiers{})

	require.NotEmpty(t, h.deltas)
	assert.Equal(t, geom.Pt(40, 0), h.deltas[len(h.deltas)-1])
	assert.True(t, h.ended)
}

func TestOneGestureAtATime(t *testing.T) {
	f := newFixture(t)
	a := f.device(t, "A", 0, 0)

	f.coord.PointerDown(geom.Pt(500, 500), Hit{}, Modifiers{Shift: true})
	require.Equal(t, BoxSelecting, f.coord.State())

	f.coord.PointerDown(geom.Pt(10, 10), Hit{Kind: HitDevice, ID: a}, Modifiers{})
	assert.Equal(t, BoxSelecting, f.coord.State())

	f.coord.PointerUp(geom.Pt(600, 600))
	assert.Equal(t, Idle, f.coord.State())
}

func TestNudge(t *testing.T) {
	f := newFixture(t)
	a := f.device(t, "A", 10, 10)
	sh, _ := f.store.CreateShape(store.ShapeSpec{Kind: document.ShapeCircle, Position: geom.Pt(0, 0), Width: 5, Height: 5})

	assert.False(t, f.coord.Nudge(geom.Pt(1, 0), false), "nothing selected")

	f.coord.SelectDevices(a)
	f.coord.PointerDown(geom.Pt(0, 0), Hit{Kind: HitShape, ID: sh.ID}, Modifiers{Shift: true})
	f.coord.PointerUp(geom.Pt(0, 0))

	require.True(t, f.coord.Nudge(geom.Pt(1, 0), false))
	assert.Equal(t, geom.Pt(11, 10), f.pos(t, a))

	require.True(t, f.coord.Nudge(geom.Pt(0, -1), true))
	assert.Equal(t, geom.Pt(11, 0), f.pos(t, a))
	got, _ := f.store.Shape(sh.ID)
	assert.Equal(t, geom.Pt(1, -10), got.Position)

	f.coord.SetSnap(true, 50)
	require.True(t, f.coord.Nudge(geom.Pt(1, 0), false))
	assert.Equal(t, geom.Pt(50, 0), f.pos(t, a))
}

func TestPruneDropsDeletedEntities(t *testing.T) {
	f := newFixture(t)
	a := f.device(t, "A", 0, 0)
	b := f.device(t, "B", 100, 0)
	f.coord.SelectDevices(a, b)

	f.store.DeleteDevice(b)
	f.coord.Prune()

	sel := f.coord.Selection()
	assert.Equal(t, []int{a}, sel.DeviceIDs())
	assert.Equal(t, a, sel.Primary())
}
