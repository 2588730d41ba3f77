// Package routing computes the rendered paths of connections: endpoint
// anchors, straight or orthogonal segments and user waypoints. It also owns
// the render layer order and per-layer visibility.
package routing

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
)

// Scene is what the router reads from the entity store.
type Scene interface {
	Device(id int) (document.Device, bool)
	Connections() []document.Connection
}

// Path is a routed connection polyline in world space.
type Path struct {
	ConnectionID int                `json:"connection_id"`
	Layer        document.LinkLayer `json:"layer"`
	Points       []geom.Point       `json:"points"`
}

// Source returns the first point of the path.
func (p Path) Source() geom.Point { return p.Points[0] }

// Target returns the last point of the path.
func (p Path) Target() geom.Point { return p.Points[len(p.Points)-1] }

// Router is not safe for concurrent use.
type Router struct {
	overrides map[int]geom.Point
	hidden    map[Layer]bool
}

func New() *Router {
	return &Router{hidden: map[Layer]bool{}}
}

// SetOverrides installs live device positions used instead of stored ones.
// A nil map clears them.
func (r *Router) SetOverrides(positions map[int]geom.Point) {
	r.overrides = positions
}

func (r *Router) SetLayerVisible(l Layer, visible bool) {
	if visible {
		delete(r.hidden, l)
	} else {
		r.hidden[l] = true
	}
}

func (r *Router) LayerVisible(l Layer) bool {
	return !r.hidden[l]
}

// HiddenLayers returns the hidden layers in render order.
func (r *Router) HiddenLayers() []Layer {
	var out []Layer
	for _, l := range RenderOrder {
		if r.hidden[l] {
			out = append(out, l)
		}
	}
	return out
}

func (r *Router) position(d document.Device) document.Device {
	if p, ok := r.overrides[d.ID]; ok {
		d.Position = p
	}
	return d
}

// Route computes the path of one connection.
func (r *Router) Route(scene Scene, c document.Connection) (Path, error) {
	src, ok := scene.Device(c.SourceID)
	if !ok {
		return Path{}, fmt.Errorf("route connection %d: source %d: %w", c.ID, c.SourceID, document.ErrUnknownDevice)
	}
	dst, ok := scene.Device(c.TargetID)
	if !ok {
		return Path{}, fmt.Errorf("route connection %d: target %d: %w", c.ID, c.TargetID, document.ErrUnknownDevice)
	}

	pts := r.ControlPoints(c, src, dst)
	if c.RoutingStyle == document.RoutingOrthogonal {
		pts = orthogonalize(pts, exitsHorizontally(r.position(src), pts[0]))
	}
	return Path{ConnectionID: c.ID, Layer: c.Layer, Points: pts}, nil
}

// RouteAll routes every connection in scene order, skipping any that cannot
// be resolved.
func (r *Router) RouteAll(scene Scene) []Path {
	conns := scene.Connections()
	out := make([]Path, 0, len(conns))
	for _, c := range conns {
		p, err := r.Route(scene, c)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ControlPoints returns anchor, waypoints..., anchor for a connection
// without orthogonal bends. This is the polyline the user edits.
func (r *Router) ControlPoints(c document.Connection, src, dst document.Device) []geom.Point {
	src, dst = r.position(src), r.position(dst)

	towardSrc := dst.Center()
	if p, ok := portPoint(dst, c.TargetPort); ok {
		towardSrc = p
	}
	towardDst := src.Center()
	if p, ok := portPoint(src, c.SourcePort); ok {
		towardDst = p
	}
	if n := len(c.Waypoints); n > 0 {
		towardSrc = c.Waypoints[0]
		towardDst = c.Waypoints[n-1]
	}

	pts := make([]geom.Point, 0, len(c.Waypoints)+2)
	pts = append(pts, Anchor(src, c.SourcePort, towardSrc))
	pts = append(pts, c.Waypoints...)
	pts = append(pts, Anchor(dst, c.TargetPort, towardDst))
	return pts
}

// Anchor resolves where a connection meets a device. A known port wins;
// otherwise it is the midpoint of the glyph edge facing toward.
func Anchor(d document.Device, port string, toward geom.Point) geom.Point {
	if p, ok := portPoint(d, port); ok {
		return p
	}

	b := d.Bounds()
	c := b.Center()
	dx, dy := toward.X-c.X, toward.Y-c.Y
	if math.Abs(dx) >= math.Abs(dy) {
		if dx >= 0 {
			return geom.Pt(b.Right(), c.Y)
		}
		return geom.Pt(b.X, c.Y)
	}
	if dy >= 0 {
		return geom.Pt(c.X, b.Bottom())
	}
	return geom.Pt(c.X, b.Y)
}

func portPoint(d document.Device, port string) (geom.Point, bool) {
	if port == "" {
		return geom.Point{}, false
	}
	p, ok := d.Port(port)
	if !ok {
		return geom.Point{}, false
	}
	return d.Position.Add(p.Offset()), true
}

func exitsHorizontally(d document.Device, anchor geom.Point) bool {
	b := d.Bounds()
	return anchor.X == b.X || anchor.X == b.Right()
}

// orthogonalize inserts right-angle bends. A direct anchor-to-anchor route
// bends at the midpoint; waypoint routes bend once per segment.
func orthogonalize(pts []geom.Point, horizontalFirst bool) []geom.Point {
	if len(pts) == 2 {
		a, b := pts[0], pts[1]
		if a.X == b.X || a.Y == b.Y {
			return pts
		}
		if horizontalFirst {
			midX := (a.X + b.X) / 2
			return []geom.Point{a, {X: midX, Y: a.Y}, {X: midX, Y: b.Y}, b}
		}
		midY := (a.Y + b.Y) / 2
		return []geom.Point{a, {X: a.X, Y: midY}, {X: b.X, Y: midY}, b}
	}

	out := []geom.Point{pts[0]}
	for i := 1; i < len(pts); i++ {
		prev, next := out[len(out)-1], pts[i]
		if prev.X != next.X && prev.Y != next.Y {
			if horizontalFirst {
				out = append(out, geom.Pt(next.X, prev.Y))
			} else {
				out = append(out, geom.Pt(prev.X, next.Y))
			}
		}
		out = append(out, next)
		horizontalFirst = !horizontalFirst
	}
	return out
}

// InsertionIndex returns the waypoint index at which a new waypoint at p
// should be inserted: the index of the control polyline segment closest to p.
func InsertionIndex(control []geom.Point, p geom.Point) int {
	best, bestDist := 0, math.Inf(1)
	for i := 0; i+1 < len(control); i++ {
		if d := geom.DistanceToSegment(p, control[i], control[i+1]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// DistanceToPath is the shortest distance from p to any segment of pts.
func DistanceToPath(pts []geom.Point, p geom.Point) float64 {
	if len(pts) == 1 {
		return p.Dist(pts[0])
	}
	d := math.Inf(1)
	for i := 0; i+1 < len(pts); i++ {
		d = math.Min(d, geom.DistanceToSegment(p, pts[i], pts[i+1]))
	}
	return d
}

// Bounds returns the bounding box of a path.
func (p Path) Bounds() geom.Rect {
	if len(p.Points) == 0 {
		return geom.Rect{}
	}
	minX := slices.MinFunc(p.Points, func(a, b geom.Point) int { return cmp.Compare(a.X, b.X) }).X
	maxX := slices.MaxFunc(p.Points, func(a, b geom.Point) int { return cmp.Compare(a.X, b.X) }).X
	minY := slices.MinFunc(p.Points, func(a, b geom.Point) int { return cmp.Compare(a.Y, b.Y) }).Y
	maxY := slices.MaxFunc(p.Points, func(a, b geom.Point) int { return cmp.Compare(a.Y, b.Y) }).Y
	return geom.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
