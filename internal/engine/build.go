package engine

import (
	"fmt"
	"math"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/routing"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/selection"
)

const (
	handleRadius = 5.0
	portRadius   = 4.0
	outlinePad   = 4.0
)

var deviceFill = map[document.DeviceKind]string{
	document.DeviceRouter:     "#2563eb",
	document.DeviceSwitch:     "#0891b2",
	document.DeviceFirewall:   "#dc2626",
	document.DeviceVPNGateway: "#7c3aed",
}

const selectionColor = "#f59e0b"

// SceneInput is everything a scene graph is built from.
type SceneInput struct {
	Devices     []document.Device
	Shapes      []document.Shape
	Connections []document.Connection
	Paths       []routing.Path
	Selection   selection.Selection
	// Box is the in-progress selection rectangle, if any.
	Box *geom.Rect
	// Visible reports layer visibility. Nil shows every layer.
	Visible func(routing.Layer) bool
}

// BuildSceneGraph lays out every entity into its render layer. Devices use
// their current store positions, so a drag in progress is already visible.
func BuildSceneGraph(in SceneInput) *SceneGraph {
	sg := NewSceneGraph()
	sel := in.Selection

	for _, s := range in.Shapes {
		b := s.Bounds()
		node := &SceneNode{
			ID:          fmt.Sprintf("shape:%d", s.ID),
			Kind:        NodeShape,
			Layer:       routing.ForShape(s.Layer),
			Hit:         selection.Hit{Kind: selection.HitShape, ID: s.ID},
			Fill:        s.FillColor,
			Stroke:      s.StrokeColor,
			StrokeWidth: s.StrokeWidth,
			Bounds:      b,
		}
		if s.Kind == document.ShapeCircle {
			node.Path = generateEllipsePath(b.Center(), b.Width/2, b.Height/2)
		} else {
			node.Path = generateRectPath(b)
		}
		sg.add(node)

		if sel.HasShape(s.ID) {
			sg.add(outlineNode(fmt.Sprintf("outline:shape:%d", s.ID), b))
		}
	}

	deviceBounds := make(map[int]geom.Rect, len(in.Devices))
	for _, d := range in.Devices {
		deviceBounds[d.ID] = d.Bounds()
	}
	kinds := make(map[int]string, len(in.Connections))
	clips := make(map[int][]geom.Rect, len(in.Connections))
	for _, c := range in.Connections {
		kinds[c.ID] = c.Type
		for _, id := range []int{c.SourceID, c.TargetID} {
			if b, ok := deviceBounds[id]; ok {
				clips[c.ID] = append(clips[c.ID], b)
			}
		}
	}
	for _, p := range in.Paths {
		style := routing.LinkStyle(p.Layer)
		stroke := style.Color
		if sel.Connection() == p.ConnectionID {
			stroke = style.SelectedColor
		}
		sg.add(&SceneNode{
			ID:          fmt.Sprintf("connection:%d", p.ConnectionID),
			Kind:        NodeConnection,
			Layer:       routing.ForLink(p.Layer),
			Hit:         selection.Hit{Kind: selection.HitConnection, ID: p.ConnectionID},
			Path:        generatePolylinePath(p.Points),
			Stroke:      stroke,
			StrokeWidth: style.Width,
			Dash:        style.Dash,
			Label:       kinds[p.ConnectionID],
			LabelAt:     midpoint(p.Points),
			Points:      p.Points,
			Clip:        clips[p.ConnectionID],
			Bounds:      p.Bounds(),
		})
	}

	for _, d := range in.Devices {
		b := d.Bounds()
		sg.add(&SceneNode{
			ID:          fmt.Sprintf("device:%d", d.ID),
			Kind:        NodeDevice,
			Layer:       routing.LayerDevices,
			Hit:         selection.Hit{Kind: selection.HitDevice, ID: d.ID},
			Path:        generateRectPath(b),
			Fill:        deviceFill[d.Kind],
			Stroke:      "#1e293b",
			StrokeWidth: 1,
			Label:       d.Name,
			LabelAt:     geom.Pt(b.Center().X, b.Bottom()+14),
			Bounds:      b,
		})

		if !sel.HasDevice(d.ID) {
			continue
		}
		sg.add(outlineNode(fmt.Sprintf("outline:device:%d", d.ID), b))
		for _, port := range d.ConnectionPorts {
			c := d.Position.Add(port.Offset())
			sg.add(handleNode(
				fmt.Sprintf("port:%d:%s", d.ID, port.ID), NodePort, c, portRadius,
				selection.Hit{Kind: selection.HitPort, ID: d.ID, Port: port.ID},
			))
		}
	}

	if id := sel.Connection(); id != 0 {
		for _, c := range in.Connections {
			if c.ID != id {
				continue
			}
			if in.Visible != nil && !in.Visible(routing.ForLink(c.Layer)) {
				break
			}
			for i, w := range c.Waypoints {
				sg.add(handleNode(
					fmt.Sprintf("waypoint:%d:%d", c.ID, i), NodeWaypoint, w, handleRadius,
					selection.Hit{Kind: selection.HitWaypoint, ID: c.ID, Index: i},
				))
			}
		}
	}

	if in.Box != nil {
		sg.add(&SceneNode{
			ID:          "selection-box",
			Kind:        NodeBox,
			Layer:       routing.LayerSelectionOverlay,
			Path:        generateRectPath(*in.Box),
			Fill:        "rgba(59,130,246,0.08)",
			Stroke:      "#3b82f6",
			StrokeWidth: 1,
			Dash:        []float64{4, 2},
			Bounds:      *in.Box,
		})
	}

	return sg
}

func outlineNode(id string, b geom.Rect) *SceneNode {
	r := b.Inset(-outlinePad)
	return &SceneNode{
		ID:          id,
		Kind:        NodeOutline,
		Layer:       routing.LayerSelectionOverlay,
		Path:        generateRectPath(r),
		Stroke:      selectionColor,
		StrokeWidth: 2,
		Dash:        []float64{4, 3},
		Bounds:      r,
	}
}

func handleNode(id string, kind NodeKind, c geom.Point, r float64, hit selection.Hit) *SceneNode {
	return &SceneNode{
		ID:          id,
		Kind:        kind,
		Layer:       routing.LayerSelectionOverlay,
		Hit:         hit,
		Path:        generateEllipsePath(c, r, r),
		Fill:        "#ffffff",
		Stroke:      selectionColor,
		StrokeWidth: 1.5,
		Bounds:      geom.Rect{X: c.X - r, Y: c.Y - r, Width: 2 * r, Height: 2 * r},
	}
}

// generateRectPath generates path commands for a rectangle.
func generateRectPath(r geom.Rect) []PathCommand {
	return []PathCommand{
		{"M", r.X, r.Y},
		{"L", r.Right(), r.Y},
		{"L", r.Right(), r.Bottom()},
		{"L", r.X, r.Bottom()},
		{"Z"},
	}
}

// generateEllipsePath generates path commands for an ellipse using bezier curves.
func generateEllipsePath(c geom.Point, rx, ry float64) []PathCommand {
	// k = 4 * (sqrt(2) - 1) / 3
	k := 0.5522847498
	kx, ky := rx*k, ry*k
	x, y := c.X, c.Y

	return []PathCommand{
		{"M", x + rx, y},
		{"C", x + rx, y + ky, x + kx, y + ry, x, y + ry},
		{"C", x - kx, y + ry, x - rx, y + ky, x - rx, y},
		{"C", x - rx, y - ky, x - kx, y - ry, x, y - ry},
		{"C", x + kx, y - ry, x + rx, y - ky, x + rx, y},
		{"Z"},
	}
}

func generatePolylinePath(pts []geom.Point) []PathCommand {
	out := make([]PathCommand, 0, len(pts))
	for i, p := range pts {
		op := "L"
		if i == 0 {
			op = "M"
		}
		out = append(out, PathCommand{op, p.X, p.Y})
	}
	return out
}

// midpoint returns the point halfway along a polyline.
func midpoint(pts []geom.Point) geom.Point {
	if len(pts) == 0 {
		return geom.Point{}
	}
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += pts[i-1].Dist(pts[i])
	}
	half := total / 2
	for i := 1; i < len(pts); i++ {
		seg := pts[i-1].Dist(pts[i])
		if half <= seg && seg > 0 {
			t := half / seg
			return pts[i-1].Add(pts[i].Sub(pts[i-1]).Mul(t))
		}
		half -= seg
	}
	return pts[len(pts)-1]
}

// toFloat64 converts an interface{} to float64.
func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return math.NaN()
	}
}
