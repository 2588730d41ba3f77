package engine

import (
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/routing"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/selection"
)

// SceneGraph is the render-ready state of the canvas, grouped by render
// layer. It is rebuilt from the store on every render.
type SceneGraph struct {
	Layers    map[routing.Layer][]*SceneNode
	NodesById map[string]*SceneNode
}

type NodeKind string

const (
	NodeDevice     NodeKind = "device"
	NodeShape      NodeKind = "shape"
	NodeConnection NodeKind = "connection"
	NodeWaypoint   NodeKind = "waypoint"
	NodePort       NodeKind = "port"
	NodeOutline    NodeKind = "outline"
	NodeBox        NodeKind = "box"
)

// SceneNode is one drawable with everything resolved to world space.
type SceneNode struct {
	ID    string
	Kind  NodeKind
	Layer routing.Layer

	// Hit is what a pointer over this node refers to. Kind HitNone means
	// the node is decoration only.
	Hit selection.Hit

	Path        []PathCommand
	Fill        string
	Stroke      string
	StrokeWidth float64
	Dash        []float64

	Label   string
	LabelAt geom.Point

	// Points is the polyline of connection nodes, used for hit testing.
	Points []geom.Point
	// Clip holds the endpoint device boxes of a connection. Hits inside
	// them belong to the device.
	Clip []geom.Rect

	// Hit testing
	Bounds geom.Rect
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["C", x1, y1, x2, y2, x, y], etc.
type PathCommand []any

func NewSceneGraph() *SceneGraph {
	return &SceneGraph{
		Layers:    make(map[routing.Layer][]*SceneNode),
		NodesById: make(map[string]*SceneNode),
	}
}

func (sg *SceneGraph) add(n *SceneNode) {
	sg.Layers[n.Layer] = append(sg.Layers[n.Layer], n)
	if n.ID != "" {
		sg.NodesById[n.ID] = n
	}
}

// ContentBounds returns the union of device, shape and link bounds.
func (sg *SceneGraph) ContentBounds() geom.Rect {
	var r geom.Rect
	for _, nodes := range sg.Layers {
		for _, n := range nodes {
			switch n.Kind {
			case NodeDevice, NodeShape, NodeConnection:
				r = r.Union(n.Bounds)
			}
		}
	}
	return r
}
