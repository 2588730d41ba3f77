package engine

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/routing"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/selection"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// Paths are in world space; Transform maps them onto the screen.
type DrawCommand struct {
	Op          string        `json:"op"`                    // "path" or "text"
	ObjectID    string        `json:"objectId,omitempty"`    // For hit correlation
	Layer       string        `json:"layer"`                 // Render layer name
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand `json:"path,omitempty"`        // Path data for "path" ops
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width
	Dash        []float64     `json:"dash,omitempty"`        // Line dash pattern
	Text        string        `json:"text,omitempty"`        // Label for "text" ops
	X           float64       `json:"x,omitempty"`
	Y           float64       `json:"y,omitempty"`
}

// CompileDrawCommands generates a draw command buffer from a scene graph.
// Commands follow routing.RenderOrder, skipping hidden layers.
func CompileDrawCommands(sg *SceneGraph, visible func(routing.Layer) bool, view geom.Matrix2D) []DrawCommand {
	if sg == nil {
		return nil
	}

	transform := view.ToSlice()
	var commands []DrawCommand
	for _, layer := range routing.RenderOrder {
		if visible != nil && !visible(layer) {
			continue
		}
		for _, node := range sg.Layers[layer] {
			commands = append(commands, DrawCommand{
				Op:          "path",
				ObjectID:    node.ID,
				Layer:       layer.String(),
				Transform:   transform,
				Path:        node.Path,
				Fill:        node.Fill,
				Stroke:      node.Stroke,
				StrokeWidth: node.StrokeWidth,
				Dash:        node.Dash,
			})
			if node.Label != "" {
				commands = append(commands, DrawCommand{
					Op:        "text",
					ObjectID:  node.ID,
					Layer:     layer.String(),
					Transform: transform,
					Text:      node.Label,
					X:         node.LabelAt.X,
					Y:         node.LabelAt.Y,
				})
			}
		}
	}
	return commands
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		return "[]", nil
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// HitTest returns the topmost hittable node at a world point. Layers are
// tested top to bottom and nodes within a layer in reverse draw order.
// tolerance is the world-space slop for thin targets such as links.
func HitTest(sg *SceneGraph, p geom.Point, tolerance float64, visible func(routing.Layer) bool) selection.Hit {
	if sg == nil {
		return selection.Hit{}
	}

	for i := len(routing.RenderOrder) - 1; i >= 0; i-- {
		layer := routing.RenderOrder[i]
		if visible != nil && !visible(layer) {
			continue
		}
		nodes := sg.Layers[layer]
		for j := len(nodes) - 1; j >= 0; j-- {
			if hitNode(nodes[j], p, tolerance) {
				return nodes[j].Hit
			}
		}
	}
	return selection.Hit{}
}

func hitNode(n *SceneNode, p geom.Point, tolerance float64) bool {
	switch n.Kind {
	case NodeDevice, NodeShape:
		return n.Bounds.Contains(p)
	case NodeConnection:
		for _, r := range n.Clip {
			if r.Contains(p) {
				return false
			}
		}
		return len(n.Points) > 0 && routing.DistanceToPath(n.Points, p) <= tolerance
	case NodeWaypoint, NodePort:
		return n.Bounds.Inset(-tolerance).Contains(p)
	}
	return false
}

// PathData renders path commands as an SVG path "d" attribute.
func PathData(path []PathCommand) string {
	var b strings.Builder
	for _, cmd := range path {
		if len(cmd) == 0 {
			continue
		}
		op, ok := cmd[0].(string)
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(op)
		for _, v := range cmd[1:] {
			b.WriteByte(' ')
			b.WriteString(strconv.FormatFloat(toFloat64(v), 'f', -1, 64))
		}
	}
	return b.String()
}

// RectToJSON serializes a Rect to JSON.
func RectToJSON(r geom.Rect) string {
	data, _ := json.Marshal(r)
	return string(data)
}
