package routing

import "github.com/nerdfunk-net/noc-canvas-sub000/internal/document"

// Layer is a named render layer. Renderers draw layers in RenderOrder.
type Layer int

const (
	LayerBackgroundShapes Layer = iota
	LayerL2Links
	LayerDevices
	LayerDeviceShapes
	LayerL3Links
	LayerSelectionOverlay
)

// RenderOrder is the bottom-to-top drawing order.
var RenderOrder = []Layer{
	LayerBackgroundShapes,
	LayerL2Links,
	LayerDevices,
	LayerDeviceShapes,
	LayerL3Links,
	LayerSelectionOverlay,
}

func (l Layer) String() string {
	switch l {
	case LayerBackgroundShapes:
		return "background-shapes"
	case LayerL2Links:
		return "layer2-links"
	case LayerDevices:
		return "devices"
	case LayerDeviceShapes:
		return "device-shapes"
	case LayerL3Links:
		return "layer3-links"
	case LayerSelectionOverlay:
		return "selection-overlay"
	}
	return "unknown"
}

// ParseLayer is the inverse of Layer.String.
func ParseLayer(s string) (Layer, bool) {
	for _, l := range RenderOrder {
		if l.String() == s {
			return l, true
		}
	}
	return 0, false
}

// ForLink returns the render layer of a connection layer.
func ForLink(l document.LinkLayer) Layer {
	if l == document.LinkLayer3 {
		return LayerL3Links
	}
	return LayerL2Links
}

// ForShape returns the render layer of a shape layer.
func ForShape(l document.ShapeLayer) Layer {
	if l == document.ShapeLayerDevice {
		return LayerDeviceShapes
	}
	return LayerBackgroundShapes
}

// Style is the default stroke styling for a link layer.
type Style struct {
	Color         string    `json:"color"`
	SelectedColor string    `json:"selected_color"`
	Width         float64   `json:"width"`
	Dash          []float64 `json:"dash,omitempty"`
}

func LinkStyle(l document.LinkLayer) Style {
	if l == document.LinkLayer3 {
		return Style{Color: "#2f7d32", SelectedColor: "#f59e0b", Width: 2, Dash: []float64{6, 4}}
	}
	return Style{Color: "#4a5568", SelectedColor: "#3b82f6", Width: 2}
}
