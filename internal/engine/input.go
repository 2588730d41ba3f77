package engine

import (
	"encoding/json"
	"fmt"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/store"
)

// JSON command inputs for hosts that talk to the engine in strings, such as
// the browser bridge. Field names follow the persisted canvas format.

type ShapeInput struct {
	Kind        document.ShapeKind  `json:"shape_type"`
	Position    geom.Point          `json:"position"`
	Width       float64             `json:"width"`
	Height      float64             `json:"height"`
	FillColor   string              `json:"fill_color"`
	StrokeColor string              `json:"stroke_color"`
	StrokeWidth float64             `json:"stroke_width"`
	Layer       document.ShapeLayer `json:"layer"`
}

type ShapeUpdate struct {
	Position    *geom.Point          `json:"position"`
	Width       *float64             `json:"width"`
	Height      *float64             `json:"height"`
	FillColor   *string              `json:"fill_color"`
	StrokeColor *string              `json:"stroke_color"`
	StrokeWidth *float64             `json:"stroke_width"`
	Layer       *document.ShapeLayer `json:"layer"`
}

type DeviceUpdate struct {
	Name       *string              `json:"name"`
	Kind       *document.DeviceKind `json:"device_type"`
	Position   *geom.Point          `json:"position"`
	Properties map[string]any       `json:"properties"`
}

// AddShapeJSON creates a shape from a ShapeInput document.
func (e *Engine) AddShapeJSON(data string) (document.Shape, error) {
	var in ShapeInput
	if err := json.Unmarshal([]byte(data), &in); err != nil {
		return document.Shape{}, fmt.Errorf("decode shape: %w", err)
	}
	return e.AddShape(store.ShapeSpec{
		Kind:        in.Kind,
		Position:    in.Position,
		Width:       in.Width,
		Height:      in.Height,
		FillColor:   in.FillColor,
		StrokeColor: in.StrokeColor,
		StrokeWidth: in.StrokeWidth,
		Layer:       in.Layer,
	})
}

// UpdateShapeJSON applies a ShapeUpdate. Absent fields are left unchanged.
func (e *Engine) UpdateShapeJSON(id int, data string) (document.Shape, error) {
	var in ShapeUpdate
	if err := json.Unmarshal([]byte(data), &in); err != nil {
		return document.Shape{}, fmt.Errorf("decode shape update: %w", err)
	}
	return e.UpdateShape(id, store.ShapePatch{
		Position:    in.Position,
		Width:       in.Width,
		Height:      in.Height,
		FillColor:   in.FillColor,
		StrokeColor: in.StrokeColor,
		StrokeWidth: in.StrokeWidth,
		Layer:       in.Layer,
	})
}

// UpdateDeviceJSON applies a DeviceUpdate. Properties are merged into the
// existing map.
func (e *Engine) UpdateDeviceJSON(id int, data string) (document.Device, error) {
	var in DeviceUpdate
	if err := json.Unmarshal([]byte(data), &in); err != nil {
		return document.Device{}, fmt.Errorf("decode device update: %w", err)
	}
	return e.UpdateDevice(id, store.DevicePatch{
		Name:       in.Name,
		Kind:       in.Kind,
		Position:   in.Position,
		Properties: in.Properties,
	})
}

// AddPortJSON adds a port given as {"id", "x", "y", "label"}.
func (e *Engine) AddPortJSON(deviceID int, data string) (document.Port, error) {
	var p document.Port
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return document.Port{}, fmt.Errorf("decode port: %w", err)
	}
	if err := e.AddPort(deviceID, p); err != nil {
		return document.Port{}, err
	}
	return p, nil
}
