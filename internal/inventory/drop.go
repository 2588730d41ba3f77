package inventory

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
)

var (
	ErrUnknownDrop = errors.New("unknown drop payload type")
	ErrInvalidDrop = errors.New("invalid drop payload")
)

type DropKind string

const (
	DropDeviceTemplate DropKind = "device-template"
	DropNautobotDevice DropKind = "nautobot-device"
	DropSymbol         DropKind = "symbol"
)

// Drop is a decoded palette drop payload.
type Drop interface {
	DropKind() DropKind
}

// TemplateDrop creates a blank device of a kind.
type TemplateDrop struct {
	Kind document.DeviceKind `json:"device_type"`
	Name string              `json:"name"`
}

// NautobotDrop creates a device from an inventory record.
type NautobotDrop struct {
	Device NautobotDevice `json:"device"`
}

// SymbolDrop creates an annotation shape.
type SymbolDrop struct {
	Shape       document.ShapeKind  `json:"shape_type"`
	Width       float64             `json:"width"`
	Height      float64             `json:"height"`
	FillColor   string              `json:"fill_color"`
	StrokeColor string              `json:"stroke_color"`
	StrokeWidth float64             `json:"stroke_width"`
	Layer       document.ShapeLayer `json:"layer"`
}

func (TemplateDrop) DropKind() DropKind { return DropDeviceTemplate }
func (NautobotDrop) DropKind() DropKind { return DropNautobotDevice }
func (SymbolDrop) DropKind() DropKind   { return DropSymbol }

// DecodeDropPayload reads a tagged `{"type": ...}` drop payload.
func DecodeDropPayload(raw []byte) (Drop, error) {
	var envelope struct {
		Type DropKind `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode drop payload: %w", err)
	}

	switch envelope.Type {
	case DropDeviceTemplate:
		var d TemplateDrop
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode device template: %w", err)
		}
		if !d.Kind.Valid() {
			return nil, fmt.Errorf("device template kind %q: %w", d.Kind, ErrInvalidDrop)
		}
		if d.Name == "" {
			d.Name = string(d.Kind)
		}
		return d, nil

	case DropNautobotDevice:
		var d NautobotDrop
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode nautobot device: %w", err)
		}
		if d.Device.ID == "" || d.Device.Name == "" {
			return nil, fmt.Errorf("nautobot device without id or name: %w", ErrInvalidDrop)
		}
		return d, nil

	case DropSymbol:
		d := SymbolDrop{Width: 120, Height: 80, FillColor: "none", StrokeColor: "#64748b", StrokeWidth: 2}
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode symbol: %w", err)
		}
		if !d.Shape.Valid() {
			return nil, fmt.Errorf("symbol shape %q: %w", d.Shape, ErrInvalidDrop)
		}
		if d.Layer == "" {
			d.Layer = document.ShapeLayerBackground
		}
		if !d.Layer.Valid() {
			return nil, fmt.Errorf("symbol layer %q: %w", d.Layer, ErrInvalidDrop)
		}
		return d, nil
	}

	return nil, fmt.Errorf("%q: %w", envelope.Type, ErrUnknownDrop)
}
