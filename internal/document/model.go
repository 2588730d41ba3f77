package document

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
)

// DeviceSize is the edge length of the square device glyph in world units.
const DeviceSize = 60.0

var (
	ErrSelfLoop      = errors.New("connection source and target are the same device")
	ErrUnknownDevice = errors.New("device not found")
	ErrUnknownPort   = errors.New("port not found on device")
	ErrInvalidSize   = errors.New("shape width and height must be positive")
	ErrInvalidKind   = errors.New("invalid kind")
	ErrDuplicateID   = errors.New("duplicate id")
)

type DeviceKind string

const (
	DeviceRouter     DeviceKind = "router"
	DeviceSwitch     DeviceKind = "switch"
	DeviceFirewall   DeviceKind = "firewall"
	DeviceVPNGateway DeviceKind = "vpn_gateway"
)

func (k DeviceKind) Valid() bool {
	switch k {
	case DeviceRouter, DeviceSwitch, DeviceFirewall, DeviceVPNGateway:
		return true
	}
	return false
}

// Port is a named device-relative anchor for connections.
type Port struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label,omitempty"`
}

// Offset returns the port position relative to the device origin.
func (p Port) Offset() geom.Point { return geom.Point{X: p.X, Y: p.Y} }

// PropExternalID is the property key holding the inventory back-reference.
const PropExternalID = "nautobot_id"

type Device struct {
	ID              int            `json:"id"`
	Name            string         `json:"name"`
	Kind            DeviceKind     `json:"device_type"`
	Position        geom.Point     `json:"position"`
	Properties      map[string]any `json:"properties"`
	ConnectionPorts []Port         `json:"connection_ports,omitempty"`
}

// Bounds returns the glyph rectangle in world space.
func (d Device) Bounds() geom.Rect {
	return geom.Rect{X: d.Position.X, Y: d.Position.Y, Width: DeviceSize, Height: DeviceSize}
}

// Center returns the center of the glyph.
func (d Device) Center() geom.Point {
	return d.Bounds().Center()
}

// Port looks up a custom connection port by id.
func (d Device) Port(id string) (Port, bool) {
	for _, p := range d.ConnectionPorts {
		if p.ID == id {
			return p, true
		}
	}
	return Port{}, false
}

// ExternalID returns the inventory back-reference, or "" if there is none.
func (d Device) ExternalID() string {
	v, ok := d.Properties[PropExternalID]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Clone returns a deep copy of the device.
func (d Device) Clone() Device {
	d.Properties = maps.Clone(d.Properties)
	d.ConnectionPorts = slices.Clone(d.ConnectionPorts)
	return d
}

type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
)

func (k ShapeKind) Valid() bool {
	return k == ShapeRectangle || k == ShapeCircle
}

type ShapeLayer string

const (
	ShapeLayerBackground ShapeLayer = "background"
	ShapeLayerDevice     ShapeLayer = "device"
)

func (l ShapeLayer) Valid() bool {
	return l == ShapeLayerBackground || l == ShapeLayerDevice
}

type Shape struct {
	ID          int        `json:"id"`
	Kind        ShapeKind  `json:"shape_type"`
	Position    geom.Point `json:"position"`
	Width       float64    `json:"width"`
	Height      float64    `json:"height"`
	FillColor   string     `json:"fill_color"`
	StrokeColor string     `json:"stroke_color"`
	StrokeWidth float64    `json:"stroke_width"`
	Layer       ShapeLayer `json:"layer"`
}

// Bounds returns the shape's axis-aligned box in world space. Circles are
// stored by their bounding box too.
func (s Shape) Bounds() geom.Rect {
	return geom.Rect{X: s.Position.X, Y: s.Position.Y, Width: s.Width, Height: s.Height}
}

type LinkLayer string

const (
	LinkLayer2 LinkLayer = "layer2"
	LinkLayer3 LinkLayer = "layer3"
)

type RoutingStyle string

const (
	RoutingStraight   RoutingStyle = "straight"
	RoutingOrthogonal RoutingStyle = "orthogonal"
)

func (r RoutingStyle) Valid() bool {
	return r == RoutingStraight || r == RoutingOrthogonal
}

type Connection struct {
	ID           int          `json:"id"`
	SourceID     int          `json:"source_device_id"`
	TargetID     int          `json:"target_device_id"`
	Type         string       `json:"connection_type"`
	SourcePort   string       `json:"source_port,omitempty"`
	TargetPort   string       `json:"target_port,omitempty"`
	Layer        LinkLayer    `json:"layer"`
	Waypoints    []geom.Point `json:"waypoints,omitempty"`
	RoutingStyle RoutingStyle `json:"routing_style"`
}

// Touches reports whether the connection has deviceID as an endpoint.
func (c Connection) Touches(deviceID int) bool {
	return c.SourceID == deviceID || c.TargetID == deviceID
}

// Clone returns a deep copy of the connection.
func (c Connection) Clone() Connection {
	c.Waypoints = slices.Clone(c.Waypoints)
	return c
}

// layer3Markers are substrings of connection types that imply routed/IP
// semantics. Anything else (ethernet, trunk, lldp/cdp-discovered, lag) is
// treated as a switching link.
var layer3Markers = []string{
	"layer3", "l3", "routed", "route", "ip", "bgp", "ospf", "isis", "eigrp",
	"vpn", "ipsec", "gre", "tunnel", "mpls", "wan",
}

// ClassifyLinkType derives the render layer from a free-text type tag.
func ClassifyLinkType(connType string) LinkLayer {
	t := strings.ToLower(strings.TrimSpace(connType))
	if t == "" {
		return LinkLayer2
	}

	tokens := strings.FieldsFunc(t, func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '/' || r == '.'
	})
	for _, tok := range tokens {
		for _, m := range layer3Markers {
			if tok == m || (len(m) > 3 && strings.HasPrefix(tok, m)) {
				return LinkLayer3
			}
		}
	}
	return LinkLayer2
}
