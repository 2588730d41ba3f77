// Package store is the single source of truth for the spatial entities on a
// canvas. Every mutation goes through a Store method, bumps the revision
// and notifies the change hook.
//
// Deleting a device cascades to every connection that references it, so no
// sequence of calls can leave a dangling connection.
package store

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
)

type DeviceSpec struct {
	Name            string
	Kind            document.DeviceKind
	Position        geom.Point
	Properties      map[string]any
	ConnectionPorts []document.Port
}

// DevicePatch holds optional device field updates; nil fields are untouched.
type DevicePatch struct {
	Name            *string
	Kind            *document.DeviceKind
	Position        *geom.Point
	Properties      map[string]any
	ConnectionPorts *[]document.Port
}

type ShapeSpec struct {
	Kind        document.ShapeKind
	Position    geom.Point
	Width       float64
	Height      float64
	FillColor   string
	StrokeColor string
	StrokeWidth float64
	Layer       document.ShapeLayer
}

type ShapePatch struct {
	Position    *geom.Point
	Width       *float64
	Height      *float64
	FillColor   *string
	StrokeColor *string
	StrokeWidth *float64
	Layer       *document.ShapeLayer
}

type ConnectionSpec struct {
	SourceID     int
	TargetID     int
	Type         string
	SourcePort   string
	TargetPort   string
	Waypoints    []geom.Point
	RoutingStyle document.RoutingStyle
}

type ConnectionPatch struct {
	Type         *string
	SourcePort   *string
	TargetPort   *string
	RoutingStyle *document.RoutingStyle
	Waypoints    *[]geom.Point
}

// Store holds devices, shapes and connections in insertion order.
type Store struct {
	devices     []document.Device
	shapes      []document.Shape
	connections []document.Connection

	nextDeviceID     int
	nextShapeID      int
	nextConnectionID int

	revision uint64
	onChange func(revision uint64)
}

// New creates an empty store. Ids start at 1 so 0 can mean "none".
func New() *Store {
	return &Store{nextDeviceID: 1, nextShapeID: 1, nextConnectionID: 1}
}

// OnChange registers a hook called after every mutation.
func (s *Store) OnChange(fn func(revision uint64)) {
	s.onChange = fn
}

// Revision increases on every mutation.
func (s *Store) Revision() uint64 { return s.revision }

func (s *Store) changed() {
	s.revision++
	if s.onChange != nil {
		s.onChange(s.revision)
	}
}

// --- Devices ---

func (s *Store) CreateDevice(spec DeviceSpec) (document.Device, error) {
	if !spec.Kind.Valid() {
		return document.Device{}, fmt.Errorf("device kind %q: %w", spec.Kind, document.ErrInvalidKind)
	}

	dev := document.Device{
		ID:              s.nextDeviceID,
		Name:            spec.Name,
		Kind:            spec.Kind,
		Position:        spec.Position,
		Properties:      maps.Clone(spec.Properties),
		ConnectionPorts: slices.Clone(spec.ConnectionPorts),
	}
	if dev.Properties == nil {
		dev.Properties = map[string]any{}
	}

	s.nextDeviceID++
	s.devices = append(s.devices, dev)
	s.changed()
	return dev.Clone(), nil
}

func (s *Store) Device(id int) (document.Device, bool) {
	i := s.deviceIndex(id)
	if i < 0 {
		return document.Device{}, false
	}
	return s.devices[i].Clone(), true
}

func (s *Store) Devices() []document.Device {
	out := make([]document.Device, len(s.devices))
	for i, d := range s.devices {
		out[i] = d.Clone()
	}
	return out
}

func (s *Store) UpdateDevice(id int, patch DevicePatch) (document.Device, error) {
	i := s.deviceIndex(id)
	if i < 0 {
		return document.Device{}, fmt.Errorf("device %d: %w", id, document.ErrUnknownDevice)
	}
	dev := s.devices[i]

	if patch.Kind != nil {
		if !patch.Kind.Valid() {
			return document.Device{}, fmt.Errorf("device kind %q: %w", *patch.Kind, document.ErrInvalidKind)
		}
		dev.Kind = *patch.Kind
	}
	if patch.Name != nil {
		dev.Name = *patch.Name
	}
	if patch.Position != nil {
		dev.Position = *patch.Position
	}
	if patch.Properties != nil {
		dev.Properties = maps.Clone(dev.Properties)
		if dev.Properties == nil {
			dev.Properties = map[string]any{}
		}
		maps.Copy(dev.Properties, patch.Properties)
	}
	portsChanged := false
	if patch.ConnectionPorts != nil {
		dev.ConnectionPorts = slices.Clone(*patch.ConnectionPorts)
		portsChanged = true
	}

	s.devices[i] = dev
	if portsChanged {
		s.detachMissingPorts(dev)
	}
	s.changed()
	return dev.Clone(), nil
}

// MoveDevice sets a device position. It reports false for unknown ids.
func (s *Store) MoveDevice(id int, pos geom.Point) bool {
	i := s.deviceIndex(id)
	if i < 0 {
		return false
	}
	if s.devices[i].Position == pos {
		return true
	}
	s.devices[i].Position = pos
	s.changed()
	return true
}

// MovePort sets a custom port offset on a device.
func (s *Store) MovePort(deviceID int, portID string, offset geom.Point) bool {
	i := s.deviceIndex(deviceID)
	if i < 0 {
		return false
	}
	ports := slices.Clone(s.devices[i].ConnectionPorts)
	for j := range ports {
		if ports[j].ID == portID {
			ports[j].X, ports[j].Y = offset.X, offset.Y
			s.devices[i].ConnectionPorts = ports
			s.changed()
			return true
		}
	}
	return false
}

// DeleteDevice removes a device and every connection attached to it.
func (s *Store) DeleteDevice(id int) bool {
	i := s.deviceIndex(id)
	if i < 0 {
		return false
	}
	s.devices = slices.Delete(s.devices, i, i+1)
	s.connections = slices.DeleteFunc(s.connections, func(c document.Connection) bool {
		return c.Touches(id)
	})
	s.changed()
	return true
}

// FindDeviceByName matches names case-insensitively after trimming.
func (s *Store) FindDeviceByName(name string) (document.Device, bool) {
	want := strings.TrimSpace(name)
	if want == "" {
		return document.Device{}, false
	}
	for _, d := range s.devices {
		if strings.EqualFold(strings.TrimSpace(d.Name), want) {
			return d.Clone(), true
		}
	}
	return document.Device{}, false
}

func (s *Store) FindDeviceByExternalID(externalID string) (document.Device, bool) {
	if externalID == "" {
		return document.Device{}, false
	}
	for _, d := range s.devices {
		if d.ExternalID() == externalID {
			return d.Clone(), true
		}
	}
	return document.Device{}, false
}

func (s *Store) deviceIndex(id int) int {
	return slices.IndexFunc(s.devices, func(d document.Device) bool { return d.ID == id })
}

// detachMissingPorts falls back to the default anchor for connections whose
// port no longer exists on dev.
func (s *Store) detachMissingPorts(dev document.Device) {
	for i := range s.connections {
		c := &s.connections[i]
		if c.SourceID == dev.ID && c.SourcePort != "" {
			if _, ok := dev.Port(c.SourcePort); !ok {
				c.SourcePort = ""
			}
		}
		if c.TargetID == dev.ID && c.TargetPort != "" {
			if _, ok := dev.Port(c.TargetPort); !ok {
				c.TargetPort = ""
			}
		}
	}
}

// --- Shapes ---

func (s *Store) CreateShape(spec ShapeSpec) (document.Shape, error) {
	if !spec.Kind.Valid() {
		return document.Shape{}, fmt.Errorf("shape kind %q: %w", spec.Kind, document.ErrInvalidKind)
	}
	if spec.Width <= 0 || spec.Height <= 0 {
		return document.Shape{}, document.ErrInvalidSize
	}
	layer := spec.Layer
	if layer == "" {
		layer = document.ShapeLayerBackground
	}
	if !layer.Valid() {
		return document.Shape{}, fmt.Errorf("shape layer %q: %w", layer, document.ErrInvalidKind)
	}

	shape := document.Shape{
		ID:          s.nextShapeID,
		Kind:        spec.Kind,
		Position:    spec.Position,
		Width:       spec.Width,
		Height:      spec.Height,
		FillColor:   spec.FillColor,
		StrokeColor: spec.StrokeColor,
		StrokeWidth: spec.StrokeWidth,
		Layer:       layer,
	}
	s.nextShapeID++
	s.shapes = append(s.shapes, shape)
	s.changed()
	return shape, nil
}

func (s *Store) Shape(id int) (document.Shape, bool) {
	i := s.shapeIndex(id)
	if i < 0 {
		return document.Shape{}, false
	}
	return s.shapes[i], true
}

func (s *Store) Shapes() []document.Shape {
	return slices.Clone(s.shapes)
}

func (s *Store) UpdateShape(id int, patch ShapePatch) (document.Shape, error) {
	i := s.shapeIndex(id)
	if i < 0 {
		return document.Shape{}, fmt.Errorf("shape %d not found", id)
	}
	shape := s.shapes[i]

	if patch.Width != nil {
		shape.Width = *patch.Width
	}
	if patch.Height != nil {
		shape.Height = *patch.Height
	}
	if shape.Width <= 0 || shape.Height <= 0 {
		return document.Shape{}, document.ErrInvalidSize
	}
	if patch.Position != nil {
		shape.Position = *patch.Position
	}
	if patch.FillColor != nil {
		shape.FillColor = *patch.FillColor
	}
	if patch.StrokeColor != nil {
		shape.StrokeColor = *patch.StrokeColor
	}
	if patch.StrokeWidth != nil {
		shape.StrokeWidth = *patch.StrokeWidth
	}
	if patch.Layer != nil {
		if !patch.Layer.Valid() {
			return document.Shape{}, fmt.Errorf("shape layer %q: %w", *patch.Layer, document.ErrInvalidKind)
		}
		shape.Layer = *patch.Layer
	}

	s.shapes[i] = shape
	s.changed()
	return shape, nil
}

func (s *Store) MoveShape(id int, pos geom.Point) bool {
	i := s.shapeIndex(id)
	if i < 0 {
		return false
	}
	if s.shapes[i].Position == pos {
		return true
	}
	s.shapes[i].Position = pos
	s.changed()
	return true
}

func (s *Store) DeleteShape(id int) bool {
	i := s.shapeIndex(id)
	if i < 0 {
		return false
	}
	s.shapes = slices.Delete(s.shapes, i, i+1)
	s.changed()
	return true
}

func (s *Store) shapeIndex(id int) int {
	return slices.IndexFunc(s.shapes, func(sh document.Shape) bool { return sh.ID == id })
}

// --- Connections ---

func (s *Store) CreateConnection(spec ConnectionSpec) (document.Connection, error) {
	style := spec.RoutingStyle
	if style == "" {
		style = document.RoutingStraight
	}
	if !style.Valid() {
		return document.Connection{}, fmt.Errorf("routing style %q: %w", style, document.ErrInvalidKind)
	}
	conn := document.Connection{
		ID:           s.nextConnectionID,
		SourceID:     spec.SourceID,
		TargetID:     spec.TargetID,
		Type:         spec.Type,
		SourcePort:   spec.SourcePort,
		TargetPort:   spec.TargetPort,
		Layer:        document.ClassifyLinkType(spec.Type),
		Waypoints:    slices.Clone(spec.Waypoints),
		RoutingStyle: style,
	}
	if err := document.ValidateEndpoints(conn, s.deviceByID); err != nil {
		return document.Connection{}, err
	}

	s.nextConnectionID++
	s.connections = append(s.connections, conn)
	s.changed()
	return conn.Clone(), nil
}

func (s *Store) Connection(id int) (document.Connection, bool) {
	i := s.connectionIndex(id)
	if i < 0 {
		return document.Connection{}, false
	}
	return s.connections[i].Clone(), true
}

func (s *Store) Connections() []document.Connection {
	out := make([]document.Connection, len(s.connections))
	for i, c := range s.connections {
		out[i] = c.Clone()
	}
	return out
}

// ConnectionsFor returns the connections touching deviceID.
func (s *Store) ConnectionsFor(deviceID int) []document.Connection {
	var out []document.Connection
	for _, c := range s.connections {
		if c.Touches(deviceID) {
			out = append(out, c.Clone())
		}
	}
	return out
}

// ConnectionBetween finds a connection joining a and b in either direction.
func (s *Store) ConnectionBetween(a, b int) (document.Connection, bool) {
	for _, c := range s.connections {
		if (c.SourceID == a && c.TargetID == b) || (c.SourceID == b && c.TargetID == a) {
			return c.Clone(), true
		}
	}
	return document.Connection{}, false
}

func (s *Store) UpdateConnection(id int, patch ConnectionPatch) (document.Connection, error) {
	i := s.connectionIndex(id)
	if i < 0 {
		return document.Connection{}, fmt.Errorf("connection %d not found", id)
	}
	conn := s.connections[i].Clone()

	if patch.Type != nil {
		conn.Type = *patch.Type
		conn.Layer = document.ClassifyLinkType(conn.Type)
	}
	if patch.SourcePort != nil {
		conn.SourcePort = *patch.SourcePort
	}
	if patch.TargetPort != nil {
		conn.TargetPort = *patch.TargetPort
	}
	if patch.RoutingStyle != nil {
		if !patch.RoutingStyle.Valid() {
			return document.Connection{}, fmt.Errorf("routing style %q: %w", *patch.RoutingStyle, document.ErrInvalidKind)
		}
		conn.RoutingStyle = *patch.RoutingStyle
	}
	if patch.Waypoints != nil {
		conn.Waypoints = slices.Clone(*patch.Waypoints)
	}
	if err := document.ValidateEndpoints(conn, s.deviceByID); err != nil {
		return document.Connection{}, err
	}

	s.connections[i] = conn
	s.changed()
	return conn.Clone(), nil
}

// InsertWaypoint inserts p at index (clamped) in the connection's waypoints.
func (s *Store) InsertWaypoint(connID, index int, p geom.Point) bool {
	i := s.connectionIndex(connID)
	if i < 0 {
		return false
	}
	wps := s.connections[i].Waypoints
	index = max(0, min(index, len(wps)))
	s.connections[i].Waypoints = slices.Insert(slices.Clone(wps), index, p)
	s.changed()
	return true
}

func (s *Store) MoveWaypoint(connID, index int, p geom.Point) bool {
	i := s.connectionIndex(connID)
	if i < 0 || index < 0 || index >= len(s.connections[i].Waypoints) {
		return false
	}
	wps := slices.Clone(s.connections[i].Waypoints)
	wps[index] = p
	s.connections[i].Waypoints = wps
	s.changed()
	return true
}

func (s *Store) DeleteWaypoint(connID, index int) bool {
	i := s.connectionIndex(connID)
	if i < 0 || index < 0 || index >= len(s.connections[i].Waypoints) {
		return false
	}
	s.connections[i].Waypoints = slices.Delete(slices.Clone(s.connections[i].Waypoints), index, index+1)
	s.changed()
	return true
}

func (s *Store) DeleteConnection(id int) bool {
	i := s.connectionIndex(id)
	if i < 0 {
		return false
	}
	s.connections = slices.Delete(s.connections, i, i+1)
	s.changed()
	return true
}

func (s *Store) connectionIndex(id int) int {
	return slices.IndexFunc(s.connections, func(c document.Connection) bool { return c.ID == id })
}

func (s *Store) deviceByID(id int) (document.Device, bool) {
	i := s.deviceIndex(id)
	if i < 0 {
		return document.Device{}, false
	}
	return s.devices[i], true
}

// --- Whole scene ---

// Empty reports whether the store holds no entities.
func (s *Store) Empty() bool {
	return len(s.devices) == 0 && len(s.shapes) == 0 && len(s.connections) == 0
}

// Clear empties all three collections at once.
func (s *Store) Clear() {
	s.devices = nil
	s.shapes = nil
	s.connections = nil
	s.nextDeviceID, s.nextShapeID, s.nextConnectionID = 1, 1, 1
	s.changed()
}

// Snapshot returns a deep copy of the scene as a document payload.
func (s *Store) Snapshot() document.CanvasData {
	return document.CanvasData{
		Devices:     s.Devices(),
		Connections: s.Connections(),
		Shapes:      s.Shapes(),
	}.Clone()
}

// Replace swaps in a validated payload wholesale. On error the store is
// left untouched.
func (s *Store) Replace(data document.CanvasData) error {
	data = data.Clone()
	data.Normalize()
	if err := data.Validate(); err != nil {
		return fmt.Errorf("replace scene: %w", err)
	}

	s.devices = data.Devices
	s.shapes = data.Shapes
	s.connections = data.Connections
	s.nextDeviceID, s.nextShapeID, s.nextConnectionID = 1, 1, 1
	for i, d := range s.devices {
		s.nextDeviceID = max(s.nextDeviceID, d.ID+1)
		if d.Properties == nil {
			s.devices[i].Properties = map[string]any{}
		}
	}
	for _, sh := range s.shapes {
		s.nextShapeID = max(s.nextShapeID, sh.ID+1)
	}
	for _, c := range s.connections {
		s.nextConnectionID = max(s.nextConnectionID, c.ID+1)
	}
	s.changed()
	return nil
}
