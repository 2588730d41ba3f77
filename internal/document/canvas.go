package document

import (
	"fmt"
	"slices"
)

// CanvasData is the persisted scene payload. Ids are local to the payload.
type CanvasData struct {
	Devices     []Device     `json:"devices"`
	Connections []Connection `json:"connections"`
	Shapes      []Shape      `json:"shapes"`
}

// Canvas is a named, stored CanvasData snapshot.
type Canvas struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Sharable   bool       `json:"sharable"`
	IsOwn      bool       `json:"is_own"`
	CreatedAt  string     `json:"created_at,omitempty"`
	UpdatedAt  string     `json:"updated_at,omitempty"`
	CanvasData CanvasData `json:"canvas_data"`
}

// CanvasSummary is a list entry without the scene payload.
type CanvasSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Sharable  bool   `json:"sharable"`
	IsOwn     bool   `json:"is_own"`
	UpdatedAt string `json:"updated_at"`
}

func (c Canvas) Summary() CanvasSummary {
	return CanvasSummary{ID: c.ID, Name: c.Name, Sharable: c.Sharable, IsOwn: c.IsOwn, UpdatedAt: c.UpdatedAt}
}

// Empty reports whether the payload contains no entities.
func (d CanvasData) Empty() bool {
	return len(d.Devices) == 0 && len(d.Connections) == 0 && len(d.Shapes) == 0
}

// Clone returns a deep copy.
func (d CanvasData) Clone() CanvasData {
	out := CanvasData{
		Devices:     make([]Device, len(d.Devices)),
		Connections: make([]Connection, len(d.Connections)),
		Shapes:      slices.Clone(d.Shapes),
	}
	for i, dev := range d.Devices {
		out.Devices[i] = dev.Clone()
	}
	for i, c := range d.Connections {
		out.Connections[i] = c.Clone()
	}
	if out.Shapes == nil {
		out.Shapes = []Shape{}
	}
	return out
}

// Normalize fills derived fields that older payloads may omit: connection
// layer and routing style, nil slices.
func (d *CanvasData) Normalize() {
	if d.Devices == nil {
		d.Devices = []Device{}
	}
	if d.Connections == nil {
		d.Connections = []Connection{}
	}
	if d.Shapes == nil {
		d.Shapes = []Shape{}
	}
	for i := range d.Connections {
		c := &d.Connections[i]
		if c.Layer == "" {
			c.Layer = ClassifyLinkType(c.Type)
		}
		if c.RoutingStyle == "" {
			c.RoutingStyle = RoutingStraight
		}
	}
	for i := range d.Shapes {
		if d.Shapes[i].Layer == "" {
			d.Shapes[i].Layer = ShapeLayerBackground
		}
	}
}

// Validate checks the referential invariants of a payload. Empty routing
// styles and shape layers are allowed; Normalize fills them.
func (d CanvasData) Validate() error {
	devices := make(map[int]Device, len(d.Devices))
	for _, dev := range d.Devices {
		if _, dup := devices[dev.ID]; dup {
			return fmt.Errorf("device %d: %w", dev.ID, ErrDuplicateID)
		}
		if !dev.Kind.Valid() {
			return fmt.Errorf("device %d kind %q: %w", dev.ID, dev.Kind, ErrInvalidKind)
		}
		devices[dev.ID] = dev
	}

	shapes := make(map[int]struct{}, len(d.Shapes))
	for _, s := range d.Shapes {
		if _, dup := shapes[s.ID]; dup {
			return fmt.Errorf("shape %d: %w", s.ID, ErrDuplicateID)
		}
		shapes[s.ID] = struct{}{}
		if !s.Kind.Valid() {
			return fmt.Errorf("shape %d kind %q: %w", s.ID, s.Kind, ErrInvalidKind)
		}
		if s.Layer != "" && !s.Layer.Valid() {
			return fmt.Errorf("shape %d layer %q: %w", s.ID, s.Layer, ErrInvalidKind)
		}
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Errorf("shape %d: %w", s.ID, ErrInvalidSize)
		}
	}

	conns := make(map[int]struct{}, len(d.Connections))
	for _, c := range d.Connections {
		if _, dup := conns[c.ID]; dup {
			return fmt.Errorf("connection %d: %w", c.ID, ErrDuplicateID)
		}
		conns[c.ID] = struct{}{}
		if c.RoutingStyle != "" && !c.RoutingStyle.Valid() {
			return fmt.Errorf("connection %d routing style %q: %w", c.ID, c.RoutingStyle, ErrInvalidKind)
		}
		if err := ValidateEndpoints(c, func(id int) (Device, bool) {
			dev, ok := devices[id]
			return dev, ok
		}); err != nil {
			return fmt.Errorf("connection %d: %w", c.ID, err)
		}
	}

	return nil
}

// ValidateEndpoints checks that a connection's devices and ports exist.
func ValidateEndpoints(c Connection, lookup func(int) (Device, bool)) error {
	if c.SourceID == c.TargetID {
		return ErrSelfLoop
	}

	src, ok := lookup(c.SourceID)
	if !ok {
		return fmt.Errorf("source %d: %w", c.SourceID, ErrUnknownDevice)
	}
	dst, ok := lookup(c.TargetID)
	if !ok {
		return fmt.Errorf("target %d: %w", c.TargetID, ErrUnknownDevice)
	}

	if c.SourcePort != "" {
		if _, ok := src.Port(c.SourcePort); !ok {
			return fmt.Errorf("source port %q: %w", c.SourcePort, ErrUnknownPort)
		}
	}
	if c.TargetPort != "" {
		if _, ok := dst.Port(c.TargetPort); !ok {
			return fmt.Errorf("target port %q: %w", c.TargetPort, ErrUnknownPort)
		}
	}
	return nil
}
