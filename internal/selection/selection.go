// Package selection tracks which canvas entities are selected and runs the
// pointer gesture state machine: panning, box selection and the three drag
// kinds.
package selection

import (
	"maps"
	"slices"
)

// Selection is the set of selected entities. Devices and shapes may be
// multi-selected; at most one connection is selected at a time.
type Selection struct {
	primary    int
	devices    map[int]struct{}
	shapes     map[int]struct{}
	connection int
}

func newSelection() Selection {
	return Selection{devices: map[int]struct{}{}, shapes: map[int]struct{}{}}
}

func (s Selection) HasDevice(id int) bool {
	_, ok := s.devices[id]
	return ok
}

func (s Selection) HasShape(id int) bool {
	_, ok := s.shapes[id]
	return ok
}

// Primary is the most recently selected device, or 0.
func (s Selection) Primary() int { return s.primary }

// Connection is the selected connection id, or 0.
func (s Selection) Connection() int { return s.connection }

// DeviceIDs returns selected device ids in ascending order.
func (s Selection) DeviceIDs() []int {
	return slices.Sorted(maps.Keys(s.devices))
}

// ShapeIDs returns selected shape ids in ascending order.
func (s Selection) ShapeIDs() []int {
	return slices.Sorted(maps.Keys(s.shapes))
}

// Len counts selected devices and shapes. The connection is not counted.
func (s Selection) Len() int {
	return len(s.devices) + len(s.shapes)
}

// IsMulti reports whether more than one device or shape is selected.
func (s Selection) IsMulti() bool { return s.Len() > 1 }

func (s Selection) IsEmpty() bool {
	return s.Len() == 0 && s.connection == 0
}

func (s *Selection) clear() {
	s.primary = 0
	s.connection = 0
	clear(s.devices)
	clear(s.shapes)
}

func (s *Selection) addDevice(id int) {
	s.devices[id] = struct{}{}
	s.primary = id
	s.connection = 0
}

func (s *Selection) addShape(id int) {
	s.shapes[id] = struct{}{}
	s.connection = 0
}

func (s *Selection) removeDevice(id int) {
	delete(s.devices, id)
	if s.primary == id {
		s.primary = 0
		for other := range s.devices {
			s.primary = max(s.primary, other)
		}
	}
}

func (s Selection) clone() Selection {
	out := s
	out.devices = maps.Clone(s.devices)
	out.shapes = maps.Clone(s.shapes)
	return out
}

// Snapshot is the serializable form of a Selection.
type Snapshot struct {
	Primary    int   `json:"primary_device,omitempty"`
	Devices    []int `json:"devices"`
	Shapes     []int `json:"shapes"`
	Connection int   `json:"connection,omitempty"`
}

func (s Selection) Snapshot() Snapshot {
	return Snapshot{
		Primary:    s.primary,
		Devices:    s.DeviceIDs(),
		Shapes:     s.ShapeIDs(),
		Connection: s.connection,
	}
}
