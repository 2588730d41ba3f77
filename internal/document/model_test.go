package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
)

func TestClassifyLinkType(t *testing.T) {
	cases := map[string]LinkLayer{
		"ethernet":     LinkLayer2,
		"trunk":        LinkLayer2,
		"lldp":         LinkLayer2,
		"cdp-neighbor": LinkLayer2,
		"":             LinkLayer2,
		"bgp":          LinkLayer3,
		"OSPF":         LinkLayer3,
		"ipsec":        LinkLayer3,
		"routed link":  LinkLayer3,
		"l3":           LinkLayer3,
		"gre-tunnel":   LinkLayer3,
	}
	for in, want := range cases {
		assert.Equal(t, want, ClassifyLinkType(in), "type %q", in)
	}
}

func TestSampleCanvasIsValid(t *testing.T) {
	data := NewSampleCanvas()
	require.NoError(t, data.Validate())
	assert.Len(t, data.Devices, 5)
	assert.Len(t, data.Connections, 5)
	assert.Len(t, data.Shapes, 2)
}

func TestValidate(t *testing.T) {
	base := func() CanvasData {
		return CanvasData{
			Devices: []Device{
				{ID: 1, Name: "a", Kind: DeviceRouter},
				{ID: 2, Name: "b", Kind: DeviceSwitch, ConnectionPorts: []Port{{ID: "p1"}}},
			},
			Connections: []Connection{{ID: 1, SourceID: 1, TargetID: 2, Type: "ethernet"}},
			Shapes:      []Shape{{ID: 1, Kind: ShapeRectangle, Width: 10, Height: 10}},
		}
	}

	t.Run("valid payload", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("self loop", func(t *testing.T) {
		d := base()
		d.Connections[0].TargetID = 1
		assert.ErrorIs(t, d.Validate(), ErrSelfLoop)
	})

	t.Run("dangling endpoint", func(t *testing.T) {
		d := base()
		d.Connections[0].TargetID = 9
		assert.ErrorIs(t, d.Validate(), ErrUnknownDevice)
	})

	t.Run("unknown port", func(t *testing.T) {
		d := base()
		d.Connections[0].TargetPort = "nope"
		assert.ErrorIs(t, d.Validate(), ErrUnknownPort)
	})

	t.Run("known port", func(t *testing.T) {
		d := base()
		d.Connections[0].TargetPort = "p1"
		assert.NoError(t, d.Validate())
	})

	t.Run("zero sized shape", func(t *testing.T) {
		d := base()
		d.Shapes[0].Height = 0
		assert.ErrorIs(t, d.Validate(), ErrInvalidSize)
	})

	t.Run("unknown routing style", func(t *testing.T) {
		d := base()
		d.Connections[0].RoutingStyle = "zigzag"
		assert.ErrorIs(t, d.Validate(), ErrInvalidKind)
	})

	t.Run("orthogonal routing", func(t *testing.T) {
		d := base()
		d.Connections[0].RoutingStyle = RoutingOrthogonal
		assert.NoError(t, d.Validate())
	})

	t.Run("unknown shape layer", func(t *testing.T) {
		d := base()
		d.Shapes[0].Layer = "bogus"
		assert.ErrorIs(t, d.Validate(), ErrInvalidKind)
	})

	t.Run("duplicate device id", func(t *testing.T) {
		d := base()
		d.Devices[1].ID = 1
		assert.ErrorIs(t, d.Validate(), ErrDuplicateID)
	})
}

func TestCanvasDataJSONShape(t *testing.T) {
	data := CanvasData{
		Devices: []Device{{
			ID: 7, Name: "r1", Kind: DeviceRouter, Position: geom.Pt(1, 2),
			Properties: map[string]any{PropExternalID: "abc"},
		}},
	}

	raw, err := json.Marshal(data)
	require.NoError(t, err)

	var generic map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	dev := generic["devices"][0]
	assert.Equal(t, "router", dev["device_type"])
	assert.Equal(t, map[string]any{"x": 1.0, "y": 2.0}, dev["position"])
	assert.Equal(t, "abc", data.Devices[0].ExternalID())
}

func TestNormalizeFillsDerivedFields(t *testing.T) {
	d := CanvasData{Connections: []Connection{{ID: 1, SourceID: 1, TargetID: 2, Type: "bgp"}}}
	d.Normalize()

	assert.Equal(t, LinkLayer3, d.Connections[0].Layer)
	assert.Equal(t, RoutingStraight, d.Connections[0].RoutingStyle)
	assert.NotNil(t, d.Devices)
	assert.NotNil(t, d.Shapes)
}
