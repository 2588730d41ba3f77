package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/store"
)

func TestKindFor(t *testing.T) {
	tests := []struct {
		role, model string
		want        document.DeviceKind
	}{
		{"Core Switch", "", document.DeviceSwitch},
		{"edge-router", "", document.DeviceRouter},
		{"firewall", "", document.DeviceFirewall},
		{"vpn-concentrator", "", document.DeviceVPNGateway},
		{"", "Catalyst 9300", document.DeviceSwitch},
		{"", "ASA 5516", document.DeviceFirewall},
		{"server", "PowerEdge", document.DeviceRouter},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindFor(tt.role, tt.model), "role=%q model=%q", tt.role, tt.model)
	}
}

func TestToDeviceSpec(t *testing.T) {
	rec := NautobotDevice{
		ID:         "0b1c-uuid",
		Name:       "lax-fw-01",
		Role:       &Ref{Name: "Firewall"},
		DeviceType: &DeviceTypeRef{Model: "PA-3220"},
		Platform:   &Ref{Name: "panos"},
		PrimaryIP4: &IPRef{Address: "10.0.0.1/24"},
		Location:   &Ref{Name: "LAX"},
	}

	spec := ToDeviceSpec(rec, geom.Pt(40, 80))

	assert.Equal(t, "lax-fw-01", spec.Name)
	assert.Equal(t, document.DeviceFirewall, spec.Kind)
	assert.Equal(t, geom.Pt(40, 80), spec.Position)
	assert.Equal(t, map[string]any{
		document.PropExternalID: "0b1c-uuid",
		"role":                  "Firewall",
		"platform":              "panos",
		"location":              "LAX",
		"model":                 "PA-3220",
		"primary_ip4":           "10.0.0.1/24",
	}, spec.Properties)
}

func TestFindDuplicate(t *testing.T) {
	s := store.New()
	existing, err := s.CreateDevice(ToDeviceSpec(NautobotDevice{ID: "u1", Name: "core-01"}, geom.Point{}))
	require.NoError(t, err)

	t.Run("by external id", func(t *testing.T) {
		dup := FindDuplicate(s, ToDeviceSpec(NautobotDevice{ID: "u1", Name: "renamed"}, geom.Point{}))
		require.NotNil(t, dup)
		assert.Equal(t, "external_id", dup.MatchedBy)
		assert.Equal(t, existing.ID, dup.Existing.ID)
	})

	t.Run("by name", func(t *testing.T) {
		dup := FindDuplicate(s, ToDeviceSpec(NautobotDevice{ID: "u2", Name: "CORE-01"}, geom.Point{}))
		require.NotNil(t, dup)
		assert.Equal(t, "name", dup.MatchedBy)
		assert.Contains(t, dup.Error(), "core-01")
	})

	t.Run("no match", func(t *testing.T) {
		assert.Nil(t, FindDuplicate(s, ToDeviceSpec(NautobotDevice{ID: "u3", Name: "core-02"}, geom.Point{})))
	})
}

func TestUniqueName(t *testing.T) {
	taken := map[string]bool{"r1": true, "r1-2": true}
	assert.Equal(t, "r1-3", UniqueName("r1", func(n string) bool { return taken[n] }))
	assert.Equal(t, "r9", UniqueName("r9", func(n string) bool { return taken[n] }))
}

func TestDecodeDropPayload(t *testing.T) {
	t.Run("device template", func(t *testing.T) {
		d, err := DecodeDropPayload([]byte(`{"type":"device-template","device_type":"switch"}`))
		require.NoError(t, err)
		tpl, ok := d.(TemplateDrop)
		require.True(t, ok)
		assert.Equal(t, document.DeviceSwitch, tpl.Kind)
		assert.Equal(t, "switch", tpl.Name)
	})

	t.Run("nautobot device", func(t *testing.T) {
		d, err := DecodeDropPayload([]byte(`{"type":"nautobot-device","device":{"id":"u1","name":"r1","role":{"name":"router"}}}`))
		require.NoError(t, err)
		nd, ok := d.(NautobotDrop)
		require.True(t, ok)
		assert.Equal(t, "router", nd.Device.Role.Name)
	})

	t.Run("symbol defaults", func(t *testing.T) {
		d, err := DecodeDropPayload([]byte(`{"type":"symbol","shape_type":"circle"}`))
		require.NoError(t, err)
		sym, ok := d.(SymbolDrop)
		require.True(t, ok)
		assert.Equal(t, 120.0, sym.Width)
		assert.Equal(t, document.ShapeLayerBackground, sym.Layer)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := DecodeDropPayload([]byte(`{"type":"teapot"}`))
		assert.ErrorIs(t, err, ErrUnknownDrop)

		_, err = DecodeDropPayload([]byte(`{"type":"device-template","device_type":"toaster"}`))
		assert.ErrorIs(t, err, ErrInvalidDrop)

		_, err = DecodeDropPayload([]byte(`{"type":"nautobot-device","device":{"name":"r1"}}`))
		assert.ErrorIs(t, err, ErrInvalidDrop)

		_, err = DecodeDropPayload([]byte(`{"type":"symbol","shape_type":"circle","layer":"bogus"}`))
		assert.ErrorIs(t, err, ErrInvalidDrop)

		_, err = DecodeDropPayload([]byte(`not json`))
		assert.Error(t, err)
	})
}
