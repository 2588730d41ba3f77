package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/store"
)

func TestShapeJSONCommands(t *testing.T) {
	e, _ := newTestEngine(t)

	sh, err := e.AddShapeJSON(`{"shape_type":"rectangle","position":{"x":10,"y":20},"width":200,"height":100,"fill_color":"#eef","layer":"device"}`)
	require.NoError(t, err)
	assert.Equal(t, document.ShapeRectangle, sh.Kind)
	assert.Equal(t, geom.Pt(10, 20), sh.Position)
	assert.Equal(t, document.ShapeLayerDevice, sh.Layer)

	sh, err = e.UpdateShapeJSON(sh.ID, `{"width":50,"stroke_color":"#000"}`)
	require.NoError(t, err)
	assert.Equal(t, 50.0, sh.Width)
	assert.Equal(t, 100.0, sh.Height)
	assert.Equal(t, "#eef", sh.FillColor)
	assert.Equal(t, "#000", sh.StrokeColor)

	_, err = e.UpdateShapeJSON(sh.ID, `{"layer":"bogus"}`)
	assert.ErrorIs(t, err, document.ErrInvalidKind)

	_, err = e.AddShapeJSON(`{"shape_type":"hexagon","width":1,"height":1}`)
	assert.ErrorIs(t, err, document.ErrInvalidKind)

	_, err = e.AddShapeJSON(`{`)
	assert.Error(t, err)
}

func TestUpdateDeviceJSON(t *testing.T) {
	e, _ := newTestEngine(t)
	a := addDevice(t, e, "A", 100, 100)
	_, err := e.UpdateDevice(a, store.DevicePatch{Properties: map[string]any{"site": "fra1"}})
	require.NoError(t, err)

	dev, err := e.UpdateDeviceJSON(a, `{"name":"core-1","device_type":"firewall","properties":{"rack":"r4"}}`)
	require.NoError(t, err)
	assert.Equal(t, "core-1", dev.Name)
	assert.Equal(t, document.DeviceFirewall, dev.Kind)
	assert.Equal(t, geom.Pt(100, 100), dev.Position)
	assert.Equal(t, "fra1", dev.Properties["site"])
	assert.Equal(t, "r4", dev.Properties["rack"])

	_, err = e.UpdateDeviceJSON(a, `{"device_type":"toaster"}`)
	assert.ErrorIs(t, err, document.ErrInvalidKind)
	_, err = e.UpdateDeviceJSON(99, `{"name":"x"}`)
	assert.ErrorIs(t, err, document.ErrUnknownDevice)
}

func TestAddPortJSON(t *testing.T) {
	e, _ := newTestEngine(t)
	a := addDevice(t, e, "A", 100, 100)

	p, err := e.AddPortJSON(a, `{"id":"eth0","x":60,"y":30,"label":"eth0"}`)
	require.NoError(t, err)
	assert.Equal(t, "eth0", p.Label)

	dev, _ := e.Device(a)
	require.Len(t, dev.ConnectionPorts, 1)
	assert.Equal(t, geom.Pt(60, 30), dev.ConnectionPorts[0].Offset())

	_, err = e.AddPortJSON(a, `{"id":"eth0"}`)
	assert.ErrorIs(t, err, document.ErrDuplicateID)
}

func TestAddWaypointAtMenuPosition(t *testing.T) {
	e, _ := newTestEngine(t)
	a := addDevice(t, e, "A", 100, 100)
	b := addDevice(t, e, "B", 300, 100)
	c, err := e.Connect(store.ConnectionSpec{SourceID: a, TargetID: b, Type: "ethernet"})
	require.NoError(t, err)

	idx, ok := e.AddWaypoint(c.ID, geom.Pt(230, 180))
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	got, _ := e.Connection(c.ID)
	assert.Equal(t, []geom.Point{{X: 230, Y: 180}}, got.Waypoints)

	_, ok = e.AddWaypoint(99, geom.Pt(0, 0))
	assert.False(t, ok)
}
