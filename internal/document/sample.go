package document

import "github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"

// NewSampleCanvas returns a small WAN edge topology used by demos and the
// playground: two edge routers behind a firewall, a core switch and a VPN
// gateway, framed by a background zone.
func NewSampleCanvas() CanvasData {
	devices := []Device{
		{
			ID: 1, Name: "edge-rtr-01", Kind: DeviceRouter,
			Position:   geom.Pt(100, 100),
			Properties: map[string]any{"location": "dc1", "platform": "ios-xe"},
		},
		{
			ID: 2, Name: "edge-rtr-02", Kind: DeviceRouter,
			Position:   geom.Pt(300, 100),
			Properties: map[string]any{"location": "dc1", "platform": "ios-xe"},
		},
		{
			ID: 3, Name: "fw-01", Kind: DeviceFirewall,
			Position:   geom.Pt(200, 250),
			Properties: map[string]any{"location": "dc1", "platform": "panos"},
			ConnectionPorts: []Port{
				{ID: "outside", X: DeviceSize / 2, Y: 0, Label: "outside"},
				{ID: "inside", X: DeviceSize / 2, Y: DeviceSize, Label: "inside"},
			},
		},
		{
			ID: 4, Name: "core-sw-01", Kind: DeviceSwitch,
			Position:   geom.Pt(200, 400),
			Properties: map[string]any{"location": "dc1", "platform": "nxos"},
		},
		{
			ID: 5, Name: "vpn-gw-01", Kind: DeviceVPNGateway,
			Position:   geom.Pt(450, 250),
			Properties: map[string]any{"location": "dc1"},
		},
	}

	connections := []Connection{
		{ID: 1, SourceID: 1, TargetID: 2, Type: "bgp", RoutingStyle: RoutingStraight},
		{ID: 2, SourceID: 1, TargetID: 3, Type: "ethernet", TargetPort: "outside", RoutingStyle: RoutingOrthogonal},
		{ID: 3, SourceID: 2, TargetID: 3, Type: "ethernet", TargetPort: "outside", RoutingStyle: RoutingOrthogonal},
		{ID: 4, SourceID: 3, TargetID: 4, Type: "trunk", SourcePort: "inside", RoutingStyle: RoutingStraight},
		{
			ID: 5, SourceID: 2, TargetID: 5, Type: "ipsec", RoutingStyle: RoutingStraight,
			Waypoints: []geom.Point{{X: 480, Y: 130}},
		},
	}
	for i := range connections {
		connections[i].Layer = ClassifyLinkType(connections[i].Type)
	}

	shapes := []Shape{
		{
			ID: 1, Kind: ShapeRectangle,
			Position: geom.Pt(60, 60), Width: 520, Height: 440,
			FillColor: "#eef3fb", StrokeColor: "#9fb3d1", StrokeWidth: 1,
			Layer: ShapeLayerBackground,
		},
		{
			ID: 2, Kind: ShapeCircle,
			Position: geom.Pt(430, 230), Width: 100, Height: 100,
			FillColor: "none", StrokeColor: "#d98c1f", StrokeWidth: 2,
			Layer: ShapeLayerDevice,
		},
	}

	return CanvasData{Devices: devices, Connections: connections, Shapes: shapes}
}
