// Package inventory maps already-fetched Nautobot device records onto canvas
// devices and decodes palette drop payloads. It never talks to Nautobot.
package inventory

import (
	"fmt"
	"strings"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/geom"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/store"
)

// Ref is a nested Nautobot object reference.
type Ref struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type DeviceTypeRef struct {
	ID           string `json:"id,omitempty"`
	Model        string `json:"model"`
	Manufacturer *Ref   `json:"manufacturer,omitempty"`
}

type IPRef struct {
	ID      string `json:"id,omitempty"`
	Address string `json:"address"`
}

// NautobotDevice is the subset of a Nautobot device record the canvas uses.
type NautobotDevice struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Role       *Ref           `json:"role,omitempty"`
	DeviceType *DeviceTypeRef `json:"device_type,omitempty"`
	Platform   *Ref           `json:"platform,omitempty"`
	PrimaryIP4 *IPRef         `json:"primary_ip4,omitempty"`
	Location   *Ref           `json:"location,omitempty"`
	Status     *Ref           `json:"status,omitempty"`
}

func refName(r *Ref) string {
	if r == nil {
		return ""
	}
	return r.Name
}

func (d NautobotDevice) model() string {
	if d.DeviceType == nil {
		return ""
	}
	return d.DeviceType.Model
}

// kindKeywords are checked in order; the first match wins.
var kindKeywords = []struct {
	kind     document.DeviceKind
	keywords []string
}{
	{document.DeviceVPNGateway, []string{"vpn", "ipsec", "concentrator"}},
	{document.DeviceFirewall, []string{"firewall", "fw", "asa", "palo", "fortigate", "srx"}},
	{document.DeviceSwitch, []string{"switch", "access", "distribution", "leaf", "spine", "tor", "nexus", "catalyst"}},
	{document.DeviceRouter, []string{"router", "edge", "wan", "border", "isr", "asr", "mx"}},
}

// KindFor derives the device kind from the role name, falling back to the
// device type model. Unknown records become routers.
func KindFor(role, model string) document.DeviceKind {
	for _, s := range []string{role, model} {
		tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
			return r == '-' || r == '_' || r == ' ' || r == '/'
		})
		for _, group := range kindKeywords {
			for _, tok := range tokens {
				for _, kw := range group.keywords {
					if tok == kw || (len(kw) > 3 && strings.HasPrefix(tok, kw)) {
						return group.kind
					}
				}
			}
		}
	}
	return document.DeviceRouter
}

// ToDeviceSpec maps a record to a device dropped at position.
func ToDeviceSpec(rec NautobotDevice, position geom.Point) store.DeviceSpec {
	props := map[string]any{document.PropExternalID: rec.ID}
	set := func(key, value string) {
		if value != "" {
			props[key] = value
		}
	}
	set("role", refName(rec.Role))
	set("platform", refName(rec.Platform))
	set("location", refName(rec.Location))
	set("status", refName(rec.Status))
	set("model", rec.model())
	if rec.PrimaryIP4 != nil {
		set("primary_ip4", rec.PrimaryIP4.Address)
	}

	return store.DeviceSpec{
		Name:       rec.Name,
		Kind:       KindFor(refName(rec.Role), rec.model()),
		Position:   position,
		Properties: props,
	}
}

// Lookup finds existing devices for duplicate detection.
type Lookup interface {
	FindDeviceByExternalID(externalID string) (document.Device, bool)
	FindDeviceByName(name string) (document.Device, bool)
}

// DuplicateError reports that a dropped device already exists. The caller
// resolves it by reusing Existing or creating Candidate under a new name.
type DuplicateError struct {
	Existing  document.Device
	Candidate store.DeviceSpec
	// MatchedBy is "external_id" or "name".
	MatchedBy string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("device %q already exists on the canvas (matched by %s)", e.Existing.Name, e.MatchedBy)
}

// FindDuplicate checks spec against the scene, external id first.
func FindDuplicate(l Lookup, spec store.DeviceSpec) *DuplicateError {
	if ext, _ := spec.Properties[document.PropExternalID].(string); ext != "" {
		if d, ok := l.FindDeviceByExternalID(ext); ok {
			return &DuplicateError{Existing: d, Candidate: spec, MatchedBy: "external_id"}
		}
	}
	if d, ok := l.FindDeviceByName(spec.Name); ok {
		return &DuplicateError{Existing: d, Candidate: spec, MatchedBy: "name"}
	}
	return nil
}

// UniqueName returns name, or name-2, name-3... whichever is free first.
func UniqueName(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", name, i)
		if !taken(candidate) {
			return candidate
		}
	}
}
