package basemap

import (
	"strings"
	"testing"

	"github.com/platinasystems/bcmchassis/chassis"
	"github.com/platinasystems/bcmchassis/status"
)

const sampleFile = `
chassis id=plain auto_add_slot=true auto_add_logical_ports=true
chip unit=0 type=TRIDENT2 slot=0 module=0
port type=XE slot=0 port=1 channel=0 unit=0 logical_port=0 physical_port=1 diag_port=1 speed_gbps=40 num_serdes_lanes=1
end

chassis id=tomahawk auto_add_slot=true auto_add_logical_ports=true
chip unit=0 type=TOMAHAWK slot=0 module=0
port type=XE slot=1 port=2 channel=1 unit=0 logical_port=0 physical_port=2 diag_port=2 speed_gbps=100 num_serdes_lanes=4 flex_port=true
end
`

func TestParsePicksMatchingID(t *testing.T) {
	got := Parse(strings.NewReader(sampleFile), "tomahawk")
	if !got.Ok() {
		t.Fatalf("Parse(tomahawk) failed: %v", got.Status())
	}
	m := got.Value()
	if m.ID != "tomahawk" {
		t.Errorf("ID = %q, want %q", m.ID, "tomahawk")
	}
	if len(m.Chips) != 1 || m.Chips[0].Type != chassis.ChipTypeTomahawk {
		t.Errorf("unexpected chips: %+v", m.Chips)
	}
}

func TestParseEmptyIDPicksFirst(t *testing.T) {
	got := Parse(strings.NewReader(sampleFile), "")
	if !got.Ok() {
		t.Fatalf("Parse(\"\") failed: %v", got.Status())
	}
	if got.Value().ID != "plain" {
		t.Errorf("ID = %q, want %q", got.Value().ID, "plain")
	}
}

func TestParseUnknownIDFails(t *testing.T) {
	got := Parse(strings.NewReader(sampleFile), "nope")
	if got.Ok() {
		t.Fatalf("Parse(nope) unexpectedly succeeded")
	}
	if got.Status().Code() != status.Internal {
		t.Errorf("Status().Code() = %v, want Internal", got.Status().Code())
	}
}

func TestValidateRejectsBadLogicalPortInvariant(t *testing.T) {
	const bad = `
chassis id=x auto_add_slot=true auto_add_logical_ports=false
chip unit=0 type=TRIDENT2 slot=1 module=0
port type=XE slot=1 port=1 channel=0 unit=0 logical_port=0 physical_port=1 diag_port=1 speed_gbps=40 num_serdes_lanes=1
end
`
	got := Parse(strings.NewReader(bad), "x")
	if got.Ok() {
		t.Fatalf("expected validation failure for logical_port=0 with auto_add_logical_ports=false")
	}
}

func TestValidateRejectsDuplicateUnit(t *testing.T) {
	const bad = `
chassis id=x auto_add_slot=true auto_add_logical_ports=true
chip unit=0 type=TRIDENT2 slot=1 module=0
chip unit=0 type=TRIDENT2 slot=1 module=1
end
`
	got := Parse(strings.NewReader(bad), "x")
	if got.Ok() {
		t.Fatalf("expected validation failure for duplicate chip unit")
	}
}
