// Package sdk declares the BcmSdkInterface collaborator boundary consumed
// by the chassis manager (SPEC_FULL.md §6.4) and implements the SDK
// Bring-Up Sequencer (C4) and the §6.2 SDK config file renderer on top of
// it. The interface itself is a collaborator: this package specifies only
// what the chassis manager needs from it, and additionally ships a
// Simulated implementation for standalone testing.
package sdk

import (
	"github.com/platinasystems/bcmchassis/chassis"
	"github.com/platinasystems/bcmchassis/status"
)

// PortOptions mirrors the tri-state enable/blocked/speed/lane knobs the
// manager pushes down per logical port (SPEC_FULL.md §4.6).
type PortOptions struct {
	EnabledSet       bool
	Enabled          bool
	BlockedSet       bool
	Blocked          bool
	SpeedBpsSet      bool
	SpeedBps         uint64
	NumSerdesLanesSet bool
	NumSerdesLanes   int
}

// SerdesLaneConfig is the per-port register/attribute configuration
// returned by a BcmSerdesDbManager lookup and handed to ConfigSerdesForPort.
type SerdesLaneConfig struct {
	InterfaceType     string
	RegisterConfigs   map[uint32]uint32
	AttributeConfigs  map[string]uint32
}

// LinkscanEvent is one message on the linkscan channel (SPEC_FULL.md §4.5).
type LinkscanEvent struct {
	Unit        int
	LogicalPort int
	NewState    chassis.LinkState
}

// Interface is the BcmSdkInterface collaborator boundary.
type Interface interface {
	// Unit lifecycle.
	FindUnit(unit int) status.Status
	InitializeUnit(unit int, pciBus, pciSlot int, chipType chassis.ChipType) status.Status
	SetModuleID(unit, module int) status.Status
	InitializePort(unit, logicalPort int) status.Status
	StartDiagShellServer() status.Status
	ShutdownAllUnits() status.Status

	// Port options.
	GetPortOptions(unit, logicalPort int) status.StatusOr[PortOptions]
	SetPortOptions(unit, logicalPort int, opts PortOptions) status.Status

	// Serdes.
	ConfigSerdesForPort(unit, logicalPort int, speedBps uint64, serdesCore, serdesLane, numLanes int,
		cfg SerdesLaneConfig) status.Status

	// Linkscan.
	StartLinkscan() status.Status
	StopLinkscan() status.Status
	// RegisterLinkscanEventWriter registers ch to receive linkscan
	// events and returns an opaque writer id used to unregister it.
	RegisterLinkscanEventWriter(ch chan<- LinkscanEvent, priority int) status.StatusOr[string]
	UnregisterLinkscanEventWriter(id string) status.Status
}
