// Package phal declares the PhalInterface collaborator boundary: the
// physical-layer abstraction the chassis manager reads front-panel port
// inventory and transceiver presence from, and registers a transceiver
// event writer with (SPEC_FULL.md §6.4). Concrete I2C/EEPROM/GPIO
// access is out of scope for this module; it belongs to a PHAL
// implementation on the other side of this boundary.
package phal

import (
	"github.com/platinasystems/bcmchassis/chassis"
	"github.com/platinasystems/bcmchassis/status"
)

// FrontPanelPortInfo is the per-singleton-port physical description the
// port-group configurator consults when configuring serdes for a
// standalone-mode port.
type FrontPanelPortInfo struct {
	PhysicalPortType string
	MediaType        string
	NumLanes         int
}

// TransceiverEvent is one message on the transceiver-presence channel.
type TransceiverEvent struct {
	Slot    int
	Port    int
	Channel int
	State   chassis.TransceiverState
}

// Interface is the PhalInterface collaborator boundary.
type Interface interface {
	GetFrontPanelPortInfo(slot, port int) status.StatusOr[FrontPanelPortInfo]
	RegisterTransceiverEventWriter(ch chan<- TransceiverEvent) status.StatusOr[string]
	UnregisterTransceiverEventWriter(id string) status.Status
}

// SerdesDbManager is the BcmSerdesDbManager collaborator: a lookup table
// from physical/media description to the serdes register and attribute
// settings a given port needs (SPEC_FULL.md §6.4, §4.6).
type SerdesDbManager interface {
	Load() status.Status
	LookupSerdesConfigForPort(info FrontPanelPortInfo, speedBps uint64) status.StatusOr[SerdesConfig]
}

// SerdesConfig is the serdes tuning the database returns for one port.
type SerdesConfig struct {
	InterfaceType    string
	RegisterConfigs  map[uint32]uint32
	AttributeConfigs map[string]uint32
}
