// Package events implements the Event Pipeline (C6): dedicated reader
// goroutines draining the linkscan and transceiver channels registered
// with the SDK and PHAL collaborators, translating hardware events into
// Internal State Store updates and gNMI notifications. SPEC_FULL.md
// §4.5. Channel close is the sole termination signal; readers never
// hold the chassis lock across a blocking receive.
package events

import (
	"sync"

	"github.com/platinasystems/bcmchassis/chassis"
	"github.com/platinasystems/bcmchassis/notify"
	"github.com/platinasystems/bcmchassis/phal"
	"github.com/platinasystems/bcmchassis/portgroup"
	"github.com/platinasystems/bcmchassis/sdk"
	"github.com/platinasystems/bcmchassis/state"
)

const channelDepth = 256

// Pipeline owns the linkscan and transceiver event channels and the
// goroutines reading them.
type Pipeline struct {
	linkscan    chan sdk.LinkscanEvent
	transceiver chan phal.TransceiverEvent
	store       *state.Store
	lock        func(fn func())

	sdk        sdk.Interface
	phal       phal.Interface
	serdesDB   phal.SerdesDbManager
	standalone bool

	notifierMu sync.Mutex
	notifier   notify.Writer
}

// NewPipeline constructs a Pipeline. lock must run fn while holding the
// chassis lock; event handlers call it per event, never across the
// blocking channel receive itself. sdkIface/phalIface/serdesDB back the
// Port-Group Configurator pass the transceiver handler runs on
// PRESENT/NOT_PRESENT transitions; standalone mirrors the manager's
// non-simulated-mode flag (SPEC_FULL.md §4.6's serdes-before-enable rule).
func NewPipeline(store *state.Store, notifier notify.Writer, sdkIface sdk.Interface, phalIface phal.Interface,
	serdesDB phal.SerdesDbManager, standalone bool, lock func(fn func())) *Pipeline {
	return &Pipeline{
		linkscan:    make(chan sdk.LinkscanEvent, channelDepth),
		transceiver: make(chan phal.TransceiverEvent, channelDepth),
		store:       store,
		notifier:    notifier,
		sdk:         sdkIface,
		phal:        phalIface,
		serdesDB:    serdesDB,
		standalone:  standalone,
		lock:        lock,
	}
}

// LinkscanChan is handed to sdk.Interface.RegisterLinkscanEventWriter.
func (p *Pipeline) LinkscanChan() chan sdk.LinkscanEvent { return p.linkscan }

// TransceiverChan is handed to phal.Interface.RegisterTransceiverEventWriter.
func (p *Pipeline) TransceiverChan() chan phal.TransceiverEvent { return p.transceiver }

// Run starts the two reader goroutines. It returns immediately; the
// goroutines exit when their respective channel is closed.
func (p *Pipeline) Run() {
	go p.readLinkscan()
	go p.readTransceiver()
}

func (p *Pipeline) readLinkscan() {
	for ev := range p.linkscan {
		ev := ev
		p.lock(func() { p.handleLinkscan(ev) })
	}
}

func (p *Pipeline) readTransceiver() {
	for ev := range p.transceiver {
		ev := ev
		p.lock(func() { p.handleTransceiver(ev) })
	}
}

// handleLinkscan applies one linkscan event: silently drops events for
// an unknown (unit, logical_port) pair, otherwise updates the store and
// emits a PortOperStateChanged notification. A failing notifier is
// dropped, per the linkscan handler's rule.
func (p *Pipeline) handleLinkscan(ev sdk.LinkscanEvent) {
	ps, ok := p.store.PortByLogical(ev.Unit, ev.LogicalPort)
	if !ok {
		return
	}
	if ps.LinkState == ev.NewState {
		return
	}
	if !p.store.SetLinkState(ev.Unit, ev.LogicalPort, ev.NewState) {
		return
	}

	p.notifierMu.Lock()
	defer p.notifierMu.Unlock()
	if p.notifier == nil {
		return
	}
	if err := p.notifier.PortOperStateChanged(ps.Port.Slot, ps.Port.Port, ps.Port.Channel, ev.NewState); err != nil {
		p.notifier = nil
	}
}

// handleTransceiver runs the §4.5 transceiver state machine over the
// (slot,port) front-panel group the event names; only PRESENT and
// NOT_PRESENT are valid new states, everything else (including an
// unknown group) is discarded.
func (p *Pipeline) handleTransceiver(ev phal.TransceiverEvent) {
	if ev.State != chassis.TransceiverPresent && ev.State != chassis.TransceiverNotPresent {
		return
	}
	old, unit, ok := p.store.GroupState(ev.Slot, ev.Port)
	if !ok {
		return
	}

	switch {
	case (old == chassis.TransceiverUnknown || old == chassis.TransceiverNotPresent) && ev.State == chassis.TransceiverPresent:
		applied := p.store.Applied()
		sp := chassis.SlotPort{Slot: ev.Slot, Port: ev.Port}
		if s := portgroup.SetPortOptionsForPortGroup(p.sdk, p.phal, p.serdesDB, applied, sp, unit, true, p.standalone); !s.IsOK() {
			return
		}
		p.store.SetTransceiverStateForGroup(ev.Slot, ev.Port, chassis.TransceiverReady)

	case old == chassis.TransceiverReady && ev.State == chassis.TransceiverNotPresent:
		applied := p.store.Applied()
		sp := chassis.SlotPort{Slot: ev.Slot, Port: ev.Port}
		if s := portgroup.SetPortOptionsForPortGroup(p.sdk, p.phal, p.serdesDB, applied, sp, unit, false, p.standalone); !s.IsOK() {
			return
		}
		p.store.SetTransceiverStateForGroup(ev.Slot, ev.Port, chassis.TransceiverNotPresent)

	case old == chassis.TransceiverReady && ev.State == chassis.TransceiverPresent:
		// anomalous re-insert reported while still wired READY; ignored.

	case old == chassis.TransceiverUnknown && ev.State == chassis.TransceiverNotPresent:
		// anomalous absence reported with no prior presence; ignored.
	}
}
