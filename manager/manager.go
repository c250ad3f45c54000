// Package manager implements the Verify/Push/Shutdown Lifecycle (C8):
// the facade every other component sits behind, owning the chassis lock
// and the separate lock over the registered event-writer ids, and
// exposing the query accessors callers use between pushes (SPEC_FULL.md
// §4.7, §6.5).
package manager

import (
	"reflect"
	"sync"

	"github.com/platinasystems/bcmchassis/basemap"
	"github.com/platinasystems/bcmchassis/chassis"
	"github.com/platinasystems/bcmchassis/events"
	"github.com/platinasystems/bcmchassis/notify"
	"github.com/platinasystems/bcmchassis/phal"
	"github.com/platinasystems/bcmchassis/portgroup"
	"github.com/platinasystems/bcmchassis/resolver"
	"github.com/platinasystems/bcmchassis/sdk"
	"github.com/platinasystems/bcmchassis/state"
	"github.com/platinasystems/bcmchassis/status"
)

// Options configures a Manager at construction time. BaseMap, when
// non-nil, is used directly instead of loading BaseMapFile/BaseMapID
// through the Base Map Loader; tests use this to avoid a filesystem
// fixture.
type Options struct {
	BaseMap     *chassis.BcmChassisMap
	BaseMapFile string
	BaseMapID   string
	BringUp     sdk.BringUpOptions
	Standalone  bool
}

// Manager owns the chassis lock ("chassis lock before gNMI lock" is the
// only order ever taken) and every collaborator the chassis manager
// depends on.
type Manager struct {
	mu       sync.RWMutex // chassis lock: guards store, base, linkscanWriterID
	writerMu sync.Mutex   // guards linkscanWriterID and transceiverWriterID

	opts Options

	sdk      sdk.Interface
	phal     phal.Interface
	serdesDB phal.SerdesDbManager
	notifier notify.Writer

	store    *state.Store
	pipeline *events.Pipeline

	base *chassis.BcmChassisMap

	linkscanWriterID    string
	transceiverWriterID string

	portIDToUnit     map[uint64]int
	portIDToLogical  map[uint64]int
	trunkIDToMembers map[uint64][][2]int // trunk id -> [](unit, logical_port)
}

// New constructs a Manager. It does not load the base map or bring up
// the SDK; call PushChassisConfig to do both on the first push.
func New(opts Options, sdkIface sdk.Interface, phalIface phal.Interface, serdesDB phal.SerdesDbManager, notifier notify.Writer) *Manager {
	store := state.New()
	m := &Manager{
		opts:     opts,
		sdk:      sdkIface,
		phal:     phalIface,
		serdesDB: serdesDB,
		notifier: notifier,
		store:    store,
	}
	m.pipeline = events.NewPipeline(store, notifier, sdkIface, phalIface, serdesDB, opts.Standalone, m.withChassisLock)
	return m
}

// withChassisLock is passed to the event pipeline so its reader
// goroutines take the chassis lock only around the handler body, never
// across the blocking channel receive.
func (m *Manager) withChassisLock(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}

func (m *Manager) loadBase() status.StatusOr[*chassis.BcmChassisMap] {
	if m.opts.BaseMap != nil {
		return status.Of(m.opts.BaseMap)
	}
	return basemap.Load(m.opts.BaseMapFile, m.opts.BaseMapID)
}

// VerifyChassisConfig resolves cfg against the base map without
// applying it, reporting REBOOT_REQUIRED when the resolved chip set, the
// resolved applied port map, or the node_id->unit binding differs from
// what is currently live (SPEC_FULL.md §4.7).
func (m *Manager) VerifyChassisConfig(cfg *chassis.Config) status.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	base := m.base
	if base == nil {
		baseRes := m.loadBase()
		if !baseRes.Ok() {
			return baseRes.Status()
		}
		base = baseRes.Value()
	}

	res := resolver.Resolve(cfg, base)
	if !res.Ok() {
		return res.Status()
	}
	if m.store.Initialized() {
		result := res.Value()
		switch {
		case chipSetChanged(m.store.Applied().Chips, result.Applied.Chips):
			return status.RebootRequiredf("manager: pushed config changes the attached chip set, a reboot is required")
		case appliedPortsChanged(m.store.Applied().Ports, result.Applied.Ports):
			return status.RebootRequiredf("manager: pushed config changes the resolved applied port map, a reboot is required")
		case nodeBindingChanged(m.store.NodeIDToUnit(), result.NodeIDToUnit):
			return status.RebootRequiredf("manager: pushed config changes the node_id to unit binding, a reboot is required")
		}
	}
	return status.OK()
}

func chipSetChanged(old, updated []chassis.BcmChip) bool {
	if len(old) != len(updated) {
		return true
	}
	oldByUnit := map[int]chassis.BcmChip{}
	for _, c := range old {
		oldByUnit[c.Unit] = c
	}
	for _, c := range updated {
		prev, ok := oldByUnit[c.Unit]
		if !ok || prev.Type != c.Type || prev.Slot != c.Slot || prev.PCIBus != c.PCIBus || prev.PCISlot != c.PCISlot {
			return true
		}
	}
	return false
}

// appliedPortsChanged reports whether the resolved applied port map, keyed
// by (slot,port,channel), differs in membership or in any field of a
// shared tuple between old and updated.
func appliedPortsChanged(old, updated []chassis.BcmPort) bool {
	if len(old) != len(updated) {
		return true
	}
	oldBySPC := map[chassis.SlotPortChannel]chassis.BcmPort{}
	for _, p := range old {
		oldBySPC[p.SlotPortChannel()] = p
	}
	for _, p := range updated {
		prev, ok := oldBySPC[p.SlotPortChannel()]
		if !ok || !reflect.DeepEqual(prev, p) {
			return true
		}
	}
	return false
}

// nodeBindingChanged reports whether the node_id->unit binding differs.
func nodeBindingChanged(old, updated map[uint64]int) bool {
	return !reflect.DeepEqual(old, updated)
}

// PushChassisConfig resolves cfg and applies it: on the first call it
// loads the serdes database (standalone mode only), runs the SDK
// bring-up sequence, and starts the event pipeline; on subsequent calls
// it reconfigures the changed port groups in place.
func (m *Manager) PushChassisConfig(cfg *chassis.Config) status.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	base := m.base
	if base == nil {
		baseRes := m.loadBase()
		if !baseRes.Ok() {
			return baseRes.Status()
		}
		base = baseRes.Value()
	}

	res := resolver.Resolve(cfg, base)
	if !res.Ok() {
		return res.Status()
	}
	result := res.Value()

	firstPush := !m.store.Initialized()
	if firstPush {
		if m.opts.Standalone {
			if s := m.serdesDB.Load(); !s.IsOK() {
				return s
			}
		}
		if s := sdk.BringUp(m.sdk, result.Applied, m.opts.BringUp); !s.IsOK() {
			return s
		}
	} else {
		if s := m.reconcileFlexSpeeds(m.store.Applied(), result); !s.IsOK() {
			return s
		}
	}

	m.base = result.Base
	m.store.SyncInternalState(result)

	if s := portgroup.ConfigurePortGroups(m.sdk, m.phal, m.serdesDB, m.store, m.opts.Standalone); !s.IsOK() {
		return s
	}

	if firstPush {
		if s := m.sdk.StartLinkscan(); !s.IsOK() {
			return s
		}
		idRes := m.sdk.RegisterLinkscanEventWriter(m.pipeline.LinkscanChan(), 0)
		if !idRes.Ok() {
			return idRes.Status()
		}
		m.writerMu.Lock()
		m.linkscanWriterID = idRes.Value()
		m.writerMu.Unlock()

		tidRes := m.phal.RegisterTransceiverEventWriter(m.pipeline.TransceiverChan())
		if !tidRes.Ok() {
			return tidRes.Status()
		}
		m.writerMu.Lock()
		m.transceiverWriterID = tidRes.Value()
		m.writerMu.Unlock()

		m.pipeline.Run()
	}

	m.indexPortsAndTrunks(cfg, result)
	return status.OK()
}

// reconcileFlexSpeeds walks every (slot,port) group present in the new
// applied map whose speed changed from the old one, demotes its live
// transceiver state off READY, and re-runs the flex-speed-change
// sequence for it. The port-options pass that follows — enabling the
// demoted groups back up — is ConfigurePortGroups's job, run uniformly
// for first and subsequent pushes alike once the store has resynced.
// A group whose speed change fails does not stop the others; every
// failure is folded into the returned status with Status.Append.
func (m *Manager) reconcileFlexSpeeds(oldApplied *chassis.BcmChassisMap, result *resolver.Result) status.Status {
	oldBySPC := map[chassis.SlotPortChannel]chassis.BcmPort{}
	for _, p := range oldApplied.Ports {
		oldBySPC[p.SlotPortChannel()] = p
	}

	changedGroups := map[chassis.SlotPort]bool{}
	for _, p := range result.Applied.Ports {
		if old, ok := oldBySPC[p.SlotPortChannel()]; !ok || old.SpeedBps != p.SpeedBps {
			changedGroups[p.SlotPort()] = true
		}
	}

	var failed status.Status
	for sp := range changedGroups {
		var unit int
		for _, p := range result.Applied.Ports {
			if p.SlotPort() == sp {
				unit = p.Unit
				break
			}
		}
		for _, p := range result.Applied.Ports {
			if p.SlotPort() != sp {
				continue
			}
			portgroup.DemoteOnSpeedChange(m.store, p.SlotPortChannel())
		}
		if s := portgroup.SetSpeedForFlexPortGroup(m.sdk, result.Base, result.Applied, sp, unit); !s.IsOK() {
			failed = failed.Append(s)
		}
	}
	return failed
}

func (m *Manager) indexPortsAndTrunks(cfg *chassis.Config, result *resolver.Result) {
	appliedBySPC := map[chassis.SlotPortChannel]chassis.BcmPort{}
	for _, p := range result.Applied.Ports {
		appliedBySPC[p.SlotPortChannel()] = p
	}

	portIDToUnit := map[uint64]int{}
	portIDToLogical := map[uint64]int{}
	trunkIDToMembers := map[uint64][][2]int{}
	for _, s := range cfg.SingletonPorts {
		p, ok := appliedBySPC[chassis.SlotPortChannel{Slot: s.Slot, Port: s.Port, Channel: s.Channel}]
		if !ok {
			continue
		}
		portIDToUnit[s.ID] = p.Unit
		portIDToLogical[s.ID] = p.LogicalPort
		if s.TrunkMember != 0 {
			trunkIDToMembers[s.TrunkMember] = append(trunkIDToMembers[s.TrunkMember], [2]int{p.Unit, p.LogicalPort})
		}
	}
	m.portIDToUnit = portIDToUnit
	m.portIDToLogical = portIDToLogical
	m.trunkIDToMembers = trunkIDToMembers
}

// Shutdown tears down every collaborator, accumulating (not
// short-circuiting on) each one's error. It then closes both event
// channels, which ends the pipeline's reader goroutines, and drops all
// live state, so the manager is uninitialized again whatever the
// collaborators returned.
func (m *Manager) Shutdown() status.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result status.Status

	result = result.Append(m.sdk.StopLinkscan())

	m.writerMu.Lock()
	if m.linkscanWriterID != "" {
		result = result.Append(m.sdk.UnregisterLinkscanEventWriter(m.linkscanWriterID))
		m.linkscanWriterID = ""
	}
	if m.transceiverWriterID != "" {
		result = result.Append(m.phal.UnregisterTransceiverEventWriter(m.transceiverWriterID))
		m.transceiverWriterID = ""
	}
	m.writerMu.Unlock()

	result = result.Append(m.sdk.ShutdownAllUnits())
	if m.notifier != nil {
		if err := m.notifier.Close(); err != nil {
			result = result.Append(status.Internalf("manager: notifier close: %v", err))
		}
	}

	close(m.pipeline.LinkscanChan())
	close(m.pipeline.TransceiverChan())
	m.store = state.New()
	m.pipeline = events.NewPipeline(m.store, m.notifier, m.sdk, m.phal, m.serdesDB, m.opts.Standalone, m.withChassisLock)
	m.base = nil
	m.portIDToUnit, m.portIDToLogical, m.trunkIDToMembers = nil, nil, nil
	return result
}

// GetBcmChip returns the currently attached chip for unit, if any.
func (m *Manager) GetBcmChip(unit int) status.StatusOr[chassis.BcmChip] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.store.Initialized() {
		return status.Err[chassis.BcmChip](status.NotInitializedf("manager: no config has been pushed yet"))
	}
	for _, c := range m.store.Applied().Chips {
		if c.Unit == unit {
			return status.Of(c)
		}
	}
	return status.Err[chassis.BcmChip](status.NewVendor(status.NotFound, status.ChassisErrorSpace,
		status.EntryNotFound, "manager: no chip for unit %d", unit))
}

// GetBcmPort returns the live state of the port at key.
func (m *Manager) GetBcmPort(key chassis.SlotPortChannel) status.StatusOr[*state.PortState] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.store.Initialized() {
		return status.Err[*state.PortState](status.NotInitializedf("manager: no config has been pushed yet"))
	}
	ps, ok := m.store.PortBySlotPortChannel(key)
	if !ok {
		return status.Err[*state.PortState](status.NewVendor(status.NotFound, status.ChassisErrorSpace,
			status.EntryNotFound, "manager: no port at %+v", key))
	}
	return status.Of(ps)
}

// GetNodeIdToUnitMap returns a snapshot of the current node-to-unit
// binding.
func (m *Manager) GetNodeIdToUnitMap() status.StatusOr[map[uint64]int] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.store.Initialized() {
		return status.Err[map[uint64]int](status.NotInitializedf("manager: no config has been pushed yet"))
	}
	out := make(map[uint64]int, len(m.store.NodeIDToUnit()))
	for k, v := range m.store.NodeIDToUnit() {
		out[k] = v
	}
	return status.Of(out)
}

// GetUnitFromNodeId resolves a single node to its bound unit.
func (m *Manager) GetUnitFromNodeId(nodeID uint64) status.StatusOr[int] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.UnitFromNodeID(nodeID)
}

// GetPortIdToUnitLogicalPortMap returns, for every singleton port id
// known as of the last push, its (unit, logical_port) pair.
func (m *Manager) GetPortIdToUnitLogicalPortMap() status.StatusOr[map[uint64][2]int] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.store.Initialized() {
		return status.Err[map[uint64][2]int](status.NotInitializedf("manager: no config has been pushed yet"))
	}
	out := make(map[uint64][2]int, len(m.portIDToUnit))
	for id, unit := range m.portIDToUnit {
		out[id] = [2]int{unit, m.portIDToLogical[id]}
	}
	return status.Of(out)
}

// GetTrunkIdToUnitTrunkPortMap returns, for every trunk id referenced
// by the pushed config, the (unit, logical_port) pairs of its members.
// This answers an expansion beyond the distilled spec: SingletonPort's
// TrunkMember field.
func (m *Manager) GetTrunkIdToUnitTrunkPortMap() status.StatusOr[map[uint64][][2]int] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.store.Initialized() {
		return status.Err[map[uint64][][2]int](status.NotInitializedf("manager: no config has been pushed yet"))
	}
	out := make(map[uint64][][2]int, len(m.trunkIDToMembers))
	for id, members := range m.trunkIDToMembers {
		out[id] = append([][2]int(nil), members...)
	}
	return status.Of(out)
}

// GetPortState is an alias of GetBcmPort kept for callers that think in
// terms of "port state" rather than the underlying BcmPort record.
func (m *Manager) GetPortState(key chassis.SlotPortChannel) status.StatusOr[*state.PortState] {
	return m.GetBcmPort(key)
}
