// Package portgroup implements the Port-Group Configurator (C7):
// flex-group speed changes and the per-port options pass that follows a
// push, grounded on stratum's BcmChassisManager::SetSpeedForFlexPortGroup
// and SetPortOptionsForPortGroup (SPEC_FULL.md §4.6).
package portgroup

import (
	"github.com/platinasystems/bcmchassis/chassis"
	"github.com/platinasystems/bcmchassis/phal"
	"github.com/platinasystems/bcmchassis/sdk"
	"github.com/platinasystems/bcmchassis/state"
	"github.com/platinasystems/bcmchassis/status"
)

// SetSpeedForFlexPortGroup disables and blocks every min-speed logical port listed
// for (slot,port) in the base map — deliberately the full base-map
// listing, a superset of the currently applied group, matching the
// upstream implementation's behavior rather than narrowing to only the
// applied members — configures num_serdes_lanes on the control logical
// port, then sets speed_bps on every applied member. It never
// re-enables a port; a later SetPortOptionsForPortGroup pass does that.
// The control port is the lexicographically-smallest logical port among
// the new, configured group, not the base (min-speed) group; if it is
// already running at the desired speed the whole sequence is a no-op.
func SetSpeedForFlexPortGroup(sdkIface sdk.Interface, base, applied *chassis.BcmChassisMap, sp chassis.SlotPort, unit int) status.Status {
	var control *chassis.BcmPort
	for i := range applied.Ports {
		p := &applied.Ports[i]
		if p.Slot != sp.Slot || p.Port != sp.Port {
			continue
		}
		if control == nil || p.LogicalPort < control.LogicalPort {
			control = p
		}
	}
	if control == nil {
		return status.OK()
	}

	curRes := sdkIface.GetPortOptions(unit, control.LogicalPort)
	if !curRes.Ok() {
		return curRes.Status()
	}
	if cur := curRes.Value(); cur.SpeedBpsSet && cur.SpeedBps == control.SpeedBps {
		return status.OK()
	}

	for _, p := range base.Ports {
		if p.Slot != sp.Slot || p.Port != sp.Port {
			continue
		}
		if s := sdkIface.SetPortOptions(unit, p.LogicalPort,
			sdk.PortOptions{EnabledSet: true, Enabled: false, BlockedSet: true, Blocked: true}); !s.IsOK() {
			return s
		}
	}

	if s := sdkIface.SetPortOptions(unit, control.LogicalPort,
		sdk.PortOptions{NumSerdesLanesSet: true, NumSerdesLanes: control.NumSerdesLanes}); !s.IsOK() {
		return s
	}

	for _, p := range applied.Ports {
		if p.Slot != sp.Slot || p.Port != sp.Port {
			continue
		}
		if s := sdkIface.SetPortOptions(unit, p.LogicalPort,
			sdk.PortOptions{SpeedBpsSet: true, SpeedBps: p.SpeedBps}); !s.IsOK() {
			return s
		}
	}
	return status.OK()
}

// SetPortOptionsForPortGroup applies enable/blocked options to every
// applied port at (slot,port). In standalone mode, enabling a port
// first configures its serdes lanes via the PHAL front-panel info and
// serdes database, matching the real SDK bring-up order: serdes before
// enable.
func SetPortOptionsForPortGroup(sdkIface sdk.Interface, phalIface phal.Interface, serdesDB phal.SerdesDbManager,
	applied *chassis.BcmChassisMap, sp chassis.SlotPort, unit int, enable bool, standalone bool) status.Status {

	for _, p := range applied.Ports {
		if p.Slot != sp.Slot || p.Port != sp.Port {
			continue
		}
		if enable && standalone {
			if s := configSerdesForPort(sdkIface, phalIface, serdesDB, p, unit); !s.IsOK() {
				return s
			}
		}
		if s := sdkIface.SetPortOptions(unit, p.LogicalPort,
			sdk.PortOptions{EnabledSet: true, Enabled: enable, BlockedSet: true, Blocked: !enable}); !s.IsOK() {
			return s
		}
	}
	return status.OK()
}

func configSerdesForPort(sdkIface sdk.Interface, phalIface phal.Interface, serdesDB phal.SerdesDbManager,
	p chassis.BcmPort, unit int) status.Status {

	infoRes := phalIface.GetFrontPanelPortInfo(p.Slot, p.Port)
	if !infoRes.Ok() {
		return infoRes.Status()
	}
	cfgRes := serdesDB.LookupSerdesConfigForPort(infoRes.Value(), p.SpeedBps)
	if !cfgRes.Ok() {
		return cfgRes.Status()
	}
	cfg := cfgRes.Value()
	return sdkIface.ConfigSerdesForPort(unit, p.LogicalPort, p.SpeedBps, p.SerdesCore, p.SerdesLane, p.NumSerdesLanes,
		sdk.SerdesLaneConfig{
			InterfaceType:    cfg.InterfaceType,
			RegisterConfigs:  cfg.RegisterConfigs,
			AttributeConfigs: cfg.AttributeConfigs,
		})
}

// ConfigurePortGroups runs the §4.6 port-options pass over every applied
// (slot,port) group whose live TransceiverState is not already READY:
// PRESENT groups are enabled, and promoted to READY on success;
// NOT_PRESENT/UNKNOWN groups are disabled and blocked. It is the C7 step
// both the first push (every group starts this way) and a later push's
// reconfigure path (after DemoteOnSpeedChange has knocked a changed
// group back down to PRESENT) run through uniformly. A failure on one
// group does not stop the pass over the others; once every group has
// been attempted, the caller gets back all failures folded together with
// Status.Append (the first failure's code, every failure's message).
func ConfigurePortGroups(sdkIface sdk.Interface, phalIface phal.Interface, serdesDB phal.SerdesDbManager,
	store *state.Store, standalone bool) status.Status {

	applied := store.Applied()
	groups := map[chassis.SlotPort]bool{}
	for _, p := range applied.Ports {
		groups[p.SlotPort()] = true
	}

	var result status.Status
	for sp := range groups {
		ts, unit, ok := store.GroupState(sp.Slot, sp.Port)
		if !ok || ts == chassis.TransceiverReady {
			continue
		}
		enable := ts == chassis.TransceiverPresent
		s := SetPortOptionsForPortGroup(sdkIface, phalIface, serdesDB, applied, sp, unit, enable, standalone)
		if !s.IsOK() {
			result = result.Append(s)
			continue
		}
		if enable {
			store.SetTransceiverStateForGroup(sp.Slot, sp.Port, chassis.TransceiverReady)
		}
	}
	return result
}

// DemoteOnSpeedChange drops a port's live transceiver state from READY
// back to PRESENT when its speed is about to change, since a module
// qualified as READY at one speed is not necessarily qualified at
// another (SPEC_FULL.md §4.5/§4.6).
func DemoteOnSpeedChange(store *state.Store, key chassis.SlotPortChannel) {
	ps, ok := store.PortBySlotPortChannel(key)
	if !ok || ps.TransceiverState != chassis.TransceiverReady {
		return
	}
	store.SetTransceiverState(key, chassis.TransceiverPresent)
}
