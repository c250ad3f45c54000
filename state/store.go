// Package state implements the Internal State Store (C5): the live,
// mutable view the manager serves queries from between a push and the
// next one, layered on top of the resolver's pure (base, applied) pair.
// SPEC_FULL.md §4.4 and §6.4.
package state

import (
	"github.com/platinasystems/bcmchassis/chassis"
	"github.com/platinasystems/bcmchassis/resolver"
	"github.com/platinasystems/bcmchassis/status"
)

// PortState is the live, per-port-instance state layered over a resolved
// BcmPort: its last-observed link and transceiver readiness.
type PortState struct {
	Port             chassis.BcmPort
	LinkState        chassis.LinkState
	TransceiverState chassis.TransceiverState
}

// Store holds the current applied map and every derived live view. It is
// not safe for concurrent use by itself; callers (the manager) serialize
// access with their own chassis lock.
type Store struct {
	initialized  bool
	base         *chassis.BcmChassisMap
	applied      *chassis.BcmChassisMap
	nodeIDToUnit map[uint64]int

	ports map[chassis.SlotPortChannel]*PortState
}

// New returns an empty, un-pushed store.
func New() *Store {
	return &Store{
		ports: map[chassis.SlotPortChannel]*PortState{},
	}
}

// Initialized reports whether a push has ever succeeded.
func (s *Store) Initialized() bool { return s.initialized }

// SyncInternalState replaces the store's resolved maps with res, the way
// a successful push does, while preserving the LinkState and
// TransceiverState of every (slot,port,channel) tuple that exists in
// both the old and new applied maps (SPEC_FULL.md §4.4 re-sync
// invariant). Tuples absent from the new applied map are dropped; newly
// introduced external tuples start UNKNOWN, since no transceiver-insert
// event has ever fired for them; internal (backplane) tuples start
// PRESENT instead, since no such event ever will (SPEC_FULL.md §3).
func (s *Store) SyncInternalState(res *resolver.Result) {
	next := map[chassis.SlotPortChannel]*PortState{}
	for _, p := range res.Applied.Ports {
		key := p.SlotPortChannel()
		ps := &PortState{Port: p}
		if old, ok := s.ports[key]; ok {
			ps.LinkState = old.LinkState
			ps.TransceiverState = old.TransceiverState
		} else if p.Internal {
			ps.TransceiverState = chassis.TransceiverPresent
		}
		next[key] = ps
	}
	s.base = res.Base
	s.applied = res.Applied
	s.nodeIDToUnit = res.NodeIDToUnit
	s.ports = next
	s.initialized = true
}

// Applied returns the current applied map, or nil before the first push.
func (s *Store) Applied() *chassis.BcmChassisMap { return s.applied }

// Base returns the current base map, or nil before the first push.
func (s *Store) Base() *chassis.BcmChassisMap { return s.base }

// PortByLogical looks up the live state of (unit, logical_port).
func (s *Store) PortByLogical(unit, logicalPort int) (*PortState, bool) {
	for _, ps := range s.ports {
		if ps.Port.Unit == unit && ps.Port.LogicalPort == logicalPort {
			return ps, true
		}
	}
	return nil, false
}

// PortBySlotPortChannel looks up the live state of a (slot,port,channel)
// tuple.
func (s *Store) PortBySlotPortChannel(key chassis.SlotPortChannel) (*PortState, bool) {
	ps, ok := s.ports[key]
	return ps, ok
}

// AllPorts returns every live port state, in no particular order.
func (s *Store) AllPorts() []*PortState {
	out := make([]*PortState, 0, len(s.ports))
	for _, ps := range s.ports {
		out = append(out, ps)
	}
	return out
}

// NodeIDToUnit returns the current node-to-unit binding map.
func (s *Store) NodeIDToUnit() map[uint64]int { return s.nodeIDToUnit }

// UnitFromNodeID resolves a single node to its bound unit.
func (s *Store) UnitFromNodeID(nodeID uint64) status.StatusOr[int] {
	if !s.initialized {
		return status.Err[int](status.NotInitializedf("state: no config has been pushed yet"))
	}
	unit, ok := s.nodeIDToUnit[nodeID]
	if !ok {
		return status.Err[int](status.NewVendor(status.NotFound, status.ChassisErrorSpace,
			status.EntryNotFound, "state: unknown node id %d", nodeID))
	}
	return status.Of(unit)
}

// SetLinkState updates the live link state of (unit, logical_port);
// unknown ports are silently ignored, matching the linkscan handler's
// drop-on-unknown-port behavior (SPEC_FULL.md §4.5).
func (s *Store) SetLinkState(unit, logicalPort int, ls chassis.LinkState) bool {
	ps, ok := s.PortByLogical(unit, logicalPort)
	if !ok {
		return false
	}
	ps.LinkState = ls
	return true
}

// SetTransceiverState updates the live transceiver state of a
// (slot,port,channel) tuple; unknown tuples are silently ignored.
func (s *Store) SetTransceiverState(key chassis.SlotPortChannel, ts chassis.TransceiverState) bool {
	ps, ok := s.ports[key]
	if !ok {
		return false
	}
	ps.TransceiverState = ts
	return true
}

// GroupState reports the transceiver state shared by every channel of
// the front-panel port group (slot,port) — one transceiver module
// serves the whole group — along with the unit that owns it. ok is
// false if no applied channel exists at (slot,port).
func (s *Store) GroupState(slot, port int) (ts chassis.TransceiverState, unit int, ok bool) {
	for key, ps := range s.ports {
		if key.Slot != slot || key.Port != port {
			continue
		}
		return ps.TransceiverState, ps.Port.Unit, true
	}
	return chassis.TransceiverUnknown, 0, false
}

// SetTransceiverStateForGroup sets the transceiver state on every
// channel of the front-panel port group (slot,port); it reports
// whether any channel was found.
func (s *Store) SetTransceiverStateForGroup(slot, port int, ts chassis.TransceiverState) bool {
	found := false
	for key, ps := range s.ports {
		if key.Slot != slot || key.Port != port {
			continue
		}
		ps.TransceiverState = ts
		found = true
	}
	return found
}
