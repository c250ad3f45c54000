// Package resolver implements the Map Resolver (C3): a pure function from
// (config, base map) to a validated (base, applied) pair, following the
// thirteen-step algorithm of SPEC_FULL.md §4.1. It has no side effects and
// no dependency on any collaborator; callers invoke it from both the verify
// and push flows.
package resolver

import (
	"sort"

	"github.com/platinasystems/bcmchassis/chassis"
	"github.com/platinasystems/bcmchassis/status"
)

// Per-chip port ceilings (step 11).
const (
	MaxTomahawkPortsPerChip = 128
	MaxTrident2PortsPerChip = 128
)

// expectedChannels is the speed -> required channel set table of step 9.
var expectedChannels = map[uint64][]int{
	100_000_000_000: {0},
	40_000_000_000:  {0},
	50_000_000_000:  {1, 2},
	20_000_000_000:  {1, 2},
	25_000_000_000:  {1, 2, 3, 4},
	10_000_000_000:  {1, 2, 3, 4},
}

// minFlexSpeedGbps is the per-chip-type uniform minimum speed step 10's
// flex expansion resolves every channel of a flex group to. The
// non-uniform per-channel speed table a real SDK config file renders
// for a flex port's portmap_ line lives in sdk/configfile.go instead;
// it is a render-time concern, not a resolve-time one.
var minFlexSpeedGbps = map[chassis.ChipType]uint64{
	chassis.ChipTypeTomahawk: 25,
	chassis.ChipTypeTrident2: 10,
}

// supportedChipTypes maps a platform to the chip types the resolver will
// accept (step 3). PlatformGeneric accepts every known chip type; a real
// deployment would enumerate a narrower, platform-specific set here.
var supportedChipTypes = map[chassis.Platform]map[chassis.ChipType]bool{
	chassis.PlatformGeneric: {
		chassis.ChipTypeTridentPlus: true,
		chassis.ChipTypeTrident2:    true,
		chassis.ChipTypeTomahawk:    true,
	},
}

// Result is the output of a successful Resolve: the unmodified base map
// (post slot-overwrite) and the closed, expanded applied map.
type Result struct {
	Base          *chassis.BcmChassisMap
	Applied       *chassis.BcmChassisMap
	NodeIDToUnit  map[uint64]int
}

// Resolve runs the thirteen-step algorithm against a copy of base (base is
// never mutated in place; Resolve clones it before any slot overwrite), and
// returns a fresh Result on success.
func Resolve(cfg *chassis.Config, base *chassis.BcmChassisMap) status.StatusOr[*Result] {
	b := base.Clone()

	// Step 2: slot auto-population.
	if b.AutoAddSlot {
		slot, st := singleConfigSlot(cfg)
		if !st.IsOK() {
			return status.Err[*Result](st)
		}
		for i := range b.Chips {
			b.Chips[i].Slot = slot
		}
		for i := range b.Ports {
			b.Ports[i].Slot = slot
		}
	}

	// Step 3: platform -> supported chip types.
	allowed, ok := supportedChipTypes[cfg.Platform]
	if !ok {
		return status.Err[*Result](status.Internalf("resolver: unknown platform %v", cfg.Platform))
	}

	// Step 4: copy invariants.
	applied := &chassis.BcmChassisMap{
		ID:                  b.ID,
		AutoAddLogicalPorts: b.AutoAddLogicalPorts,
		AutoAddSlot:         b.AutoAddSlot,
		SDKProperties:       append([]string(nil), b.SDKProperties...),
	}

	// Step 5: node validation.
	nodeIDToUnit := map[uint64]int{}
	seenNodeID := map[uint64]bool{}
	for _, n := range cfg.Nodes {
		if n.ID == 0 {
			return status.Err[*Result](status.Internalf("resolver: node id must be positive"))
		}
		if n.Slot <= 0 {
			return status.Err[*Result](status.Internalf("resolver: node %d: slot must be positive", n.ID))
		}
		if seenNodeID[n.ID] {
			return status.Err[*Result](status.Internalf("resolver: duplicate node id %d", n.ID))
		}
		seenNodeID[n.ID] = true
		nodeIDToUnit[n.ID] = -1
	}

	// Step 6: per-singleton-port validation.
	seenPortID := map[uint64]bool{}
	seenSPC := map[chassis.SlotPortChannel]bool{}
	flexSet := map[chassis.SlotPort]bool{}
	nonFlexSet := map[chassis.SlotPort]bool{}

	for _, s := range cfg.SingletonPorts {
		if s.ID == 0 || s.ID == chassis.CPUPortID {
			return status.Err[*Result](status.Internalf("resolver: singleton port id must be positive and not the reserved CPU id"))
		}
		if seenPortID[s.ID] {
			return status.Err[*Result](status.Internalf("resolver: duplicate singleton port id %d", s.ID))
		}
		seenPortID[s.ID] = true

		if s.Slot <= 0 || s.Port <= 0 || s.SpeedBps == 0 {
			return status.Err[*Result](status.Internalf("resolver: singleton port %d: slot, port and speed_bps must be positive", s.ID))
		}
		spc := chassis.SlotPortChannel{Slot: s.Slot, Port: s.Port, Channel: s.Channel}
		if seenSPC[spc] {
			return status.Err[*Result](status.Internalf("resolver: duplicate (slot,port,channel) %+v", spc))
		}
		seenSPC[spc] = true

		if _, ok := nodeIDToUnit[s.Node]; !ok {
			return status.Err[*Result](status.Internalf("resolver: singleton port %d: node %d not declared", s.ID, s.Node))
		}

		match, st := findMatchingBasePort(b, s)
		if !st.IsOK() {
			return status.Err[*Result](st)
		}

		sp := chassis.SlotPort{Slot: s.Slot, Port: s.Port}
		if match.FlexPort {
			if nonFlexSet[sp] {
				return status.Err[*Result](status.Internalf("resolver: (slot,port) %+v has both flex and non-flex singletons", sp))
			}
			flexSet[sp] = true
		} else {
			if flexSet[sp] {
				return status.Err[*Result](status.Internalf("resolver: (slot,port) %+v has both flex and non-flex singletons", sp))
			}
			nonFlexSet[sp] = true
			applied.Ports = append(applied.Ports, match)
		}

		if bound := nodeIDToUnit[s.Node]; bound != -1 && bound != match.Unit {
			return status.Err[*Result](status.Internalf("resolver: node %d bound to unit %d and unit %d", s.Node, bound, match.Unit))
		}
		nodeIDToUnit[s.Node] = match.Unit
	}

	// Step 7: chip emission, in ascending unit order.
	var boundUnits []int
	emittedUnit := map[int]bool{}
	for _, unit := range nodeIDToUnit {
		if unit == -1 || emittedUnit[unit] {
			continue
		}
		emittedUnit[unit] = true
		boundUnits = append(boundUnits, unit)
	}
	sort.Ints(boundUnits)
	for _, unit := range boundUnits {
		chip, st := findChip(b, unit)
		if !st.IsOK() {
			return status.Err[*Result](st)
		}
		if !allowed[chip.Type] {
			return status.Err[*Result](status.Internalf("resolver: chip type %v not supported on this platform", chip.Type))
		}
		applied.Chips = append(applied.Chips, chip)
	}

	// Step 8: internal/external coherence, step 9: speed/channel policy —
	// evaluated per (slot,port) group over the config's singleton ports.
	if st := checkGroupCoherence(b, cfg, flexSet); !st.IsOK() {
		return status.Err[*Result](st)
	}

	// Step 10: flex expansion, in ascending (slot,port) order.
	flexGroups := make([]chassis.SlotPort, 0, len(flexSet))
	for sp := range flexSet {
		flexGroups = append(flexGroups, sp)
	}
	sort.Slice(flexGroups, func(i, j int) bool {
		if flexGroups[i].Slot != flexGroups[j].Slot {
			return flexGroups[i].Slot < flexGroups[j].Slot
		}
		return flexGroups[i].Port < flexGroups[j].Port
	})
	for _, sp := range flexGroups {
		if st := expandFlexGroup(b, applied, sp); !st.IsOK() {
			return status.Err[*Result](st)
		}
	}

	// Step 11: per-chip port cap.
	if st := checkPortCaps(applied); !st.IsOK() {
		return status.Err[*Result](st)
	}

	// Step 12: logical-port assignment.
	if applied.AutoAddLogicalPorts {
		assignLogicalPorts(applied)
	} else {
		for _, p := range applied.Ports {
			if p.LogicalPort <= 0 {
				return status.Err[*Result](status.Internalf("resolver: logical_port must be positive when auto_add_logical_ports is false"))
			}
		}
	}

	// Step 13: post-validation.
	if st := checkUniqueness(applied); !st.IsOK() {
		return status.Err[*Result](st)
	}

	delete(nodeIDToUnit, 0)
	return status.Of(&Result{Base: b, Applied: applied, NodeIDToUnit: nodeIDToUnit})
}

func singleConfigSlot(cfg *chassis.Config) (int, status.Status) {
	slot := 0
	for _, n := range cfg.Nodes {
		if slot == 0 {
			slot = n.Slot
		} else if n.Slot != slot {
			return 0, status.Internalf("resolver: auto_add_slot requires a single slot, found %d and %d", slot, n.Slot)
		}
	}
	for _, s := range cfg.SingletonPorts {
		if slot == 0 {
			slot = s.Slot
		} else if s.Slot != slot {
			return 0, status.Internalf("resolver: auto_add_slot requires a single slot, found %d and %d", slot, s.Slot)
		}
	}
	if slot == 0 {
		return 0, status.Internalf("resolver: auto_add_slot set but config declares no slot")
	}
	return slot, status.OK()
}

// findMatchingBasePort implements step 6's base-port match: first base
// port (in base order) matching on (slot, port, channel, speed_bps) with
// type XE or CE.
func findMatchingBasePort(b *chassis.BcmChassisMap, s chassis.SingletonPort) (chassis.BcmPort, status.Status) {
	for _, p := range b.Ports {
		if p.Slot == s.Slot && p.Port == s.Port && p.Channel == s.Channel &&
			p.SpeedBps == s.SpeedBps &&
			(p.Type == chassis.PortTypeXE || p.Type == chassis.PortTypeCE) {
			return p, status.OK()
		}
	}
	return chassis.BcmPort{}, status.Internalf(
		"resolver: singleton port %d: no base port matches (slot=%d,port=%d,channel=%d,speed=%d)",
		s.ID, s.Slot, s.Port, s.Channel, s.SpeedBps)
}

func findChip(b *chassis.BcmChassisMap, unit int) (chassis.BcmChip, status.Status) {
	for _, c := range b.Chips {
		if c.Unit == unit {
			return c, status.OK()
		}
	}
	return chassis.BcmChip{}, status.Internalf("resolver: no base chip for unit %d", unit)
}

func checkGroupCoherence(b *chassis.BcmChassisMap, cfg *chassis.Config, flexSet map[chassis.SlotPort]bool) status.Status {
	type group struct {
		internalSeen bool
		internal     bool
		speed        uint64
		speedSeen    bool
		channels     map[int]bool
	}
	groups := map[chassis.SlotPort]*group{}
	for _, s := range cfg.SingletonPorts {
		sp := chassis.SlotPort{Slot: s.Slot, Port: s.Port}
		g := groups[sp]
		if g == nil {
			g = &group{channels: map[int]bool{}}
			groups[sp] = g
		}
		g.channels[s.Channel] = true
		if !g.speedSeen {
			g.speed = s.SpeedBps
			g.speedSeen = true
		} else if g.speed != s.SpeedBps {
			return status.Internalf("resolver: (slot,port) %+v has mixed speeds", sp)
		}

		match, st := findMatchingBasePort(b, s)
		if !st.IsOK() {
			return st
		}
		if !g.internalSeen {
			g.internal = match.Internal
			g.internalSeen = true
		} else if g.internal != match.Internal {
			return status.Internalf("resolver: (slot,port) %+v mixes internal and external ports", sp)
		}
	}
	for sp, g := range groups {
		if flexSet[sp] {
			continue // flex groups are validated post-expansion in step 10.
		}
		want, ok := expectedChannels[g.speed]
		if !ok {
			return status.Internalf("resolver: (slot,port) %+v: unsupported speed %d", sp, g.speed)
		}
		if !sameChannelSet(g.channels, want) {
			return status.Internalf("resolver: (slot,port) %+v: channels do not match speed %d policy", sp, g.speed)
		}
	}
	return status.OK()
}

func sameChannelSet(got map[int]bool, want []int) bool {
	if len(got) != len(want) {
		return false
	}
	for _, w := range want {
		if !got[w] {
			return false
		}
	}
	return true
}

// expandFlexGroup implements step 10: synthesize four channel entries,
// all at the chip type's uniform minimum flex speed, copying the
// matching base port for each synthetic channel into applied.
func expandFlexGroup(b, applied *chassis.BcmChassisMap, sp chassis.SlotPort) status.Status {
	var chipType chassis.ChipType
	seen := false
	for _, p := range b.Ports {
		if p.Slot != sp.Slot || p.Port != sp.Port {
			continue
		}
		unit := p.Unit
		chip, st := findChip(b, unit)
		if !st.IsOK() {
			return st
		}
		if seen && chip.Type != chipType {
			return status.Internalf("resolver: flex (slot,port) %+v spans multiple chip types", sp)
		}
		chipType = chip.Type
		seen = true
	}
	if !seen {
		return status.Internalf("resolver: flex (slot,port) %+v matches no base port", sp)
	}
	minSpeedGbps, ok := minFlexSpeedGbps[chipType]
	if !ok {
		return status.Internalf("resolver: flex (slot,port) %+v: chip type %v does not support flex expansion", sp, chipType)
	}
	wantSpeed := minSpeedGbps * 1_000_000_000
	for ch := 1; ch <= 4; ch++ {
		found := false
		for _, p := range b.Ports {
			if p.Slot == sp.Slot && p.Port == sp.Port && p.Channel == ch && p.SpeedBps == wantSpeed {
				applied.Ports = append(applied.Ports, p)
				found = true
				break
			}
		}
		if !found {
			return status.Internalf("resolver: flex (slot,port) %+v: no base port for channel %d at the chip's %d Gb/s min flex speed", sp, ch, minSpeedGbps)
		}
	}
	return status.OK()
}

func checkPortCaps(applied *chassis.BcmChassisMap) status.Status {
	perChip := map[int]int{}
	chipType := map[int]chassis.ChipType{}
	for _, c := range applied.Chips {
		chipType[c.Unit] = c.Type
	}
	for _, p := range applied.Ports {
		perChip[p.Unit]++
	}
	for unit, n := range perChip {
		switch chipType[unit] {
		case chassis.ChipTypeTomahawk:
			if n > MaxTomahawkPortsPerChip {
				return status.Internalf("resolver: unit %d exceeds Tomahawk port cap (%d > %d)", unit, n, MaxTomahawkPortsPerChip)
			}
		case chassis.ChipTypeTrident2:
			if n > MaxTrident2PortsPerChip {
				return status.Internalf("resolver: unit %d exceeds Trident2 port cap (%d > %d)", unit, n, MaxTrident2PortsPerChip)
			}
		}
	}
	return status.OK()
}

// assignLogicalPorts implements step 12: per chip, sort applied
// (slot,port,channel) tuples lexicographically and assign 1-based index;
// logical port 0 stays reserved for the CMIC port.
func assignLogicalPorts(applied *chassis.BcmChassisMap) {
	byChip := map[int][]int{} // unit -> indices into applied.Ports
	for i, p := range applied.Ports {
		byChip[p.Unit] = append(byChip[p.Unit], i)
	}
	for _, idxs := range byChip {
		sort.Slice(idxs, func(a, b int) bool {
			pa, pb := applied.Ports[idxs[a]], applied.Ports[idxs[b]]
			if pa.Slot != pb.Slot {
				return pa.Slot < pb.Slot
			}
			if pa.Port != pb.Port {
				return pa.Port < pb.Port
			}
			return pa.Channel < pb.Channel
		})
		for rank, idx := range idxs {
			applied.Ports[idx].LogicalPort = rank + 1
		}
	}
}

func checkUniqueness(applied *chassis.BcmChassisMap) status.Status {
	physical := map[[2]int]bool{}
	diag := map[[2]int]bool{}
	logical := map[[2]int]bool{}
	for _, p := range applied.Ports {
		pk := [2]int{p.Unit, p.PhysicalPort}
		if physical[pk] {
			return status.Internalf("resolver: unit %d: duplicate physical_port %d", p.Unit, p.PhysicalPort)
		}
		physical[pk] = true

		dk := [2]int{p.Unit, p.DiagPort}
		if diag[dk] {
			return status.Internalf("resolver: unit %d: duplicate diag_port %d", p.Unit, p.DiagPort)
		}
		diag[dk] = true

		lk := [2]int{p.Unit, p.LogicalPort}
		if logical[lk] {
			return status.Internalf("resolver: unit %d: duplicate logical_port %d", p.Unit, p.LogicalPort)
		}
		logical[lk] = true
	}
	return status.OK()
}
