// Package basemap implements the Base Map Loader (C2): parsing and
// validating the vendor base chassis inventory from a human-editable text
// file, selected by id. The line scanning style follows the teacher
// codebase's sch.In.ReadLinesFrom convention (bufio.Scanner over an
// io.Reader, one logical record per line).
package basemap

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/platinasystems/bcmchassis/chassis"
	"github.com/platinasystems/bcmchassis/status"
)

// Load reads the named file and returns the entry whose id matches
// wantID, or the first entry when wantID is empty. Fails with INTERNAL if
// no entry is found or any field fails validation.
func Load(path, wantID string) status.StatusOr[*chassis.BcmChassisMap] {
	f, err := os.Open(path)
	if err != nil {
		return status.Err[*chassis.BcmChassisMap](status.Internalf("basemap: open %s: %v", path, err))
	}
	defer f.Close()
	return Parse(f, wantID)
}

// Parse reads candidate chassis maps from r and returns the entry matching
// wantID (or the first entry when wantID is empty).
func Parse(r io.Reader, wantID string) status.StatusOr[*chassis.BcmChassisMap] {
	maps, st := parseAll(r)
	if !st.IsOK() {
		return status.Err[*chassis.BcmChassisMap](st)
	}
	for i := range maps {
		if wantID == "" || maps[i].ID == wantID {
			if st := validate(&maps[i]); !st.IsOK() {
				return status.Err[*chassis.BcmChassisMap](st)
			}
			return status.Of(&maps[i])
		}
	}
	return status.Err[*chassis.BcmChassisMap](status.Internalf("basemap: no chassis map with id %q", wantID))
}

func parseAll(r io.Reader) ([]chassis.BcmChassisMap, status.Status) {
	var maps []chassis.BcmChassisMap
	var cur *chassis.BcmChassisMap

	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scan.Scan() {
		lineNo++
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		kv := fieldMap(fields[1:])
		switch fields[0] {
		case "chassis":
			maps = append(maps, chassis.BcmChassisMap{
				ID:                  kvString(kv, "id", ""),
				AutoAddSlot:         kvBool(kv, "auto_add_slot"),
				AutoAddLogicalPorts: kvBool(kv, "auto_add_logical_ports"),
			})
			cur = &maps[len(maps)-1]
		case "chip":
			if cur == nil {
				return nil, status.Internalf("basemap: line %d: chip outside chassis block", lineNo)
			}
			cur.Chips = append(cur.Chips, chassis.BcmChip{
				Unit:             kvInt(kv, "unit"),
				Type:             parseChipType(kvString(kv, "type", "")),
				Slot:             kvInt(kv, "slot"),
				Module:           kvInt(kv, "module"),
				PCIBus:           kvInt(kv, "pci_bus"),
				PCISlot:          kvInt(kv, "pci_slot"),
				IsOversubscribed: kvBool(kv, "oversubscribed"),
			})
		case "port":
			if cur == nil {
				return nil, status.Internalf("basemap: line %d: port outside chassis block", lineNo)
			}
			cur.Ports = append(cur.Ports, chassis.BcmPort{
				Type:           parsePortType(kvString(kv, "type", "")),
				Slot:           kvInt(kv, "slot"),
				Port:           kvInt(kv, "port"),
				Channel:        kvInt(kv, "channel"),
				Unit:           kvInt(kv, "unit"),
				LogicalPort:    kvInt(kv, "logical_port"),
				PhysicalPort:   kvInt(kv, "physical_port"),
				DiagPort:       kvInt(kv, "diag_port"),
				Module:         kvInt(kv, "module"),
				SerdesCore:     kvInt(kv, "serdes_core"),
				SerdesLane:     kvInt(kv, "serdes_lane"),
				NumSerdesLanes: kvInt(kv, "num_serdes_lanes"),
				TxLaneMap:      kvUint32(kv, "tx_lane_map"),
				RxLaneMap:      kvUint32(kv, "rx_lane_map"),
				TxPolarityFlip: kvUint32(kv, "tx_polarity_flip"),
				RxPolarityFlip: kvUint32(kv, "rx_polarity_flip"),
				SpeedBps:       kvUint64(kv, "speed_gbps") * 1_000_000_000,
				Internal:       kvBool(kv, "internal"),
				FlexPort:       kvBool(kv, "flex_port"),
			})
		case "end":
			cur = nil
		default:
			return nil, status.Internalf("basemap: line %d: unknown record %q", lineNo, fields[0])
		}
	}
	if err := scan.Err(); err != nil {
		return nil, status.Internalf("basemap: scan: %v", err)
	}
	return maps, status.OK()
}

func fieldMap(fields []string) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		if eq := strings.IndexByte(f, '='); eq > 0 {
			m[f[:eq]] = f[eq+1:]
		}
	}
	return m
}

func kvString(m map[string]string, key, def string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

func kvInt(m map[string]string, key string) int {
	v, _ := strconv.Atoi(m[key])
	return v
}

func kvUint32(m map[string]string, key string) uint32 {
	v, _ := strconv.ParseUint(m[key], 0, 32)
	return uint32(v)
}

func kvUint64(m map[string]string, key string) uint64 {
	v, _ := strconv.ParseUint(m[key], 0, 64)
	return v
}

func kvBool(m map[string]string, key string) bool {
	v, ok := m[key]
	return ok && (v == "true" || v == "1" || v == "yes")
}

func parseChipType(s string) chassis.ChipType {
	switch s {
	case "TRIDENT_PLUS":
		return chassis.ChipTypeTridentPlus
	case "TRIDENT2":
		return chassis.ChipTypeTrident2
	case "TOMAHAWK":
		return chassis.ChipTypeTomahawk
	default:
		return chassis.ChipTypeUnknown
	}
}

func parsePortType(s string) chassis.PortType {
	switch s {
	case "XE":
		return chassis.PortTypeXE
	case "CE":
		return chassis.PortTypeCE
	case "MGMT":
		return chassis.PortTypeMGMT
	default:
		return chassis.PortTypeUnknown
	}
}

// validate applies the per-chip and per-port field rules from
// SPEC_FULL.md §4.2.
func validate(m *chassis.BcmChassisMap) status.Status {
	units := map[int]bool{}
	modules := map[int]bool{}
	for _, c := range m.Chips {
		if !m.AutoAddSlot && c.Slot <= 0 {
			return status.Internalf("basemap: chip unit %d: slot must be positive unless auto_add_slot", c.Unit)
		}
		if c.PCIBus < 0 || c.PCISlot < 0 {
			return status.Internalf("basemap: chip unit %d: negative pci coordinates", c.Unit)
		}
		if c.Module < 0 {
			return status.Internalf("basemap: chip unit %d: negative module", c.Unit)
		}
		if units[c.Unit] {
			return status.Internalf("basemap: duplicate chip unit %d", c.Unit)
		}
		units[c.Unit] = true
		if modules[c.Module] {
			return status.Internalf("basemap: duplicate chip module %d", c.Module)
		}
		modules[c.Module] = true
	}
	for i, p := range m.Ports {
		if p.Channel < 0 || p.Channel > 4 {
			return status.Internalf("basemap: port %d: channel %d out of [0,4]", i, p.Channel)
		}
		if p.SpeedBps%1_000_000_000 != 0 {
			return status.Internalf("basemap: port %d: speed_bps %d not a multiple of 1 Gb/s", i, p.SpeedBps)
		}
		if p.SerdesLane < 0 || p.SerdesLane > 3 {
			return status.Internalf("basemap: port %d: serdes_lane %d out of [0,3]", i, p.SerdesLane)
		}
		if p.Type != chassis.PortTypeMGMT && (p.NumSerdesLanes < 1 || p.NumSerdesLanes > 4) {
			return status.Internalf("basemap: port %d: num_serdes_lanes %d out of [1,4]", i, p.NumSerdesLanes)
		}
		if (p.LogicalPort == 0) != m.AutoAddLogicalPorts {
			return status.Internalf(
				"basemap: port %d: logical_port=0 must hold iff auto_add_logical_ports (got logical_port=%d, auto_add_logical_ports=%v)",
				i, p.LogicalPort, m.AutoAddLogicalPorts)
		}
	}
	return status.OK()
}
