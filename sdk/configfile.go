package sdk

import (
	"fmt"
	"sort"
	"strings"

	"github.com/platinasystems/bcmchassis/chassis"
)

// flexChannelSpeedsGbps is the per-chip-type, per-channel speed a flex
// port's portmap_ line renders, independent of the port's resolved
// SpeedBps (which the resolver sets uniformly to the chip's minimum
// flex speed). Grounded on WriteBcmConfigFile's
// flex_chip_to_channel_to_speed table: the min-speed channelization
// the resolver tracks is not what a flex group's default wiring runs
// at before any Port-Group Configurator speed change.
var flexChannelSpeedsGbps = map[chassis.ChipType][4]uint64{
	chassis.ChipTypeTomahawk: {100, 25, 50, 25},
	chassis.ChipTypeTrident2: {40, 10, 20, 10},
}

// RenderConfigFile implements the §6.2 SDK config file format: a
// deterministic, line-oriented key/value rendering of the applied map.
func RenderConfigFile(applied *chassis.BcmChassisMap, simulated bool) string {
	var b strings.Builder

	for _, prop := range applied.SDKProperties {
		fmt.Fprintln(&b, prop)
	}
	if simulated {
		fmt.Fprintln(&b, "tdma_intr_enable=0")
		fmt.Fprintln(&b, "tslam_dma_enable=0")
		fmt.Fprintln(&b, "table_dma_enable=0")
	}

	units := sortedUnits(applied)
	chipByUnit := map[int]chassis.BcmChip{}
	for _, c := range applied.Chips {
		chipByUnit[c.Unit] = c
	}
	portsByUnit := map[int][]chassis.BcmPort{}
	for _, p := range applied.Ports {
		portsByUnit[p.Unit] = append(portsByUnit[p.Unit], p)
	}

	for _, unit := range units {
		chip := chipByUnit[unit]
		for _, prop := range chip.SDKProperties {
			fmt.Fprintln(&b, prop)
		}

		ports := portsByUnit[unit]
		sort.Slice(ports, func(i, j int) bool { return ports[i].LogicalPort < ports[j].LogicalPort })

		bitmap := xePortBitmap(ports)
		bitmapHex := formatBitmap(bitmap)
		fmt.Fprintf(&b, "pbmp_xport_xe.%d=0x%s\n", unit, bitmapHex)
		if chip.IsOversubscribed {
			fmt.Fprintf(&b, "pbmp_oversubscribe.%d=0x%s\n", unit, bitmapHex)
		}

		for _, p := range ports {
			speedGb := p.SpeedBps / 1_000_000_000
			if p.FlexPort && p.Channel >= 1 && p.Channel <= 4 {
				if speeds, ok := flexChannelSpeedsGbps[chip.Type]; ok {
					speedGb = speeds[p.Channel-1]
				}
			}
			line := fmt.Sprintf("portmap_%d.%d=%d:%d", p.LogicalPort, unit, p.PhysicalPort, speedGb)
			if p.FlexPort && p.SerdesLane != 0 {
				line += ":i"
			}
			fmt.Fprintln(&b, line)
		}
		for _, p := range ports {
			fmt.Fprintf(&b, "dport_map_port_%d.%d=%d\n", p.LogicalPort, unit, p.DiagPort)
		}
		for _, p := range ports {
			if p.TxLaneMap != 0 {
				fmt.Fprintf(&b, "xgxs_tx_lane_map_xe%d.%d=0x%x\n", p.DiagPort, unit, p.TxLaneMap)
			}
			if p.RxLaneMap != 0 {
				fmt.Fprintf(&b, "xgxs_rx_lane_map_xe%d.%d=0x%x\n", p.DiagPort, unit, p.RxLaneMap)
			}
		}
		for _, p := range ports {
			if p.TxPolarityFlip != 0 {
				fmt.Fprintf(&b, "phy_xaui_tx_polarity_flip_xe%d.%d=0x%x\n", p.DiagPort, unit, p.TxPolarityFlip)
			}
			if p.RxPolarityFlip != 0 {
				fmt.Fprintf(&b, "phy_xaui_rx_polarity_flip_xe%d.%d=0x%x\n", p.DiagPort, unit, p.RxPolarityFlip)
			}
		}
		for _, p := range ports {
			for _, prop := range p.SDKProperties {
				fmt.Fprintln(&b, prop)
			}
		}
	}
	return b.String()
}

func sortedUnits(applied *chassis.BcmChassisMap) []int {
	seen := map[int]bool{}
	var units []int
	for _, c := range applied.Chips {
		if !seen[c.Unit] {
			seen[c.Unit] = true
			units = append(units, c.Unit)
		}
	}
	sort.Ints(units)
	return units
}

// xePortBitmap sets bit i iff logical port i is XE or CE, spanning up to
// three 64-bit words (192 logical ports per chip).
func xePortBitmap(ports []chassis.BcmPort) [3]uint64 {
	var words [3]uint64
	for _, p := range ports {
		if p.Type != chassis.PortTypeXE && p.Type != chassis.PortTypeCE {
			continue
		}
		i := p.LogicalPort
		if i < 0 || i >= 192 {
			continue
		}
		words[i/64] |= 1 << uint(i%64)
	}
	return words
}

// formatBitmap concatenates the three words big-end-first, zero padded,
// trimming leading all-zero words but never producing an empty string.
func formatBitmap(words [3]uint64) string {
	hi, mid, lo := words[2], words[1], words[0]
	switch {
	case hi != 0:
		return fmt.Sprintf("%x%016x%016x", hi, mid, lo)
	case mid != 0:
		return fmt.Sprintf("%x%016x", mid, lo)
	default:
		return fmt.Sprintf("%x", lo)
	}
}
