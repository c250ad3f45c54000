package sdk

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/platinasystems/bcmchassis/chassis"
	"github.com/platinasystems/bcmchassis/status"
)

// BringUpOptions carries the file-system locations the sequencer writes
// to, per SPEC_FULL.md §6.2/§4.3.
type BringUpOptions struct {
	ConfigFile      string
	ConfigFlushFile string
	CheckpointDir   string
	Simulated       bool
}

// BringUp implements the SDK Bring-Up Sequencer (C4): render the applied
// map into the SDK config file format, create the checkpoint directory,
// attach every unit in ascending order and set its module id, initialize
// its ports, and start
// the diagnostic shell. It stops at the first collaborator failure.
func BringUp(sdk Interface, applied *chassis.BcmChassisMap, opts BringUpOptions) status.Status {
	rendered := RenderConfigFile(applied, opts.Simulated)
	if opts.ConfigFile != "" {
		if err := writeFile(opts.ConfigFile, rendered); err != nil {
			return status.Internalf("sdk: write config file %s: %v", opts.ConfigFile, err)
		}
	}
	if opts.ConfigFlushFile != "" {
		if err := writeFile(opts.ConfigFlushFile, rendered); err != nil {
			return status.Internalf("sdk: write config flush file %s: %v", opts.ConfigFlushFile, err)
		}
	}
	if opts.CheckpointDir != "" {
		if err := os.MkdirAll(opts.CheckpointDir, 0755); err != nil {
			return status.Internalf("sdk: create checkpoint dir %s: %v", opts.CheckpointDir, err)
		}
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
		if s := sdk.InitializeUnit(unit, chip.PCIBus, chip.PCISlot, chip.Type); !s.IsOK() {
			return s
		}
		if s := sdk.SetModuleID(unit, chip.Module); !s.IsOK() {
			return s
		}

		ports := portsByUnit[unit]
		sort.Slice(ports, func(i, j int) bool { return ports[i].LogicalPort < ports[j].LogicalPort })
		for _, p := range ports {
			if s := sdk.InitializePort(unit, p.LogicalPort); !s.IsOK() {
				return s
			}
		}
	}

	return sdk.StartDiagShellServer()
}

func writeFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0644)
}
