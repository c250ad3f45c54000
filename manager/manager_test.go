package manager

import (
	"testing"
	"time"

	"github.com/platinasystems/bcmchassis/chassis"
	"github.com/platinasystems/bcmchassis/notify"
	"github.com/platinasystems/bcmchassis/phal"
	"github.com/platinasystems/bcmchassis/sdk"
	"github.com/platinasystems/bcmchassis/status"
)

func testBase() *chassis.BcmChassisMap {
	return &chassis.BcmChassisMap{
		ID:                  "t2",
		AutoAddSlot:         true,
		AutoAddLogicalPorts: true,
		Chips: []chassis.BcmChip{
			{Unit: 0, Type: chassis.ChipTypeTrident2, Slot: 0},
		},
		Ports: []chassis.BcmPort{
			{Type: chassis.PortTypeXE, Slot: 0, Port: 1, Channel: 0, Unit: 0,
				PhysicalPort: 1, DiagPort: 1, SpeedBps: 40_000_000_000, NumSerdesLanes: 1},
			{Type: chassis.PortTypeXE, Slot: 0, Port: 2, Channel: 0, Unit: 0,
				PhysicalPort: 2, DiagPort: 2, SpeedBps: 40_000_000_000, NumSerdesLanes: 1},
		},
	}
}

func testConfig(speedBps uint64) *chassis.Config {
	return &chassis.Config{
		Platform: chassis.PlatformGeneric,
		Nodes:    []chassis.Node{{ID: 100, Slot: 5}},
		SingletonPorts: []chassis.SingletonPort{
			{ID: 1, Slot: 5, Port: 1, Channel: 0, SpeedBps: speedBps, Node: 100},
		},
	}
}

func newTestManager(t *testing.T) (*Manager, *sdk.Simulated) {
	t.Helper()
	sim := sdk.NewSimulated("127.0.0.1:0")
	ph := phal.NewSimulated()
	db := &phal.SimulatedSerdesDb{}
	db.Load()
	m := New(Options{BaseMap: testBase(), Standalone: true}, sim, ph, db, notify.NullWriter{})
	return m, sim
}

func TestPushChassisConfigFirstPushBringsUpSDK(t *testing.T) {
	m, sim := newTestManager(t)
	if s := m.PushChassisConfig(testConfig(40_000_000_000)); !s.IsOK() {
		t.Fatalf("PushChassisConfig: %v", s)
	}
	if s := sim.FindUnit(0); !s.IsOK() {
		t.Errorf("unit 0 not attached after first push: %v", s)
	}
	unitRes := m.GetUnitFromNodeId(100)
	if !unitRes.Ok() || unitRes.Value() != 0 {
		t.Errorf("GetUnitFromNodeId(100) = %v, want unit 0", unitRes)
	}
}

func TestGetBcmPortNotInitializedBeforePush(t *testing.T) {
	m, _ := newTestManager(t)
	got := m.GetBcmPort(chassis.SlotPortChannel{Slot: 5, Port: 1, Channel: 0})
	if got.Ok() {
		t.Fatalf("expected NOT_INITIALIZED before any push")
	}
}

func TestVerifyChassisConfigRebootRequiredOnChipSetChange(t *testing.T) {
	m, _ := newTestManager(t)
	if s := m.PushChassisConfig(testConfig(40_000_000_000)); !s.IsOK() {
		t.Fatalf("PushChassisConfig: %v", s)
	}
	cfg := &chassis.Config{
		Platform: chassis.PlatformGeneric,
		Nodes:    []chassis.Node{{ID: 200, Slot: 6}},
		SingletonPorts: []chassis.SingletonPort{
			{ID: 2, Slot: 6, Port: 1, Channel: 0, SpeedBps: 40_000_000_000, Node: 200},
		},
	}
	got := m.VerifyChassisConfig(cfg)
	if got.IsOK() || !got.Is(status.RebootRequired) {
		t.Fatalf("VerifyChassisConfig = %v, want REBOOT_REQUIRED", got)
	}
}

func TestVerifyChassisConfigRebootRequiredOnPortMapChange(t *testing.T) {
	m, _ := newTestManager(t)
	if s := m.PushChassisConfig(testConfig(40_000_000_000)); !s.IsOK() {
		t.Fatalf("PushChassisConfig: %v", s)
	}
	// Same chip, same node, same unit — only the singleton moves from
	// port 1 to port 2 (channel 0 both times), changing the resolved applied port
	// map without changing the chip set at all.
	cfg := &chassis.Config{
		Platform: chassis.PlatformGeneric,
		Nodes:    []chassis.Node{{ID: 100, Slot: 5}},
		SingletonPorts: []chassis.SingletonPort{
			{ID: 1, Slot: 5, Port: 2, Channel: 0, SpeedBps: 40_000_000_000, Node: 100},
		},
	}
	got := m.VerifyChassisConfig(cfg)
	if got.IsOK() || !got.Is(status.RebootRequired) {
		t.Fatalf("VerifyChassisConfig = %v, want REBOOT_REQUIRED on port map change", got)
	}
}

func TestPortStatePreservedAcrossSecondPush(t *testing.T) {
	m, _ := newTestManager(t)
	if s := m.PushChassisConfig(testConfig(40_000_000_000)); !s.IsOK() {
		t.Fatalf("first push: %v", s)
	}
	key := chassis.SlotPortChannel{Slot: 5, Port: 1, Channel: 0}
	psRes := m.GetBcmPort(key)
	if !psRes.Ok() {
		t.Fatalf("GetBcmPort: %v", psRes.Status())
	}
	psRes.Value().LinkState = chassis.LinkUp

	if s := m.PushChassisConfig(testConfig(40_000_000_000)); !s.IsOK() {
		t.Fatalf("second push: %v", s)
	}
	psRes = m.GetBcmPort(key)
	if !psRes.Ok() || psRes.Value().LinkState != chassis.LinkUp {
		t.Errorf("LinkState not preserved across re-push: %v", psRes)
	}
}

func TestVerifyThenPushSucceedsOnFreshManager(t *testing.T) {
	m, _ := newTestManager(t)
	cfg := testConfig(40_000_000_000)
	if s := m.VerifyChassisConfig(cfg); !s.IsOK() {
		t.Fatalf("VerifyChassisConfig: %v", s)
	}
	if s := m.PushChassisConfig(cfg); !s.IsOK() {
		t.Fatalf("PushChassisConfig after a successful verify: %v", s)
	}
}

func TestTransceiverInsertDrivesPortToReady(t *testing.T) {
	m, _ := newTestManager(t)
	if s := m.PushChassisConfig(testConfig(40_000_000_000)); !s.IsOK() {
		t.Fatalf("PushChassisConfig: %v", s)
	}
	ph := m.phal.(*phal.Simulated)
	ph.Inject(phal.TransceiverEvent{Slot: 5, Port: 1, State: chassis.TransceiverPresent})

	key := chassis.SlotPortChannel{Slot: 5, Port: 1, Channel: 0}
	deadline := time.Now().Add(time.Second)
	for {
		psRes := m.GetBcmPort(key)
		if psRes.Ok() && psRes.Value().TransceiverState == chassis.TransceiverReady {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("TransceiverState did not reach READY after PRESENT event")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestShutdownAccumulatesErrors(t *testing.T) {
	m, _ := newTestManager(t)
	if s := m.PushChassisConfig(testConfig(40_000_000_000)); !s.IsOK() {
		t.Fatalf("PushChassisConfig: %v", s)
	}
	if s := m.Shutdown(); !s.IsOK() {
		t.Fatalf("Shutdown: %v", s)
	}
}
