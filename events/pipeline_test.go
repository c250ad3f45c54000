package events

import (
	"sync"
	"testing"
	"time"

	"github.com/platinasystems/bcmchassis/chassis"
	"github.com/platinasystems/bcmchassis/notify"
	"github.com/platinasystems/bcmchassis/phal"
	"github.com/platinasystems/bcmchassis/resolver"
	"github.com/platinasystems/bcmchassis/sdk"
	"github.com/platinasystems/bcmchassis/state"
)

func testCollaborators() (sdk.Interface, phal.Interface, phal.SerdesDbManager) {
	sim := sdk.NewSimulated("127.0.0.1:0")
	ph := phal.NewSimulated()
	db := &phal.SimulatedSerdesDb{}
	db.Load()
	return sim, ph, db
}

type recordingWriter struct {
	mu    sync.Mutex
	calls []chassis.LinkState
}

func (r *recordingWriter) PortOperStateChanged(slot, port, channel int, ls chassis.LinkState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, ls)
	return nil
}
func (r *recordingWriter) Close() error { return nil }

func (r *recordingWriter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestStore() *state.Store {
	s := state.New()
	s.SyncInternalState(&resolver.Result{
		Base: &chassis.BcmChassisMap{},
		Applied: &chassis.BcmChassisMap{
			Ports: []chassis.BcmPort{
				{Unit: 0, LogicalPort: 1, Slot: 5, Port: 1, Channel: 0},
			},
		},
		NodeIDToUnit: map[uint64]int{},
	})
	return s
}

func TestLinkscanEventUpdatesStoreAndNotifies(t *testing.T) {
	store := newTestStore()
	w := &recordingWriter{}
	sim, ph, db := testCollaborators()
	var mu sync.Mutex
	p := NewPipeline(store, w, sim, ph, db, false, func(fn func()) { mu.Lock(); defer mu.Unlock(); fn() })
	p.Run()

	p.LinkscanChan() <- sdk.LinkscanEvent{Unit: 0, LogicalPort: 1, NewState: chassis.LinkUp}

	deadline := time.Now().Add(time.Second)
	for w.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if w.count() != 1 {
		t.Fatalf("notifier called %d times, want 1", w.count())
	}
	ps, _ := store.PortByLogical(0, 1)
	if ps.LinkState != chassis.LinkUp {
		t.Errorf("LinkState = %v, want UP", ps.LinkState)
	}
}

func TestLinkscanEventUnknownPortDropped(t *testing.T) {
	store := newTestStore()
	w := &recordingWriter{}
	sim, ph, db := testCollaborators()
	var mu sync.Mutex
	p := NewPipeline(store, w, sim, ph, db, false, func(fn func()) { mu.Lock(); defer mu.Unlock(); fn() })
	p.Run()

	p.LinkscanChan() <- sdk.LinkscanEvent{Unit: 0, LogicalPort: 99, NewState: chassis.LinkUp}
	p.LinkscanChan() <- sdk.LinkscanEvent{Unit: 0, LogicalPort: 1, NewState: chassis.LinkDown}

	deadline := time.Now().Add(time.Second)
	for w.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if w.count() != 1 {
		t.Fatalf("notifier called %d times, want 1 (the unknown port must be dropped silently)", w.count())
	}
}

type failingWriter struct{}

func (failingWriter) PortOperStateChanged(slot, port, channel int, ls chassis.LinkState) error {
	return errFailingWriter
}
func (failingWriter) Close() error { return nil }

var errFailingWriter = &writerError{"notify: unreachable"}

type writerError struct{ msg string }

func (e *writerError) Error() string { return e.msg }

func TestLinkscanNotifierDroppedAfterFailure(t *testing.T) {
	store := newTestStore()
	sim, ph, db := testCollaborators()
	var mu sync.Mutex
	p := NewPipeline(store, failingWriter{}, sim, ph, db, false, func(fn func()) { mu.Lock(); defer mu.Unlock(); fn() })
	p.Run()

	p.LinkscanChan() <- sdk.LinkscanEvent{Unit: 0, LogicalPort: 1, NewState: chassis.LinkUp}
	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		dropped := p.notifier == nil
		mu.Unlock()
		if dropped || time.Now().After(deadline) {
			if !dropped {
				t.Fatalf("notifier not dropped after a failing PortOperStateChanged")
			}
			break
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPipelineStopsOnChannelClose(t *testing.T) {
	store := newTestStore()
	sim, ph, db := testCollaborators()
	var mu sync.Mutex
	p := NewPipeline(store, notify.NullWriter{}, sim, ph, db, false, func(fn func()) { mu.Lock(); defer mu.Unlock(); fn() })
	p.Run()
	close(p.linkscan)
	close(p.transceiver)
	time.Sleep(10 * time.Millisecond) // readers exit; no panic/deadlock is the assertion
}

func TestTransceiverPresentDrivesReadyWithSerdesConfig(t *testing.T) {
	store := state.New()
	store.SyncInternalState(&resolver.Result{
		Base: &chassis.BcmChassisMap{},
		Applied: &chassis.BcmChassisMap{
			Ports: []chassis.BcmPort{
				{Unit: 0, LogicalPort: 1, Slot: 5, Port: 1, Channel: 0, SpeedBps: 25_000_000_000},
			},
		},
		NodeIDToUnit: map[uint64]int{},
	})
	sim, ph, db := testCollaborators()
	simImpl := sim.(*sdk.Simulated)
	simImpl.InitializeUnit(0, 0, 0, chassis.ChipTypeTomahawk)
	simImpl.InitializePort(0, 1)

	var mu sync.Mutex
	p := NewPipeline(store, notify.NullWriter{}, sim, ph, db, true, func(fn func()) { mu.Lock(); defer mu.Unlock(); fn() })
	p.Run()

	p.TransceiverChan() <- phal.TransceiverEvent{Slot: 5, Port: 1, State: chassis.TransceiverPresent}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		ts, _, _ := store.GroupState(5, 1)
		mu.Unlock()
		if ts == chassis.TransceiverReady {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("TransceiverState = %v, want READY", ts)
		}
		time.Sleep(time.Millisecond)
	}

	got := simImpl.GetPortOptions(0, 1)
	if !got.Ok() || !got.Value().Enabled {
		t.Errorf("port not enabled after transceiver PRESENT transition")
	}

	p.TransceiverChan() <- phal.TransceiverEvent{Slot: 5, Port: 1, State: chassis.TransceiverNotPresent}
	deadline = time.Now().Add(time.Second)
	for {
		mu.Lock()
		ts, _, _ := store.GroupState(5, 1)
		mu.Unlock()
		if ts == chassis.TransceiverNotPresent {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("TransceiverState = %v, want NOT_PRESENT after removal", ts)
		}
		time.Sleep(time.Millisecond)
	}
}
