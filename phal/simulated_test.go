package phal

import "testing"

func TestGetFrontPanelPortInfoDefaultsWhenUnseeded(t *testing.T) {
	p := NewSimulated()
	got := p.GetFrontPanelPortInfo(1, 2)
	if !got.Ok() {
		t.Fatalf("GetFrontPanelPortInfo: %v", got.Status())
	}
	if got.Value().NumLanes != 4 {
		t.Errorf("NumLanes = %d, want default 4", got.Value().NumLanes)
	}
}

func TestTransceiverEventWriterRegisterInjectUnregister(t *testing.T) {
	p := NewSimulated()
	ch := make(chan TransceiverEvent, 1)
	idRes := p.RegisterTransceiverEventWriter(ch)
	if !idRes.Ok() {
		t.Fatalf("RegisterTransceiverEventWriter: %v", idRes.Status())
	}
	p.Inject(TransceiverEvent{Slot: 1, Port: 2, Channel: 0})
	select {
	case ev := <-ch:
		if ev.Slot != 1 || ev.Port != 2 {
			t.Errorf("event = %+v, want slot=1 port=2", ev)
		}
	default:
		t.Fatalf("Inject did not deliver")
	}
	if status := p.UnregisterTransceiverEventWriter(idRes.Value()); !status.IsOK() {
		t.Fatalf("UnregisterTransceiverEventWriter: %v", status)
	}
}

func TestSerdesDbRequiresLoad(t *testing.T) {
	db := &SimulatedSerdesDb{}
	got := db.LookupSerdesConfigForPort(FrontPanelPortInfo{}, 25_000_000_000)
	if got.Ok() {
		t.Fatalf("expected NOT_INITIALIZED before Load, got ok")
	}
	if status := db.Load(); !status.IsOK() {
		t.Fatalf("Load: %v", status)
	}
	got = db.LookupSerdesConfigForPort(FrontPanelPortInfo{PhysicalPortType: "QSFP28"}, 25_000_000_000)
	if !got.Ok() {
		t.Fatalf("LookupSerdesConfigForPort after Load: %v", got.Status())
	}
}
