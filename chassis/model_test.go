package chassis

import "testing"

func TestChipTypeString(t *testing.T) {
	cases := map[ChipType]string{
		ChipTypeTridentPlus: "TRIDENT_PLUS",
		ChipTypeTrident2:    "TRIDENT2",
		ChipTypeTomahawk:    "TOMAHAWK",
		ChipTypeUnknown:     "UNKNOWN",
		ChipType(99):        "UNKNOWN",
	}
	for ct, want := range cases {
		if got := ct.String(); got != want {
			t.Errorf("ChipType(%d).String() = %q, want %q", ct, got, want)
		}
	}
}

func TestTransceiverStateString(t *testing.T) {
	cases := map[TransceiverState]string{
		TransceiverNotPresent: "NOT_PRESENT",
		TransceiverPresent:    "PRESENT",
		TransceiverReady:      "READY",
		TransceiverUnknown:    "UNKNOWN",
	}
	for ts, want := range cases {
		if got := ts.String(); got != want {
			t.Errorf("TransceiverState(%d).String() = %q, want %q", ts, got, want)
		}
	}
}

func TestLinkStateString(t *testing.T) {
	cases := map[LinkState]string{
		LinkUp:      "UP",
		LinkDown:    "DOWN",
		LinkUnknown: "UNKNOWN",
	}
	for ls, want := range cases {
		if got := ls.String(); got != want {
			t.Errorf("LinkState(%d).String() = %q, want %q", ls, got, want)
		}
	}
}

func TestBcmPortSlotPortChannelAndSlotPort(t *testing.T) {
	p := BcmPort{Slot: 5, Port: 2, Channel: 1}
	if got, want := p.SlotPortChannel(), (SlotPortChannel{Slot: 5, Port: 2, Channel: 1}); got != want {
		t.Errorf("SlotPortChannel() = %+v, want %+v", got, want)
	}
	if got, want := p.SlotPort(), (SlotPort{Slot: 5, Port: 2}); got != want {
		t.Errorf("SlotPort() = %+v, want %+v", got, want)
	}
}

func TestBcmChassisMapCloneIsDeep(t *testing.T) {
	orig := &BcmChassisMap{
		ID:            "t2",
		SDKProperties: []string{"a=1"},
		Chips:         []BcmChip{{Unit: 0, Type: ChipTypeTrident2}},
		Ports: []BcmPort{
			{Slot: 5, Port: 1, Channel: 0, SDKProperties: []string{"b=2"}},
		},
	}

	clone := orig.Clone()

	clone.SDKProperties[0] = "changed"
	clone.Chips[0].Unit = 99
	clone.Ports[0].Slot = 6
	clone.Ports[0].SDKProperties[0] = "changed"

	if orig.SDKProperties[0] != "a=1" {
		t.Errorf("clone mutation leaked into orig.SDKProperties: %v", orig.SDKProperties)
	}
	if orig.Chips[0].Unit != 0 {
		t.Errorf("clone mutation leaked into orig.Chips: %+v", orig.Chips[0])
	}
	if orig.Ports[0].Slot != 5 {
		t.Errorf("clone mutation leaked into orig.Ports: %+v", orig.Ports[0])
	}
	if orig.Ports[0].SDKProperties[0] != "b=2" {
		t.Errorf("clone mutation leaked into orig.Ports[0].SDKProperties: %v", orig.Ports[0].SDKProperties)
	}

	if clone.ID != orig.ID {
		t.Errorf("clone.ID = %q, want %q", clone.ID, orig.ID)
	}
}

func TestBcmChassisMapCloneNil(t *testing.T) {
	var m *BcmChassisMap
	if m.Clone() != nil {
		t.Errorf("Clone() of nil receiver should return nil")
	}
}
