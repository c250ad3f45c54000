package phal

import (
	"sync"

	"github.com/platinasystems/bcmchassis/chassis"
	"github.com/platinasystems/bcmchassis/status"
)

// Simulated is an in-memory PhalInterface used by tests and the
// simulated operation mode: every front-panel port reports a default
// QSFP28 description, and transceiver presence is driven by test code
// via Inject rather than real EEPROM reads.
type Simulated struct {
	mu      sync.Mutex
	infos   map[chassis.SlotPort]FrontPanelPortInfo
	writers map[string]chan<- TransceiverEvent
	nextID  int
}

func NewSimulated() *Simulated {
	return &Simulated{
		infos:   map[chassis.SlotPort]FrontPanelPortInfo{},
		writers: map[string]chan<- TransceiverEvent{},
	}
}

// SetFrontPanelPortInfo lets tests and bring-up fixtures seed the
// inventory this PHAL stands in for.
func (s *Simulated) SetFrontPanelPortInfo(slot, port int, info FrontPanelPortInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infos[chassis.SlotPort{Slot: slot, Port: port}] = info
}

func (s *Simulated) GetFrontPanelPortInfo(slot, port int) status.StatusOr[FrontPanelPortInfo] {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.infos[chassis.SlotPort{Slot: slot, Port: port}]
	if !ok {
		return status.Of(FrontPanelPortInfo{PhysicalPortType: "QSFP28", NumLanes: 4})
	}
	return status.Of(info)
}

func (s *Simulated) RegisterTransceiverEventWriter(ch chan<- TransceiverEvent) status.StatusOr[string] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	key := formatWriterID(s.nextID)
	s.writers[key] = ch
	return status.Of(key)
}

func (s *Simulated) UnregisterTransceiverEventWriter(id string) status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.writers[id]; !ok {
		return status.NewVendor(status.NotFound, status.ChassisErrorSpace, status.EntryNotFound,
			"phal: unknown transceiver writer id %q", id)
	}
	delete(s.writers, id)
	return status.OK()
}

// Inject delivers a synthetic transceiver event to every registered
// writer, the way a real PHAL would on an EEPROM presence-pin change.
func (s *Simulated) Inject(ev TransceiverEvent) {
	s.mu.Lock()
	writers := make([]chan<- TransceiverEvent, 0, len(s.writers))
	for _, w := range s.writers {
		writers = append(writers, w)
	}
	s.mu.Unlock()
	for _, w := range writers {
		w <- ev
	}
}

func formatWriterID(n int) string {
	const hex = "0123456789abcdef"
	if n == 0 {
		return "0"
	}
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = hex[n%16]
		n /= 16
	}
	return "phal-" + string(buf[i:])
}

// SimulatedSerdesDb is a fixed-answer BcmSerdesDbManager for standalone
// mode: it always resolves to a single default lane configuration.
type SimulatedSerdesDb struct {
	loaded bool
}

func (d *SimulatedSerdesDb) Load() status.Status {
	d.loaded = true
	return status.OK()
}

func (d *SimulatedSerdesDb) LookupSerdesConfigForPort(info FrontPanelPortInfo, speedBps uint64) status.StatusOr[SerdesConfig] {
	if !d.loaded {
		return status.Err[SerdesConfig](status.NotInitializedf("phal: serdes db not loaded"))
	}
	return status.Of(SerdesConfig{
		InterfaceType:    info.PhysicalPortType,
		RegisterConfigs:  map[uint32]uint32{},
		AttributeConfigs: map[string]uint32{"speed_bps": uint32(speedBps)},
	})
}
