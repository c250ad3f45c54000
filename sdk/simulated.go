package sdk

import (
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/gliderlabs/ssh"
	"github.com/jpillora/backoff"
	"github.com/kr/pty"
	reaper "github.com/ramr/go-reaper"
	uuid "github.com/satori/go.uuid"

	"github.com/platinasystems/bcmchassis/chassis"
	"github.com/platinasystems/bcmchassis/status"
)

// Simulated is a standalone-mode BcmSdkInterface implementation backed by
// in-memory state instead of real silicon, used by tests and by the
// simulated operation mode referenced in SPEC_FULL.md §4.6. Its diagnostic
// shell is a real gliderlabs/ssh server attached to a pty-backed shell, the
// way the real SDK's diag shell would be reached over a console; since that
// shell forks a child process, a background goroutine reaps it the way a
// PID-1 style daemon must.
type Simulated struct {
	mu       sync.Mutex
	units    map[int]bool
	options  map[[2]int]PortOptions
	writers  map[string]chan<- LinkscanEvent

	diagAddr    string
	diagBackoff *backoff.Backoff
	reaperOnce  sync.Once
}

// NewSimulated returns a ready-to-use simulated SDK collaborator. diagAddr
// is the listen address for the diagnostic shell server, e.g. "127.0.0.1:0".
func NewSimulated(diagAddr string) *Simulated {
	return &Simulated{
		units:       map[int]bool{},
		options:     map[[2]int]PortOptions{},
		writers:     map[string]chan<- LinkscanEvent{},
		diagAddr:    diagAddr,
		diagBackoff: &backoff.Backoff{Min: 10e6, Max: 2e9, Factor: 2, Jitter: true},
	}
}

func (s *Simulated) FindUnit(unit int) status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.units[unit] {
		return status.Internalf("sdk: unit %d not attached", unit)
	}
	return status.OK()
}

func (s *Simulated) InitializeUnit(unit int, pciBus, pciSlot int, chipType chassis.ChipType) status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[unit] = true
	return status.OK()
}

func (s *Simulated) SetModuleID(unit, module int) status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.units[unit] {
		return status.Internalf("sdk: unit %d not attached", unit)
	}
	return status.OK()
}

func (s *Simulated) InitializePort(unit, logicalPort int) status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.units[unit] {
		return status.Internalf("sdk: unit %d not attached", unit)
	}
	key := [2]int{unit, logicalPort}
	if _, ok := s.options[key]; !ok {
		s.options[key] = PortOptions{}
	}
	return status.OK()
}

// StartDiagShellServer brings up a real SSH-accessible shell so the
// reimplementation exercises the same "diag shell" concept the original
// bring-up sequence ends on (SPEC_FULL.md §4.3 step 6), instead of a stub.
// Reconnect attempts back off with the configured jpillora/backoff policy.
func (s *Simulated) StartDiagShellServer() status.Status {
	s.reaperOnce.Do(func() {
		go reaper.Reap()
	})
	handler := func(sess ssh.Session) {
		cmd := exec.Command("/bin/sh")
		f, err := pty.Start(cmd)
		if err != nil {
			fmt.Fprintln(sess, "diag shell: ", err)
			sess.Exit(1)
			return
		}
		defer f.Close()
		go func() { _, _ = io.Copy(f, sess) }()
		_, _ = io.Copy(sess, f)
		cmd.Wait()
	}
	go func() {
		for {
			err := ssh.ListenAndServe(s.diagAddr, handler)
			if err == nil {
				return
			}
			pause := s.diagBackoff.Duration()
			time.Sleep(pause)
		}
	}()
	return status.OK()
}

func (s *Simulated) ShutdownAllUnits() status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = map[int]bool{}
	return status.OK()
}

func (s *Simulated) GetPortOptions(unit, logicalPort int) status.StatusOr[PortOptions] {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts, ok := s.options[[2]int{unit, logicalPort}]
	if !ok {
		return status.Err[PortOptions](status.NewVendor(status.NotFound, status.ChassisErrorSpace,
			status.EntryNotFound, "sdk: no options for unit=%d logical_port=%d", unit, logicalPort))
	}
	return status.Of(opts)
}

func (s *Simulated) SetPortOptions(unit, logicalPort int, opts PortOptions) status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]int{unit, logicalPort}
	cur := s.options[key]
	if opts.EnabledSet {
		cur.Enabled = opts.Enabled
		cur.EnabledSet = true
	}
	if opts.BlockedSet {
		cur.Blocked = opts.Blocked
		cur.BlockedSet = true
	}
	if opts.SpeedBpsSet {
		cur.SpeedBps = opts.SpeedBps
		cur.SpeedBpsSet = true
	}
	if opts.NumSerdesLanesSet {
		cur.NumSerdesLanes = opts.NumSerdesLanes
		cur.NumSerdesLanesSet = true
	}
	s.options[key] = cur
	return status.OK()
}

func (s *Simulated) ConfigSerdesForPort(unit, logicalPort int, speedBps uint64, serdesCore, serdesLane, numLanes int,
	cfg SerdesLaneConfig) status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.units[unit] {
		return status.Internalf("sdk: unit %d not attached", unit)
	}
	return status.OK()
}

func (s *Simulated) StartLinkscan() status.Status { return status.OK() }
func (s *Simulated) StopLinkscan() status.Status  { return status.OK() }

func (s *Simulated) RegisterLinkscanEventWriter(ch chan<- LinkscanEvent, priority int) status.StatusOr[string] {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewV4().String()
	s.writers[id] = ch
	return status.Of(id)
}

func (s *Simulated) UnregisterLinkscanEventWriter(id string) status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.writers[id]; !ok {
		return status.NewVendor(status.NotFound, status.ChassisErrorSpace, status.EntryNotFound,
			"sdk: unknown linkscan writer id %q", id)
	}
	delete(s.writers, id)
	return status.OK()
}

// Inject delivers a synthetic linkscan event to every registered writer,
// used by tests driving Scenario E/the event-filtering property without a
// real SDK underneath.
func (s *Simulated) Inject(ev LinkscanEvent) {
	s.mu.Lock()
	writers := make([]chan<- LinkscanEvent, 0, len(s.writers))
	for _, w := range s.writers {
		writers = append(writers, w)
	}
	s.mu.Unlock()
	for _, w := range writers {
		w <- ev
	}
}
