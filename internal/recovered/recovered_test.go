package recovered

import (
	"strings"
	"testing"

	"github.com/platinasystems/bcmchassis/status"
)

type fakeDaemon struct {
	fn func(...string) status.Status
}

func (f fakeDaemon) Main(args ...string) status.Status { return f.fn(args...) }
func (f fakeDaemon) String() string                    { return "bcm-chassisd" }

func TestMainPassesThroughSuccess(t *testing.T) {
	d := New(fakeDaemon{fn: func(args ...string) status.Status { return status.OK() }})
	if s := d.Main(); !s.IsOK() {
		t.Fatalf("Main() = %v, want OK", s)
	}
}

func TestMainPrefixesPlainError(t *testing.T) {
	d := New(fakeDaemon{fn: func(args ...string) status.Status { return status.Internalf("boom") }})
	s := d.Main()
	if s.IsOK() || !strings.HasPrefix(s.Message(), "bcm-chassisd: ") {
		t.Fatalf("Main() = %v, want prefixed with daemon name", s)
	}
}

func TestMainRecoversPanic(t *testing.T) {
	d := New(fakeDaemon{fn: func(args ...string) status.Status { panic("kaboom") }})
	s := d.Main()
	if s.IsOK() || !strings.Contains(s.Message(), "kaboom") {
		t.Fatalf("Main() = %v, want recovered panic message", s)
	}
}
