// Command bcm-chassisd runs the chassis manager as a standalone daemon:
// it loads its configuration, constructs the simulated SDK and PHAL
// collaborators and a manager over them, and waits for SIGINT or SIGTERM,
// then shuts the manager down. It pushes no chassis config itself and
// exposes no RPC surface, so the SDK is never brought up by this binary
// alone. Wiring a real (non-simulated) SDK/PHAL
// implementation is the job of a platform-specific build of this same
// daemon; this binary only ever runs the simulated collaborators.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	golog "github.com/platinasystems/log"

	"github.com/platinasystems/bcmchassis/internal/config"
	"github.com/platinasystems/bcmchassis/internal/recovered"
	"github.com/platinasystems/bcmchassis/manager"
	"github.com/platinasystems/bcmchassis/notify"
	"github.com/platinasystems/bcmchassis/phal"
	"github.com/platinasystems/bcmchassis/sdk"
	"github.com/platinasystems/bcmchassis/status"
)

type daemon struct {
	flags config.Flags
}

func (daemon) String() string { return "bcm-chassisd" }

func (d *daemon) Main(args ...string) status.Status {
	golog.Print("daemon", "info", "starting")

	sdkIface := sdk.NewSimulated(d.flags.DiagShellAddr)
	phalIface := phal.NewSimulated()
	serdesDB := &phal.SimulatedSerdesDb{}

	var notifier notify.Writer = notify.NewRedisWriter(d.flags.RedisAddr, "bcmchassis")
	defer notifier.Close()

	m := manager.New(manager.Options{
		BaseMapFile: d.flags.BaseBcmChassisMapFile,
		BaseMapID:   d.flags.BcmChassisMapID,
		Standalone:  false,
		BringUp: sdk.BringUpOptions{
			ConfigFile:      d.flags.BcmSdkConfigFile,
			ConfigFlushFile: d.flags.BcmSdkConfigFlushFile,
			CheckpointDir:   d.flags.BcmSdkCheckpointDir,
			Simulated:       d.flags.Simulated,
		},
	}, sdkIface, phalIface, serdesDB, notifier)

	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Fprintf(os.Stderr, "bcm-chassisd: diag shell address %s (started on the first config push)\n", d.flags.DiagShellAddr)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	golog.Print("daemon", "info", "shutting down")
	if s := m.Shutdown(); !s.IsOK() {
		return status.Internalf("shutdown: %v", s)
	}
	return status.OK()
}

func main() {
	flags, _ := config.Parse(os.Args[1:])
	d := &daemon{flags: flags}
	if s := recovered.New(d).Main(os.Args[1:]...); !s.IsOK() {
		golog.Print("daemon", "err", s)
		os.Exit(1)
	}
}
