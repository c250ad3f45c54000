// Package config parses the chassis daemon's NAME=VALUE command-line
// parameters with platinasystems/parms, the way the rest of the
// platinasystems/goes daemons take their configuration, falling back to
// the stdlib flag package for the handful of boolean switches parms
// does not model.
package config

import (
	"flag"

	"github.com/platinasystems/parms"
)

// Flags is the chassis daemon's resolved configuration.
type Flags struct {
	BcmChassisMapID       string
	BaseBcmChassisMapFile string
	BcmSdkConfigFile      string
	BcmSdkConfigFlushFile string
	BcmSdkShellLogFile    string
	BcmSdkCheckpointDir   string
	RedisAddr             string
	DiagShellAddr         string
	Simulated             bool
}

// Parse extracts the parms-style NAME=VALUE arguments from args, then
// parses anything left over as stdlib flags.
func Parse(args []string) (Flags, []string) {
	parm, rest := parms.New(args,
		"bcm_chassis_map_id",
		"base_bcm_chassis_map_file",
		"bcm_sdk_config_file",
		"bcm_sdk_config_flush_file",
		"bcm_sdk_shell_log_file",
		"bcm_sdk_checkpoint_dir",
		"redis_addr",
		"diag_shell_addr",
	)

	f := Flags{
		BcmChassisMapID:       parm.ByName["bcm_chassis_map_id"],
		BaseBcmChassisMapFile: defaultString(parm.ByName["base_bcm_chassis_map_file"], "/etc/goes/bcm_chassis_map.textproto"),
		BcmSdkConfigFile:      defaultString(parm.ByName["bcm_sdk_config_file"], "/etc/goes/bcm.config"),
		BcmSdkConfigFlushFile: parm.ByName["bcm_sdk_config_flush_file"],
		BcmSdkShellLogFile:    parm.ByName["bcm_sdk_shell_log_file"],
		BcmSdkCheckpointDir:   defaultString(parm.ByName["bcm_sdk_checkpoint_dir"], "/var/run/goes/bcm"),
		RedisAddr:             defaultString(parm.ByName["redis_addr"], "127.0.0.1:6379"),
		DiagShellAddr:         defaultString(parm.ByName["diag_shell_addr"], "127.0.0.1:5900"),
	}

	fs := flag.NewFlagSet("bcm-chassisd", flag.ContinueOnError)
	fs.BoolVar(&f.Simulated, "simulated", false, "write the simulation-mode properties into the generated SDK config file")
	fs.Parse(rest)
	return f, fs.Args()
}

func defaultString(v, d string) string {
	if v == "" {
		return d
	}
	return v
}
