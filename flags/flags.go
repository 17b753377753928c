package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "REPLPROBE"

// prefixEnvVars derives the environment variable names of a flag.
func prefixEnvVars(name string) []string {
	return []string{fmt.Sprintf("%s_%s", EnvVarPrefix, name)}
}

var (
	ReplAddr = &cli.StringFlag{
		Name:     "repl-addr",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVars("REPL_ADDR"),
		Usage:    "Address of the remote evaluation channel (eg. 'localhost:5555')",
	}
	ProjectConfig = &cli.StringFlag{
		Name:    "project-config",
		Value:   "",
		EnvVars: prefixEnvVars("PROJECT_CONFIG"),
		Usage:   "Path to the project config file (eg. 'replprobe.yaml'). Defaults apply when omitted.",
	}
	Filter = &cli.StringFlag{
		Name:    "filter",
		Value:   "",
		EnvVars: prefixEnvVars("FILTER"),
		Usage:   "Regular expression scoping which namespaces run. Empty means no filter.",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: prefixEnvVars("RUN_INTERVAL"),
		Usage:   "Interval between test runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "",
		EnvVars: prefixEnvVars("LOGDIR"),
		Usage:   "Directory to store run reports and raw payloads. Disabled when empty.",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level (trace, debug, info, warn, error, crit)",
	}
	DialTimeout = &cli.DurationFlag{
		Name:    "dial-timeout",
		Value:   0,
		EnvVars: prefixEnvVars("DIAL_TIMEOUT"),
		Usage:   "Timeout for connecting to the remote evaluation channel. 0 means no timeout.",
	}
)

var requiredFlags = []cli.Flag{
	ReplAddr,
}

var optionalFlags = []cli.Flag{
	ProjectConfig,
	Filter,
	RunInterval,
	LogDir,
	LogLevel,
	DialTimeout,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
