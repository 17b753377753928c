package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	probe "github.com/replprobe/replprobe"
	"github.com/replprobe/replprobe/exitcodes"
	"github.com/replprobe/replprobe/flags"
	"github.com/replprobe/replprobe/nspath"
	"github.com/replprobe/replprobe/repl"
	"github.com/replprobe/replprobe/service"
	"github.com/replprobe/replprobe/types"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "replprobe"
	app.Usage = "Remote test runner and source annotator"
	app.Description = "replprobe runs a project's test suite inside a live repl and annotates failures in the source tree"
	app.Commands = []*cli.Command{
		{
			Name:   "run",
			Usage:  "Run the test suite in the remote runtime",
			Flags:  flags.Flags,
			Action: runAction,
		},
		{
			Name:      "impl-path",
			Usage:     "Print the implementation file path of a test namespace",
			ArgsUsage: "<namespace>",
			Flags:     []cli.Flag{flags.ProjectConfig},
			Action:    pathAction(func(m *nspath.Mapper, ns string) (string, error) { return m.ImplementationPathFor(ns) }),
		},
		{
			Name:      "test-path",
			Usage:     "Print the test file path of an implementation namespace",
			ArgsUsage: "<namespace>",
			Flags:     []cli.Flag{flags.ProjectConfig},
			Action:    pathAction(func(m *nspath.Mapper, ns string) (string, error) { return m.TestPathFor(ns) }),
		},
	}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			cli.HandleExitCoder(cli.Exit(err.Error(), exitCodeForError(err)))
		}
	}

	if err := app.Run(os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

// exitCodeForError maps typed run errors onto process exit codes.
func exitCodeForError(err error) int {
	switch {
	case probe.IsRuntimeError(err) || probe.IsNotConnectedError(err):
		return exitcodes.RuntimeErr
	case probe.IsTestFailureError(err):
		return exitcodes.TestFailure
	}
	return exitcodes.TestFailure
}

func runAction(ctx *cli.Context) error {
	logger, err := newLogger(ctx.String(flags.LogLevel.Name))
	if err != nil {
		return probe.NewRuntimeError(err)
	}

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName("replprobe"),
		otelconfig.WithServiceVersion(Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer otelShutdown()

	cfg, err := probe.NewConfig(ctx, logger)
	if err != nil {
		return probe.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	client, err := repl.Dial(cfg.ReplAddr, cfg.DialTimeout, logger)
	if err != nil {
		return probe.NewRuntimeError(err)
	}
	defer func() { _ = client.Close() }()

	controller, err := probe.New(cfg, client)
	if err != nil {
		return probe.NewRuntimeError(fmt.Errorf("failed to create controller: %w", err))
	}

	svc := service.New()
	svc.Healthz.StateSource = controller.StateString
	svc.Start(ctx.Context)
	defer svc.Shutdown()

	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runTests := func() error {
		if err := controller.Run(runCtx); err != nil {
			return err
		}
		return controller.Wait(runCtx)
	}

	if cfg.RunOnce {
		if err := runTests(); err != nil {
			return err
		}
		if controller.Severity() != types.SeveritySuccess {
			return probe.NewTestFailureError(controller.Summarize())
		}
		return nil
	}

	scheduler := probe.NewRunScheduler(cfg.RunInterval, logger)
	scheduler.RegisterCallback(runTests)
	if err := scheduler.Start(runCtx); err != nil {
		return err
	}

	<-runCtx.Done()
	if err := scheduler.Stop(); err != nil {
		logger.Error("Error stopping scheduler", "error", err)
	}
	return scheduler.WaitForShutdown(context.Background())
}

// pathAction builds the action of the two namespace-mapping commands.
func pathAction(mapFn func(*nspath.Mapper, string) (string, error)) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.Exit("exactly one namespace argument is required", exitcodes.RuntimeErr)
		}
		project, err := probe.LoadProjectConfig(ctx.String(flags.ProjectConfig.Name))
		if err != nil {
			return probe.NewRuntimeError(err)
		}
		mapper, err := nspath.NewMapper(project.PathConfig())
		if err != nil {
			return probe.NewRuntimeError(err)
		}
		path, err := mapFn(mapper, ctx.Args().First())
		if err != nil {
			return probe.NewRuntimeError(err)
		}
		fmt.Fprintln(ctx.App.Writer, path)
		return nil
	}
}

func newLogger(level string) (log.Logger, error) {
	lvl, err := log.LvlFromString(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger := log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true))
	log.SetDefault(logger)
	return logger, nil
}
