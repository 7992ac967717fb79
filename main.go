package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/matt-g-everett/slidetx/config"
)

// set at build time
var version = "dev"

// initialize prepares configuration and logging after command line has
// been parsed.
func (a *app) initialize(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	configFile := cmd.String("config")
	if a.Config, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if a.Log, err = a.Config.Logging.Prepare(cmd.Bool("debug")); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}

	a.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", version), zap.String("runtime", runtime.Version()))
	if len(configFile) == 0 {
		a.Log.Info("Using defaults (no configuration file)")
	} else if cmd.Bool("debug") {
		// secrets are masked by Dump
		if data, err := config.Dump(a.Config); err == nil {
			a.Log.Debug("Configuration", zap.String("file", configFile), zap.ByteString("yaml", data))
		}
	}
	return ctx, nil
}

func (a *app) destroy(_ context.Context, cmd *cli.Command) error {
	if a.Log != nil {
		a.Log.Debug("Program ended", zap.Duration("elapsed", time.Since(a.started)), zap.Strings("parsed args", cmd.Args().Slice()))
		_ = a.Log.Sync()
	}
	return nil
}

// urfave/cli default error handling is ignored, subcommands return regular
// errors which are logged once here.
var errWasHandled bool

func (a *app) exitErrHandler(_ context.Context, _ *cli.Command, err error) {
	if a.Log != nil {
		a.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// error is reported either by exitErrHandler or on exit directly to stderr
	return err
}

func (a *app) commandNotFound(_ context.Context, _ *cli.Command, name string) {
	if a.Log != nil {
		a.Log.Warn("Unknown command, nothing to do", zap.String("command", name))
	}
}

func newCommand(a *app) *cli.Command {
	outputFlags := []cli.Flag{
		&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "read input from `FILE` (YAML or JSON), \"-\" or empty for STDIN"},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "url", Usage: "result `FORMAT` (url, json)"},
		&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "apply requests to an in-memory presentation, nothing is sent"},
		&cli.StringFlag{Name: "preview", Usage: "save a PNG of every animation frame under `DIR`"},
		&cli.BoolFlag{Name: "trace", Usage: "print every animation frame to the terminal"},
	}

	return &cli.Command{
		Name:            "slidetx",
		Usage:           "builds slide decks with matrix style text reveals",
		Version:         version + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          a.initialize,
		After:           a.destroy,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  a.exitErrHandler,
		CommandNotFound: a.commandNotFound,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting"},
		},
		Commands: []*cli.Command{
			{
				Name:         "generate",
				Usage:        "Creates or updates a presentation from a deck definition",
				OnUsageError: usageErrorHandler,
				Action:       a.generate,
				Flags:        outputFlags,
				CustomHelpTemplate: fmt.Sprintf(`%s
The deck selects how the presentation is changed:
    no presentationId           - a new presentation named by title
    presentationId              - all existing slides are replaced
    presentationId, append      - slides are added after existing ones
    presentationId, updateSlide - one slide (index or "last") is rebuilt in place
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "review",
				Usage:        "Creates a five slide code review deck from review data (JSON)",
				OnUsageError: usageErrorHandler,
				Action:       a.review,
				Flags:        outputFlags,
			},
			{
				Name:         "auth",
				Usage:        "Authorizes access to Google Slides and stores the token",
				OnUsageError: usageErrorHandler,
				Action:       a.auth,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "logout", Usage: "remove stored credentials"},
				},
			},
			{
				Name:         "serve",
				Usage:        "Serves a directory of preview frames over HTTP",
				OnUsageError: usageErrorHandler,
				Action:       a.serve,
				ArgsUsage:    "DIR",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen on `ADDRESS` instead of the configured one"},
				},
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       a.outputConfiguration,
				ArgsUsage:    "DESTINATION",
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var err error
	// os.Exit is called at the end of main to set exit code, make sure
	// there are no other deferred functions after that
	defer func() {
		stop()
		if err != nil {
			// log is either not set yet or already closed
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = newCommand(newApp()).Run(ctx, os.Args)
}
