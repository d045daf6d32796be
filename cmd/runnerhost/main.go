// Package main is the entry point for the runner host.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/sevir/runnerhost/internal/config"
	"github.com/sevir/runnerhost/internal/diagnostics"
	"github.com/sevir/runnerhost/internal/host"
	"github.com/sevir/runnerhost/internal/journal"
	"github.com/sevir/runnerhost/internal/logging"
	"github.com/sevir/runnerhost/internal/runner"
	"github.com/sevir/runnerhost/internal/server"
	"github.com/sevir/runnerhost/internal/surface"
	"github.com/sevir/runnerhost/pkg/models"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "runnerhost"
	app.Usage = "supervise the local runner worker process"
	app.Version = fmt.Sprintf("%s (%s)", version, commit)

	app.Flags = runFlags()
	app.Action = runHost

	app.Commands = []*cli.Command{
		{
			Name:   "run",
			Usage:  "start the host and its control API",
			Flags:  runFlags(),
			Action: runHost,
		},
		{
			Name:  "init",
			Usage: "write the default configuration file and exit",
			Flags: []cli.Flag{configFlag()},
			Action: func(c *cli.Context) error {
				cfg, err := config.Load(c.String("config"))
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				if err := cfg.Save(c.String("config")); err != nil {
					return fmt.Errorf("failed to save config: %w", err)
				}
				fmt.Println("Configuration initialized")
				return nil
			},
		},
		{
			Name:  "version",
			Usage: "print the version and exit",
			Action: func(c *cli.Context) error {
				fmt.Printf("runnerhost %s (%s)\n", version, commit)
				return nil
			},
		},
	}

	return app
}

func configFlag() cli.Flag {
	return &cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to config file (.yaml, .toml or .json)"}
}

// runFlags are accepted both before and after the run command.
func runFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		&cli.StringFlag{Name: "log-level", Usage: "Log level (trace, debug, info, warn, error)", EnvVars: []string{logging.EnvLogLevel}},
		&cli.StringFlag{Name: "host", Usage: "Control API host (default: 127.0.0.1)"},
		&cli.IntFlag{Name: "port", Usage: "Control API port (default: 8766)"},
		&cli.BoolFlag{Name: "stdio", Usage: "Serve commands over stdio instead of HTTP"},
		&cli.BoolFlag{Name: "no-autostart", Usage: "Do not start the runner on launch"},
		&cli.DurationFlag{Name: "autostart-delay", Usage: "Delay before the runner is started on launch"},
		&cli.StringFlag{Name: "command", Usage: "Interpreter used to launch the worker"},
		&cli.StringFlag{Name: "work-dir", Usage: "Working directory of the worker"},
	}
}

func runHost(c *cli.Context) error {
	opts := logging.DefaultOptions()
	if lvl, ok := logging.ParseLevel(c.String("log-level")); ok {
		opts.Level = lvl
	}
	logger := logging.New("runnerhost", opts)

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	j := journal.New(cfg.Host.JournalSize)
	launcher := runner.NewExecLauncher(runner.Command{
		Path:    cfg.Worker.Command,
		Args:    cfg.Worker.Args,
		Dir:     cfg.Worker.WorkDir,
		Env:     cfg.Worker.Env,
		LogFile: cfg.Worker.LogFile,
	}, component(logger, "launcher"))
	sup := runner.NewSupervisor(runner.NewState(), launcher, component(logger, "supervisor"), j)

	window := host.NewHeadlessWindow(component(logger, "window"))
	h := host.New(host.Config{
		Supervisor: sup,
		Window:     window,
		LogsDir:    cfg.Host.LogsDir,
		Logger:     component(logger, "host"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Quit from the tray ends the run group with the requested exit code.
	exitCh := make(chan int, 1)
	dispatcher := surface.NewDispatcher(surface.Config{
		Supervisor: sup,
		Window:     window,
		OpenLogs:   h.OpenLogs,
		Exit: func(code int) {
			select {
			case exitCh <- code:
			default:
			}
		},
		Logger: component(logger, "surface"),
	})

	srv := server.New(server.Config{
		Addr:       cfg.Address(),
		Supervisor: sup,
		Host:       h,
		Dispatcher: dispatcher,
		Journal:    j,
		Inspector:  diagnostics.NewProcessInspector(),
		AppConfig:  cfg,
		Logger:     component(logger, "server"),
		Version:    version,
		Commit:     commit,
		UseStdio:   c.Bool("stdio"),
	})

	var autostart func(context.Context)
	if cfg.Host.AutoStart {
		delay := cfg.Host.AutoStartDelay.Std()
		autostart = func(ctx context.Context) { h.Startup(ctx, delay) }
	}

	if c.Bool("stdio") {
		logger.Info().Str("version", version).Msg("runnerhost starting in stdio mode")
	} else {
		addr := cfg.Address()
		logger.Info().
			Str("version", version).
			Str("api", fmt.Sprintf("http://%s/api", addr)).
			Str("invoke", fmt.Sprintf("http://%s/invoke", addr)).
			Str("sse", fmt.Sprintf("http://%s/events/sse", addr)).
			Msg("runnerhost starting")
	}

	exitCode, err := runGroup(ctx, sup, srv, exitCh, autostart, logger)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return cli.Exit("", exitCode)
	}
	return nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("host") {
		cfg.Server.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if c.Bool("no-autostart") {
		cfg.Host.AutoStart = false
	}
	if c.IsSet("autostart-delay") {
		cfg.Host.AutoStartDelay = models.Duration(c.Duration("autostart-delay"))
	}
	if c.IsSet("command") {
		cfg.Worker.Command = c.String("command")
	}
	if c.IsSet("work-dir") {
		cfg.Worker.WorkDir = c.String("work-dir")
	}
}

func component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
