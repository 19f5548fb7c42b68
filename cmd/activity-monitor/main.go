package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/Veraticus/activity-monitor/pkg/activity"
	"github.com/Veraticus/activity-monitor/pkg/config"
	"github.com/Veraticus/activity-monitor/pkg/input"
	"github.com/Veraticus/activity-monitor/pkg/session"
)

var version = "dev"

type cliOptions struct {
	configPath  string
	idleMinutes string
	exportDir   string
	formats     string
	source      string
	noStatus    bool
	noMouse     bool
	metricsAddr string
	logLevel    string
	logFormat   string
	help        bool
	version     bool
	command     []string

	flags *flag.FlagSet
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if opts.help {
		printUsage(os.Stdout, opts.flags)
		os.Exit(0)
	}
	if opts.version {
		fmt.Printf("activity-monitor %s\n", version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := applyFlags(cfg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := setupLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	// Create dependencies
	deps, err := NewDependencies(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	app := NewApplication(deps)

	// Ensure terminal restoration on panic
	defer func() {
		if r := recover(); r != nil {
			deps.Close() // Best effort terminal restoration
			panic(r)     // Re-panic
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	code := 0
	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var srcErr *session.SourceUnavailableError
		if errors.As(err, &srcErr) {
			fmt.Fprintf(os.Stderr, "\nRun from an interactive terminal, or wrap a command with: activity-monitor -- <command>\n")
		}
		code = 1
	}

	// os.Exit skips deferred calls
	deps.Close()
	closeLog()
	if code == 0 {
		code = app.ExitCode()
	}
	os.Exit(code)
}

func parseFlags(args []string) (*cliOptions, error) {
	opts := &cliOptions{}

	fs := flag.NewFlagSet("activity-monitor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.configPath, "config", "", "Path to config file")
	fs.StringVar(&opts.idleMinutes, "idle-minutes", "", "Minutes without input before the user counts as idle (default 5)")
	fs.StringVar(&opts.exportDir, "export-dir", "", "Directory for exported reports")
	fs.StringVar(&opts.formats, "format", "", "Comma-separated export formats: csv, txt")
	fs.StringVar(&opts.source, "source", "", "Event source: terminal or pty")
	fs.BoolVar(&opts.noStatus, "no-status", false, "Do not draw the status line")
	fs.BoolVar(&opts.noMouse, "no-mouse", false, "Do not enable terminal mouse reporting")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	fs.BoolVarP(&opts.help, "help", "h", false, "Show help message")
	fs.BoolVar(&opts.version, "version", false, "Show version")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.command = fs.Args()
	opts.flags = fs
	return opts, nil
}

// applyFlags overrides cfg with flags that were set on the command line.
func applyFlags(cfg *config.Config, opts *cliOptions) error {
	fs := opts.flags

	if fs.Changed("idle-minutes") {
		threshold, err := activity.ParseIdleMinutes(opts.idleMinutes)
		if err != nil {
			return err
		}
		cfg.IdleThreshold = threshold
	}
	if fs.Changed("export-dir") {
		cfg.ExportDir = opts.exportDir
	}
	if fs.Changed("format") {
		cfg.ExportFormats = config.ParseFormats(opts.formats)
	}
	if fs.Changed("source") {
		cfg.Source = opts.source
	}
	if opts.noStatus {
		cfg.StatusLine = false
	}
	if opts.noMouse {
		cfg.Mouse = false
	}
	if fs.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if fs.Changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}

	if len(opts.command) > 0 {
		cfg.Command = opts.command[0]
		cfg.Args = opts.command[1:]
		// A trailing command implies the pty source
		if !fs.Changed("source") {
			cfg.Source = input.KindPTY
		}
	}

	return cfg.Validate()
}

// setupLogger builds the logger from the logging settings. The returned
// func closes the log file, if any.
func setupLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := os.Stderr
	closeFn := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 -- path comes from user configuration
		if err != nil {
			return zerolog.Nop(), closeFn, err
		}
		out = f
		closeFn = func() { _ = f.Close() }
	}

	var w io.Writer = out
	if cfg.LogFormat == "text" {
		w = zerolog.ConsoleWriter{Out: out, NoColor: !isatty.IsTerminal(out.Fd())}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), closeFn, nil
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "activity-monitor - record keyboard and mouse activity and report active and idle time")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: activity-monitor [OPTIONS] [-- COMMAND [ARGS...]]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "With a COMMAND, the command runs on a pseudo-terminal and its input is recorded.")
	fmt.Fprintln(w, "Otherwise the current terminal is monitored until Ctrl-C.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment Variables:")
	fmt.Fprintln(w, "  ACTIVITY_MONITOR_CONFIG          Path to config file")
	fmt.Fprintln(w, "  ACTIVITY_MONITOR_IDLE_THRESHOLD  Idle threshold as a duration (default: 5m)")
	fmt.Fprintln(w, "  ACTIVITY_MONITOR_EXPORT_DIR      Directory for exported reports")
	fmt.Fprintln(w, "  ACTIVITY_MONITOR_EXPORT_FORMATS  Export formats (comma-separated)")
	fmt.Fprintln(w, "  ACTIVITY_MONITOR_SOURCE          Event source: terminal or pty")
	fmt.Fprintln(w, "  ACTIVITY_MONITOR_MOUSE           Enable mouse reporting (default: true)")
	fmt.Fprintln(w, "  ACTIVITY_MONITOR_LOG_FILE        Write logs to this file instead of stderr")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration file: ~/.config/activity-monitor/config.yaml")
}
