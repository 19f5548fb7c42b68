package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/Veraticus/activity-monitor/pkg/activity"
	"github.com/Veraticus/activity-monitor/pkg/config"
	"github.com/Veraticus/activity-monitor/pkg/idle"
	"github.com/Veraticus/activity-monitor/pkg/input"
	"github.com/Veraticus/activity-monitor/pkg/interfaces"
	"github.com/Veraticus/activity-monitor/pkg/metrics"
	"github.com/Veraticus/activity-monitor/pkg/report"
	"github.com/Veraticus/activity-monitor/pkg/session"
	"github.com/Veraticus/activity-monitor/pkg/status"
)

// Dependencies holds all the dependencies for the application
type Dependencies struct {
	Config          *config.Config
	Logger          zerolog.Logger
	Recorder        *activity.Recorder
	Source          interfaces.EventSource
	Controller      *session.Controller
	Exporter        *report.Exporter
	StatusIndicator *status.Indicator
	Metrics         *metrics.Collectors
	MetricsServer   *metrics.Server
	Out             io.Writer

	stopOnce     sync.Once
	stopRequests chan struct{}

	exitMu  sync.Mutex
	exitErr error
}

// NewDependencies creates all dependencies with the given configuration
func NewDependencies(cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	source, err := input.New(input.Options{
		Kind:         cfg.Source,
		Command:      cfg.Command,
		Args:         cfg.Args,
		Stdin:        os.Stdin,
		Stdout:       os.Stdout,
		Logger:       logger,
		DisableMouse: !cfg.Mouse,
		OnInterrupt:  deps.RequestStop,
		OnExit:       deps.commandExited,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event source: %w", err)
	}

	// The status line is only drawn on a terminal
	statusEnabled := cfg.StatusLine && isatty.IsTerminal(os.Stderr.Fd())

	if err := deps.wire(cfg, logger, source, os.Stderr, statusEnabled); err != nil {
		return nil, err
	}
	deps.Out = os.Stdout
	return deps, nil
}

// wire builds everything downstream of the event source.
func (d *Dependencies) wire(cfg *config.Config, logger zerolog.Logger, source interfaces.EventSource, statusOut io.Writer, statusEnabled bool) error {
	d.Config = cfg
	d.Logger = logger
	d.Source = source
	d.stopRequests = make(chan struct{})

	d.Recorder = activity.NewRecorder(activity.WithLogger(logger))
	if err := d.Recorder.Configure(cfg.IdleThreshold); err != nil {
		return fmt.Errorf("failed to configure recorder: %w", err)
	}

	d.Controller = session.NewController(d.Recorder, source,
		session.WithLogger(logger),
		session.WithSourceName(cfg.Source),
		session.WithTrackerOptions(idle.WithLogger(logger)),
	)

	d.Exporter = report.NewExporter(cfg.ExportDir, report.WithLogger(logger))

	d.StatusIndicator = status.NewIndicator(statusOut, d.Controller, statusEnabled,
		status.WithInterval(cfg.StatusInterval),
	)
	d.Recorder.AddObserver(d.StatusIndicator)

	d.Metrics = metrics.New(d.Controller)
	d.Recorder.AddObserver(d.Metrics)
	if cfg.MetricsAddr != "" {
		d.MetricsServer = metrics.NewServer(cfg.MetricsAddr, d.Metrics, logger)
	}
	return nil
}

// RequestStop asks a running application to end the session. It is safe to
// call more than once and from any goroutine.
func (d *Dependencies) RequestStop() {
	d.stopOnce.Do(func() { close(d.stopRequests) })
}

func (d *Dependencies) commandExited(err error) {
	d.exitMu.Lock()
	d.exitErr = err
	d.exitMu.Unlock()
	d.RequestStop()
}

// Close cleans up all dependencies
func (d *Dependencies) Close() {
	if d.Controller != nil {
		_ = d.Controller.Stop() // Best effort terminal restoration
	}
	if d.StatusIndicator != nil {
		_ = d.StatusIndicator.Clear()
	}
}

// Application represents the main application
type Application struct {
	deps *Dependencies
}

// NewApplication creates a new application with the given dependencies
func NewApplication(deps *Dependencies) *Application {
	return &Application{
		deps: deps,
	}
}

// Run starts a session and blocks until ctx is done or a stop is
// requested, then stops the session and exports reports.
func (a *Application) Run(ctx context.Context) error {
	d := a.deps

	if d.MetricsServer != nil {
		if err := d.MetricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = d.MetricsServer.Stop(shutdownCtx)
		}()
	}

	if err := d.Controller.Start(ctx); err != nil {
		return err
	}

	stopIndicator := make(chan struct{})
	indicatorDone := d.StatusIndicator.StartAutoRefresh(stopIndicator)

	select {
	case <-ctx.Done():
		d.Logger.Debug().Msg("Context cancelled, stopping session")
	case <-d.stopRequests:
		d.Logger.Debug().Msg("Stop requested")
	}

	close(stopIndicator)
	<-indicatorDone

	var errs []error
	if err := d.Controller.Stop(); err != nil {
		errs = append(errs, err)
	}

	snap := report.Take(d.Controller)
	a.printSummary(snap)

	if d.Config.ExportOnStop && len(d.Config.ExportFormats) > 0 {
		paths, err := d.Exporter.Export(snap, d.Config.ExportFormats)
		for _, p := range paths {
			fmt.Fprintf(d.Out, "Report saved: %s\n", p)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (a *Application) printSummary(snap report.Snapshot) {
	if a.deps.Out == nil {
		return
	}
	fmt.Fprintf(a.deps.Out, "Active time: %s, idle time: %s, mouse moves: %d, key presses: %d\n",
		report.FormatDuration(snap.Stats.ActiveSeconds),
		report.FormatDuration(snap.Stats.IdleSeconds),
		snap.Stats.MouseMoves,
		snap.Stats.KeyPresses,
	)
}

// ExitCode returns the exit code of the wrapped command, or 0.
func (a *Application) ExitCode() int {
	a.deps.exitMu.Lock()
	defer a.deps.exitMu.Unlock()

	var exitErr *exec.ExitError
	if errors.As(a.deps.exitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	if a.deps.exitErr != nil {
		return 1
	}
	return 0
}
