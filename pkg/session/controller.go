// Package session ties the recorder, the idle tracker and an event source
// into a start/stop lifecycle.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Veraticus/activity-monitor/pkg/activity"
	"github.com/Veraticus/activity-monitor/pkg/idle"
	"github.com/Veraticus/activity-monitor/pkg/interfaces"
	"github.com/Veraticus/activity-monitor/pkg/types"
)

// SourceUnavailableError is returned by Start when the event source
// cannot be started. The session is left stopped.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("event source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// Controller owns one recorder and one event source.
type Controller struct {
	mu          sync.Mutex
	recorder    *activity.Recorder
	source      interfaces.EventSource
	sourceName  string
	trackerOpts []idle.Option
	logger      zerolog.Logger

	state  activity.State
	cancel context.CancelFunc
	done   chan struct{}
}

// Ensure Controller implements StatusProvider
var _ interfaces.StatusProvider = (*Controller)(nil)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger.With().Str("component", "session").Logger()
	}
}

// WithTrackerOptions sets the options used for each session's tracker.
func WithTrackerOptions(opts ...idle.Option) Option {
	return func(c *Controller) {
		c.trackerOpts = append(c.trackerOpts, opts...)
	}
}

// WithSourceName sets the name reported in SourceUnavailableError.
func WithSourceName(name string) Option {
	return func(c *Controller) {
		c.sourceName = name
	}
}

// NewController creates a stopped controller.
func NewController(recorder *activity.Recorder, source interfaces.EventSource, opts ...Option) *Controller {
	c := &Controller{
		recorder:   recorder,
		source:     source,
		sourceName: fmt.Sprintf("%T", source),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a session. It is a no-op if one is running. Cancelling ctx
// stops idle accounting but not the session; call Stop for that.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == activity.StateActive {
		return nil
	}

	c.recorder.Start()

	if err := c.source.Start(c.recorder); err != nil {
		c.recorder.Abort()
		c.logger.Error().Err(err).Str("source", c.sourceName).Msg("Failed to start event source")
		return &SourceUnavailableError{Source: c.sourceName, Err: err}
	}

	tracker := idle.NewTracker(c.recorder, c.trackerOpts...)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		tracker.Run(runCtx)
	}()

	c.cancel = cancel
	c.done = done
	c.state = activity.StateActive
	return nil
}

// Stop ends the session. The source is detached and the tracker joined
// before the stop marker is appended. A source stop error is returned once
// the session is fully stopped.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != activity.StateActive {
		return nil
	}

	srcErr := c.source.Stop()

	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil

	c.recorder.Stop()
	c.state = activity.StateStopped

	if srcErr != nil {
		c.logger.Warn().Err(srcErr).Str("source", c.sourceName).Msg("Event source stopped with error")
		return fmt.Errorf("failed to stop event source: %w", srcErr)
	}
	return nil
}

// State returns the lifecycle state.
func (c *Controller) State() activity.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reconfigure changes the idle threshold. It fails while a session runs.
func (c *Controller) Reconfigure(threshold time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recorder.Configure(threshold)
}

// IsActive reports whether a session is running.
func (c *Controller) IsActive() bool {
	return c.State() == activity.StateActive
}

// Stats returns a copy of the session counters.
func (c *Controller) Stats() types.Stats {
	return c.recorder.Stats()
}

// Log returns a copy of the event log.
func (c *Controller) Log() []types.Event {
	return c.recorder.Log()
}

// Status returns the recorder's status string.
func (c *Controller) Status() string {
	return c.recorder.Status()
}
