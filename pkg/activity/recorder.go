// Package activity records input activity and session counters.
package activity

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Veraticus/activity-monitor/pkg/clock"
	"github.com/Veraticus/activity-monitor/pkg/interfaces"
	"github.com/Veraticus/activity-monitor/pkg/types"
)

// DefaultIdleThreshold is the inactivity after which the user is considered idle.
const DefaultIdleThreshold = 5 * time.Minute

// Status strings returned by Recorder.Status.
const (
	StatusStopped = "Stopped"
	StatusActive  = "Active"
)

// State is the lifecycle state of a monitoring session.
type State int

const (
	StateStopped State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "stopped"
}

// Recorder holds the counters and event log of the current session.
// All mutation happens under a single mutex; readers get copies.
type Recorder struct {
	mu           sync.Mutex
	clock        clock.Clock
	logger       zerolog.Logger
	state        State
	threshold    time.Duration
	lastActivity time.Time
	stats        types.Stats
	log          *Ring
	evicting     bool

	obsMu     sync.RWMutex
	observers []interfaces.EventObserver
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(r *Recorder) {
		r.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger.With().Str("component", "recorder").Logger()
	}
}

// WithCapacity sets the event log capacity.
func WithCapacity(n int) Option {
	return func(r *Recorder) {
		r.log = NewRing(n)
	}
}

// NewRecorder creates a stopped recorder with the default threshold.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		clock:     clock.Real{},
		logger:    zerolog.Nop(),
		threshold: DefaultIdleThreshold,
		log:       NewRing(DefaultLogCapacity),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.lastActivity = r.clock.Now()
	return r
}

// Ensure Recorder implements the shared interfaces
var (
	_ interfaces.InputHandler   = (*Recorder)(nil)
	_ interfaces.StatusProvider = (*Recorder)(nil)
)

// AddObserver registers an observer for appended events.
// Observers are called outside the recorder lock.
func (r *Recorder) AddObserver(o interfaces.EventObserver) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

// Configure sets the idle threshold. It fails while monitoring.
func (r *Recorder) Configure(threshold time.Duration) error {
	if err := validateThreshold(threshold); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateActive {
		return fmt.Errorf("cannot change idle threshold: %w", ErrMonitoring)
	}
	r.threshold = threshold
	return nil
}

// IdleThreshold returns the configured threshold.
func (r *Recorder) IdleThreshold() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threshold
}

// Start resets the session and begins accepting events.
// It returns false if a session is already running.
func (r *Recorder) Start() bool {
	r.mu.Lock()
	if r.state == StateActive {
		r.mu.Unlock()
		return false
	}

	now := r.clock.Now()
	r.stats = types.Stats{
		SessionID: uuid.NewString(),
		StartTime: now,
	}
	r.lastActivity = now
	r.log.Reset()
	r.evicting = false
	ev := r.appendLocked(now, types.KindSessionStart, "Activity tracking started")
	r.state = StateActive
	sessionID := r.stats.SessionID
	threshold := r.threshold
	r.mu.Unlock()

	r.logger.Info().
		Str("session_id", sessionID).
		Dur("idle_threshold", threshold).
		Msg("Session started")
	r.notify(ev)
	return true
}

// Stop ends the session and appends a stop marker. Counters remain readable.
// It returns false if no session is running.
func (r *Recorder) Stop() bool {
	r.mu.Lock()
	if r.state != StateActive {
		r.mu.Unlock()
		return false
	}

	r.state = StateStopped
	ev := r.appendLocked(r.clock.Now(), types.KindSessionStop, "Activity tracking stopped")
	stats := r.stats
	r.mu.Unlock()

	r.logger.Info().
		Str("session_id", stats.SessionID).
		Dur("active", stats.ActiveDuration()).
		Dur("idle", stats.IdleDuration()).
		Int("mouse_moves", stats.MouseMoves).
		Int("key_presses", stats.KeyPresses).
		Msg("Session stopped")
	r.notify(ev)
	return true
}

// Abort marks the session stopped without a stop marker.
// It is used when a session fails to start.
func (r *Recorder) Abort() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateActive {
		return false
	}
	r.state = StateStopped
	return true
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// IsActive reports whether a session is running.
func (r *Recorder) IsActive() bool {
	return r.State() == StateActive
}

// OnMouseMove records pointer motion.
func (r *Recorder) OnMouseMove(x, y int) {
	r.recordInput(types.KindMouseMove, fmt.Sprintf("Position: (%d, %d)", x, y))
}

// OnMouseClick records a button press. Releases are ignored.
func (r *Recorder) OnMouseClick(x, y int, button types.Button, pressed bool) {
	if !pressed {
		return
	}
	r.recordInput(types.KindMouseClick, fmt.Sprintf("Button: %s, Position: (%d, %d)", button, x, y))
}

// OnMouseScroll records a wheel movement.
func (r *Recorder) OnMouseScroll(x, y, dx, dy int) {
	r.recordInput(types.KindMouseScroll, fmt.Sprintf("Direction: (%d, %d), Position: (%d, %d)", dx, dy, x, y))
}

// OnKeyPress records a key press.
func (r *Recorder) OnKeyPress(key types.Key) {
	name := string(types.KeyUnknown)
	if key != nil {
		name = key.String()
	}
	r.recordInput(types.KindKeyPress, "Key: "+name)
}

func (r *Recorder) recordInput(kind types.EventKind, details string) {
	r.mu.Lock()
	if r.state != StateActive {
		r.mu.Unlock()
		return
	}

	now := r.clock.Now()
	r.lastActivity = now
	switch kind {
	case types.KindMouseMove:
		r.stats.MouseMoves++
	case types.KindKeyPress:
		r.stats.KeyPresses++
	}
	ev := r.appendLocked(now, kind, details)
	r.mu.Unlock()

	r.notify(ev)
}

// appendLocked must be called with r.mu held.
func (r *Recorder) appendLocked(at time.Time, kind types.EventKind, details string) types.Event {
	ev := types.Event{Time: at, Kind: kind, Details: details}
	if r.log.Push(ev) && !r.evicting {
		r.evicting = true
		r.logger.Warn().
			Str("session_id", r.stats.SessionID).
			Int("capacity", r.log.Cap()).
			Msg("Event log full, dropping oldest entries")
	}
	return ev
}

func (r *Recorder) notify(events ...types.Event) {
	r.obsMu.RLock()
	observers := r.observers
	r.obsMu.RUnlock()

	for _, o := range observers {
		for _, ev := range events {
			o.ObserveEvent(ev)
		}
	}
}

// Stats returns a copy of the session counters.
func (r *Recorder) Stats() types.Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Log returns a copy of the event log, oldest first.
func (r *Recorder) Log() []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log.Items()
}

// LastActivity returns the time of the most recent input event.
func (r *Recorder) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivity
}

// Status describes the current activity: Stopped, Active or "Idle for N seconds".
func (r *Recorder) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateActive {
		return StatusStopped
	}

	elapsed := r.clock.Now().Sub(r.lastActivity)
	if elapsed >= r.threshold {
		return fmt.Sprintf("Idle for %d seconds", int64(math.Round(elapsed.Seconds())))
	}
	return StatusActive
}

// Update runs fn under the recorder lock while a session is active.
// It returns false without calling fn if the session is stopped. Events
// appended by fn reach observers even if fn panics.
func (r *Recorder) Update(fn func(tx *Txn)) bool {
	tx := &Txn{}
	defer func() { r.notify(tx.appended...) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateActive {
		return false
	}
	tx.r = r
	fn(tx)
	tx.r = nil
	return true
}

// Txn gives synchronized access to the session from within Update.
// It must not be retained after fn returns.
type Txn struct {
	r        *Recorder
	appended []types.Event
}

// LastActivity returns the time of the most recent input event.
func (tx *Txn) LastActivity() time.Time {
	return tx.r.lastActivity
}

// Threshold returns the idle threshold.
func (tx *Txn) Threshold() time.Duration {
	return tx.r.threshold
}

// AddActive credits d to active time.
func (tx *Txn) AddActive(d time.Duration) {
	tx.r.stats.ActiveSeconds += d.Seconds()
}

// AddIdle credits d to idle time.
func (tx *Txn) AddIdle(d time.Duration) {
	tx.r.stats.IdleSeconds += d.Seconds()
}

// Append adds an event to the log.
func (tx *Txn) Append(at time.Time, kind types.EventKind, details string) {
	tx.appended = append(tx.appended, tx.r.appendLocked(at, kind, details))
}
