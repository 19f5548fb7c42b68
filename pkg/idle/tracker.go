// Package idle classifies session time into active and idle periods.
package idle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Veraticus/activity-monitor/pkg/activity"
	"github.com/Veraticus/activity-monitor/pkg/clock"
	"github.com/Veraticus/activity-monitor/pkg/types"
)

// DefaultInterval is the sampling period of the tracker loop.
const DefaultInterval = time.Second

// State is the tracker's classification of the user.
type State int

const (
	StateActive State = iota
	StateIdle
)

func (s State) String() string {
	if s == StateIdle {
		return "idle"
	}
	return "active"
}

// Ledger is the synchronized session the tracker accounts into.
// Update returns false once the session has stopped.
type Ledger interface {
	Update(fn func(tx *activity.Txn)) bool
}

// Tracker samples the time since last activity on every tick and
// accumulates active and idle time. Its state is owned by the goroutine
// calling Run (or Tick in tests).
type Tracker struct {
	ledger   Ledger
	clock    clock.Clock
	interval time.Duration
	logger   zerolog.Logger

	state     State
	idleStart time.Time
	lastTick  time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) {
		t.clock = c
	}
}

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger.With().Str("component", "idle-tracker").Logger()
	}
}

// NewTracker creates a tracker accounting into ledger.
func NewTracker(ledger Ledger, opts ...Option) *Tracker {
	t := &Tracker{
		ledger:   ledger,
		clock:    clock.Real{},
		interval: DefaultInterval,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.Reset(t.clock.Now())
	return t
}

// Reset puts the tracker in the Active state with its last tick at now.
func (t *Tracker) Reset(now time.Time) {
	t.state = StateActive
	t.idleStart = time.Time{}
	t.lastTick = now
}

// Run ticks until ctx is cancelled or the session stops.
func (t *Tracker) Run(ctx context.Context) {
	t.Reset(t.clock.Now())

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !t.safeTick(t.clock.Now()) {
				t.logger.Debug().Msg("Session stopped, tracker exiting")
				return
			}
		}
	}
}

// safeTick keeps the loop alive across a failing tick.
func (t *Tracker) safeTick(now time.Time) (running bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().
				Interface("panic", r).
				Time("tick", now).
				Msg("Idle tracker tick failed")
			t.lastTick = now
			running = true
		}
	}()
	return t.Tick(now)
}

type transition struct {
	to       State
	at       time.Time
	duration time.Duration
}

// Tick performs one sampling step at now. It returns false if the session
// has stopped. The tick in which the threshold is first crossed is credited
// entirely to idle time, and the idle period start is back-dated by the
// threshold. Log entries are stamped with now to keep the log chronological.
func (t *Tracker) Tick(now time.Time) bool {
	var changed *transition

	ok := t.ledger.Update(func(tx *activity.Txn) {
		threshold := tx.Threshold()
		elapsed := now.Sub(tx.LastActivity())
		step := now.Sub(t.lastTick)
		if step < 0 {
			step = 0
		}

		if elapsed >= threshold {
			if t.state == StateActive {
				t.state = StateIdle
				t.idleStart = now.Add(-threshold)
				tx.Append(now, types.KindIdleStart, "Threshold: "+formatSeconds(threshold)+" seconds")
				changed = &transition{to: StateIdle, at: t.idleStart}
			}
			tx.AddIdle(step)
		} else {
			if t.state == StateIdle {
				t.state = StateActive
				d := now.Sub(t.idleStart)
				tx.Append(now, types.KindIdleEnd, fmt.Sprintf("Idle duration: %.1f seconds", d.Seconds()))
				changed = &transition{to: StateActive, at: now, duration: d}
			}
			tx.AddActive(step)
		}
	})
	if !ok {
		return false
	}

	t.lastTick = now

	if changed != nil {
		t.logger.Debug().
			Str("state", changed.to.String()).
			Time("at", changed.at).
			Dur("idle_duration", changed.duration).
			Msg("Activity state changed")
	}
	return true
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
