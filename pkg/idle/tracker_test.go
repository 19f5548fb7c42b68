package idle

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/activity-monitor/pkg/activity"
	"github.com/Veraticus/activity-monitor/pkg/clock"
	"github.com/Veraticus/activity-monitor/pkg/types"
)

var testStart = time.Date(2024, 5, 6, 10, 0, 0, 0, time.Local)

func newScenario(t *testing.T, threshold time.Duration) (*activity.Recorder, *Tracker, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(testStart)
	rec := activity.NewRecorder(activity.WithClock(fake))
	if err := rec.Configure(threshold); err != nil {
		t.Fatal(err)
	}
	rec.Start()
	tr := NewTracker(rec, WithClock(fake))
	return rec, tr, fake
}

func eventsOfKind(log []types.Event, kind types.EventKind) []types.Event {
	var out []types.Event
	for _, ev := range log {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func tickSeconds(tr *Tracker, fake *clock.Fake, n int) {
	for i := 0; i < n; i++ {
		tr.Tick(fake.Advance(time.Second))
	}
}

func TestTracker_StaysActiveBelowThreshold(t *testing.T) {
	rec, tr, fake := newScenario(t, 10*time.Second)

	tickSeconds(tr, fake, 5)

	stats := rec.Stats()
	if stats.ActiveSeconds != 5 {
		t.Errorf("ActiveSeconds = %v, want 5", stats.ActiveSeconds)
	}
	if stats.IdleSeconds != 0 {
		t.Errorf("IdleSeconds = %v, want 0", stats.IdleSeconds)
	}
	if tr.state != StateActive {
		t.Errorf("state = %v, want active", tr.state)
	}
}

func TestTracker_IdleScenario(t *testing.T) {
	rec, tr, fake := newScenario(t, 2*time.Second)

	tickSeconds(tr, fake, 5)

	log := rec.Log()
	starts := eventsOfKind(log, types.KindIdleStart)
	if len(starts) != 1 {
		t.Fatalf("found %d IdleStart events, want 1", len(starts))
	}

	// Threshold first crossed at the 2s tick; the period itself is back-dated.
	crossedAt := testStart.Add(2 * time.Second)
	if !starts[0].Time.Equal(crossedAt) {
		t.Errorf("IdleStart time = %v, want %v", starts[0].Time, crossedAt)
	}
	if want := testStart; !tr.idleStart.Equal(want) {
		t.Errorf("idle period start = %v, want %v", tr.idleStart, want)
	}
	if starts[0].Details != "Threshold: 2 seconds" {
		t.Errorf("IdleStart details = %q", starts[0].Details)
	}

	stats := rec.Stats()
	if stats.ActiveSeconds != 1 {
		t.Errorf("ActiveSeconds = %v, want 1", stats.ActiveSeconds)
	}
	if stats.IdleSeconds != 4 {
		t.Errorf("IdleSeconds = %v, want 4 (crossing tick credited to idle)", stats.IdleSeconds)
	}
	if total := stats.ActiveSeconds + stats.IdleSeconds; total != 5 {
		t.Errorf("active+idle = %v, want elapsed 5", total)
	}
	if got := rec.Status(); got != "Idle for 5 seconds" {
		t.Errorf("Status() = %q, want %q", got, "Idle for 5 seconds")
	}

	// Activity resumes; the next tick closes the idle period.
	rec.OnMouseMove(1, 1)
	tr.Tick(fake.Advance(time.Second))

	log = rec.Log()
	if got := len(eventsOfKind(log, types.KindIdleStart)); got != 1 {
		t.Errorf("found %d IdleStart events after resume, want 1", got)
	}
	ends := eventsOfKind(log, types.KindIdleEnd)
	if len(ends) != 1 {
		t.Fatalf("found %d IdleEnd events, want 1", len(ends))
	}
	if ends[0].Details != "Idle duration: 6.0 seconds" {
		t.Errorf("IdleEnd details = %q, want %q", ends[0].Details, "Idle duration: 6.0 seconds")
	}

	stats = rec.Stats()
	if stats.ActiveSeconds != 2 || stats.IdleSeconds != 4 {
		t.Errorf("after resume active=%v idle=%v, want 2 and 4", stats.ActiveSeconds, stats.IdleSeconds)
	}
	if tr.state != StateActive {
		t.Errorf("state = %v, want active", tr.state)
	}
}

func TestTracker_RepeatedIdlePeriods(t *testing.T) {
	rec, tr, fake := newScenario(t, 2*time.Second)

	for round := 0; round < 3; round++ {
		tickSeconds(tr, fake, 3)
		rec.OnKeyPress(types.CharKey('k'))
		tickSeconds(tr, fake, 1)
	}

	log := rec.Log()
	if got := len(eventsOfKind(log, types.KindIdleStart)); got != 3 {
		t.Errorf("IdleStart count = %d, want 3", got)
	}
	if got := len(eventsOfKind(log, types.KindIdleEnd)); got != 3 {
		t.Errorf("IdleEnd count = %d, want 3", got)
	}

	var prev time.Time
	for i, ev := range log {
		if ev.Time.Before(prev) {
			t.Errorf("event %d (%v) out of chronological order", i, ev.Kind)
		}
		prev = ev.Time
	}

	stats := rec.Stats()
	if total := stats.ActiveSeconds + stats.IdleSeconds; total != 12 {
		t.Errorf("active+idle = %v, want 12", total)
	}
}

func TestTracker_TickAfterStop(t *testing.T) {
	rec, tr, fake := newScenario(t, 2*time.Second)
	rec.Stop()

	if tr.Tick(fake.Advance(time.Second)) {
		t.Error("Tick() = true after session stop")
	}
	if got := rec.Stats().ActiveSeconds; got != 0 {
		t.Errorf("ActiveSeconds = %v after stop, want 0", got)
	}
}

func TestTracker_RunStopsOnCancel(t *testing.T) {
	rec := activity.NewRecorder()
	rec.Start()
	tr := NewTracker(rec, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after cancel")
	}

	if rec.Stats().ActiveSeconds <= 0 {
		t.Error("expected active time to accumulate while running")
	}
}

func TestTracker_RunStopsWhenSessionStops(t *testing.T) {
	rec := activity.NewRecorder()
	rec.Start()
	tr := NewTracker(rec, WithInterval(10*time.Millisecond))

	done := make(chan struct{})
	go func() {
		tr.Run(context.Background())
		close(done)
	}()

	rec.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after session stop")
	}
}

type flakyLedger struct {
	calls atomic.Int32
	inner Ledger
}

func (l *flakyLedger) Update(fn func(tx *activity.Txn)) bool {
	if l.calls.Add(1) == 1 {
		panic("transient failure")
	}
	return l.inner.Update(fn)
}

func TestTracker_RunSurvivesPanickingTick(t *testing.T) {
	rec := activity.NewRecorder()
	rec.Start()
	ledger := &flakyLedger{inner: rec}
	tr := NewTracker(ledger, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		tr.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for ledger.calls.Load() < 3 {
		select {
		case <-done:
			t.Fatal("Run exited after a failing tick")
		case <-deadline:
			t.Fatal("tracker stopped ticking after a failing tick")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{300 * time.Second, "300"},
		{1500 * time.Millisecond, "1.5"},
		{2 * time.Second, "2"},
	}
	for _, tt := range tests {
		if got := formatSeconds(tt.in); got != tt.want {
			t.Errorf("formatSeconds(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
