package status

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/activity-monitor/pkg/testutil"
	"github.com/Veraticus/activity-monitor/pkg/types"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestIndicator_Render(t *testing.T) {
	stats := types.Stats{ActiveSeconds: 65, IdleSeconds: 3600, MouseMoves: 4, KeyPresses: 9}

	tests := []struct {
		name   string
		active bool
		status string
		want   string
	}{
		{"active", true, "Active", "▶ Active"},
		{"idle", true, "Idle for 300 seconds", "Ⓩ Idle for 300 seconds"},
		{"stopped", false, "Stopped", "■ Stopped"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := testutil.NewMockStatusProvider(tt.active, tt.status)
			provider.Set(tt.active, tt.status, stats)
			indicator := NewIndicator(&bytes.Buffer{}, provider, true, WithColor(false))

			got := indicator.Render()
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("Render() = %q, want prefix %q", got, tt.want)
			}
			if !strings.Contains(got, "active 0:01:05  idle 1:00:00  moves 4  keys 9") {
				t.Errorf("Render() = %q, missing counters", got)
			}
		})
	}
}

func TestIndicator_DrawUsesStatusLine(t *testing.T) {
	buf := &bytes.Buffer{}
	provider := testutil.NewMockStatusProvider(true, "Active")
	indicator := NewIndicator(buf, provider, true, WithColor(false))

	if err := indicator.Draw(); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "\0337\033[r\033[999;1H\033[2K") {
		t.Errorf("Draw() output %q does not start with the save/move sequence", out)
	}
	if !strings.HasSuffix(out, "\0338") {
		t.Errorf("Draw() output %q does not restore the cursor", out)
	}
	if !strings.Contains(out, "▶ Active") {
		t.Errorf("Draw() output %q missing status", out)
	}
}

func TestIndicator_Disabled(t *testing.T) {
	buf := &bytes.Buffer{}
	indicator := NewIndicator(buf, testutil.NewMockStatusProvider(true, "Active"), false)

	_ = indicator.Draw()
	_ = indicator.Clear()
	indicator.Refresh()

	if buf.Len() != 0 {
		t.Errorf("disabled indicator wrote %q", buf.String())
	}
}

func TestIndicator_Clear(t *testing.T) {
	buf := &bytes.Buffer{}
	indicator := NewIndicator(buf, testutil.NewMockStatusProvider(true, "Active"), true)

	if err := indicator.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got := buf.String(); got != "\0337\033[999;1H\033[2K\0338" {
		t.Errorf("Clear() wrote %q", got)
	}
}

func TestIndicator_AutoRefresh(t *testing.T) {
	buf := &lockedBuffer{}
	provider := testutil.NewMockStatusProvider(true, "Active")
	indicator := NewIndicator(buf, provider, true, WithColor(false), WithInterval(10*time.Millisecond))

	stop := make(chan struct{})
	done := indicator.StartAutoRefresh(stop)

	provider.Set(true, "Idle for 7 seconds", types.Stats{})
	indicator.ObserveEvent(types.Event{Kind: types.KindIdleStart})

	deadline := time.After(2 * time.Second)
	for !strings.Contains(buf.String(), "Idle for 7 seconds") {
		select {
		case <-deadline:
			t.Fatalf("indicator never drew the idle status; output %q", buf.String())
		case <-time.After(5 * time.Millisecond):
		}
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("auto refresh did not stop")
	}

	if !strings.HasSuffix(buf.String(), "\0337\033[999;1H\033[2K\0338") {
		t.Error("expected the line to be cleared on stop")
	}
}

func TestIndicator_ObserveEventIgnoresInput(t *testing.T) {
	indicator := NewIndicator(&bytes.Buffer{}, testutil.NewMockStatusProvider(true, "Active"), true)

	indicator.ObserveEvent(types.Event{Kind: types.KindMouseMove})
	select {
	case <-indicator.refreshChan:
		t.Error("input event requested a refresh")
	default:
	}

	indicator.ObserveEvent(types.Event{Kind: types.KindIdleEnd})
	select {
	case <-indicator.refreshChan:
	default:
		t.Error("idle transition did not request a refresh")
	}
}
