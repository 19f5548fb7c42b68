package testutil

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/activity-monitor/pkg/types"
)

func TestMockSource(t *testing.T) {
	t.Run("emits only while started", func(t *testing.T) {
		src := NewMockSource()
		h := NewRecordingHandler()

		src.EmitKeyPress(types.CharKey('a'))
		if err := src.Start(h); err != nil {
			t.Fatalf("Start() error = %v, want nil", err)
		}
		src.EmitMouseMove(1, 2)
		src.EmitKeyPress(types.KeyEnter)
		if err := src.Stop(); err != nil {
			t.Fatalf("Stop() error = %v, want nil", err)
		}
		src.EmitMouseMove(3, 4)

		calls := h.GetCalls()
		want := []string{"move 1,2", "key enter"}
		if len(calls) != len(want) {
			t.Fatalf("GetCalls() = %v, want %v", calls, want)
		}
		for i := range want {
			if calls[i] != want[i] {
				t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
			}
		}
	})

	t.Run("start error", func(t *testing.T) {
		src := NewMockSource()
		mockErr := errors.New("no device")
		src.SetStartError(mockErr)

		if err := src.Start(NewRecordingHandler()); err != mockErr {
			t.Errorf("Start() error = %v, want %v", err, mockErr)
		}
		if src.IsStarted() {
			t.Error("IsStarted() = true after failed start")
		}
		if src.GetStartCount() != 1 {
			t.Errorf("GetStartCount() = %d, want 1", src.GetStartCount())
		}
	})

	t.Run("stop error", func(t *testing.T) {
		src := NewMockSource()
		mockErr := errors.New("restore failed")
		src.SetStopError(mockErr)
		_ = src.Start(NewRecordingHandler())

		if err := src.Stop(); err != mockErr {
			t.Errorf("Stop() error = %v, want %v", err, mockErr)
		}
		if src.GetStopCount() != 1 {
			t.Errorf("GetStopCount() = %d, want 1", src.GetStopCount())
		}
	})
}

func TestRecordingHandler(t *testing.T) {
	h := NewRecordingHandler()
	h.OnMouseClick(5, 6, types.ButtonRight, true)
	h.OnMouseClick(5, 6, types.ButtonRight, false)
	h.OnMouseScroll(1, 1, 0, -1)

	want := []string{
		"click right press 5,6",
		"click right release 5,6",
		"scroll 0,-1 at 1,1",
	}
	calls := h.GetCalls()
	if len(calls) != len(want) {
		t.Fatalf("GetCalls() = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}

	h.Clear()
	if len(h.GetCalls()) != 0 {
		t.Error("Clear() did not reset calls")
	}
}

func TestMockStatusProvider(t *testing.T) {
	p := NewMockStatusProvider(false, "Stopped")
	p.Set(true, "Active", types.Stats{MouseMoves: 3})
	p.SetLog([]types.Event{{Kind: types.KindSessionStart}})

	if !p.IsActive() || p.Status() != "Active" {
		t.Errorf("IsActive()/Status() = %v/%q, want true/Active", p.IsActive(), p.Status())
	}
	if p.Stats().MouseMoves != 3 {
		t.Errorf("Stats().MouseMoves = %d, want 3", p.Stats().MouseMoves)
	}

	log := p.Log()
	log[0].Kind = types.KindSessionStop
	if p.Log()[0].Kind != types.KindSessionStart {
		t.Error("Log() returned internal slice")
	}
}

func TestMockSource_ThreadSafety(t *testing.T) {
	src := NewMockSource()
	h := NewRecordingHandler()
	_ = src.Start(h)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				src.EmitMouseMove(n, j)
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent emits timed out")
	}

	if got := len(h.GetCalls()); got != 1000 {
		t.Errorf("recorded %d calls, want 1000", got)
	}
}
