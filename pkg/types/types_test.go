package types

import (
	"testing"
	"time"
)

func TestEventKind_ParseRoundTrip(t *testing.T) {
	for kind := KindMouseMove; kind <= KindSessionStop; kind++ {
		got, err := ParseEventKind(kind.String())
		if err != nil {
			t.Errorf("ParseEventKind(%q) error = %v", kind.String(), err)
			continue
		}
		if got != kind {
			t.Errorf("ParseEventKind(%q) = %v, want %v", kind.String(), got, kind)
		}
	}
}

func TestParseEventKind_Unknown(t *testing.T) {
	if _, err := ParseEventKind("Mouse Hover"); err == nil {
		t.Error("ParseEventKind(\"Mouse Hover\") error = nil, want error")
	}
}

func TestEventKind_String(t *testing.T) {
	tests := []struct {
		kind EventKind
		want string
	}{
		{KindMouseMove, "Mouse Move"},
		{KindKeyPress, "Key Press"},
		{KindIdleEnd, "Idle End"},
		{KindSessionStop, "Session Stop"},
		{EventKind(99), "EventKind(99)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("EventKind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func TestKey_String(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{CharKey('a'), "a"},
		{CharKey('é'), "é"},
		{KeyEnter, "enter"},
		{FunctionKey(5), "f5"},
		{CtrlKey('c'), "ctrl+c"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestButton_String(t *testing.T) {
	tests := []struct {
		button Button
		want   string
	}{
		{ButtonLeft, "left"},
		{ButtonMiddle, "middle"},
		{ButtonRight, "right"},
		{ButtonUnknown, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.button.String(); got != tt.want {
			t.Errorf("Button(%d).String() = %q, want %q", int(tt.button), got, tt.want)
		}
	}
}

func TestStats_Durations(t *testing.T) {
	s := Stats{ActiveSeconds: 90.5, IdleSeconds: 2}
	if got := s.ActiveDuration(); got != 90500*time.Millisecond {
		t.Errorf("ActiveDuration() = %v, want 1m30.5s", got)
	}
	if got := s.IdleDuration(); got != 2*time.Second {
		t.Errorf("IdleDuration() = %v, want 2s", got)
	}
}
