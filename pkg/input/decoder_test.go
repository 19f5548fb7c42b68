package input

import (
	"reflect"
	"testing"

	"github.com/Veraticus/activity-monitor/pkg/testutil"
)

func TestDecoder_Feed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"printable", "ab", []string{"key a", "key b"}},
		{"utf8", "é世", []string{"key é", "key 世"}},
		{"enter and tab", "\r\t", []string{"key enter", "key tab"}},
		{"space", " ", []string{"key space"}},
		{"backspace", "\x7f\x08", []string{"key backspace", "key backspace"}},
		{"control", "\x01\x1a", []string{"key ctrl+a", "key ctrl+z"}},
		{"lone escape", "\x1b", []string{"key escape"}},
		{"arrows", "\x1b[A\x1b[B\x1b[C\x1b[D", []string{"key up", "key down", "key right", "key left"}},
		{"ss3 function keys", "\x1bOP\x1bOS", []string{"key f1", "key f4"}},
		{"tilde keys", "\x1b[3~\x1b[5~\x1b[24~", []string{"key delete", "key page_up", "key f12"}},
		{"modified arrow", "\x1b[1;5A", []string{"key up"}},
		{"alt chord", "\x1bx", []string{"key x"}},
		{"focus report ignored", "\x1b[I\x1b[O", nil},
		{"sgr motion", "\x1b[<35;10;5M", []string{"move 9,4"}},
		{"sgr press and release", "\x1b[<0;3;4M\x1b[<0;3;4m", []string{"click left press 2,3", "click left release 2,3"}},
		{"sgr right click", "\x1b[<2;1;1M", []string{"click right press 0,0"}},
		{"sgr wheel", "\x1b[<64;2;2M\x1b[<65;2;2M", []string{"scroll 0,1 at 1,1", "scroll 0,-1 at 1,1"}},
		{"sgr horizontal wheel", "\x1b[<66;2;2M\x1b[<67;2;2M", []string{"scroll -1,0 at 1,1", "scroll 1,0 at 1,1"}},
		{"x10 mouse", "\x1b[M" + string([]byte{32, 33 + 4, 33 + 7}), []string{"click left press 4,7"}},
		{"mixed", "a\x1b[<35;1;1Mb", []string{"key a", "move 0,0", "key b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testutil.NewRecordingHandler()
			NewDecoder(h).Feed([]byte(tt.input))

			got := h.GetCalls()
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Feed(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecoder_SplitSequences(t *testing.T) {
	h := testutil.NewRecordingHandler()
	d := NewDecoder(h)

	d.Feed([]byte("\x1b[<35;1"))
	if calls := h.GetCalls(); len(calls) != 0 {
		t.Fatalf("partial sequence produced %v", calls)
	}
	d.Feed([]byte("2;7M"))

	utf := []byte("世")
	d.Feed(utf[:1])
	d.Feed(utf[1:])

	want := []string{"move 11,6", "key 世"}
	if got := h.GetCalls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestDecoder_Interrupt(t *testing.T) {
	h := testutil.NewRecordingHandler()
	d := NewDecoder(h)

	interrupted := 0
	d.SetInterruptHandler(func() { interrupted++ })

	d.Feed([]byte{0x03})
	if interrupted != 1 {
		t.Errorf("interrupt called %d times, want 1", interrupted)
	}
	if got := h.GetCalls(); !reflect.DeepEqual(got, []string{"key ctrl+c"}) {
		t.Errorf("calls = %v, want [key ctrl+c]", got)
	}
}

func TestDecoder_MalformedMouseReport(t *testing.T) {
	h := testutil.NewRecordingHandler()
	NewDecoder(h).Feed([]byte("\x1b[<x;1;1Mq"))

	want := []string{"key q"}
	if got := h.GetCalls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}
