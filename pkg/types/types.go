// Package types contains shared data structures used across the application.
package types

import (
	"fmt"
	"time"
)

// EventKind identifies what an Event records.
type EventKind int

const (
	KindMouseMove EventKind = iota
	KindMouseClick
	KindMouseScroll
	KindKeyPress
	KindIdleStart
	KindIdleEnd
	KindSessionStart
	KindSessionStop
)

var kindNames = map[EventKind]string{
	KindMouseMove:    "Mouse Move",
	KindMouseClick:   "Mouse Click",
	KindMouseScroll:  "Mouse Scroll",
	KindKeyPress:     "Key Press",
	KindIdleStart:    "Idle Start",
	KindIdleEnd:      "Idle End",
	KindSessionStart: "Session Start",
	KindSessionStop:  "Session Stop",
}

// String returns the display name used in exports.
func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// ParseEventKind maps a display name back to its kind.
func ParseEventKind(name string) (EventKind, error) {
	for kind, n := range kindNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", name)
}

// Event is a single entry of the activity log
type Event struct {
	Time    time.Time
	Kind    EventKind
	Details string
}

// Stats holds the counters of one monitoring session.
type Stats struct {
	SessionID     string
	StartTime     time.Time
	ActiveSeconds float64
	IdleSeconds   float64
	MouseMoves    int
	KeyPresses    int
}

// ActiveDuration returns the active time as a duration.
func (s Stats) ActiveDuration() time.Duration {
	return time.Duration(s.ActiveSeconds * float64(time.Second))
}

// IdleDuration returns the idle time as a duration.
func (s Stats) IdleDuration() time.Duration {
	return time.Duration(s.IdleSeconds * float64(time.Second))
}

// Button is a pointer button.
type Button int

const (
	ButtonUnknown Button = iota
	ButtonLeft
	ButtonMiddle
	ButtonRight
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	default:
		return "unknown"
	}
}

// Key is a pressed key. It is either a CharKey or a SpecialKey.
type Key interface {
	fmt.Stringer
	isKey()
}

// CharKey is a key that produced a printable character.
type CharKey rune

func (CharKey) isKey() {}

func (k CharKey) String() string {
	return string(rune(k))
}

// SpecialKey is a named non-printing key.
type SpecialKey string

func (SpecialKey) isKey() {}

func (k SpecialKey) String() string {
	return string(k)
}

// Named keys produced by the input decoder.
const (
	KeyEnter     SpecialKey = "enter"
	KeyTab       SpecialKey = "tab"
	KeyBackspace SpecialKey = "backspace"
	KeyEscape    SpecialKey = "escape"
	KeySpace     SpecialKey = "space"
	KeyUp        SpecialKey = "up"
	KeyDown      SpecialKey = "down"
	KeyLeft      SpecialKey = "left"
	KeyRight     SpecialKey = "right"
	KeyHome      SpecialKey = "home"
	KeyEnd       SpecialKey = "end"
	KeyPageUp    SpecialKey = "page_up"
	KeyPageDown  SpecialKey = "page_down"
	KeyInsert    SpecialKey = "insert"
	KeyDelete    SpecialKey = "delete"
	KeyUnknown   SpecialKey = "unknown"
)

// FunctionKey returns the named key for F1..F12.
func FunctionKey(n int) SpecialKey {
	return SpecialKey(fmt.Sprintf("f%d", n))
}

// CtrlKey returns the named key for a control chord such as ctrl+a.
func CtrlKey(letter rune) SpecialKey {
	return SpecialKey("ctrl+" + string(letter))
}
