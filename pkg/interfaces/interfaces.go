// Package interfaces defines the core interfaces used throughout the application.
package interfaces

import "github.com/Veraticus/activity-monitor/pkg/types"

// InputHandler receives raw input notifications from an EventSource.
type InputHandler interface {
	OnMouseMove(x, y int)
	OnMouseClick(x, y int, button types.Button, pressed bool)
	OnMouseScroll(x, y, dx, dy int)
	OnKeyPress(key types.Key)
}

// EventSource delivers input notifications asynchronously.
type EventSource interface {
	Start(handler InputHandler) error
	Stop() error
}

// SnapshotProvider exposes read-only copies of the session state.
type SnapshotProvider interface {
	Stats() types.Stats
	Log() []types.Event
}

// StatusProvider is the polling interface used by presentation layers.
type StatusProvider interface {
	SnapshotProvider
	IsActive() bool
	Status() string
}

// EventObserver is notified of every appended log entry.
type EventObserver interface {
	ObserveEvent(event types.Event)
}
