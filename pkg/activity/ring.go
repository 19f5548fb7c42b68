package activity

import "github.com/Veraticus/activity-monitor/pkg/types"

// DefaultLogCapacity is the number of events retained per session.
const DefaultLogCapacity = 10000

// Ring is a fixed-capacity event log that evicts the oldest entry on overflow.
// It is not safe for concurrent use; the Recorder guards it with its lock.
type Ring struct {
	buf   []types.Event
	start int
	n     int
}

// NewRing creates a ring holding at most capacity events.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &Ring{buf: make([]types.Event, capacity)}
}

// Push appends an event and reports whether the oldest one was evicted.
func (r *Ring) Push(e types.Event) bool {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = e
		r.n++
		return false
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
	return true
}

// Len returns the number of stored events.
func (r *Ring) Len() int {
	return r.n
}

// Cap returns the maximum number of stored events.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Items returns a copy of the stored events, oldest first.
func (r *Ring) Items() []types.Event {
	out := make([]types.Event, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Reset removes all events.
func (r *Ring) Reset() {
	clear(r.buf)
	r.start = 0
	r.n = 0
}
