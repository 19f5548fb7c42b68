package testutil

import (
	"fmt"
	"sync"

	"github.com/Veraticus/activity-monitor/pkg/interfaces"
	"github.com/Veraticus/activity-monitor/pkg/types"
)

// MockSource is a thread-safe mock implementation of interfaces.EventSource.
// Tests drive input through the Emit methods, which reach the handler only
// while the source is started.
type MockSource struct {
	mu         sync.Mutex
	handler    interfaces.InputHandler
	startErr   error
	stopErr    error
	startCount int
	stopCount  int
}

// Ensure MockSource implements EventSource
var _ interfaces.EventSource = (*MockSource)(nil)

// NewMockSource creates a new mock source
func NewMockSource() *MockSource {
	return &MockSource{}
}

// Start implements the EventSource interface
func (m *MockSource) Start(handler interfaces.InputHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.startCount++
	if m.startErr != nil {
		return m.startErr
	}
	m.handler = handler
	return nil
}

// Stop implements the EventSource interface
func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopCount++
	m.handler = nil
	return m.stopErr
}

// SetStartError sets the error to return on Start calls
func (m *MockSource) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

// SetStopError sets the error to return on Stop calls
func (m *MockSource) SetStopError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopErr = err
}

// IsStarted reports whether a handler is attached
func (m *MockSource) IsStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handler != nil
}

// GetStartCount returns how many times Start was called
func (m *MockSource) GetStartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCount
}

// GetStopCount returns how many times Stop was called
func (m *MockSource) GetStopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCount
}

func (m *MockSource) current() interfaces.InputHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handler
}

// EmitMouseMove delivers a mouse move if started
func (m *MockSource) EmitMouseMove(x, y int) {
	if h := m.current(); h != nil {
		h.OnMouseMove(x, y)
	}
}

// EmitMouseClick delivers a mouse click if started
func (m *MockSource) EmitMouseClick(x, y int, button types.Button, pressed bool) {
	if h := m.current(); h != nil {
		h.OnMouseClick(x, y, button, pressed)
	}
}

// EmitMouseScroll delivers a scroll if started
func (m *MockSource) EmitMouseScroll(x, y, dx, dy int) {
	if h := m.current(); h != nil {
		h.OnMouseScroll(x, y, dx, dy)
	}
}

// EmitKeyPress delivers a key press if started
func (m *MockSource) EmitKeyPress(key types.Key) {
	if h := m.current(); h != nil {
		h.OnKeyPress(key)
	}
}

// RecordingHandler is a thread-safe interfaces.InputHandler that records
// every call as a string such as "move 1,2" or "key a".
type RecordingHandler struct {
	mu    sync.Mutex
	calls []string
}

// Ensure RecordingHandler implements InputHandler
var _ interfaces.InputHandler = (*RecordingHandler)(nil)

// NewRecordingHandler creates a new recording handler
func NewRecordingHandler() *RecordingHandler {
	return &RecordingHandler{calls: []string{}}
}

func (r *RecordingHandler) record(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

// OnMouseMove implements the InputHandler interface
func (r *RecordingHandler) OnMouseMove(x, y int) {
	r.record("move %d,%d", x, y)
}

// OnMouseClick implements the InputHandler interface
func (r *RecordingHandler) OnMouseClick(x, y int, button types.Button, pressed bool) {
	action := "release"
	if pressed {
		action = "press"
	}
	r.record("click %s %s %d,%d", button, action, x, y)
}

// OnMouseScroll implements the InputHandler interface
func (r *RecordingHandler) OnMouseScroll(x, y, dx, dy int) {
	r.record("scroll %d,%d at %d,%d", dx, dy, x, y)
}

// OnKeyPress implements the InputHandler interface
func (r *RecordingHandler) OnKeyPress(key types.Key) {
	r.record("key %s", key)
}

// GetCalls returns a copy of the recorded calls
func (r *RecordingHandler) GetCalls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]string, len(r.calls))
	copy(result, r.calls)
	return result
}

// Clear resets the recorded calls
func (r *RecordingHandler) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = []string{}
}

// MockStatusProvider is a settable interfaces.StatusProvider
type MockStatusProvider struct {
	mu     sync.Mutex
	active bool
	status string
	stats  types.Stats
	log    []types.Event
}

// Ensure MockStatusProvider implements StatusProvider
var _ interfaces.StatusProvider = (*MockStatusProvider)(nil)

// NewMockStatusProvider creates a provider reporting status
func NewMockStatusProvider(active bool, status string) *MockStatusProvider {
	return &MockStatusProvider{active: active, status: status}
}

// IsActive implements the StatusProvider interface
func (m *MockStatusProvider) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Status implements the StatusProvider interface
func (m *MockStatusProvider) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Stats implements the StatusProvider interface
func (m *MockStatusProvider) Stats() types.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Log implements the StatusProvider interface
func (m *MockStatusProvider) Log() []types.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]types.Event, len(m.log))
	copy(result, m.log)
	return result
}

// Set updates the reported state
func (m *MockStatusProvider) Set(active bool, status string, stats types.Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = active
	m.status = status
	m.stats = stats
}

// SetLog replaces the reported event log
func (m *MockStatusProvider) SetLog(log []types.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append([]types.Event(nil), log...)
}
