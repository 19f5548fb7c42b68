package input

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Veraticus/activity-monitor/pkg/interfaces"
	"github.com/Veraticus/activity-monitor/pkg/types"
)

// Source kinds accepted by New.
const (
	KindTerminal = "terminal"
	KindPTY      = "pty"
)

var (
	// ErrNotTerminal is returned when the input stream is not a terminal.
	ErrNotTerminal = errors.New("input is not a terminal")
	// ErrAlreadyStarted is returned by Start on a running source.
	ErrAlreadyStarted = errors.New("event source already started")
	// ErrUnsupported is returned when a source kind is unavailable on this platform.
	ErrUnsupported = errors.New("event source not supported on this platform")
)

// Options selects and configures an event source.
type Options struct {
	Kind    string
	Command string
	Args    []string
	Stdin   *os.File
	Stdout  io.Writer
	Logger  zerolog.Logger
	// DisableMouse leaves terminal mouse reporting off.
	DisableMouse bool
	OnInterrupt  func()
	OnExit       func(error)
}

// New creates the event source named by opts.Kind.
func New(opts Options) (interfaces.EventSource, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	switch opts.Kind {
	case "", KindTerminal:
		return NewTerminalSource(opts.Stdin, opts.Stdout,
			WithLogger(opts.Logger),
			WithInterruptHandler(opts.OnInterrupt),
			WithMouse(!opts.DisableMouse),
		), nil
	case KindPTY:
		if opts.Command == "" {
			return nil, fmt.Errorf("pty source requires a command")
		}
		return NewPTYSource(opts.Command, opts.Args, opts.Stdin, opts.Stdout,
			WithLogger(opts.Logger),
			WithExitHandler(opts.OnExit),
		), nil
	default:
		return nil, fmt.Errorf("unknown event source %q", opts.Kind)
	}
}

// SourceOption configures terminal and PTY sources.
type SourceOption func(*sourceConfig)

type sourceConfig struct {
	logger      zerolog.Logger
	onInterrupt func()
	onExit      func(error)
	mouse       bool
}

func defaultSourceConfig() sourceConfig {
	return sourceConfig{logger: zerolog.Nop(), mouse: true}
}

// WithLogger sets the source logger.
func WithLogger(logger zerolog.Logger) SourceOption {
	return func(c *sourceConfig) {
		c.logger = logger.With().Str("component", "input").Logger()
	}
}

// WithInterruptHandler sets the callback for Ctrl-C in raw mode.
func WithInterruptHandler(fn func()) SourceOption {
	return func(c *sourceConfig) {
		c.onInterrupt = fn
	}
}

// WithExitHandler sets the callback run when a wrapped command exits.
func WithExitHandler(fn func(error)) SourceOption {
	return func(c *sourceConfig) {
		c.onExit = fn
	}
}

// WithMouse toggles mouse tracking.
func WithMouse(enabled bool) SourceOption {
	return func(c *sourceConfig) {
		c.mouse = enabled
	}
}

// gate forwards events to a handler until closed. Reader goroutines may
// outlive Stop by one read, so delivery is cut off here.
type gate struct {
	handler interfaces.InputHandler
	open    atomic.Bool
}

func newGate(h interfaces.InputHandler) *gate {
	g := &gate{handler: h}
	g.open.Store(true)
	return g
}

func (g *gate) close() { g.open.Store(false) }

func (g *gate) isOpen() bool { return g.open.Load() }

func (g *gate) OnMouseMove(x, y int) {
	if g.isOpen() {
		g.handler.OnMouseMove(x, y)
	}
}

func (g *gate) OnMouseClick(x, y int, button types.Button, pressed bool) {
	if g.isOpen() {
		g.handler.OnMouseClick(x, y, button, pressed)
	}
}

func (g *gate) OnMouseScroll(x, y, dx, dy int) {
	if g.isOpen() {
		g.handler.OnMouseScroll(x, y, dx, dy)
	}
}

func (g *gate) OnKeyPress(key types.Key) {
	if g.isOpen() {
		g.handler.OnKeyPress(key)
	}
}

// reader owns the only goroutine reading an input file and hands each chunk
// to the attached sink. A read blocked across Stop delivers its chunk to the
// next session instead of losing it. Chunks read while detached are dropped.
type reader struct {
	in     io.Reader
	logger zerolog.Logger

	mu      sync.Mutex
	sink    func([]byte)
	running bool
}

func newReader(in io.Reader, logger zerolog.Logger) *reader {
	return &reader{in: in, logger: logger}
}

// attach routes input to sink, starting the read goroutine if needed.
func (r *reader) attach(sink func([]byte)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sink = sink
	if !r.running {
		r.running = true
		go r.run()
	}
}

func (r *reader) detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = nil
}

func (r *reader) current() func([]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sink
}

func (r *reader) run() {
	buf := make([]byte, 256)
	for {
		n, err := r.in.Read(buf)
		if n > 0 {
			if sink := r.current(); sink != nil {
				sink(buf[:n])
			}
		}
		if err != nil {
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()

			if !errors.Is(err, io.EOF) {
				r.logger.Warn().Err(err).Msg("Input read failed")
			}
			return
		}
	}
}
