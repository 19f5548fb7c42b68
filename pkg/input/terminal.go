package input

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/Veraticus/activity-monitor/pkg/interfaces"
)

// TerminalSource reads keyboard and mouse events from the controlling
// terminal. Start switches the terminal to raw mode and enables mouse
// reporting; Stop restores it.
type TerminalSource struct {
	in     *os.File
	out    io.Writer
	cfg    sourceConfig
	logger zerolog.Logger

	input *reader

	mu      sync.Mutex
	running bool
	state   *term.State
	gate    *gate
}

// Ensure TerminalSource implements EventSource
var _ interfaces.EventSource = (*TerminalSource)(nil)

// NewTerminalSource creates a source reading from in. Terminal control
// sequences are written to out.
func NewTerminalSource(in *os.File, out io.Writer, opts ...SourceOption) *TerminalSource {
	cfg := defaultSourceConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &TerminalSource{
		in:     in,
		out:    out,
		cfg:    cfg,
		logger: cfg.logger,
		input:  newReader(in, cfg.logger),
	}
}

// Start begins delivering events to handler.
func (s *TerminalSource) Start(handler interfaces.InputHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyStarted
	}

	fd := int(s.in.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("%s: %w", s.in.Name(), ErrNotTerminal)
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}

	if s.cfg.mouse {
		if _, err := s.out.Write(enableMouseTracking); err != nil {
			_ = term.Restore(fd, state)
			return fmt.Errorf("failed to enable mouse tracking: %w", err)
		}
	}

	s.state = state
	s.gate = newGate(handler)
	s.running = true

	decoder := NewDecoder(s.gate)
	decoder.SetInterruptHandler(s.cfg.onInterrupt)
	s.input.attach(decoder.Feed)

	s.logger.Debug().Bool("mouse", s.cfg.mouse).Msg("Terminal input started")
	return nil
}

// Stop detaches the handler and restores the terminal.
func (s *TerminalSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	s.input.detach()
	s.gate.close()

	var errs []error
	if s.cfg.mouse {
		if _, err := s.out.Write(disableMouseTracking); err != nil {
			errs = append(errs, fmt.Errorf("failed to disable mouse tracking: %w", err))
		}
	}
	if err := term.Restore(int(s.in.Fd()), s.state); err != nil {
		errs = append(errs, fmt.Errorf("failed to restore terminal: %w", err))
	}
	s.state = nil

	s.logger.Debug().Msg("Terminal input stopped")
	return errors.Join(errs...)
}
