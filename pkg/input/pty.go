//go:build !windows

package input

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/Veraticus/activity-monitor/pkg/interfaces"
)

// PTYSource runs a command on a pseudo-terminal and records the
// keystrokes forwarded to it. Mouse reports are seen only if the child
// enables mouse tracking itself.
type PTYSource struct {
	command string
	args    []string
	stdin   *os.File
	stdout  io.Writer
	cfg     sourceConfig
	logger  zerolog.Logger
	input   *reader

	mu       sync.Mutex
	cmd      *exec.Cmd
	pty      *os.File
	restore  func()
	gate     *gate
	stopChan chan struct{}
	exited   chan struct{}
	wg       sync.WaitGroup
}

// Ensure PTYSource implements EventSource
var _ interfaces.EventSource = (*PTYSource)(nil)

// NewPTYSource creates a source that wraps command.
func NewPTYSource(command string, args []string, stdin *os.File, stdout io.Writer, opts ...SourceOption) *PTYSource {
	cfg := defaultSourceConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &PTYSource{
		command: command,
		args:    args,
		stdin:   stdin,
		stdout:  stdout,
		cfg:     cfg,
		logger:  cfg.logger,
		input:   newReader(stdin, cfg.logger),
	}
}

// Start launches the command and begins delivering its input to handler.
func (p *PTYSource) Start(handler interfaces.InputHandler) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return ErrAlreadyStarted
	}

	cmd := exec.Command(p.command, p.args...)
	cmd.Env = os.Environ()

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("failed to start %s: %w", p.command, err)
	}

	p.cmd = cmd
	p.pty = ptmx
	p.gate = newGate(handler)
	p.stopChan = make(chan struct{})
	p.exited = make(chan struct{})

	if err := p.copyTerminalSize(); err != nil {
		// Not fatal: stdin may not be a terminal.
		p.logger.Debug().Err(err).Msg("Failed to copy terminal size")
	}

	if fd := int(p.stdin.Fd()); term.IsTerminal(fd) {
		if state, err := term.MakeRaw(fd); err == nil {
			p.restore = func() { _ = term.Restore(fd, state) }
		} else {
			p.logger.Warn().Err(err).Msg("Failed to enter raw mode")
		}
	}

	p.wg.Add(1)
	go p.monitorTerminalSize(p.stopChan)

	decoder := NewDecoder(p.gate)
	p.input.attach(p.forwardInput(ptmx, decoder, p.gate))
	go p.copyOutput(ptmx, p.gate)
	go p.wait(cmd, p.exited)

	p.logger.Info().
		Str("command", p.command).
		Int("pid", cmd.Process.Pid).
		Msg("Started wrapped command")
	return nil
}

// Stop detaches the handler, restores the terminal and terminates the
// command if it is still running.
func (p *PTYSource) Stop() error {
	p.mu.Lock()
	if p.cmd == nil {
		p.mu.Unlock()
		return nil
	}

	p.input.detach()
	p.gate.close()

	if p.restore != nil {
		p.restore()
		p.restore = nil
	}

	var errs []error
	select {
	case <-p.exited:
	default:
		if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			errs = append(errs, fmt.Errorf("failed to signal %s: %w", p.command, err))
		}
	}

	close(p.stopChan)
	ptmx := p.pty
	p.cmd = nil
	p.pty = nil
	p.mu.Unlock()

	// The resize goroutine takes p.mu, so wait for it unlocked.
	p.wg.Wait()

	if err := ptmx.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close pty: %w", err))
	}
	return errors.Join(errs...)
}

func (p *PTYSource) wait(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()
	close(exited)

	p.logger.Info().Err(err).Msg("Wrapped command exited")
	if p.cfg.onExit != nil {
		p.cfg.onExit(err)
	}
}

// forwardInput returns the stdin sink for one session: chunks go to the
// child and are decoded on the way.
func (p *PTYSource) forwardInput(ptmx *os.File, decoder *Decoder, g *gate) func([]byte) {
	return func(chunk []byte) {
		if _, err := ptmx.Write(chunk); err != nil && g.isOpen() {
			p.logger.Debug().Err(err).Msg("Failed to forward input to pty")
		}
		decoder.Feed(chunk)
	}
}

func (p *PTYSource) copyOutput(ptmx *os.File, g *gate) {
	if _, err := io.Copy(p.stdout, ptmx); err != nil && g.isOpen() {
		// Reading a pty after the child exits returns EIO on Linux.
		p.logger.Debug().Err(err).Msg("pty copy ended")
	}
}

// copyTerminalSize copies the terminal size from stdin to the PTY
func (p *PTYSource) copyTerminalSize() error {
	size, err := pty.GetsizeFull(p.stdin)
	if err != nil {
		return err
	}
	return pty.Setsize(p.pty, size)
}

func (p *PTYSource) monitorTerminalSize(stop <-chan struct{}) {
	defer p.wg.Done()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGWINCH)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			p.mu.Lock()
			if p.pty != nil {
				if err := p.copyTerminalSize(); err != nil {
					p.logger.Debug().Err(err).Msg("Failed to resize PTY")
				}
			}
			p.mu.Unlock()
		case <-stop:
			return
		}
	}
}
