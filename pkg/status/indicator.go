// Package status draws a live activity line at the bottom of the terminal.
package status

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/Veraticus/activity-monitor/pkg/interfaces"
	"github.com/Veraticus/activity-monitor/pkg/report"
	"github.com/Veraticus/activity-monitor/pkg/types"
)

// DefaultInterval is how often the line is redrawn.
const DefaultInterval = time.Second

// Indicator polls a StatusProvider and renders it on the last terminal line.
type Indicator struct {
	mu       sync.Mutex
	provider interfaces.StatusProvider
	writer   io.Writer
	enabled  bool
	interval time.Duration

	activeColor  *color.Color
	idleColor    *color.Color
	stoppedColor *color.Color
	dimColor     *color.Color

	refreshChan chan struct{}
}

// Option configures an Indicator.
type Option func(*Indicator)

// WithInterval sets the refresh interval.
func WithInterval(d time.Duration) Option {
	return func(i *Indicator) {
		if d > 0 {
			i.interval = d
		}
	}
}

// WithColor forces colored output on or off, overriding terminal detection.
func WithColor(enabled bool) Option {
	return func(i *Indicator) {
		for _, c := range []*color.Color{i.activeColor, i.idleColor, i.stoppedColor, i.dimColor} {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// NewIndicator creates a new status indicator
func NewIndicator(writer io.Writer, provider interfaces.StatusProvider, enabled bool, opts ...Option) *Indicator {
	i := &Indicator{
		provider:     provider,
		writer:       writer,
		enabled:      enabled,
		interval:     DefaultInterval,
		activeColor:  color.New(color.FgGreen),
		idleColor:    color.New(color.FgYellow),
		stoppedColor: color.New(color.FgRed),
		dimColor:     color.New(color.FgHiBlack),
		refreshChan:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ensure Indicator implements EventObserver
var _ interfaces.EventObserver = (*Indicator)(nil)

// Render returns the status text for the provider's current state.
func (i *Indicator) Render() string {
	stats := i.provider.Stats()
	status := i.provider.Status()

	var head string
	switch {
	case !i.provider.IsActive():
		head = i.stoppedColor.Sprint("■ " + status)
	case strings.HasPrefix(status, "Idle"):
		head = i.idleColor.Sprint("Ⓩ " + status)
	default:
		head = i.activeColor.Sprint("▶ " + status)
	}

	detail := fmt.Sprintf("active %s  idle %s  moves %d  keys %d",
		report.FormatDuration(stats.ActiveSeconds),
		report.FormatDuration(stats.IdleSeconds),
		stats.MouseMoves,
		stats.KeyPresses,
	)
	return head + "  " + i.dimColor.Sprint(detail)
}

// Draw renders the line once.
func (i *Indicator) Draw() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.draw()
}

func (i *Indicator) draw() error {
	if !i.enabled || i.writer == nil {
		return nil
	}

	// \0337 DECSC, \033[r reset scroll region, \033[999;1H last line,
	// \033[2K clear line, \0338 DECRC.
	sequence := fmt.Sprintf("\0337\033[r\033[999;1H\033[2K%s\0338", i.Render())
	_, err := fmt.Fprint(i.writer, sequence)
	return err
}

// Clear removes the status indicator
func (i *Indicator) Clear() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.enabled || i.writer == nil {
		return nil
	}

	_, err := fmt.Fprint(i.writer, "\0337\033[999;1H\033[2K\0338")
	return err
}

// Refresh requests an immediate redraw from the refresh loop.
func (i *Indicator) Refresh() {
	if !i.enabled {
		return
	}
	select {
	case i.refreshChan <- struct{}{}:
	default:
		// Refresh already pending
	}
}

// ObserveEvent redraws on state transitions.
func (i *Indicator) ObserveEvent(ev types.Event) {
	switch ev.Kind {
	case types.KindIdleStart, types.KindIdleEnd, types.KindSessionStart, types.KindSessionStop:
		i.Refresh()
	}
}

// StartAutoRefresh redraws every interval until stopChan closes, then
// clears the line. The returned channel closes when the loop has exited.
func (i *Indicator) StartAutoRefresh(stopChan <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ticker := time.NewTicker(i.interval)
		defer ticker.Stop()

		_ = i.Draw() // Best effort
		for {
			select {
			case <-ticker.C:
				_ = i.Draw()
			case <-i.refreshChan:
				_ = i.Draw()
			case <-stopChan:
				_ = i.Clear()
				return
			}
		}
	}()
	return done
}
