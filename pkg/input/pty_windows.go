package input

import (
	"io"
	"os"

	"github.com/Veraticus/activity-monitor/pkg/interfaces"
)

// PTYSource is unavailable on Windows.
type PTYSource struct{}

// NewPTYSource returns a source whose Start always fails.
func NewPTYSource(_ string, _ []string, _ *os.File, _ io.Writer, _ ...SourceOption) *PTYSource {
	return &PTYSource{}
}

func (p *PTYSource) Start(interfaces.InputHandler) error { return ErrUnsupported }

func (p *PTYSource) Stop() error { return nil }
