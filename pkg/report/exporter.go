package report

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/Veraticus/activity-monitor/pkg/clock"
	"github.com/Veraticus/activity-monitor/pkg/interfaces"
)

// Supported export formats.
const (
	FormatCSV  = "csv"
	FormatText = "txt"
)

// ExportError reports a failed export.
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("failed to export %s report to %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// Exporter writes timestamped report files into a directory.
type Exporter struct {
	dir    string
	clock  clock.Clock
	logger zerolog.Logger
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithClock sets the time source used for filenames and the generation line.
func WithClock(c clock.Clock) ExporterOption {
	return func(e *Exporter) {
		e.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) ExporterOption {
	return func(e *Exporter) {
		e.logger = logger.With().Str("component", "exporter").Logger()
	}
}

// NewExporter creates an exporter writing into dir.
func NewExporter(dir string, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		dir:    dir,
		clock:  clock.Real{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Take copies the current state of p into a Snapshot.
func Take(p interfaces.SnapshotProvider) Snapshot {
	return Snapshot{Stats: p.Stats(), Events: p.Log()}
}

// ExportCSV writes the snapshot's events and returns the file path.
func (e *Exporter) ExportCSV(snap Snapshot) (string, error) {
	return e.export(FormatCSV, func(w *bufio.Writer) error {
		return WriteCSV(w, snap.Events)
	})
}

// ExportText writes the text report and returns the file path.
func (e *Exporter) ExportText(snap Snapshot) (string, error) {
	return e.export(FormatText, func(w *bufio.Writer) error {
		return WriteText(w, e.clock.Now(), snap)
	})
}

// Export writes one file per format. It attempts every format and
// returns the paths written along with any errors joined.
func (e *Exporter) Export(snap Snapshot, formats []string) ([]string, error) {
	var paths []string
	var errs []error
	for _, format := range formats {
		var path string
		var err error
		switch format {
		case FormatCSV:
			path, err = e.ExportCSV(snap)
		case FormatText:
			path, err = e.ExportText(snap)
		default:
			err = &ExportError{Format: format, Path: e.dir, Err: errors.New("unsupported format")}
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		paths = append(paths, path)
	}
	return paths, errors.Join(errs...)
}

// Filename returns the report name for format at the exporter's current time.
func (e *Exporter) Filename(format string) string {
	return fmt.Sprintf("activity_report_%s.%s", e.clock.Now().Format("20060102_150405"), format)
}

func (e *Exporter) export(format string, write func(*bufio.Writer) error) (string, error) {
	path := filepath.Join(e.dir, e.Filename(format))

	f, err := os.Create(path) // #nosec G304 -- path is built from the configured export directory
	if err != nil {
		return "", &ExportError{Format: format, Path: path, Err: err}
	}

	w := bufio.NewWriter(f)
	err = write(w)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// Don't leave a truncated report behind
		if rerr := os.Remove(path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			e.logger.Warn().Err(rerr).Str("path", path).Msg("Failed to remove partial report")
		}
		return "", &ExportError{Format: format, Path: path, Err: err}
	}

	e.logger.Info().Str("format", format).Str("path", path).Msg("Report exported")
	return path, nil
}
