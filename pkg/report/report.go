// Package report renders session snapshots as CSV and plain-text reports.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Veraticus/activity-monitor/pkg/types"
)

const (
	// TimestampLayout is used for CSV times and the report generation line.
	TimestampLayout = "2006-01-02 15:04:05"
	// ClockLayout is used for detailed text log lines.
	ClockLayout = "15:04:05"
)

var csvHeader = []string{"Time", "Activity Type", "Details"}

// Snapshot is the data a report is rendered from.
type Snapshot struct {
	Stats  types.Stats
	Events []types.Event
}

// WriteCSV writes events with a header row.
func WriteCSV(w io.Writer, events []types.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, ev := range events {
		if err := cw.Write([]string{ev.Time.Format(TimestampLayout), ev.Kind.String(), ev.Details}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a CSV export. Times are interpreted in the local zone
// with one-second resolution.
func ReadCSV(r io.Reader) ([]types.Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, name := range csvHeader {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected header column %d: %q", i+1, header[i])
		}
	}

	var events []types.Event
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		at, err := time.ParseInLocation(TimestampLayout, record[0], time.Local)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid time: %w", line, err)
		}
		kind, err := types.ParseEventKind(record[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, types.Event{Time: at, Kind: kind, Details: record[2]})
	}
	return events, nil
}

// WriteText writes the human-readable report.
func WriteText(w io.Writer, generatedAt time.Time, snap Snapshot) error {
	var b strings.Builder

	b.WriteString("USER ACTIVITY REPORT\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generatedAt.Format(TimestampLayout))

	b.WriteString("SUMMARY:\n")
	b.WriteString(strings.Repeat("-", 20) + "\n")
	fmt.Fprintf(&b, "Active time: %s\n", FormatDuration(snap.Stats.ActiveSeconds))
	fmt.Fprintf(&b, "Idle time: %s\n", FormatDuration(snap.Stats.IdleSeconds))
	fmt.Fprintf(&b, "Mouse moves: %d\n", snap.Stats.MouseMoves)
	fmt.Fprintf(&b, "Key presses: %d\n\n", snap.Stats.KeyPresses)

	b.WriteString("DETAILED LOG:\n")
	b.WriteString(strings.Repeat("-", 20) + "\n")
	for _, ev := range snap.Events {
		fmt.Fprintf(&b, "%s - %s: %s\n", ev.Time.Format(ClockLayout), ev.Kind, ev.Details)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatDuration renders seconds as H:MM:SS, truncating fractions.
// Hours are not wrapped at a day.
func FormatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, total%3600/60, total%60)
}
