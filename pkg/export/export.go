package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/softactuator/pdlogger/pkg/series"
)

// ErrWrite is returned when a CSV file cannot be written. The in-memory
// session is never touched by a failed export.
var ErrWrite = errors.New("write failed")

// Header is the canonical CSV column layout. This is the single source of
// truth for column ordering; the table view and the firmware docs follow it.
var Header = []string{"time_s", "pressure_kPa", "displacement_mm"}

// CSV renders the records as CSV text: one header line, one row per
// record, \n line endings. Missing fields render as empty cells, never as
// zero, so downstream tools can tell a failed read from a real value.
func CSV(records []series.Record) string {
	var sb strings.Builder

	w := csv.NewWriter(&sb)
	_ = w.Write(Header)
	for _, r := range records {
		_ = w.Write([]string{
			formatSeconds(r.Time),
			formatField(r.Pressure),
			formatField(r.Displacement),
		})
	}
	w.Flush()

	return sb.String()
}

// ClipboardText renders the records identically to CSV. The delivery to
// the system clipboard is the caller's concern.
func ClipboardText(records []series.Record) string {
	return CSV(records)
}

// WriteFile writes the records as CSV to path. The file is written to a
// temporary name in the same directory and atomically renamed into place:
// on failure no file is produced at path and ErrWrite wraps the cause.
func WriteFile(path string, records []series.Record) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".pdlogger-*.csv")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrWrite, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(CSV(records)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	// CreateTemp makes the file 0600; give the export normal permissions
	// before it lands at its final name.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	return nil
}

func formatSeconds(t float64) string {
	return strconv.FormatFloat(t, 'f', 6, 64)
}

func formatField(f series.Field) string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Value, 'f', 6, 64)
}
