package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softactuator/pdlogger/pkg/series"
)

func sampleRecords() []series.Record {
	return []series.Record{
		{
			Time:         0.0,
			Pressure:     series.Field{Value: 50.0, Valid: true},
			Displacement: series.Field{Value: 1.25, Valid: true},
		},
		{
			Time:         0.1,
			Pressure:     series.Field{}, // failed read
			Displacement: series.Field{Value: 1.5, Valid: true},
		},
		{
			Time:         0.2,
			Pressure:     series.Field{Value: -3.125, Valid: true},
			Displacement: series.Field{}, // failed read
		},
	}
}

func TestCSV_Layout(t *testing.T) {
	text := CSV(sampleRecords())

	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	require.Len(t, lines, 4) // header + 3 rows

	assert.Equal(t, "time_s,pressure_kPa,displacement_mm", lines[0])
	assert.Equal(t, "0.000000,50.000000,1.250000", lines[1])
	assert.Equal(t, "0.100000,,1.500000", lines[2])
	assert.Equal(t, "0.200000,-3.125000,", lines[3])
}

func TestCSV_Empty(t *testing.T) {
	text := CSV(nil)
	assert.Equal(t, "time_s,pressure_kPa,displacement_mm\n", text)
}

func TestCSV_RoundTrip(t *testing.T) {
	records := sampleRecords()
	text := CSV(records)

	r := csv.NewReader(strings.NewReader(text))
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, len(records)+1)
	assert.Equal(t, Header, rows[0])

	for i, rec := range records {
		row := rows[i+1]

		ts, err := strconv.ParseFloat(row[0], 64)
		require.NoError(t, err)
		assert.InDelta(t, rec.Time, ts, 1e-6)

		// Missing fields come back as empty cells, present fields parse
		// back to the original values.
		for col, f := range []series.Field{rec.Pressure, rec.Displacement} {
			cell := row[col+1]
			if !f.Valid {
				assert.Empty(t, cell)
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			require.NoError(t, err)
			assert.InDelta(t, f.Value, v, 1e-6)
		}
	}
}

func TestClipboardText_MatchesCSV(t *testing.T) {
	records := sampleRecords()
	assert.Equal(t, CSV(records), ClipboardText(records))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.csv")

	require.NoError(t, WriteFile(path, sampleRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, CSV(sampleRecords()), string(data))

	// No temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "session.csv", entries[0].Name())
}

func TestWriteFile_Overwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.csv")

	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))
	require.NoError(t, WriteFile(path, sampleRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, "old", string(data))
}

func TestWriteFile_BadDirectory(t *testing.T) {
	err := WriteFile(filepath.Join("nonexistent-dir-xyz", "session.csv"), sampleRecords())
	assert.ErrorIs(t, err, ErrWrite)

	// Failure produces no file
	_, statErr := os.Stat(filepath.Join("nonexistent-dir-xyz", "session.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteFile_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}

	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, WriteFile(path, sampleRecords()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}
