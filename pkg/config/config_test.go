package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, 300*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, float64(10), cfg.Acquisition.Rate)
	assert.Equal(t, 0, cfg.Acquisition.AverageReads)
	assert.Nil(t, cfg.Calibration.Pressure.Low)
	assert.Nil(t, cfg.Calibration.Displacement.High)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyACM0"
  baud_rate: 115200
  read_timeout: 200ms

acquisition:
  rate: 50
  average_reads: 4

calibration:
  pressure:
    low:
      physical: 0.0
      voltage: 0.5
    high:
      physical: 100.0
      voltage: 4.5
`
	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 200*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, float64(50), cfg.Acquisition.Rate)
	assert.Equal(t, 4, cfg.Acquisition.AverageReads)

	require.NotNil(t, cfg.Calibration.Pressure.Low)
	require.NotNil(t, cfg.Calibration.Pressure.High)
	assert.Equal(t, 0.0, cfg.Calibration.Pressure.Low.Physical)
	assert.Equal(t, 0.5, cfg.Calibration.Pressure.Low.Voltage)
	assert.Equal(t, 100.0, cfg.Calibration.Pressure.High.Physical)
	assert.Equal(t, 4.5, cfg.Calibration.Pressure.High.Voltage)
	assert.Nil(t, cfg.Calibration.Displacement.Low)
}

func TestLoad_PartialYAML_BackfillsDefaults(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("serial:\n  port: \"/dev/ttyUSB0\"\n")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, 300*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, float64(10), cfg.Acquisition.Rate)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("serial: [not a mapping")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	_, err = Load(tmpfile.Name())
	assert.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.Serial.Port = "/dev/ttyACM1"
	cfg.Acquisition.Rate = 25
	cfg.Calibration.Displacement.Low = &PointConfig{Physical: -5, Voltage: 0.8}
	cfg.Calibration.Displacement.High = &PointConfig{Physical: 5, Voltage: 4.2}

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM1", loaded.Serial.Port)
	assert.Equal(t, float64(25), loaded.Acquisition.Rate)
	require.NotNil(t, loaded.Calibration.Displacement.Low)
	assert.Equal(t, -5.0, loaded.Calibration.Displacement.Low.Physical)
	assert.Equal(t, 0.8, loaded.Calibration.Displacement.Low.Voltage)
	require.NotNil(t, loaded.Calibration.Displacement.High)
	assert.Equal(t, 4.2, loaded.Calibration.Displacement.High.Voltage)
}
