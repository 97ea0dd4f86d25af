package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Mock        MockConfig        `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// AcquisitionConfig contains sampling parameters.
type AcquisitionConfig struct {
	Rate         float64 `yaml:"rate"`          // Samples per second
	AverageReads int     `yaml:"average_reads"` // Voltage reads averaged per tick per channel (0/1 = disabled)
}

// CalibrationConfig holds the persisted two-point calibration per channel.
type CalibrationConfig struct {
	Pressure     ChannelCalibration `yaml:"pressure"`
	Displacement ChannelCalibration `yaml:"displacement"`
}

// ChannelCalibration holds the recorded reference points for one channel.
// A nil point means it has not been recorded yet.
type ChannelCalibration struct {
	Low  *PointConfig `yaml:"low,omitempty"`
	High *PointConfig `yaml:"high,omitempty"`
}

// PointConfig is one recorded calibration reference point.
type PointConfig struct {
	Physical float64 `yaml:"physical"` // Reference value in physical units (kPa or mm)
	Voltage  float64 `yaml:"voltage"`  // Voltage measured at that reference
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	PressureVolts     float64 `yaml:"pressure_volts"`     // Baseline pressure channel voltage (V)
	DisplacementVolts float64 `yaml:"displacement_volts"` // Baseline displacement channel voltage (V)
	Amplitude         float64 `yaml:"amplitude"`          // Slow wander amplitude (V)
	NoiseLevel        float64 `yaml:"noise_level"`        // Noise level (V)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			BaudRate:    9600,
			ReadTimeout: 300 * time.Millisecond,
		},
		Acquisition: AcquisitionConfig{
			Rate:         10,
			AverageReads: 0, // No averaging by default
		},
		Mock: MockConfig{
			PressureVolts:     2.5,
			DisplacementVolts: 1.8,
			Amplitude:         0.5,
			NoiseLevel:        0.002,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if c.Acquisition.Rate == 0 {
		c.Acquisition.Rate = def.Acquisition.Rate
	}

	if c.Mock.PressureVolts == 0 {
		c.Mock.PressureVolts = def.Mock.PressureVolts
	}
	if c.Mock.DisplacementVolts == 0 {
		c.Mock.DisplacementVolts = def.Mock.DisplacementVolts
	}
	if c.Mock.Amplitude == 0 {
		c.Mock.Amplitude = def.Mock.Amplitude
	}
	if c.Mock.NoiseLevel == 0 {
		c.Mock.NoiseLevel = def.Mock.NoiseLevel
	}
}
