package cal

import (
	"errors"
	"fmt"
	"sync"

	"github.com/softactuator/pdlogger/pkg/config"
	"github.com/softactuator/pdlogger/pkg/link"
)

// Which selects one of the two reference points of a channel.
type Which int

const (
	Low Which = iota
	High
)

// String returns the point name.
func (w Which) String() string {
	switch w {
	case Low:
		return "low"
	case High:
		return "high"
	}
	return "unknown"
}

// ErrDegenerateCalibration is returned when a recorded point's voltage
// equals the opposite point's voltage, which would make the mapping
// undefined.
var ErrDegenerateCalibration = errors.New("degenerate calibration")

// Point is one recorded (voltage, physical value) reference pair.
type Point struct {
	Physical float64 // Reference value in physical units (kPa or mm)
	Voltage  float64 // Voltage measured at that reference
}

// Reading is the result of converting a raw voltage. Before both points of
// a channel are recorded, Value carries the raw voltage unchanged and
// Calibrated is false. Absence of calibration is a normal state, not an
// error.
type Reading struct {
	Value      float64
	Calibrated bool
}

// channelCal holds one channel's points and the affine map derived from
// them: physical = slope*voltage + offset.
type channelCal struct {
	low      *Point
	high     *Point
	slope    float64
	offset   float64
	complete bool
}

// Calibrator maintains the two-point calibration state for both channels
// and converts raw voltages to physical units. Point recording happens on
// operator action while Convert runs on the sampling goroutine; the lock
// makes the coefficient swap atomic.
type Calibrator struct {
	mu       sync.RWMutex
	channels [2]channelCal
}

// New creates an empty Calibrator with no points recorded.
func New() *Calibrator {
	return &Calibrator{}
}

// FromConfig creates a Calibrator seeded with the points persisted in the
// configuration. A stored pair that would be degenerate is dropped rather
// than poisoning the calibrator.
func FromConfig(cfg *config.CalibrationConfig) *Calibrator {
	c := New()
	if cfg == nil {
		return c
	}

	seed := func(ch link.Channel, stored config.ChannelCalibration) {
		if stored.Low != nil {
			_ = c.RecordPoint(ch, Low, stored.Low.Physical, stored.Low.Voltage)
		}
		if stored.High != nil {
			_ = c.RecordPoint(ch, High, stored.High.Physical, stored.High.Voltage)
		}
	}
	seed(link.Pressure, cfg.Pressure)
	seed(link.Displacement, cfg.Displacement)

	return c
}

// RecordPoint stores a reference point for the channel and recomputes the
// affine coefficients once both points are present. Fails with
// ErrDegenerateCalibration, leaving prior state unchanged, if voltage
// equals the voltage already stored for the channel's other point.
func (c *Calibrator) RecordPoint(ch link.Channel, which Which, physical, voltage float64) error {
	idx, err := channelIndex(ch)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	state := &c.channels[idx]

	other := state.high
	if which == High {
		other = state.low
	}
	if other != nil && other.Voltage == voltage {
		return fmt.Errorf("%w: %s %s point voltage %g equals the other point's voltage",
			ErrDegenerateCalibration, ch, which, voltage)
	}

	p := &Point{Physical: physical, Voltage: voltage}
	if which == High {
		state.high = p
	} else {
		state.low = p
	}

	if state.low != nil && state.high != nil {
		state.slope = (state.high.Physical - state.low.Physical) /
			(state.high.Voltage - state.low.Voltage)
		state.offset = state.low.Physical - state.slope*state.low.Voltage
		state.complete = true
	}

	return nil
}

// Convert maps a raw voltage to physical units. If the channel's
// calibration is incomplete the raw voltage passes through unchanged with
// Calibrated false. Never fails; an unknown channel converts like an
// uncalibrated one.
func (c *Calibrator) Convert(ch link.Channel, rawVoltage float64) Reading {
	idx, err := channelIndex(ch)
	if err != nil {
		return Reading{Value: rawVoltage}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	state := &c.channels[idx]
	if !state.complete {
		return Reading{Value: rawVoltage}
	}

	return Reading{
		Value:      state.slope*rawVoltage + state.offset,
		Calibrated: true,
	}
}

// IsComplete reports whether both points of the channel are recorded.
func (c *Calibrator) IsComplete(ch link.Channel) bool {
	idx, err := channelIndex(ch)
	if err != nil {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channels[idx].complete
}

// Points returns copies of the channel's recorded points; a nil entry means
// the point has not been recorded. Channel state is independent, so this
// never reflects the other channel.
func (c *Calibrator) Points(ch link.Channel) (low, high *Point) {
	idx, err := channelIndex(ch)
	if err != nil {
		return nil, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	state := &c.channels[idx]
	if state.low != nil {
		l := *state.low
		low = &l
	}
	if state.high != nil {
		h := *state.high
		high = &h
	}
	return low, high
}

// Reset clears one channel's points without touching the other channel.
func (c *Calibrator) Reset(ch link.Channel) {
	idx, err := channelIndex(ch)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[idx] = channelCal{}
}

// Store writes the current points into the configuration for persistence.
func (c *Calibrator) Store(cfg *config.CalibrationConfig) {
	cfg.Pressure = c.storedChannel(link.Pressure)
	cfg.Displacement = c.storedChannel(link.Displacement)
}

func (c *Calibrator) storedChannel(ch link.Channel) config.ChannelCalibration {
	var stored config.ChannelCalibration
	low, high := c.Points(ch)
	if low != nil {
		stored.Low = &config.PointConfig{Physical: low.Physical, Voltage: low.Voltage}
	}
	if high != nil {
		stored.High = &config.PointConfig{Physical: high.Physical, Voltage: high.Voltage}
	}
	return stored
}

func channelIndex(ch link.Channel) (int, error) {
	if ch != link.Pressure && ch != link.Displacement {
		return 0, fmt.Errorf("unknown channel %d", int(ch))
	}
	return int(ch), nil
}
