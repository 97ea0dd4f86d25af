package cal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softactuator/pdlogger/pkg/config"
	"github.com/softactuator/pdlogger/pkg/link"
)

func TestConvert_Uncalibrated_Passthrough(t *testing.T) {
	c := New()

	r := c.Convert(link.Pressure, 2.345)
	assert.False(t, r.Calibrated)
	assert.Equal(t, 2.345, r.Value)

	// One point is not enough
	require.NoError(t, c.RecordPoint(link.Pressure, Low, 0, 0.5))
	r = c.Convert(link.Pressure, 2.345)
	assert.False(t, r.Calibrated)
	assert.Equal(t, 2.345, r.Value)
	assert.False(t, c.IsComplete(link.Pressure))
}

func TestConvert_TwoPoint(t *testing.T) {
	tests := []struct {
		name          string
		lowPhys       float64
		lowVolt       float64
		highPhys      float64
		highVolt      float64
		volt          float64
		want          float64
	}{
		{
			// 0.5V→0kPa, 4.5V→100kPa midpoint
			name:    "pressure sensor midpoint",
			lowPhys: 0, lowVolt: 0.5,
			highPhys: 100, highVolt: 4.5,
			volt: 2.5, want: 50,
		},
		{
			name:    "at low reference",
			lowPhys: 0, lowVolt: 0.5,
			highPhys: 100, highVolt: 4.5,
			volt: 0.5, want: 0,
		},
		{
			name:    "at high reference",
			lowPhys: 0, lowVolt: 0.5,
			highPhys: 100, highVolt: 4.5,
			volt: 4.5, want: 100,
		},
		{
			name:    "extrapolation below low",
			lowPhys: 0, lowVolt: 0.5,
			highPhys: 100, highVolt: 4.5,
			volt: 0.1, want: -10,
		},
		{
			name:    "negative range displacement",
			lowPhys: -5, lowVolt: 1.0,
			highPhys: 5, highVolt: 4.0,
			volt: 2.5, want: 0,
		},
		{
			name:    "inverted slope",
			lowPhys: 10, lowVolt: 4.0,
			highPhys: 0, highVolt: 1.0,
			volt: 2.5, want: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			require.NoError(t, c.RecordPoint(link.Pressure, Low, tt.lowPhys, tt.lowVolt))
			require.NoError(t, c.RecordPoint(link.Pressure, High, tt.highPhys, tt.highVolt))
			require.True(t, c.IsComplete(link.Pressure))

			r := c.Convert(link.Pressure, tt.volt)
			assert.True(t, r.Calibrated)
			assert.InDelta(t, tt.want, r.Value, 1e-9)
		})
	}
}

func TestRecordPoint_Degenerate(t *testing.T) {
	c := New()
	require.NoError(t, c.RecordPoint(link.Pressure, Low, 0, 0.5))

	err := c.RecordPoint(link.Pressure, High, 100, 0.5)
	assert.ErrorIs(t, err, ErrDegenerateCalibration)

	// Prior state unchanged: still incomplete, low point intact
	assert.False(t, c.IsComplete(link.Pressure))
	low, high := c.Points(link.Pressure)
	require.NotNil(t, low)
	assert.Equal(t, 0.5, low.Voltage)
	assert.Nil(t, high)
}

func TestRecordPoint_Degenerate_AfterComplete(t *testing.T) {
	c := New()
	require.NoError(t, c.RecordPoint(link.Pressure, Low, 0, 0.5))
	require.NoError(t, c.RecordPoint(link.Pressure, High, 100, 4.5))

	// Re-recording low at the high point's voltage must fail and keep the
	// existing mapping intact.
	err := c.RecordPoint(link.Pressure, Low, 0, 4.5)
	assert.ErrorIs(t, err, ErrDegenerateCalibration)

	r := c.Convert(link.Pressure, 2.5)
	assert.True(t, r.Calibrated)
	assert.InDelta(t, 50, r.Value, 1e-9)
}

func TestRecordPoint_Rerecord_RecomputesMapping(t *testing.T) {
	c := New()
	require.NoError(t, c.RecordPoint(link.Displacement, Low, -5, 1.0))
	require.NoError(t, c.RecordPoint(link.Displacement, High, 5, 4.0))

	r := c.Convert(link.Displacement, 2.5)
	assert.InDelta(t, 0, r.Value, 1e-9)

	// Moving the high point recomputes the mapping immediately
	require.NoError(t, c.RecordPoint(link.Displacement, High, 10, 4.0))
	r = c.Convert(link.Displacement, 2.5)
	assert.InDelta(t, 2.5, r.Value, 1e-9)
}

func TestChannels_Independent(t *testing.T) {
	c := New()
	require.NoError(t, c.RecordPoint(link.Pressure, Low, 0, 0.5))
	require.NoError(t, c.RecordPoint(link.Pressure, High, 100, 4.5))

	assert.True(t, c.IsComplete(link.Pressure))
	assert.False(t, c.IsComplete(link.Displacement))

	// Displacement stays a raw passthrough
	r := c.Convert(link.Displacement, 1.23)
	assert.False(t, r.Calibrated)
	assert.Equal(t, 1.23, r.Value)

	// Resetting displacement does not affect pressure
	c.Reset(link.Displacement)
	assert.True(t, c.IsComplete(link.Pressure))

	c.Reset(link.Pressure)
	assert.False(t, c.IsComplete(link.Pressure))
	r = c.Convert(link.Pressure, 1.23)
	assert.False(t, r.Calibrated)
}

func TestConvert_UnknownChannel(t *testing.T) {
	c := New()
	r := c.Convert(link.Channel(9), 1.5)
	assert.False(t, r.Calibrated)
	assert.Equal(t, 1.5, r.Value)
	assert.False(t, c.IsComplete(link.Channel(9)))
	assert.Error(t, c.RecordPoint(link.Channel(9), Low, 0, 1))
}

func TestFromConfig_And_Store(t *testing.T) {
	cfg := &config.CalibrationConfig{
		Pressure: config.ChannelCalibration{
			Low:  &config.PointConfig{Physical: 0, Voltage: 0.5},
			High: &config.PointConfig{Physical: 100, Voltage: 4.5},
		},
		Displacement: config.ChannelCalibration{
			Low: &config.PointConfig{Physical: -5, Voltage: 1.0},
		},
	}

	c := FromConfig(cfg)
	assert.True(t, c.IsComplete(link.Pressure))
	assert.False(t, c.IsComplete(link.Displacement))

	r := c.Convert(link.Pressure, 2.5)
	assert.True(t, r.Calibrated)
	assert.InDelta(t, 50, r.Value, 1e-9)

	// Round-trip back into config
	var out config.CalibrationConfig
	c.Store(&out)
	require.NotNil(t, out.Pressure.Low)
	require.NotNil(t, out.Pressure.High)
	assert.Equal(t, 4.5, out.Pressure.High.Voltage)
	require.NotNil(t, out.Displacement.Low)
	assert.Nil(t, out.Displacement.High)
}

func TestFromConfig_DegeneratePairDropped(t *testing.T) {
	cfg := &config.CalibrationConfig{
		Pressure: config.ChannelCalibration{
			Low:  &config.PointConfig{Physical: 0, Voltage: 2.0},
			High: &config.PointConfig{Physical: 100, Voltage: 2.0},
		},
	}

	c := FromConfig(cfg)
	assert.False(t, c.IsComplete(link.Pressure))

	low, high := c.Points(link.Pressure)
	assert.NotNil(t, low)
	assert.Nil(t, high)
}
