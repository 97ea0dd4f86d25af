//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

var (
	adcPressure     machine.ADC
	adcDisplacement machine.ADC
	uart            = machine.UART0

	// Running-average windows. The ADCs sample continuously so a request
	// always answers with an already-smoothed value instead of a single
	// noisy conversion.
	pressureWindow     [NUM_SAMPLES]uint16
	displacementWindow [NUM_SAMPLES]uint16
	windowPos          int
	windowFilled       bool

	// Timing
	lastADCRead time.Time
)

func main() {
	// Configure ADC pins and set up ADCs with highest resolution
	PIN_PRESSURE_ADC.Configure(machine.PinConfig{Mode: machine.PinInput})
	PIN_DISPLACEMENT_ADC.Configure(machine.PinConfig{Mode: machine.PinInput})

	adcPressure = machine.ADC{Pin: PIN_PRESSURE_ADC}
	adcDisplacement = machine.ADC{Pin: PIN_DISPLACEMENT_ADC}

	adcConfig := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}

	adcPressure.Configure(adcConfig)
	adcDisplacement.Configure(adcConfig)

	// Configure UART for the host link
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	lastADCRead = time.Now()

	// Main loop
	for {
		now := time.Now()

		// Check for a command byte from the host (non-blocking)
		processSerial()

		// Keep both averaging windows fresh (every 1ms)
		if now.Sub(lastADCRead) >= time.Duration(SAMPLE_INTERVAL_MS)*time.Millisecond {
			pressureWindow[windowPos] = adcPressure.Get()
			displacementWindow[windowPos] = adcDisplacement.Get()
			windowPos++
			if windowPos >= NUM_SAMPLES {
				windowPos = 0
				windowFilled = true
			}
			lastADCRead = now
		}

		// Small delay to prevent tight loop (but still allow precise timing)
		time.Sleep(100 * time.Microsecond)
	}
}

func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		switch data {
		case 'a':
			printVoltageLine(average(&pressureWindow))
		case 'b':
			printVoltageLine(average(&displacementWindow))
		default:
			// Unknown bytes (including stray CR/LF) are ignored
		}
	}
}

// average returns the mean raw ADC value of a window. Before the window
// fills for the first time only the samples collected so far count.
func average(window *[NUM_SAMPLES]uint16) uint32 {
	n := NUM_SAMPLES
	if !windowFilled {
		n = windowPos
		if n == 0 {
			n = 1
		}
	}

	var sum uint32
	for i := 0; i < n; i++ {
		sum += uint32(window[i])
	}
	return sum / uint32(n)
}

// printVoltageLine converts a raw 16-bit ADC average to volts and writes
// it as a decimal line like "2.504300\n". Integer microvolt math keeps
// floating point out of the firmware.
func printVoltageLine(raw uint32) {
	// machine.ADC.Get scales every resolution to 16 bits
	microvolts := uint64(raw) * uint64(ADC_REFERENCE_MV) * 1000 / 65535

	whole := microvolts / 1000000
	frac := microvolts % 1000000

	print(whole)
	print(".")
	// Zero-pad the fractional part to 6 digits
	for div := uint64(100000); div >= 10; div /= 10 {
		if frac < div {
			print("0")
		}
	}
	print(frac)
	print("\n")
}
