//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_MS = 1  // ADC read interval in milliseconds (same for both ADCs)
	NUM_SAMPLES        = 16 // Window size of the running average

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// ADC pins
	PIN_PRESSURE_ADC     = machine.A0
	PIN_DISPLACEMENT_ADC = machine.A1

	// Serial configuration
	// Request/response: host sends a single command byte ('a' pressure,
	// 'b' displacement), we reply with one voltage line like "2.504300\n"
	// (~10 bytes). At 10 requests/sec that is ~100 bytes/sec each way,
	// well within 9600 baud.
	UART_BAUD_RATE = 9600
)
