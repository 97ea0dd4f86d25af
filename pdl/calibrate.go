package main

import (
	"fmt"
	"log"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/softactuator/pdlogger/pkg/cal"
	"github.com/softactuator/pdlogger/pkg/link"
)

// showCalibrationDialog opens the two-point calibration dialog. For each
// channel the operator applies a known low and high physical condition,
// types in the reference value, and records the sensor voltage at that
// condition. Recorded points persist to the configuration file.
func showCalibrationDialog(state *appState) {
	if !state.link.IsOpen() {
		dialog.ShowInformation("Calibration",
			"Connect to the device before calibrating.", state.window)
		return
	}

	content := container.NewVBox(
		calibrationSection(state, link.Pressure, "kPa", "0", "20"),
		widget.NewSeparator(),
		calibrationSection(state, link.Displacement, "mm", "-5", "5"),
	)

	d := dialog.NewCustom("Sensor Calibration", "Close", content, state.window)
	d.Resize(fyne.NewSize(520, 420))
	d.SetOnClosed(func() {
		persistCalibration(state)
	})
	d.Show()
}

// calibrationSection builds the record-low/record-high controls for one
// channel.
func calibrationSection(state *appState, ch link.Channel, unit, lowDefault, highDefault string) fyne.CanvasObject {
	status := widget.NewLabel("")
	updateStatus := func() {
		if state.calib.IsComplete(ch) {
			status.SetText("Calibrated")
		} else {
			status.SetText("Not calibrated (raw volts shown)")
		}
	}
	updateStatus()

	lowRow := calibrationRow(state, ch, cal.Low, unit, lowDefault, updateStatus)
	highRow := calibrationRow(state, ch, cal.High, unit, highDefault, updateStatus)

	resetBtn := widget.NewButton("Reset", func() {
		state.calib.Reset(ch)
		updateStatus()
	})

	return container.NewVBox(
		container.NewBorder(nil, nil, widget.NewLabel(ch.String()), resetBtn, status),
		lowRow,
		highRow,
	)
}

// calibrationRow builds a single reference-entry plus record-button row.
// The serial read runs off the UI thread, since a device timeout can take
// hundreds of milliseconds.
func calibrationRow(state *appState, ch link.Channel, which cal.Which, unit, defaultValue string, onRecorded func()) fyne.CanvasObject {
	entry := widget.NewEntry()
	entry.SetText(defaultValue)
	voltsLabel := widget.NewLabel("-- V")

	label := "Record low"
	if which == cal.High {
		label = "Record high"
	}

	var recordBtn *widget.Button
	recordBtn = widget.NewButton(label, func() {
		physical, err := strconv.ParseFloat(entry.Text, 64)
		if err != nil {
			dialog.ShowError(fmt.Errorf("invalid reference value %q", entry.Text), state.window)
			return
		}

		recordBtn.Disable()
		go func() {
			volts, err := state.link.ReadVoltage(ch)
			fyne.Do(func() {
				recordBtn.Enable()
				if err != nil {
					dialog.ShowError(fmt.Errorf("failed to read %s voltage: %w", ch, err), state.window)
					return
				}
				if err := state.calib.RecordPoint(ch, which, physical, volts); err != nil {
					dialog.ShowError(err, state.window)
					return
				}
				voltsLabel.SetText(fmt.Sprintf("%.4f V", volts))
				onRecorded()
			})
		}()
	})

	return container.NewBorder(
		nil, nil,
		recordBtn,
		voltsLabel,
		container.NewBorder(nil, nil, nil, widget.NewLabel(unit), entry),
	)
}

// persistCalibration writes the current calibration points back to the
// configuration file so they survive a restart.
func persistCalibration(state *appState) {
	state.calib.Store(&state.cfg.Calibration)
	if err := state.cfg.Save(state.cfgPath); err != nil {
		log.Printf("Failed to save calibration: %v", err)
	}
}
