package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"strconv"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/softactuator/pdlogger/pkg/cal"
	"github.com/softactuator/pdlogger/pkg/config"
	"github.com/softactuator/pdlogger/pkg/link"
	"github.com/softactuator/pdlogger/pkg/sampler"
	"github.com/softactuator/pdlogger/pkg/scope"
	"github.com/softactuator/pdlogger/pkg/series"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use mocked device instead of serial port")
		rateFlag   = flag.Float64("rate", 0, "Sample rate override in Hz")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override serial port if provided via command line
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *rateFlag > 0 {
		cfg.Acquisition.Rate = *rateFlag
	}

	// Create Fyne application
	application := app.NewWithID("com.softactuator.pdlogger")

	window := application.NewWindow("Pressure & Displacement Logger")
	window.Resize(fyne.NewSize(1200, 700))
	window.CenterOnScreen()

	var lnk link.Link
	if *mockFlag {
		lnk = link.NewMock(&cfg.Mock)
	} else {
		lnk = link.NewSerial(cfg.Serial.BaudRate, cfg.Serial.ReadTimeout)
	}

	calib := cal.FromConfig(&cfg.Calibration)
	store := series.New()
	smp := sampler.New(&cfg.Acquisition, lnk, calib, store)

	state := &appState{
		cfg:     cfg,
		cfgPath: *configFlag,
		link:    lnk,
		calib:   calib,
		store:   store,
		sampler: smp,
		window:  window,
		useMock: *mockFlag,
	}

	state.pressureScope = scope.New("Pressure vs Time", "kPa",
		color.RGBA{R: 255, G: 160, B: 40, A: 255}, scope.PressureField)
	state.displacementScope = scope.New("Displacement vs Time", "mm",
		color.RGBA{R: 110, G: 190, B: 255, A: 255}, scope.DisplacementField)
	state.dataLog = newDataLog()

	// Live redraw from the sampling goroutine, throttled to ~30 FPS so a
	// fast run doesn't overwhelm the UI.
	const updateInterval = 33 * time.Millisecond
	smp.OnRecord(func(rec series.Record) {
		state.updateMu.Lock()
		now := time.Now()
		tooSoon := now.Sub(state.lastUpdate) < updateInterval
		if !tooSoon {
			state.lastUpdate = now
		}
		state.updateMu.Unlock()
		if tooSoon {
			return
		}

		snapshot := state.store.Snapshot()
		fyne.Do(func() {
			state.pressureScope.SetRecords(snapshot)
			state.displacementScope.SetRecords(snapshot)
			state.dataLog.SetRecords(snapshot)
			state.setLiveReadout(rec)
		})
	})

	window.SetContent(container.NewBorder(
		createToolbar(state),
		nil,
		nil,
		createControlPanel(state),
		container.NewAppTabs(
			container.NewTabItem("Charts",
				container.NewVSplit(state.pressureScope, state.displacementScope)),
			container.NewTabItem("Data log", state.dataLog.table),
		),
	))

	window.ShowAndRun()

	// Window closed: stop acquisition and release the port
	smp.Stop()
	if err := lnk.Close(); err != nil {
		log.Printf("Error closing link: %v", err)
	}
}

// appState holds the application state.
type appState struct {
	cfg     *config.Config
	cfgPath string

	link    link.Link
	calib   *cal.Calibrator
	store   *series.Store
	sampler *sampler.Sampler

	window  fyne.Window
	useMock bool

	pressureScope     *scope.Widget
	displacementScope *scope.Widget
	dataLog           *dataLog

	connectBtn  *widget.Button
	startBtn    *widget.Button
	stopBtn     *widget.Button
	portSelect  *widget.Select
	portNames   map[string]string
	rateEntry   *widget.Entry
	resumeCheck *widget.Check
	statusLabel *widget.Label

	liveTime         *widget.Label
	livePressure     *widget.Label
	liveDisplacement *widget.Label

	// Throttling for scope updates
	lastUpdate time.Time
	updateMu   sync.Mutex
}

// createToolbar creates the toolbar with connection and calibration actions.
func createToolbar(state *appState) fyne.CanvasObject {
	state.portSelect = widget.NewSelect(nil, func(label string) {
		state.cfg.Serial.Port = state.portName(label)
	})
	state.portSelect.PlaceHolder = state.cfg.Serial.Port
	refreshPorts(state)

	refreshBtn := widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), func() {
		refreshPorts(state)
	})

	state.connectBtn = widget.NewButtonWithIcon("Connect", theme.LoginIcon(), func() {
		handleConnect(state)
	})

	calibrateBtn := widget.NewButtonWithIcon("Calibrate", theme.SettingsIcon(), func() {
		showCalibrationDialog(state)
	})

	state.statusLabel = widget.NewLabel("Not connected")

	return container.NewBorder(
		nil, nil,
		container.NewHBox(state.portSelect, refreshBtn, state.connectBtn, calibrateBtn),
		state.statusLabel,
		nil,
	)
}

// createControlPanel creates the right-hand panel with run controls and the
// live readout.
func createControlPanel(state *appState) fyne.CanvasObject {
	state.rateEntry = widget.NewEntry()
	state.rateEntry.SetText(strconv.FormatFloat(state.cfg.Acquisition.Rate, 'f', -1, 64))

	state.resumeCheck = widget.NewCheck("Resume session", nil)

	state.startBtn = widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), func() {
		handleStart(state)
	})
	state.stopBtn = widget.NewButtonWithIcon("Stop", theme.MediaStopIcon(), func() {
		handleStop(state)
	})
	state.stopBtn.Disable()

	saveBtn := widget.NewButtonWithIcon("Save CSV", theme.DocumentSaveIcon(), func() {
		handleSaveCSV(state)
	})
	copyBtn := widget.NewButtonWithIcon("Copy data (CSV)", theme.ContentCopyIcon(), func() {
		handleCopyCSV(state)
	})

	state.liveTime = widget.NewLabel("-- s")
	state.livePressure = widget.NewLabel("-- kPa")
	state.liveDisplacement = widget.NewLabel("-- mm")

	readout := widget.NewForm(
		widget.NewFormItem("Time:", state.liveTime),
		widget.NewFormItem("Pressure:", state.livePressure),
		widget.NewFormItem("Displacement:", state.liveDisplacement),
	)

	return container.NewVBox(
		widget.NewForm(widget.NewFormItem("Rate (samples/s):", state.rateEntry)),
		state.resumeCheck,
		state.startBtn,
		state.stopBtn,
		saveBtn,
		copyBtn,
		widget.NewSeparator(),
		widget.NewLabel("Real-time readings"),
		readout,
	)
}

func refreshPorts(state *appState) {
	ports, err := link.Ports()
	if err != nil {
		log.Printf("Failed to list serial ports: %v", err)
		return
	}

	labels := make([]string, 0, len(ports))
	names := make(map[string]string, len(ports))
	for _, p := range ports {
		label := portLabel(p)
		labels = append(labels, label)
		names[label] = p.Name
	}
	state.portNames = names
	state.portSelect.Options = labels
	state.portSelect.Refresh()
}

// portLabel is the combo text for a port: the device name, plus the
// description when enumeration found one beyond the name itself.
func portLabel(p link.Port) string {
	if p.Description == "" || p.Description == p.Name {
		return p.Name
	}
	return p.Name + " (" + p.Description + ")"
}

// portName maps a combo label back to the device name to open.
func (state *appState) portName(label string) string {
	if name, ok := state.portNames[label]; ok {
		return name
	}
	return label
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.link.IsOpen() {
		// Disconnect: stop a running acquisition first
		state.sampler.Stop()
		if err := state.link.Close(); err != nil {
			dialog.ShowError(fmt.Errorf("failed to disconnect: %w", err), state.window)
			return
		}
		state.connectBtn.SetText("Connect")
		state.statusLabel.SetText("Not connected")
		return
	}

	port := state.cfg.Serial.Port
	if err := state.link.Open(port); err != nil {
		state.statusLabel.SetText("Connection failed")
		dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", port, err), state.window)
		return
	}

	state.connectBtn.SetText("Disconnect")
	if state.useMock {
		state.statusLabel.SetText("Connected (mock)")
	} else {
		state.statusLabel.SetText("Connected to " + port)
	}
}

// handleStart starts a run. Unless the operator asked to resume the
// previous session, the store is cleared first so the run starts a fresh
// session at t=0.
func handleStart(state *appState) {
	rate, err := strconv.ParseFloat(state.rateEntry.Text, 64)
	if err != nil {
		dialog.ShowError(fmt.Errorf("invalid sample rate %q", state.rateEntry.Text), state.window)
		return
	}

	if !state.resumeCheck.Checked {
		state.store.Clear()
		state.pressureScope.SetRecords(nil)
		state.displacementScope.SetRecords(nil)
		state.dataLog.SetRecords(nil)
	}

	if err := state.sampler.Start(rate); err != nil {
		dialog.ShowError(fmt.Errorf("failed to start: %w", err), state.window)
		return
	}

	state.startBtn.Disable()
	state.stopBtn.Enable()
	state.statusLabel.SetText(fmt.Sprintf("Logging at %g Hz", rate))
}

func handleStop(state *appState) {
	state.sampler.Stop()
	state.startBtn.Enable()
	state.stopBtn.Disable()
	state.statusLabel.SetText(fmt.Sprintf("Stopped (%d records)", state.store.Len()))

	// Final redraw with everything the run produced
	snapshot := state.store.Snapshot()
	state.pressureScope.SetRecords(snapshot)
	state.displacementScope.SetRecords(snapshot)
	state.dataLog.SetRecords(snapshot)
}

// setLiveReadout updates the real-time labels. Must run on the UI thread.
func (state *appState) setLiveReadout(rec series.Record) {
	state.liveTime.SetText(fmt.Sprintf("%.2f s", rec.Time))
	if rec.Pressure.Valid {
		state.livePressure.SetText(fmt.Sprintf("%.3f kPa", rec.Pressure.Value))
	} else {
		state.livePressure.SetText("-- kPa")
	}
	if rec.Displacement.Valid {
		state.liveDisplacement.SetText(fmt.Sprintf("%.3f mm", rec.Displacement.Value))
	} else {
		state.liveDisplacement.SetText("-- mm")
	}
}
