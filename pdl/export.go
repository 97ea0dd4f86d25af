package main

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"github.com/atotto/clipboard"

	"github.com/softactuator/pdlogger/pkg/export"
)

// handleSaveCSV prompts for a destination and writes the recorded series
// to a CSV file.
func handleSaveCSV(state *appState) {
	if state.store.Len() == 0 {
		dialog.ShowInformation("Save CSV", "No data recorded yet.", state.window)
		return
	}

	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, state.window)
			return
		}
		if writer == nil {
			return // cancelled
		}

		path := writer.URI().Path()
		writer.Close()

		if err := export.WriteFile(path, state.store.Snapshot()); err != nil {
			dialog.ShowError(fmt.Errorf("failed to save CSV: %w", err), state.window)
			return
		}
		state.statusLabel.SetText("Saved " + path)
	}, state.window)
	fd.SetFileName("data.csv")
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".csv"}))
	fd.Show()
}

// handleCopyCSV puts the recorded series on the system clipboard as CSV
// text, ready to paste into a spreadsheet.
func handleCopyCSV(state *appState) {
	if state.store.Len() == 0 {
		dialog.ShowInformation("Copy data", "No data recorded yet.", state.window)
		return
	}

	if err := clipboard.WriteAll(export.ClipboardText(state.store.Snapshot())); err != nil {
		dialog.ShowError(fmt.Errorf("failed to copy to clipboard: %w", err), state.window)
		return
	}
	state.statusLabel.SetText(fmt.Sprintf("Copied %d records to clipboard", state.store.Len()))
}
