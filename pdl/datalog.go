package main

import (
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"

	"github.com/softactuator/pdlogger/pkg/export"
	"github.com/softactuator/pdlogger/pkg/series"
)

// dataLog is the tabular view of the recorded series, one row per record
// with the same columns as the CSV export. All methods must run on the UI
// thread.
type dataLog struct {
	table   *widget.Table
	records []series.Record
}

func newDataLog() *dataLog {
	d := &dataLog{}
	d.table = widget.NewTable(
		func() (int, int) { return len(d.records), len(export.Header) },
		func() fyne.CanvasObject { return widget.NewLabel("0.000") },
		func(id widget.TableCellID, cell fyne.CanvasObject) {
			cell.(*widget.Label).SetText(cellText(d.records[id.Row], id.Col))
		},
	)
	d.table.ShowHeaderRow = true
	d.table.CreateHeader = func() fyne.CanvasObject {
		return widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	}
	d.table.UpdateHeader = func(id widget.TableCellID, cell fyne.CanvasObject) {
		cell.(*widget.Label).SetText(export.Header[id.Col])
	}
	for col := range export.Header {
		d.table.SetColumnWidth(col, 150)
	}
	return d
}

// SetRecords replaces the table contents and keeps the newest row in view.
func (d *dataLog) SetRecords(records []series.Record) {
	d.records = records
	d.table.Refresh()
	if len(records) > 0 {
		d.table.ScrollToBottom()
	}
}

// cellText renders one table cell. A missing field shows as "--" so a
// dropout is visible at a glance.
func cellText(rec series.Record, col int) string {
	switch col {
	case 0:
		return strconv.FormatFloat(rec.Time, 'f', 3, 64)
	case 1:
		return fieldText(rec.Pressure)
	case 2:
		return fieldText(rec.Displacement)
	}
	return ""
}

func fieldText(f series.Field) string {
	if !f.Valid {
		return "--"
	}
	return strconv.FormatFloat(f.Value, 'f', 3, 64)
}
