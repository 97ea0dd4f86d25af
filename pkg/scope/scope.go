package scope

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
	"github.com/chewxy/math32"

	"github.com/softactuator/pdlogger/pkg/series"
)

// FieldFunc selects which channel of a record a widget displays.
type FieldFunc func(series.Record) series.Field

// PressureField selects the pressure channel.
func PressureField(r series.Record) series.Field { return r.Pressure }

// DisplacementField selects the displacement channel.
func DisplacementField(r series.Record) series.Field { return r.Displacement }

// tracePoint is one displayable point of the selected channel.
type tracePoint struct {
	t     float32
	v     float32
	valid bool // false when the tick's read failed
	gap   bool // true when a session discontinuity precedes this point
}

// Widget is a custom Fyne widget that displays one channel of the session
// as an oscilloscope-style trace. The GUI shell stacks one widget per
// channel, like the original logger's two plots.
type Widget struct {
	widget.BaseWidget

	title     string
	unit      string
	lineColor color.Color
	field     FieldFunc

	// Data (protected by mu)
	mu      sync.RWMutex
	display []tracePoint // downsampled display buffer (reused)
	points  []tracePoint // extraction buffer (reused)

	// Auto-scaling
	yMin, yMax float32
	xMin, xMax float32

	maxDisplayPoints int
}

// New creates a scope widget for one channel.
func New(title, unit string, lineColor color.Color, field FieldFunc) *Widget {
	w := &Widget{
		title:            title,
		unit:             unit,
		lineColor:        lineColor,
		field:            field,
		display:          make([]tracePoint, 0, 1000),
		points:           make([]tracePoint, 0, 2000),
		maxDisplayPoints: 1000, // Limit points for efficient rendering
	}
	w.ExtendBaseWidget(w)
	w.Refresh()
	return w
}

// SetRecords updates the widget with a fresh session snapshot. Call from
// the UI goroutine (wrap in fyne.Do when driven by the sampler callback).
func (w *Widget) SetRecords(records []series.Record) {
	w.mu.Lock()

	w.points = w.points[:0]
	for _, r := range records {
		f := w.field(r)
		w.points = append(w.points, tracePoint{
			t:     float32(r.Time),
			v:     float32(f.Value),
			valid: f.Valid,
			gap:   r.Discont,
		})
	}

	w.display = downsample(w.display, w.points, w.maxDisplayPoints)
	w.updateAutoScale()

	w.mu.Unlock()

	// Refresh outside the lock; the renderer takes its own read lock.
	w.Refresh()
}

// updateAutoScale recomputes the axis ranges from the display buffer.
// Caller holds the lock.
func (w *Widget) updateAutoScale() {
	if len(w.display) == 0 {
		w.xMin, w.xMax = 0, 1
		w.yMin, w.yMax = -1, 1
		return
	}

	w.xMin = w.display[0].t
	w.xMax = w.display[len(w.display)-1].t
	if w.xMax-w.xMin < 1e-6 {
		w.xMax = w.xMin + 1
	}

	first := true
	var lo, hi float32
	for _, p := range w.display {
		if !p.valid {
			continue
		}
		if first {
			lo, hi = p.v, p.v
			first = false
			continue
		}
		lo = math32.Min(lo, p.v)
		hi = math32.Max(hi, p.v)
	}
	if first {
		// Nothing valid to scale against
		w.yMin, w.yMax = -1, 1
		return
	}

	span := hi - lo
	if span < 1e-6 {
		// Flat trace, give it some headroom
		span = math32.Max(math32.Abs(hi)*0.1, 0.5)
		w.yMin = lo - span
		w.yMax = hi + span
		return
	}

	w.yMin = lo - span*0.05
	w.yMax = hi + span*0.05
}

// CreateRenderer creates the renderer for this widget.
func (w *Widget) CreateRenderer() fyne.WidgetRenderer {
	return newTraceRenderer(w)
}
