package scope

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/chewxy/math32"
)

// traceRenderer renders one channel trace with an oscilloscope-style grid.
type traceRenderer struct {
	scope *Widget

	background *canvas.Rectangle
	title      *canvas.Text

	// Rebuilt on every refresh
	segments  []*canvas.Line
	gridLines []*canvas.Line
	gridTexts []*canvas.Text

	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

func newTraceRenderer(w *Widget) *traceRenderer {
	r := &traceRenderer{
		scope:      w,
		background: canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}),
	}
	r.title = canvas.NewText(w.title, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	r.title.TextSize = 12
	r.objects = []fyne.CanvasObject{r.background, r.title}
	return r
}

// MinSize returns the minimum size of the widget.
func (r *traceRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 220)
}

// Layout arranges the widget components.
func (r *traceRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
	r.title.Move(fyne.NewPos(8, 4))

	if r.lastSize.Width != size.Width || r.lastSize.Height != size.Height {
		r.lastSize = size
		// Redraw with the new dimensions through Fyne's refresh cycle
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the grid and trace from the widget's display buffer.
func (r *traceRenderer) Refresh() {
	r.scope.mu.RLock()
	points := r.scope.display
	yMin := r.scope.yMin
	yMax := r.scope.yMax
	xMin := r.scope.xMin
	xMax := r.scope.xMax
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.background, r.title}
	r.segments = r.segments[:0]
	r.gridLines = r.gridLines[:0]
	r.gridTexts = r.gridTexts[:0]

	marginLeft := float32(64.0)
	marginRight := float32(16.0)
	marginTop := float32(24.0)
	marginBottom := float32(32.0)

	plotWidth := size.Width - marginLeft - marginRight
	plotHeight := size.Height - marginTop - marginBottom
	if plotWidth <= 0 || plotHeight <= 0 {
		return
	}
	plotX := marginLeft
	plotY := marginTop

	r.drawGrid(plotX, plotY, plotWidth, plotHeight, yMin, yMax, xMin, xMax)
	if len(points) > 1 {
		r.drawTrace(plotX, plotY, plotWidth, plotHeight, points, yMin, yMax, xMin, xMax)
	}

	canvas.Refresh(r.scope)
}

// drawGrid draws the oscilloscope-style grid with axis labels.
func (r *traceRenderer) drawGrid(plotX, plotY, plotWidth, plotHeight float32, yMin, yMax, xMin, xMax float32) {
	gridColor := color.RGBA{R: 45, G: 45, B: 45, A: 255}
	labelColor := color.RGBA{R: 150, G: 150, B: 150, A: 255}

	// Horizontal grid lines with value labels
	numHLines := 6
	for i := range numHLines + 1 {
		y := plotY + float32(i)*plotHeight/float32(numHLines)
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(plotX, y)
		line.Position2 = fyne.NewPos(plotX+plotWidth, y)
		line.StrokeWidth = 1
		r.gridLines = append(r.gridLines, line)
		r.objects = append(r.objects, line)

		value := yMax - float32(i)*(yMax-yMin)/float32(numHLines)
		text := canvas.NewText(formatValue(value, r.scope.unit), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(plotX-6, y-6))
		r.gridTexts = append(r.gridTexts, text)
		r.objects = append(r.objects, text)
	}

	// Vertical grid lines with time labels
	numVLines := 8
	for i := range numVLines + 1 {
		x := plotX + float32(i)*plotWidth/float32(numVLines)
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(x, plotY)
		line.Position2 = fyne.NewPos(x, plotY+plotHeight)
		line.StrokeWidth = 1
		r.gridLines = append(r.gridLines, line)
		r.objects = append(r.objects, line)

		value := xMin + float32(i)*(xMax-xMin)/float32(numVLines)
		text := canvas.NewText(fmt.Sprintf("%.1fs", value), labelColor)
		text.TextSize = 10
		text.Move(fyne.NewPos(x-12, plotY+plotHeight+4))
		r.gridTexts = append(r.gridTexts, text)
		r.objects = append(r.objects, text)
	}
}

// drawTrace draws line segments between consecutive displayable points,
// breaking at failed reads and session discontinuities.
func (r *traceRenderer) drawTrace(plotX, plotY, plotWidth, plotHeight float32, points []tracePoint, yMin, yMax, xMin, xMax float32) {
	xSpan := xMax - xMin
	ySpan := yMax - yMin
	if xSpan <= 0 || ySpan <= 0 {
		return
	}

	toPos := func(p tracePoint) fyne.Position {
		x := plotX + (p.t-xMin)/xSpan*plotWidth
		y := plotY + (1-(p.v-yMin)/ySpan)*plotHeight
		// Clamp so extrapolated values don't escape the plot area
		y = math32.Max(plotY, math32.Min(plotY+plotHeight, y))
		return fyne.NewPos(x, y)
	}

	for i := 1; i < len(points); i++ {
		prev, curr := points[i-1], points[i]
		if !prev.valid || !curr.valid {
			continue
		}
		if curr.gap {
			// Session resumed here, don't draw across the stop
			continue
		}

		seg := canvas.NewLine(r.scope.lineColor)
		seg.Position1 = toPos(prev)
		seg.Position2 = toPos(curr)
		seg.StrokeWidth = 2
		r.segments = append(r.segments, seg)
		r.objects = append(r.objects, seg)
	}
}

// Objects returns the canvas objects to render.
func (r *traceRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up renderer resources.
func (r *traceRenderer) Destroy() {}

// formatValue formats an axis value with its unit.
func formatValue(v float32, unit string) string {
	av := math32.Abs(v)
	switch {
	case av >= 100:
		return fmt.Sprintf("%.0f %s", v, unit)
	case av >= 1:
		return fmt.Sprintf("%.2f %s", v, unit)
	default:
		return fmt.Sprintf("%.3f %s", v, unit)
	}
}
