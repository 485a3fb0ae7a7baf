package prediction

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"sync"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultWidth and DefaultHeight give the tall 1:2 chart layout.
	DefaultWidth  = 500
	DefaultHeight = 1000

	curveSamples = 100
	// markerArea is the prediction marker area in square points.
	markerArea = 200.0
	dotRadius  = 5.0
	// bandPad is the share of the CPI span left free above and below the
	// data so markers on the bounds are drawn whole.
	bandPad = 0.03

	chartTitle = "CPI Trend and Next Semester Prediction"
)

var (
	pastColor   = drawing.ColorFromHex("1f77b4")
	curveColor  = chart.ColorRed
	markerColor = drawing.ColorFromHex("2ca02c")
	gridColor   = drawing.ColorFromHex("d9d9d9")
)

// plot is everything the renderer needs for one chart.
type plot struct {
	semesters  []float64
	cpi        []float64
	curveX     []float64
	curveY     []float64
	next       float64
	prediction float64
	minY, maxY float64
}

func newPlot(semesters, cpi []float64, model Polynomial, next, prediction float64) plot {
	curveX := make([]float64, curveSamples)
	floats.Span(curveX, 1, next)
	curveY := make([]float64, curveSamples)
	for i, x := range curveX {
		curveY[i] = model.At(x)
	}

	minY := math.Min(floats.Min(cpi), prediction)
	maxY := MaxCPI
	if minY >= maxY {
		minY = maxY - 1
	}
	return plot{
		semesters:  semesters,
		cpi:        cpi,
		curveX:     curveX,
		curveY:     curveY,
		next:       next,
		prediction: prediction,
		minY:       minY,
		maxY:       maxY,
	}
}

// band returns the drawn CPI range: [minY, maxY] widened by bandPad.
func (p plot) band() (lo, hi float64) {
	pad := (p.maxY - p.minY) * bandPad
	return p.minY - pad, p.maxY + pad
}

var canvasPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// canvas is the per-call drawing target. It must be closed once the encoded
// image has been read.
type canvas struct {
	buf *bytes.Buffer
}

func openCanvas() *canvas {
	buf := canvasPool.Get().(*bytes.Buffer)
	buf.Reset()
	return &canvas{buf: buf}
}

func (c *canvas) Write(p []byte) (int, error) { return c.buf.Write(p) }

// Base64 returns the rendered PNG encoded with the standard alphabet.
func (c *canvas) Base64() string {
	return base64.StdEncoding.EncodeToString(c.buf.Bytes())
}

func (c *canvas) Close() error {
	if c.buf == nil {
		return nil
	}
	c.buf.Reset()
	canvasPool.Put(c.buf)
	c.buf = nil
	return nil
}

func renderChart(p plot, width, height int) (string, error) {
	lo, hi := p.band()
	// Series sit on the secondary axis so the CPI scale is drawn on the left.
	// The hidden primary axis shares the range to keep its delta finite.
	ch := chart.Chart{
		Title:      chartTitle,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           "Semester Number",
			GridMajorStyle: gridStyle(),
		},
		YAxis: chart.YAxis{
			Style: chart.Hidden(),
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		YAxisSecondary: chart.YAxis{
			Name:           "CPI",
			Range:          &chart.ContinuousRange{Min: lo, Max: hi},
			GridMajorStyle: gridStyle(),
		},
		Series: []chart.Series{
			scatterSeries{
				name:   "Past CPI",
				xs:     p.semesters,
				ys:     p.cpi,
				color:  pastColor,
				radius: dotRadius,
			},
			newCurveSeries("Regression Plot", clipCurve(p.curveX, p.curveY, lo, hi), curveColor),
			crossSeries{
				name:  fmt.Sprintf("Predicted CPI: %.2f", p.prediction),
				x:     p.next,
				y:     p.prediction,
				color: markerColor,
				half:  math.Sqrt(markerArea) * 0.7,
			},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	cv := openCanvas()
	defer cv.Close()
	if err := ch.Render(chart.PNG, cv); err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}
	return cv.Base64(), nil
}

func gridStyle() chart.Style {
	return chart.Style{StrokeColor: gridColor, StrokeWidth: 1}
}

// scatterSeries draws unconnected dots. It carries a stroke style only so the
// legend has a swatch to show.
type scatterSeries struct {
	name   string
	xs, ys []float64
	color  drawing.Color
	radius float64
}

func (s scatterSeries) GetName() string                { return s.name }
func (s scatterSeries) GetYAxis() chart.YAxisType      { return chart.YAxisSecondary }
func (s scatterSeries) Len() int                       { return len(s.xs) }
func (s scatterSeries) GetValues(i int) (x, y float64) { return s.xs[i], s.ys[i] }

func (s scatterSeries) GetStyle() chart.Style {
	return chart.Style{StrokeColor: s.color, StrokeWidth: 2 * s.radius, DotColor: s.color, DotWidth: s.radius}
}

func (s scatterSeries) Validate() error {
	if len(s.xs) == 0 || len(s.xs) != len(s.ys) {
		return fmt.Errorf("%s: need matching non-empty values", s.name)
	}
	return nil
}

func (s scatterSeries) Render(r chart.Renderer, box chart.Box, xr, yr chart.Range, _ chart.Style) {
	r.SetFillColor(s.color)
	r.SetStrokeColor(s.color)
	r.SetStrokeWidth(1)
	for i := range s.xs {
		if s.ys[i] < yr.GetMin() || s.ys[i] > yr.GetMax() {
			continue
		}
		x := box.Left + xr.Translate(s.xs[i])
		y := box.Bottom - yr.Translate(s.ys[i])
		r.Circle(s.radius, x, y)
		r.FillStroke()
	}
}

type point struct{ x, y float64 }

// clipCurve cuts the sampled curve to the band [lo, hi]. The result is one
// run per stretch of the curve that stays inside the band, with the exit and
// entry points interpolated onto the band edges. Non-finite samples break
// the curve.
func clipCurve(xs, ys []float64, lo, hi float64) [][]point {
	var (
		runs [][]point
		cur  []point
	)
	for i := 1; i < len(xs) && i < len(ys); i++ {
		a, b, ok := clipSegment(point{xs[i-1], ys[i-1]}, point{xs[i], ys[i]}, lo, hi)
		switch {
		case !ok:
			if len(cur) > 0 {
				runs = append(runs, cur)
			}
			cur = nil
		case len(cur) > 0 && cur[len(cur)-1] == a:
			cur = append(cur, b)
		default:
			if len(cur) > 0 {
				runs = append(runs, cur)
			}
			cur = []point{a, b}
		}
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}

func clipSegment(p, q point, lo, hi float64) (point, point, bool) {
	if !finite(p.y) || !finite(q.y) {
		return point{}, point{}, false
	}
	if (p.y < lo && q.y < lo) || (p.y > hi && q.y > hi) {
		return point{}, point{}, false
	}
	return towardBand(p, q, lo, hi), towardBand(q, p, lo, hi), true
}

// towardBand slides p along the segment to q until it meets the band.
func towardBand(p, q point, lo, hi float64) point {
	var edge float64
	switch {
	case p.y < lo:
		edge = lo
	case p.y > hi:
		edge = hi
	default:
		return p
	}
	t := (edge - p.y) / (q.y - p.y)
	return point{x: p.x + t*(q.x-p.x), y: edge}
}

// curveSeries strokes pre-clipped polyline runs.
type curveSeries struct {
	name  string
	runs  [][]point
	flat  []point
	color drawing.Color
}

func newCurveSeries(name string, runs [][]point, color drawing.Color) curveSeries {
	var flat []point
	for _, run := range runs {
		flat = append(flat, run...)
	}
	return curveSeries{name: name, runs: runs, flat: flat, color: color}
}

func (s curveSeries) GetName() string                { return s.name }
func (s curveSeries) GetYAxis() chart.YAxisType      { return chart.YAxisSecondary }
func (s curveSeries) Len() int                       { return len(s.flat) }
func (s curveSeries) GetValues(i int) (x, y float64) { return s.flat[i].x, s.flat[i].y }
func (s curveSeries) Validate() error                { return nil }

func (s curveSeries) GetStyle() chart.Style {
	return chart.Style{StrokeColor: s.color, StrokeWidth: 2}
}

func (s curveSeries) Render(r chart.Renderer, box chart.Box, xr, yr chart.Range, _ chart.Style) {
	r.SetStrokeColor(s.color)
	r.SetStrokeWidth(2)
	for _, run := range s.runs {
		for i, pt := range run {
			x := box.Left + xr.Translate(pt.x)
			y := box.Bottom - yr.Translate(pt.y)
			if i == 0 {
				r.MoveTo(x, y)
			} else {
				r.LineTo(x, y)
			}
		}
		r.Stroke()
	}
}

// crossSeries draws a single X-shaped marker.
type crossSeries struct {
	name  string
	x, y  float64
	color drawing.Color
	half  float64
}

func (s crossSeries) GetName() string              { return s.name }
func (s crossSeries) GetYAxis() chart.YAxisType    { return chart.YAxisSecondary }
func (s crossSeries) Len() int                     { return 1 }
func (s crossSeries) GetValues(int) (x, y float64) { return s.x, s.y }
func (s crossSeries) Validate() error              { return nil }

func (s crossSeries) GetStyle() chart.Style {
	return chart.Style{StrokeColor: s.color, StrokeWidth: 4}
}

func (s crossSeries) Render(r chart.Renderer, box chart.Box, xr, yr chart.Range, _ chart.Style) {
	cx := box.Left + xr.Translate(s.x)
	cy := box.Bottom - yr.Translate(s.y)
	d := int(math.Round(s.half))

	r.SetStrokeColor(s.color)
	r.SetStrokeWidth(4)
	r.MoveTo(cx-d, cy-d)
	r.LineTo(cx+d, cy+d)
	r.Stroke()
	r.MoveTo(cx-d, cy+d)
	r.LineTo(cx+d, cy-d)
	r.Stroke()
}
