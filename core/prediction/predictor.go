package prediction

import (
	"fmt"
	"math"
)

// Predictor fits a polynomial to the CPI history and renders the forecast.
type Predictor struct {
	degree int
	width  int
	height int
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithSize sets the chart size in pixels. Non-positive values keep the
// defaults.
func WithSize(width, height int) Option {
	return func(p *Predictor) {
		if width > 0 {
			p.width = width
		}
		if height > 0 {
			p.height = height
		}
	}
}

// NewPredictor returns a Predictor fitting degree-2 polynomials.
func NewPredictor(opts ...Option) *Predictor {
	p := &Predictor{degree: MaxDegree, width: DefaultWidth, height: DefaultHeight}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Predict fits the history, predicts the CPI for semester len(semesters)+1,
// clamps it to [MinCPI, MaxCPI] and renders the chart.
func (p *Predictor) Predict(semesters, cpi []float64) (Result, error) {
	if err := checkSeries(semesters, cpi); err != nil {
		return Result{}, err
	}

	model, err := FitPolynomial(semesters, cpi, p.degree)
	if err != nil {
		return Result{}, err
	}

	next := float64(len(semesters) + 1)
	raw := model.At(next)
	pred := clamp(raw)

	img, err := renderChart(newPlot(semesters, cpi, model, next, pred), p.width, p.height)
	if err != nil {
		return Result{}, err
	}
	return Result{Prediction: pred, Raw: raw, Degree: model.Degree(), Chart: img}, nil
}

func checkSeries(semesters, cpi []float64) error {
	if len(semesters) == 0 || len(cpi) == 0 {
		return fmt.Errorf("%w: empty series", ErrInvalidInput)
	}
	if len(semesters) != len(cpi) {
		return fmt.Errorf("%w: %d semesters, %d cpi values", ErrInvalidInput, len(semesters), len(cpi))
	}
	for i := range semesters {
		if !finite(semesters[i]) || !finite(cpi[i]) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrInvalidInput, i)
		}
	}
	return nil
}

func clamp(v float64) float64 {
	if v > MaxCPI {
		v = MaxCPI
	}
	if v < MinCPI {
		v = MinCPI
	}
	return v
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
