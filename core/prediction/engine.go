package prediction

import "errors"

const (
	// MinCPI and MaxCPI bound the predicted value.
	MinCPI = 0.0
	MaxCPI = 10.0

	// MaxDegree is the highest polynomial degree fitted.
	MaxDegree = 2
)

var (
	// ErrInvalidInput is returned when the series are empty, of different
	// lengths or contain non-finite values.
	ErrInvalidInput = errors.New("invalid input series")
	// ErrDegenerateFit is returned when the least-squares system is singular
	// even after reducing the polynomial degree.
	ErrDegenerateFit = errors.New("degenerate regression fit")
)

// Result is the outcome of a single prediction.
type Result struct {
	// Prediction is the next-semester CPI clamped to [MinCPI, MaxCPI].
	Prediction float64
	// Raw is the unclamped model output.
	Raw float64
	// Degree is the polynomial degree that was actually fitted.
	Degree int
	// Chart is the rendered PNG, base64 encoded.
	Chart string
}

// Clamped reports whether the raw model output fell outside the valid range.
func (r Result) Clamped() bool { return r.Raw != r.Prediction }

// Engine predicts the next CPI value from a semester-indexed history.
type Engine interface {
	Predict(semesters, cpi []float64) (Result, error)
}
