package prediction

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Polynomial holds least-squares coefficients ordered by ascending power:
// c[0] + c[1]x + c[2]x^2 + ...
type Polynomial []float64

// Degree returns the polynomial degree.
func (p Polynomial) Degree() int { return len(p) - 1 }

// At evaluates the polynomial at x using Horner's scheme.
func (p Polynomial) At(x float64) float64 {
	var y float64
	for i := len(p) - 1; i >= 0; i-- {
		y = y*x + p[i]
	}
	return y
}

// FitPolynomial fits y ≈ Σ c[j]·x^j by ordinary least squares. The requested
// degree is lowered to distinct(x)-1 when there are too few distinct abscissae
// to determine every coefficient, so a single point yields a constant.
func FitPolynomial(x, y []float64, degree int) (Polynomial, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d x values, %d y values", ErrInvalidInput, len(x), len(y))
	}
	if degree < 0 {
		return nil, fmt.Errorf("%w: negative degree %d", ErrInvalidInput, degree)
	}
	degree = min(degree, distinct(x)-1)

	a := vandermonde(x, degree)
	b := mat.NewDense(len(y), 1, slices.Clone(y))
	c := mat.NewDense(degree+1, 1, nil)

	var qr mat.QR
	qr.Factorize(a)
	if err := qr.SolveTo(c, false, b); err != nil {
		return nil, fmt.Errorf("%w: degree %d: %v", ErrDegenerateFit, degree, err)
	}

	coeffs := make(Polynomial, degree+1)
	for i := range coeffs {
		coeffs[i] = c.At(i, 0)
	}
	return coeffs, nil
}

func vandermonde(a []float64, degree int) *mat.Dense {
	x := mat.NewDense(len(a), degree+1, nil)
	for i := range a {
		for j, p := 0, 1.; j <= degree; j, p = j+1, p*a[i] {
			x.Set(i, j, p)
		}
	}
	return x
}

func distinct(x []float64) int {
	s := slices.Clone(x)
	slices.Sort(s)
	return len(slices.Compact(s))
}
