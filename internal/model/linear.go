package model

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Linear is ordinary least squares with an intercept. The fit uses the SVD
// pseudo-inverse, so collinear designs (the city one-hot columns sum to the
// intercept column) resolve to the minimum-norm solution instead of failing.
type Linear struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

func NewLinear() *Linear { return &Linear{} }

func (m *Linear) Kind() Kind { return KindLinear }

func (m *Linear) Fit(x mat.Matrix, y []float64) error {
	r, c := x.Dims()
	if r == 0 || r != len(y) {
		return fmt.Errorf("linear fit: have %d rows and %d targets", r, len(y))
	}

	// Design matrix with a leading column of ones for the intercept.
	a := mat.NewDense(r, c+1, nil)
	for i := 0; i < r; i++ {
		a.Set(i, 0, 1)
		for j := 0; j < c; j++ {
			a.Set(i, j+1, x.At(i, j))
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return fmt.Errorf("linear fit: SVD failed to converge")
	}

	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// beta = V * S⁺ * Uᵀ * y, zeroing singular values below tolerance.
	tol := float64(max(r, c+1)) * s[0] * 2.220446049250313e-16
	uty := make([]float64, len(s))
	for j := range s {
		col := mat.Col(nil, j, &u)
		if s[j] > tol {
			uty[j] = floats.Dot(col, y) / s[j]
		}
	}

	beta := make([]float64, c+1)
	for i := range beta {
		beta[i] = floats.Dot(mat.Row(nil, i, &v), uty)
	}
	if floats.HasNaN(beta) {
		return fmt.Errorf("linear fit: solution contains NaN")
	}

	m.Intercept = beta[0]
	m.Coefficients = beta[1:]
	return nil
}

func (m *Linear) Predict(x mat.Matrix) []float64 {
	r, c := x.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		sum := m.Intercept
		for j := 0; j < c && j < len(m.Coefficients); j++ {
			sum += m.Coefficients[j] * x.At(i, j)
		}
		out[i] = sum
	}
	return out
}
