package model

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Forest is a random forest regressor: an ensemble of CART trees, each fit
// on a bootstrap resample of the data, averaged at prediction time. The
// seed pins the bootstrap sampling so repeated runs are reproducible.
type Forest struct {
	Trees []*Tree `json:"trees"`
	Size  int     `json:"size"`
	Seed  int64   `json:"seed"`
}

func NewForest(size int, seed int64) *Forest {
	if size <= 0 {
		size = 100
	}
	return &Forest{Size: size, Seed: seed}
}

func (m *Forest) Kind() Kind { return KindRandomForest }

func (m *Forest) Fit(x mat.Matrix, y []float64) error {
	r, c := x.Dims()
	if r == 0 || r != len(y) {
		return fmt.Errorf("forest fit: have %d rows and %d targets", r, len(y))
	}

	rng := rand.New(rand.NewSource(m.Seed))
	m.Trees = make([]*Tree, 0, m.Size)

	sampleX := mat.NewDense(r, c, nil)
	sampleY := make([]float64, r)

	for b := 0; b < m.Size; b++ {
		for i := 0; i < r; i++ {
			src := rng.Intn(r)
			for j := 0; j < c; j++ {
				sampleX.Set(i, j, x.At(src, j))
			}
			sampleY[i] = y[src]
		}

		tree := NewTree()
		if err := tree.Fit(sampleX, sampleY); err != nil {
			return fmt.Errorf("forest fit: tree %d: %w", b, err)
		}
		m.Trees = append(m.Trees, tree)
	}
	return nil
}

func (m *Forest) Predict(x mat.Matrix) []float64 {
	r, _ := x.Dims()
	out := make([]float64, r)
	if len(m.Trees) == 0 {
		return out
	}
	for _, tree := range m.Trees {
		preds := tree.Predict(x)
		for i, p := range preds {
			out[i] += p
		}
	}
	for i := range out {
		out[i] /= float64(len(m.Trees))
	}
	return out
}
