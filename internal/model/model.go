// Package model provides the three candidate regression model families and
// their serialization.
package model

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Kind identifies a model family.
type Kind string

const (
	KindLinear       Kind = "linear"
	KindDecisionTree Kind = "decision-tree"
	KindRandomForest Kind = "random-forest"
)

// Kinds lists all model families in their fixed selection order.
var Kinds = []Kind{KindLinear, KindDecisionTree, KindRandomForest}

// ErrUnknownKind is returned for a model kind outside Kinds. It indicates a
// programming error, not a data condition.
var ErrUnknownKind = errors.New("unknown model kind")

// ParseKind resolves a kind name, accepting the short aliases lr, dt and rf.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "linear", "lr":
		return KindLinear, nil
	case "decision-tree", "dt":
		return KindDecisionTree, nil
	case "random-forest", "rf":
		return KindRandomForest, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Regressor is a trainable regression model.
type Regressor interface {
	Kind() Kind
	Fit(x mat.Matrix, y []float64) error
	Predict(x mat.Matrix) []float64
}

// Options carries the tunables shared by the model constructors.
type Options struct {
	// Trees is the ensemble size of the random forest.
	Trees int
	// Seed makes forest bootstrap sampling reproducible.
	Seed int64
}

// New constructs an unfitted model of the given kind.
func New(kind Kind, opts Options) (Regressor, error) {
	switch kind {
	case KindLinear:
		return NewLinear(), nil
	case KindDecisionTree:
		return NewTree(), nil
	case KindRandomForest:
		return NewForest(opts.Trees, opts.Seed), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// rowAt extracts row i of x into a fresh slice.
func rowAt(x mat.Matrix, i int) []float64 {
	_, c := x.Dims()
	row := make([]float64, c)
	for j := 0; j < c; j++ {
		row[j] = x.At(i, j)
	}
	return row
}
