package train

import (
	"gonum.org/v1/gonum/mat"
)

// fold is one train/test partition of the sample indices.
type fold struct {
	train []int
	test  []int
}

// kfold splits n samples into k consecutive, unshuffled folds. The first
// n%k folds receive one extra sample, matching the conventional unshuffled
// k-fold layout.
func kfold(n, k int) []fold {
	base := n / k
	extra := n % k

	folds := make([]fold, 0, k)
	start := 0
	for i := 0; i < k; i++ {
		size := base
		if i < extra {
			size++
		}
		end := start + size

		test := make([]int, 0, size)
		train := make([]int, 0, n-size)
		for j := 0; j < n; j++ {
			if j >= start && j < end {
				test = append(test, j)
			} else {
				train = append(train, j)
			}
		}
		folds = append(folds, fold{train: train, test: test})
		start = end
	}
	return folds
}

// subset extracts the given rows of x and y.
func subset(x mat.Matrix, y []float64, idx []int) (*mat.Dense, []float64) {
	_, c := x.Dims()
	outX := mat.NewDense(len(idx), c, nil)
	outY := make([]float64, len(idx))
	for i, src := range idx {
		for j := 0; j < c; j++ {
			outX.Set(i, j, x.At(src, j))
		}
		outY[i] = y[src]
	}
	return outX, outY
}

// negMSE is the negative mean squared error: higher (less negative) means a
// better fit.
func negMSE(pred, actual []float64) float64 {
	var sum float64
	for i := range pred {
		d := pred[i] - actual[i]
		sum += d * d
	}
	return -sum / float64(len(pred))
}
