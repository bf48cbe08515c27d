package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Tree is a CART regression tree: binary splits chosen by minimum weighted
// sum of squared errors, grown until nodes are pure or too small to split.
type Tree struct {
	Root *TreeNode `json:"root"`
}

// TreeNode is one node of the fitted tree. Leaves carry the mean target of
// their training samples.
type TreeNode struct {
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *TreeNode `json:"left,omitempty"`
	Right     *TreeNode `json:"right,omitempty"`
	Value     float64   `json:"value"`
	Leaf      bool      `json:"leaf"`
}

const minSamplesSplit = 2

func NewTree() *Tree { return &Tree{} }

func (m *Tree) Kind() Kind { return KindDecisionTree }

func (m *Tree) Fit(x mat.Matrix, y []float64) error {
	r, _ := x.Dims()
	if r == 0 || r != len(y) {
		return fmt.Errorf("tree fit: have %d rows and %d targets", r, len(y))
	}

	idx := make([]int, r)
	for i := range idx {
		idx[i] = i
	}
	m.Root = buildNode(x, y, idx)
	return nil
}

func (m *Tree) Predict(x mat.Matrix) []float64 {
	r, _ := x.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = m.predictRow(rowAt(x, i))
	}
	return out
}

func (m *Tree) predictRow(row []float64) float64 {
	node := m.Root
	for node != nil && !node.Leaf {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	if node == nil {
		return 0
	}
	return node.Value
}

func buildNode(x mat.Matrix, y []float64, idx []int) *TreeNode {
	value := meanAt(y, idx)
	if len(idx) < minSamplesSplit || isPure(y, idx) {
		return &TreeNode{Leaf: true, Value: value}
	}

	feature, threshold, ok := bestSplit(x, y, idx)
	if !ok {
		return &TreeNode{Leaf: true, Value: value}
	}

	var left, right []int
	for _, i := range idx {
		if x.At(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &TreeNode{Leaf: true, Value: value}
	}

	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      buildNode(x, y, left),
		Right:     buildNode(x, y, right),
		Value:     value,
	}
}

// bestSplit scans every feature for the threshold minimizing the combined
// SSE of the two children. Candidate thresholds are midpoints between
// adjacent distinct feature values.
func bestSplit(x mat.Matrix, y []float64, idx []int) (feature int, threshold float64, ok bool) {
	_, nFeatures := x.Dims()
	n := len(idx)
	bestSSE := math.Inf(1)

	order := make([]int, n)
	for f := 0; f < nFeatures; f++ {
		copy(order, idx)
		sortByFeature(x, f, order)

		// Prefix sums over the sorted order let each split position be
		// scored in constant time.
		var sumL, sumSqL float64
		sumR, sumSqR := sums(y, order)

		for pos := 1; pos < n; pos++ {
			yi := y[order[pos-1]]
			sumL += yi
			sumSqL += yi * yi
			sumR -= yi
			sumSqR -= yi * yi

			prev := x.At(order[pos-1], f)
			cur := x.At(order[pos], f)
			if cur <= prev {
				continue
			}

			nl, nr := float64(pos), float64(n-pos)
			sse := (sumSqL - sumL*sumL/nl) + (sumSqR - sumR*sumR/nr)
			if sse < bestSSE {
				bestSSE = sse
				feature = f
				threshold = (prev + cur) / 2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

func sortByFeature(x mat.Matrix, f int, order []int) {
	// Insertion sort keeps the split scan stable and allocation-free; node
	// sample counts shrink quickly as the tree grows.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && x.At(order[j], f) < x.At(order[j-1], f); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
}

func sums(y []float64, idx []int) (sum, sumSq float64) {
	for _, i := range idx {
		sum += y[i]
		sumSq += y[i] * y[i]
	}
	return sum, sumSq
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}

func isPure(y []float64, idx []int) bool {
	for _, i := range idx[1:] {
		if y[i] != y[idx[0]] {
			return false
		}
	}
	return true
}
