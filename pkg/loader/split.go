package loader

import (
	"math/rand"

	"github.com/pkg/errors"
)

// Split holds the row indices of a train/test partition.
type Split struct {
	TrainIdx []int
	TestIdx  []int
}

// NewSplit permutes n row indices with seed and sends the first
// int(n*testRatio) of them to the test partition.
func NewSplit(n int, testRatio float64, seed int64) (Split, error) {
	if testRatio <= 0 || testRatio >= 1 {
		return Split{}, errors.Errorf("test ratio %v outside (0, 1)", testRatio)
	}
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(float64(n) * testRatio)
	return Split{TrainIdx: indices[nTest:], TestIdx: indices[:nTest]}, nil
}

// Rows gathers the listed rows of X.
func Rows(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, k := range idx {
		out[i] = X[k]
	}
	return out
}

// Values gathers the listed entries of a slice.
func Values[T any](v []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, k := range idx {
		out[i] = v[k]
	}
	return out
}

// KFoldSplit deals n permuted indices round-robin into k folds. Every fold
// gets at least one index, so k must lie in [2, n].
func KFoldSplit(n, k int, seed int64) ([][]int, error) {
	if k < 2 || k > n {
		return nil, errors.Errorf("cannot split %d rows into %d folds", n, k)
	}
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([][]int, k)
	for i := range n {
		folds[i%k] = append(folds[i%k], indices[i])
	}
	return folds, nil
}
