package core

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// FromRows copies a nested slice into a dense matrix.
func FromRows(a [][]float64) (*mat.Dense, error) {
	if len(a) == 0 {
		return nil, errors.New("core: empty matrix")
	}
	c := len(a[0])
	data := make([]float64, 0, len(a)*c)
	for i, row := range a {
		if len(row) != c {
			return nil, errors.Errorf("core: row %d has %d columns, want %d", i, len(row), c)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(a), c, data), nil
}

// RowsOf returns the rows of m as freshly allocated slices.
func RowsOf(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		mat.Row(row, i, m)
		out[i] = row
	}
	return out
}

// Gather builds a matrix from the listed rows of X.
func Gather(X [][]float64, idx []int) *mat.Dense {
	c := len(X[idx[0]])
	m := mat.NewDense(len(idx), c, nil)
	for i, k := range idx {
		m.SetRow(i, X[k])
	}
	return m
}

// OneHot encodes class labels as rows of a (len(labels), classes) matrix.
func OneHot(labels []int, classes int) (*mat.Dense, error) {
	m := mat.NewDense(len(labels), classes, nil)
	for i, l := range labels {
		if l < 0 || l >= classes {
			return nil, errors.Errorf("core: label %d at row %d outside [0,%d)", l, i, classes)
		}
		m.Set(i, l, 1)
	}
	return m, nil
}

// ArgmaxRows returns the column index of the largest value of each row.
func ArgmaxRows(m mat.Matrix) []int {
	r, c := m.Dims()
	out := make([]int, r)
	for i := 0; i < r; i++ {
		best := 0
		for j := 1; j < c; j++ {
			if m.At(i, j) > m.At(i, best) {
				best = j
			}
		}
		out[i] = best
	}
	return out
}

// AddRowVec adds v to every row of m in place.
func AddRowVec(m *mat.Dense, v []float64) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j := range row {
			row[j] += v[j]
		}
	}
}

// ColSums returns the column sums of m.
func ColSums(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[j] += m.At(i, j)
		}
	}
	return out
}
