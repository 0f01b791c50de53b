package core

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestFromRowsRoundTrip(t *testing.T) {
	rows := [][]float64{{1, 2, 3}, {4, 5, 6}}
	m, err := FromRows(rows)
	if err != nil {
		t.Fatal(err)
	}
	if r, c := m.Dims(); r != 2 || c != 3 {
		t.Fatalf("dims = %dx%d, want 2x3", r, c)
	}
	back := RowsOf(m)
	for i := range rows {
		for j := range rows[i] {
			if back[i][j] != rows[i][j] {
				t.Fatalf("RowsOf mismatch at %d,%d", i, j)
			}
		}
	}
	if _, err := FromRows([][]float64{{1}, {1, 2}}); err == nil {
		t.Fatal("ragged rows must be rejected")
	}
}

func TestOneHotArgmax(t *testing.T) {
	m, err := OneHot([]int{2, 0, 1}, 3)
	if err != nil {
		t.Fatal(err)
	}
	got := ArgmaxRows(m)
	want := []int{2, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ArgmaxRows = %v, want %v", got, want)
		}
	}
	if _, err := OneHot([]int{3}, 3); err == nil {
		t.Fatal("out of range label must be rejected")
	}
}

func TestAddRowVecColSums(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	AddRowVec(m, []float64{10, 20})
	s := ColSums(m)
	if s[0] != 24 || s[1] != 46 {
		t.Fatalf("ColSums = %v, want [24 46]", s)
	}
}
