package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMeanStd(t *testing.T) {
	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if m := Mean(x); !almostEqual(m, 5) {
		t.Fatalf("Mean = %v, want 5", m)
	}
	if s := Std(x); !almostEqual(s, 2) {
		t.Fatalf("Std = %v, want 2", s)
	}
	if Mean(nil) != 0 || Std(nil) != 0 {
		t.Fatal("empty input must yield 0")
	}
}

func TestMedianPercentile(t *testing.T) {
	cases := []struct {
		x    []float64
		want float64
	}{
		{[]float64{3, 1, 2}, 2},
		{[]float64{4, 1, 3, 2}, 2.5},
		{nil, 0},
	}
	for _, c := range cases {
		if got := Median(c.x); got != c.want {
			t.Errorf("Median(%v) = %v, want %v", c.x, got, c.want)
		}
	}
	x := []float64{1, 2, 3, 4, 5}
	if p := Percentile(x, 25); !almostEqual(p, 2) {
		t.Errorf("Percentile 25 = %v, want 2", p)
	}
	if p := Percentile(x, 100); p != 5 {
		t.Errorf("Percentile 100 = %v, want 5", p)
	}
}

func TestMode(t *testing.T) {
	if m := Mode([]float64{1, 2, 2, 3}); m != 2 {
		t.Fatalf("Mode = %v, want 2", m)
	}
}

func TestScalers(t *testing.T) {
	X := [][]float64{{0, 10}, {5, 10}, {10, 10}}

	mm := NewMinMaxScaler().FitTransform(X)
	if mm[1][0] != 0.5 || mm[2][0] != 1 || mm[0][1] != 0 {
		t.Fatalf("MinMaxScaler produced %v", mm)
	}

	ss := NewStandardScaler().FitTransform(X)
	if !almostEqual(ss[0][0]+ss[1][0]+ss[2][0], 0) {
		t.Fatalf("standardized column must have zero mean: %v", ss)
	}
	if ss[0][1] != 0 {
		t.Fatalf("constant column must standardize to 0, got %v", ss[0][1])
	}

	px := NewPixelScaler(255).FitTransform([][]float64{{0, 255, 51}})
	if px[0][0] != 0 || px[0][1] != 1 || !almostEqual(px[0][2], 0.2) {
		t.Fatalf("PixelScaler produced %v", px)
	}
}

func TestClipOutliers(t *testing.T) {
	X := [][]float64{{1, 10}, {2, 10}, {3, 10}, {4, 10}, {100, 10}}
	got, n := ClipOutliers(X, 0, 75)
	if n != 1 {
		t.Errorf("%d values clipped, want 1", n)
	}
	if got[4][0] != 4 || got[0][0] != 1 || got[4][1] != 10 {
		t.Errorf("clipped = %v", got)
	}
	if X[4][0] != 100 {
		t.Error("input modified")
	}
}
