package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean computes the average of a slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// Variance computes the population variance of a slice.
func Variance(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	_, v := stat.PopMeanVariance(x, nil)
	return v
}

// Std computes the population standard deviation of a slice.
func Std(x []float64) float64 {
	return math.Sqrt(Variance(x))
}

// MinMax returns the minimum and maximum values in the slice.
func MinMax(x []float64) (float64, float64) {
	if len(x) == 0 {
		return 0, 0
	}
	return floats.Min(x), floats.Max(x)
}

// Sum returns the sum of all elements in the slice.
func Sum(x []float64) float64 {
	return floats.Sum(x)
}

// Median returns the median value of the slice (allocates a copy).
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, x)
	sort.Float64s(cp)
	mid := n >> 1
	if n&1 == 0 {
		return (cp[mid-1] + cp[mid]) * 0.5
	}
	return cp[mid]
}

// Mode returns the most frequent value in the slice. Ties go to the value
// seen first.
func Mode(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	counts := make(map[float64]int)
	maxCount := 0
	mode := x[0]
	for _, v := range x {
		counts[v]++
		if counts[v] > maxCount {
			maxCount = counts[v]
			mode = v
		}
	}
	return mode
}

// Percentile returns the p-th percentile value of the slice (0 <= p <= 100)
// using linear interpolation between closest ranks.
func Percentile(x []float64, p float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	min, max := MinMax(x)
	if p <= 0 {
		return min
	}
	if p >= 100 {
		return max
	}
	cp := make([]float64, n)
	copy(cp, x)
	sort.Float64s(cp)
	rank := p / 100 * float64(n-1)
	lower := int(rank)
	upper := lower + 1
	weight := rank - float64(lower)
	if upper >= n {
		return cp[lower]
	}
	return cp[lower]*(1-weight) + cp[upper]*weight
}

// Column extracts column j of a row-major table.
func Column(X [][]float64, j int) []float64 {
	col := make([]float64, len(X))
	for i := range X {
		col[i] = X[i][j]
	}
	return col
}
