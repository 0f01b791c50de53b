package dataprep

import (
	"math"
	"sort"
	"strconv"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/stats"
)

// IsMissing reports whether v is one of the missing-value markers.
func IsMissing(v string) bool {
	return v == "" || v == "NA" || v == "NaN"
}

func presentNumbers(col []string) []float64 {
	var nums []float64
	for _, v := range col {
		if IsMissing(v) {
			continue
		}
		if num, err := strconv.ParseFloat(v, 64); err == nil {
			nums = append(nums, num)
		}
	}
	return nums
}

func fill(col []string, with string) []string {
	for i, v := range col {
		if IsMissing(v) {
			col[i] = with
		}
	}
	return col
}

// ImputeMean replaces missing numeric values with the column mean.
func ImputeMean(col []string) []string {
	return fill(col, strconv.FormatFloat(stats.Mean(presentNumbers(col)), 'f', 4, 64))
}

// ImputeMedian replaces missing numeric values with the column median.
func ImputeMedian(col []string) []string {
	return fill(col, strconv.FormatFloat(stats.Median(presentNumbers(col)), 'f', 4, 64))
}

// ImputeMode replaces missing values with the most frequent present value.
// Works for both numeric and categorical columns.
func ImputeMode(col []string) []string {
	counts := map[string]int{}
	best, bestCount := "", 0
	for _, v := range col {
		if IsMissing(v) {
			continue
		}
		counts[v]++
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	if bestCount == 0 {
		return col
	}
	return fill(col, best)
}

// ImputeConstant replaces missing values with a fixed constant.
func ImputeConstant(col []string, constant string) []string {
	return fill(col, constant)
}

// ImputeKNN fills missing values of column target with the mean of the k
// nearest rows, measured by Euclidean distance over the other numeric
// columns both rows share.
func ImputeKNN(records [][]string, target int, k int) []string {
	col := make([]string, len(records))
	for i, rec := range records {
		col[i] = rec[target]
	}

	type neighbor struct {
		dist float64
		val  float64
	}
	for i := range records {
		if !IsMissing(col[i]) {
			continue
		}
		var ns []neighbor
		for j := range records {
			if i == j || IsMissing(records[j][target]) {
				continue
			}
			val, err := strconv.ParseFloat(records[j][target], 64)
			if err != nil {
				continue
			}
			d := euclideanDistance(records[i], records[j], target)
			if !math.IsNaN(d) {
				ns = append(ns, neighbor{d, val})
			}
		}
		if len(ns) == 0 {
			col[i] = "0"
			continue
		}
		sort.Slice(ns, func(a, b int) bool { return ns[a].dist < ns[b].dist })
		if len(ns) > k {
			ns = ns[:k]
		}
		vals := make([]float64, len(ns))
		for n := range ns {
			vals[n] = ns[n].val
		}
		col[i] = strconv.FormatFloat(stats.Mean(vals), 'f', 4, 64)
	}
	return col
}

// euclideanDistance computes distance between two rows, ignoring target and
// any column that is not numeric in both rows.
func euclideanDistance(a, b []string, target int) float64 {
	var sum float64
	for i := range a {
		if i == target {
			continue
		}
		x, err1 := strconv.ParseFloat(a[i], 64)
		y, err2 := strconv.ParseFloat(b[i], 64)
		if err1 == nil && err2 == nil {
			sum += (x - y) * (x - y)
		}
	}
	return math.Sqrt(sum)
}
