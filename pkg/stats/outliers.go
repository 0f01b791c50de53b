package stats

// ClipOutliers clips each column of X to its lower and upper percentiles,
// computed on X itself. It returns the clipped copy and the number of values
// changed.
func ClipOutliers(X [][]float64, lower, upper float64) ([][]float64, int) {
	if len(X) == 0 {
		return X, 0
	}
	cols := len(X[0])
	lows := make([]float64, cols)
	highs := make([]float64, cols)
	for j := range cols {
		col := Column(X, j)
		lows[j] = Percentile(col, lower)
		highs[j] = Percentile(col, upper)
	}
	clipped := 0
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = make([]float64, cols)
		for j, v := range row {
			switch {
			case v < lows[j]:
				v = lows[j]
				clipped++
			case v > highs[j]:
				v = highs[j]
				clipped++
			}
			out[i][j] = v
		}
	}
	return out, clipped
}
