package dataprep

import (
	"fmt"
	"strconv"
	"time"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/data"
	"github.com/pkg/errors"
)

// ToMatrix converts an all-numeric frame into a feature matrix and target
// vector. target is removed from the features; feature names keep frame
// order. An empty target returns every column as a feature and a nil y.
func ToMatrix(f *data.Frame, target string) (X [][]float64, y []float64, names []string, err error) {
	t := -1
	if target != "" {
		if t = f.Index(target); t < 0 {
			return nil, nil, nil, errors.Errorf("no target column %q", target)
		}
		y = make([]float64, f.Len())
	}
	for j, h := range f.Headers {
		if j != t {
			names = append(names, h)
		}
	}
	X = make([][]float64, f.Len())
	for i, rec := range f.Records {
		row := make([]float64, 0, len(names))
		for j, s := range rec {
			v, perr := ParseValue(s)
			if perr != nil {
				return nil, nil, nil, errors.Wrapf(perr, "row %d, column %q", i+1, f.Headers[j])
			}
			if j == t {
				y[i] = v
			} else {
				row = append(row, v)
			}
		}
		X[i] = row
	}
	return X, y, names, nil
}

// FeatureSelect selects columns by indices.
func FeatureSelect(X [][]float64, indices []int) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		selected := make([]float64, len(indices))
		for j, idx := range indices {
			selected[j] = row[idx]
		}
		out[i] = selected
	}
	return out
}

// Dates assembles one date per record from integer year, month and day
// columns.
func Dates(f *data.Frame, year, month, day string) ([]time.Time, error) {
	cols := make([][]string, 3)
	for k, name := range []string{year, month, day} {
		c, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		cols[k] = c
	}
	out := make([]time.Time, f.Len())
	for i := range out {
		var parts [3]int
		for k := range parts {
			v, err := strconv.ParseFloat(cols[k][i], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "date of row %d", i+1)
			}
			parts[k] = int(v)
		}
		out[i] = time.Date(parts[0], time.Month(parts[1]), parts[2], 0, 0, 0, 0, time.UTC)
	}
	return out, nil
}

// DropDuplicates removes repeated rows of X, keeping the first occurrence.
// y, when non-nil, is filtered alongside and takes part in the comparison.
func DropDuplicates(X [][]float64, y []float64) ([][]float64, []float64) {
	seen := make(map[string]struct{}, len(X))
	var outX [][]float64
	var outY []float64
	for i, row := range X {
		key := fmt.Sprint(row)
		if y != nil {
			key += fmt.Sprint(y[i])
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		outX = append(outX, row)
		if y != nil {
			outY = append(outY, y[i])
		}
	}
	return outX, outY
}

// PolynomialFeatures appends the pairwise products of the columns of X,
// squares included, named a^2 and a*b. Only degree 2 is supported; degree 1
// returns the input unchanged.
func PolynomialFeatures(X [][]float64, names []string, degree int) ([][]float64, []string, error) {
	switch degree {
	case 1:
		return X, names, nil
	case 2:
	default:
		return nil, nil, errors.Errorf("polynomial degree %d not supported, use 1 or 2", degree)
	}
	cols := len(names)
	outNames := append([]string(nil), names...)
	for j := 0; j < cols; j++ {
		for k := j; k < cols; k++ {
			if j == k {
				outNames = append(outNames, names[j]+"^2")
			} else {
				outNames = append(outNames, names[j]+"*"+names[k])
			}
		}
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != cols {
			return nil, nil, errors.Errorf("row %d has %d values, want %d", i+1, len(row), cols)
		}
		features := make([]float64, len(outNames))
		copy(features, row)
		idx := cols
		for j := 0; j < cols; j++ {
			for k := j; k < cols; k++ {
				features[idx] = row[j] * row[k]
				idx++
			}
		}
		out[i] = features
	}
	return out, outNames, nil
}
