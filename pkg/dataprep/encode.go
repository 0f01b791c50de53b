package dataprep

import (
	"math"
	"sort"
	"strconv"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/data"
	"github.com/pkg/errors"
)

// Categories returns the distinct values of col in lexical order.
func Categories(col []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, v := range col {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// EncodeCategorical one-hot encodes a slice of string categories. Vector
// positions follow the lexical order of the categories.
func EncodeCategorical(col []string) ([][]float64, map[string]int) {
	index := map[string]int{}
	for i, c := range Categories(col) {
		index[c] = i
	}
	out := make([][]float64, len(col))
	for i, v := range col {
		vec := make([]float64, len(index))
		vec[index[v]] = 1
		out[i] = vec
	}
	return out, index
}

// LabelEncode encodes categories as integers in lexical order.
func LabelEncode(col []string) ([]int, map[string]int) {
	index := map[string]int{}
	for i, c := range Categories(col) {
		index[c] = i
	}
	out := make([]int, len(col))
	for i, v := range col {
		out[i] = index[v]
	}
	return out, index
}

// FrequencyEncode encodes categories by their relative frequency.
func FrequencyEncode(col []string) ([]float64, map[string]float64) {
	counts := map[string]float64{}
	for _, v := range col {
		counts[v]++
	}
	out := make([]float64, len(col))
	for i, v := range col {
		out[i] = counts[v] / float64(len(col))
	}
	return out, counts
}

// ParseValue parses a numeric cell. Missing markers and non-finite values
// are errors, so they never reach a model as NaN or Inf.
func ParseValue(s string) (float64, error) {
	if IsMissing(s) {
		return 0, errors.Errorf("missing value %q", s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// IsNumeric reports whether every value of col is a finite number.
func IsNumeric(col []string) bool {
	for _, v := range col {
		if _, err := ParseValue(v); err != nil {
			return false
		}
	}
	return true
}

// OneHot expands the named categorical columns into binary indicator columns
// named <column>_<category>. Untouched columns keep their order and the
// indicator columns are appended after them.
func OneHot(f *data.Frame, columns ...string) (*data.Frame, error) {
	expand := make(map[int]bool, len(columns))
	for _, c := range columns {
		j := f.Index(c)
		if j < 0 {
			return nil, errors.Errorf("one-hot: no column %q", c)
		}
		expand[j] = true
	}

	out := &data.Frame{Records: make([][]string, f.Len())}
	for j, h := range f.Headers {
		if !expand[j] {
			out.Headers = append(out.Headers, h)
		}
	}
	for i, rec := range f.Records {
		row := make([]string, 0, len(rec))
		for j, v := range rec {
			if !expand[j] {
				row = append(row, v)
			}
		}
		out.Records[i] = row
	}

	for j, h := range f.Headers {
		if !expand[j] {
			continue
		}
		col, _ := f.Column(h)
		vecs, index := EncodeCategorical(col)
		names := make([]string, len(index))
		for c, k := range index {
			names[k] = h + "_" + c
		}
		out.Headers = append(out.Headers, names...)
		for i, vec := range vecs {
			for _, v := range vec {
				out.Records[i] = append(out.Records[i], strconv.FormatFloat(v, 'f', -1, 64))
			}
		}
	}
	return out, nil
}

// CategoricalColumns lists the columns holding at least one non-numeric value.
// Missing markers do not make a numeric column categorical.
func CategoricalColumns(f *data.Frame) []string {
	var out []string
	for _, h := range f.Headers {
		col, _ := f.Column(h)
		if !numericIgnoringMissing(col) {
			out = append(out, h)
		}
	}
	return out
}

// AutoOneHot one-hot encodes every categorical column of f.
func AutoOneHot(f *data.Frame) (*data.Frame, []string, error) {
	cats := CategoricalColumns(f)
	if len(cats) == 0 {
		return f, nil, nil
	}
	out, err := OneHot(f, cats...)
	return out, cats, err
}

// EncodeColumns applies method ("onehot", "label" or "freq") to the
// categorical columns of f. Label and frequency encodings replace the column
// in place.
func EncodeColumns(f *data.Frame, method string) (*data.Frame, []string, error) {
	switch method {
	case "", "onehot":
		return AutoOneHot(f)
	case "label", "freq":
	default:
		return nil, nil, errors.Errorf("unknown encoding %q", method)
	}

	cats := CategoricalColumns(f)
	out := &data.Frame{Headers: append([]string(nil), f.Headers...), Records: make([][]string, f.Len())}
	for i, rec := range f.Records {
		out.Records[i] = append([]string(nil), rec...)
	}
	for _, c := range cats {
		j := f.Index(c)
		col, _ := f.Column(c)
		if method == "label" {
			codes, _ := LabelEncode(col)
			for i, v := range codes {
				out.Records[i][j] = strconv.Itoa(v)
			}
		} else {
			freqs, _ := FrequencyEncode(col)
			for i, v := range freqs {
				out.Records[i][j] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return out, cats, nil
}
