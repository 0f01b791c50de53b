package dataprep

import (
	"fmt"
	"math"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/data"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/stats"
)

// Strategy names what HandleMissingValues did with a column.
type Strategy string

const (
	Dropped         Strategy = "drop"
	Mean            Strategy = "mean"
	Median          Strategy = "median"
	KNN             Strategy = "knn"
	Constant        Strategy = "constant"
	Mode            Strategy = "mode"
	UnknownCategory Strategy = "unknown"
)

const (
	unknownCategory = "Unknown"
	knnNeighbors    = 3
)

// Action records the treatment of one column with missing values.
type Action struct {
	Column   string
	Missing  float64 // fraction of rows missing
	Strategy Strategy
}

func (a Action) String() string {
	return fmt.Sprintf("%s: %.2f%% missing, %s", a.Column, a.Missing*100, a.Strategy)
}

// HandleMissingValues picks an imputation strategy per column from its type,
// distribution and missing ratio. Columns with a missing ratio above
// threshold are dropped. Columns without missing values are left alone and
// not reported.
func HandleMissingValues(f *data.Frame, threshold float64) (*data.Frame, []Action) {
	rows := f.Len()
	if rows == 0 {
		return f, nil
	}

	out := &data.Frame{Records: make([][]string, rows)}
	for i, rec := range f.Records {
		out.Records[i] = append([]string(nil), rec...)
	}

	var actions []Action
	var drop []string
	for c, h := range f.Headers {
		col, _ := f.Column(h)
		missing := 0
		for _, v := range col {
			if IsMissing(v) {
				missing++
			}
		}
		if missing == 0 {
			continue
		}
		ratio := float64(missing) / float64(rows)
		act := Action{Column: h, Missing: ratio}

		switch {
		case ratio > threshold:
			act.Strategy = Dropped
			drop = append(drop, h)
		case numericIgnoringMissing(col):
			nums := presentNumbers(col)
			skew := math.Abs(stats.Mean(nums)-stats.Median(nums)) / (stats.Std(nums) + 1e-9)
			switch {
			case ratio < 0.05:
				col, act.Strategy = ImputeMean(col), Mean
			case skew > 1.0:
				col, act.Strategy = ImputeMedian(col), Median
			case ratio < 0.2:
				col, act.Strategy = ImputeKNN(out.Records, c, knnNeighbors), KNN
			default:
				col, act.Strategy = ImputeConstant(col, "0"), Constant
			}
		default:
			if ratio < 0.1 {
				col, act.Strategy = ImputeMode(col), Mode
			} else {
				col, act.Strategy = ImputeConstant(col, unknownCategory), UnknownCategory
			}
		}
		actions = append(actions, act)
		if act.Strategy != Dropped {
			for r := range out.Records {
				out.Records[r][c] = col[r]
			}
		}
	}

	out.Headers = append([]string(nil), f.Headers...)
	if len(drop) > 0 {
		// names come from f, Drop cannot fail here
		out, _ = out.Drop(drop...)
	}
	return out, actions
}

func numericIgnoringMissing(col []string) bool {
	seen := false
	for _, v := range col {
		if IsMissing(v) {
			continue
		}
		if _, err := ParseValue(v); err != nil {
			return false
		}
		seen = true
	}
	return seen
}
