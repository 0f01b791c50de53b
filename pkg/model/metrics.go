package model

import (
	"math"

	"github.com/pkg/errors"
)

func MSE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	s := 0.0
	for i := range yTrue {
		d := yPred[i] - yTrue[i]
		s += d * d
	}
	return s / float64(len(yTrue))
}

func MAE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	s := 0.0
	for i := range yTrue {
		s += math.Abs(yPred[i] - yTrue[i])
	}
	return s / float64(len(yTrue))
}

func RMSE(yTrue, yPred []float64) float64 { return math.Sqrt(MSE(yTrue, yPred)) }

func R2(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	m := 0.0
	for _, v := range yTrue {
		m += v
	}
	m /= float64(len(yTrue))
	ssTot := 0.0
	ssRes := 0.0
	for i := range yTrue {
		d := yTrue[i] - m
		ssTot += d * d
		r := yTrue[i] - yPred[i]
		ssRes += r * r
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// MAPE is the mean absolute percentage error, in percent. Rows whose true
// value is zero are skipped.
func MAPE(yTrue, yPred []float64) float64 {
	s, n := 0.0, 0
	for i := range yTrue {
		if yTrue[i] == 0 {
			continue
		}
		s += 100 * math.Abs(yPred[i]-yTrue[i]) / math.Abs(yTrue[i])
		n++
	}
	if n == 0 {
		return 0
	}
	return s / float64(n)
}

func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// ConfusionMatrix counts predictions: row = true class, column = predicted.
func ConfusionMatrix(yTrue, yPred []int, classes int) ([][]int, error) {
	if len(yTrue) != len(yPred) {
		return nil, errors.Errorf("%d labels but %d predictions", len(yTrue), len(yPred))
	}
	cm := make([][]int, classes)
	for i := range cm {
		cm[i] = make([]int, classes)
	}
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t >= classes || p < 0 || p >= classes {
			return nil, errors.Errorf("row %d: class pair (%d, %d) outside [0,%d)", i, t, p, classes)
		}
		cm[t][p]++
	}
	return cm, nil
}

// ClassScore holds one-vs-rest metrics for a class.
type ClassScore struct {
	Class     int
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// ClassScores derives per-class precision, recall and F1 from a confusion
// matrix.
func ClassScores(cm [][]int) []ClassScore {
	out := make([]ClassScore, len(cm))
	for c := range cm {
		tp := cm[c][c]
		fp, fn := 0, 0
		for k := range cm {
			if k != c {
				fp += cm[k][c]
				fn += cm[c][k]
			}
		}
		s := ClassScore{Class: c, Support: tp + fn}
		if tp+fp > 0 {
			s.Precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			s.Recall = float64(tp) / float64(tp+fn)
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		out[c] = s
	}
	return out
}
