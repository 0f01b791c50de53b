package model

import (
	"math/rand"
	"runtime"
	"sync"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/data"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/nn"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/optim"
	"github.com/pkg/errors"
)

// LinearRegression via mini-batch gradient descent. Used as a baseline next
// to the forest; features should be standardized first.
type LinearRegression struct {
	W  []float64 // weights
	b  float64   // bias
	Lr float64
}

// NewLinearRegression initializes small random weights from seed.
func NewLinearRegression(nFeatures int, lr float64, seed int64) *LinearRegression {
	rnd := rand.New(rand.NewSource(seed))
	w := make([]float64, nFeatures)
	for i := range w {
		w[i] = rnd.NormFloat64() * 0.01
	}
	return &LinearRegression{W: w, Lr: lr}
}

// Predict returns predictions for rows in X, spread over GOMAXPROCS workers.
func (m *LinearRegression) Predict(X [][]float64) []float64 {
	if len(X) == 0 {
		return nil
	}
	pred := make([]float64, len(X))
	var wg sync.WaitGroup

	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers

	for w := 0; w < workers; w++ {
		s := w * rowsPerWorker
		e := min(s+rowsPerWorker, len(X))
		if s >= e {
			continue
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				sum := m.b
				for j, v := range X[i] {
					sum += m.W[j] * v
				}
				pred[i] = sum
			}
		}(s, e)
	}
	wg.Wait()
	return pred
}

// Fit consumes every batch from batches, taking one SGD step per batch. The
// producer decides how many epochs to send.
func (m *LinearRegression) Fit(batches <-chan data.Batch) error {
	opt := optim.NewSGD(m.Lr)
	steps := 0
	for batch := range batches {
		if len(batch.X) == 0 {
			continue
		}
		if len(m.W) != len(batch.X[0]) {
			return errors.Errorf("batch has %d features, model has %d", len(batch.X[0]), len(m.W))
		}
		yhat := m.Predict(batch.X)
		_, dy := nn.MSE(batch.Y, yhat)
		gW := make([]float64, len(m.W))
		gb := 0.0
		for i, row := range batch.X {
			d := dy[i]
			for j, xij := range row {
				gW[j] += d * xij
			}
			gb += d
		}
		opt.Step(m.W, gW)
		m.b -= m.Lr * gb
		steps++
	}
	if steps == 0 {
		return errors.New("no training batches")
	}
	return nil
}

// Bias returns the current bias value of the model.
func (m *LinearRegression) Bias() float64 {
	return m.b
}
