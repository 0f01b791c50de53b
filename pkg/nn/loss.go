package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Mean Squared Error(MSE) and its gradient for regression
// Use this loss when predicting continuous values (regression problems)
func MSE(yTrue, yPred []float64) (float64, []float64) {
	n := len(yTrue)
	s := 0.0
	grad := make([]float64, n)

	for i := range n {
		e := yPred[i] - yTrue[i]
		s += e * e
		grad[i] = 2 * e / float64(n)
	}
	return s / float64(n), grad
}

// Loss names a network training objective.
type Loss string

const (
	// CrossEntropy is categorical cross-entropy over a softmax output.
	CrossEntropy Loss = "categorical_crossentropy"
	// SquaredError is mean squared error over any output activation.
	SquaredError Loss = "mse"
)

const probFloor = 1e-12

// evaluate returns the mean loss of a batch and its gradient with respect to
// the network output. For cross-entropy the gradient is taken with respect
// to the softmax pre-activations, i.e. (p - y) / n.
func (l Loss) evaluate(out, target *mat.Dense) (float64, *mat.Dense) {
	r, c := out.Dims()
	n := float64(r)
	grad := mat.NewDense(r, c, nil)
	grad.Sub(out, target)

	total := 0.0
	switch l {
	case CrossEntropy:
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if y := target.At(i, j); y != 0 {
					total -= y * math.Log(math.Max(out.At(i, j), probFloor))
				}
			}
		}
		grad.Scale(1/n, grad)
	default:
		for _, d := range grad.RawMatrix().Data {
			total += d * d
		}
		total /= float64(c)
		grad.Scale(2/(n*float64(c)), grad)
	}
	return total / n, grad
}
