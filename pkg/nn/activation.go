package nn

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func Sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }

func ReLU(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Activation names an element-wise (or, for softmax, row-wise) layer
// non-linearity.
type Activation string

const (
	ActLinear  Activation = "linear"
	ActReLU    Activation = "relu"
	ActSigmoid Activation = "sigmoid"
	ActTanh    Activation = "tanh"
	ActSoftmax Activation = "softmax"
)

// ParseActivation validates an activation name.
func ParseActivation(s string) (Activation, error) {
	switch a := Activation(s); a {
	case ActLinear, ActReLU, ActSigmoid, ActTanh, ActSoftmax:
		return a, nil
	}
	return "", errors.Errorf("unknown activation %q", s)
}

// apply transforms pre-activations z in place.
func (a Activation) apply(z *mat.Dense) {
	switch a {
	case ActReLU:
		z.Apply(func(_, _ int, v float64) float64 { return ReLU(v) }, z)
	case ActSigmoid:
		z.Apply(func(_, _ int, v float64) float64 { return Sigmoid(v) }, z)
	case ActTanh:
		z.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, z)
	case ActSoftmax:
		r, _ := z.Dims()
		for i := 0; i < r; i++ {
			softmax(z.RawRowView(i))
		}
	}
}

// backprop multiplies grad in place by the activation derivative, expressed
// through the layer output. Softmax is only used together with
// cross-entropy, whose gradient already accounts for it.
func (a Activation) backprop(out, grad *mat.Dense) {
	switch a {
	case ActReLU:
		grad.Apply(func(i, j int, g float64) float64 {
			if out.At(i, j) > 0 {
				return g
			}
			return 0
		}, grad)
	case ActSigmoid:
		grad.Apply(func(i, j int, g float64) float64 {
			o := out.At(i, j)
			return g * o * (1 - o)
		}, grad)
	case ActTanh:
		grad.Apply(func(i, j int, g float64) float64 {
			o := out.At(i, j)
			return g * (1 - o*o)
		}, grad)
	}
}

func softmax(row []float64) {
	max := row[0]
	for _, v := range row[1:] {
		if v > max {
			max = v
		}
	}
	sum := 0.0
	for j, v := range row {
		e := math.Exp(v - max)
		row[j] = e
		sum += e
	}
	for j := range row {
		row[j] /= sum
	}
}
