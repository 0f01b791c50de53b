package nn

import (
	"math"
	"math/rand"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/core"
	"gonum.org/v1/gonum/mat"
)

// Dense is a fully connected layer computing act(x·W + b).
type Dense struct {
	W   *mat.Dense // inputs x outputs
	B   []float64
	Act Activation

	// cached by a training forward pass
	in, out *mat.Dense
	dW      *mat.Dense
	dB      []float64
}

// NewDense returns a layer with Glorot-uniform weights and zero biases.
func NewDense(in, out int, act Activation, rnd *rand.Rand) *Dense {
	limit := math.Sqrt(6 / float64(in+out))
	w := make([]float64, in*out)
	for i := range w {
		w[i] = (rnd.Float64()*2 - 1) * limit
	}
	return &Dense{W: mat.NewDense(in, out, w), B: make([]float64, out), Act: act}
}

func (d *Dense) Inputs() int  { r, _ := d.W.Dims(); return r }
func (d *Dense) Outputs() int { _, c := d.W.Dims(); return c }
func (d *Dense) Params() int  { return d.Inputs()*d.Outputs() + d.Outputs() }

func (d *Dense) forward(x *mat.Dense, train bool) *mat.Dense {
	r, _ := x.Dims()
	z := mat.NewDense(r, d.Outputs(), nil)
	z.Mul(x, d.W)
	core.AddRowVec(z, d.B)
	d.Act.apply(z)
	if train {
		d.in, d.out = x, z
	}
	return z
}

// backward consumes the gradient with respect to the layer output, stores
// the parameter gradients and returns the gradient with respect to the
// input. grad is modified.
func (d *Dense) backward(grad *mat.Dense) *mat.Dense {
	d.Act.backprop(d.out, grad)

	d.dW = mat.NewDense(d.Inputs(), d.Outputs(), nil)
	d.dW.Mul(d.in.T(), grad)
	d.dB = core.ColSums(grad)

	r, _ := grad.Dims()
	gin := mat.NewDense(r, d.Inputs(), nil)
	gin.Mul(grad, d.W.T())
	return gin
}
