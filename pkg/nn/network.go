package nn

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"text/tabwriter"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/core"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/optim"
	"github.com/cheggaaa/pb/v3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Config describes a multilayer perceptron.
type Config struct {
	Inputs     int
	Hidden     []int
	Outputs    int
	Activation Activation // hidden layers
	Output     Activation
	Loss       Loss
	Seed       int64
}

// Network is a stack of dense layers trained by mini-batch gradient descent.
// It is not safe for concurrent use.
type Network struct {
	Layers []*Dense
	Loss   Loss
}

// NewNetwork builds a network from cfg. Softmax outputs must be paired with
// cross-entropy and vice versa.
func NewNetwork(cfg Config) (*Network, error) {
	if cfg.Inputs <= 0 || cfg.Outputs <= 0 {
		return nil, errors.Errorf("network needs positive input and output sizes, got %d and %d", cfg.Inputs, cfg.Outputs)
	}
	for i, h := range cfg.Hidden {
		if h <= 0 {
			return nil, errors.Errorf("hidden layer %d has size %d", i, h)
		}
	}
	if cfg.Activation == "" {
		cfg.Activation = ActReLU
	}
	if cfg.Output == "" {
		cfg.Output = ActSoftmax
	}
	if cfg.Loss == "" {
		cfg.Loss = CrossEntropy
	}
	if cfg.Activation == ActSoftmax {
		return nil, errors.New("softmax is only supported on the output layer")
	}
	if (cfg.Output == ActSoftmax) != (cfg.Loss == CrossEntropy) {
		return nil, errors.Errorf("output %q cannot be trained with loss %q", cfg.Output, cfg.Loss)
	}

	rnd := rand.New(rand.NewSource(cfg.Seed))
	net := &Network{Loss: cfg.Loss}
	in := cfg.Inputs
	for _, h := range cfg.Hidden {
		net.Layers = append(net.Layers, NewDense(in, h, cfg.Activation, rnd))
		in = h
	}
	net.Layers = append(net.Layers, NewDense(in, cfg.Outputs, cfg.Output, rnd))
	return net, nil
}

func (n *Network) Inputs() int  { return n.Layers[0].Inputs() }
func (n *Network) Outputs() int { return n.Layers[len(n.Layers)-1].Outputs() }

// Params returns the number of trainable parameters.
func (n *Network) Params() int {
	total := 0
	for _, l := range n.Layers {
		total += l.Params()
	}
	return total
}

func (n *Network) forward(x *mat.Dense, train bool) *mat.Dense {
	for _, l := range n.Layers {
		x = l.forward(x, train)
	}
	return x
}

// backprop runs a training forward pass and back-propagates the loss,
// leaving parameter gradients on each layer.
func (n *Network) backprop(xb, yb *mat.Dense) (float64, *mat.Dense) {
	out := n.forward(xb, true)
	loss, grad := n.Loss.evaluate(out, yb)
	for i := len(n.Layers) - 1; i >= 0; i-- {
		grad = n.Layers[i].backward(grad)
	}
	return loss, out
}

func (n *Network) apply(opt *optim.SGD) {
	for i, l := range n.Layers {
		opt.Update(2*i, l.W.RawMatrix().Data, l.dW.RawMatrix().Data)
		opt.Update(2*i+1, l.B, l.dB)
	}
}

const predictBatch = 1024

// Predict returns the output activations (class probabilities for a softmax
// network) for each row of X.
func (n *Network) Predict(X [][]float64) ([][]float64, error) {
	if len(X) == 0 {
		return nil, nil
	}
	out := make([][]float64, 0, len(X))
	for s := 0; s < len(X); s += predictBatch {
		xb, err := core.FromRows(X[s:min(s+predictBatch, len(X))])
		if err != nil {
			return nil, err
		}
		if _, c := xb.Dims(); c != n.Inputs() {
			return nil, errors.Errorf("input has %d features, network expects %d", c, n.Inputs())
		}
		out = append(out, core.RowsOf(n.forward(xb, false))...)
	}
	return out, nil
}

// PredictClasses returns the arg-max class of each row of X.
func (n *Network) PredictClasses(X [][]float64) ([]int, error) {
	probs, err := n.Predict(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(probs))
	for i, p := range probs {
		best := 0
		for j := range p {
			if p[j] > p[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out, nil
}

// Evaluate returns the mean loss and accuracy of the network on X, Y.
func (n *Network) Evaluate(X, Y [][]float64) (loss, acc float64, err error) {
	if len(X) != len(Y) {
		return 0, 0, errors.Errorf("%d inputs but %d targets", len(X), len(Y))
	}
	if len(X) == 0 {
		return 0, 0, errors.New("nothing to evaluate")
	}
	var lossSum float64
	var correct int
	for s := 0; s < len(X); s += predictBatch {
		e := min(s+predictBatch, len(X))
		xb, err := core.FromRows(X[s:e])
		if err != nil {
			return 0, 0, err
		}
		yb, err := core.FromRows(Y[s:e])
		if err != nil {
			return 0, 0, err
		}
		out := n.forward(xb, false)
		l, _ := n.Loss.evaluate(out, yb)
		lossSum += l * float64(e-s)
		correct += countCorrect(out, yb)
	}
	return lossSum / float64(len(X)), float64(correct) / float64(len(X)), nil
}

func countCorrect(out, target *mat.Dense) int {
	r, c := out.Dims()
	if c == 1 {
		n := 0
		for i := 0; i < r; i++ {
			if math.Round(out.At(i, 0)) == target.At(i, 0) {
				n++
			}
		}
		return n
	}
	pred := core.ArgmaxRows(out)
	truth := core.ArgmaxRows(target)
	n := 0
	for i := range pred {
		if pred[i] == truth[i] {
			n++
		}
	}
	return n
}

// Summary prints a layer table in the style of the usual framework summaries.
func (n *Network) Summary(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Layer\tOutput\tActivation\tParams")
	for i, l := range n.Layers {
		fmt.Fprintf(tw, "dense_%d\t(None, %d)\t%s\t%d\n", i+1, l.Outputs(), l.Act, l.Params())
	}
	fmt.Fprintf(tw, "Total params: %d\t\t\t\n", n.Params())
	tw.Flush()
}

// TrainOptions controls Fit.
type TrainOptions struct {
	Epochs          int
	BatchSize       int
	LearningRate    float64
	Momentum        float64
	Shuffle         bool
	ValidationSplit float64 // fraction of trailing rows held out for validation
	Seed            int64
	Verbose         bool
	Progress        io.Writer // defaults to os.Stderr
}

func (o TrainOptions) validate() error {
	switch {
	case o.Epochs <= 0:
		return errors.Errorf("epochs must be positive, got %d", o.Epochs)
	case o.BatchSize <= 0:
		return errors.Errorf("batch size must be positive, got %d", o.BatchSize)
	case o.LearningRate <= 0:
		return errors.Errorf("learning rate must be positive, got %v", o.LearningRate)
	case o.ValidationSplit < 0 || o.ValidationSplit >= 1:
		return errors.Errorf("validation split %v outside [0, 1)", o.ValidationSplit)
	}
	return nil
}

// History records per-epoch training metrics. Validation slices are empty
// when no validation split was requested.
type History struct {
	Loss        []float64
	Accuracy    []float64
	ValLoss     []float64
	ValAccuracy []float64
}

// FitClasses trains on integer class labels, one-hot encoding them against
// the network's output width.
func (n *Network) FitClasses(ctx context.Context, X [][]float64, labels []int, opts TrainOptions) (*History, error) {
	Y, err := core.OneHot(labels, n.Outputs())
	if err != nil {
		return nil, err
	}
	return n.Fit(ctx, X, core.RowsOf(Y), opts)
}

// Fit trains the network with mini-batch SGD. The context is checked between
// batches.
func (n *Network) Fit(ctx context.Context, X, Y [][]float64, opts TrainOptions) (*History, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(X) != len(Y) {
		return nil, errors.Errorf("%d inputs but %d targets", len(X), len(Y))
	}
	if len(X) == 0 {
		return nil, errors.New("no training data")
	}
	if len(X[0]) != n.Inputs() || len(Y[0]) != n.Outputs() {
		return nil, errors.Errorf("data shape (%d -> %d) does not match network (%d -> %d)",
			len(X[0]), len(Y[0]), n.Inputs(), n.Outputs())
	}

	nTrain := len(X) - int(float64(len(X))*opts.ValidationSplit)
	trainX, trainY := X[:nTrain], Y[:nTrain]
	valX, valY := X[nTrain:], Y[nTrain:]
	if nTrain == 0 {
		return nil, errors.New("validation split leaves no training data")
	}

	progress := opts.Progress
	if progress == nil {
		progress = os.Stderr
	}
	opt := optim.NewMomentumSGD(opts.LearningRate, opts.Momentum)
	rnd := rand.New(rand.NewSource(opts.Seed))
	idx := make([]int, nTrain)
	for i := range idx {
		idx[i] = i
	}
	nBatches := (nTrain + opts.BatchSize - 1) / opts.BatchSize
	hist := &History{}

	for ep := 0; ep < opts.Epochs; ep++ {
		if opts.Shuffle {
			rnd.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		}
		var bar *pb.ProgressBar
		if opts.Verbose {
			bar = pb.New(nBatches).SetWriter(progress)
			bar.Set("prefix", fmt.Sprintf("Epoch %d/%d ", ep+1, opts.Epochs))
			bar.Start()
		}

		var lossSum float64
		var correct int
		for s := 0; s < nTrain; s += opts.BatchSize {
			if err := ctx.Err(); err != nil {
				if bar != nil {
					bar.Finish()
				}
				return hist, err
			}
			batch := idx[s:min(s+opts.BatchSize, nTrain)]
			xb := core.Gather(trainX, batch)
			yb := core.Gather(trainY, batch)
			loss, out := n.backprop(xb, yb)
			n.apply(opt)

			lossSum += loss * float64(len(batch))
			correct += countCorrect(out, yb)
			if bar != nil {
				bar.Increment()
			}
		}
		if bar != nil {
			bar.Finish()
		}
		if math.IsNaN(lossSum) {
			return hist, errors.Errorf("loss diverged at epoch %d", ep+1)
		}

		hist.Loss = append(hist.Loss, lossSum/float64(nTrain))
		hist.Accuracy = append(hist.Accuracy, float64(correct)/float64(nTrain))
		line := fmt.Sprintf("loss: %.4f - accuracy: %.4f", hist.Loss[ep], hist.Accuracy[ep])
		if len(valX) > 0 {
			vl, va, err := n.Evaluate(valX, valY)
			if err != nil {
				return hist, err
			}
			hist.ValLoss = append(hist.ValLoss, vl)
			hist.ValAccuracy = append(hist.ValAccuracy, va)
			line += fmt.Sprintf(" - val_loss: %.4f - val_accuracy: %.4f", vl, va)
		}
		if opts.Verbose {
			fmt.Fprintf(progress, "Epoch %d/%d - %s\n", ep+1, opts.Epochs, line)
		}
	}
	return hist, nil
}
