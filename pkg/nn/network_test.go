package nn

import (
	"bytes"
	"context"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// blobs returns well separated Gaussian clusters, one per class.
func blobs(n, classes int, seed int64) ([][]float64, []int) {
	rnd := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		c := i % classes
		angle := 2 * math.Pi * float64(c) / float64(classes)
		X[i] = []float64{
			4*math.Cos(angle) + rnd.NormFloat64()*0.3,
			4*math.Sin(angle) + rnd.NormFloat64()*0.3,
		}
		y[i] = c
	}
	return X, y
}

func numericGradCheck(t *testing.T, cfg Config, target *mat.Dense) {
	t.Helper()
	net, err := NewNetwork(cfg)
	if err != nil {
		t.Fatal(err)
	}
	rnd := rand.New(rand.NewSource(3))
	r, _ := target.Dims()
	x := mat.NewDense(r, cfg.Inputs, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < cfg.Inputs; j++ {
			x.Set(i, j, rnd.NormFloat64())
		}
	}

	net.backprop(x, target)
	lossAt := func() float64 {
		l, _ := net.Loss.evaluate(net.forward(x, false), target)
		return l
	}

	const eps = 1e-6
	for li, layer := range net.Layers {
		w := layer.W.RawMatrix().Data
		g := layer.dW.RawMatrix().Data
		for k := range w {
			orig := w[k]
			w[k] = orig + eps
			up := lossAt()
			w[k] = orig - eps
			down := lossAt()
			w[k] = orig
			num := (up - down) / (2 * eps)
			if math.Abs(num-g[k]) > 1e-5*math.Max(1, math.Abs(num)) {
				t.Fatalf("layer %d weight %d: analytic %v, numeric %v", li, k, g[k], num)
			}
		}
		for k := range layer.B {
			orig := layer.B[k]
			layer.B[k] = orig + eps
			up := lossAt()
			layer.B[k] = orig - eps
			down := lossAt()
			layer.B[k] = orig
			num := (up - down) / (2 * eps)
			if math.Abs(num-layer.dB[k]) > 1e-5*math.Max(1, math.Abs(num)) {
				t.Fatalf("layer %d bias %d: analytic %v, numeric %v", li, k, layer.dB[k], num)
			}
		}
	}
}

func TestGradientsSoftmaxCrossEntropy(t *testing.T) {
	target := mat.NewDense(4, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
		0, 1, 0,
	})
	numericGradCheck(t, Config{Inputs: 5, Hidden: []int{4, 3}, Outputs: 3, Activation: ActTanh, Seed: 1}, target)
}

func TestGradientsSigmoidMSE(t *testing.T) {
	target := mat.NewDense(3, 2, []float64{0.2, 0.8, 1, 0, 0.5, 0.5})
	numericGradCheck(t, Config{
		Inputs: 3, Hidden: []int{4}, Outputs: 2,
		Activation: ActSigmoid, Output: ActSigmoid, Loss: SquaredError, Seed: 2,
	}, target)
}

func TestNewNetworkValidation(t *testing.T) {
	cases := []Config{
		{Inputs: 0, Outputs: 2},
		{Inputs: 2, Outputs: 2, Hidden: []int{0}},
		{Inputs: 2, Outputs: 2, Output: ActSoftmax, Loss: SquaredError},
		{Inputs: 2, Outputs: 2, Output: ActSigmoid, Loss: CrossEntropy},
		{Inputs: 2, Outputs: 2, Activation: ActSoftmax},
	}
	for i, c := range cases {
		if _, err := NewNetwork(c); err == nil {
			t.Errorf("case %d: expected an error for %+v", i, c)
		}
	}
}

func TestFitLearnsSeparableClasses(t *testing.T) {
	X, y := blobs(600, 3, 1)
	net, err := NewNetwork(Config{Inputs: 2, Hidden: []int{16, 8}, Outputs: 3, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	hist, err := net.FitClasses(context.Background(), X, y, TrainOptions{
		Epochs:          20,
		BatchSize:       32,
		LearningRate:    0.1,
		Shuffle:         true,
		ValidationSplit: 0.2,
		Seed:            1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(hist.Loss) != 20 || len(hist.ValAccuracy) != 20 {
		t.Fatalf("history lengths %d/%d", len(hist.Loss), len(hist.ValAccuracy))
	}
	if hist.Loss[19] >= hist.Loss[0] {
		t.Fatalf("loss did not decrease: %v", hist.Loss)
	}

	Xt, yt := blobs(300, 3, 2)
	pred, err := net.PredictClasses(Xt)
	if err != nil {
		t.Fatal(err)
	}
	correct := 0
	for i := range yt {
		if pred[i] == yt[i] {
			correct++
		}
	}
	if acc := float64(correct) / float64(len(yt)); acc < 0.95 {
		t.Fatalf("test accuracy %.3f, want >= 0.95", acc)
	}

	probs, _ := net.Predict(Xt[:1])
	sum := 0.0
	for _, p := range probs[0] {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("softmax output sums to %v", sum)
	}
}

func TestFitHonoursContext(t *testing.T) {
	X, y := blobs(100, 2, 1)
	net, _ := NewNetwork(Config{Inputs: 2, Hidden: []int{4}, Outputs: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := net.FitClasses(ctx, X, y, TrainOptions{Epochs: 1, BatchSize: 10, LearningRate: 0.1}); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestFitRejectsBadOptions(t *testing.T) {
	X, y := blobs(10, 2, 1)
	net, _ := NewNetwork(Config{Inputs: 2, Outputs: 2})
	bad := []TrainOptions{
		{Epochs: 0, BatchSize: 1, LearningRate: 0.1},
		{Epochs: 1, BatchSize: 0, LearningRate: 0.1},
		{Epochs: 1, BatchSize: 1, LearningRate: 0},
		{Epochs: 1, BatchSize: 1, LearningRate: 0.1, ValidationSplit: 1},
	}
	for i, o := range bad {
		if _, err := net.FitClasses(context.Background(), X, y, o); err == nil {
			t.Errorf("case %d: expected an error", i)
		}
	}
	if _, err := net.FitClasses(context.Background(), X, []int{0, 5, 0, 0, 0, 0, 0, 0, 0, 0}, TrainOptions{Epochs: 1, BatchSize: 1, LearningRate: 0.1}); err == nil {
		t.Error("labels outside the output range must be rejected")
	}
}

func TestSaveLoad(t *testing.T) {
	net, _ := NewNetwork(Config{Inputs: 3, Hidden: []int{5}, Outputs: 2, Seed: 9})
	path := filepath.Join(t.TempDir(), "net.gob")
	if err := net.Save(path); err != nil {
		t.Fatal(err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	x := [][]float64{{0.1, -0.2, 0.3}}
	a, _ := net.Predict(x)
	b, _ := back.Predict(x)
	for j := range a[0] {
		if a[0][j] != b[0][j] {
			t.Fatalf("restored network predicts %v, want %v", b, a)
		}
	}
}

func TestSummary(t *testing.T) {
	net, _ := NewNetwork(Config{Inputs: 784, Hidden: []int{128, 64}, Outputs: 10})
	var buf bytes.Buffer
	net.Summary(&buf)
	if !strings.Contains(buf.String(), "Total params: 109386") {
		t.Fatalf("unexpected summary:\n%s", buf.String())
	}
}

func TestMSE(t *testing.T) {
	loss, grad := MSE([]float64{1, 2}, []float64{2, 2})
	if loss != 0.5 || grad[0] != 1 || grad[1] != 0 {
		t.Fatalf("MSE = %v, %v", loss, grad)
	}
}
