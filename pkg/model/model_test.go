package model

import (
	"context"
	"math"
	"math/rand"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/data"
)

// stepData has a target that depends only on feature 0 through a step at 0.5;
// feature 1 is noise.
func stepData(n int, seed int64) ([][]float64, []float64) {
	rnd := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		a, b := rnd.Float64(), rnd.Float64()
		X[i] = []float64{a, b}
		if a <= 0.5 {
			y[i] = 10
		} else {
			y[i] = 30
		}
	}
	return X, y
}

func TestTreeLearnsStep(t *testing.T) {
	X, y := stepData(200, 1)
	tree := NewDecisionTreeRegressor()
	if err := tree.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	got := tree.Predict([][]float64{{0.1, 0.9}, {0.9, 0.1}})
	if got[0] != 10 || got[1] != 30 {
		t.Fatalf("predictions = %v, want [10 30]", got)
	}
	if tree.Depth() != 1 || tree.Leaves() != 2 {
		t.Errorf("depth %d leaves %d, want 1 and 2", tree.Depth(), tree.Leaves())
	}
	if tree.Root.Feature != 0 {
		t.Errorf("root splits on feature %d", tree.Root.Feature)
	}
	if tree.Importances[1] != 0 {
		t.Errorf("noise feature importance %v", tree.Importances[1])
	}
}

func TestTreeMaxDepthAndLeafSize(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	X := make([][]float64, 100)
	y := make([]float64, 100)
	for i := range X {
		X[i] = []float64{rnd.Float64()}
		y[i] = rnd.NormFloat64()
	}
	tree := NewDecisionTreeRegressor(WithMaxDepth(3), WithMinSamplesLeaf(5))
	if err := tree.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if d := tree.Depth(); d > 3 {
		t.Errorf("depth %d exceeds 3", d)
	}
	var walk func(n *TreeNode)
	walk = func(n *TreeNode) {
		if n.Leaf {
			if n.N < 5 {
				t.Errorf("leaf with %d samples", n.N)
			}
			return
		}
		walk(n.Left)
		walk(n.Right)
	}
	walk(tree.Root)
}

func TestTreeMinImpurityDecrease(t *testing.T) {
	X, y := stepData(200, 3)
	// no split can remove more variance than the target has
	tree := NewDecisionTreeRegressor(WithMinImpurityDecrease(1000))
	if err := tree.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if n := tree.Leaves(); n != 1 {
		t.Errorf("leaves = %d, want a single leaf", n)
	}
}

func TestTreeRejectsRaggedInput(t *testing.T) {
	tree := NewDecisionTreeRegressor()
	if err := tree.Fit([][]float64{{1, 2}, {3}}, []float64{1, 2}); err == nil {
		t.Error("ragged rows accepted")
	}
	if err := tree.Fit([][]float64{{1}}, []float64{1, 2}); err == nil {
		t.Error("length mismatch accepted")
	}
	if err := tree.Fit(nil, nil); err == nil {
		t.Error("empty input accepted")
	}
}

func TestForestDeterministic(t *testing.T) {
	X, y := stepData(150, 3)
	fit := func(workers int) []float64 {
		rf := NewRandomForestRegressor(
			WithNEstimators(20),
			WithForestRandomState(42),
			WithForestMaxFeatures(1),
			WithWorkers(workers),
		)
		if err := rf.Fit(X, y); err != nil {
			t.Fatal(err)
		}
		return rf.Predict(X[:10])
	}
	a, b := fit(1), fit(4)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d: %v with 1 worker, %v with 4", i, a[i], b[i])
		}
	}
}

func TestForestImportances(t *testing.T) {
	X, y := stepData(300, 4)
	var done atomic.Int32
	rf := NewRandomForestRegressor(WithNEstimators(25), WithForestRandomState(7))
	rf.OnTreeDone = func() { done.Add(1) }
	if err := rf.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if done.Load() != 25 {
		t.Errorf("OnTreeDone called %d times", done.Load())
	}
	imp := rf.FeatureImportances()
	if s := imp[0] + imp[1]; math.Abs(s-1) > 1e-9 {
		t.Errorf("importances sum to %v", s)
	}
	if imp[0] < 0.9 {
		t.Errorf("signal feature importance %v", imp[0])
	}
	if mae := MAE(y, rf.Predict(X)); mae > 1 {
		t.Errorf("training MAE %v", mae)
	}
	leaves, depth := rf.Stats()
	if leaves < 2 || depth < 1 {
		t.Errorf("stats = %v, %d", leaves, depth)
	}
}

func TestForestCancel(t *testing.T) {
	X, y := stepData(50, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rf := NewRandomForestRegressor(WithNEstimators(100))
	if err := rf.FitContext(ctx, X, y); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if rf.Trees != nil {
		t.Error("cancelled fit kept trees")
	}
}

func TestForestSaveLoad(t *testing.T) {
	X, y := stepData(80, 6)
	rf := NewRandomForestRegressor(WithNEstimators(5), WithForestRandomState(1))
	rf.OnTreeDone = func() {}
	if err := rf.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "forest.gob")
	if err := SaveForest(path, rf); err != nil {
		t.Fatal(err)
	}
	back, err := LoadForest(path)
	if err != nil {
		t.Fatal(err)
	}
	want, got := rf.Predict(X), back.Predict(X)
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("row %d: %v after reload, want %v", i, got[i], want[i])
		}
	}
}

func TestLinearRegression(t *testing.T) {
	rnd := rand.New(rand.NewSource(8))
	X := make([][]float64, 256)
	y := make([]float64, len(X))
	for i := range X {
		a, b := rnd.NormFloat64(), rnd.NormFloat64()
		X[i] = []float64{a, b}
		y[i] = 3*a - 2*b + 5
	}
	m := NewLinearRegression(2, 0.1, 1)
	if err := m.Fit(data.Batches(context.Background(), X, y, 32, 50)); err != nil {
		t.Fatal(err)
	}
	if math.Abs(m.W[0]-3) > 0.05 || math.Abs(m.W[1]+2) > 0.05 || math.Abs(m.Bias()-5) > 0.05 {
		t.Errorf("w = %v, b = %v", m.W, m.Bias())
	}

	empty := make(chan data.Batch)
	close(empty)
	if err := m.Fit(empty); err == nil {
		t.Error("fit on no batches succeeded")
	}
}

func TestLinearRegressionStopsOnWidthMismatch(t *testing.T) {
	X := [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	y := []float64{1, 2, 3}
	ctx, cancel := context.WithCancel(context.Background())
	batches := data.Batches(ctx, X, y, 1, 100)
	if err := NewLinearRegression(2, 0.1, 1).Fit(batches); err == nil {
		t.Fatal("3-feature batches accepted by a 2-feature model")
	}
	cancel()
	done := make(chan struct{})
	go func() {
		for range batches {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("producer still running after cancel")
	}
}

func TestPCA(t *testing.T) {
	rnd := rand.New(rand.NewSource(9))
	X := make([][]float64, 100)
	for i := range X {
		s := rnd.NormFloat64() * 5
		X[i] = []float64{s, 2 * s, rnd.NormFloat64() * 0.01}
	}
	pca := NewPCA(2)
	proj := pca.FitTransform(X)
	if len(proj) != 100 || len(proj[0]) != 2 {
		t.Fatalf("projection is %dx%d", len(proj), len(proj[0]))
	}
	if pca.Explained[0] < 0.99 {
		t.Errorf("first component explains %v", pca.Explained[0])
	}
	if err := NewPCA(4).Fit(X); err == nil {
		t.Error("k larger than features accepted")
	}
}

func TestRegressionMetrics(t *testing.T) {
	yTrue := []float64{10, 20, 40}
	yPred := []float64{12, 18, 40}
	if got := MAE(yTrue, yPred); math.Abs(got-4.0/3) > 1e-12 {
		t.Errorf("MAE = %v", got)
	}
	if got := MSE(yTrue, yPred); math.Abs(got-8.0/3) > 1e-12 {
		t.Errorf("MSE = %v", got)
	}
	if got := RMSE(yTrue, yPred); math.Abs(got-math.Sqrt(8.0/3)) > 1e-12 {
		t.Errorf("RMSE = %v", got)
	}
	// errors of 20% and 10% and 0%
	if got := MAPE(yTrue, yPred); math.Abs(got-10) > 1e-12 {
		t.Errorf("MAPE = %v", got)
	}
	if got := R2(yTrue, yTrue); got != 1 {
		t.Errorf("R2 of perfect fit = %v", got)
	}
	if got := MAPE([]float64{0, 10}, []float64{5, 11}); math.Abs(got-10) > 1e-12 {
		t.Errorf("MAPE with zero target = %v", got)
	}
}

func TestClassificationMetrics(t *testing.T) {
	yTrue := []int{0, 0, 1, 1, 2, 2}
	yPred := []int{0, 1, 1, 1, 2, 0}
	if got := Accuracy(yTrue, yPred); math.Abs(got-4.0/6) > 1e-12 {
		t.Errorf("accuracy = %v", got)
	}
	cm, err := ConfusionMatrix(yTrue, yPred, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]int{{1, 1, 0}, {0, 2, 0}, {1, 0, 1}}
	for i := range want {
		for j := range want[i] {
			if cm[i][j] != want[i][j] {
				t.Fatalf("cm = %v, want %v", cm, want)
			}
		}
	}
	scores := ClassScores(cm)
	if scores[1].Precision != 2.0/3 || scores[1].Recall != 1 {
		t.Errorf("class 1 = %+v", scores[1])
	}
	if _, err := ConfusionMatrix([]int{0, 3}, []int{0, 0}, 3); err == nil {
		t.Error("label outside class range accepted")
	}
}
