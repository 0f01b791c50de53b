package model

import (
	"context"
	"math/rand"
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// RandomForestRegressor averages bagged CART regression trees.
type RandomForestRegressor struct {
	// Hyperparameters / options
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 => all features
	Bootstrap       bool
	RandomState     int64
	Workers         int // 0 => GOMAXPROCS

	// OnTreeDone, when set, is called once per fitted tree from the worker
	// goroutines.
	OnTreeDone func()

	// Internal state
	Trees     []*DecisionTreeRegressor
	NFeatures int
}

// RandomForestOption functional config for RandomForestRegressor
type RandomForestOption func(*RandomForestRegressor)

func WithNEstimators(n int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.NEstimators = n }
}
func WithBootstrap(b bool) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.Bootstrap = b }
}
func WithForestMaxDepth(d int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.MaxDepth = d }
}
func WithForestMaxFeatures(k int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.MaxFeatures = k }
}
func WithForestMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.MinSamplesLeaf = n }
}
func WithForestRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.RandomState = seed }
}
func WithWorkers(n int) RandomForestOption {
	return func(rf *RandomForestRegressor) { rf.Workers = n }
}

// NewRandomForestRegressor initializes the forest with sensible defaults.
func NewRandomForestRegressor(opts ...RandomForestOption) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

func (rf *RandomForestRegressor) workers() int {
	if rf.Workers > 0 {
		return rf.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Fit trains the forest without cancellation.
func (rf *RandomForestRegressor) Fit(X [][]float64, y []float64) error {
	return rf.FitContext(context.Background(), X, y)
}

// FitContext trains the forest on a bounded pool of workers. Each tree i
// draws its bootstrap sample and feature subsets from seed RandomState+i, so
// the fitted forest does not depend on scheduling.
func (rf *RandomForestRegressor) FitContext(ctx context.Context, X [][]float64, y []float64) error {
	p, err := validateXY(X, y)
	if err != nil {
		return errors.Wrap(err, "randomforest")
	}
	if rf.NEstimators <= 0 {
		return errors.Errorf("randomforest: %d estimators", rf.NEstimators)
	}
	n := len(X)
	trees := make([]*DecisionTreeRegressor, rf.NEstimators)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < rf.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				seed := rf.RandomState + int64(i)
				rnd := rand.New(rand.NewSource(seed))
				// index-based sampling, rows are never copied
				idx := make([]int, n)
				for j := range idx {
					if rf.Bootstrap {
						idx[j] = rnd.Intn(n)
					} else {
						idx[j] = j
					}
				}
				tree := NewDecisionTreeRegressor(
					WithMaxDepth(rf.MaxDepth),
					WithMinSamplesSplit(rf.MinSamplesSplit),
					WithMinSamplesLeaf(rf.MinSamplesLeaf),
					WithMaxFeatures(rf.MaxFeatures),
					WithRandomState(rnd.Int63()),
				)
				tree.fitIndices(X, y, idx, p)
				trees[i] = tree
				if rf.OnTreeDone != nil {
					rf.OnTreeDone()
				}
			}
		}()
	}

	var ctxErr error
feed:
	for i := 0; i < rf.NEstimators; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	if ctxErr != nil {
		return ctxErr
	}

	rf.Trees = trees
	rf.NFeatures = p
	return nil
}

// Predict returns the mean tree prediction for each row, parallelized over
// row chunks.
func (rf *RandomForestRegressor) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(rf.Trees) == 0 || len(X) == 0 {
		return out
	}
	workers := rf.workers()
	chunk := (len(X) + workers - 1) / workers
	var wg sync.WaitGroup
	for s := 0; s < len(X); s += chunk {
		e := min(s+chunk, len(X))
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				sum := 0.0
				for _, t := range rf.Trees {
					sum += t.predictOne(X[i])
				}
				out[i] = sum / float64(len(rf.Trees))
			}
		}(s, e)
	}
	wg.Wait()
	return out
}

// FeatureImportances returns the mean decrease in impurity per feature:
// each tree's importances normalized to sum to one, averaged over trees.
func (rf *RandomForestRegressor) FeatureImportances() []float64 {
	out := make([]float64, rf.NFeatures)
	counted := 0
	for _, t := range rf.Trees {
		total := 0.0
		for _, v := range t.Importances {
			total += v
		}
		if total == 0 {
			continue
		}
		for j, v := range t.Importances {
			out[j] += v / total
		}
		counted++
	}
	if counted == 0 {
		return out
	}
	for j := range out {
		out[j] /= float64(counted)
	}
	return out
}

// Stats returns the mean number of leaves and the maximum depth over the
// forest's trees.
func (rf *RandomForestRegressor) Stats() (meanLeaves float64, maxDepth int) {
	if len(rf.Trees) == 0 {
		return 0, 0
	}
	total := 0
	for _, t := range rf.Trees {
		total += t.Leaves()
		maxDepth = max(maxDepth, t.Depth())
	}
	return float64(total) / float64(len(rf.Trees)), maxDepth
}
