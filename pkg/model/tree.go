package model

import (
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

// DecisionTreeRegressor is a CART regression tree split on squared error.
type DecisionTreeRegressor struct {
	MaxDepth            int     // 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples required in each leaf
	MaxFeatures         int     // 0 => all features, >0 => features sampled per split
	MinImpurityDecrease float64 // minimal weighted impurity decrease to accept a split
	RandomState         int64

	Root        *TreeNode
	NFeatures   int
	Importances []float64 // total weighted impurity decrease per feature
}

// TreeNode is a node of a fitted tree. Fields are exported for gob.
type TreeNode struct {
	Leaf      bool
	Feature   int
	Threshold float64 // x <= Threshold => Left
	Left      *TreeNode
	Right     *TreeNode
	N         int
	Value     float64 // mean target of the samples reaching the node
}

// Option functional config
type Option func(*DecisionTreeRegressor)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeRegressor) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesLeaf = n }
}
func WithMaxFeatures(k int) Option { return func(t *DecisionTreeRegressor) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeRegressor) { t.MinImpurityDecrease = v }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeRegressor) { t.RandomState = seed }
}

// NewDecisionTreeRegressor returns a fully grown tree by default.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func validateXY(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, errors.New("empty X")
	}
	if len(y) != len(X) {
		return 0, errors.Errorf("X has %d rows but y has %d", len(X), len(y))
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return 0, errors.Errorf("row %d has %d features, want %d", i, len(X[i]), p)
		}
	}
	return p, nil
}

// Fit trains the tree on every row of X.
func (t *DecisionTreeRegressor) Fit(X [][]float64, y []float64) error {
	p, err := validateXY(X, y)
	if err != nil {
		return errors.Wrap(err, "dtree")
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.fitIndices(X, y, idx, p)
	return nil
}

// fitIndices trains on the rows listed in idx, which may repeat rows
// (bootstrap samples). X and y are not copied.
func (t *DecisionTreeRegressor) fitIndices(X [][]float64, y []float64, idx []int, p int) {
	t.NFeatures = p
	t.Importances = make([]float64, p)
	b := &builder{
		t:     t,
		X:     X,
		y:     y,
		rnd:   rand.New(rand.NewSource(t.RandomState)),
		total: float64(len(idx)),
		feats: make([]int, p),
	}
	for j := range b.feats {
		b.feats[j] = j
	}
	t.Root = b.build(idx, 0)
}

// Predict returns the leaf mean for each row.
func (t *DecisionTreeRegressor) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = t.predictOne(x)
	}
	return out
}

func (t *DecisionTreeRegressor) predictOne(x []float64) float64 {
	node := t.Root
	if node == nil {
		return 0
	}
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// Depth returns the depth of the fitted tree (a single leaf has depth 0).
func (t *DecisionTreeRegressor) Depth() int { return depth(t.Root) }

func depth(n *TreeNode) int {
	if n == nil || n.Leaf {
		return 0
	}
	return 1 + max(depth(n.Left), depth(n.Right))
}

// Leaves returns the number of leaves of the fitted tree.
func (t *DecisionTreeRegressor) Leaves() int { return leaves(t.Root) }

func leaves(n *TreeNode) int {
	if n == nil {
		return 0
	}
	if n.Leaf {
		return 1
	}
	return leaves(n.Left) + leaves(n.Right)
}

// ---------------------------
// Builder
// ---------------------------

type builder struct {
	t     *DecisionTreeRegressor
	X     [][]float64
	y     []float64
	rnd   *rand.Rand
	total float64
	feats []int
}

type pair struct {
	v float64
	y float64
	i int
}

type split struct {
	feature   int
	threshold float64
	gain      float64 // decrease of summed squared error
	left      []int
	right     []int
}

func (b *builder) build(idx []int, d int) *TreeNode {
	t := b.t
	n := len(idx)
	sum, sq := 0.0, 0.0
	for _, i := range idx {
		sum += b.y[i]
		sq += b.y[i] * b.y[i]
	}
	node := &TreeNode{Leaf: true, N: n, Value: sum / float64(n)}
	sse := sq - sum*sum/float64(n)

	if n < t.MinSamplesSplit || n < 2*max(t.MinSamplesLeaf, 1) || sse <= 1e-12 {
		return node
	}
	if t.MaxDepth > 0 && d >= t.MaxDepth {
		return node
	}

	feats := b.feats
	if t.MaxFeatures > 0 && t.MaxFeatures < len(feats) {
		// partial Fisher-Yates; b.feats is reused across nodes
		for i := 0; i < t.MaxFeatures; i++ {
			j := i + b.rnd.Intn(len(feats)-i)
			feats[i], feats[j] = feats[j], feats[i]
		}
		feats = feats[:t.MaxFeatures]
	}

	best := split{feature: -1}
	pairs := make([]pair, n)
	for _, f := range feats {
		if s, ok := b.bestSplit(idx, f, pairs); ok && s.gain > best.gain {
			best = s
		}
	}
	if best.feature < 0 {
		return node
	}
	weighted := best.gain / b.total
	if weighted <= t.MinImpurityDecrease {
		return node
	}

	t.Importances[best.feature] += weighted
	node.Leaf = false
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = b.build(best.left, d+1)
	node.Right = b.build(best.right, d+1)
	return node
}

// bestSplit scans the sorted values of feature f and returns the threshold
// with the largest reduction in squared error.
func (b *builder) bestSplit(idx []int, f int, pairs []pair) (split, bool) {
	n := len(idx)
	for k, i := range idx {
		pairs[k] = pair{v: b.X[i][f], y: b.y[i], i: i}
	}
	sort.Slice(pairs, func(a, c int) bool { return pairs[a].v < pairs[c].v })
	if pairs[0].v == pairs[n-1].v {
		return split{}, false
	}

	totalSum, totalSq := 0.0, 0.0
	for _, p := range pairs {
		totalSum += p.y
		totalSq += p.y * p.y
	}
	parent := totalSq - totalSum*totalSum/float64(n)
	minLeaf := max(b.t.MinSamplesLeaf, 1)

	bestGain, bestAt := 0.0, -1
	leftSum, leftSq := 0.0, 0.0
	for s := 1; s < n; s++ {
		leftSum += pairs[s-1].y
		leftSq += pairs[s-1].y * pairs[s-1].y
		if pairs[s].v == pairs[s-1].v || s < minLeaf || n-s < minLeaf {
			continue
		}
		nl, nr := float64(s), float64(n-s)
		rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
		sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
		if gain := parent - sse; gain > bestGain {
			bestGain, bestAt = gain, s
		}
	}
	if bestAt < 0 {
		return split{}, false
	}

	s := split{
		feature:   f,
		threshold: (pairs[bestAt-1].v + pairs[bestAt].v) / 2,
		gain:      bestGain,
		left:      make([]int, bestAt),
		right:     make([]int, n-bestAt),
	}
	for k := range pairs {
		if k < bestAt {
			s.left[k] = pairs[k].i
		} else {
			s.right[k-bestAt] = pairs[k].i
		}
	}
	return s, true
}
