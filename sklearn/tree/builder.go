// Package tree implements CART decision trees for classification and
// regression with scikit-learn compatible hyperparameters.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Node is one node of a fitted tree. Leaves have Left == Right == -1.
// Value holds class probabilities for classifiers and the mean target for
// regressors.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     []float64
	NSamples  int
	Impurity  float64
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return n.Left < 0 }

// treeConfig holds the hyperparameters shared by both tree types.
type treeConfig struct {
	criterion       string
	maxDepth        int // <= 0 means unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // <= 0 means all features
	randomState     uint64
}

func defaultConfig(criterion string) treeConfig {
	return treeConfig{
		criterion:       criterion,
		maxDepth:        0,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
}

// Option configures a decision tree.
type Option func(*treeConfig)

// WithCriterion sets the impurity measure: "gini" or "entropy" for
// classifiers, "squared_error" for regressors.
func WithCriterion(criterion string) Option {
	return func(c *treeConfig) { c.criterion = criterion }
}

// WithMaxDepth limits the depth of the tree. 0 grows until leaves are pure.
func WithMaxDepth(depth int) Option {
	return func(c *treeConfig) { c.maxDepth = depth }
}

// WithMinSamplesSplit sets the minimum number of samples needed to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(c *treeConfig) { c.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(c *treeConfig) { c.minSamplesLeaf = n }
}

// WithMaxFeatures sets how many features are drawn at random for each split.
func WithMaxFeatures(n int) Option {
	return func(c *treeConfig) { c.maxFeatures = n }
}

// WithRandomState seeds the feature sampling.
func WithRandomState(seed uint64) Option {
	return func(c *treeConfig) { c.randomState = seed }
}

// builder grows a tree depth-first. For classification y holds class
// indices and nClasses > 0; for regression nClasses is 0.
type builder struct {
	cfg      treeConfig
	X        *mat.Dense
	y        []float64
	nClasses int
	rng      *rand.Rand

	nodes       []Node
	importances []float64
	depth       int
}

func newBuilder(cfg treeConfig, X *mat.Dense, y []float64, nClasses int) *builder {
	_, c := X.Dims()
	return &builder{
		cfg:         cfg,
		X:           X,
		y:           y,
		nClasses:    nClasses,
		rng:         rand.New(rand.NewPCG(cfg.randomState, cfg.randomState^0x9e3779b97f4a7c15)),
		importances: make([]float64, c),
	}
}

// stats summarizes the targets of a set of samples.
type stats struct {
	n      float64
	counts []float64 // classification
	sum    float64   // regression
	sumSq  float64
}

func (b *builder) newStats() stats {
	if b.nClasses > 0 {
		return stats{counts: make([]float64, b.nClasses)}
	}
	return stats{}
}

func (b *builder) add(s *stats, i int, sign float64) {
	s.n += sign
	if b.nClasses > 0 {
		s.counts[int(b.y[i])] += sign
		return
	}
	s.sum += sign * b.y[i]
	s.sumSq += sign * b.y[i] * b.y[i]
}

func (b *builder) impurity(s *stats) float64 {
	if s.n <= 0 {
		return 0
	}
	if b.nClasses == 0 {
		mean := s.sum / s.n
		return math.Max(s.sumSq/s.n-mean*mean, 0)
	}
	var imp float64
	switch b.cfg.criterion {
	case "entropy", "log_loss":
		for _, c := range s.counts {
			if c > 0 {
				p := c / s.n
				imp -= p * math.Log2(p)
			}
		}
	default:
		imp = 1
		for _, c := range s.counts {
			p := c / s.n
			imp -= p * p
		}
	}
	return imp
}

func (b *builder) leafValue(s *stats) []float64 {
	if b.nClasses == 0 {
		return []float64{s.sum / s.n}
	}
	v := make([]float64, b.nClasses)
	for k, c := range s.counts {
		v[k] = c / s.n
	}
	return v
}

type split struct {
	feature   int
	threshold float64
	pos       int // samples[:pos] go left after sorting by feature
	childImp  float64
	leftImp   float64
	rightImp  float64
}

// build grows the subtree for samples and returns its node index.
func (b *builder) build(samples []int, depth int) int {
	s := b.newStats()
	for _, i := range samples {
		b.add(&s, i, 1)
	}
	imp := b.impurity(&s)
	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Feature:  -1,
		Left:     -1,
		Right:    -1,
		Value:    b.leafValue(&s),
		NSamples: len(samples),
		Impurity: imp,
	})
	b.depth = max(b.depth, depth)

	n := len(samples)
	if (b.cfg.maxDepth > 0 && depth >= b.cfg.maxDepth) ||
		n < b.cfg.minSamplesSplit || n < 2*b.cfg.minSamplesLeaf || imp <= 1e-12 {
		return idx
	}

	best, ok := b.bestSplit(samples, &s)
	if !ok {
		return idx
	}

	sort.SliceStable(samples, func(a, c int) bool {
		return b.X.At(samples[a], best.feature) < b.X.At(samples[c], best.feature)
	})
	left := append([]int(nil), samples[:best.pos]...)
	right := append([]int(nil), samples[best.pos:]...)

	b.importances[best.feature] += float64(n)*imp - float64(len(left))*best.leftImp - float64(len(right))*best.rightImp

	b.nodes[idx].Feature = best.feature
	b.nodes[idx].Threshold = best.threshold
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	return idx
}

// bestSplit scans features in random order (fixed order when every
// feature is considered) and returns the split with the lowest weighted
// child impurity. At least maxFeatures non-constant features are tried;
// sampling continues past that while no valid split has been found.
func (b *builder) bestSplit(samples []int, parent *stats) (split, bool) {
	_, nFeatures := b.X.Dims()
	features := make([]int, nFeatures)
	for j := range features {
		features[j] = j
	}
	limit := nFeatures
	if b.cfg.maxFeatures > 0 && b.cfg.maxFeatures < nFeatures {
		limit = b.cfg.maxFeatures
		b.rng.Shuffle(nFeatures, func(i, j int) { features[i], features[j] = features[j], features[i] })
	}

	var best split
	found := false
	tried := 0
	order := make([]int, len(samples))
	for _, f := range features {
		if tried >= limit && found {
			break
		}
		copy(order, samples)
		sort.SliceStable(order, func(a, c int) bool {
			return b.X.At(order[a], f) < b.X.At(order[c], f)
		})
		if b.X.At(order[0], f) == b.X.At(order[len(order)-1], f) {
			continue // constant feature
		}
		tried++

		left := b.newStats()
		right := b.newStats()
		right.n = parent.n
		right.sum, right.sumSq = parent.sum, parent.sumSq
		if parent.counts != nil {
			copy(right.counts, parent.counts)
		}

		n := len(order)
		for pos := 1; pos < n; pos++ {
			b.add(&left, order[pos-1], 1)
			b.add(&right, order[pos-1], -1)
			lo, hi := b.X.At(order[pos-1], f), b.X.At(order[pos], f)
			if lo == hi || pos < b.cfg.minSamplesLeaf || n-pos < b.cfg.minSamplesLeaf {
				continue
			}
			li, ri := b.impurity(&left), b.impurity(&right)
			child := (left.n*li + right.n*ri) / parent.n
			if !found || child < best.childImp-1e-12 {
				threshold := lo + (hi-lo)/2
				if threshold == hi {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, pos: pos, childImp: child, leftImp: li, rightImp: ri}
				found = true
			}
		}
	}
	return best, found
}

// normalizedImportances scales accumulated impurity decreases to sum to 1.
func normalizedImportances(raw []float64) []float64 {
	out := make([]float64, len(raw))
	var total float64
	for _, v := range raw {
		total += v
	}
	if total <= 0 {
		return out
	}
	for i, v := range raw {
		out[i] = v / total
	}
	return out
}

// apply returns the leaf reached by row i of X.
func apply(nodes []Node, X mat.Matrix, i int) *Node {
	n := &nodes[0]
	for !n.IsLeaf() {
		if X.At(i, n.Feature) <= n.Threshold {
			n = &nodes[n.Left]
		} else {
			n = &nodes[n.Right]
		}
	}
	return n
}

func countLeaves(nodes []Node) int {
	leaves := 0
	for i := range nodes {
		if nodes[i].IsLeaf() {
			leaves++
		}
	}
	return leaves
}
