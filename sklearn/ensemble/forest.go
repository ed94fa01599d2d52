// Package ensemble implements bagged decision-tree forests.
//
// Trees are grown concurrently through core/parallel. Each tree sees a
// bootstrap sample and draws a random subset of features at every split,
// so a forest is reproducible for a fixed random_state regardless of the
// number of workers.
package ensemble

import (
	"math"
	"math/rand/v2"

	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/sklearn/tree"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// forestConfig holds hyperparameters shared by the classifier and regressor.
type forestConfig struct {
	nEstimators     int
	maxDepth        int
	criterion       string
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string
	bootstrap       bool
	randomState     uint64
	nJobs           int
}

// Option configures a random forest.
type Option func(*forestConfig)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(c *forestConfig) { c.nEstimators = n }
}

// WithMaxDepth limits every tree's depth. 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(c *forestConfig) { c.maxDepth = depth }
}

// WithCriterion sets the split criterion passed to every tree.
func WithCriterion(criterion string) Option {
	return func(c *forestConfig) { c.criterion = criterion }
}

func WithMinSamplesSplit(n int) Option {
	return func(c *forestConfig) { c.minSamplesSplit = n }
}

func WithMinSamplesLeaf(n int) Option {
	return func(c *forestConfig) { c.minSamplesLeaf = n }
}

// WithMaxFeatures sets the per-split feature budget: "sqrt", "log2" or "all".
func WithMaxFeatures(mode string) Option {
	return func(c *forestConfig) { c.maxFeatures = mode }
}

// WithBootstrap toggles sampling rows with replacement for each tree.
func WithBootstrap(b bool) Option {
	return func(c *forestConfig) { c.bootstrap = b }
}

// WithRandomState seeds bootstrap sampling and feature selection.
func WithRandomState(seed uint64) Option {
	return func(c *forestConfig) { c.randomState = seed }
}

// WithNJobs sets the number of concurrent workers. <= 0 uses every core.
func WithNJobs(n int) Option {
	return func(c *forestConfig) { c.nJobs = n }
}

func defaultConfig(criterion, maxFeatures string) forestConfig {
	return forestConfig{
		nEstimators:     100,
		criterion:       criterion,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     maxFeatures,
		bootstrap:       true,
	}
}

func (c *forestConfig) validate() error {
	if c.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", c.nEstimators)
	}
	switch c.maxFeatures {
	case "sqrt", "log2", "all", "":
	default:
		return errors.NewValidationError("max_features", "must be sqrt, log2 or all", c.maxFeatures)
	}
	return nil
}

// featureBudget resolves maxFeatures for nFeatures columns. 0 means all.
func (c *forestConfig) featureBudget(nFeatures int) int {
	switch c.maxFeatures {
	case "sqrt":
		return max(1, int(math.Sqrt(float64(nFeatures))))
	case "log2":
		return max(1, int(math.Log2(float64(nFeatures))))
	}
	return 0
}

// treeOptions builds the options for tree i grown with seed.
func (c *forestConfig) treeOptions(nFeatures int, seed uint64) []tree.Option {
	opts := []tree.Option{
		tree.WithMaxDepth(c.maxDepth),
		tree.WithMinSamplesSplit(c.minSamplesSplit),
		tree.WithMinSamplesLeaf(c.minSamplesLeaf),
		tree.WithMaxFeatures(c.featureBudget(nFeatures)),
		tree.WithRandomState(seed),
	}
	if c.criterion != "" {
		opts = append(opts, tree.WithCriterion(c.criterion))
	}
	return opts
}

// treeSeeds draws one seed per tree from the forest seed. Seeds are
// drawn up front so results do not depend on scheduling.
func (c *forestConfig) treeSeeds() []uint64 {
	rng := rand.New(rand.NewPCG(c.randomState, c.randomState))
	seeds := make([]uint64, c.nEstimators)
	for i := range seeds {
		seeds[i] = rng.Uint64()
	}
	return seeds
}

// sample returns the training rows for one tree.
func (c *forestConfig) sample(X *mat.Dense, y []float64, seed uint64) (*mat.Dense, *mat.Dense) {
	n, p := X.Dims()
	if !c.bootstrap {
		return X, mat.NewDense(n, 1, y)
	}
	rng := rand.New(rand.NewPCG(seed, ^seed))
	Xb := mat.NewDense(n, p, nil)
	yb := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		j := rng.IntN(n)
		Xb.SetRow(i, X.RawRowView(j))
		yb.Set(i, 0, y[j])
	}
	return Xb, yb
}

func (c *forestConfig) params() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      c.nEstimators,
		"max_depth":         c.maxDepth,
		"criterion":         c.criterion,
		"min_samples_split": c.minSamplesSplit,
		"min_samples_leaf":  c.minSamplesLeaf,
		"max_features":      c.maxFeatures,
		"bootstrap":         c.bootstrap,
		"random_state":      c.randomState,
		"n_jobs":            c.nJobs,
	}
}

func (c *forestConfig) setParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "criterion", "max_features":
			s, err := model.StringParam(key, value)
			if err != nil {
				return err
			}
			if key == "criterion" {
				c.criterion = s
			} else {
				c.maxFeatures = s
			}
		case "bootstrap":
			b, err := model.BoolParam(key, value)
			if err != nil {
				return err
			}
			c.bootstrap = b
		case "max_depth":
			if value == nil {
				c.maxDepth = 0
				continue
			}
			n, err := model.IntParam(key, value)
			if err != nil {
				return err
			}
			c.maxDepth = n
		case "n_estimators", "min_samples_split", "min_samples_leaf", "random_state", "n_jobs":
			n, err := model.IntParam(key, value)
			if err != nil {
				return err
			}
			switch key {
			case "n_estimators":
				c.nEstimators = n
			case "min_samples_split":
				c.minSamplesSplit = n
			case "min_samples_leaf":
				c.minSamplesLeaf = n
			case "random_state":
				c.randomState = uint64(n)
			case "n_jobs":
				c.nJobs = n
			}
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return nil
}

// configSnapshot mirrors forestConfig with exported fields for gob.
type configSnapshot struct {
	NEstimators     int
	MaxDepth        int
	Criterion       string
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string
	Bootstrap       bool
	RandomState     uint64
	NJobs           int
}

func (c *forestConfig) snapshot() configSnapshot {
	return configSnapshot{
		NEstimators:     c.nEstimators,
		MaxDepth:        c.maxDepth,
		Criterion:       c.criterion,
		MinSamplesSplit: c.minSamplesSplit,
		MinSamplesLeaf:  c.minSamplesLeaf,
		MaxFeatures:     c.maxFeatures,
		Bootstrap:       c.bootstrap,
		RandomState:     c.randomState,
		NJobs:           c.nJobs,
	}
}

func (s configSnapshot) restore() forestConfig {
	return forestConfig{
		nEstimators:     s.NEstimators,
		maxDepth:        s.MaxDepth,
		criterion:       s.Criterion,
		minSamplesSplit: s.MinSamplesSplit,
		minSamplesLeaf:  s.MinSamplesLeaf,
		maxFeatures:     s.MaxFeatures,
		bootstrap:       s.Bootstrap,
		randomState:     s.RandomState,
		nJobs:           s.NJobs,
	}
}

// checkXY validates training data and returns a dense copy of X and the
// targets from the first column of y.
func checkXY(op string, X, y mat.Matrix) (*mat.Dense, []float64, error) {
	if X == nil || y == nil {
		return nil, nil, errors.NewValueError(op, "X and y must not be nil")
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ry, _ := y.Dims(); ry != r {
		return nil, nil, errors.NewDimensionError(op, r, ry, 0)
	}
	return mat.DenseCopyOf(X), mat.Col(nil, 0, y), nil
}

// meanImportances averages per-tree importances and renormalizes to 1.
func meanImportances(perTree [][]float64, nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	for _, imp := range perTree {
		floats.Add(out, imp)
	}
	if total := floats.Sum(out); total > 0 {
		floats.Scale(1/total, out)
	}
	return out
}

// toVec returns the first column of m as a vector.
func toVec(m mat.Matrix) *mat.VecDense {
	r, _ := m.Dims()
	return mat.NewVecDense(r, mat.Col(nil, 0, m))
}
