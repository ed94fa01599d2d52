package tree

import (
	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func (c *treeConfig) params() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         c.criterion,
		"max_depth":         c.maxDepth,
		"min_samples_split": c.minSamplesSplit,
		"min_samples_leaf":  c.minSamplesLeaf,
		"max_features":      c.maxFeatures,
		"random_state":      c.randomState,
	}
}

func (c *treeConfig) setParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "criterion":
			s, err := model.StringParam(key, value)
			if err != nil {
				return err
			}
			c.criterion = s
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
		case "min_samples_split":
			n, err := model.IntParam(key, value)
			if err != nil {
				return err
			}
			c.minSamplesSplit = n
		case "min_samples_leaf":
			n, err := model.IntParam(key, value)
			if err != nil {
				return err
			}
			c.minSamplesLeaf = n
		case "max_features":
			n, err := model.IntParam(key, value)
			if err != nil {
				return err
			}
			c.maxFeatures = n
		case "random_state":
			n, err := model.IntParam(key, value)
			if err != nil {
				return err
			}
			c.randomState = uint64(n)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return nil
}

// configSnapshot mirrors treeConfig with exported fields for gob.
type configSnapshot struct {
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	RandomState     uint64
}

func (c *treeConfig) snapshot() configSnapshot {
	return configSnapshot{
		Criterion:       c.criterion,
		MaxDepth:        c.maxDepth,
		MinSamplesSplit: c.minSamplesSplit,
		MinSamplesLeaf:  c.minSamplesLeaf,
		MaxFeatures:     c.maxFeatures,
		RandomState:     c.randomState,
	}
}

func (s configSnapshot) restore() treeConfig {
	return treeConfig{
		criterion:       s.Criterion,
		maxDepth:        s.MaxDepth,
		minSamplesSplit: s.MinSamplesSplit,
		minSamplesLeaf:  s.MinSamplesLeaf,
		maxFeatures:     s.MaxFeatures,
		randomState:     s.RandomState,
	}
}

// checkXY validates training input and returns X as a dense matrix and
// the first column of y.
func checkXY(op string, X, y mat.Matrix) (*mat.Dense, []float64, error) {
	if X == nil || y == nil {
		return nil, nil, errors.NewValueError(op, "X and y must not be nil")
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	ry, _ := y.Dims()
	if ry != r {
		return nil, nil, errors.NewDimensionError(op, r, ry, 0)
	}
	labels := make([]float64, r)
	for i := range labels {
		labels[i] = y.At(i, 0)
	}
	return mat.DenseCopyOf(X), labels, nil
}

func allSamples(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}

func accuracy(pred, y mat.Matrix) float64 {
	r, _ := pred.Dims()
	if ry, _ := y.Dims(); ry != r || r == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < r; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(r)
}
