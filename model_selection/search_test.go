package model_selection

import (
	"math"
	"testing"

	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// thresholdClassifier predicts 1 when the first feature exceeds threshold.
type thresholdClassifier struct {
	threshold float64
	fitted    bool
}

func (c *thresholdClassifier) Fit(X, y mat.Matrix) error {
	c.fitted = true
	return nil
}

func (c *thresholdClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !c.fitted {
		return nil, errors.NewNotFittedError("thresholdClassifier", "Predict")
	}
	n, _ := X.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if X.At(i, 0) > c.threshold {
			out.Set(i, 0, 1)
		}
	}
	return out, nil
}

func thresholdFactory(params map[string]interface{}) (model.Estimator, error) {
	c := &thresholdClassifier{}
	if v, ok := params["threshold"]; ok {
		th, ok := v.(float64)
		if !ok {
			return nil, errors.NewValidationError("threshold", "must be float64", v)
		}
		c.threshold = th
	}
	return c, nil
}

func thresholdData(n int) (*mat.Dense, *mat.VecDense) {
	X := rangeMatrix(n)
	y := mat.NewVecDense(n, nil)
	for i := n / 2; i < n; i++ {
		y.SetVec(i, 1)
	}
	return X, y
}

func TestCrossValScore(t *testing.T) {
	X, y := thresholdData(20)
	scorer, err := GetScorer("accuracy")
	require.NoError(t, err)

	scores, err := CrossValScore(thresholdFactory, map[string]interface{}{"threshold": 9.5}, X, y,
		NewStratifiedKFold(5, true, 3), scorer, 0)
	require.NoError(t, err)
	require.Len(t, scores, 5)
	for _, s := range scores {
		assert.Equal(t, 1.0, s)
	}

	_, err = CrossValScore(thresholdFactory, map[string]interface{}{"threshold": "high"}, X, y,
		NewKFold(5, false, 0), scorer, 1)
	assert.Error(t, err)
}

func TestGetScorer(t *testing.T) {
	_, err := GetScorer("no_such_metric")
	assert.Error(t, err)
	assert.Contains(t, ScorerNames(), "roc_auc")
	assert.Contains(t, ScorerNames(), "neg_mse")
}

func TestGridSearchCV(t *testing.T) {
	X, y := thresholdData(30)
	grid := ParamGrid{"threshold": {2.0, 14.5, 25.0}}

	gs := NewGridSearchCV(thresholdFactory, grid, NewStratifiedKFold(3, true, 1), "accuracy")
	require.NoError(t, gs.Fit(X, y))

	require.Len(t, gs.Results, 3)
	assert.Equal(t, 14.5, gs.BestParams["threshold"])
	assert.Equal(t, 1.0, gs.BestScore)
	assert.Equal(t, 1, gs.Results[1].Rank)
	require.NotNil(t, gs.BestEstimator)

	pred, err := gs.Predict(mat.NewDense(2, 1, []float64{3, 20}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.At(0, 0))
	assert.Equal(t, 1.0, pred.At(1, 0))
}

func TestRandomizedSearchCV(t *testing.T) {
	X, y := thresholdData(30)
	dists := ParamGrid{"threshold": {0.0, 5.0, 10.0, 14.5, 20.0, 25.0}}

	rs := NewRandomizedSearchCV(thresholdFactory, dists, 3, NewKFold(3, true, 2), "accuracy", 11)
	require.NoError(t, rs.Fit(X, y))
	require.Len(t, rs.Results, 3)

	seen := make(map[float64]bool)
	for _, r := range rs.Results {
		th := r.Params["threshold"].(float64)
		assert.False(t, seen[th], "configuration %v sampled twice", th)
		seen[th] = true
	}

	rsAll := NewRandomizedSearchCV(thresholdFactory, dists, 50, NewKFold(3, true, 2), "accuracy", 11)
	require.NoError(t, rsAll.Fit(X, y))
	assert.Len(t, rsAll.Results, 6)
	assert.Equal(t, 14.5, rsAll.BestParams["threshold"])
}

func TestSearchValidation(t *testing.T) {
	X, y := thresholdData(10)

	err := NewGridSearchCV(thresholdFactory, ParamGrid{}, nil, "").Fit(X, y)
	assert.Error(t, err)

	err = NewRandomizedSearchCV(thresholdFactory, ParamGrid{"threshold": {1.0}}, 0, nil, "", 0).Fit(X, y)
	assert.Error(t, err)

	err = NewGridSearchCV(thresholdFactory, ParamGrid{"threshold": {1.0}}, nil, "bogus").Fit(X, y)
	assert.Error(t, err)
}

// hugeGrid has 2 × 10000^5 combinations, more than an int can count.
func hugeGrid() ParamGrid {
	grid := ParamGrid{"threshold": {10.0, 14.5}}
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		values := make([]interface{}, 10000)
		for i := range values {
			values[i] = i
		}
		grid[name] = values
	}
	return grid
}

func TestGridSearchRejectsOversizedGrid(t *testing.T) {
	X, y := thresholdData(30)
	grid := hugeGrid()
	assert.Equal(t, math.MaxInt, grid.size())

	gs := NewGridSearchCV(thresholdFactory, grid, NewKFold(3, true, 2), "accuracy")
	var err error
	assert.NotPanics(t, func() { err = gs.Fit(X, y) })
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "param_grid", ve.ParamName)
	assert.Empty(t, gs.Results)

	// enumerable size but still above the bound
	wide := ParamGrid{"a": make([]interface{}, 5000), "b": make([]interface{}, 5000)}
	err = NewGridSearchCV(thresholdFactory, wide, nil, "accuracy").Fit(X, y)
	require.True(t, errors.As(err, &ve))

	// sampling from the same grid stays possible
	rs := NewRandomizedSearchCV(thresholdFactory, grid, 4, NewKFold(3, true, 2), "accuracy", 5)
	require.NoError(t, rs.Fit(X, y))
	assert.Len(t, rs.Results, 4)
}

func TestParamGridCombination(t *testing.T) {
	grid := ParamGrid{
		"criterion":    {"gini", "entropy"},
		"max_depth":    {1, 3, 5},
		"n_estimators": {100},
	}
	assert.Equal(t, 6, grid.size())

	keys := []string{"criterion", "max_depth", "n_estimators"}
	seen := make(map[string]bool)
	for i := 0; i < grid.size(); i++ {
		p := grid.combination(keys, i)
		seen[p["criterion"].(string)+":"+string(rune('0'+p["max_depth"].(int)))] = true
	}
	assert.Len(t, seen, 6)
}
