package ensemble

import (
	"bytes"
	"math"
	"testing"

	"github.com/approachingml/aamlp/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// blobs returns three well separated clusters on feature 0 plus a noise
// feature.
func blobs() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(30, 2, nil)
	y := mat.NewDense(30, 1, nil)
	for i := 0; i < 30; i++ {
		class := i % 3
		X.Set(i, 0, float64(class*10)+float64(i%5)*0.1)
		X.Set(i, 1, float64((i*7)%11))
		y.Set(i, 0, float64(class))
	}
	return X, y
}

func TestRandomForestClassifier(t *testing.T) {
	X, y := blobs()

	tests := []struct {
		name        string
		opts        []Option
		allFeatures bool
	}{
		{name: "default", opts: []Option{WithNEstimators(15), WithRandomState(1)}},
		{name: "entropy sequential", opts: []Option{WithNEstimators(10), WithCriterion("entropy"), WithNJobs(1), WithRandomState(2)}},
		{name: "no bootstrap", opts: []Option{WithNEstimators(5), WithBootstrap(false), WithMaxFeatures("all")}, allFeatures: true},
		{name: "shallow", opts: []Option{WithNEstimators(10), WithMaxDepth(2), WithMaxFeatures("all"), WithRandomState(3)}, allFeatures: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rf := NewRandomForestClassifier(tt.opts...)
			require.NoError(t, rf.Fit(X, y))

			assert.Equal(t, []float64{0, 1, 2}, rf.Classes())
			assert.GreaterOrEqual(t, rf.Score(X, y), 0.9)

			proba, err := rf.PredictProba(X)
			require.NoError(t, err)
			r, c := proba.Dims()
			assert.Equal(t, 30, r)
			assert.Equal(t, 3, c)
			for i := 0; i < r; i++ {
				assert.InDelta(t, 1.0, floats.Sum(mat.Row(nil, i, proba)), 1e-9)
			}

			imp := rf.GetFeatureImportances()
			assert.InDelta(t, 1.0, floats.Sum(imp), 1e-9)
			if tt.allFeatures {
				assert.Greater(t, imp[0], imp[1])
			}
		})
	}
}

func TestRandomForestClassifierIsReproducible(t *testing.T) {
	X, y := blobs()
	fit := func(jobs int) mat.Matrix {
		rf := NewRandomForestClassifier(WithNEstimators(8), WithRandomState(42), WithNJobs(jobs))
		require.NoError(t, rf.Fit(X, y))
		p, err := rf.PredictProba(X)
		require.NoError(t, err)
		return p
	}
	assert.True(t, mat.Equal(fit(1), fit(4)))
}

func TestRandomForestClassifierErrors(t *testing.T) {
	X, y := blobs()

	_, err := NewRandomForestClassifier().Predict(X)
	assert.Error(t, err)

	assert.Error(t, NewRandomForestClassifier(WithNEstimators(0)).Fit(X, y))
	assert.Error(t, NewRandomForestClassifier(WithMaxFeatures("half")).Fit(X, y))
	assert.Error(t, NewRandomForestClassifier(WithCriterion("mse"), WithNEstimators(2)).Fit(X, y))
	assert.Error(t, NewRandomForestClassifier().Fit(X, mat.NewDense(3, 1, nil)))

	rf := NewRandomForestClassifier(WithNEstimators(2))
	require.NoError(t, rf.Fit(X, y))
	_, err = rf.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

func TestRandomForestParams(t *testing.T) {
	rf := NewRandomForestClassifier()
	params := rf.GetParams()
	assert.Equal(t, 100, params["n_estimators"])
	assert.Equal(t, "gini", params["criterion"])
	assert.Equal(t, "sqrt", params["max_features"])

	require.NoError(t, rf.SetParams(map[string]interface{}{
		"n_estimators": 50,
		"max_depth":    7.0,
		"criterion":    "entropy",
		"bootstrap":    false,
	}))
	assert.Equal(t, 50, rf.nEstimators)
	assert.Equal(t, 7, rf.maxDepth)
	assert.Equal(t, "entropy", rf.criterion)
	assert.False(t, rf.bootstrap)

	assert.Error(t, rf.SetParams(map[string]interface{}{"learning_rate": 0.1}))
	assert.Error(t, rf.SetParams(map[string]interface{}{"criterion": 1}))

	reg := NewRandomForestRegressor()
	assert.Equal(t, "squared_error", reg.GetParams()["criterion"])
	assert.Equal(t, "all", reg.GetParams()["max_features"])
}

func TestRandomForestRegressor(t *testing.T) {
	X := mat.NewDense(40, 2, nil)
	y := mat.NewDense(40, 1, nil)
	for i := 0; i < 40; i++ {
		x := float64(i) / 4
		X.Set(i, 0, x)
		X.Set(i, 1, float64(i%3))
		y.Set(i, 0, math.Sin(x)*5)
	}

	rf := NewRandomForestRegressor(WithNEstimators(20), WithRandomState(7))
	require.NoError(t, rf.Fit(X, y))
	assert.Equal(t, 20, rf.NEstimators())
	assert.Greater(t, rf.Score(X, y), 0.9)

	imp := rf.GetFeatureImportances()
	assert.InDelta(t, 1.0, floats.Sum(imp), 1e-9)
	assert.Greater(t, imp[0], imp[1])

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(rf, &buf))
	loaded := NewRandomForestRegressor()
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))

	want, err := rf.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
	assert.Equal(t, imp, loaded.GetFeatureImportances())
}

func TestRandomForestClassifierGob(t *testing.T) {
	X, y := blobs()
	rf := NewRandomForestClassifier(WithNEstimators(5), WithRandomState(9))
	require.NoError(t, rf.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(rf, &buf))
	loaded := NewRandomForestClassifier()
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))

	assert.True(t, loaded.IsFitted())
	assert.Equal(t, 5, loaded.NEstimators())
	assert.Equal(t, rf.Score(X, y), loaded.Score(X, y))
}
