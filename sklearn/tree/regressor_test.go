package tree

import (
	"bytes"
	"testing"

	"github.com/approachingml/aamlp/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func stepData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(10, 1, nil)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		if i >= 5 {
			y.Set(i, 0, 10)
		}
	}
	return X, y
}

func TestDecisionTreeRegressor(t *testing.T) {
	X, y := stepData()

	tests := []struct {
		name      string
		opts      []Option
		wantDepth int
		wantErr   bool
	}{
		{name: "default", wantDepth: 1},
		{name: "mse alias", opts: []Option{WithCriterion("mse")}, wantDepth: 1},
		{name: "stump", opts: []Option{WithMaxDepth(1)}, wantDepth: 1},
		{name: "classification criterion", opts: []Option{WithCriterion("gini")}, wantErr: true},
		{name: "bad min_samples_leaf", opts: []Option{WithMinSamplesLeaf(0)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewDecisionTreeRegressor(tt.opts...)
			err := reg.Fit(X, y)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDepth, reg.GetDepth())
			assert.Equal(t, 2, reg.GetNLeaves())

			pred, err := reg.Predict(mat.NewDense(2, 1, []float64{1.5, 7.2}))
			require.NoError(t, err)
			assert.InDelta(t, 0.0, pred.At(0, 0), 1e-12)
			assert.InDelta(t, 10.0, pred.At(1, 0), 1e-12)
			assert.InDelta(t, 1.0, reg.Score(X, y), 1e-12)
			assert.Equal(t, []float64{1}, reg.GetFeatureImportances())
		})
	}
}

func TestDecisionTreeRegressorLeafMean(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{1, 3, 10, 14})

	reg := NewDecisionTreeRegressor(WithMaxDepth(1))
	require.NoError(t, reg.Fit(X, y))

	pred, err := reg.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2, 12, 12}, mat.Col(nil, 0, pred))

	_, err = NewDecisionTreeRegressor().Predict(X)
	assert.Error(t, err)
	_, err = reg.Predict(mat.NewDense(1, 2, nil))
	assert.Error(t, err)
}

func TestTreeGobRoundTrip(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0, 1,
		1, 0,
		1, 1,
		5, 5,
		6, 5,
		5, 6,
	})
	y := mat.NewDense(6, 1, []float64{3, 3, 3, 7, 7, 7})

	clf := NewDecisionTreeClassifier(WithCriterion("entropy"), WithMaxDepth(3))
	require.NoError(t, clf.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(clf, &buf))
	loaded := NewDecisionTreeClassifier()
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))

	assert.True(t, loaded.IsFitted())
	assert.Equal(t, []float64{3, 7}, loaded.Classes())
	assert.Equal(t, "entropy", loaded.GetParams()["criterion"])
	want, err := clf.PredictProba(X)
	require.NoError(t, err)
	got, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))

	reg := NewDecisionTreeRegressor()
	require.NoError(t, reg.Fit(X, y))
	buf.Reset()
	require.NoError(t, model.SaveModelToWriter(reg, &buf))
	loadedReg := NewDecisionTreeRegressor()
	require.NoError(t, model.LoadModelFromReader(loadedReg, &buf))
	assert.InDelta(t, reg.Score(X, y), loadedReg.Score(X, y), 1e-12)
}

func TestMaxFeaturesIsDeterministic(t *testing.T) {
	X := mat.NewDense(12, 3, nil)
	y := mat.NewDense(12, 1, nil)
	for i := 0; i < 12; i++ {
		X.Set(i, 0, float64(i%3))
		X.Set(i, 1, float64(i))
		X.Set(i, 2, float64((i*7)%5))
		y.Set(i, 0, float64(i%2))
	}

	fit := func(seed uint64) mat.Matrix {
		clf := NewDecisionTreeClassifier(WithMaxFeatures(1), WithRandomState(seed))
		require.NoError(t, clf.Fit(X, y))
		p, err := clf.PredictProba(X)
		require.NoError(t, err)
		return p
	}
	assert.True(t, mat.Equal(fit(42), fit(42)))
}

func TestSetParamsRejectsUnknown(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	assert.Error(t, dt.SetParams(map[string]interface{}{"n_estimators": 10}))
	assert.Error(t, dt.SetParams(map[string]interface{}{"max_depth": 2.5}))
	require.NoError(t, dt.SetParams(map[string]interface{}{"max_depth": nil, "random_state": 3}))
	assert.Equal(t, 0, dt.maxDepth)
	assert.Equal(t, uint64(3), dt.randomState)

	require.NoError(t, dt.SetParams(map[string]interface{}{"min_samples_leaf": 4.0}))
	assert.Equal(t, 4, dt.minSamplesLeaf)
}
