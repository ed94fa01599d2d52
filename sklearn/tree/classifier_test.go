package tree

import (
	"testing"

	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// wineQuality returns 30 wines: alcohol decides the quality grade (5, 6
// or 7, ten each) and sulphates carries no signal, every sulphate level
// occurring once per grade.
func wineQuality() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(30, 2, nil)
	y := mat.NewDense(30, 1, nil)
	for i := 0; i < 30; i++ {
		X.Set(i, 0, 9+0.1*float64(i))
		X.Set(i, 1, float64((i*7)%10)/10)
		y.Set(i, 0, float64(5+i/10))
	}
	return X, y
}

func TestClassifierDepthCurve(t *testing.T) {
	X, y := wineQuality()
	Xtest := mat.NewDense(3, 2, []float64{
		9.45, 0.3,
		10.55, 0.3,
		11.8, 0.3,
	})
	ytest := mat.NewDense(3, 1, []float64{5, 6, 7})

	tests := []struct {
		maxDepth  int
		wantDepth int
		wantTrain float64
		wantTest  float64
	}{
		// one split isolates a single grade; the tie in the other leaf goes to 6
		{maxDepth: 1, wantDepth: 1, wantTrain: 2.0 / 3, wantTest: 2.0 / 3},
		{maxDepth: 2, wantDepth: 2, wantTrain: 1, wantTest: 1},
		{maxDepth: 7, wantDepth: 2, wantTrain: 1, wantTest: 1},
		{maxDepth: 0, wantDepth: 2, wantTrain: 1, wantTest: 1},
	}
	for _, tt := range tests {
		for _, criterion := range []string{"gini", "entropy"} {
			clf := NewDecisionTreeClassifier(WithCriterion(criterion), WithMaxDepth(tt.maxDepth))
			require.NoError(t, clf.Fit(X, y), "%s depth %d", criterion, tt.maxDepth)

			assert.Equal(t, tt.wantDepth, clf.GetDepth(), "%s depth %d", criterion, tt.maxDepth)
			assert.InDelta(t, tt.wantTrain, clf.Score(X, y), 1e-12, "%s depth %d", criterion, tt.maxDepth)
			assert.InDelta(t, tt.wantTest, clf.Score(Xtest, ytest), 1e-12, "%s depth %d", criterion, tt.maxDepth)
		}
	}
}

func TestClassifierPredictProba(t *testing.T) {
	X, y := wineQuality()
	clf := NewDecisionTreeClassifier(WithMaxDepth(1))
	require.NoError(t, clf.Fit(X, y))

	assert.Equal(t, []float64{5, 6, 7}, clf.Classes())
	assert.Equal(t, 2, clf.GetNLeaves())

	proba, err := clf.PredictProba(mat.NewDense(2, 2, []float64{9.2, 0.5, 11.8, 0.5}))
	require.NoError(t, err)
	r, c := proba.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, []float64{1, 0, 0}, mat.Row(nil, 0, proba))
	assert.Equal(t, []float64{0, 0.5, 0.5}, mat.Row(nil, 1, proba))

	pred, err := clf.Predict(mat.NewDense(1, 2, []float64{11.8, 0.5}))
	require.NoError(t, err)
	assert.Equal(t, 6.0, pred.At(0, 0))
}

func TestClassifierFeatureImportances(t *testing.T) {
	X, y := wineQuality()
	for _, criterion := range []string{"gini", "entropy", "log_loss"} {
		clf := NewDecisionTreeClassifier(WithCriterion(criterion))
		require.NoError(t, clf.Fit(X, y), criterion)
		imp := clf.GetFeatureImportances()
		require.Len(t, imp, 2)
		assert.InDelta(t, 1.0, imp[0], 1e-12, criterion)
		assert.InDelta(t, 0.0, imp[1], 1e-12, criterion)
		assert.Equal(t, 3, clf.GetNLeaves(), criterion)
	}
}

func TestClassifierMinSamplesLeaf(t *testing.T) {
	X, y := wineQuality()
	clf := NewDecisionTreeClassifier(WithMinSamplesLeaf(11))
	require.NoError(t, clf.Fit(X, y))

	// no child of a 30-sample root can be split again with 11 per leaf
	assert.Equal(t, 1, clf.GetDepth())
	for _, n := range clf.nodes {
		if n.IsLeaf() {
			assert.GreaterOrEqual(t, n.NSamples, 11)
		}
	}
	assert.Less(t, clf.Score(X, y), 1.0)

	stump := NewDecisionTreeClassifier(WithMinSamplesSplit(31))
	require.NoError(t, stump.Fit(X, y))
	assert.Equal(t, 0, stump.GetDepth())
	assert.Equal(t, 1, stump.GetNLeaves())
}

func TestClassifierParams(t *testing.T) {
	clf := NewDecisionTreeClassifier()
	params := clf.GetParams()
	assert.Equal(t, "gini", params["criterion"])
	assert.Equal(t, 0, params["max_depth"])
	assert.Equal(t, 2, params["min_samples_split"])
	assert.Equal(t, 1, params["min_samples_leaf"])

	require.NoError(t, clf.SetParams(map[string]interface{}{
		"criterion": "entropy",
		"max_depth": 3,
	}))
	assert.Equal(t, "entropy", clf.GetParams()["criterion"])
	assert.Equal(t, 3, clf.GetParams()["max_depth"])
	assert.Error(t, clf.SetParams(map[string]interface{}{"criterion": 1}))
}

func TestClassifierErrors(t *testing.T) {
	X, y := wineQuality()

	tests := []struct {
		name string
		clf  *DecisionTreeClassifier
		X, y mat.Matrix
	}{
		{name: "regression criterion", clf: NewDecisionTreeClassifier(WithCriterion("squared_error")), X: X, y: y},
		{name: "min_samples_split below two", clf: NewDecisionTreeClassifier(WithMinSamplesSplit(1)), X: X, y: y},
		{name: "nil target", clf: NewDecisionTreeClassifier(), X: X, y: nil},
		{name: "row mismatch", clf: NewDecisionTreeClassifier(), X: X, y: mat.NewDense(3, 1, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.clf.Fit(tt.X, tt.y))
			assert.False(t, tt.clf.IsFitted())
		})
	}

	unfitted := NewDecisionTreeClassifier()
	_, err := unfitted.Predict(X)
	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))
	_, err = unfitted.PredictProba(X)
	assert.Error(t, err)
	assert.Equal(t, 0.0, unfitted.Score(X, y))

	fitted := NewDecisionTreeClassifier(WithMaxDepth(2))
	require.NoError(t, fitted.Fit(X, y))
	_, err = fitted.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
	_, err = fitted.PredictProba(nil)
	assert.Error(t, err)
}
