package feature_selection

import (
	"math"
	"testing"

	"github.com/approachingml/aamlp/sklearn/ensemble"
	"github.com/approachingml/aamlp/sklearn/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// housing builds a small frame with a column and its square root, the
// classic highly correlated pair.
func housing() (*mat.Dense, []string) {
	X := mat.NewDense(8, 3, nil)
	for i := 0; i < 8; i++ {
		inc := float64(i + 1)
		X.Set(i, 0, inc)
		X.Set(i, 1, math.Sqrt(inc))
		X.Set(i, 2, float64((i*5)%3))
	}
	return X, []string{"MedInc", "MedInc_Sqrt", "Rooms"}
}

func TestCorrelationMatrix(t *testing.T) {
	X, _ := housing()
	corr, err := CorrelationMatrix(X)
	require.NoError(t, err)
	assert.Equal(t, 3, corr.SymmetricDim())
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 1.0, corr.At(i, i), 1e-12)
	}
	assert.Greater(t, corr.At(0, 1), 0.97)

	_, err = CorrelationMatrix(mat.NewDense(1, 2, nil))
	assert.Error(t, err)
	_, err = CorrelationMatrix(nil)
	assert.Error(t, err)
}

func TestHighCorrelationPairs(t *testing.T) {
	X, names := housing()

	tests := []struct {
		name      string
		names     []string
		threshold float64
		want      []string
		wantErr   bool
	}{
		{name: "strong pair", names: names, threshold: 0.95, want: []string{"MedInc", "MedInc_Sqrt"}},
		{name: "fallback names", names: nil, threshold: 0.95, want: []string{"x0", "x1"}},
		{name: "nothing above one", names: names, threshold: 1, want: nil},
		{name: "bad threshold", names: names, threshold: 1.5, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs, err := HighCorrelationPairs(X, tt.names, tt.threshold)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, pairs)
				return
			}
			require.Len(t, pairs, 1)
			assert.Equal(t, tt.want, []string{pairs[0].A, pairs[0].B})
			assert.Contains(t, pairs[0].String(), "~")
		})
	}

	keep, err := DropCorrelated(X, 0.95)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, keep)
}

func TestVarianceThreshold(t *testing.T) {
	X := mat.NewDense(4, 3, []float64{
		0, 1, 5,
		0, 2, 5,
		0, 3, 5,
		0, 4, 6,
	})
	vt := NewVarianceThreshold(0)
	out, err := vt.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, true}, vt.GetSupport())
	_, c := out.Dims()
	assert.Equal(t, 2, c)
	assert.InDelta(t, 1.25, vt.Variances[1], 1e-12)

	vt = NewVarianceThreshold(0.5)
	require.NoError(t, vt.Fit(X))
	assert.Equal(t, []int{1}, vt.SelectedIndices())
	assert.Equal(t, []string{"b"}, vt.SelectedNames([]string{"a", "b", "c"}))

	assert.Error(t, NewVarianceThreshold(10).Fit(X))
	_, err = NewVarianceThreshold(0).Transform(X)
	assert.Error(t, err)
}

func TestSelectFromModel(t *testing.T) {
	// target depends only on column 1
	X := mat.NewDense(20, 3, nil)
	y := mat.NewDense(20, 1, nil)
	for i := 0; i < 20; i++ {
		X.Set(i, 0, float64((i*7)%4))
		X.Set(i, 1, float64(i))
		X.Set(i, 2, float64((i*3)%5))
		y.Set(i, 0, float64(i*i))
	}

	tests := []struct {
		name string
		est  ImportanceEstimator
	}{
		{name: "tree", est: tree.NewDecisionTreeRegressor()},
		{name: "forest", est: ensemble.NewRandomForestRegressor(ensemble.WithNEstimators(10), ensemble.WithRandomState(1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sfm := NewSelectFromModel(tt.est)
			out, err := sfm.FitTransform(X, y)
			require.NoError(t, err)

			assert.True(t, sfm.GetSupport()[1])
			assert.InDelta(t, 1.0/3, sfm.ThresholdUsed, 1e-9)
			r, c := out.Dims()
			assert.Equal(t, 20, r)
			assert.Equal(t, len(sfm.SelectedIndices()), c)
		})
	}

	sfm := &SelectFromModel{Estimator: tree.NewDecisionTreeRegressor(), Threshold: 0.5}
	require.NoError(t, sfm.Fit(X, y))
	assert.Equal(t, []int{1}, sfm.SelectedIndices())

	_, err := sfm.Transform(mat.NewDense(2, 2, nil))
	assert.Error(t, err)
	assert.Error(t, (&SelectFromModel{}).Fit(X, y))
}
