package linear_model

import (
	"math"
	"testing"

	"github.com/approachingml/aamlp/metrics"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// oneHotLevels encodes a single categorical column with four levels, ten
// rows each. positives[k] rows of level k have target 1.
func oneHotLevels(positives [4]int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(40, 4, nil)
	y := mat.NewDense(40, 1, nil)
	for k := 0; k < 4; k++ {
		for i := 0; i < 10; i++ {
			row := k*10 + i
			X.Set(row, k, 1)
			if i < positives[k] {
				y.Set(row, 0, 1)
			}
		}
	}
	return X, y
}

func quietWarnings(t *testing.T) {
	t.Helper()
	errors.SetWarningHandler(func(error) {})
	t.Cleanup(func() { errors.SetWarningHandler(nil) })
}

func TestLogisticOneHotAUC(t *testing.T) {
	quietWarnings(t)
	X, y := oneHotLevels([4]int{1, 3, 7, 9})

	lr := NewLogisticRegression(WithLRC(10), WithLRRandomState(42))
	require.NoError(t, lr.Fit(X, y))

	proba, err := lr.PredictProba(X)
	require.NoError(t, err)

	// one probability per level, increasing with the level's positive rate
	levels := make([]float64, 4)
	for k := range levels {
		levels[k] = proba.At(k*10, 1)
		assert.InDelta(t, 1.0, proba.At(k*10, 0)+proba.At(k*10, 1), 1e-12)
	}
	assert.Less(t, levels[0], levels[1])
	assert.Less(t, levels[1], levels[2])
	assert.Less(t, levels[2], levels[3])
	assert.InDelta(t, 0.3518, levels[0], 1e-3)
	assert.InDelta(t, 0.6482, levels[3], 1e-3)

	// any score monotone in the level ranks the fold the same way
	auc, err := metrics.AUC(mat.NewVecDense(40, mat.Col(nil, 0, y)), mat.NewVecDense(40, mat.Col(nil, 1, proba)))
	require.NoError(t, err)
	assert.InDelta(t, 0.85, auc, 1e-12)

	// hard predictions split the levels at one half
	assert.InDelta(t, 0.8, lr.Score(X, y), 1e-12)
}

func TestLogisticRegularizationShrinksCoefficients(t *testing.T) {
	quietWarnings(t)
	X, y := oneHotLevels([4]int{1, 3, 7, 9})

	norm := func(c float64) float64 {
		lr := NewLogisticRegression(WithLRC(c), WithLRRandomState(0))
		require.NoError(t, lr.Fit(X, y))
		coef := lr.Coef()
		require.Len(t, coef, 1)
		var sum float64
		for _, w := range coef[0] {
			sum += w * w
		}
		return math.Sqrt(sum)
	}

	strong, weak := norm(1), norm(10)
	assert.InDelta(t, 0.1488, strong, 1e-3)
	assert.InDelta(t, 0.9651, weak, 1e-2)
	assert.Less(t, strong, weak)
}

func TestLogisticMulticlassGrades(t *testing.T) {
	quietWarnings(t)
	// three grades clustered around (0,0), (1,0) and (0,1)
	centers := map[float64][2]float64{5: {0, 0}, 6: {1, 0}, 7: {0, 1}}
	jitter := [][2]float64{{0, 0}, {0.1, 0}, {0, 0.1}, {0.1, 0.1}, {-0.1, 0}, {0, -0.1}}
	X := mat.NewDense(18, 2, nil)
	y := mat.NewDense(18, 1, nil)
	row := 0
	for _, grade := range []float64{5, 6, 7} {
		c := centers[grade]
		for _, j := range jitter {
			X.SetRow(row, []float64{c[0] + j[0], c[1] + j[1]})
			y.Set(row, 0, grade)
			row++
		}
	}

	lr := NewLogisticRegression(WithLRC(10), WithLRMaxIter(300), WithLRRandomState(1))
	require.NoError(t, lr.Fit(X, y))

	assert.Equal(t, []float64{5, 6, 7}, lr.Classes())
	assert.Len(t, lr.Coef(), 3)
	assert.Len(t, lr.NIter(), 3)
	assert.InDelta(t, 1.0, lr.Score(X, y), 1e-12)

	proba, err := lr.PredictProba(X)
	require.NoError(t, err)
	pred, err := lr.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 18; i++ {
		p := mat.Row(nil, i, proba)
		assert.InDelta(t, 1.0, p[0]+p[1]+p[2], 1e-12)
		best := 0
		for k := range p {
			if p[k] > p[best] {
				best = k
			}
		}
		assert.Equal(t, lr.Classes()[best], pred.At(i, 0), "row %d", i)
	}
}

func TestLogisticConvergenceWarning(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetWarningHandler(nil) })

	X, y := oneHotLevels([4]int{1, 3, 7, 9})
	require.NoError(t, NewLogisticRegression(WithLRC(10), WithLRMaxIter(2), WithLRRandomState(0)).Fit(X, y))
	require.Len(t, warnings, 1)
	var cw *errors.ConvergenceWarning
	assert.True(t, errors.As(warnings[0], &cw))

	warnings = nil
	// C=1 on this data reaches the tolerance within a handful of steps
	lr := NewLogisticRegression(WithLRRandomState(0))
	require.NoError(t, lr.Fit(X, y))
	assert.Empty(t, warnings)
	assert.Less(t, lr.NIter()[0], 100)
}

func TestLogisticNotFitted(t *testing.T) {
	lr := NewLogisticRegression()
	X := mat.NewDense(2, 4, nil)

	_, err := lr.Predict(X)
	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))
	_, err = lr.PredictProba(X)
	assert.Error(t, err)
	assert.Equal(t, 0.0, lr.Score(X, mat.NewDense(2, 1, nil)))
}
