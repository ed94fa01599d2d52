// Package metrics implements evaluation metrics for classification,
// regression and ranking problems on gonum vectors.
//
// Every function validates its inputs and returns an error rather than
// panicking. Ratios that are undefined for the given input (for example
// precision with no positive predictions) evaluate to 0 and emit an
// UndefinedMetricWarning through pkg/errors.
package metrics

import (
	"math"
	"sort"

	"github.com/approachingml/aamlp/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// checkPair validates that two vectors are non-nil, non-empty and aligned.
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "input vectors must not be nil")
	}
	n := yTrue.Len()
	if n == 0 || yPred.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be binary (0 or 1)")
		}
	}
	return nil
}

// firstColumn extracts column 0 of a matrix as a vector.
func firstColumn(op string, m mat.Matrix) (*mat.VecDense, error) {
	if m == nil {
		return nil, errors.NewValueError(op, "input matrix must not be nil")
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v, nil
}

// uniqueLabels returns the sorted union of the values of the given vectors.
func uniqueLabels(vs ...*mat.VecDense) []float64 {
	seen := make(map[float64]struct{})
	for _, v := range vs {
		for i := 0; i < v.Len(); i++ {
			seen[v.AtVec(i)] = struct{}{}
		}
	}
	labels := make([]float64, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Float64s(labels)
	return labels
}

// ratio divides and substitutes 0 with a warning when den is zero.
func ratio(metric, condition string, num, den float64) float64 {
	if den == 0 || math.IsNaN(den) {
		errors.Warn(errors.NewUndefinedMetricWarning(metric, condition, 0))
		return 0
	}
	return num / den
}
