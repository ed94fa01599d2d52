// Package feature_selection removes features that add little information:
// near-constant columns, highly correlated pairs and columns a fitted
// model considers unimportant.
package feature_selection

import (
	"fmt"
	"math"
	"sort"

	"github.com/approachingml/aamlp/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CorrelationMatrix returns the Pearson correlation between every pair of
// columns of X. Constant columns produce NaN entries off the diagonal.
func CorrelationMatrix(X mat.Matrix) (*mat.SymDense, error) {
	if X == nil {
		return nil, errors.NewValueError("CorrelationMatrix", "X must not be nil")
	}
	r, c := X.Dims()
	if r < 2 || c == 0 {
		return nil, errors.NewValueError("CorrelationMatrix", "need at least two rows and one column")
	}
	corr := mat.NewSymDense(c, nil)
	stat.CorrelationMatrix(corr, X, nil)
	return corr, nil
}

// CorrelatedPair is a pair of columns whose correlation reached the threshold.
type CorrelatedPair struct {
	A, B        string
	Correlation float64
}

func (p CorrelatedPair) String() string {
	return fmt.Sprintf("%s ~ %s (r=%.4f)", p.A, p.B, p.Correlation)
}

// HighCorrelationPairs lists column pairs with |r| >= threshold, strongest
// first. names labels the columns; missing names fall back to "x<i>".
func HighCorrelationPairs(X mat.Matrix, names []string, threshold float64) ([]CorrelatedPair, error) {
	if threshold < 0 || threshold > 1 {
		return nil, errors.NewValidationError("threshold", "must be in [0, 1]", threshold)
	}
	corr, err := CorrelationMatrix(X)
	if err != nil {
		return nil, err
	}
	n := corr.SymmetricDim()
	name := func(i int) string {
		if i < len(names) {
			return names[i]
		}
		return fmt.Sprintf("x%d", i)
	}

	var pairs []CorrelatedPair
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := corr.At(i, j)
			if !math.IsNaN(r) && math.Abs(r) >= threshold {
				pairs = append(pairs, CorrelatedPair{A: name(i), B: name(j), Correlation: r})
			}
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		return math.Abs(pairs[a].Correlation) > math.Abs(pairs[b].Correlation)
	})
	return pairs, nil
}

// DropCorrelated returns the indices of columns to keep after greedily
// dropping the later column of every pair with |r| >= threshold.
func DropCorrelated(X mat.Matrix, threshold float64) ([]int, error) {
	corr, err := CorrelationMatrix(X)
	if err != nil {
		return nil, err
	}
	n := corr.SymmetricDim()
	dropped := make([]bool, n)
	var keep []int
	for i := 0; i < n; i++ {
		if dropped[i] {
			continue
		}
		keep = append(keep, i)
		for j := i + 1; j < n; j++ {
			if r := corr.At(i, j); !math.IsNaN(r) && math.Abs(r) >= threshold {
				dropped[j] = true
			}
		}
	}
	return keep, nil
}
