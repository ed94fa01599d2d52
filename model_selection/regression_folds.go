package model_selection

import (
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// StratifiedRegressionFolds assigns folds for a continuous target. The
// target is cut into SturgesBins(n) equal-width bins and the bin index is
// used as the stratification label.
func StratifiedRegressionFolds(target []float64, nSplits int, shuffle bool, seed uint64) ([]int, error) {
	n := len(target)
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "StratifiedRegressionFolds")
	}
	binned, err := preprocessing.Cut(target, SturgesBins(n))
	if err != nil {
		return nil, errors.Wrap(err, "StratifiedRegressionFolds")
	}
	y := mat.NewVecDense(n, nil)
	for i, b := range binned {
		y.SetVec(i, float64(b))
	}
	return AssignFolds(NewStratifiedKFold(nSplits, shuffle, seed), nil, y)
}
