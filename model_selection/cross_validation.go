package model_selection

import (
	"time"

	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/core/parallel"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CVResult stores cross-validation results
type CVResult struct {
	TestScores []float64
	FitTimes   []time.Duration
}

// MeanScore returns mean test score
func (cv *CVResult) MeanScore() float64 {
	if len(cv.TestScores) == 0 {
		return 0.0
	}
	return stat.Mean(cv.TestScores, nil)
}

// StdScore returns the sample standard deviation of the test scores.
func (cv *CVResult) StdScore() float64 {
	if len(cv.TestScores) <= 1 {
		return 0.0
	}
	return stat.StdDev(cv.TestScores, nil)
}

// CrossValidate fits a fresh estimator from factory on each training fold
// and scores it on the matching test fold. Folds run concurrently on up to
// nJobs goroutines (<= 0 means all cores).
func CrossValidate(factory model.Factory, params map[string]interface{}, X, y mat.Matrix,
	cv Splitter, scorer Scorer, nJobs int) (*CVResult, error) {

	folds, err := cv.Split(X, y)
	if err != nil {
		return nil, err
	}
	logger := log.GetLogger().With(log.ComponentKey, "model_selection")

	result := &CVResult{
		TestScores: make([]float64, len(folds)),
		FitTimes:   make([]time.Duration, len(folds)),
	}
	err = parallel.ForEach(len(folds), nJobs, "CrossValidate", func(idx int) error {
		fold := folds[idx]
		est, err := factory(params)
		if err != nil {
			return errors.Wrapf(err, "fold %d: build estimator", idx)
		}

		trainX, trainY := subsetRows(X, fold.TrainIndices), subsetRows(y, fold.TrainIndices)
		testX, testY := subsetRows(X, fold.TestIndices), subsetRows(y, fold.TestIndices)

		start := time.Now()
		if err := est.Fit(trainX, trainY); err != nil {
			return errors.Wrapf(err, "fold %d training failed", idx)
		}
		result.FitTimes[idx] = time.Since(start)

		score, err := scorer(est, testX, testY)
		if err != nil {
			return errors.Wrapf(err, "fold %d scoring failed", idx)
		}
		result.TestScores[idx] = score

		logger.Debug("fold scored",
			log.FoldKey, idx,
			log.ScoreKey, score,
			log.DurationMsKey, result.FitTimes[idx].Milliseconds(),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CrossValScore returns the per-fold test scores of CrossValidate.
func CrossValScore(factory model.Factory, params map[string]interface{}, X, y mat.Matrix,
	cv Splitter, scorer Scorer, nJobs int) ([]float64, error) {
	res, err := CrossValidate(factory, params, X, y, cv, scorer, nJobs)
	if err != nil {
		return nil, err
	}
	return res.TestScores, nil
}

// subsetRows extracts the given rows, keeping their order.
func subsetRows(m mat.Matrix, indices []int) *mat.Dense {
	_, cols := m.Dims()
	out := mat.NewDense(len(indices), cols, nil)
	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			out.Set(i, j, m.At(idx, j))
		}
	}
	return out
}
