package feature_selection

import (
	"math"
	"sort"

	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// RFE is recursive feature elimination: fit, drop the Step weakest
// features, refit on the rest until NFeaturesToSelect remain.
//
// Feature weights come from GetFeatureImportances when the estimator
// provides it, otherwise from the absolute value of its coefficients.
type RFE struct {
	support

	Estimator         model.Estimator
	NFeaturesToSelect int
	Step              int

	// Ranking is 1 for selected features; higher values were eliminated
	// earlier.
	Ranking []int
}

// NewRFE keeps n features, removing one per round.
//
//	rfe := feature_selection.NewRFE(linear_model.NewLinearRegression(), 3)
//	Xs, err := rfe.FitTransform(X, y)
func NewRFE(est model.Estimator, n int) *RFE {
	return &RFE{Estimator: est, NFeaturesToSelect: n, Step: 1}
}

type vectorCoef interface{ Coef() []float64 }

type matrixCoef interface{ Coef() [][]float64 }

// featureWeights returns one non-negative weight per fitted column.
func featureWeights(est model.Estimator) ([]float64, bool) {
	switch e := est.(type) {
	case model.FeatureImporter:
		return e.GetFeatureImportances(), true
	case vectorCoef:
		coef := e.Coef()
		out := make([]float64, len(coef))
		for j, c := range coef {
			out[j] = math.Abs(c)
		}
		return out, true
	case matrixCoef:
		// one row per class; sum the magnitudes
		var out []float64
		for _, row := range e.Coef() {
			if out == nil {
				out = make([]float64, len(row))
			}
			for j, c := range row {
				out[j] += math.Abs(c)
			}
		}
		return out, true
	}
	return nil, false
}

func columns(X mat.Matrix, idx []int) *mat.Dense {
	r, _ := X.Dims()
	out := mat.NewDense(r, len(idx), nil)
	for i := 0; i < r; i++ {
		for k, j := range idx {
			out.Set(i, k, X.At(i, j))
		}
	}
	return out
}

// Fit runs the elimination. The estimator is left fitted on the selected
// features.
func (s *RFE) Fit(X, y mat.Matrix) error {
	if s.Estimator == nil {
		return errors.NewValueError("RFE.Fit", "estimator must not be nil")
	}
	if X == nil || y == nil {
		return errors.NewValueError("RFE.Fit", "X and y must not be nil")
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("RFE.Fit", "empty data", errors.ErrEmptyData)
	}
	n := s.NFeaturesToSelect
	if n == 0 {
		n = max(1, c/2)
	}
	if n < 1 || n > c {
		return errors.NewValidationError("n_features_to_select", "must be in [1, n_features]", s.NFeaturesToSelect)
	}
	if s.Step < 1 {
		return errors.NewValidationError("step", "must be at least 1", s.Step)
	}

	remaining := make([]int, c)
	for j := range remaining {
		remaining[j] = j
	}
	ranking := make([]int, c)
	for j := range ranking {
		ranking[j] = 1
	}

	for round := 0; len(remaining) > n; round++ {
		if err := s.Estimator.Fit(columns(X, remaining), y); err != nil {
			return errors.Wrapf(err, "RFE.Fit round %d", round)
		}
		weights, ok := featureWeights(s.Estimator)
		if !ok {
			return errors.NewValueError("RFE.Fit", "estimator exposes neither feature importances nor coefficients")
		}
		if len(weights) != len(remaining) {
			return errors.NewDimensionError("RFE.Fit", len(remaining), len(weights), 1)
		}
		order := make([]int, len(remaining))
		for k := range order {
			order[k] = k
		}
		sort.SliceStable(order, func(a, b int) bool { return weights[order[a]] < weights[order[b]] })

		drop := min(s.Step, len(remaining)-n)
		eliminated := make(map[int]bool, drop)
		for _, k := range order[:drop] {
			eliminated[k] = true
		}
		kept := make([]int, 0, len(remaining)-drop)
		for k, j := range remaining {
			if !eliminated[k] {
				kept = append(kept, j)
			}
		}
		// every feature eliminated so far moves one rank down
		for j := range ranking {
			if ranking[j] > 1 || eliminated[indexOf(remaining, j)] {
				ranking[j]++
			}
		}
		remaining = kept
		log.GetLogger().Debug("rfe round",
			log.ComponentKey, "RFE",
			"selection.round", round,
			"selection.remaining", len(remaining),
		)
	}

	if err := s.Estimator.Fit(columns(X, remaining), y); err != nil {
		return errors.Wrap(err, "RFE.Fit final")
	}
	s.mask = make([]bool, c)
	for _, j := range remaining {
		s.mask[j] = true
	}
	s.Ranking = ranking
	s.SetDimensions(c, r)
	s.SetFitted()
	return nil
}

func indexOf(idx []int, j int) int {
	for k, v := range idx {
		if v == j {
			return k
		}
	}
	return -1
}

// Transform keeps the selected columns of X.
func (s *RFE) Transform(X mat.Matrix) (mat.Matrix, error) {
	return s.transform("RFE", X)
}

// FitTransform runs Fit then Transform.
func (s *RFE) FitTransform(X, y mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X, y); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
