package feature_selection

import (
	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ImportanceEstimator is a supervised model exposing feature importances.
type ImportanceEstimator interface {
	model.Estimator
	model.FeatureImporter
}

// support keeps a boolean mask over input columns.
type support struct {
	model.StateManager
	mask []bool
}

// GetSupport returns which input columns are kept.
func (s *support) GetSupport() []bool {
	return append([]bool(nil), s.mask...)
}

// SelectedIndices returns the kept column indices in order.
func (s *support) SelectedIndices() []int {
	var idx []int
	for j, keep := range s.mask {
		if keep {
			idx = append(idx, j)
		}
	}
	return idx
}

// SelectedNames filters names with the support mask.
func (s *support) SelectedNames(names []string) []string {
	var out []string
	for _, j := range s.SelectedIndices() {
		if j < len(names) {
			out = append(out, names[j])
		}
	}
	return out
}

func (s *support) transform(op string, X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError(op, "Transform")
	}
	if X == nil {
		return nil, errors.NewValueError(op+".Transform", "X must not be nil")
	}
	r, c := X.Dims()
	if c != len(s.mask) {
		return nil, errors.NewDimensionError(op+".Transform", len(s.mask), c, 1)
	}
	idx := s.SelectedIndices()
	if len(idx) == 0 {
		return nil, errors.NewValueError(op+".Transform", "no features selected")
	}
	out := mat.NewDense(r, len(idx), nil)
	for i := 0; i < r; i++ {
		for k, j := range idx {
			out.Set(i, k, X.At(i, j))
		}
	}
	return out, nil
}

// SelectFromModel keeps features whose importance in a fitted estimator
// is at least Threshold. A zero Threshold uses the mean importance.
type SelectFromModel struct {
	support

	Estimator ImportanceEstimator
	Threshold float64

	// Importances are the estimator's importances after Fit.
	Importances []float64
	// ThresholdUsed is the resolved cut-off.
	ThresholdUsed float64
}

// NewSelectFromModel selects with the mean-importance threshold.
//
//	sfm := feature_selection.NewSelectFromModel(ensemble.NewRandomForestRegressor())
//	Xs, err := sfm.FitTransform(X, y)
func NewSelectFromModel(est ImportanceEstimator) *SelectFromModel {
	return &SelectFromModel{Estimator: est}
}

// Fit trains the estimator on (X, y) and derives the support mask.
func (s *SelectFromModel) Fit(X, y mat.Matrix) error {
	if s.Estimator == nil {
		return errors.NewValueError("SelectFromModel.Fit", "estimator must not be nil")
	}
	if err := s.Estimator.Fit(X, y); err != nil {
		return errors.Wrap(err, "SelectFromModel.Fit")
	}
	imp := s.Estimator.GetFeatureImportances()
	if len(imp) == 0 {
		return errors.NewValueError("SelectFromModel.Fit", "estimator reported no feature importances")
	}
	s.Importances = imp
	s.ThresholdUsed = s.Threshold
	if s.ThresholdUsed == 0 {
		s.ThresholdUsed = stat.Mean(imp, nil)
	}
	s.mask = make([]bool, len(imp))
	for j, v := range imp {
		// tolerate rounding when every importance equals the mean
		s.mask[j] = v >= s.ThresholdUsed-1e-12
	}

	r, _ := X.Dims()
	s.SetDimensions(len(imp), r)
	s.SetFitted()
	log.GetLogger().Debug("features selected",
		log.ComponentKey, "SelectFromModel",
		log.FeaturesKey, len(imp),
		"selection.kept", len(s.SelectedIndices()),
		"selection.threshold", s.ThresholdUsed,
	)
	return nil
}

// Transform keeps the selected columns of X.
func (s *SelectFromModel) Transform(X mat.Matrix) (mat.Matrix, error) {
	return s.transform("SelectFromModel", X)
}

// FitTransform runs Fit then Transform.
func (s *SelectFromModel) FitTransform(X, y mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X, y); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// VarianceThreshold drops columns whose population variance is not
// greater than Threshold. The default of 0 removes constant columns.
type VarianceThreshold struct {
	support

	Threshold float64
	Variances []float64
}

// NewVarianceThreshold creates a selector with the given cut-off.
func NewVarianceThreshold(threshold float64) *VarianceThreshold {
	return &VarianceThreshold{Threshold: threshold}
}

func (v *VarianceThreshold) Fit(X mat.Matrix) error {
	if v.Threshold < 0 {
		return errors.NewValidationError("threshold", "must be non-negative", v.Threshold)
	}
	if X == nil {
		return errors.NewValueError("VarianceThreshold.Fit", "X must not be nil")
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("VarianceThreshold.Fit", "empty data", errors.ErrEmptyData)
	}
	v.Variances = make([]float64, c)
	v.mask = make([]bool, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		_, v.Variances[j] = stat.PopMeanVariance(col, nil)
		v.mask[j] = v.Variances[j] > v.Threshold
	}
	if floats.Max(v.Variances) <= v.Threshold {
		return errors.NewValueError("VarianceThreshold.Fit",
			"no feature meets the variance threshold")
	}
	v.SetDimensions(c, r)
	v.SetFitted()
	return nil
}

func (v *VarianceThreshold) Transform(X mat.Matrix) (mat.Matrix, error) {
	return v.transform("VarianceThreshold", X)
}

func (v *VarianceThreshold) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := v.Fit(X); err != nil {
		return nil, err
	}
	return v.Transform(X)
}
