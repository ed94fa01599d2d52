package model_selection

import (
	"sort"
	"strings"

	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/metrics"
	"github.com/approachingml/aamlp/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Scorer evaluates a fitted estimator on held-out data. Higher is better;
// error metrics are negated ("neg_mse").
type Scorer func(est model.Estimator, X, y mat.Matrix) (float64, error)

var scorers = map[string]Scorer{
	"accuracy":        labelScorer(metrics.Accuracy),
	"f1":              averagedScorer(metrics.F1Score, metrics.AverageBinary),
	"f1_macro":        averagedScorer(metrics.F1Score, metrics.AverageMacro),
	"f1_micro":        averagedScorer(metrics.F1Score, metrics.AverageMicro),
	"f1_weighted":     averagedScorer(metrics.F1Score, metrics.AverageWeighted),
	"precision_macro": averagedScorer(metrics.PrecisionScore, metrics.AverageMacro),
	"recall_macro":    averagedScorer(metrics.RecallScore, metrics.AverageMacro),
	"roc_auc":         rocAUCScorer,
	"r2":              labelScorer(metrics.R2Score),
	"neg_mse":         negate(labelScorer(metrics.MSE)),
	"neg_rmse":        negate(labelScorer(metrics.RMSE)),
	"neg_mae":         negate(labelScorer(metrics.MAE)),
	"neg_rmsle":       negate(labelScorer(metrics.RMSLE)),
}

// GetScorer looks up a scorer by its scikit-learn style name.
func GetScorer(name string) (Scorer, error) {
	if s, ok := scorers[name]; ok {
		return s, nil
	}
	return nil, errors.NewValidationError("scoring", "unknown scorer, expected one of "+strings.Join(ScorerNames(), ", "), name)
}

// ScorerNames lists the registered scorer names in sorted order.
func ScorerNames() []string {
	names := make([]string, 0, len(scorers))
	for n := range scorers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func labelScorer(metric func(yTrue, yPred *mat.VecDense) (float64, error)) Scorer {
	return func(est model.Estimator, X, y mat.Matrix) (float64, error) {
		pred, err := est.Predict(X)
		if err != nil {
			return 0, err
		}
		return metric(columnVec(y), columnVec(pred))
	}
}

func averagedScorer(metric func(yTrue, yPred *mat.VecDense, avg metrics.Average) (float64, error), avg metrics.Average) Scorer {
	return labelScorer(func(yTrue, yPred *mat.VecDense) (float64, error) {
		return metric(yTrue, yPred, avg)
	})
}

func negate(s Scorer) Scorer {
	return func(est model.Estimator, X, y mat.Matrix) (float64, error) {
		v, err := s(est, X, y)
		return -v, err
	}
}

// rocAUCScorer needs a Classifier and scores the probability of label 1.
func rocAUCScorer(est model.Estimator, X, y mat.Matrix) (float64, error) {
	clf, ok := est.(model.Classifier)
	if !ok {
		return 0, errors.NewValueError("roc_auc", "estimator does not implement PredictProba")
	}
	proba, err := clf.PredictProba(X)
	if err != nil {
		return 0, err
	}
	col := -1
	for i, c := range clf.Classes() {
		if c == 1 {
			col = i
		}
	}
	n, _ := proba.Dims()
	scores := mat.NewVecDense(n, nil)
	if col >= 0 {
		for i := 0; i < n; i++ {
			scores.SetVec(i, proba.At(i, col))
		}
	}
	return metrics.AUC(columnVec(y), scores)
}

// columnVec copies the first column of m into a vector.
func columnVec(m mat.Matrix) *mat.VecDense {
	if v, ok := m.(*mat.VecDense); ok {
		return v
	}
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}
