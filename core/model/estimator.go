// Package model defines the estimator contracts shared by trees, forests,
// linear models, encoders and the model-selection utilities.
package model

import "gonum.org/v1/gonum/mat"

// Fitter is a model that can be trained.
type Fitter interface {
	// Fit trains on X (n_samples × n_features) and column vector y.
	Fit(X, y mat.Matrix) error
}

// Predictor is a model that can predict.
type Predictor interface {
	// Predict returns an n_samples × 1 matrix of predictions.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator is a supervised model.
type Estimator interface {
	Fitter
	Predictor
}

// Classifier is an Estimator that also reports class probabilities.
// PredictProba columns follow the order of Classes.
type Classifier interface {
	Estimator
	PredictProba(X mat.Matrix) (mat.Matrix, error)
	Classes() []float64
}

// FeatureImporter exposes normalized feature importances after fitting.
type FeatureImporter interface {
	GetFeatureImportances() []float64
}

// ParameterGetter exposes hyperparameters keyed by scikit-learn names.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// ParameterSetter updates hyperparameters keyed by scikit-learn names.
type ParameterSetter interface {
	SetParams(params map[string]interface{}) error
}

// Factory builds a fresh, unfitted estimator from hyperparameters. Cross
// validation calls it once per fold so folds never share state.
type Factory func(params map[string]interface{}) (Estimator, error)
