// Package dispatcher maps model names used on the command line to
// estimator factories.
package dispatcher

import (
	"sort"
	"strings"

	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/sklearn/ensemble"
	"github.com/approachingml/aamlp/sklearn/linear_model"
	"github.com/approachingml/aamlp/sklearn/tree"
)

type paramEstimator interface {
	model.Estimator
	model.ParameterSetter
}

// withParams applies params on top of a default-constructed estimator.
func withParams(build func() paramEstimator) model.Factory {
	return func(params map[string]interface{}) (model.Estimator, error) {
		est := build()
		if len(params) > 0 {
			if err := est.SetParams(params); err != nil {
				return nil, err
			}
		}
		return est, nil
	}
}

var models = map[string]model.Factory{
	"decision_tree_gini": withParams(func() paramEstimator {
		return tree.NewDecisionTreeClassifier(tree.WithCriterion("gini"))
	}),
	"decision_tree_entropy": withParams(func() paramEstimator {
		return tree.NewDecisionTreeClassifier(tree.WithCriterion("entropy"))
	}),
	"rf": withParams(func() paramEstimator {
		return ensemble.NewRandomForestClassifier()
	}),
	"logreg": withParams(func() paramEstimator {
		return linear_model.NewLogisticRegression()
	}),
}

// Names returns the registered model names in sorted order.
func Names() []string {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Factory returns the factory registered under name.
func Factory(name string) (model.Factory, error) {
	f, ok := models[name]
	if !ok {
		return nil, errors.NewValueError("dispatcher.Factory",
			"unknown model "+name+"; known models: "+strings.Join(Names(), ", "))
	}
	return f, nil
}

// New builds an unfitted estimator by name.
func New(name string, params map[string]interface{}) (model.Estimator, error) {
	f, err := Factory(name)
	if err != nil {
		return nil, err
	}
	return f(params)
}
