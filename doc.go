// Package aamlp collects applied machine-learning recipes for tabular data:
// cross-validation folds, categorical encoding, feature engineering and
// selection, evaluation metrics, hyperparameter search, decision trees,
// random forests and logistic regression. The API follows scikit-learn's
// naming so recipes written against pandas and scikit-learn translate
// directly.
//
// # Quick Start
//
// Add a stratified fold column to a CSV and train a tree on every fold but
// one:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/approachingml/aamlp/dataset"
//	    "github.com/approachingml/aamlp/metrics"
//	    "github.com/approachingml/aamlp/model_selection"
//	    "github.com/approachingml/aamlp/sklearn/tree"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    df, err := dataset.LoadCSV("input/winequality.csv")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    df = df.Shuffle(42)
//	    y, _ := df.Vector("quality")
//	    folds, err := model_selection.AssignFolds(model_selection.NewStratifiedKFold(5, false, 0), nil, y)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    _ = df.SetIntColumn("kfold", folds)
//
//	    train := df.Filter(func(r dataset.Row) bool { return r.Get("kfold") != "0" })
//	    valid := df.Filter(func(r dataset.Row) bool { return r.Get("kfold") == "0" })
//	    Xtr, _ := train.DropColumns("quality", "kfold").Matrix()
//	    ytr, _ := train.Vector("quality")
//	    Xva, _ := valid.DropColumns("quality", "kfold").Matrix()
//	    yva, _ := valid.Vector("quality")
//
//	    clf := tree.NewDecisionTreeClassifier(tree.WithMaxDepth(7))
//	    if err := clf.Fit(Xtr, ytr); err != nil {
//	        log.Fatal(err)
//	    }
//	    pred, _ := clf.Predict(Xva)
//	    acc, _ := metrics.Accuracy(yva, mat.NewVecDense(yva.Len(), mat.Col(nil, 0, pred)))
//	    fmt.Printf("Fold=0, Accuracy=%.4f\n", acc)
//	}
//
// # Packages
//
//   - metrics: classification, regression and ranking metrics
//   - model_selection: KFold, StratifiedKFold, regression folds, cross
//     validation, grid and randomized search
//   - preprocessing: label, ordinal and one-hot encoding, rare category
//     grouping, binning, polynomial features, KNN imputation, scaling
//   - feature_selection: correlation filtering, SelectFromModel,
//     VarianceThreshold, recursive feature elimination
//   - decomposition: PCA and TruncatedSVD
//   - sklearn/tree, sklearn/ensemble, sklearn/linear_model: estimators
//   - dataset: CSV-backed frames
//   - visualize: gonum/plot charts
//   - core/model: estimator interfaces, state and gob persistence
//   - core/parallel: bounded worker pools
//   - pkg/errors, pkg/log, pkg/config: errors, zerolog logging, YAML config
//
// The aamlp command (cmd/aamlp) exposes the same recipes over CSV files:
//
//	aamlp folds --input_dataset input/train.csv --output_dataset input/train_folds.csv --strategy stratified
//	aamlp train --fold 0 --model rf
//	aamlp plot depth-curve --input input/train_folds.csv --output depth.png
package aamlp
