package ensemble

import (
	"bytes"
	"encoding/gob"
	"sort"
	"time"

	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/core/parallel"
	"github.com/approachingml/aamlp/metrics"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
	"github.com/approachingml/aamlp/sklearn/tree"
	"gonum.org/v1/gonum/mat"
)

// RandomForestClassifier averages the class probabilities of bagged
// decision trees.
type RandomForestClassifier struct {
	forestConfig
	state *model.StateManager

	classes     []float64
	nFeatures   int
	trees       []*tree.DecisionTreeClassifier
	columns     [][]int // columns[t][k]: forest column of tree t's k-th class
	importances []float64
}

// NewRandomForestClassifier creates a forest of 100 gini trees with
// sqrt(n_features) candidates per split.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		forestConfig: defaultConfig("gini", "sqrt"),
		state:        model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(&rf.forestConfig)
	}
	return rf
}

// Fit grows NEstimators trees concurrently.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	if err := rf.validate(); err != nil {
		return err
	}
	Xd, labels, err := checkXY("RandomForestClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	start := time.Now()
	r, c := Xd.Dims()

	classes := uniqueSorted(labels)
	seeds := rf.treeSeeds()
	trees := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	err = parallel.ForEach(rf.nEstimators, rf.nJobs, "RandomForestClassifier.Fit", func(i int) error {
		Xb, yb := rf.sample(Xd, labels, seeds[i])
		t := tree.NewDecisionTreeClassifier(rf.treeOptions(c, seeds[i])...)
		if err := t.Fit(Xb, yb); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
		trees[i] = t
		return nil
	})
	if err != nil {
		return err
	}

	rf.classes = classes
	rf.nFeatures = c
	rf.setTrees(trees)
	rf.state.SetDimensions(c, r)
	rf.state.SetFitted()

	log.GetLogger().Info("forest fitted",
		log.ModelNameKey, "RandomForestClassifier",
		log.SamplesKey, r,
		log.FeaturesKey, c,
		log.ClassesKey, len(classes),
		"forest.n_estimators", rf.nEstimators,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// setTrees installs fitted trees and derives the class mapping and
// importances from them. A bootstrap sample can miss classes, so each
// tree's classes are mapped onto the forest's.
func (rf *RandomForestClassifier) setTrees(trees []*tree.DecisionTreeClassifier) {
	index := make(map[float64]int, len(rf.classes))
	for k, cl := range rf.classes {
		index[cl] = k
	}
	rf.trees = trees
	rf.columns = make([][]int, len(trees))
	perTree := make([][]float64, len(trees))
	for t, tr := range trees {
		cls := tr.Classes()
		rf.columns[t] = make([]int, len(cls))
		for k, cl := range cls {
			rf.columns[t][k] = index[cl]
		}
		perTree[t] = tr.GetFeatureImportances()
	}
	rf.importances = meanImportances(perTree, rf.nFeatures)
}

func (rf *RandomForestClassifier) checkPredict(method string, X mat.Matrix) (int, error) {
	if !rf.state.IsFitted() {
		return 0, errors.NewNotFittedError("RandomForestClassifier", method)
	}
	if X == nil {
		return 0, errors.NewValueError("RandomForestClassifier."+method, "X must not be nil")
	}
	r, c := X.Dims()
	if c != rf.nFeatures {
		return 0, errors.NewDimensionError("RandomForestClassifier."+method, rf.nFeatures, c, 1)
	}
	return r, nil
}

// PredictProba returns the mean of the trees' class probabilities.
// Columns follow Classes.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	r, err := rf.checkPredict("PredictProba", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(r, len(rf.classes), nil)
	for t, tr := range rf.trees {
		p, err := tr.PredictProba(X)
		if err != nil {
			return nil, err
		}
		for i := 0; i < r; i++ {
			for k, col := range rf.columns[t] {
				out.Set(i, col, out.At(i, col)+p.At(i, k))
			}
		}
	}
	out.Scale(1/float64(len(rf.trees)), out)
	return out, nil
}

// Predict returns the class with the highest mean probability.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, _ := proba.Dims()
	out := mat.NewDense(r, 1, nil)
	row := make([]float64, len(rf.classes))
	for i := 0; i < r; i++ {
		mat.Row(row, i, proba)
		best := 0
		for k := range row {
			if row[k] > row[best] {
				best = k
			}
		}
		out.Set(i, 0, rf.classes[best])
	}
	return out, nil
}

// Score returns the accuracy on (X, y).
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0
	}
	acc, err := metrics.Accuracy(toVec(y), toVec(pred))
	if err != nil {
		return 0
	}
	return acc
}

// Classes returns the sorted labels seen during Fit.
func (rf *RandomForestClassifier) Classes() []float64 {
	return append([]float64(nil), rf.classes...)
}

// GetFeatureImportances returns the mean impurity decrease per feature,
// normalized to sum to 1.
func (rf *RandomForestClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), rf.importances...)
}

// NEstimators returns the number of fitted trees.
func (rf *RandomForestClassifier) NEstimators() int { return len(rf.trees) }

func (rf *RandomForestClassifier) IsFitted() bool { return rf.state.IsFitted() }

// GetParams returns hyperparameters by scikit-learn name.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return rf.forestConfig.params()
}

// SetParams updates hyperparameters by scikit-learn name.
func (rf *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	return rf.forestConfig.setParams(params)
}

type classifierSnapshot struct {
	Config    configSnapshot
	Classes   []float64
	NFeatures int
	Trees     []*tree.DecisionTreeClassifier
	State     model.ModelState
}

// GobEncode implements gob.GobEncoder.
func (rf *RandomForestClassifier) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(classifierSnapshot{
		Config:    rf.forestConfig.snapshot(),
		Classes:   rf.classes,
		NFeatures: rf.nFeatures,
		Trees:     rf.trees,
		State:     rf.state.GetState(),
	})
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder.
func (rf *RandomForestClassifier) GobDecode(data []byte) error {
	var s classifierSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "RandomForestClassifier.GobDecode")
	}
	rf.forestConfig = s.Config.restore()
	rf.classes = s.Classes
	rf.nFeatures = s.NFeatures
	rf.setTrees(s.Trees)
	rf.state = model.NewStateManager()
	rf.state.SetState(s.State)
	return nil
}

func uniqueSorted(values []float64) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
