package tree

import (
	"bytes"
	"encoding/gob"
	"sort"

	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// DecisionTreeClassifier is a CART classifier using Gini impurity or
// entropy. Class labels can be any float values; they are sorted and
// PredictProba columns follow that order.
type DecisionTreeClassifier struct {
	treeConfig
	state *model.StateManager

	classes     []float64
	nClasses_   int
	nFeatures   int
	nodes       []Node
	importances []float64
	depth       int
}

// NewDecisionTreeClassifier creates a classifier. Defaults match
// scikit-learn: gini, unlimited depth, min_samples_split 2, min_samples_leaf 1.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		treeConfig: defaultConfig("gini"),
		state:      model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(&dt.treeConfig)
	}
	return dt
}

func (dt *DecisionTreeClassifier) validate() error {
	switch dt.criterion {
	case "gini", "entropy", "log_loss":
	default:
		return errors.NewValidationError("criterion", "must be gini or entropy", dt.criterion)
	}
	return validateConfig(&dt.treeConfig)
}

func validateConfig(c *treeConfig) error {
	if c.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", c.minSamplesSplit)
	}
	if c.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", c.minSamplesLeaf)
	}
	return nil
}

// Fit grows the tree on X (n_samples × n_features) and labels y (n × 1).
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	if err := dt.validate(); err != nil {
		return err
	}
	Xd, labels, err := checkXY("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}

	dt.classes = sortedUnique(labels)
	dt.nClasses_ = len(dt.classes)
	index := make(map[float64]int, len(dt.classes))
	for k, c := range dt.classes {
		index[c] = k
	}
	encoded := make([]float64, len(labels))
	for i, l := range labels {
		encoded[i] = float64(index[l])
	}

	b := newBuilder(dt.treeConfig, Xd, encoded, dt.nClasses_)
	b.build(allSamples(len(labels)), 0)

	r, c := Xd.Dims()
	dt.nFeatures = c
	dt.nodes = b.nodes
	dt.importances = normalizedImportances(b.importances)
	dt.depth = b.depth
	dt.state.SetDimensions(c, r)
	dt.state.SetFitted()

	log.GetLogger().Debug("tree fitted",
		log.ModelNameKey, "DecisionTreeClassifier",
		log.SamplesKey, r,
		log.ClassesKey, dt.nClasses_,
		"tree.depth", dt.depth,
		"tree.leaves", countLeaves(dt.nodes),
	)
	return nil
}

func (dt *DecisionTreeClassifier) checkPredict(method string, X mat.Matrix) (int, error) {
	if !dt.state.IsFitted() {
		return 0, errors.NewNotFittedError("DecisionTreeClassifier", method)
	}
	if X == nil {
		return 0, errors.NewValueError("DecisionTreeClassifier."+method, "X must not be nil")
	}
	r, c := X.Dims()
	if c != dt.nFeatures {
		return 0, errors.NewDimensionError("DecisionTreeClassifier."+method, dt.nFeatures, c, 1)
	}
	return r, nil
}

// Predict returns the most probable class of each row as an n × 1 matrix.
// Ties resolve to the smallest label.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, err := dt.checkPredict("Predict", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, dt.classes[argmax(apply(dt.nodes, X, i).Value)])
	}
	return out, nil
}

// PredictProba returns the class distribution of the leaf each row reaches.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	r, err := dt.checkPredict("PredictProba", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(r, dt.nClasses_, nil)
	for i := 0; i < r; i++ {
		out.SetRow(i, apply(dt.nodes, X, i).Value)
	}
	return out, nil
}

// Score returns the accuracy on (X, y); 0 when prediction fails.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	return accuracy(pred, y)
}

// Classes returns the sorted class labels seen during Fit.
func (dt *DecisionTreeClassifier) Classes() []float64 {
	return append([]float64(nil), dt.classes...)
}

// GetFeatureImportances returns normalized impurity decreases per feature.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.importances...)
}

// GetDepth returns the depth of the fitted tree (root only = 0).
func (dt *DecisionTreeClassifier) GetDepth() int { return dt.depth }

// GetNLeaves returns the number of leaves.
func (dt *DecisionTreeClassifier) GetNLeaves() int { return countLeaves(dt.nodes) }

// IsFitted reports whether Fit has completed.
func (dt *DecisionTreeClassifier) IsFitted() bool { return dt.state.IsFitted() }

// GetParams returns hyperparameters by scikit-learn name.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return dt.treeConfig.params()
}

// SetParams updates hyperparameters by scikit-learn name.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	return dt.treeConfig.setParams(params)
}

// classifierSnapshot is the gob form of a fitted classifier.
type classifierSnapshot struct {
	Config      configSnapshot
	Classes     []float64
	NFeatures   int
	Nodes       []Node
	Importances []float64
	Depth       int
	State       model.ModelState
}

// GobEncode implements gob.GobEncoder.
func (dt *DecisionTreeClassifier) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(classifierSnapshot{
		Config:      dt.treeConfig.snapshot(),
		Classes:     dt.classes,
		NFeatures:   dt.nFeatures,
		Nodes:       dt.nodes,
		Importances: dt.importances,
		Depth:       dt.depth,
		State:       dt.state.GetState(),
	})
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder.
func (dt *DecisionTreeClassifier) GobDecode(data []byte) error {
	var s classifierSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "DecisionTreeClassifier.GobDecode")
	}
	dt.treeConfig = s.Config.restore()
	dt.classes = s.Classes
	dt.nClasses_ = len(s.Classes)
	dt.nFeatures = s.NFeatures
	dt.nodes = s.Nodes
	dt.importances = s.Importances
	dt.depth = s.Depth
	dt.state = model.NewStateManager()
	dt.state.SetState(s.State)
	return nil
}

func argmax(v []float64) int {
	best := 0
	for k := 1; k < len(v); k++ {
		if v[k] > v[best] {
			best = k
		}
	}
	return best
}

func sortedUnique(values []float64) []float64 {
	seen := make(map[float64]struct{})
	out := make([]float64, 0)
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
