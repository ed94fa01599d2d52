package tree

import (
	"bytes"
	"encoding/gob"

	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// DecisionTreeRegressor is a CART regressor minimizing squared error.
type DecisionTreeRegressor struct {
	treeConfig
	state *model.StateManager

	nFeatures   int
	nodes       []Node
	importances []float64
	depth       int
}

// NewDecisionTreeRegressor creates a regressor with criterion "squared_error".
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		treeConfig: defaultConfig("squared_error"),
		state:      model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(&dt.treeConfig)
	}
	return dt
}

// Fit grows the tree on X and continuous targets y.
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	switch dt.criterion {
	case "squared_error", "mse":
	default:
		return errors.NewValidationError("criterion", "must be squared_error", dt.criterion)
	}
	if err := validateConfig(&dt.treeConfig); err != nil {
		return err
	}
	Xd, targets, err := checkXY("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}

	b := newBuilder(dt.treeConfig, Xd, targets, 0)
	b.build(allSamples(len(targets)), 0)

	r, c := Xd.Dims()
	dt.nFeatures = c
	dt.nodes = b.nodes
	dt.importances = normalizedImportances(b.importances)
	dt.depth = b.depth
	dt.state.SetDimensions(c, r)
	dt.state.SetFitted()

	log.GetLogger().Debug("tree fitted",
		log.ModelNameKey, "DecisionTreeRegressor",
		log.SamplesKey, r,
		"tree.depth", dt.depth,
	)
	return nil
}

// Predict returns the leaf mean for each row as an n × 1 matrix.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !dt.state.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeRegressor", "Predict")
	}
	if X == nil {
		return nil, errors.NewValueError("DecisionTreeRegressor.Predict", "X must not be nil")
	}
	r, c := X.Dims()
	if c != dt.nFeatures {
		return nil, errors.NewDimensionError("DecisionTreeRegressor.Predict", dt.nFeatures, c, 1)
	}
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, apply(dt.nodes, X, i).Value[0])
	}
	return out, nil
}

// Score returns the coefficient of determination R² on (X, y).
func (dt *DecisionTreeRegressor) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	r, _ := y.Dims()
	var mean float64
	for i := 0; i < r; i++ {
		mean += y.At(i, 0)
	}
	mean /= float64(r)
	var ssRes, ssTot float64
	for i := 0; i < r; i++ {
		d := y.At(i, 0) - pred.At(i, 0)
		ssRes += d * d
		t := y.At(i, 0) - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// GetFeatureImportances returns normalized variance reductions per feature.
func (dt *DecisionTreeRegressor) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.importances...)
}

// GetDepth returns the depth of the fitted tree.
func (dt *DecisionTreeRegressor) GetDepth() int { return dt.depth }

// GetNLeaves returns the number of leaves.
func (dt *DecisionTreeRegressor) GetNLeaves() int { return countLeaves(dt.nodes) }

// GetParams returns hyperparameters by scikit-learn name.
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return dt.treeConfig.params()
}

// SetParams updates hyperparameters by scikit-learn name.
func (dt *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	return dt.treeConfig.setParams(params)
}

type regressorSnapshot struct {
	Config      configSnapshot
	NFeatures   int
	Nodes       []Node
	Importances []float64
	Depth       int
	State       model.ModelState
}

// GobEncode implements gob.GobEncoder.
func (dt *DecisionTreeRegressor) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(regressorSnapshot{
		Config:      dt.treeConfig.snapshot(),
		NFeatures:   dt.nFeatures,
		Nodes:       dt.nodes,
		Importances: dt.importances,
		Depth:       dt.depth,
		State:       dt.state.GetState(),
	})
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder.
func (dt *DecisionTreeRegressor) GobDecode(data []byte) error {
	var s regressorSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "DecisionTreeRegressor.GobDecode")
	}
	dt.treeConfig = s.Config.restore()
	dt.nFeatures = s.NFeatures
	dt.nodes = s.Nodes
	dt.importances = s.Importances
	dt.depth = s.Depth
	dt.state = model.NewStateManager()
	dt.state.SetState(s.State)
	return nil
}
