package ensemble

import (
	"bytes"
	"encoding/gob"
	"time"

	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/core/parallel"
	"github.com/approachingml/aamlp/metrics"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
	"github.com/approachingml/aamlp/sklearn/tree"
	"gonum.org/v1/gonum/mat"
)

// RandomForestRegressor averages the predictions of bagged regression trees.
type RandomForestRegressor struct {
	forestConfig
	state *model.StateManager

	nFeatures   int
	trees       []*tree.DecisionTreeRegressor
	importances []float64
}

// NewRandomForestRegressor creates a forest of 100 squared-error trees
// that consider every feature at each split.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		forestConfig: defaultConfig("squared_error", "all"),
		state:        model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(&rf.forestConfig)
	}
	return rf
}

func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	if err := rf.validate(); err != nil {
		return err
	}
	Xd, targets, err := checkXY("RandomForestRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	start := time.Now()
	r, c := Xd.Dims()

	seeds := rf.treeSeeds()
	trees := make([]*tree.DecisionTreeRegressor, rf.nEstimators)
	err = parallel.ForEach(rf.nEstimators, rf.nJobs, "RandomForestRegressor.Fit", func(i int) error {
		Xb, yb := rf.sample(Xd, targets, seeds[i])
		t := tree.NewDecisionTreeRegressor(rf.treeOptions(c, seeds[i])...)
		if err := t.Fit(Xb, yb); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
		trees[i] = t
		return nil
	})
	if err != nil {
		return err
	}

	rf.nFeatures = c
	rf.setTrees(trees)
	rf.state.SetDimensions(c, r)
	rf.state.SetFitted()

	log.GetLogger().Info("forest fitted",
		log.ModelNameKey, "RandomForestRegressor",
		log.SamplesKey, r,
		log.FeaturesKey, c,
		"forest.n_estimators", rf.nEstimators,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func (rf *RandomForestRegressor) setTrees(trees []*tree.DecisionTreeRegressor) {
	rf.trees = trees
	perTree := make([][]float64, len(trees))
	for t, tr := range trees {
		perTree[t] = tr.GetFeatureImportances()
	}
	rf.importances = meanImportances(perTree, rf.nFeatures)
}

// Predict returns the mean tree prediction for each row.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !rf.state.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestRegressor", "Predict")
	}
	if X == nil {
		return nil, errors.NewValueError("RandomForestRegressor.Predict", "X must not be nil")
	}
	r, c := X.Dims()
	if c != rf.nFeatures {
		return nil, errors.NewDimensionError("RandomForestRegressor.Predict", rf.nFeatures, c, 1)
	}
	out := mat.NewDense(r, 1, nil)
	for _, tr := range rf.trees {
		p, err := tr.Predict(X)
		if err != nil {
			return nil, err
		}
		out.Add(out, p)
	}
	out.Scale(1/float64(len(rf.trees)), out)
	return out, nil
}

// Score returns R² on (X, y).
func (rf *RandomForestRegressor) Score(X, y mat.Matrix) float64 {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0
	}
	r2, err := metrics.R2Score(toVec(y), toVec(pred))
	if err != nil {
		return 0
	}
	return r2
}

func (rf *RandomForestRegressor) GetFeatureImportances() []float64 {
	return append([]float64(nil), rf.importances...)
}

// NEstimators returns the number of fitted trees.
func (rf *RandomForestRegressor) NEstimators() int { return len(rf.trees) }

func (rf *RandomForestRegressor) GetParams() map[string]interface{} {
	return rf.forestConfig.params()
}

func (rf *RandomForestRegressor) SetParams(params map[string]interface{}) error {
	return rf.forestConfig.setParams(params)
}

type regressorSnapshot struct {
	Config    configSnapshot
	NFeatures int
	Trees     []*tree.DecisionTreeRegressor
	State     model.ModelState
}

// GobEncode implements gob.GobEncoder.
func (rf *RandomForestRegressor) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(regressorSnapshot{
		Config:    rf.forestConfig.snapshot(),
		NFeatures: rf.nFeatures,
		Trees:     rf.trees,
		State:     rf.state.GetState(),
	})
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder.
func (rf *RandomForestRegressor) GobDecode(data []byte) error {
	var s regressorSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "RandomForestRegressor.GobDecode")
	}
	rf.forestConfig = s.Config.restore()
	rf.nFeatures = s.NFeatures
	rf.setTrees(s.Trees)
	rf.state = model.NewStateManager()
	rf.state.SetState(s.State)
	return nil
}
