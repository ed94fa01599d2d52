// Package linear_model provides L2-regularized logistic regression, the
// baseline classifier for one-hot encoded categorical data.
package linear_model

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// LogisticRegression fits one sigmoid per class with batch gradient
// descent. Binary problems fit a single weight vector for the larger
// label; multiclass problems use one-vs-rest and softmax the scores.
type LogisticRegression struct {
	state *model.StateManager

	penalty      string  // "l2" or "none"
	C            float64 // inverse regularization strength
	fitIntercept bool
	classWeight  string // "balanced" or "none"
	randomState  int64  // < 0 draws a fresh seed
	maxIter      int
	tol          float64

	coef_      [][]float64 // 1 × n_features for binary, n_classes × n_features otherwise
	intercept_ []float64
	classes_   []float64
	nClasses_  int
	nFeatures_ int
	nIter_     []int
}

// LogisticRegressionOption is a functional option for LogisticRegression.
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a classifier with scikit-learn defaults
// (l2, C=1, max_iter=100, tol=1e-4).
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		classWeight:  "none",
		randomState:  -1,
		maxIter:      100,
		tol:          1e-4,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithLRPenalty sets the regularization type.
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.penalty = penalty }
}

// WithLRC sets the inverse regularization strength.
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.C = c }
}

// WithLogisticFitIntercept disables the bias term when fit is false.
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.fitIntercept = fit }
}

// WithLRClassWeight sets "balanced" to reweight samples inversely to
// class frequency.
func WithLRClassWeight(mode string) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.classWeight = mode }
}

func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.maxIter = maxIter }
}

func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.tol = tol }
}

// WithLRRandomState seeds the weight initialization.
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.randomState = seed }
}

func (lr *LogisticRegression) validate() error {
	switch lr.penalty {
	case "l2", "none":
	default:
		return errors.NewValidationError("penalty", "must be l2 or none", lr.penalty)
	}
	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}
	if lr.maxIter < 1 {
		return errors.NewValidationError("max_iter", "must be at least 1", lr.maxIter)
	}
	switch lr.classWeight {
	case "balanced", "none", "":
	default:
		return errors.NewValidationError("class_weight", "must be balanced or none", lr.classWeight)
	}
	return nil
}

// Fit trains the model on X and labels y (n × 1).
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	if err := lr.validate(); err != nil {
		return err
	}
	if X == nil || y == nil {
		return errors.NewValueError("LogisticRegression.Fit", "X and y must not be nil")
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != nSamples {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("LogisticRegression.Fit", 1, yCols, 1)
	}

	labels := mat.Col(nil, 0, y)
	lr.extractClasses(labels)
	if lr.nClasses_ < 2 {
		return errors.NewValueError("LogisticRegression.Fit", "y must contain at least two classes")
	}
	lr.nFeatures_ = nFeatures
	lr.initializeWeights(nFeatures)

	Xd := mat.DenseCopyOf(X)
	weights := lr.sampleWeights(labels)
	if lr.nClasses_ == 2 {
		lr.fitBinary(Xd, indicator(labels, lr.classes_[1]), weights, 0)
	} else {
		for k, class := range lr.classes_ {
			lr.fitBinary(Xd, indicator(labels, class), weights, k)
		}
	}

	lr.state.SetDimensions(nFeatures, nSamples)
	lr.state.SetFitted()
	log.GetLogger().Debug("model fitted",
		log.ModelNameKey, "LogisticRegression",
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, lr.nClasses_,
		log.IterationKey, lr.nIter_,
	)
	return nil
}

func (lr *LogisticRegression) extractClasses(labels []float64) {
	seen := make(map[float64]struct{})
	lr.classes_ = lr.classes_[:0]
	for _, l := range labels {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			lr.classes_ = append(lr.classes_, l)
		}
	}
	sort.Float64s(lr.classes_)
	lr.nClasses_ = len(lr.classes_)
}

// initializeWeights draws small normal weights.
func (lr *LogisticRegression) initializeWeights(nFeatures int) {
	n := lr.nClasses_
	if n == 2 {
		n = 1
	}
	seed := uint64(lr.randomState)
	if lr.randomState < 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	lr.coef_ = make([][]float64, n)
	for k := range lr.coef_ {
		lr.coef_[k] = make([]float64, nFeatures)
		for j := range lr.coef_[k] {
			lr.coef_[k][j] = rng.NormFloat64() * 0.01
		}
	}
	lr.intercept_ = make([]float64, n)
	lr.nIter_ = make([]int, n)
}

// sampleWeights returns n/(k·n_c) per sample for "balanced", else 1.
func (lr *LogisticRegression) sampleWeights(labels []float64) []float64 {
	w := make([]float64, len(labels))
	if lr.classWeight != "balanced" {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	counts := make(map[float64]int)
	for _, l := range labels {
		counts[l]++
	}
	for i, l := range labels {
		w[i] = float64(len(labels)) / (float64(lr.nClasses_) * float64(counts[l]))
	}
	return w
}

func indicator(labels []float64, positive float64) *mat.VecDense {
	t := mat.NewVecDense(len(labels), nil)
	for i, l := range labels {
		if l == positive {
			t.SetVec(i, 1)
		}
	}
	return t
}

// fitBinary runs gradient descent on row k of the coefficients with a
// 1/(1+0.1·iter) learning-rate decay.
func (lr *LogisticRegression) fitBinary(X *mat.Dense, target *mat.VecDense, sampleWeight []float64, k int) {
	nSamples, nFeatures := X.Dims()
	w := mat.NewVecDense(nFeatures, lr.coef_[k])
	b := lr.intercept_[k]

	z := mat.NewVecDense(nSamples, nil)
	residual := mat.NewVecDense(nSamples, nil)
	grad := mat.NewVecDense(nFeatures, nil)
	converged := false

	for iter := 0; iter < lr.maxIter; iter++ {
		z.MulVec(X, w)
		var gradIntercept float64
		for i := 0; i < nSamples; i++ {
			r := (sigmoid(z.AtVec(i)+b) - target.AtVec(i)) * sampleWeight[i]
			residual.SetVec(i, r)
			gradIntercept += r
		}
		grad.MulVec(X.T(), residual)
		grad.ScaleVec(1/float64(nSamples), grad)
		gradIntercept /= float64(nSamples)
		if lr.penalty == "l2" {
			grad.AddScaledVec(grad, 1/lr.C, w)
		}

		rate := 1.0 / (1.0 + 0.1*float64(iter))
		w.AddScaledVec(w, -rate, grad)
		if lr.fitIntercept {
			b -= rate * gradIntercept
		}
		lr.nIter_[k] = iter + 1

		maxGrad := math.Abs(gradIntercept)
		for j := 0; j < nFeatures; j++ {
			maxGrad = math.Max(maxGrad, math.Abs(grad.AtVec(j)))
		}
		if maxGrad < lr.tol {
			converged = true
			break
		}
	}
	lr.intercept_[k] = b
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter, ""))
	}
}

// decision returns the linear scores, one column per coefficient row.
func (lr *LogisticRegression) decision(method string, X mat.Matrix) (*mat.Dense, error) {
	if !lr.state.IsFitted() {
		return nil, errors.NewNotFittedError("LogisticRegression", method)
	}
	if X == nil {
		return nil, errors.NewValueError("LogisticRegression."+method, "X must not be nil")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != lr.nFeatures_ {
		return nil, errors.NewDimensionError("LogisticRegression."+method, lr.nFeatures_, nFeatures, 1)
	}
	coef := mat.NewDense(len(lr.coef_), lr.nFeatures_, nil)
	for k, row := range lr.coef_ {
		coef.SetRow(k, row)
	}
	scores := mat.NewDense(nSamples, len(lr.coef_), nil)
	scores.Mul(X, coef.T())
	scores.Apply(func(_, j int, v float64) float64 { return v + lr.intercept_[j] }, scores)
	return scores, nil
}

// Predict returns the most probable class per row.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.decision("Predict", X)
	if err != nil {
		return nil, err
	}
	nSamples, _ := scores.Dims()
	out := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		if lr.nClasses_ == 2 {
			if sigmoid(scores.At(i, 0)) >= 0.5 {
				out.Set(i, 0, lr.classes_[1])
			} else {
				out.Set(i, 0, lr.classes_[0])
			}
			continue
		}
		best := 0
		for k := 1; k < lr.nClasses_; k++ {
			if scores.At(i, k) > scores.At(i, best) {
				best = k
			}
		}
		out.Set(i, 0, lr.classes_[best])
	}
	return out, nil
}

// PredictProba returns class probabilities with columns in Classes order.
// Multiclass scores are normalized with softmax.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.decision("PredictProba", X)
	if err != nil {
		return nil, err
	}
	nSamples, _ := scores.Dims()
	probas := mat.NewDense(nSamples, lr.nClasses_, nil)
	for i := 0; i < nSamples; i++ {
		if lr.nClasses_ == 2 {
			p := sigmoid(scores.At(i, 0))
			probas.Set(i, 0, 1-p)
			probas.Set(i, 1, p)
			continue
		}
		row := scores.RawRowView(i)
		maxScore := row[0]
		for _, s := range row[1:] {
			maxScore = math.Max(maxScore, s)
		}
		var sum float64
		for k, s := range row {
			e := math.Exp(s - maxScore)
			probas.Set(i, k, e)
			sum += e
		}
		for k := range row {
			probas.Set(i, k, probas.At(i, k)/sum)
		}
	}
	return probas, nil
}

// Score returns the mean accuracy on (X, y).
func (lr *LogisticRegression) Score(X, y mat.Matrix) float64 {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0
	}
	nSamples, _ := predictions.Dims()
	if nSamples == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples)
}

// Classes returns the sorted labels seen during Fit.
func (lr *LogisticRegression) Classes() []float64 {
	return append([]float64(nil), lr.classes_...)
}

// Coef returns a copy of the fitted coefficients.
func (lr *LogisticRegression) Coef() [][]float64 {
	out := make([][]float64, len(lr.coef_))
	for k, row := range lr.coef_ {
		out[k] = append([]float64(nil), row...)
	}
	return out
}

// NIter returns the gradient steps taken per fitted row.
func (lr *LogisticRegression) NIter() []int { return append([]int(nil), lr.nIter_...) }

// GetParams returns hyperparameters by scikit-learn name.
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"class_weight":  lr.classWeight,
		"random_state":  lr.randomState,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
	}
}

// SetParams updates hyperparameters by scikit-learn name.
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "penalty":
			lr.penalty, err = model.StringParam(key, value)
		case "class_weight":
			lr.classWeight, err = model.StringParam(key, value)
		case "C":
			lr.C, err = model.FloatParam(key, value)
		case "tol":
			lr.tol, err = model.FloatParam(key, value)
		case "fit_intercept":
			lr.fitIntercept, err = model.BoolParam(key, value)
		case "max_iter":
			lr.maxIter, err = model.IntParam(key, value)
		case "random_state":
			var seed int
			seed, err = model.IntParam(key, value)
			lr.randomState = int64(seed)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type logisticSnapshot struct {
	Penalty      string
	C            float64
	FitIntercept bool
	ClassWeight  string
	RandomState  int64
	MaxIter      int
	Tol          float64
	Coef         [][]float64
	Intercept    []float64
	Classes      []float64
	NFeatures    int
	NIter        []int
	State        model.ModelState
}

// GobEncode implements gob.GobEncoder.
func (lr *LogisticRegression) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(logisticSnapshot{
		Penalty:      lr.penalty,
		C:            lr.C,
		FitIntercept: lr.fitIntercept,
		ClassWeight:  lr.classWeight,
		RandomState:  lr.randomState,
		MaxIter:      lr.maxIter,
		Tol:          lr.tol,
		Coef:         lr.coef_,
		Intercept:    lr.intercept_,
		Classes:      lr.classes_,
		NFeatures:    lr.nFeatures_,
		NIter:        lr.nIter_,
		State:        lr.state.GetState(),
	})
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder.
func (lr *LogisticRegression) GobDecode(data []byte) error {
	var s logisticSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "LogisticRegression.GobDecode")
	}
	lr.penalty, lr.C, lr.fitIntercept = s.Penalty, s.C, s.FitIntercept
	lr.classWeight, lr.randomState = s.ClassWeight, s.RandomState
	lr.maxIter, lr.tol = s.MaxIter, s.Tol
	lr.coef_, lr.intercept_ = s.Coef, s.Intercept
	lr.classes_, lr.nClasses_ = s.Classes, len(s.Classes)
	lr.nFeatures_, lr.nIter_ = s.NFeatures, s.NIter
	lr.state = model.NewStateManager()
	lr.state.SetState(s.State)
	return nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
