package linear_model

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/core/parallel"
	"github.com/approachingml/aamlp/metrics"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// LinearRegression is ordinary least squares solved with a QR
// factorization. Its coefficients drive recursive feature elimination.
type LinearRegression struct {
	state *model.StateManager

	fitIntercept bool

	coef_      []float64
	intercept_ float64
	nFeatures_ int
}

// LinearRegressionOption configures a LinearRegression.
type LinearRegressionOption func(*LinearRegression)

// WithLRFitIntercept sets whether an intercept is fitted.
func WithLRFitIntercept(fit bool) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.fitIntercept = fit
	}
}

// NewLinearRegression creates an unfitted model.
func NewLinearRegression(options ...LinearRegressionOption) *LinearRegression {
	lr := &LinearRegression{
		state:        model.NewStateManager(),
		fitIntercept: true,
	}
	for _, opt := range options {
		opt(lr)
	}
	return lr
}

// Rows at or below this count are processed sequentially.
const designParallelThreshold = 1000

// Fit solves min ||y - Xw - b||².
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	if X == nil || y == nil {
		return errors.NewValueError("LinearRegression.Fit", "X and y must not be nil")
	}
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if rows != yRows {
		return errors.NewDimensionError("LinearRegression.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("LinearRegression.Fit", 1, yCols, 1)
	}

	offset := 0
	if lr.fitIntercept {
		offset = 1
	}
	if rows < cols+offset {
		return errors.NewValueError("LinearRegression.Fit",
			fmt.Sprintf("need at least %d samples for %d coefficients", cols+offset, cols+offset))
	}

	// design matrix [1 | X]
	design := mat.NewDense(rows, cols+offset, nil)
	parallel.ParallelizeWithThreshold(rows, designParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			if offset == 1 {
				design.Set(i, 0, 1.0)
			}
			for j := 0; j < cols; j++ {
				design.Set(i, j+offset, X.At(i, j))
			}
		}
	})

	var qr mat.QR
	qr.Factorize(design)
	solution := mat.NewDense(cols+offset, 1, nil)
	if err := qr.SolveTo(solution, false, y); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "rank deficient design matrix", errors.ErrSingularMatrix)
	}

	lr.intercept_ = 0
	if offset == 1 {
		lr.intercept_ = solution.At(0, 0)
	}
	lr.coef_ = make([]float64, cols)
	for j := range lr.coef_ {
		lr.coef_[j] = solution.At(j+offset, 0)
	}
	lr.nFeatures_ = cols

	lr.state.SetDimensions(cols, rows)
	lr.state.SetFitted()
	log.GetLogger().Debug("model fitted",
		log.ModelNameKey, "LinearRegression",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
	)
	return nil
}

// Predict returns X·coef + intercept as an n×1 matrix.
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lr.state.IsFitted() {
		return nil, errors.NewNotFittedError("LinearRegression", "Predict")
	}
	if X == nil {
		return nil, errors.NewValueError("LinearRegression.Predict", "X must not be nil")
	}
	rows, cols := X.Dims()
	if cols != lr.nFeatures_ {
		return nil, errors.NewDimensionError("LinearRegression.Predict", lr.nFeatures_, cols, 1)
	}
	pred := mat.NewVecDense(rows, nil)
	pred.MulVec(X, mat.NewVecDense(cols, lr.coef_))
	for i := 0; i < rows; i++ {
		pred.SetVec(i, pred.AtVec(i)+lr.intercept_)
	}
	return mat.NewDense(rows, 1, pred.RawVector().Data), nil
}

// Score returns the coefficient of determination R².
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := y.Dims()
	return metrics.R2Score(mat.NewVecDense(rows, mat.Col(nil, 0, y)), mat.NewVecDense(rows, mat.Col(nil, 0, pred)))
}

// Coef returns the fitted weights.
func (lr *LinearRegression) Coef() []float64 {
	return append([]float64(nil), lr.coef_...)
}

// Intercept returns the fitted bias.
func (lr *LinearRegression) Intercept() float64 {
	return lr.intercept_
}

// IsFitted returns whether the model has been fitted
func (lr *LinearRegression) IsFitted() bool {
	return lr.state.IsFitted()
}

// GetParams returns the hyperparameters.
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{"fit_intercept": lr.fitIntercept}
}

// SetParams updates the hyperparameters.
func (lr *LinearRegression) SetParams(params map[string]interface{}) error {
	for name, value := range params {
		switch name {
		case "fit_intercept":
			v, err := model.BoolParam(name, value)
			if err != nil {
				return err
			}
			lr.fitIntercept = v
		default:
			return errors.NewValidationError(name, "unknown parameter for LinearRegression", value)
		}
	}
	return nil
}

type linearSnapshot struct {
	FitIntercept bool
	Coef         []float64
	Intercept    float64
	NFeatures    int
	State        model.ModelState
}

// GobEncode implements gob.GobEncoder.
func (lr *LinearRegression) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(linearSnapshot{
		FitIntercept: lr.fitIntercept,
		Coef:         lr.coef_,
		Intercept:    lr.intercept_,
		NFeatures:    lr.nFeatures_,
		State:        lr.state.GetState(),
	})
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder.
func (lr *LinearRegression) GobDecode(data []byte) error {
	var s linearSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "LinearRegression.GobDecode")
	}
	lr.fitIntercept, lr.coef_, lr.intercept_, lr.nFeatures_ = s.FitIntercept, s.Coef, s.Intercept, s.NFeatures
	lr.state = model.NewStateManager()
	lr.state.SetState(s.State)
	return nil
}

// String returns the string representation of the model
func (lr *LinearRegression) String() string {
	if !lr.state.IsFitted() {
		return fmt.Sprintf("LinearRegression(fit_intercept=%t)", lr.fitIntercept)
	}
	return fmt.Sprintf("LinearRegression(fit_intercept=%t, n_features=%d, fitted=true)", lr.fitIntercept, lr.nFeatures_)
}
