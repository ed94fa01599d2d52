// Package decomposition projects data onto its leading singular vectors.
// PCA centers the data first; TruncatedSVD does not, so it also works on
// sparse one-hot matrices.
package decomposition

import (
	"math"

	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// TruncatedSVD keeps the top NComponents right singular vectors of X.
type TruncatedSVD struct {
	model.StateManager

	NComponents int

	// Components is NComponents × n_features, one direction per row.
	Components *mat.Dense
	// SingularValues in decreasing order.
	SingularValues []float64
	// ExplainedVariance of each projected column of the training data.
	ExplainedVariance      []float64
	ExplainedVarianceRatio []float64
}

// NewTruncatedSVD creates a TruncatedSVD with k components.
func NewTruncatedSVD(k int) *TruncatedSVD {
	return &TruncatedSVD{NComponents: k}
}

func (t *TruncatedSVD) Fit(X mat.Matrix) error {
	_, err := t.FitTransform(X)
	return err
}

// FitTransform fits on X and returns its projection (U_k Σ_k).
func (t *TruncatedSVD) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	r, c, err := checkComponents("TruncatedSVD", X, t.NComponents)
	if err != nil {
		return nil, err
	}
	Xd := mat.DenseCopyOf(X)
	components, values, err := topSingularVectors("TruncatedSVD", Xd, t.NComponents)
	if err != nil {
		return nil, err
	}
	t.Components = components
	t.SingularValues = values

	projected := project(Xd, components)
	t.ExplainedVariance = columnVariances(projected)
	total := 0.0
	for _, v := range columnVariances(Xd) {
		total += v
	}
	t.ExplainedVarianceRatio = ratios(t.ExplainedVariance, total)

	t.SetDimensions(c, r)
	t.SetFitted()
	log.GetLogger().Debug("decomposition fitted",
		log.ModelNameKey, "TruncatedSVD",
		log.SamplesKey, r,
		log.FeaturesKey, c,
		"decomposition.components", t.NComponents,
	)
	return projected, nil
}

// Transform projects X onto the fitted components.
func (t *TruncatedSVD) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := checkTransform("TruncatedSVD", &t.StateManager, X); err != nil {
		return nil, err
	}
	return project(X, t.Components), nil
}

// PCA is principal component analysis via the SVD of the centered data.
type PCA struct {
	model.StateManager

	NComponents int

	Mean                   []float64
	Components             *mat.Dense
	SingularValues         []float64
	ExplainedVariance      []float64
	ExplainedVarianceRatio []float64
}

// NewPCA creates a PCA with k components.
//
//	pca := decomposition.NewPCA(2)
//	X2, err := pca.FitTransform(pixels)
func NewPCA(k int) *PCA {
	return &PCA{NComponents: k}
}

func (p *PCA) Fit(X mat.Matrix) error {
	_, err := p.FitTransform(X)
	return err
}

// FitTransform centers X, fits the components and returns the scores.
func (p *PCA) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	r, c, err := checkComponents("PCA", X, p.NComponents)
	if err != nil {
		return nil, err
	}
	if r < 2 {
		return nil, errors.NewValueError("PCA.Fit", "need at least two samples")
	}
	p.Mean = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		p.Mean[j] = stat.Mean(col, nil)
	}
	centered := p.center(X)

	components, values, err := topSingularVectors("PCA", centered, p.NComponents)
	if err != nil {
		return nil, err
	}
	p.Components = components
	p.SingularValues = values

	// total variance from the centered columns, not only the kept singular values
	var total float64
	for _, v := range columnVariances(centered) {
		total += v * float64(r) / float64(r-1)
	}
	p.ExplainedVariance = make([]float64, len(values))
	for k, s := range values {
		p.ExplainedVariance[k] = s * s / float64(r-1)
	}
	p.ExplainedVarianceRatio = ratios(p.ExplainedVariance, total)

	p.SetDimensions(c, r)
	p.SetFitted()
	log.GetLogger().Debug("decomposition fitted",
		log.ModelNameKey, "PCA",
		log.SamplesKey, r,
		log.FeaturesKey, c,
		"decomposition.components", p.NComponents,
	)
	return project(centered, components), nil
}

// Transform centers X with the training mean and projects it.
func (p *PCA) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := checkTransform("PCA", &p.StateManager, X); err != nil {
		return nil, err
	}
	return project(p.center(X), p.Components), nil
}

// InverseTransform maps scores back to feature space.
func (p *PCA) InverseTransform(Z mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("PCA", "InverseTransform")
	}
	_, k := Z.Dims()
	if k != p.NComponents {
		return nil, errors.NewDimensionError("PCA.InverseTransform", p.NComponents, k, 1)
	}
	var out mat.Dense
	out.Mul(Z, p.Components)
	out.Apply(func(_, j int, v float64) float64 { return v + p.Mean[j] }, &out)
	return &out, nil
}

func (p *PCA) center(X mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(X)
	out.Apply(func(_, j int, v float64) float64 { return v - p.Mean[j] }, out)
	return out
}

func checkComponents(name string, X mat.Matrix, k int) (int, int, error) {
	if X == nil {
		return 0, 0, errors.NewValueError(name+".Fit", "X must not be nil")
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return 0, 0, errors.NewModelError(name+".Fit", "empty data", errors.ErrEmptyData)
	}
	if k < 1 || k > min(r, c) {
		return 0, 0, errors.NewValidationError("n_components", "must be in [1, min(n_samples, n_features)]", k)
	}
	return r, c, nil
}

func checkTransform(name string, state *model.StateManager, X mat.Matrix) error {
	if !state.IsFitted() {
		return errors.NewNotFittedError(name, "Transform")
	}
	if X == nil {
		return errors.NewValueError(name+".Transform", "X must not be nil")
	}
	nFeatures, _ := state.GetDimensions()
	if _, c := X.Dims(); c != nFeatures {
		return errors.NewDimensionError(name+".Transform", nFeatures, c, 1)
	}
	return nil
}

// topSingularVectors returns the first k rows of Vᵀ and their singular
// values. Each row's sign is fixed so its largest-magnitude entry is
// positive, making results independent of the LAPACK sign choice.
func topSingularVectors(name string, X *mat.Dense, k int) (*mat.Dense, []float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(X, mat.SVDThin); !ok {
		return nil, nil, errors.NewModelError(name+".Fit", "svd did not converge", errors.ErrSingularMatrix)
	}
	values := svd.Values(nil)[:k]
	var v mat.Dense
	svd.VTo(&v)
	_, c := X.Dims()
	components := mat.NewDense(k, c, nil)
	for i := 0; i < k; i++ {
		row := mat.Col(nil, i, &v)
		big := 0
		for j := range row {
			if math.Abs(row[j]) > math.Abs(row[big]) {
				big = j
			}
		}
		if row[big] < 0 {
			for j := range row {
				row[j] = -row[j]
			}
		}
		components.SetRow(i, row)
	}
	return components, values, nil
}

func project(X mat.Matrix, components *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(X, components.T())
	return &out
}

func columnVariances(X mat.Matrix) []float64 {
	r, c := X.Dims()
	out := make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		_, out[j] = stat.PopMeanVariance(col, nil)
	}
	return out
}

func ratios(values []float64, total float64) []float64 {
	out := make([]float64, len(values))
	if total <= 0 {
		return out
	}
	for i, v := range values {
		out[i] = v / total
	}
	return out
}
