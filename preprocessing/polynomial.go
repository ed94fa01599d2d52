package preprocessing

import (
	"strconv"
	"strings"

	"github.com/approachingml/aamlp/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// PolynomialFeatures generates all monomials of the input features up to
// Degree. Output columns are ordered by degree, then lexicographically by
// feature index: 1, a, b, a², ab, b² for two features and degree 2.
type PolynomialFeatures struct {
	Degree          int
	InteractionOnly bool
	IncludeBias     bool

	nFeatures int
	combos    [][]int
}

// NewPolynomialFeatures returns a transformer with a bias column.
func NewPolynomialFeatures(degree int) *PolynomialFeatures {
	return &PolynomialFeatures{Degree: degree, IncludeBias: true}
}

// Fit enumerates the output monomials for X's feature count.
func (p *PolynomialFeatures) Fit(X mat.Matrix) error {
	if p.Degree < 0 {
		return errors.NewValidationError("degree", "must be non-negative", p.Degree)
	}
	_, c := X.Dims()
	if c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "PolynomialFeatures.Fit")
	}
	p.nFeatures = c
	p.combos = nil
	start := 1
	if p.IncludeBias {
		start = 0
	}
	for d := start; d <= p.Degree; d++ {
		p.combos = append(p.combos, combinations(c, d, !p.InteractionOnly)...)
	}
	if len(p.combos) == 0 {
		return errors.NewValidationError("degree", "produces no output features", p.Degree)
	}
	return nil
}

// Transform evaluates every monomial on X.
func (p *PolynomialFeatures) Transform(X mat.Matrix) (mat.Matrix, error) {
	if p.nFeatures == 0 {
		return nil, errors.NewNotFittedError("PolynomialFeatures", "Transform")
	}
	r, c := X.Dims()
	if c != p.nFeatures {
		return nil, errors.NewDimensionError("PolynomialFeatures.Transform", p.nFeatures, c, 1)
	}
	out := mat.NewDense(r, len(p.combos), nil)
	for i := 0; i < r; i++ {
		for k, combo := range p.combos {
			v := 1.0
			for _, j := range combo {
				v *= X.At(i, j)
			}
			out.Set(i, k, v)
		}
	}
	return out, nil
}

// FitTransform fits on X and transforms it.
func (p *PolynomialFeatures) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X)
}

// NOutputFeatures is the number of generated columns.
func (p *PolynomialFeatures) NOutputFeatures() int { return len(p.combos) }

// FeatureNames names each monomial, e.g. "1", "a", "a^2", "a b".
func (p *PolynomialFeatures) FeatureNames(inputNames []string) []string {
	names := make([]string, len(p.combos))
	for k, combo := range p.combos {
		if len(combo) == 0 {
			names[k] = "1"
			continue
		}
		var parts []string
		for i := 0; i < len(combo); {
			j := i
			for j < len(combo) && combo[j] == combo[i] {
				j++
			}
			name := featureName(inputNames, combo[i])
			if j-i > 1 {
				name += "^" + strconv.Itoa(j-i)
			}
			parts = append(parts, name)
			i = j
		}
		names[k] = strings.Join(parts, " ")
	}
	return names
}

// combinations lists index tuples of length d over [0, n) in lexicographic
// order, non-decreasing when repeat is true and strictly increasing otherwise.
func combinations(n, d int, repeat bool) [][]int {
	var out [][]int
	cur := make([]int, 0, d)
	var rec func(start int)
	rec = func(start int) {
		if len(cur) == d {
			out = append(out, append([]int(nil), cur...))
			return
		}
		for i := start; i < n; i++ {
			cur = append(cur, i)
			if repeat {
				rec(i)
			} else {
				rec(i + 1)
			}
			cur = cur[:len(cur)-1]
		}
	}
	rec(0)
	return out
}

func featureName(names []string, j int) string {
	if j < len(names) {
		return names[j]
	}
	return "x" + strconv.Itoa(j)
}
