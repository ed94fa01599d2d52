package preprocessing

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/approachingml/aamlp/pkg/errors"
)

// DefaultFillValue replaces missing categorical cells before encoding.
const DefaultFillValue = "NONE"

// IsMissing reports whether a raw CSV cell represents a missing value.
func IsMissing(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "NaN", "nan", "NA", "null":
		return true
	}
	return false
}

// FillNA returns a copy of values with missing cells replaced by fill.
func FillNA(values []string, fill string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if IsMissing(v) {
			out[i] = fill
		} else {
			out[i] = v
		}
	}
	return out
}

// LabelEncoder maps string categories to integers 0..n-1 in sorted order.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// NewLabelEncoder returns an unfitted encoder.
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit learns the sorted set of distinct values.
func (e *LabelEncoder) Fit(values []string) error {
	if len(values) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "LabelEncoder.Fit")
	}
	seen := make(map[string]struct{})
	for _, v := range values {
		seen[v] = struct{}{}
	}
	e.classes = make([]string, 0, len(seen))
	for v := range seen {
		e.classes = append(e.classes, v)
	}
	sort.Strings(e.classes)
	e.index = make(map[string]int, len(e.classes))
	for i, c := range e.classes {
		e.index[c] = i
	}
	return nil
}

// Transform encodes values; a value not seen during Fit is an error.
func (e *LabelEncoder) Transform(values []string) ([]int, error) {
	if e.index == nil {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}
	out := make([]int, len(values))
	for i, v := range values {
		code, ok := e.index[v]
		if !ok {
			return nil, errors.NewValueError("LabelEncoder.Transform", fmt.Sprintf("y contains previously unseen label %q", v))
		}
		out[i] = code
	}
	return out, nil
}

// FitTransform fits on values and encodes them.
func (e *LabelEncoder) FitTransform(values []string) ([]int, error) {
	if err := e.Fit(values); err != nil {
		return nil, err
	}
	return e.Transform(values)
}

// InverseTransform maps codes back to their categories.
func (e *LabelEncoder) InverseTransform(codes []int) ([]string, error) {
	if e.index == nil {
		return nil, errors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		if c < 0 || c >= len(e.classes) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform", fmt.Sprintf("code %d out of range", c))
		}
		out[i] = e.classes[c]
	}
	return out, nil
}

// Classes returns the learned categories in code order.
func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

// OrdinalMap is an explicit category → value mapping, e.g. ordering
// temperature labels from "Freezing" to "Lava Hot".
type OrdinalMap map[string]float64

// Transform maps each value; unmapped values (including missing) become NaN.
func (m OrdinalMap) Transform(values []string) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if code, ok := m[v]; ok {
			out[i] = code
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// RareCategoryGrouper replaces categories seen fewer than Threshold times
// with Replacement.
type RareCategoryGrouper struct {
	Threshold   int
	Replacement string

	counts map[string]int
}

// NewRareCategoryGrouper returns a grouper that replaces with "RARE".
func NewRareCategoryGrouper(threshold int) *RareCategoryGrouper {
	return &RareCategoryGrouper{Threshold: threshold, Replacement: "RARE"}
}

// Fit counts category occurrences.
func (g *RareCategoryGrouper) Fit(values []string) error {
	if g.Threshold < 1 {
		return errors.NewValidationError("threshold", "must be at least 1", g.Threshold)
	}
	g.counts = make(map[string]int)
	for _, v := range values {
		g.counts[v]++
	}
	return nil
}

// Transform applies the replacement. Categories unseen during Fit have a
// count of zero and are therefore rare.
func (g *RareCategoryGrouper) Transform(values []string) ([]string, error) {
	if g.counts == nil {
		return nil, errors.NewNotFittedError("RareCategoryGrouper", "Transform")
	}
	out := make([]string, len(values))
	for i, v := range values {
		if g.counts[v] < g.Threshold {
			out[i] = g.Replacement
		} else {
			out[i] = v
		}
	}
	return out, nil
}

// FitTransform fits on values and transforms them.
func (g *RareCategoryGrouper) FitTransform(values []string) ([]string, error) {
	if err := g.Fit(values); err != nil {
		return nil, err
	}
	return g.Transform(values)
}
