package preprocessing

import (
	"fmt"
	"sort"

	"github.com/approachingml/aamlp/pkg/errors"
)

// OneHotEncoder expands categorical columns into binary indicator columns.
// Input is column-major: columns[j][i] is the value of column j in row i.
type OneHotEncoder struct {
	// HandleUnknown is "error" (default) or "ignore". Ignored categories
	// produce an all-zero block for that column.
	HandleUnknown string

	categories [][]string
	offsets    []int
	index      []map[string]int
}

// NewOneHotEncoder returns an encoder that rejects unknown categories.
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{HandleUnknown: "error"}
}

// Fit learns the sorted categories of every column.
func (e *OneHotEncoder) Fit(columns [][]string) error {
	if len(columns) == 0 || len(columns[0]) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "OneHotEncoder.Fit")
	}
	switch e.HandleUnknown {
	case "":
		e.HandleUnknown = "error"
	case "error", "ignore":
	default:
		return errors.NewValidationError("handle_unknown", "must be error or ignore", e.HandleUnknown)
	}
	n := len(columns[0])
	e.categories = make([][]string, len(columns))
	e.index = make([]map[string]int, len(columns))
	e.offsets = make([]int, len(columns)+1)
	for j, col := range columns {
		if len(col) != n {
			return errors.NewDimensionError("OneHotEncoder.Fit", n, len(col), 0)
		}
		seen := make(map[string]struct{})
		for _, v := range col {
			seen[v] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for v := range seen {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		e.categories[j] = cats
		e.index[j] = make(map[string]int, len(cats))
		for k, c := range cats {
			e.index[j][c] = k
		}
		e.offsets[j+1] = e.offsets[j] + len(cats)
	}
	return nil
}

// Transform returns the sparse indicator matrix.
func (e *OneHotEncoder) Transform(columns [][]string) (*SparseMatrix, error) {
	if e.index == nil {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	if len(columns) != len(e.categories) {
		return nil, errors.NewDimensionError("OneHotEncoder.Transform", len(e.categories), len(columns), 1)
	}
	n := len(columns[0])
	out := newSparseBuilder(n, e.offsets[len(e.categories)])
	cols := make([]int, 0, len(columns))
	ones := make([]float64, len(columns))
	for k := range ones {
		ones[k] = 1
	}
	for i := 0; i < n; i++ {
		cols = cols[:0]
		for j, col := range columns {
			if len(col) != n {
				return nil, errors.NewDimensionError("OneHotEncoder.Transform", n, len(col), 0)
			}
			k, ok := e.index[j][col[i]]
			if !ok {
				if e.HandleUnknown == "ignore" {
					continue
				}
				return nil, errors.NewValueError("OneHotEncoder.Transform",
					fmt.Sprintf("found unknown category %q in column %d", col[i], j))
			}
			cols = append(cols, e.offsets[j]+k)
		}
		if err := out.appendRow(cols, ones[:len(cols)]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FitTransform fits on columns and encodes them.
func (e *OneHotEncoder) FitTransform(columns [][]string) (*SparseMatrix, error) {
	if err := e.Fit(columns); err != nil {
		return nil, err
	}
	return e.Transform(columns)
}

// Categories returns the learned categories per input column.
func (e *OneHotEncoder) Categories() [][]string {
	return e.categories
}

// FeatureNames names output columns "<input>_<category>". When inputNames
// is nil the inputs are called x0, x1, ...
func (e *OneHotEncoder) FeatureNames(inputNames []string) []string {
	if e.index == nil {
		return nil
	}
	names := make([]string, 0, e.offsets[len(e.categories)])
	for j, cats := range e.categories {
		prefix := fmt.Sprintf("x%d", j)
		if j < len(inputNames) {
			prefix = inputNames[j]
		}
		for _, c := range cats {
			names = append(names, prefix+"_"+c)
		}
	}
	return names
}
