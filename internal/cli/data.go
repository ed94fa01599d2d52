package cli

import (
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/approachingml/aamlp/dataset"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/preprocessing"
)

// table is a frame split into model inputs.
type table struct {
	X     *mat.Dense
	y     *mat.VecDense
	names []string
}

// targetVector parses the target column. Non-numeric targets are label
// encoded so string classes work too.
func targetVector(f *dataset.Frame, target string) (*mat.VecDense, error) {
	if v, err := f.Vector(target); err == nil {
		return v, nil
	}
	raw, err := f.Column(target)
	if err != nil {
		return nil, err
	}
	codes, err := preprocessing.NewLabelEncoder().FitTransform(preprocessing.FillNA(raw, preprocessing.DefaultFillValue))
	if err != nil {
		return nil, errors.Wrapf(err, "encode target %q", target)
	}
	y := mat.NewVecDense(len(codes), nil)
	for i, c := range codes {
		y.SetVec(i, float64(c))
	}
	return y, nil
}

// splitTable separates the target and the bookkeeping columns from the
// features.
func (c *CLI) splitTable(f *dataset.Frame) (*table, error) {
	if f.Len() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "load dataset")
	}
	y, err := targetVector(f, c.cfg.Target)
	if err != nil {
		return nil, err
	}
	drop := append([]string{c.cfg.Target, c.cfg.FoldColumn}, c.cfg.DropColumns...)
	features := f.DropColumns(drop...)
	names := features.Columns()
	if len(names) == 0 {
		return nil, errors.NewValueError("splitTable", "no feature columns left after dropping "+strconv.Quote(c.cfg.Target))
	}
	X, err := features.Matrix()
	if err != nil {
		return nil, err
	}
	return &table{X: X, y: y, names: names}, nil
}

// rows returns the sub-table at idx.
func (t *table) rows(idx []int) *table {
	_, c := t.X.Dims()
	X := mat.NewDense(len(idx), c, nil)
	y := mat.NewVecDense(len(idx), nil)
	for k, i := range idx {
		X.SetRow(k, t.X.RawRowView(i))
		y.SetVec(k, t.y.AtVec(i))
	}
	return &table{X: X, y: y, names: t.names}
}

// foldIndices splits rows into training (fold column != fold) and
// validation (== fold) indices.
func (c *CLI) foldIndices(f *dataset.Frame, fold int) (train, valid []int, err error) {
	folds, err := f.IntColumn(c.cfg.FoldColumn)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read fold column; run the folds command first")
	}
	for i, k := range folds {
		if k == fold {
			valid = append(valid, i)
		} else {
			train = append(train, i)
		}
	}
	if len(valid) == 0 || len(train) == 0 {
		return nil, nil, errors.NewValueError("foldIndices", "fold "+strconv.Itoa(fold)+" leaves an empty training or validation set")
	}
	return train, valid, nil
}

func vecOf(m mat.Matrix) *mat.VecDense {
	r, _ := m.Dims()
	return mat.NewVecDense(r, mat.Col(nil, 0, m))
}
