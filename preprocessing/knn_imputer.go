package preprocessing

import (
	"math"
	"sort"

	"github.com/approachingml/aamlp/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// KNNImputer fills NaN cells with the mean of that feature over the
// NNeighbors nearest training rows that observe it. Distances ignore
// coordinates missing in either row and are scaled up by
// nFeatures / nPresent. A cell without any usable donor gets the column
// mean; columns that are entirely NaN in the training data stay NaN.
type KNNImputer struct {
	NNeighbors int

	train    *mat.Dense
	colMeans []float64
}

// NewKNNImputer returns an imputer using k neighbours.
func NewKNNImputer(k int) *KNNImputer {
	return &KNNImputer{NNeighbors: k}
}

// Fit stores the donor rows and per-column means.
func (imp *KNNImputer) Fit(X mat.Matrix) error {
	if imp.NNeighbors < 1 {
		return errors.NewValidationError("n_neighbors", "must be at least 1", imp.NNeighbors)
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "KNNImputer.Fit")
	}
	imp.train = mat.DenseCopyOf(X)
	imp.colMeans = make([]float64, c)
	for j := 0; j < c; j++ {
		var sum float64
		var count int
		for i := 0; i < r; i++ {
			if v := imp.train.At(i, j); !math.IsNaN(v) {
				sum += v
				count++
			}
		}
		imp.colMeans[j] = math.NaN()
		if count > 0 {
			imp.colMeans[j] = sum / float64(count)
		}
	}
	return nil
}

// Transform returns a copy of X with NaN cells imputed.
func (imp *KNNImputer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if imp.train == nil {
		return nil, errors.NewNotFittedError("KNNImputer", "Transform")
	}
	r, c := X.Dims()
	_, trainCols := imp.train.Dims()
	if c != trainCols {
		return nil, errors.NewDimensionError("KNNImputer.Transform", trainCols, c, 1)
	}
	out := mat.DenseCopyOf(X)
	nTrain, _ := imp.train.Dims()
	type neighbour struct {
		row  int
		dist float64
	}

	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		var missing []int
		for j, v := range row {
			if math.IsNaN(v) {
				missing = append(missing, j)
			}
		}
		if len(missing) == 0 {
			continue
		}
		query := mat.Row(nil, i, X)

		dists := make([]neighbour, 0, nTrain)
		for t := 0; t < nTrain; t++ {
			d := nanEuclidean(query, imp.train.RawRowView(t))
			if !math.IsNaN(d) {
				dists = append(dists, neighbour{t, d})
			}
		}
		sort.SliceStable(dists, func(a, b int) bool { return dists[a].dist < dists[b].dist })

		for _, j := range missing {
			var sum float64
			var used int
			for _, nb := range dists {
				v := imp.train.At(nb.row, j)
				if math.IsNaN(v) {
					continue
				}
				sum += v
				used++
				if used == imp.NNeighbors {
					break
				}
			}
			if used > 0 {
				row[j] = sum / float64(used)
			} else {
				row[j] = imp.colMeans[j]
			}
		}
	}
	return out, nil
}

// FitTransform fits on X and imputes it.
func (imp *KNNImputer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := imp.Fit(X); err != nil {
		return nil, err
	}
	return imp.Transform(X)
}

// nanEuclidean is the Euclidean distance over coordinates present in both
// rows, weighted by len(a)/present. It is NaN when no coordinate is shared.
func nanEuclidean(a, b []float64) float64 {
	var sum float64
	present := 0
	for k := range a {
		if math.IsNaN(a[k]) || math.IsNaN(b[k]) {
			continue
		}
		d := a[k] - b[k]
		sum += d * d
		present++
	}
	if present == 0 {
		return math.NaN()
	}
	return math.Sqrt(float64(len(a)) / float64(present) * sum)
}
