// Package model_selection assigns cross-validation folds and searches
// hyperparameters with cross-validated scores.
package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/approachingml/aamlp/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Splitter produces train/test index sets for cross-validation.
type Splitter interface {
	Split(X, y mat.Matrix) ([]Fold, error)
	GetNSplits() int
}

// Fold represents a single fold in cross-validation
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, randomSeed uint64) *KFold {
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split partitions the rows into NSplits consecutive test folds. The first
// n % NSplits folds receive one extra sample. X may be nil when y is given.
func (kf *KFold) Split(X, y mat.Matrix) ([]Fold, error) {
	nSamples, err := samplesOf(X, y)
	if err != nil {
		return nil, err
	}
	if err := checkNSplits(kf.NSplits, nSamples); err != nil {
		return nil, err
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := newRand(kf.RandomSeed)
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	testFold := make([]int, nSamples)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits
	current := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		for _, idx := range indices[current : current+testSize] {
			testFold[idx] = i
		}
		current += testSize
	}
	return foldsFromAssignment(testFold, kf.NSplits), nil
}

// StratifiedKFold implements stratified k-fold cross-validation.
// Each fold keeps approximately the class proportions of y.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed uint64) *StratifiedKFold {
	return &StratifiedKFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split allocates samples so that every fold receives the per-class counts
// obtained by dealing the labels round-robin over the folds, classes taken
// in order of first appearance. Within a
// class, samples keep their row order (or a seeded shuffle of it) and fill
// fold 0 first.
func (skf *StratifiedKFold) Split(X, y mat.Matrix) ([]Fold, error) {
	if y == nil {
		return nil, errors.NewValueError("StratifiedKFold.Split", "y is required for stratification")
	}
	nSamples, err := samplesOf(X, y)
	if err != nil {
		return nil, err
	}
	if err := checkNSplits(skf.NSplits, nSamples); err != nil {
		return nil, err
	}

	classes, encoded := encodeLabels(y, nSamples)
	counts := make([]int, len(classes))
	for _, c := range encoded {
		counts[c]++
	}
	maxCount := 0
	for _, c := range counts {
		maxCount = max(maxCount, c)
	}
	if maxCount < skf.NSplits {
		return nil, errors.NewValidationError("n_splits",
			"cannot be greater than the number of members in each class", skf.NSplits)
	}

	// allocation[f][c]: how many samples of class c go to test fold f
	order := make([]int, nSamples)
	copy(order, encoded)
	sort.Ints(order)
	allocation := make([][]int, skf.NSplits)
	for f := range allocation {
		allocation[f] = make([]int, len(classes))
		for i := f; i < nSamples; i += skf.NSplits {
			allocation[f][order[i]]++
		}
	}

	var r *rand.Rand
	if skf.Shuffle {
		r = newRand(skf.RandomSeed)
	}
	testFold := make([]int, nSamples)
	for c := range classes {
		foldsForClass := make([]int, 0, counts[c])
		for f := 0; f < skf.NSplits; f++ {
			for j := 0; j < allocation[f][c]; j++ {
				foldsForClass = append(foldsForClass, f)
			}
		}
		if r != nil {
			r.Shuffle(len(foldsForClass), func(i, j int) {
				foldsForClass[i], foldsForClass[j] = foldsForClass[j], foldsForClass[i]
			})
		}
		k := 0
		for i, e := range encoded {
			if e == c {
				testFold[i] = foldsForClass[k]
				k++
			}
		}
	}
	return foldsFromAssignment(testFold, skf.NSplits), nil
}

// SturgesBins returns floor(1 + log2(n)), the number of bins Sturges' rule
// suggests for n samples.
func SturgesBins(n int) int {
	if n <= 1 {
		return 1
	}
	return int(math.Floor(1 + math.Log2(float64(n))))
}

// AssignFolds returns the test fold index of every row. Every row appears
// in exactly one test fold, so the result is a partition of [0, n).
func AssignFolds(splitter Splitter, X, y mat.Matrix) ([]int, error) {
	folds, err := splitter.Split(X, y)
	if err != nil {
		return nil, err
	}
	n, err := samplesOf(X, y)
	if err != nil {
		return nil, err
	}
	assignment := make([]int, n)
	for i := range assignment {
		assignment[i] = -1
	}
	for f, fold := range folds {
		for _, idx := range fold.TestIndices {
			assignment[idx] = f
		}
	}
	return assignment, nil
}

func foldsFromAssignment(testFold []int, nSplits int) []Fold {
	folds := make([]Fold, nSplits)
	for f := range folds {
		folds[f] = Fold{TrainIndices: make([]int, 0, len(testFold)), TestIndices: make([]int, 0)}
	}
	for idx, f := range testFold {
		for g := range folds {
			if g == f {
				folds[g].TestIndices = append(folds[g].TestIndices, idx)
			} else {
				folds[g].TrainIndices = append(folds[g].TrainIndices, idx)
			}
		}
	}
	return folds
}

func samplesOf(X, y mat.Matrix) (int, error) {
	var n int
	switch {
	case X != nil:
		n, _ = X.Dims()
		if y != nil {
			if ny, _ := y.Dims(); ny != n {
				return 0, errors.NewDimensionError("Split", n, ny, 0)
			}
		}
	case y != nil:
		n, _ = y.Dims()
	default:
		return 0, errors.NewValueError("Split", "X and y are both nil")
	}
	if n == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, "Split")
	}
	return n, nil
}

func checkNSplits(nSplits, nSamples int) error {
	if nSplits < 2 {
		return errors.NewValidationError("n_splits", "must be at least 2", nSplits)
	}
	if nSplits > nSamples {
		return errors.NewValidationError("n_splits", "cannot be greater than the number of samples", nSplits)
	}
	return nil
}

// encodeLabels maps the first column of y to dense class indices in order
// of first appearance, the order scikit-learn allocates classes in.
func encodeLabels(y mat.Matrix, n int) ([]float64, []int) {
	index := make(map[float64]int)
	classes := make([]float64, 0)
	encoded := make([]int, n)
	for i := 0; i < n; i++ {
		v := y.At(i, 0)
		c, ok := index[v]
		if !ok {
			c = len(classes)
			index[v] = c
			classes = append(classes, v)
		}
		encoded[i] = c
	}
	return classes, encoded
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}
