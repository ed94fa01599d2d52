package metrics

import (
	"math"
	"sort"

	"github.com/approachingml/aamlp/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// NDCG computes the normalized discounted cumulative gain at k.
// Items are ranked by yPred in descending order and the gain of an item
// with relevance r at position i (0-based) is (2^r - 1) / log2(i + 2).
// k = -1 evaluates the whole list. Relevance must be non-negative; a list
// without any relevant item scores 0.
func NDCG(yTrue, yPred *mat.VecDense, k int) (float64, error) {
	const op = "NDCG"
	n, err := checkPair(op, yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if k == 0 || k < -1 {
		return 0, errors.NewValidationError("k", "must be positive or -1", k)
	}
	if k == -1 || k > n {
		k = n
	}

	pairs := make([]struct {
		score     float64
		relevance float64
	}, n)
	for i := 0; i < n; i++ {
		rel := yTrue.AtVec(i)
		if rel < 0 {
			return 0, errors.NewValueError(op, "relevance scores must be non-negative")
		}
		pairs[i].score = yPred.AtVec(i)
		pairs[i].relevance = rel
	}

	ideal := make([]struct {
		score     float64
		relevance float64
	}, n)
	copy(ideal, pairs)

	sort.SliceStable(pairs, func(a, b int) bool { return pairs[a].score > pairs[b].score })
	sort.SliceStable(ideal, func(a, b int) bool { return ideal[a].relevance > ideal[b].relevance })

	idcg := dcg(ideal, k)
	if idcg == 0 {
		return 0, nil
	}
	return dcg(pairs, k) / idcg, nil
}

// dcg sums the discounted gains of the first k pairs in their given order.
func dcg(pairs []struct {
	score     float64
	relevance float64
}, k int) float64 {
	var sum float64
	for i := 0; i < k && i < len(pairs); i++ {
		sum += (math.Pow(2, pairs[i].relevance) - 1) / math.Log2(float64(i+2))
	}
	return sum
}

// NDCGMatrix computes NDCG on the first column of each matrix.
func NDCGMatrix(yTrue, yPred mat.Matrix, k int) (float64, error) {
	t, err := firstColumn("NDCGMatrix", yTrue)
	if err != nil {
		return 0, err
	}
	p, err := firstColumn("NDCGMatrix", yPred)
	if err != nil {
		return 0, err
	}
	return NDCG(t, p, k)
}

// AveragePrecision ranks items by yPred and averages the precision at
// each relevant position. yTrue must be binary.
func AveragePrecision(yTrue, yPred *mat.VecDense) (float64, error) {
	const op = "AveragePrecision"
	n, err := checkPair(op, yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary(op, yTrue); err != nil {
		return 0, err
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return yPred.AtVec(order[a]) > yPred.AtVec(order[b])
	})

	var hits, sum float64
	for rank, i := range order {
		if yTrue.AtVec(i) == 1 {
			hits++
			sum += hits / float64(rank+1)
		}
	}
	if hits == 0 {
		return 0, nil
	}
	return sum / hits, nil
}

// MeanAveragePrecision averages AveragePrecision over several queries.
func MeanAveragePrecision(yTrueList, yPredList []*mat.VecDense) (float64, error) {
	const op = "MeanAveragePrecision"
	if len(yTrueList) == 0 {
		return 0, errors.NewValueError(op, "empty query list")
	}
	if len(yTrueList) != len(yPredList) {
		return 0, errors.NewDimensionError(op, len(yTrueList), len(yPredList), 0)
	}
	var sum float64
	for i := range yTrueList {
		ap, err := AveragePrecision(yTrueList[i], yPredList[i])
		if err != nil {
			return 0, errors.Wrapf(err, "query %d", i)
		}
		sum += ap
	}
	return sum / float64(len(yTrueList)), nil
}

// PrecisionAtK returns the share of the first k predicted items that appear
// in actual. The denominator is the number of predicted items actually
// considered, so a list shorter than k is not penalized. k = 0 or an empty
// prediction list yields 0.
func PrecisionAtK(actual, predicted []int, k int) float64 {
	if k <= 0 {
		return 0
	}
	if k > len(predicted) {
		k = len(predicted)
	}
	if k == 0 {
		return 0
	}
	want := make(map[int]struct{}, len(actual))
	for _, a := range actual {
		want[a] = struct{}{}
	}
	seen := make(map[int]struct{}, k)
	for _, p := range predicted[:k] {
		if _, ok := want[p]; ok {
			seen[p] = struct{}{}
		}
	}
	return float64(len(seen)) / float64(k)
}

// AveragePrecisionAtK is the mean of PrecisionAtK(actual, predicted, i)
// for i = 1..k.
func AveragePrecisionAtK(actual, predicted []int, k int) float64 {
	if k <= 0 {
		return 0
	}
	var sum float64
	for i := 1; i <= k; i++ {
		sum += PrecisionAtK(actual, predicted, i)
	}
	return sum / float64(k)
}

// MeanAveragePrecisionAtK averages AveragePrecisionAtK over samples.
func MeanAveragePrecisionAtK(actual, predicted [][]int, k int) (float64, error) {
	const op = "MeanAveragePrecisionAtK"
	if len(actual) == 0 {
		return 0, errors.NewValueError(op, "no samples")
	}
	if len(actual) != len(predicted) {
		return 0, errors.NewDimensionError(op, len(actual), len(predicted), 0)
	}
	var sum float64
	for i := range actual {
		sum += AveragePrecisionAtK(actual[i], predicted[i], k)
	}
	return sum / float64(len(actual)), nil
}
