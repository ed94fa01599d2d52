package preprocessing

import (
	"math"

	"github.com/approachingml/aamlp/pkg/errors"
)

// Cut assigns each value to one of `bins` equal-width intervals spanning
// [min, max] and returns the 0-based bin index, like pandas.cut with
// labels=False. Intervals are closed on the right; the left edge is moved
// down by 0.1% of the range so the minimum lands in bin 0. NaN maps to -1.
func Cut(values []float64, bins int) ([]int, error) {
	if bins < 1 {
		return nil, errors.NewValidationError("bins", "must be at least 1", bins)
	}
	if len(values) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Cut")
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return nil, errors.NewValueError("Cut", "all values are NaN")
	}

	edges := make([]float64, bins+1)
	if lo == hi {
		adj := 0.001 * math.Abs(lo)
		if lo == 0 {
			adj = 0.001
		}
		lo, hi = lo-adj, hi+adj
		for i := range edges {
			edges[i] = lo + (hi-lo)*float64(i)/float64(bins)
		}
	} else {
		for i := range edges {
			edges[i] = lo + (hi-lo)*float64(i)/float64(bins)
		}
		edges[0] -= (hi - lo) * 0.001
	}
	edges[bins] = hi

	out := make([]int, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = -1
			continue
		}
		// smallest edge index j >= 1 with edges[j] >= v
		j := 1
		for j < bins && edges[j] < v {
			j++
		}
		out[i] = j - 1
	}
	return out, nil
}
