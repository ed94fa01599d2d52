package model_selection

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"

	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// ParamGrid maps a hyperparameter name to its candidate values.
type ParamGrid map[string][]interface{}

// maxGridCandidates bounds the grids GridSearchCV enumerates.
const maxGridCandidates = 1 << 24

// size returns the number of combinations, saturating at math.MaxInt.
func (g ParamGrid) size() int {
	total := 1
	for _, values := range g {
		if len(values) == 0 {
			return 0
		}
		if total > math.MaxInt/len(values) {
			return math.MaxInt
		}
		total *= len(values)
	}
	return total
}

// combination decodes idx (mixed radix over the sorted keys) into a
// parameter map.
func (g ParamGrid) combination(keys []string, idx int) map[string]interface{} {
	params := make(map[string]interface{}, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		values := g[keys[i]]
		params[keys[i]] = values[idx%len(values)]
		idx /= len(values)
	}
	return params
}

func (g ParamGrid) validate() error {
	if len(g) == 0 {
		return errors.NewValidationError("param_grid", "must not be empty", nil)
	}
	for name, values := range g {
		if len(values) == 0 {
			return errors.NewValidationError(name, "has no candidate values", values)
		}
	}
	return nil
}

// CandidateResult is the cross-validated outcome of one configuration.
type CandidateResult struct {
	Params    map[string]interface{}
	Scores    []float64
	MeanScore float64
	StdScore  float64
	Rank      int
}

// searchCore holds the fields shared by GridSearchCV and RandomizedSearchCV.
type searchCore struct {
	Factory model.Factory
	CV      Splitter
	Scoring string
	NJobs   int
	Refit   bool

	BestParams    map[string]interface{}
	BestScore     float64
	BestIndex     int
	BestEstimator model.Estimator
	Results       []CandidateResult
}

func (s *searchCore) run(op string, candidates []map[string]interface{}, X, y mat.Matrix) error {
	if s.Factory == nil {
		return errors.NewValueError(op, "Factory is required")
	}
	if s.CV == nil {
		s.CV = NewKFold(5, false, 0)
	}
	if s.Scoring == "" {
		s.Scoring = "accuracy"
	}
	scorer, err := GetScorer(s.Scoring)
	if err != nil {
		return err
	}
	logger := log.GetLogger().With(log.ComponentKey, "model_selection", log.OperationKey, op)

	s.Results = make([]CandidateResult, len(candidates))
	s.BestIndex = -1
	for i, params := range candidates {
		cv, err := CrossValidate(s.Factory, params, X, y, s.CV, scorer, s.NJobs)
		if err != nil {
			return errors.Wrapf(err, "%s: candidate %d (%v)", op, i, params)
		}
		s.Results[i] = CandidateResult{
			Params:    params,
			Scores:    cv.TestScores,
			MeanScore: cv.MeanScore(),
			StdScore:  cv.StdScore(),
		}
		logger.Info("candidate evaluated",
			log.CandidateKey, i,
			log.ParamsKey, fmt.Sprint(params),
			log.ScoreKey, s.Results[i].MeanScore,
		)
		if s.BestIndex < 0 || s.Results[i].MeanScore > s.BestScore {
			s.BestIndex = i
			s.BestScore = s.Results[i].MeanScore
		}
	}
	s.rank()
	s.BestParams = s.Results[s.BestIndex].Params

	if !s.Refit {
		return nil
	}
	best, err := s.Factory(s.BestParams)
	if err != nil {
		return errors.Wrap(err, op+": refit")
	}
	if err := best.Fit(X, y); err != nil {
		return errors.Wrap(err, op+": refit")
	}
	s.BestEstimator = best
	return nil
}

// rank assigns 1 to the highest mean score; ties share the lower rank.
func (s *searchCore) rank() {
	order := make([]int, len(s.Results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.Results[order[a]].MeanScore > s.Results[order[b]].MeanScore
	})
	for pos, idx := range order {
		r := pos + 1
		if pos > 0 && s.Results[idx].MeanScore == s.Results[order[pos-1]].MeanScore {
			r = s.Results[order[pos-1]].Rank
		}
		s.Results[idx].Rank = r
	}
}

// Predict delegates to the refitted best estimator.
func (s *searchCore) Predict(X mat.Matrix) (mat.Matrix, error) {
	if s.BestEstimator == nil {
		return nil, errors.NewNotFittedError("search", "Predict")
	}
	return s.BestEstimator.Predict(X)
}

// GridSearchCV evaluates every combination of ParamGrid.
type GridSearchCV struct {
	searchCore
	ParamGrid ParamGrid
}

// NewGridSearchCV creates a grid search that refits the best configuration.
func NewGridSearchCV(factory model.Factory, grid ParamGrid, cv Splitter, scoring string) *GridSearchCV {
	return &GridSearchCV{
		searchCore: searchCore{Factory: factory, CV: cv, Scoring: scoring, Refit: true},
		ParamGrid:  grid,
	}
}

// Fit runs the search.
func (g *GridSearchCV) Fit(X, y mat.Matrix) error {
	if err := g.ParamGrid.validate(); err != nil {
		return err
	}
	keys := slices.Sorted(maps.Keys(g.ParamGrid))
	total := g.ParamGrid.size()
	if total > maxGridCandidates {
		// size saturates at math.MaxInt, so this also catches overflowing grids
		return errors.NewValidationError("param_grid", fmt.Sprintf("has more than %d combinations; use RandomizedSearchCV", maxGridCandidates), total)
	}
	candidates := make([]map[string]interface{}, total)
	for i := range candidates {
		candidates[i] = g.ParamGrid.combination(keys, i)
	}
	return g.run("GridSearchCV", candidates, X, y)
}

// RandomizedSearchCV samples NIter distinct configurations from
// ParamDistributions. When NIter covers the whole grid every combination is
// evaluated once.
type RandomizedSearchCV struct {
	searchCore
	ParamDistributions ParamGrid
	NIter              int
	RandomSeed         uint64
}

// NewRandomizedSearchCV creates a randomized search that refits the best configuration.
func NewRandomizedSearchCV(factory model.Factory, dists ParamGrid, nIter int, cv Splitter, scoring string, seed uint64) *RandomizedSearchCV {
	return &RandomizedSearchCV{
		searchCore:         searchCore{Factory: factory, CV: cv, Scoring: scoring, Refit: true},
		ParamDistributions: dists,
		NIter:              nIter,
		RandomSeed:         seed,
	}
}

// Fit runs the search.
func (rs *RandomizedSearchCV) Fit(X, y mat.Matrix) error {
	if err := rs.ParamDistributions.validate(); err != nil {
		return err
	}
	if rs.NIter < 1 {
		return errors.NewValidationError("n_iter", "must be at least 1", rs.NIter)
	}
	keys := slices.Sorted(maps.Keys(rs.ParamDistributions))
	total := rs.ParamDistributions.size()

	var picks []int
	if rs.NIter >= total {
		picks = make([]int, total)
		for i := range picks {
			picks[i] = i
		}
	} else {
		r := newRand(rs.RandomSeed)
		seen := make(map[int]struct{}, rs.NIter)
		for len(picks) < rs.NIter {
			idx := r.IntN(total)
			if _, dup := seen[idx]; dup {
				continue
			}
			seen[idx] = struct{}{}
			picks = append(picks, idx)
		}
	}

	candidates := make([]map[string]interface{}, len(picks))
	for i, idx := range picks {
		candidates[i] = rs.ParamDistributions.combination(keys, idx)
	}
	return rs.run("RandomizedSearchCV", candidates, X, y)
}
