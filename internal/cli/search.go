package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/approachingml/aamlp/dataset"
	"github.com/approachingml/aamlp/internal/dispatcher"
	"github.com/approachingml/aamlp/model_selection"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
)

// searchSpaces holds the candidate values tried for each dispatcher model.
var searchSpaces = map[string]model_selection.ParamGrid{
	"rf": {
		"n_estimators": {100, 200, 300, 400},
		"max_depth":    {1, 2, 5, 7, 11, 15},
		"criterion":    {"gini", "entropy"},
	},
	"decision_tree_gini": {
		"max_depth":        {1, 2, 3, 5, 7, 11, 15},
		"min_samples_leaf": {1, 2, 5, 10},
	},
	"decision_tree_entropy": {
		"max_depth":        {1, 2, 3, 5, 7, 11, 15},
		"min_samples_leaf": {1, 2, 5, 10},
	},
	"logreg": {
		"C":       {0.01, 0.1, 1.0, 10.0},
		"penalty": {"l2", "none"},
	},
}

type searchOptions struct {
	input, modelName, method, scoring string
	nIter, cv                         int
}

func (c *CLI) newSearchCommand() *cobra.Command {
	var o searchOptions
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Cross-validated hyperparameter search",
		Example: `  aamlp search --input input/mobile_train.csv --target price_range
  aamlp search --input input/mobile_train.csv --method grid --model decision_tree_gini`,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.input = orDefault(o.input, c.cfg.TrainingFile)
			if !cmd.Flags().Changed("cv") {
				o.cv = c.cfg.NSplits
			}
			return c.runSearch(cmd, o)
		},
	}
	cmd.Flags().StringVar(&o.input, "input", "", "Training CSV (default: training_file)")
	cmd.Flags().StringVar(&o.modelName, "model", "rf", "Model name from the dispatcher")
	cmd.Flags().StringVar(&o.method, "method", "random", "random or grid")
	cmd.Flags().StringVar(&o.scoring, "scoring", "accuracy", "Scorer name")
	cmd.Flags().IntVar(&o.nIter, "n-iter", 10, "Configurations sampled by the random search")
	cmd.Flags().IntVar(&o.cv, "cv", 5, "Number of stratified folds")
	return cmd
}

func (c *CLI) runSearch(cmd *cobra.Command, o searchOptions) error {
	space, ok := searchSpaces[o.modelName]
	if !ok {
		return errors.NewValidationError("model", "no search space registered", o.modelName)
	}
	factory, err := dispatcher.Factory(o.modelName)
	if err != nil {
		return err
	}
	f, err := dataset.LoadCSV(o.input)
	if err != nil {
		return err
	}
	t, err := c.splitTable(f)
	if err != nil {
		return err
	}
	cv := model_selection.NewStratifiedKFold(o.cv, true, c.cfg.Seed)

	var (
		results   []model_selection.CandidateResult
		bestScore float64
		best      map[string]interface{}
	)
	switch o.method {
	case "random":
		rs := model_selection.NewRandomizedSearchCV(factory, space, o.nIter, cv, o.scoring, c.cfg.Seed)
		rs.Refit = false
		if err := rs.Fit(t.X, t.y); err != nil {
			return err
		}
		results, bestScore, best = rs.Results, rs.BestScore, rs.BestParams
	case "grid":
		gs := model_selection.NewGridSearchCV(factory, space, cv, o.scoring)
		gs.Refit = false
		if err := gs.Fit(t.X, t.y); err != nil {
			return err
		}
		results, bestScore, best = gs.Results, gs.BestScore, gs.BestParams
	default:
		return errors.NewValidationError("method", "must be random or grid", o.method)
	}

	log.GetLogger().Info("search finished",
		log.ComponentKey, "cli.search",
		log.ModelNameKey, o.modelName,
		log.ScoreKey, bestScore,
		log.ParamsKey, fmt.Sprint(best),
		"search.candidates", len(results),
	)
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Best score: %.4f\n", bestScore)
	fmt.Fprintln(w, "Best parameters set:")
	for _, name := range slices.Sorted(maps.Keys(best)) {
		fmt.Fprintf(w, "\t%s: %v\n", name, best[name])
	}
	return nil
}
