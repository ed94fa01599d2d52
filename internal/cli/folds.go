package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/approachingml/aamlp/dataset"
	"github.com/approachingml/aamlp/model_selection"
	"github.com/approachingml/aamlp/pkg/config"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
)

type foldsOptions struct {
	input    string
	output   string
	strategy string
	target   string
	nSplits  int
	seed     uint64
}

func (c *CLI) newFoldsCommand() *cobra.Command {
	var o foldsOptions
	cmd := &cobra.Command{
		Use:   "folds",
		Short: "Shuffle a training CSV and append a fold column",
		Example: `  aamlp folds --input_dataset input/train.csv --output_dataset input/train_folds.csv
  aamlp folds --input_dataset input/winequality.csv --output_dataset input/wine_folds.csv --strategy stratified --target quality
  aamlp folds --input_dataset input/houses.csv --output_dataset input/houses_folds.csv --strategy regression --target price`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("n-splits") {
				o.nSplits = c.cfg.NSplits
			}
			if !cmd.Flags().Changed("seed") {
				o.seed = c.cfg.Seed
			}
			o.strategy = orDefault(o.strategy, c.cfg.Strategy)
			o.target = orDefault(o.target, c.cfg.Target)
			return c.runFolds(cmd, o)
		},
	}
	cmd.Flags().StringVar(&o.input, "input_dataset", "", "CSV to split")
	cmd.Flags().StringVar(&o.output, "output_dataset", "", "Where to write the CSV with the fold column")
	cmd.Flags().StringVar(&o.strategy, "strategy", "", "kfold, stratified or regression")
	cmd.Flags().StringVar(&o.target, "target", "", "Target column for stratified strategies")
	cmd.Flags().IntVar(&o.nSplits, "n-splits", 5, "Number of folds")
	cmd.Flags().Uint64Var(&o.seed, "seed", 42, "Shuffle seed")
	_ = cmd.MarkFlagRequired("input_dataset")
	_ = cmd.MarkFlagRequired("output_dataset")
	return cmd
}

func (c *CLI) runFolds(cmd *cobra.Command, o foldsOptions) error {
	f, err := dataset.LoadCSV(o.input)
	if err != nil {
		return err
	}
	if f.Len() == 0 {
		return errors.Wrap(errors.ErrEmptyData, o.input)
	}
	f = f.Shuffle(o.seed)

	var folds []int
	switch o.strategy {
	case config.StrategyKFold:
		placeholder := mat.NewVecDense(f.Len(), nil)
		folds, err = model_selection.AssignFolds(model_selection.NewKFold(o.nSplits, false, 0), nil, placeholder)
	case config.StrategyStratified:
		var y *mat.VecDense
		if y, err = targetVector(f, o.target); err == nil {
			folds, err = model_selection.AssignFolds(model_selection.NewStratifiedKFold(o.nSplits, false, 0), nil, y)
		}
	case config.StrategyRegression:
		var target []float64
		if target, err = f.FloatColumn(o.target); err == nil {
			folds, err = model_selection.StratifiedRegressionFolds(target, o.nSplits, false, 0)
		}
	default:
		return errors.NewValidationError("strategy", "must be kfold, stratified or regression", o.strategy)
	}
	if err != nil {
		return err
	}

	if err := f.SetIntColumn(c.cfg.FoldColumn, folds); err != nil {
		return err
	}
	if err := f.SaveCSV(o.output); err != nil {
		return err
	}
	log.GetLogger().Info("folds written",
		log.ComponentKey, "cli.folds",
		log.PathKey, o.output,
		log.SamplesKey, f.Len(),
		log.StrategyKey, o.strategy,
		log.NSplitsKey, o.nSplits,
	)
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows in %d %s folds to %s\n", f.Len(), o.nSplits, o.strategy, o.output)
	return nil
}
