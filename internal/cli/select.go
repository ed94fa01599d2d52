package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/approachingml/aamlp/dataset"
	"github.com/approachingml/aamlp/feature_selection"
	"github.com/approachingml/aamlp/internal/dispatcher"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
)

type selectOptions struct {
	input, output, method, modelName string
	threshold                        float64
	nFeatures                        int
}

func (c *CLI) newSelectCommand() *cobra.Command {
	var o selectOptions
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Keep the most useful features",
		Example: `  aamlp select --input input/train.csv --method correlation --threshold 0.85
  aamlp select --input input/train.csv --method model --model rf --output input/selected.csv
  aamlp select --input input/train.csv --method variance --threshold 0.1
  aamlp select --input input/train.csv --method rfe --model logreg --n-features 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSelect(cmd, o)
		},
	}
	cmd.Flags().StringVar(&o.input, "input", "", "Training CSV")
	cmd.Flags().StringVar(&o.output, "output", "", "Optional CSV with only the kept features, target and fold columns")
	cmd.Flags().StringVar(&o.method, "method", "correlation", "correlation, model, variance or rfe")
	cmd.Flags().StringVar(&o.modelName, "model", "rf", "Model for --method model and rfe")
	cmd.Flags().IntVar(&o.nFeatures, "n-features", 0, "Features kept by --method rfe; 0 keeps half")
	cmd.Flags().Float64Var(&o.threshold, "threshold", 0, "Cut-off; correlation defaults to 0.85, model to the mean importance")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (c *CLI) runSelect(cmd *cobra.Command, o selectOptions) error {
	f, err := dataset.LoadCSV(o.input)
	if err != nil {
		return err
	}
	t, err := c.splitTable(f)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	var keep []int
	switch o.method {
	case "correlation":
		if o.threshold == 0 {
			o.threshold = 0.85
		}
		pairs, err := feature_selection.HighCorrelationPairs(t.X, t.names, o.threshold)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			fmt.Fprintln(w, p.String())
		}
		if keep, err = feature_selection.DropCorrelated(t.X, o.threshold); err != nil {
			return err
		}
	case "model":
		est, err := dispatcher.New(o.modelName, nil)
		if err != nil {
			return err
		}
		ie, ok := est.(feature_selection.ImportanceEstimator)
		if !ok {
			return errors.NewValueError("select", o.modelName+" does not report feature importances")
		}
		sfm := feature_selection.NewSelectFromModel(ie)
		sfm.Threshold = o.threshold
		if err := sfm.Fit(t.X, t.y); err != nil {
			return err
		}
		keep = sfm.SelectedIndices()
	case "variance":
		vt := feature_selection.NewVarianceThreshold(o.threshold)
		if err := vt.Fit(t.X); err != nil {
			return err
		}
		keep = vt.SelectedIndices()
	case "rfe":
		est, err := dispatcher.New(o.modelName, nil)
		if err != nil {
			return err
		}
		rfe := feature_selection.NewRFE(est, o.nFeatures)
		if err := rfe.Fit(t.X, t.y); err != nil {
			return err
		}
		keep = rfe.SelectedIndices()
	default:
		return errors.NewValidationError("method", "must be correlation, model, variance or rfe", o.method)
	}

	kept := make([]string, len(keep))
	for i, j := range keep {
		kept[i] = t.names[j]
	}
	log.GetLogger().Info("features selected",
		log.ComponentKey, "cli.select",
		log.FeaturesKey, len(t.names),
		"selection.kept", len(kept),
		"selection.method", o.method,
	)
	fmt.Fprintf(w, "kept %d of %d features: %v\n", len(kept), len(t.names), kept)

	if o.output == "" {
		return nil
	}
	cols := kept
	for _, extra := range []string{c.cfg.Target, c.cfg.FoldColumn} {
		if f.HasColumn(extra) {
			cols = append(cols, extra)
		}
	}
	out, err := f.Select(cols...)
	if err != nil {
		return err
	}
	return out.SaveCSV(o.output)
}
