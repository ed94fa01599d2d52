package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/dataset"
	"github.com/approachingml/aamlp/decomposition"
	"github.com/approachingml/aamlp/internal/dispatcher"
	"github.com/approachingml/aamlp/metrics"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/sklearn/tree"
	"github.com/approachingml/aamlp/visualize"
)

func (c *CLI) newPlotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render charts to PNG or SVG (format follows the output extension)",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	cmd.AddCommand(
		c.newPlotROCCommand(),
		c.newPlotDepthCommand(),
		c.newPlotImportanceCommand(),
		c.newPlotDistributionCommand(),
		c.newPlotPCACommand(),
		c.newPlotConfusionCommand(),
	)
	return cmd
}

// chartFlags registers the flags every chart shares.
func chartFlags(cmd *cobra.Command, input, output *string) {
	cmd.Flags().StringVar(input, "input", "", "Input CSV")
	cmd.Flags().StringVar(output, "output", "", "Chart file (.png, .svg, .pdf)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
}

func done(cmd *cobra.Command, path string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "chart written to %s\n", path)
	return nil
}

func (c *CLI) newPlotROCCommand() *cobra.Command {
	var input, output, yTrue, score string
	cmd := &cobra.Command{
		Use:   "roc",
		Short: "ROC curve of a binary score column",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := dataset.LoadCSV(input)
			if err != nil {
				return err
			}
			yt, err := f.Vector(yTrue)
			if err != nil {
				return err
			}
			scores, err := f.Vector(score)
			if err != nil {
				return err
			}
			fpr, tpr, _, err := metrics.ROCCurveAuto(yt, scores)
			if err != nil {
				return err
			}
			auc, err := metrics.AUC(yt, scores)
			if err != nil {
				return err
			}
			if err := visualize.ROCCurve(output, fpr, tpr, auc); err != nil {
				return err
			}
			return done(cmd, output)
		},
	}
	chartFlags(cmd, &input, &output)
	cmd.Flags().StringVar(&yTrue, "y-true", "y_true", "Column with 0/1 labels")
	cmd.Flags().StringVar(&score, "score", "proba", "Column with positive-class scores")
	return cmd
}

func (c *CLI) newPlotDepthCommand() *cobra.Command {
	var input, output string
	var fold, maxDepth int
	cmd := &cobra.Command{
		Use:   "depth-curve",
		Short: "Train and validation accuracy of a decision tree for max_depth 1..N",
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxDepth < 1 {
				return errors.NewValidationError("max-depth", "must be at least 1", maxDepth)
			}
			f, err := dataset.LoadCSV(input)
			if err != nil {
				return err
			}
			trainIdx, validIdx, err := c.foldIndices(f, fold)
			if err != nil {
				return err
			}
			all, err := c.splitTable(f)
			if err != nil {
				return err
			}
			train, valid := all.rows(trainIdx), all.rows(validIdx)

			depths := make([]int, maxDepth)
			trainAcc := make([]float64, maxDepth)
			validAcc := make([]float64, maxDepth)
			for d := 1; d <= maxDepth; d++ {
				clf := tree.NewDecisionTreeClassifier(tree.WithMaxDepth(d), tree.WithRandomState(c.cfg.Seed))
				if err := clf.Fit(train.X, train.y); err != nil {
					return err
				}
				depths[d-1] = d
				trainAcc[d-1] = clf.Score(train.X, train.y)
				validAcc[d-1] = clf.Score(valid.X, valid.y)
			}
			if err := visualize.DepthCurve(output, depths, trainAcc, validAcc); err != nil {
				return err
			}
			return done(cmd, output)
		},
	}
	chartFlags(cmd, &input, &output)
	cmd.Flags().IntVar(&fold, "fold", 0, "Validation fold")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 25, "Largest depth to try")
	return cmd
}

func (c *CLI) newPlotImportanceCommand() *cobra.Command {
	var input, output, modelName string
	cmd := &cobra.Command{
		Use:   "importance",
		Short: "Feature importances of a tree model fitted on all rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			est, err := dispatcher.New(modelName, nil)
			if err != nil {
				return err
			}
			importer, ok := est.(model.FeatureImporter)
			if !ok {
				return errors.NewValueError("plot importance", modelName+" does not report feature importances")
			}
			f, err := dataset.LoadCSV(input)
			if err != nil {
				return err
			}
			t, err := c.splitTable(f)
			if err != nil {
				return err
			}
			if err := est.Fit(t.X, t.y); err != nil {
				return err
			}
			if err := visualize.FeatureImportance(output, t.names, importer.GetFeatureImportances()); err != nil {
				return err
			}
			return done(cmd, output)
		},
	}
	chartFlags(cmd, &input, &output)
	cmd.Flags().StringVar(&modelName, "model", "rf", "Model name from the dispatcher")
	return cmd
}

func (c *CLI) newPlotDistributionCommand() *cobra.Command {
	var input, output, column string
	cmd := &cobra.Command{
		Use:   "distribution",
		Short: "Count of each value of a column, e.g. the target",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := dataset.LoadCSV(input)
			if err != nil {
				return err
			}
			counts, err := f.ValueCounts(orDefault(column, c.cfg.Target))
			if err != nil {
				return err
			}
			labels := make([]string, len(counts))
			values := make([]int, len(counts))
			for i, vc := range counts {
				labels[i], values[i] = vc.Value, vc.Count
			}
			if err := visualize.LabelDistribution(output, labels, values); err != nil {
				return err
			}
			return done(cmd, output)
		},
	}
	chartFlags(cmd, &input, &output)
	cmd.Flags().StringVar(&column, "column", "", "Column to count (default: target)")
	return cmd
}

func (c *CLI) newPlotPCACommand() *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "pca",
		Short: "Two-component PCA projection colored by target",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := dataset.LoadCSV(input)
			if err != nil {
				return err
			}
			t, err := c.splitTable(f)
			if err != nil {
				return err
			}
			Z, err := decomposition.NewPCA(2).FitTransform(t.X)
			if err != nil {
				return err
			}
			if err := visualize.Scatter2D(output, Z, t.y.RawVector().Data); err != nil {
				return err
			}
			return done(cmd, output)
		},
	}
	chartFlags(cmd, &input, &output)
	return cmd
}

func (c *CLI) newPlotConfusionCommand() *cobra.Command {
	var input, output, yTrue, yPred string
	cmd := &cobra.Command{
		Use:   "confusion",
		Short: "Confusion matrix heatmap of a predictions CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := dataset.LoadCSV(input)
			if err != nil {
				return err
			}
			yt, err := f.Vector(yTrue)
			if err != nil {
				return err
			}
			yp, err := f.Vector(yPred)
			if err != nil {
				return err
			}
			cm, labels, err := metrics.ConfusionMatrix(yt, yp)
			if err != nil {
				return err
			}
			if err := visualize.ConfusionHeatmap(output, cm, labels); err != nil {
				return err
			}
			return done(cmd, output)
		},
	}
	chartFlags(cmd, &input, &output)
	cmd.Flags().StringVar(&yTrue, "y-true", "y_true", "Column with true labels")
	cmd.Flags().StringVar(&yPred, "y-pred", "y_pred", "Column with predicted labels")
	return cmd
}
