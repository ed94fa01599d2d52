package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/approachingml/aamlp/dataset"
	"github.com/approachingml/aamlp/metrics"
	"github.com/approachingml/aamlp/pkg/errors"
)

func (c *CLI) newMetricsCommand() *cobra.Command {
	var input, yTrue, yPred, proba, task string
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Evaluate a predictions CSV",
		Example: `  aamlp metrics --input preds.csv
  aamlp metrics --input preds.csv --proba p1
  aamlp metrics --input preds.csv --task regression`,
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
			switch task {
			case "classification":
				var scores *mat.VecDense
				if proba != "" {
					if scores, err = f.Vector(proba); err != nil {
						return err
					}
				}
				return classificationMetrics(cmd.OutOrStdout(), yt, yp, scores)
			case "regression":
				return regressionMetrics(cmd.OutOrStdout(), yt, yp)
			default:
				return errors.NewValidationError("task", "must be classification or regression", task)
			}
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "CSV holding true and predicted values")
	cmd.Flags().StringVar(&yTrue, "y-true", "y_true", "Column with true values")
	cmd.Flags().StringVar(&yPred, "y-pred", "y_pred", "Column with predictions")
	cmd.Flags().StringVar(&proba, "proba", "", "Column with positive-class probabilities (binary AUC and log loss)")
	cmd.Flags().StringVar(&task, "task", "classification", "classification or regression")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func classificationMetrics(w io.Writer, yTrue, yPred, scores *mat.VecDense) error {
	report, err := metrics.ClassificationReport(yTrue, yPred)
	if err != nil {
		return err
	}
	fmt.Fprint(w, report.String())

	kappa, err := metrics.CohenKappa(yTrue, yPred, "quadratic")
	if err != nil {
		return err
	}
	mcc, err := metrics.MatthewsCorrCoef(yTrue, yPred)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nquadratic kappa: %.4f\nmcc: %.4f\n", kappa, mcc)

	if scores == nil {
		return nil
	}
	auc, err := metrics.AUC(yTrue, scores)
	if err != nil {
		return err
	}
	logLoss, err := metrics.BinaryLogLoss(yTrue, scores)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "auc: %.4f\nlog loss: %.4f\n", auc, logLoss)
	return nil
}

func regressionMetrics(w io.Writer, yTrue, yPred *mat.VecDense) error {
	named := []struct {
		name string
		fn   func(a, b *mat.VecDense) (float64, error)
	}{
		{"mae", metrics.MAE},
		{"mse", metrics.MSE},
		{"rmse", metrics.RMSE},
		{"r2", metrics.R2Score},
		{"explained variance", metrics.ExplainedVarianceScore},
	}
	for _, m := range named {
		v, err := m.fn(yTrue, yPred)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %.4f\n", m.name, v)
	}
	// MSLE is only defined for non-negative values
	if v, err := metrics.RMSLE(yTrue, yPred); err == nil {
		fmt.Fprintf(w, "rmsle: %.4f\n", v)
	}
	return nil
}
