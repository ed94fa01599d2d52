package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/approachingml/aamlp/core/model"
	"github.com/approachingml/aamlp/dataset"
	"github.com/approachingml/aamlp/internal/dispatcher"
	"github.com/approachingml/aamlp/metrics"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
)

func (c *CLI) newTrainCommand() *cobra.Command {
	var (
		input, modelName, output string
		fold                     int
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model on every fold but one and score the held-out fold",
		Example: `  aamlp train --fold 0 --model decision_tree_gini
  for f in 0 1 2 3 4; do aamlp train --fold $f --model rf; done`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTrain(cmd,
				orDefault(input, c.cfg.TrainingFile),
				modelName,
				orDefault(output, c.cfg.ModelOutput),
				fold)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "CSV with a fold column (default: training_file)")
	cmd.Flags().IntVar(&fold, "fold", 0, "Validation fold")
	cmd.Flags().StringVar(&modelName, "model", "decision_tree_gini", "Model name from the dispatcher")
	cmd.Flags().StringVar(&output, "model-output", "", "Directory for the saved model (default: model_output)")
	_ = cmd.MarkFlagRequired("fold")
	return cmd
}

func (c *CLI) runTrain(cmd *cobra.Command, input, modelName, output string, fold int) error {
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

	est, err := dispatcher.New(modelName, nil)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := est.Fit(train.X, train.y); err != nil {
		return errors.Wrapf(err, "fit %s on fold %d", modelName, fold)
	}
	pred, err := est.Predict(valid.X)
	if err != nil {
		return err
	}
	acc, err := metrics.Accuracy(valid.y, vecOf(pred))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Fold=%d, Accuracy=%.4f\n", fold, acc)

	fields := []any{
		log.ComponentKey, "cli.train",
		log.ModelNameKey, modelName,
		log.FoldKey, fold,
		log.AccuracyKey, acc,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	}
	auc, ok, err := binaryAUC(est, valid)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(cmd.OutOrStdout(), "Fold=%d, AUC=%.4f\n", fold, auc)
		fields = append(fields, log.AUCKey, auc)
	}
	log.GetLogger().Info("fold trained", fields...)

	if err := os.MkdirAll(output, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", output)
	}
	path := filepath.Join(output, fmt.Sprintf("%s_%d.gob", modelName, fold))
	if err := model.SaveModel(est, path); err != nil {
		return err
	}
	log.GetLogger().Debug("model saved", log.PathKey, path)
	return nil
}

// binaryAUC scores a two-class classifier by the probability of its
// second class. ok is false for other estimators.
func binaryAUC(est model.Estimator, valid *table) (auc float64, ok bool, err error) {
	clf, isClf := est.(model.Classifier)
	if !isClf || len(clf.Classes()) != 2 {
		return 0, false, nil
	}
	proba, err := clf.PredictProba(valid.X)
	if err != nil {
		return 0, false, err
	}
	positive := clf.Classes()[1]
	n := valid.y.Len()
	yBin := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if valid.y.AtVec(i) == positive {
			yBin.SetVec(i, 1)
		}
	}
	scores := mat.NewVecDense(n, mat.Col(nil, 1, proba))
	auc, err = metrics.AUC(yBin, scores)
	return auc, err == nil, err
}
