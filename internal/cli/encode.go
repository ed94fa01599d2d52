package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/approachingml/aamlp/dataset"
	"github.com/approachingml/aamlp/decomposition"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
	"github.com/approachingml/aamlp/preprocessing"
)

type encodeOptions struct {
	input, output, method, fill string
	columns                     []string
	rareThreshold               int
	svdComponents               int
}

func (c *CLI) newEncodeCommand() *cobra.Command {
	var o encodeOptions
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Label or one-hot encode categorical columns",
		Example: `  aamlp encode --input input/cat_train.csv --output input/cat_label.csv --columns ord_1,ord_2
  aamlp encode --input input/cat_train.csv --output input/cat_ohe.csv --method onehot --rare-threshold 2000
  aamlp encode --input input/cat_train.csv --output input/cat_svd.csv --method onehot --svd-components 120`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEncode(cmd, o)
		},
	}
	cmd.Flags().StringVar(&o.input, "input", "", "CSV to encode")
	cmd.Flags().StringVar(&o.output, "output", "", "Where to write the encoded CSV")
	cmd.Flags().StringVar(&o.method, "method", "label", "label or onehot")
	cmd.Flags().StringSliceVar(&o.columns, "columns", nil, "Columns to encode (default: all but target, fold and dropped columns)")
	cmd.Flags().StringVar(&o.fill, "fill", preprocessing.DefaultFillValue, "Replacement for missing cells")
	cmd.Flags().IntVar(&o.rareThreshold, "rare-threshold", 0, "Group categories seen fewer times into RARE (0 disables)")
	cmd.Flags().IntVar(&o.svdComponents, "svd-components", 0, "Reduce one-hot columns to this many TruncatedSVD components (0 keeps them)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func (c *CLI) runEncode(cmd *cobra.Command, o encodeOptions) error {
	f, err := dataset.LoadCSV(o.input)
	if err != nil {
		return err
	}
	if len(o.columns) == 0 {
		drop := append([]string{c.cfg.Target, c.cfg.FoldColumn}, c.cfg.DropColumns...)
		o.columns = f.DropColumns(drop...).Columns()
	}

	values := make([][]string, len(o.columns))
	for j, name := range o.columns {
		raw, err := f.Column(name)
		if err != nil {
			return err
		}
		values[j] = preprocessing.FillNA(raw, o.fill)
		if o.rareThreshold > 0 {
			if values[j], err = preprocessing.NewRareCategoryGrouper(o.rareThreshold).FitTransform(values[j]); err != nil {
				return err
			}
		}
	}

	if o.svdComponents != 0 && o.method != "onehot" {
		return errors.NewValidationError("svd-components", "requires --method onehot", o.svdComponents)
	}

	var out *dataset.Frame
	switch o.method {
	case "label":
		out = f
		for j, name := range o.columns {
			codes, err := preprocessing.NewLabelEncoder().FitTransform(values[j])
			if err != nil {
				return errors.Wrapf(err, "encode %q", name)
			}
			if err := out.SetIntColumn(name, codes); err != nil {
				return err
			}
		}
	case "onehot":
		if out, err = oneHotFrame(cmd, f, o.columns, values, o.svdComponents); err != nil {
			return err
		}
	default:
		return errors.NewValidationError("method", "must be label or onehot", o.method)
	}

	if err := out.SaveCSV(o.output); err != nil {
		return err
	}
	log.GetLogger().Info("columns encoded",
		log.ComponentKey, "cli.encode",
		log.PathKey, o.output,
		log.FeaturesKey, len(o.columns),
		"encode.method", o.method,
	)
	fmt.Fprintf(cmd.OutOrStdout(), "encoded %d columns (%s) into %s\n", len(o.columns), o.method, o.output)
	return nil
}

// oneHotFrame replaces columns by their indicator columns and reports the
// sparse versus dense footprint. With svdComponents > 0 the indicators are
// projected onto that many TruncatedSVD components named svd_0, svd_1, ...
func oneHotFrame(cmd *cobra.Command, f *dataset.Frame, columns []string, values [][]string, svdComponents int) (*dataset.Frame, error) {
	enc := preprocessing.NewOneHotEncoder()
	sparse, err := enc.FitTransform(values)
	if err != nil {
		return nil, err
	}
	rows, cols := sparse.Dims()
	fmt.Fprintf(cmd.OutOrStdout(), "one-hot: %d x %d, sparse %d bytes, dense %d bytes\n",
		rows, cols, sparse.NBytes(), preprocessing.DenseNBytes(rows, cols))

	out := f.DropColumns(columns...)
	dense := sparse.ToDense()
	if svdComponents != 0 {
		svd := decomposition.NewTruncatedSVD(svdComponents)
		projected, err := svd.FitTransform(dense)
		if err != nil {
			return nil, errors.Wrap(err, "reduce one-hot columns")
		}
		var explained float64
		for _, r := range svd.ExplainedVarianceRatio {
			explained += r
		}
		fmt.Fprintf(cmd.OutOrStdout(), "svd: %d components explain %.4f of the variance\n", svdComponents, explained)
		for j := 0; j < svdComponents; j++ {
			if err := out.SetFloatColumn("svd_"+strconv.Itoa(j), mat.Col(nil, j, projected)); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	for j, name := range enc.FeatureNames(columns) {
		if err := out.SetFloatColumn(name, mat.Col(nil, j, dense)); err != nil {
			return nil, err
		}
	}
	return out, nil
}
