package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/approachingml/aamlp/dataset"
	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
	"github.com/approachingml/aamlp/preprocessing"
)

type featuresOptions struct {
	input, output, method string
	columns               []string
	degree, neighbors     int
	bins                  int
}

func (c *CLI) newFeaturesCommand() *cobra.Command {
	var o featuresOptions
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Impute, expand or bin numeric columns",
		Example: `  aamlp features --input input/train.csv --output input/imputed.csv --method knn-impute --n-neighbors 2
  aamlp features --input input/train.csv --output input/poly.csv --method polynomial --columns f_1,f_2 --degree 2
  aamlp features --input input/train.csv --output input/binned.csv --method bin --columns target --bins 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFeatures(cmd, o)
		},
	}
	cmd.Flags().StringVar(&o.input, "input", "", "CSV to transform")
	cmd.Flags().StringVar(&o.output, "output", "", "Where to write the transformed CSV")
	cmd.Flags().StringVar(&o.method, "method", "", "knn-impute, polynomial or bin")
	cmd.Flags().StringSliceVar(&o.columns, "columns", nil, "Numeric columns (default: all but target, fold and dropped columns)")
	cmd.Flags().IntVar(&o.degree, "degree", 2, "Highest monomial degree for --method polynomial")
	cmd.Flags().IntVar(&o.neighbors, "n-neighbors", 2, "Donor rows per missing cell for --method knn-impute")
	cmd.Flags().IntVar(&o.bins, "bins", 10, "Equal-width bins for --method bin")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("method")
	return cmd
}

func (c *CLI) runFeatures(cmd *cobra.Command, o featuresOptions) error {
	f, err := dataset.LoadCSV(o.input)
	if err != nil {
		return err
	}
	if len(o.columns) == 0 {
		drop := append([]string{c.cfg.Target, c.cfg.FoldColumn}, c.cfg.DropColumns...)
		o.columns = f.DropColumns(drop...).Columns()
	}
	X, err := f.Matrix(o.columns...)
	if err != nil {
		return err
	}

	var out *dataset.Frame
	var added []string
	switch o.method {
	case "knn-impute":
		out, err = imputeColumns(f, o.columns, X, o.neighbors)
		added = o.columns
	case "polynomial":
		out, added, err = polynomialColumns(f, o.columns, X, o.degree)
	case "bin":
		out, added, err = binColumns(f, o.columns, X, o.bins)
	default:
		err = errors.NewValidationError("method", "must be knn-impute, polynomial or bin", o.method)
	}
	if err != nil {
		return err
	}

	if err := out.SaveCSV(o.output); err != nil {
		return err
	}
	log.GetLogger().Info("features generated",
		log.ComponentKey, "cli.features",
		log.PathKey, o.output,
		log.FeaturesKey, len(o.columns),
		"features.method", o.method,
		"features.written", len(added),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d input columns, wrote %d columns to %s\n",
		o.method, len(o.columns), len(added), o.output)
	return nil
}

// imputeColumns fills the missing cells of columns from their nearest rows.
func imputeColumns(f *dataset.Frame, columns []string, X *mat.Dense, k int) (*dataset.Frame, error) {
	filled, err := preprocessing.NewKNNImputer(k).FitTransform(X)
	if err != nil {
		return nil, err
	}
	out := f.DropColumns()
	for j, name := range columns {
		if err := out.SetFloatColumn(name, mat.Col(nil, j, filled)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// polynomialColumns replaces columns by their monomials up to degree,
// without the constant term.
func polynomialColumns(f *dataset.Frame, columns []string, X *mat.Dense, degree int) (*dataset.Frame, []string, error) {
	poly := preprocessing.NewPolynomialFeatures(degree)
	poly.IncludeBias = false
	expanded, err := poly.FitTransform(X)
	if err != nil {
		return nil, nil, err
	}
	out := f.DropColumns(columns...)
	names := poly.FeatureNames(columns)
	for j, name := range names {
		if err := out.SetFloatColumn(name, mat.Col(nil, j, expanded)); err != nil {
			return nil, nil, err
		}
	}
	return out, names, nil
}

// binColumns adds <column>_bin with the equal-width bin of every value.
func binColumns(f *dataset.Frame, columns []string, X *mat.Dense, bins int) (*dataset.Frame, []string, error) {
	out := f.DropColumns()
	names := make([]string, len(columns))
	for j, name := range columns {
		codes, err := preprocessing.Cut(mat.Col(nil, j, X), bins)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "bin %s", strconv.Quote(name))
		}
		names[j] = name + "_bin"
		if err := out.SetIntColumn(names[j], codes); err != nil {
			return nil, nil, err
		}
	}
	return out, names, nil
}
