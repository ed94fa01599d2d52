// Package visualize renders the charts used throughout the recipes to
// image files with gonum/plot. The output format follows the file
// extension (.png, .svg, .pdf, ...).
package visualize

import (
	"fmt"
	"image/color"
	"sort"
	"strconv"

	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/approachingml/aamlp/pkg/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

type config struct {
	title  string
	width  vg.Length
	height vg.Length
}

// Option customizes a chart.
type Option func(*config)

// WithTitle overrides the default chart title.
func WithTitle(title string) Option {
	return func(c *config) { c.title = title }
}

// WithSize sets the canvas size.
func WithSize(width, height vg.Length) Option {
	return func(c *config) { c.width, c.height = width, height }
}

func newPlot(defaultTitle, xLabel, yLabel string, opts []Option) (*plot.Plot, config) {
	cfg := config{title: defaultTitle, width: 6 * vg.Inch, height: 4 * vg.Inch}
	for _, opt := range opts {
		opt(&cfg)
	}
	p := plot.New()
	p.Title.Text = cfg.title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p, cfg
}

func save(p *plot.Plot, cfg config, path string) error {
	if err := p.Save(cfg.width, cfg.height, path); err != nil {
		return errors.Wrapf(err, "save chart %s", path)
	}
	log.GetLogger().Info("chart written", log.PathKey, path, log.ComponentKey, "visualize")
	return nil
}

func toXYs(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

// ROCCurve draws TPR against FPR with the chance diagonal and the AUC in
// the legend.
func ROCCurve(path string, fpr, tpr []float64, auc float64, opts ...Option) error {
	if len(fpr) == 0 || len(fpr) != len(tpr) {
		return errors.NewDimensionError("visualize.ROCCurve", len(fpr), len(tpr), 0)
	}
	p, cfg := newPlot("ROC curve", "FPR", "TPR", opts)
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())

	// thresholds run from high to low; sort points by FPR for the line
	pts := toXYs(fpr, tpr)
	sort.SliceStable(pts, func(a, b int) bool {
		if pts[a].X != pts[b].X {
			return pts[a].X < pts[b].X
		}
		return pts[a].Y < pts[b].Y
	})
	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "visualize.ROCCurve")
	}
	line.Color = plotutil.Color(0)
	line.Width = vg.Points(2)
	chance := plotter.NewFunction(func(x float64) float64 { return x })
	chance.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	chance.Color = color.Gray{Y: 128}

	p.Add(line, chance)
	p.Legend.Add(fmt.Sprintf("AUC = %.4f", auc), line)
	p.Legend.Top = false
	return save(p, cfg, path)
}

// DepthCurve plots train and test accuracy for increasing max_depth.
func DepthCurve(path string, depths []int, train, test []float64, opts ...Option) error {
	if len(depths) == 0 || len(train) != len(depths) || len(test) != len(depths) {
		return errors.NewDimensionError("visualize.DepthCurve", len(depths), len(train), 0)
	}
	p, cfg := newPlot("Accuracy by max_depth", "max_depth", "accuracy", opts)
	p.Add(plotter.NewGrid())
	xs := make([]float64, len(depths))
	for i, d := range depths {
		xs[i] = float64(d)
	}
	if err := plotutil.AddLinePoints(p, "train accuracy", toXYs(xs, train), "test accuracy", toXYs(xs, test)); err != nil {
		return errors.Wrap(err, "visualize.DepthCurve")
	}
	return save(p, cfg, path)
}

// FeatureImportance draws a horizontal bar per feature, most important on
// top.
func FeatureImportance(path string, names []string, importances []float64, opts ...Option) error {
	if len(names) == 0 || len(names) != len(importances) {
		return errors.NewDimensionError("visualize.FeatureImportance", len(names), len(importances), 0)
	}
	idx := make([]int, len(importances))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return importances[idx[a]] < importances[idx[b]] })

	values := make(plotter.Values, len(idx))
	labels := make([]string, len(idx))
	for k, i := range idx {
		values[k] = importances[i]
		labels[k] = names[i]
	}
	p, cfg := newPlot("Feature Importances", "importance", "", opts)
	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return errors.Wrap(err, "visualize.FeatureImportance")
	}
	bars.Horizontal = true
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(labels...)
	return save(p, cfg, path)
}

// LabelDistribution draws one bar per label with its count.
func LabelDistribution(path string, labels []string, counts []int, opts ...Option) error {
	if len(labels) == 0 || len(labels) != len(counts) {
		return errors.NewDimensionError("visualize.LabelDistribution", len(labels), len(counts), 0)
	}
	values := make(plotter.Values, len(counts))
	for i, c := range counts {
		values[i] = float64(c)
	}
	p, cfg := newPlot("Label distribution", "label", "count", opts)
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return errors.Wrap(err, "visualize.LabelDistribution")
	}
	bars.Color = plotutil.Color(1)
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)
	return save(p, cfg, path)
}

// Scatter2D draws the first two columns of X, one color per label. It is
// the companion of a 2-component PCA.
func Scatter2D(path string, X mat.Matrix, labels []float64, opts ...Option) error {
	if X == nil {
		return errors.NewValueError("visualize.Scatter2D", "X must not be nil")
	}
	r, c := X.Dims()
	if c < 2 {
		return errors.NewDimensionError("visualize.Scatter2D", 2, c, 1)
	}
	if labels != nil && len(labels) != r {
		return errors.NewDimensionError("visualize.Scatter2D", r, len(labels), 0)
	}

	groups := make(map[float64]plotter.XYs)
	for i := 0; i < r; i++ {
		var l float64
		if labels != nil {
			l = labels[i]
		}
		groups[l] = append(groups[l], plotter.XY{X: X.At(i, 0), Y: X.At(i, 1)})
	}
	keys := make([]float64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	p, cfg := newPlot("2D projection", "component 1", "component 2", opts)
	for n, k := range keys {
		s, err := plotter.NewScatter(groups[k])
		if err != nil {
			return errors.Wrap(err, "visualize.Scatter2D")
		}
		s.GlyphStyle.Color = plotutil.Color(n)
		s.GlyphStyle.Shape = plotutil.Shape(n)
		s.GlyphStyle.Radius = vg.Points(2)
		p.Add(s)
		if labels != nil {
			p.Legend.Add(strconv.FormatFloat(k, 'g', -1, 64), s)
		}
	}
	return save(p, cfg, path)
}

// confusionGrid adapts a confusion matrix to plotter.GridXYZ with the
// actual class on Y (top row first) and the predicted class on X.
type confusionGrid struct {
	cm *mat.Dense
}

func (g confusionGrid) Dims() (c, r int)   { r, c = g.cm.Dims(); return c, r }
func (g confusionGrid) Z(c, r int) float64 { n, _ := g.cm.Dims(); return g.cm.At(n-1-r, c) }
func (g confusionGrid) X(c int) float64    { return float64(c) }
func (g confusionGrid) Y(r int) float64    { return float64(r) }

// ConfusionHeatmap draws a confusion matrix with counts in each cell.
// labels names the classes in matrix order.
func ConfusionHeatmap(path string, cm *mat.Dense, labels []float64, opts ...Option) error {
	if cm == nil {
		return errors.NewValueError("visualize.ConfusionHeatmap", "confusion matrix must not be nil")
	}
	r, c := cm.Dims()
	if r != c || r != len(labels) || r == 0 {
		return errors.NewDimensionError("visualize.ConfusionHeatmap", len(labels), r, 0)
	}
	p, cfg := newPlot("Confusion matrix", "Predicted label", "Actual label", opts)
	heat := plotter.NewHeatMap(confusionGrid{cm: cm}, palette.Heat(16, 1))
	p.Add(heat)

	var cells plotter.XYLabels
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			cells.XYs = append(cells.XYs, plotter.XY{X: float64(j), Y: float64(r - 1 - i)})
			cells.Labels = append(cells.Labels, strconv.FormatFloat(cm.At(i, j), 'g', -1, 64))
		}
	}
	text, err := plotter.NewLabels(cells)
	if err != nil {
		return errors.Wrap(err, "visualize.ConfusionHeatmap")
	}
	p.Add(text)

	names := make([]string, len(labels))
	reversed := make([]string, len(labels))
	for i, l := range labels {
		names[i] = strconv.FormatFloat(l, 'g', -1, 64)
		reversed[len(labels)-1-i] = names[i]
	}
	p.NominalX(names...)
	p.NominalY(reversed...)
	return save(p, cfg, path)
}
