package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/approachingml/aamlp/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Average selects how per-class scores are combined for multiclass input.
type Average string

const (
	// AverageBinary reports the score of the positive class (label 1).
	AverageBinary Average = "binary"
	// AverageMacro is the unweighted mean of the per-class scores.
	AverageMacro Average = "macro"
	// AverageMicro pools true/false positives and false negatives over all classes.
	AverageMicro Average = "micro"
	// AverageWeighted weights each class score by its support in yTrue.
	AverageWeighted Average = "weighted"
)

// logLossEps clips probabilities away from 0 and 1.
const logLossEps = 1e-15

// TruePositive counts samples with actual and predicted label 1.
func TruePositive(yTrue, yPred *mat.VecDense) (int, error) {
	c, err := binaryCounts("TruePositive", yTrue, yPred)
	return c.tp, err
}

// TrueNegative counts samples with actual and predicted label 0.
func TrueNegative(yTrue, yPred *mat.VecDense) (int, error) {
	c, err := binaryCounts("TrueNegative", yTrue, yPred)
	return c.tn, err
}

// FalsePositive counts samples predicted 1 whose actual label is 0.
func FalsePositive(yTrue, yPred *mat.VecDense) (int, error) {
	c, err := binaryCounts("FalsePositive", yTrue, yPred)
	return c.fp, err
}

// FalseNegative counts samples predicted 0 whose actual label is 1.
func FalseNegative(yTrue, yPred *mat.VecDense) (int, error) {
	c, err := binaryCounts("FalseNegative", yTrue, yPred)
	return c.fn, err
}

type confusionCounts struct {
	tp, tn, fp, fn int
}

func binaryCounts(op string, yTrue, yPred *mat.VecDense) (confusionCounts, error) {
	var c confusionCounts
	n, err := checkPair(op, yTrue, yPred)
	if err != nil {
		return c, err
	}
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		switch {
		case t == 1 && p == 1:
			c.tp++
		case t == 0 && p == 0:
			c.tn++
		case t == 0 && p == 1:
			c.fp++
		case t == 1 && p == 0:
			c.fn++
		}
	}
	return c, nil
}

// Accuracy returns the fraction of samples whose predicted label equals
// the actual label. Works for any number of classes.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError returns the misclassification rate, 1 - accuracy.
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "ClassificationError")
	}
	return 1 - acc, nil
}

// Precision returns TP / (TP + FP) for binary labels.
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := binaryCounts("Precision", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return ratio("precision", "no positive predictions", float64(c.tp), float64(c.tp+c.fp)), nil
}

// Recall returns TP / (TP + FN) for binary labels.
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := binaryCounts("Recall", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return ratio("recall", "no positive samples", float64(c.tp), float64(c.tp+c.fn)), nil
}

// F1 returns the harmonic mean of binary precision and recall.
func F1(yTrue, yPred *mat.VecDense) (float64, error) {
	p, err := Precision(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	r, err := Recall(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return ratio("f1", "precision and recall are both zero", 2*p*r, p+r), nil
}

// TPR is the true positive rate, identical to Recall.
func TPR(yTrue, yPred *mat.VecDense) (float64, error) {
	return Recall(yTrue, yPred)
}

// FPR returns FP / (FP + TN).
func FPR(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := binaryCounts("FPR", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return ratio("fpr", "no negative samples", float64(c.fp), float64(c.fp+c.tn)), nil
}

// classStats holds one-vs-rest counts for each label.
type classStats struct {
	labels  []float64
	tp      []float64
	fp      []float64
	fn      []float64
	support []float64
}

func perClassStats(op string, yTrue, yPred *mat.VecDense) (*classStats, error) {
	n, err := checkPair(op, yTrue, yPred)
	if err != nil {
		return nil, err
	}
	labels := uniqueLabels(yTrue, yPred)
	index := make(map[float64]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	k := len(labels)
	s := &classStats{
		labels:  labels,
		tp:      make([]float64, k),
		fp:      make([]float64, k),
		fn:      make([]float64, k),
		support: make([]float64, k),
	}
	for i := 0; i < n; i++ {
		t, p := index[yTrue.AtVec(i)], index[yPred.AtVec(i)]
		s.support[t]++
		if t == p {
			s.tp[t]++
			continue
		}
		s.fp[p]++
		s.fn[t]++
	}
	return s, nil
}

func (s *classStats) precision(i int) float64 {
	return ratio("precision", fmt.Sprintf("label %g has no predicted samples", s.labels[i]), s.tp[i], s.tp[i]+s.fp[i])
}

func (s *classStats) recall(i int) float64 {
	return ratio("recall", fmt.Sprintf("label %g has no true samples", s.labels[i]), s.tp[i], s.tp[i]+s.fn[i])
}

func f1From(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// combine averages per-class values according to avg.
func (s *classStats) combine(avg Average, perClass func(i int) float64, micro func(tp, fp, fn float64) float64) float64 {
	switch avg {
	case AverageMicro:
		var tp, fp, fn float64
		for i := range s.labels {
			tp += s.tp[i]
			fp += s.fp[i]
			fn += s.fn[i]
		}
		return micro(tp, fp, fn)
	case AverageWeighted:
		var total, sum float64
		for i := range s.labels {
			sum += perClass(i) * s.support[i]
			total += s.support[i]
		}
		return ratio("weighted average", "no true samples", sum, total)
	default:
		var sum float64
		for i := range s.labels {
			sum += perClass(i)
		}
		return sum / float64(len(s.labels))
	}
}

func checkAverage(op string, avg Average) error {
	switch avg {
	case AverageBinary, AverageMacro, AverageMicro, AverageWeighted:
		return nil
	}
	return errors.NewValidationError("average", "must be one of binary, macro, micro, weighted", string(avg))
}

func binaryAverage(op string, yTrue, yPred *mat.VecDense) error {
	if _, err := checkPair(op, yTrue, yPred); err != nil {
		return err
	}
	if err := checkBinary(op, yTrue); err != nil {
		return err
	}
	return checkBinary(op, yPred)
}

// PrecisionScore computes precision for binary or multiclass labels.
// The class set is the sorted union of the labels found in yTrue and yPred.
func PrecisionScore(yTrue, yPred *mat.VecDense, avg Average) (float64, error) {
	const op = "PrecisionScore"
	if err := checkAverage(op, avg); err != nil {
		return 0, err
	}
	if avg == AverageBinary {
		if err := binaryAverage(op, yTrue, yPred); err != nil {
			return 0, err
		}
		return Precision(yTrue, yPred)
	}
	s, err := perClassStats(op, yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return s.combine(avg, s.precision, func(tp, fp, _ float64) float64 {
		return ratio("precision", "no predicted samples", tp, tp+fp)
	}), nil
}

// RecallScore computes recall for binary or multiclass labels.
func RecallScore(yTrue, yPred *mat.VecDense, avg Average) (float64, error) {
	const op = "RecallScore"
	if err := checkAverage(op, avg); err != nil {
		return 0, err
	}
	if avg == AverageBinary {
		if err := binaryAverage(op, yTrue, yPred); err != nil {
			return 0, err
		}
		return Recall(yTrue, yPred)
	}
	s, err := perClassStats(op, yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return s.combine(avg, s.recall, func(tp, _, fn float64) float64 {
		return ratio("recall", "no true samples", tp, tp+fn)
	}), nil
}

// F1Score computes the F1 score for binary or multiclass labels. Macro and
// weighted averages combine the per-class F1 values, not the averaged
// precision and recall.
func F1Score(yTrue, yPred *mat.VecDense, avg Average) (float64, error) {
	const op = "F1Score"
	if err := checkAverage(op, avg); err != nil {
		return 0, err
	}
	if avg == AverageBinary {
		if err := binaryAverage(op, yTrue, yPred); err != nil {
			return 0, err
		}
		return F1(yTrue, yPred)
	}
	s, err := perClassStats(op, yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return s.combine(avg, func(i int) float64 {
		return f1From(s.precision(i), s.recall(i))
	}, func(tp, fp, fn float64) float64 {
		return f1From(ratio("precision", "no predicted samples", tp, tp+fp), ratio("recall", "no true samples", tp, tp+fn))
	}), nil
}

// ConfusionMatrix returns counts with actual labels on rows and predicted
// labels on columns, together with the sorted label order.
func ConfusionMatrix(yTrue, yPred *mat.VecDense) (*mat.Dense, []float64, error) {
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}
	labels := uniqueLabels(yTrue, yPred)
	index := make(map[float64]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	cm := mat.NewDense(len(labels), len(labels), nil)
	for i := 0; i < n; i++ {
		r, c := index[yTrue.AtVec(i)], index[yPred.AtVec(i)]
		cm.Set(r, c, cm.At(r, c)+1)
	}
	return cm, labels, nil
}

// BinaryLogLoss computes the log loss of binary labels. Probabilities are
// clipped to [1e-15, 1-1e-15].
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	const op = "BinaryLogLoss"
	n, err := checkPair(op, yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary(op, yTrue); err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yPred.AtVec(i), logLossEps, 1-logLossEps)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// LogLoss computes the multiclass cross-entropy. yTrue holds class indices
// 0..K-1 and proba is an n×K matrix of predicted probabilities. Rows are
// clipped and renormalized before taking logarithms.
func LogLoss(yTrue *mat.VecDense, proba mat.Matrix) (float64, error) {
	const op = "LogLoss"
	if yTrue == nil || proba == nil {
		return 0, errors.NewValueError(op, "inputs must not be nil")
	}
	n := yTrue.Len()
	r, k := proba.Dims()
	if n == 0 || r == 0 || k == 0 {
		return 0, errors.NewValueError(op, "empty input")
	}
	if r != n {
		return 0, errors.NewDimensionError(op, n, r, 0)
	}
	var sum float64
	row := make([]float64, k)
	for i := 0; i < n; i++ {
		label := yTrue.AtVec(i)
		c := int(label)
		if float64(c) != label || c < 0 || c >= k {
			return 0, errors.NewValueError(op, fmt.Sprintf("label %g is not a column index of proba", label))
		}
		var total float64
		for j := 0; j < k; j++ {
			row[j] = errors.ClipValue(proba.At(i, j), logLossEps, 1-logLossEps)
			total += row[j]
		}
		sum -= math.Log(row[c] / total)
	}
	return sum / float64(n), nil
}

// ROCCurve evaluates the false and true positive rates at each threshold.
// A sample is predicted positive when its score is >= threshold.
func ROCCurve(yTrue, scores *mat.VecDense, thresholds []float64) (fpr, tpr []float64, err error) {
	const op = "ROCCurve"
	n, err := checkPair(op, yTrue, scores)
	if err != nil {
		return nil, nil, err
	}
	if err := checkBinary(op, yTrue); err != nil {
		return nil, nil, err
	}
	var pos, neg float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			pos++
		} else {
			neg++
		}
	}
	fpr = make([]float64, len(thresholds))
	tpr = make([]float64, len(thresholds))
	for j, th := range thresholds {
		var tp, fp float64
		for i := 0; i < n; i++ {
			if scores.AtVec(i) < th {
				continue
			}
			if yTrue.AtVec(i) == 1 {
				tp++
			} else {
				fp++
			}
		}
		tpr[j] = ratio("tpr", "no positive samples", tp, pos)
		fpr[j] = ratio("fpr", "no negative samples", fp, neg)
	}
	return fpr, tpr, nil
}

// ROCCurveAuto uses +Inf followed by every distinct score in decreasing
// order as thresholds, so the curve starts at (0, 0) and ends at (1, 1).
func ROCCurveAuto(yTrue, scores *mat.VecDense) (fpr, tpr, thresholds []float64, err error) {
	if _, err := checkPair("ROCCurveAuto", yTrue, scores); err != nil {
		return nil, nil, nil, err
	}
	distinct := uniqueLabels(scores)
	thresholds = make([]float64, 0, len(distinct)+1)
	thresholds = append(thresholds, math.Inf(1))
	for i := len(distinct) - 1; i >= 0; i-- {
		thresholds = append(thresholds, distinct[i])
	}
	fpr, tpr, err = ROCCurve(yTrue, scores, thresholds)
	return fpr, tpr, thresholds, err
}

// AUC computes the area under the ROC curve from the rank statistic.
// Tied scores receive their average rank. When only one class is present
// the area is undefined and 0.5 is returned with a warning.
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	const op = "AUC"
	n, err := checkPair(op, yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary(op, yTrue); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return yPred.AtVec(idx[a]) < yPred.AtVec(idx[b])
	})

	var nPos, nNeg, rankSum float64
	for start := 0; start < n; {
		end := start + 1
		for end < n && yPred.AtVec(idx[end]) == yPred.AtVec(idx[start]) {
			end++
		}
		// ranks are 1-based; a tie group shares the mean of its ranks
		avgRank := float64(start+1+end) / 2
		for i := start; i < end; i++ {
			if yTrue.AtVec(idx[i]) == 1 {
				rankSum += avgRank
				nPos++
			} else {
				nNeg++
			}
		}
		start = end
	}

	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("roc_auc", "only one class present in y_true", 0.5))
		return 0.5, nil
	}
	return (rankSum - nPos*(nPos+1)/2) / (nPos * nNeg), nil
}

// AUCMatrix computes AUC from the first column of each matrix.
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, err := firstColumn("AUCMatrix", yTrue)
	if err != nil {
		return 0, err
	}
	p, err := firstColumn("AUCMatrix", yPred)
	if err != nil {
		return 0, err
	}
	return AUC(t, p)
}

// CohenKappa measures agreement between two raters. weights is "" for the
// unweighted statistic, "linear" or "quadratic".
func CohenKappa(yTrue, yPred *mat.VecDense, weights string) (float64, error) {
	const op = "CohenKappa"
	switch weights {
	case "", "linear", "quadratic":
	default:
		return 0, errors.NewValidationError("weights", "must be empty, linear or quadratic", weights)
	}
	cm, _, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, op)
	}
	k, _ := cm.Dims()
	n := float64(yTrue.Len())
	rowSum := make([]float64, k)
	colSum := make([]float64, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			rowSum[i] += cm.At(i, j)
			colSum[j] += cm.At(i, j)
		}
	}

	var observed, expected float64
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			var w float64
			switch weights {
			case "linear":
				w = math.Abs(float64(i - j))
			case "quadratic":
				w = float64((i - j) * (i - j))
			default:
				if i != j {
					w = 1
				}
			}
			observed += w * cm.At(i, j)
			expected += w * rowSum[i] * colSum[j] / n
		}
	}
	if expected == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("cohen_kappa", "expected disagreement is zero", 0))
		return 0, nil
	}
	return 1 - observed/expected, nil
}

// MatthewsCorrCoef returns the Matthews correlation coefficient for binary labels.
func MatthewsCorrCoef(yTrue, yPred *mat.VecDense) (float64, error) {
	const op = "MatthewsCorrCoef"
	if err := binaryAverage(op, yTrue, yPred); err != nil {
		return 0, err
	}
	c, _ := binaryCounts(op, yTrue, yPred)
	tp, tn, fp, fn := float64(c.tp), float64(c.tn), float64(c.fp), float64(c.fn)
	den := math.Sqrt((tp + fp) * (tp + fn) * (tn + fp) * (tn + fn))
	return ratio("mcc", "a marginal count is zero", tp*tn-fp*fn, den), nil
}

// ClassMetrics holds the scores of one class, or of an average row.
type ClassMetrics struct {
	Label     float64
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report aggregates per-class precision, recall and F1 together with
// accuracy and the macro and weighted averages.
type Report struct {
	Classes     []ClassMetrics
	Accuracy    float64
	MacroAvg    ClassMetrics
	WeightedAvg ClassMetrics
}

// ClassificationReport builds a Report for multiclass labels.
func ClassificationReport(yTrue, yPred *mat.VecDense) (*Report, error) {
	s, err := perClassStats("ClassificationReport", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	acc, _ := Accuracy(yTrue, yPred)
	rep := &Report{Accuracy: acc, Classes: make([]ClassMetrics, len(s.labels))}

	var total float64
	for i, l := range s.labels {
		p, r := s.precision(i), s.recall(i)
		cm := ClassMetrics{Label: l, Precision: p, Recall: r, F1: f1From(p, r), Support: int(s.support[i])}
		rep.Classes[i] = cm

		k := float64(len(s.labels))
		rep.MacroAvg.Precision += p / k
		rep.MacroAvg.Recall += r / k
		rep.MacroAvg.F1 += cm.F1 / k

		w := s.support[i]
		rep.WeightedAvg.Precision += p * w
		rep.WeightedAvg.Recall += r * w
		rep.WeightedAvg.F1 += cm.F1 * w
		total += w
	}
	rep.WeightedAvg.Precision /= total
	rep.WeightedAvg.Recall /= total
	rep.WeightedAvg.F1 /= total
	rep.MacroAvg.Support = int(total)
	rep.WeightedAvg.Support = int(total)
	return rep, nil
}

// String renders the report as an aligned text table.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%12s %10s %10s %10s %10s\n", "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%12g %10.4f %10.4f %10.4f %10d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%12s %10s %10s %10.4f %10d\n", "accuracy", "", "", r.Accuracy, r.MacroAvg.Support)
	fmt.Fprintf(&b, "%12s %10.4f %10.4f %10.4f %10d\n", "macro avg", r.MacroAvg.Precision, r.MacroAvg.Recall, r.MacroAvg.F1, r.MacroAvg.Support)
	fmt.Fprintf(&b, "%12s %10.4f %10.4f %10.4f %10d\n", "weighted avg", r.WeightedAvg.Precision, r.WeightedAvg.Recall, r.WeightedAvg.F1, r.WeightedAvg.Support)
	return b.String()
}
