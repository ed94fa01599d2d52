package metrics

import (
	"math"
	"testing"

	"github.com/approachingml/aamlp/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func vec(v ...float64) *mat.VecDense {
	return mat.NewVecDense(len(v), v)
}

// captureWarnings silences warnings for the test and returns what was emitted.
func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var got []error
	errors.SetWarningHandler(func(w error) { got = append(got, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })
	return &got
}

func TestBinaryCounts(t *testing.T) {
	yTrue := vec(0, 1, 1, 1, 0, 0, 0, 1)
	yPred := vec(0, 1, 0, 1, 0, 1, 0, 0)

	tp, err := TruePositive(yTrue, yPred)
	require.NoError(t, err)
	tn, _ := TrueNegative(yTrue, yPred)
	fp, _ := FalsePositive(yTrue, yPred)
	fn, _ := FalseNegative(yTrue, yPred)

	assert.Equal(t, 2, tp)
	assert.Equal(t, 3, tn)
	assert.Equal(t, 1, fp)
	assert.Equal(t, 2, fn)

	p, err := Precision(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, p, 1e-9)

	r, err := Recall(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, r, 1e-9)

	f1, err := F1(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2*p*r/(p+r), f1, 1e-9)

	tpr, _ := TPR(yTrue, yPred)
	assert.Equal(t, r, tpr)

	fpr, err := FPR(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, fpr, 1e-9)
}

func TestZeroDenominatorWarns(t *testing.T) {
	warnings := captureWarnings(t)

	p, err := Precision(vec(1, 0, 1), vec(0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
	require.Len(t, *warnings, 1)

	var w *errors.UndefinedMetricWarning
	assert.True(t, errors.As((*warnings)[0], &w))
	assert.Equal(t, "precision", w.Metric)

	r, err := Recall(vec(0, 0, 0), vec(1, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)
}

func TestAveragedScores(t *testing.T) {
	captureWarnings(t)
	yTrue := vec(0, 1, 2, 0, 1, 2, 0, 2, 2)
	yPred := vec(0, 2, 1, 0, 2, 1, 0, 0, 2)

	tests := []struct {
		name string
		fn   func(yTrue, yPred *mat.VecDense, avg Average) (float64, error)
		avg  Average
		want float64
	}{
		{"precision macro", PrecisionScore, AverageMacro, 0.3611111},
		{"precision micro", PrecisionScore, AverageMicro, 4.0 / 9.0},
		{"precision weighted", PrecisionScore, AverageWeighted, 0.3981481},
		{"recall macro", RecallScore, AverageMacro, 0.4166667},
		{"recall micro", RecallScore, AverageMicro, 4.0 / 9.0},
		{"recall weighted", RecallScore, AverageWeighted, 4.0 / 9.0},
		{"f1 macro", F1Score, AverageMacro, 0.3809524},
		{"f1 micro", F1Score, AverageMicro, 4.0 / 9.0},
		{"f1 weighted", F1Score, AverageWeighted, 0.4126984},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(yTrue, yPred, tt.avg)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-4)
		})
	}
}

func TestAveragedScoresBinary(t *testing.T) {
	yTrue := vec(0, 1, 1, 0)
	yPred := vec(0, 1, 0, 0)

	got, err := PrecisionScore(yTrue, yPred, AverageBinary)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	_, err = F1Score(vec(0, 1, 2), vec(0, 1, 2), AverageBinary)
	assert.Error(t, err)

	_, err = RecallScore(yTrue, yPred, Average("samples"))
	assert.Error(t, err)
}

func TestConfusionMatrix(t *testing.T) {
	cm, labels, err := ConfusionMatrix(vec(0, 1, 2, 0, 1, 2, 0, 2, 2), vec(0, 2, 1, 0, 2, 1, 0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, labels)

	want := mat.NewDense(3, 3, []float64{
		3, 0, 0,
		0, 0, 2,
		1, 2, 1,
	})
	assert.True(t, mat.Equal(want, cm))

	_, _, err = ConfusionMatrix(vec(0, 1), vec(0))
	assert.Error(t, err)
}

func TestAUCTextbookExample(t *testing.T) {
	yTrue := vec(0, 0, 0, 0, 1, 0, 1, 0, 0, 1, 0, 1, 0, 0, 1)
	yPred := vec(0.1, 0.3, 0.2, 0.6, 0.8, 0.05, 0.9, 0.5, 0.3, 0.66, 0.3, 0.2, 0.85, 0.15, 0.99)

	auc, err := AUC(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.83, auc, 1e-9)

	loss, err := BinaryLogLoss(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.49883, loss, 1e-4)
}

func TestROCCurve(t *testing.T) {
	yTrue := vec(0, 0, 0, 0, 1, 0, 1, 0, 0, 1, 0, 1, 0, 0, 1)
	yPred := vec(0.1, 0.3, 0.2, 0.6, 0.8, 0.05, 0.9, 0.5, 0.3, 0.66, 0.3, 0.2, 0.85, 0.15, 0.99)
	thresholds := []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.99, 1.0}

	fpr, tpr, err := ROCCurve(yTrue, yPred, thresholds)
	require.NoError(t, err)

	wantTPR := []float64{1, 1, 1, 0.8, 0.8, 0.8, 0.8, 0.6, 0.6, 0.4, 0.4, 0.2, 0}
	wantFPR := []float64{1, 0.9, 0.7, 0.6, 0.3, 0.3, 0.2, 0.1, 0.1, 0.1, 0, 0, 0}
	assert.InDeltaSlice(t, wantTPR, tpr, 1e-9)
	assert.InDeltaSlice(t, wantFPR, fpr, 1e-9)

	fpr, tpr, ths, err := ROCCurveAuto(yTrue, yPred)
	require.NoError(t, err)
	assert.True(t, math.IsInf(ths[0], 1))
	assert.Equal(t, 0.0, fpr[0])
	assert.Equal(t, 0.0, tpr[0])
	assert.Equal(t, 1.0, fpr[len(fpr)-1])
	assert.Equal(t, 1.0, tpr[len(tpr)-1])
}

func TestLogLossMulticlass(t *testing.T) {
	proba := mat.NewDense(3, 3, []float64{
		0.8, 0.1, 0.1,
		0.2, 0.7, 0.1,
		0.1, 0.2, 0.7,
	})
	got, err := LogLoss(vec(0, 1, 2), proba)
	require.NoError(t, err)
	want := -(math.Log(0.8) + math.Log(0.7) + math.Log(0.7)) / 3
	assert.InDelta(t, want, got, 1e-9)

	_, err = LogLoss(vec(0, 3, 1), proba)
	assert.Error(t, err)
}

func TestCohenKappa(t *testing.T) {
	yTrue := vec(1, 2, 3, 1, 2, 3, 1, 2, 3)
	yPred := vec(2, 1, 3, 1, 2, 3, 3, 1, 2)

	tests := []struct {
		weights string
		want    float64
	}{
		{"", 1.0 / 6.0},
		{"linear", 0.25},
		{"quadratic", 1.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run("weights="+tt.weights, func(t *testing.T) {
			got, err := CohenKappa(yTrue, yPred, tt.weights)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, err := CohenKappa(yTrue, yPred, "cubic")
	assert.Error(t, err)
}

func TestMatthewsCorrCoef(t *testing.T) {
	got, err := MatthewsCorrCoef(vec(1, 1, 0, 0), vec(1, 1, 0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)

	got, err = MatthewsCorrCoef(vec(1, 1, 0, 0), vec(0, 0, 1, 1))
	require.NoError(t, err)
	assert.InDelta(t, -1.0, got, 1e-9)
}

func TestClassificationReport(t *testing.T) {
	captureWarnings(t)
	rep, err := ClassificationReport(vec(0, 1, 2, 0, 1, 2, 0, 2, 2), vec(0, 2, 1, 0, 2, 1, 0, 0, 2))
	require.NoError(t, err)

	require.Len(t, rep.Classes, 3)
	assert.InDelta(t, 0.75, rep.Classes[0].Precision, 1e-9)
	assert.InDelta(t, 1.0, rep.Classes[0].Recall, 1e-9)
	assert.Equal(t, 4, rep.Classes[2].Support)
	assert.InDelta(t, 4.0/9.0, rep.Accuracy, 1e-9)
	assert.InDelta(t, 0.3611111, rep.MacroAvg.Precision, 1e-6)
	assert.InDelta(t, 0.4126984, rep.WeightedAvg.F1, 1e-6)
	assert.Equal(t, 9, rep.WeightedAvg.Support)
	assert.Contains(t, rep.String(), "weighted avg")
}
