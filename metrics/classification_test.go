package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestAccuracyAndError(t *testing.T) {
	tests := []struct {
		name         string
		yTrue, yPred *mat.VecDense
		want         float64
		wantErr      bool
	}{
		// l1/l2 of the accuracy recipe
		{name: "binary recipe", yTrue: vec(0, 1, 1, 1, 0, 0, 0, 1), yPred: vec(0, 1, 0, 1, 0, 1, 0, 0), want: 0.625},
		{name: "multiclass recipe", yTrue: vec(0, 1, 2, 0, 1, 2, 0, 2, 2), yPred: vec(0, 2, 1, 0, 2, 1, 0, 0, 2), want: 4.0 / 9},
		{name: "all correct", yTrue: vec(3, 1, 2), yPred: vec(3, 1, 2), want: 1},
		{name: "all wrong", yTrue: vec(0, 0, 0), yPred: vec(1, 1, 1), want: 0},
		{name: "length mismatch", yTrue: vec(0, 1), yPred: vec(0), wantErr: true},
		{name: "nil", yTrue: nil, yPred: vec(0), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := Accuracy(tt.yTrue, tt.yPred)
			miss, errMiss := ClassificationError(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Error(t, errMiss)
				return
			}
			require.NoError(t, err)
			require.NoError(t, errMiss)
			assert.InDelta(t, tt.want, acc, 1e-12)
			assert.InDelta(t, 1-tt.want, miss, 1e-12)
		})
	}
}

func TestF1SkewedTargets(t *testing.T) {
	// 20 samples, three positives: the f1 recipe
	yTrue := vec(0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 1, 0)
	yPred := vec(0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 1, 0)

	p, err := Precision(yTrue, yPred)
	require.NoError(t, err)
	r, err := Recall(yTrue, yPred)
	require.NoError(t, err)
	f1, err := F1(yTrue, yPred)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, p, 1e-12)
	assert.InDelta(t, 2.0/3, r, 1e-12)
	assert.InDelta(t, 0.5714285714, f1, 1e-9)

	binary, err := F1Score(yTrue, yPred, AverageBinary)
	require.NoError(t, err)
	assert.InDelta(t, f1, binary, 1e-12)

	// accuracy looks good on skewed targets even though f1 does not
	acc, err := Accuracy(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.85, acc, 1e-12)
}

func TestAUCEdgeCases(t *testing.T) {
	tests := []struct {
		name         string
		yTrue, yPred *mat.VecDense
		want         float64
		wantWarn     bool
		wantErr      bool
	}{
		{name: "ranked perfectly", yTrue: vec(0, 0, 1, 1), yPred: vec(0.05, 0.2, 0.7, 0.99), want: 1},
		{name: "ranked backwards", yTrue: vec(1, 1, 0, 0), yPred: vec(0.05, 0.2, 0.7, 0.99), want: 0},
		{name: "all scores tied", yTrue: vec(0, 1, 0, 1), yPred: vec(0.3, 0.3, 0.3, 0.3), want: 0.5},
		// one tie across classes counts half
		{name: "partial tie", yTrue: vec(0, 0, 1, 1), yPred: vec(0.1, 0.6, 0.6, 0.9), want: 0.875},
		{name: "hard labels", yTrue: vec(0, 1, 1, 0, 1), yPred: vec(0, 1, 0, 0, 1), want: (1 + 2.0/3) / 2},
		{name: "only positives", yTrue: vec(1, 1, 1), yPred: vec(0.2, 0.5, 0.9), want: 0.5, wantWarn: true},
		{name: "only negatives", yTrue: vec(0, 0), yPred: vec(0.2, 0.5), want: 0.5, wantWarn: true},
		{name: "non binary target", yTrue: vec(0, 2, 1), yPred: vec(0.1, 0.5, 0.9), wantErr: true},
		{name: "length mismatch", yTrue: vec(0, 1), yPred: vec(0.5), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := captureWarnings(t)
			got, err := AUC(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.Equal(t, tt.wantWarn, len(*warnings) > 0)
		})
	}
}

func TestAUCMatrixUsesFirstColumn(t *testing.T) {
	// valid fold target next to the kfold column, and P(class 1) next to
	// an unused second output
	yTrue := mat.NewDense(4, 2, []float64{
		0, 3,
		0, 3,
		1, 3,
		1, 3,
	})
	yPred := mat.NewDense(4, 2, []float64{
		0.1, 0.9,
		0.4, 0.6,
		0.35, 0.65,
		0.8, 0.2,
	})
	got, err := AUCMatrix(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got, 1e-12)

	_, err = AUCMatrix(nil, yPred)
	assert.Error(t, err)
	_, err = AUCMatrix(&mat.Dense{}, &mat.Dense{})
	assert.Error(t, err)
}

func TestBinaryLogLossClipping(t *testing.T) {
	tests := []struct {
		name         string
		yTrue, yPred *mat.VecDense
		want         float64
		wantErr      bool
	}{
		{name: "confident and right", yTrue: vec(0, 1), yPred: vec(0, 1), want: 1e-15},
		// log(1e-15) instead of +Inf
		{name: "confident and wrong", yTrue: vec(1), yPred: vec(0), want: -math.Log(1e-15)},
		{name: "coin flip", yTrue: vec(0, 1, 1, 0), yPred: vec(0.5, 0.5, 0.5, 0.5), want: math.Ln2},
		{name: "labels must be 0 or 1", yTrue: vec(0, 2), yPred: vec(0.1, 0.9), wantErr: true},
		{name: "nil", yTrue: nil, yPred: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BinaryLogLoss(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.False(t, math.IsInf(got, 0))
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

// skewed returns n samples with one positive in ten, scored noisily.
func skewed(n int) (*mat.VecDense, *mat.VecDense) {
	yTrue := mat.NewVecDense(n, nil)
	yPred := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		score := float64((i*37)%100) / 100
		if i%10 == 0 {
			yTrue.SetVec(i, 1)
			score = 0.5 + score/2
		}
		yPred.SetVec(i, math.Min(score, 0.999))
	}
	return yTrue, yPred
}

func BenchmarkAUC(b *testing.B) {
	yTrue, yPred := skewed(10000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = AUC(yTrue, yPred)
	}
}

func BenchmarkBinaryLogLoss(b *testing.B) {
	yTrue, yPred := skewed(10000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = BinaryLogLoss(yTrue, yPred)
	}
}
