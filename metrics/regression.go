package metrics

import (
	"math"

	"github.com/approachingml/aamlp/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// MSEMatrix は n×1 行列の入力に対してMSEを計算する
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("MSEMatrix", "input matrix must not be nil")
	}
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError("MSEMatrix", "empty matrix")
	}
	if rTrue != rPred || cTrue != cPred {
		return 0, errors.NewDimensionError("MSEMatrix", rTrue, rPred, 0)
	}
	if cTrue != 1 {
		return 0, errors.NewValueError("MSEMatrix", "must be a column vector (n×1 matrix)")
	}

	t, _ := firstColumn("MSEMatrix", yTrue)
	p, _ := firstColumn("MSEMatrix", yPred)
	return MSE(t, p)
}

// RMSE は平方根平均二乗誤差を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// MSLE は log(1 + y) の平均二乗誤差を計算する。値は -1 より大きくなければならない
func MSLE(yTrue, yPred *mat.VecDense) (float64, error) {
	const op = "MSLE"
	n, err := checkPair(op, yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		if t <= -1 || p <= -1 {
			return 0, errors.NewValueError(op, "values must be greater than -1")
		}
		d := math.Log1p(t) - math.Log1p(p)
		sum += d * d
	}
	return sum / float64(n), nil
}

// RMSLE は MSLE の平方根を返す
func RMSLE(yTrue, yPred *mat.VecDense) (float64, error) {
	msle, err := MSLE(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "RMSLE")
	}
	return math.Sqrt(msle), nil
}

// MPE は符号付き平均パーセンテージ誤差 100 * mean((yTrue-yPred)/yTrue) を返す。
// yTrue = 0 の標本は除外する
func MPE(yTrue, yPred *mat.VecDense) (float64, error) {
	return percentageError("MPE", yTrue, yPred, func(d float64) float64 { return d })
}

// MAPE は平均絶対パーセンテージ誤差を計算する（パーセント表記、yTrue = 0 の標本は除外）
func MAPE(yTrue, yPred *mat.VecDense) (float64, error) {
	return percentageError("MAPE", yTrue, yPred, math.Abs)
}

func percentageError(op string, yTrue, yPred *mat.VecDense, f func(float64) float64) (float64, error) {
	n, err := checkPair(op, yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	valid := 0
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		if t == 0 {
			continue
		}
		sum += f((t - yPred.AtVec(i)) / t)
		valid++
	}
	if valid == 0 {
		return 0, errors.NewValueError(op, "all yTrue values are zero")
	}
	return sum / float64(valid) * 100, nil
}

// R2Score は決定係数（R²）を計算する。yTrue に分散がない場合はエラー
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	yMean := mat.Sum(yTrue) / float64(n)

	var tss, rss float64
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		tss += (t - yMean) * (t - yMean)
		rss += (t - p) * (t - p)
	}
	if tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}

// ExplainedVarianceScore は 1 - Var(yTrue - yPred) / Var(yTrue) を返す
func ExplainedVarianceScore(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("ExplainedVarianceScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	t := make([]float64, n)
	diff := make([]float64, n)
	for i := 0; i < n; i++ {
		t[i] = yTrue.AtVec(i)
		diff[i] = t[i] - yPred.AtVec(i)
	}
	_, varTrue := stat.PopMeanVariance(t, nil)
	if varTrue == 0 {
		return 0, errors.NewValueError("ExplainedVarianceScore", "no variance in yTrue")
	}
	_, varDiff := stat.PopMeanVariance(diff, nil)
	return 1 - varDiff/varTrue, nil
}
