package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "aamlp: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			wantMsg: "aamlp: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}
			if formatted := fmt.Sprintf("%+v", err); !strings.Contains(formatted, "errors_test.go") {
				t.Error("expected stack trace to contain test file name")
			}
			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Accuracy", 9, 8, 0)

	want := "aamlp: Accuracy: dimension mismatch on axis 0 (rows). Expected 9, got 8"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Fatal("error should be castable to *DimensionError")
	}
	if dimErr.Expected != 9 || dimErr.Got != 8 {
		t.Errorf("unexpected fields: %+v", dimErr)
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("LabelEncoder", "Transform")

	want := "aamlp: LabelEncoder: this model is not fitted yet. Call Fit() before using Transform()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("error should be castable to *NotFittedError")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("n_splits", "must be at least 2", 1)

	want := "aamlp: validation failed for parameter 'n_splits': must be at least 2 (got: 1)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestUndefinedMetricWarning(t *testing.T) {
	w := NewUndefinedMetricWarning("precision", "no predicted samples", 0)
	want := "'precision' is ill-defined and being set to 0.000000 due to no predicted samples."
	if w.Error() != want {
		t.Errorf("Error() = %q, want %q", w.Error(), want)
	}
}

func TestWarnRouting(t *testing.T) {
	var fallback, structured []error
	SetWarningHandler(func(w error) { fallback = append(fallback, w) })
	defer SetWarningHandler(func(error) {})

	Warn(NewUndefinedMetricWarning("recall", "no true samples", 0))
	if len(fallback) != 1 {
		t.Fatalf("fallback handler got %d warnings, want 1", len(fallback))
	}

	SetZerologWarnFunc(func(w error) { structured = append(structured, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewConvergenceWarning("LogisticRegression", 100, ""))
	if len(structured) != 1 || len(fallback) != 1 {
		t.Errorf("expected structured sink to take precedence, fallback=%d structured=%d", len(fallback), len(structured))
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d rows", "KFold.Split", 10)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("expected Is(wrapped, ErrEmptyData) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in KFold.Split: expected 10 rows") {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
}

func TestNumericalHelpers(t *testing.T) {
	if got := SafeDivide(1, 0); got != 0 {
		t.Errorf("SafeDivide(1, 0) = %v, want 0", got)
	}
	if got := SafeDivide(3, 4); got != 0.75 {
		t.Errorf("SafeDivide(3, 4) = %v, want 0.75", got)
	}
	if got := ClipValue(2, 0, 1); got != 1 {
		t.Errorf("ClipValue(2, 0, 1) = %v, want 1", got)
	}
	if err := CheckScalar("loss", math.NaN(), 3); err == nil {
		t.Error("expected NaN to be reported")
	}
	if err := CheckNumericalStability("grad", []float64{1, 2, math.Inf(1)}, 0); err == nil {
		t.Error("expected Inf to be reported")
	}
	if err := CheckNumericalStability("grad", []float64{1, 2}, 0); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	if got := StabilizeLog(0); got != math.Log(1e-10) {
		t.Errorf("StabilizeLog(0) = %v", got)
	}
}
