package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestRecover(t *testing.T) {
	tests := []struct {
		name      string
		fn        func() error
		wantErr   bool
		wantPanic bool
		wantMsg   string
	}{
		{
			name:      "string panic",
			fn:        func() error { panic("fold 3 exploded") },
			wantErr:   true,
			wantPanic: true,
			wantMsg:   "panic in op: fold 3 exploded",
		},
		{
			name: "index panic",
			fn: func() error {
				var s []int
				_ = s[2]
				return nil
			},
			wantErr:   true,
			wantPanic: true,
		},
		{
			name:    "no panic",
			fn:      func() error { return nil },
			wantErr: false,
		},
		{
			name:    "plain error passes through",
			fn:      func() error { return errors.New("boom") },
			wantErr: true,
			wantMsg: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("op", tt.fn)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SafeExecute() error = %v, wantErr %v", err, tt.wantErr)
			}
			var panicErr *PanicError
			if got := errors.As(err, &panicErr); got != tt.wantPanic {
				t.Fatalf("errors.As(PanicError) = %v, want %v", got, tt.wantPanic)
			}
			if tt.wantPanic && panicErr.StackTrace == "" {
				t.Error("expected a captured stack trace")
			}
			if tt.wantMsg != "" && err.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestRecover_KeepsExistingError(t *testing.T) {
	original := errors.New("original")
	fn := func() (err error) {
		defer Recover(&err, "Fit")
		err = original
		panic("late panic")
	}

	err := fn()
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, original) {
		t.Errorf("expected chain to contain original error, got %v", err)
	}
	if !strings.Contains(err.Error(), "late panic") {
		t.Errorf("expected panic value in message, got %q", err.Error())
	}
}

func BenchmarkSafeExecute_NoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = SafeExecute("bench", func() error { return nil })
	}
}
