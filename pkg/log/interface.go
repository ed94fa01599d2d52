// Package log provides structured logging for aamlp commands and estimators.
//
// The Logger interface mirrors log/slog's shape (message plus alternating
// key/value fields) so call sites stay backend-agnostic. The default
// backend is zerolog; TestLogger captures JSON lines for assertions.
//
//	logger := log.GetLogger().With(log.ModelNameKey, "RandomForestClassifier")
//	logger.Info("fold scored",
//	    log.FoldKey, 2,
//	    log.AccuracyKey, 0.91,
//	)
package log

import (
	"context"
)

// Logger is a structured, leveled logger.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs normal progress such as a finished fold.
	Info(msg string, fields ...any)

	// Warn logs recoverable problems such as an ill-defined metric.
	Warn(msg string, fields ...any)

	// Error logs a failure. If the first field is an error it is attached
	// with its stack trace and the remaining fields are key/value pairs.
	Error(msg string, fields ...any)

	// With returns a logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level would be emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level with slog-compatible values.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level.
func ParseLevel(level string) (Level, bool) {
	switch level {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// LoggerProvider hands out loggers, allowing tests to inject a TestLogger.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}
