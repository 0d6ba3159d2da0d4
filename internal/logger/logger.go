package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

var globalLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// LogLevel represents different log levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Config holds logger configuration
type Config struct {
	Level      LogLevel
	OutputPath string
	Format     string // "json" or "text"
}

// InitWithConfig initializes logger with custom config
func InitWithConfig(config Config) error {
	output, err := openOutput(config.OutputPath)
	if err != nil {
		return err
	}

	opts := &slog.HandlerOptions{
		Level:     toSlogLevel(config.Level),
		AddSource: config.Level == LevelDebug,
	}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)

	return nil
}

func openOutput(path string) (io.Writer, error) {
	switch path {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	// Create logs directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

func toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLogger replaces the global logger. Tests use it to silence output.
func SetLogger(l *slog.Logger) {
	globalLogger = l
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithContext returns a logger with context values
func WithContext(ctx context.Context) *slog.Logger {
	return globalLogger
}

// WithFields returns a logger with additional fields
func WithFields(fields ...any) *slog.Logger {
	return globalLogger.With(fields...)
}

// WithPatient scopes the logger to one patient and, when given, one day.
func WithPatient(patientID uint, day string) *slog.Logger {
	if day == "" {
		return globalLogger.With("patient_id", patientID)
	}
	return globalLogger.With("patient_id", patientID, "day", day)
}

// Info logs an info message
func Info(msg string, args ...any) {
	globalLogger.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	globalLogger.Warn(msg, args...)
}

// GetLogger returns the global logger instance
func GetLogger() *slog.Logger {
	return globalLogger
}
