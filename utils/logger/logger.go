// Package logger provides the process-wide structured logger.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log = zap.Must(zap.NewProduction()).Sugar()

// Init replaces the default logger with one configured from the given
// level ("debug", "info", "warn", "error") and optional log file path.
// An empty file logs to stderr only.
func Init(level string, file string) error {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if file != "" {
		cfg.OutputPaths = []string{"stderr", file}
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	log = l.Sugar()
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Debug logs a message at debug level.
func Debug(msg string) {
	log.Debug(msg)
}

// Info logs a message at info level.
func Info(msg string) {
	log.Info(msg)
}

// Warn logs a message at warn level.
func Warn(msg string) {
	log.Warn(msg)
}

// Error logs an error at error level.
func Error(err error) {
	log.Error(err)
}

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	_ = log.Sync()
}
