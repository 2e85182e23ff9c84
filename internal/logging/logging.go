// Package logging provides the process-wide structured logger built on zap.
package logging

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu           sync.RWMutex
	globalLogger *zap.Logger
	globalLevel  = zap.NewAtomicLevelAt(zapcore.WarnLevel)
)

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	OutputPath string // stdout, stderr, or file path
}

// Init initializes the global logger.
func Init(cfg Config) error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.WarnLevel
	}

	var config zap.Config
	if cfg.Format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		config.DisableStacktrace = true
	}

	globalLevel.SetLevel(level)
	config.Level = globalLevel
	output := cfg.OutputPath
	if output == "" {
		output = "stderr"
	}
	config.OutputPaths = []string{output}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	mu.Lock()
	old := globalLogger
	globalLogger = logger
	mu.Unlock()
	if old != nil {
		_ = old.Sync()
	}
	return nil
}

// InitDefault installs a console logger on stderr at warn level.
func InitDefault() {
	_ = Init(Config{Level: "warn", Format: "console"})
}

// Replace swaps the global logger, returning a func that restores the previous one.
// Tests use it with zaptest/observer loggers.
func Replace(logger *zap.Logger) func() {
	mu.Lock()
	prev := globalLogger
	globalLogger = logger
	mu.Unlock()
	return func() {
		mu.Lock()
		globalLogger = prev
		mu.Unlock()
	}
}

// Sync flushes any buffered log entries.
func Sync() error {
	mu.RLock()
	logger := globalLogger
	mu.RUnlock()
	if logger != nil {
		return logger.Sync()
	}
	return nil
}

// SetLevel changes the global log level at runtime.
func SetLevel(level string) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return
	}
	globalLevel.SetLevel(l)
}

// L returns the global logger.
func L() *zap.Logger {
	mu.RLock()
	logger := globalLogger
	mu.RUnlock()
	if logger == nil {
		InitDefault()
		mu.RLock()
		logger = globalLogger
		mu.RUnlock()
	}
	return logger
}

// Debug logs a debug message.
func Debug(msg string, fields ...zap.Field) {
	L().Debug(msg, fields...)
}

// Info logs an info message.
func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

// Warn logs a warning message.
func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

// Error logs an error message.
func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}

// Field helpers for common fields.
func String(key, val string) zap.Field {
	return zap.String(key, val)
}

func Int(key string, val int) zap.Field {
	return zap.Int(key, val)
}

func Err(err error) zap.Field {
	return zap.Error(err)
}

func Duration(key string, val time.Duration) zap.Field {
	return zap.Duration(key, val)
}

func Strings(key string, val []string) zap.Field {
	return zap.Strings(key, val)
}
