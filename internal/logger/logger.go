// Package logger is a leveled printf-style front for a zap logger.
package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level and encoding.
type Config struct {
	Level  string `yaml:"level" json:"level" env:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format" env:"FORMAT"` // console or json
}

var (
	mu    sync.RWMutex
	sugar = newDefault()
)

func newDefault() *zap.SugaredLogger {
	l, err := build(Config{Level: "info", Format: "console"})
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

func build(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, fmt.Errorf("unknown log level %q", cfg.Level)
		}
	}

	var zc zap.Config
	switch strings.ToLower(cfg.Format) {
	case "", "console", "text":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.DisableStacktrace = true
	case "json":
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "ts"
		zc.EncoderConfig.EncodeTime = zapcore.EpochMillisTimeEncoder
		zc.EncoderConfig.CallerKey = ""
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	// stdout carries generated diagrams
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build(zap.AddCallerSkip(1))
}

// Setup replaces the package logger according to cfg.
func Setup(cfg Config) error {
	l, err := build(cfg)
	if err != nil {
		return err
	}
	Use(l)
	return nil
}

// Use installs l as the package logger.
func Use(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	sugar = l.Sugar()
}

// Sync flushes buffered entries.
func Sync() {
	_ = current().Sync()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Fatal logs at fatal level and exits.
// Arguments are handled in the manner of [fmt.Printf].
func Fatal(format string, args ...interface{}) {
	current().Fatalf(format, args...)
}

// Error logs at error level.
// Arguments are handled in the manner of [fmt.Printf].
func Error(format string, args ...interface{}) {
	current().Errorf(format, args...)
}

// Warn logs at warn level.
// Arguments are handled in the manner of [fmt.Printf].
func Warn(format string, args ...interface{}) {
	current().Warnf(format, args...)
}

// Info logs at info level.
// Arguments are handled in the manner of [fmt.Printf].
func Info(format string, args ...interface{}) {
	current().Infof(format, args...)
}

// Debug logs at debug level.
// Arguments are handled in the manner of [fmt.Printf].
func Debug(format string, args ...interface{}) {
	current().Debugf(format, args...)
}
