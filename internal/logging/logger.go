// Package logging wraps zap for the server and the CLI. The expression
// engine itself never logs.
package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger adds tool-call helpers to zap.Logger.
type Logger struct {
	*zap.Logger
}

// Config selects level, encoding and sinks. The zero value logs JSON at
// info level to stderr, so stdout stays free for CLI output.
type Config struct {
	Level       string // "debug", "info", "warn", "error"
	Development bool
	OutputPaths []string
}

// DevelopmentConfig logs colored console lines at debug level.
func DevelopmentConfig() Config {
	return Config{Level: "debug", Development: true}
}

// New builds a logger from cfg.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{"stderr"}
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.DisableStacktrace = !cfg.Development

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger}, nil
}

// NewDevelopment falls back to a no-op logger if the development sinks
// cannot be opened.
func NewDevelopment() *Logger {
	logger, err := New(DevelopmentConfig())
	if err != nil {
		return NewNop()
	}
	return logger
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger { return &Logger{Logger: zap.NewNop()} }

// ToolCall records one dispatched tool call. Failures log at warn, the
// rest at debug.
func (l *Logger) ToolCall(tool, precision, kind string, d time.Duration) {
	fields := []zap.Field{
		zap.String("tool", tool),
		zap.String("precision", precision),
		zap.Duration("duration", d),
	}
	if kind != "" {
		l.Warn("tool call failed", append(fields, zap.String("kind", kind))...)
		return
	}
	l.Debug("tool call", fields...)
}
