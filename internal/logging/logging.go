// Package logging builds the zap loggers used across bipedsim.
package logging

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// NewLoggerConfig is a console config without stacktraces and with colored levels.
func NewLoggerConfig() zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger returns an Info+ logger writing to stderr.
func NewLogger(name string) *zap.SugaredLogger {
	return build(name, zap.InfoLevel)
}

// NewDebugLogger returns a Debug+ logger writing to stderr.
func NewDebugLogger(name string) *zap.SugaredLogger {
	return build(name, zap.DebugLevel)
}

func build(name string, level zapcore.Level) *zap.SugaredLogger {
	cfg := NewLoggerConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Named(name).Sugar()
}

// NewTestLogger returns a Debug+ logger that writes through tb.Log.
func NewTestLogger(tb testing.TB) *zap.SugaredLogger {
	return zaptest.NewLogger(tb).Sugar()
}

// NewObservedTestLogger is like NewTestLogger but also saves logs to an in memory observer.
func NewObservedTestLogger(tb testing.TB) (*zap.SugaredLogger, *observer.ObservedLogs) {
	observerCore, observedLogs := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	logger := zaptest.NewLogger(tb, zaptest.WrapOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, observerCore)
	})))
	return logger.Sugar(), observedLogs
}

// Sampled wraps logger so that each message is logged at most first times a
// second and then once every thereafter. Use it for warnings that can fire on
// every control tick.
func Sampled(logger *zap.SugaredLogger, first, thereafter int) *zap.SugaredLogger {
	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewSamplerWithOptions(c, time.Second, first, thereafter)
	}))
}
