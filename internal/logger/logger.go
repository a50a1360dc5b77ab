// internal/logger/logger.go
package logger

import (
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	lg          atomic.Pointer[zap.SugaredLogger]
	defaultOnce sync.Once
)

// Init builds the process logger. format "json" gives production output,
// anything else the console encoder.
func Init(level, format string) {
	lg.Store(build(level, format))
}

func build(level, format string) *zap.SugaredLogger {
	lvl := zapcore.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := cfg.Build()
	if err != nil {
		z = zap.NewNop()
	}
	return z.Sugar()
}

// Set replaces the process logger, mostly for tests.
func Set(l *zap.Logger) {
	lg.Store(l.Sugar())
}

// L returns the process logger, building an info-level JSON one on first use
// if neither Init nor Set ran.
func L() *zap.SugaredLogger {
	if l := lg.Load(); l != nil {
		return l
	}
	defaultOnce.Do(func() {
		lg.CompareAndSwap(nil, build("info", "json"))
	})
	return lg.Load()
}

func Sync() { _ = L().Sync() }
