// Package log wraps a package-level zap logger shared by every pipeline stage.
package log

import (
	"fmt"

	"go.uber.org/zap"
)

var (
	sugar *zap.SugaredLogger
	base  *zap.Logger
)

// Init builds the logger. Debug mode uses zap's development config (console
// encoder, debug level); otherwise the production JSON config is used.
func Init(debug bool) error {
	var (
		l   *zap.Logger
		err error
	)
	if debug {
		l, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		cfg := zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stderr"}
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		l, err = cfg.Build(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("init zap logger: %w", err)
	}
	base = l
	sugar = l.Sugar()
	return nil
}

// Logger returns the base logger, falling back to a no-op logger before Init.
func Logger() *zap.Logger {
	if base == nil {
		base = zap.NewNop()
		sugar = base.Sugar()
	}
	return base
}

func get() *zap.SugaredLogger {
	if sugar == nil {
		Logger()
	}
	return sugar
}

// With returns a child sugared logger carrying the given fields.
func With(keysAndValues ...interface{}) *zap.SugaredLogger {
	return get().With(keysAndValues...)
}

// Sync flushes buffered entries.
func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}

func Debugw(msg string, keysAndValues ...interface{}) {
	get().Debugw(msg, keysAndValues...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	get().Infow(msg, keysAndValues...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	get().Warnw(msg, keysAndValues...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	get().Errorw(msg, keysAndValues...)
}
