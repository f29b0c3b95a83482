// Package jaillog is the logging facade used throughout jailcall. It
// replaces the teacher's bare fmt.Printf-under-mutex approach
// (internal/breaker/panic_recovery.go's logCallbackPanic/
// logCounterSaturation) with a small interface backed by
// go.uber.org/zap, so callers can plug in their own sink instead of being
// stuck with stdout.
package jaillog

import "go.uber.org/zap"

// Logger is the minimal structured-logging surface jailcall needs.
// Implementations must be safe for concurrent use.
type Logger interface {
	Debugw(msg string, kv ...any)
	Infow(msg string, kv ...any)
	Warnw(msg string, kv ...any)
	Errorw(msg string, kv ...any)
}

// NewZap wraps a *zap.SugaredLogger as a Logger.
func NewZap(l *zap.SugaredLogger) Logger {
	return zapLogger{l}
}

type zapLogger struct{ s *zap.SugaredLogger }

func (z zapLogger) Debugw(msg string, kv ...any) { z.s.Debugw(msg, kv...) }
func (z zapLogger) Infow(msg string, kv ...any)  { z.s.Infow(msg, kv...) }
func (z zapLogger) Warnw(msg string, kv ...any)  { z.s.Warnw(msg, kv...) }
func (z zapLogger) Errorw(msg string, kv ...any) { z.s.Errorw(msg, kv...) }

// NewProduction returns a ready-to-use Logger backed by zap's production
// config (JSON output, info level and above).
func NewProduction() Logger {
	l, err := zap.NewProduction()
	if err != nil {
		// zap.NewProduction only fails on encoder/sink misconfiguration,
		// which the default config never triggers.
		panic("jaillog: failed to build default logger: " + err.Error())
	}
	return NewZap(l.Sugar())
}

// Nop discards everything. Useful as a default when the caller hasn't
// supplied a Logger.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debugw(string, ...any) {}
func (nopLogger) Infow(string, ...any)  {}
func (nopLogger) Warnw(string, ...any)  {}
func (nopLogger) Errorw(string, ...any) {}
