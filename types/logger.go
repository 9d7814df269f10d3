package types

import "go.uber.org/zap"

// StandardLogger provides the traditional logging methods.
type StandardLogger interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// StructuredLogger provides key-value structured logging. The 'w' suffix
// stands for "with" (structured data).
type StructuredLogger interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
}

// ZapLogger provides zap typed-field structured logging. The 'z' suffix
// distinguishes these methods from the sugared StructuredLogger ones.
type ZapLogger interface {
	Debugz(msg string, fields ...zap.Field)
	Infoz(msg string, fields ...zap.Field)
	Warnz(msg string, fields ...zap.Field)
	Errorz(msg string, fields ...zap.Field)
}

// Logger combines all logging capabilities into one interface implemented
// by the zap-backed logger and used throughout the engine.
type Logger interface {
	With(fields ...string) Logger
	WithOpContext(*OpContext) Logger

	StandardLogger
	StructuredLogger
	ZapLogger
}
