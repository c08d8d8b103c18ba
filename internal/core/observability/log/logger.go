package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the logging surface handed to every component of the runtime.
// DPanic marks "should never happen" defects: it panics in development
// builds and logs at error level in production ones.
type Log interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	DPanic(msg string, fields ...zap.Field)
	Fatal(msg string, fields ...zap.Field)

	With(fields ...zap.Field) Log
}

var _ Log = (*Logger)(nil)

type Logger struct {
	z *zap.Logger
}

// New builds a JSON logger writing to stderr at the given level.
func New(level zapcore.Level) *Logger {
	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}

	zapLogger, err := config.Build()
	if err != nil {
		panic(err)
	}
	return &Logger{z: zapLogger}
}

// Nop returns a logger that discards everything. Intended for tests.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// ParseLevel maps a config string ("debug", "info", ...) to a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q: %w", s, err)
	}
	return level, nil
}

func (l *Logger) Debug(msg string, fields ...zap.Field)  { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)   { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)   { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field)  { l.z.Error(msg, fields...) }
func (l *Logger) DPanic(msg string, fields ...zap.Field) { l.z.DPanic(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...zap.Field)  { l.z.Fatal(msg, fields...) }

func (l *Logger) With(fields ...zap.Field) Log {
	return &Logger{z: l.z.With(fields...)}
}
