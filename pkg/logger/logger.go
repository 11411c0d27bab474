package logger

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface used across the helper packages.
type Logger interface {
	Info(msg string, obj any)
	Warn(msg string, obj any)
	Debug(msg string, obj any)
	Error(msg string, obj any)
}

// NopLogger discards all log messages.
type NopLogger struct{}

func (NopLogger) Info(string, any)  {}
func (NopLogger) Warn(string, any)  {}
func (NopLogger) Debug(string, any) {}
func (NopLogger) Error(string, any) {}

var levels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return zapcore.WarnLevel, nil
	}
	if name == "warning" {
		name = "warn"
	}
	level, ok := levels[name]
	if !ok {
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

type zapLogger struct {
	z *zap.Logger
}

// New builds a console logger writing to w at the given level.
func New(w io.Writer, level string) (Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return NopLogger{}, nil
	}
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(lvl),
	)
	return zapLogger{z: zap.New(core)}, nil
}

// NewWriterLogger builds a debug-level logger that writes to an io.Writer.
func NewWriterLogger(w io.Writer) Logger {
	l, _ := New(w, "debug")
	return l
}

func (l zapLogger) write(level zapcore.Level, msg string, obj any) {
	if obj == nil {
		l.z.Log(level, msg)
		return
	}
	l.z.Log(level, msg, zap.Any("obj", obj))
}

func (l zapLogger) Info(msg string, obj any)  { l.write(zapcore.InfoLevel, msg, obj) }
func (l zapLogger) Warn(msg string, obj any)  { l.write(zapcore.WarnLevel, msg, obj) }
func (l zapLogger) Debug(msg string, obj any) { l.write(zapcore.DebugLevel, msg, obj) }
func (l zapLogger) Error(msg string, obj any) { l.write(zapcore.ErrorLevel, msg, obj) }

// Debug logs at debug level, but only when verbose output was requested.
func Debug(enabled bool, l Logger, msg string, obj any) {
	if enabled {
		emit(l, zapcore.DebugLevel, msg, obj)
	}
}

// Info, Warn and Error tolerate a nil Logger so optional dependencies can stay unset.
func Info(l Logger, msg string, obj any)  { emit(l, zapcore.InfoLevel, msg, obj) }
func Warn(l Logger, msg string, obj any)  { emit(l, zapcore.WarnLevel, msg, obj) }
func Error(l Logger, msg string, obj any) { emit(l, zapcore.ErrorLevel, msg, obj) }

func emit(l Logger, level zapcore.Level, msg string, obj any) {
	if l == nil {
		return
	}
	switch level {
	case zapcore.DebugLevel:
		l.Debug(msg, obj)
	case zapcore.InfoLevel:
		l.Info(msg, obj)
	case zapcore.WarnLevel:
		l.Warn(msg, obj)
	default:
		l.Error(msg, obj)
	}
}
