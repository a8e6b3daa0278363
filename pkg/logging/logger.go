// Package logging provides the structured logger shared by every package in
// this module. Components accept the Logger interface; the default
// implementation is backed by zap.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the interface for logging operations
type Logger interface {
	// Debug logs a debug message
	Debug(msg string, keyvals ...any)
	// Info logs an informational message
	Info(msg string, keyvals ...any)
	// Warn logs a warning message
	Warn(msg string, keyvals ...any)
	// Error logs an error message
	Error(msg string, keyvals ...any)
	// With returns a new logger with additional key-value pairs
	With(keyvals ...any) Logger
}

// ZapLogger adapts a zap SugaredLogger to Logger. Values whose keys look
// like credentials are redacted before they reach the encoder.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a zap-backed logger. Mode "prod" selects JSON output, anything
// else the development console encoder. Level is one of debug, info, warn,
// error; unknown levels fall back to info.
func New(mode, level string) (*ZapLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.OutputPaths = []string{"stderr"}

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &ZapLogger{sugar: z.Sugar()}, nil
}

// NewWithCore wraps an existing zap core
func NewWithCore(core zapcore.Core) *ZapLogger {
	return &ZapLogger{sugar: zap.New(core).Sugar()}
}

func parseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// Sync flushes buffered entries
func (l *ZapLogger) Sync() {
	_ = l.sugar.Sync()
}

func (l *ZapLogger) Debug(msg string, keyvals ...any) {
	l.sugar.Debugw(msg, redact(keyvals)...)
}

func (l *ZapLogger) Info(msg string, keyvals ...any) {
	l.sugar.Infow(msg, redact(keyvals)...)
}

func (l *ZapLogger) Warn(msg string, keyvals ...any) {
	l.sugar.Warnw(msg, redact(keyvals)...)
}

func (l *ZapLogger) Error(msg string, keyvals ...any) {
	l.sugar.Errorw(msg, redact(keyvals)...)
}

func (l *ZapLogger) With(keyvals ...any) Logger {
	return &ZapLogger{sugar: l.sugar.With(redact(keyvals)...)}
}

func redact(kv []any) []any {
	if len(kv) == 0 {
		return kv
	}
	out := make([]any, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := fmt.Sprint(kv[i])
		if isSecretKey(strings.ToLower(key)) {
			out = append(out, key, "[REDACTED]")
			continue
		}
		out = append(out, key, kv[i+1])
	}
	return out
}

func isSecretKey(key string) bool {
	for _, marker := range []string{"api_key", "apikey", "token", "secret", "password", "authorization"} {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)  {}
func (nopLogger) Info(string, ...any)   {}
func (nopLogger) Warn(string, ...any)   {}
func (nopLogger) Error(string, ...any)  {}
func (n nopLogger) With(...any) Logger { return n }

// Nop returns a logger that discards all messages
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns l, or a no-op logger when l is nil
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}
