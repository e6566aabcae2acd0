// Package logger is the process-wide structured logger. Call sites log either a
// plain message (Info/Warn/Error) or a named event with a field map
// (InfoJ/ErrorJ), which is emitted as a single JSON line through zap.
package logger

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zap.InfoLevel)
	base  = build(level)
)

func build(lvl zap.AtomicLevel) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// SetLevel changes the minimum level; unknown names leave it unchanged.
func SetLevel(name string) bool {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(name)))); err != nil {
		return false
	}
	level.SetLevel(l)
	return true
}

// Replace swaps the underlying zap logger (tests use zaptest/observer cores).
// It returns a function restoring the previous logger.
func Replace(l *zap.Logger) func() {
	mu.Lock()
	prev := base
	base = l.WithOptions(zap.AddCallerSkip(1))
	mu.Unlock()
	return func() {
		mu.Lock()
		base = prev
		mu.Unlock()
	}
}

// Sync flushes buffered entries.
func Sync() { _ = current().Sync() }

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func Debug(msg string) { current().Debug(msg) }
func Info(msg string)  { current().Info(msg) }
func Warn(msg string)  { current().Warn(msg) }
func Error(msg string) { current().Error(msg) }

// InfoJ logs event with fields at info level.
func InfoJ(event string, fields map[string]any) { current().Info(event, toFields(fields)...) }

// WarnJ logs event with fields at warn level.
func WarnJ(event string, fields map[string]any) { current().Warn(event, toFields(fields)...) }

// ErrorJ logs event with fields at error level.
func ErrorJ(event string, fields map[string]any) { current().Error(event, toFields(fields)...) }

// toFields sorts keys so identical maps produce identical lines.
func toFields(m map[string]any) []zap.Field {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, m[k]))
	}
	return out
}
