package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInfoJ_SortedFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := Replace(zap.New(core))
	defer restore()

	InfoJ("aggverify", map[string]any{"result": "ok", "op": "accumulate", "latency_ms": int64(3)})
	entries := logs.All()
	if len(entries) != 1 { t.Fatalf("want 1 entry, got %d", len(entries)) }
	e := entries[0]
	if e.Message != "aggverify" { t.Fatalf("message=%q", e.Message) }
	if len(e.Context) != 3 || e.Context[0].Key != "latency_ms" || e.Context[1].Key != "op" || e.Context[2].Key != "result" {
		t.Fatalf("fields not sorted: %+v", e.Context)
	}
}

func TestErrorJ_Level(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := Replace(zap.New(core))
	defer restore()

	ErrorJ("aggverify", map[string]any{"result": "mismatch"})
	Warn("plain")
	if got := logs.FilterLevelExact(zapcore.ErrorLevel).Len(); got != 1 { t.Fatalf("error entries=%d", got) }
	if got := logs.FilterMessage("plain").Len(); got != 1 { t.Fatalf("plain entries=%d", got) }
}

func TestSetLevel(t *testing.T) {
	defer SetLevel("info")
	if !SetLevel("debug") { t.Fatalf("debug should parse") }
	if SetLevel("chatty") { t.Fatalf("unknown level should be rejected") }
}
