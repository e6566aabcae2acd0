package p2p

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zmlAEQ/aggverify/pkg/metrics"
)

func TestStreamLimiter_AllowsThenLimitsThenAllows(t *testing.T) {
	metrics.Reset()
	l := NewStreamLimiter(1)
	if !l.TryOpen() {
		t.Fatalf("first TryOpen should allow")
	}
	if l.TryOpen() {
		t.Fatalf("second TryOpen should be limited")
	}
	dump := metrics.DumpProm()
	if !strings.Contains(dump, `p2p_rate_limited_total{kind="stream"} 1`) {
		t.Fatalf("want rate limited metric, got: %s", dump)
	}
	l.Close()
	if !l.TryOpen() {
		t.Fatalf("after close, TryOpen should allow again")
	}
	if !strings.Contains(metrics.DumpProm(), "p2p_streams_open 1") {
		t.Fatalf("missing p2p_streams_open gauge: %s", metrics.DumpProm())
	}
}

func TestStreamLimiter_Unlimited(t *testing.T) {
	var l *StreamLimiter
	for i := 0; i < 3; i++ {
		if !l.TryOpen() { t.Fatalf("nil limiter should allow") }
	}
	l.Close()
	u := NewStreamLimiter(0)
	if !u.TryOpen() || !u.TryOpen() { t.Fatalf("zero max should allow") }
}

type failing struct{ err error }

func (f failing) Start(context.Context) error { return f.err }
func (f failing) Stop(context.Context) error  { return nil }
func (f failing) Addrs() []string             { return []string{"/ip4/127.0.0.1/tcp/1"} }

func TestNetService(t *testing.T) {
	metrics.Reset()
	s := NewNetService("accelerator-p2p", NoopTransport{})
	if s.Name() != "accelerator-p2p" { t.Fatalf("name=%s", s.Name()) }
	if err := s.Start(context.Background()); err != nil { t.Fatalf("start: %v", err) }
	if err := s.Stop(context.Background()); err != nil { t.Fatalf("stop: %v", err) }
	boom := errors.New("boom")
	if err := NewNetService("x", failing{err: boom}).Start(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("want start error, got %v", err)
	}
	if !strings.Contains(metrics.DumpProm(), `service_op_ms_count{op="start",service="accelerator-p2p"} 1`) {
		t.Fatalf("missing service_op_ms: %s", metrics.DumpProm())
	}
}
