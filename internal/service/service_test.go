package service

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/zmlAEQ/aggverify/internal/curve"
	"github.com/zmlAEQ/aggverify/internal/curve/gnark"
	"github.com/zmlAEQ/aggverify/internal/verifier"
	"github.com/zmlAEQ/aggverify/pkg/bus"
	"github.com/zmlAEQ/aggverify/pkg/metrics"
)

type signers struct {
	init verifier.Init
	msg  []byte
	sigs [][]byte
}

func mul(t *testing.T, p curve.Provider, g curve.Group, k int64) curve.Point {
	t.Helper()
	pt, err := p.ScalarMul(p.Generator(g), big.NewInt(k))
	if err != nil { t.Fatalf("mul: %v", err) }
	return pt
}

func newSigners(t *testing.T, p curve.Provider) signers {
	gen := p.Generator(curve.G2)
	s := signers{init: verifier.Init{Generator: gen.Bytes}, msg: mul(t, p, curve.G1, 5).Bytes}
	for _, sk := range []int64{7, 11} {
		s.init.PublicKeys = append(s.init.PublicKeys, mul(t, p, curve.G2, sk).Bytes)
		s.sigs = append(s.sigs, mul(t, p, curve.G1, 5*sk).Bytes)
	}
	return s
}

func startService(t *testing.T, s *Service) {
	t.Helper()
	if err := s.Start(context.Background()); err != nil { t.Fatalf("start: %v", err) }
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
}

func TestService_InitThenTwoPhase(t *testing.T) {
	metrics.Reset()
	ctx := context.Background()
	p := gnark.BN254{}
	sg := newSigners(t, p)
	s := New(p, nil, bus.New(4))
	startService(t, s)

	out := s.Submit(ctx, verifier.Request{Kind: verifier.KindAccumulate, Message: sg.msg, Signatures: sg.sigs})
	if out.OK || out.Category != "uninitialized" { t.Fatalf("before init: %+v", out) }

	out = s.Submit(ctx, verifier.Request{Kind: verifier.KindInit, Generator: sg.init.Generator, PublicKeys: sg.init.PublicKeys})
	if !out.OK { t.Fatalf("init: %+v", out) }
	out = s.Submit(ctx, verifier.Request{Kind: verifier.KindInit, Generator: sg.init.Generator, PublicKeys: sg.init.PublicKeys})
	if out.Category != "already_initialized" { t.Fatalf("second init: %+v", out) }

	if out = s.Submit(ctx, verifier.Request{Kind: verifier.KindAccumulate, Message: sg.msg, Signatures: sg.sigs}); !out.OK {
		t.Fatalf("accumulate: %+v", out)
	}
	if out = s.Submit(ctx, verifier.Request{Kind: verifier.KindFinalize}); !out.OK || !out.Finalized {
		t.Fatalf("finalize: %+v", out)
	}
	if out = s.Submit(ctx, verifier.Request{Kind: verifier.KindFinalize}); !out.OK || out.Finalized {
		t.Fatalf("empty finalize: %+v", out)
	}
	if out = s.Submit(ctx, verifier.Request{Kind: verifier.KindVerify, Message: sg.msg, Signatures: sg.sigs[:1]}); out.Category != "mismatch" {
		t.Fatalf("verify: %+v", out)
	}
	dump := metrics.DumpProm()
	if !strings.Contains(dump, `aggverify_requests_total{op="accumulate",result="uninitialized"} 1`) {
		t.Fatalf("missing uninitialized metric: %s", dump)
	}
}

func TestService_InitAtStart(t *testing.T) {
	p := gnark.BLS12381{}
	sg := newSigners(t, p)
	s := New(p, nil, nil, verifier.WithPolicy(verifier.PolicyReject))
	s.SetInit(sg.init)
	startService(t, s)
	ctx := context.Background()
	req := verifier.Request{Kind: verifier.KindAccumulate, Message: sg.msg, Signatures: sg.sigs}
	if out := s.Submit(ctx, req); !out.OK { t.Fatalf("accumulate: %+v", out) }
	if out := s.Submit(ctx, req); out.Category != "pending" { t.Fatalf("reject policy: %+v", out) }
}

func TestService_StartFailsOnBadInit(t *testing.T) {
	s := New(gnark.BN254{}, nil, nil)
	s.SetInit(verifier.Init{Generator: []byte{1}})
	if err := s.Start(context.Background()); err == nil { t.Fatalf("want init error") }
}

func TestService_SerializesConcurrentCallers(t *testing.T) {
	p := gnark.BN254{}
	sg := newSigners(t, p)
	s := New(p, nil, bus.New(64))
	s.SetInit(sg.init)
	startService(t, s)

	var wg sync.WaitGroup
	outs := make([]verifier.Outcome, 16)
	for i := range outs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i] = s.Submit(context.Background(), verifier.Request{Kind: verifier.KindVerify, Message: sg.msg, Signatures: sg.sigs})
		}(i)
	}
	wg.Wait()
	for i, out := range outs {
		if !out.OK { t.Fatalf("caller %d: %+v", i, out) }
	}
}

// gate holds every pairing until release is closed.
type gate struct {
	gnark.BN254
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gate) Pairing(ctx context.Context, p, q curve.Point) (curve.GT, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.BN254.Pairing(ctx, p, q)
}

func TestService_Busy(t *testing.T) {
	ctx := context.Background()
	g := &gate{entered: make(chan struct{}), release: make(chan struct{})}
	sg := newSigners(t, g.BN254)
	b := bus.New(1)
	s := New(g, nil, b)
	s.SetInit(sg.init)
	startService(t, s)

	first := make(chan verifier.Outcome, 1)
	go func() { first <- s.Submit(ctx, verifier.Request{Kind: verifier.KindVerify, Message: sg.msg, Signatures: sg.sigs}) }()
	<-g.entered
	// the dispatcher is inside the first request; one event fills the bus
	if err := b.Publish(ctx, bus.Event{Kind: bus.KindControl}); err != nil { t.Fatalf("fill: %v", err) }
	out := s.Submit(ctx, verifier.Request{Kind: verifier.KindFinalize})
	if out.Category != CategoryUnavailable || !strings.Contains(out.Reason, ErrBusy.Error()) {
		t.Fatalf("busy: %+v", out)
	}
	close(g.release)
	if out := <-first; !out.OK { t.Fatalf("first: %+v", out) }
}

func TestService_Stopped(t *testing.T) {
	ctx := context.Background()
	s := New(gnark.BN254{}, nil, bus.New(1))
	if out := s.Submit(ctx, verifier.Request{Kind: verifier.KindFinalize}); out.Category != CategoryUnavailable {
		t.Fatalf("not started: %+v", out)
	}
	startService(t, s)
	if err := s.Stop(ctx); err != nil { t.Fatalf("stop: %v", err) }
	out := s.Submit(ctx, verifier.Request{Kind: verifier.KindFinalize})
	if out.Category != CategoryUnavailable || !strings.Contains(out.Reason, ErrStopped.Error()) {
		t.Fatalf("stopped: %+v", out)
	}
}

func TestService_RefusedWhileStoppedNeverRuns(t *testing.T) {
	ctx := context.Background()
	p := gnark.BN254{}
	sg := newSigners(t, p)
	b := bus.New(4)
	s := New(p, nil, b)
	startService(t, s)
	if out := s.Submit(ctx, verifier.Request{Kind: verifier.KindInit, Generator: sg.init.Generator, PublicKeys: sg.init.PublicKeys}); !out.OK {
		t.Fatalf("init: %+v", out)
	}
	if err := s.Stop(ctx); err != nil { t.Fatalf("stop: %v", err) }

	out := s.Submit(ctx, verifier.Request{Kind: verifier.KindAccumulate, Message: sg.msg, Signatures: sg.sigs})
	if out.OK || out.Category != CategoryUnavailable { t.Fatalf("accumulate while stopped: %+v", out) }
	if b.Len() != 0 { t.Fatalf("refused request left on the bus: %d", b.Len()) }

	startService(t, s)
	out = s.Submit(ctx, verifier.Request{Kind: verifier.KindFinalize})
	if !out.OK || out.Finalized { t.Fatalf("refused accumulate was applied: %+v", out) }
}

func TestService_StopRefusesQueued(t *testing.T) {
	ctx := context.Background()
	s := New(gnark.BN254{}, nil, bus.New(4))
	sub := s.bus.Subscribe()
	reply := make(chan any, 1)
	// loop never started: drain alone answers
	if err := s.bus.Publish(ctx, bus.Event{Kind: bus.KindRequest, Reply: reply}); err != nil { t.Fatalf("publish: %v", err) }
	s.drain(sub)
	out, ok := (<-reply).(verifier.Outcome)
	if !ok || out.Category != CategoryUnavailable { t.Fatalf("drained: %+v", out) }
	if s.bus.Len() != 0 { t.Fatalf("bus not drained") }
}

func TestService_CanceledCaller(t *testing.T) {
	s := New(gnark.BN254{}, nil, nil)
	startService(t, s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if out := s.Submit(ctx, verifier.Request{Kind: verifier.KindFinalize}); out.Category != CategoryCanceled {
		t.Fatalf("canceled: %+v", out)
	}
}
