// Package service runs the verifier behind a bounded request bus. A single
// dispatcher goroutine owns the Verifier, so requests are processed one at a
// time to completion in arrival order.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zmlAEQ/aggverify/internal/curve"
	"github.com/zmlAEQ/aggverify/internal/state"
	"github.com/zmlAEQ/aggverify/internal/verifier"
	"github.com/zmlAEQ/aggverify/pkg/bus"
	"github.com/zmlAEQ/aggverify/pkg/lifecycle"
	"github.com/zmlAEQ/aggverify/pkg/logger"
	"github.com/zmlAEQ/aggverify/pkg/metrics"
	"github.com/zmlAEQ/aggverify/pkg/trace"
)

var (
	ErrBusy    = errors.New("service: request queue full")
	ErrStopped = errors.New("service: not running")
)

// Outcome categories produced by the service itself.
const (
	CategoryUnavailable = "unavailable"
	CategoryCanceled    = "canceled"
)

type envelope struct {
	ctx context.Context
	req verifier.Request
}

type Service struct {
	p     curve.Provider
	store state.Store
	opts  []verifier.Option
	bus   *bus.Bus
	init  *verifier.Init

	// owned by the dispatcher goroutine
	v *verifier.Verifier

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a stopped service. A nil store means an in-memory slot; a nil
// bus gets a default-sized one.
func New(p curve.Provider, store state.Store, b *bus.Bus, opts ...verifier.Option) *Service {
	if store == nil {
		store = state.NewMemoryStore()
	}
	if b == nil {
		b = bus.New(0)
	}
	return &Service{p: p, store: store, opts: opts, bus: b}
}

// SetInit makes Start initialize the verifier before accepting requests.
func (s *Service) SetInit(in verifier.Init) { s.init = &in }

func (s *Service) Name() string { return "aggverify" }

func (s *Service) Start(ctx context.Context) error {
	begin := time.Now()
	if s.init != nil {
		v, err := verifier.New(ctx, s.p, s.store, *s.init, s.opts...)
		if err != nil {
			logger.ErrorJ("service_op", map[string]any{"service": s.Name(), "op": "start", "result": "error", "err": err.Error()})
			return err
		}
		s.v = v
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel, s.done = cancel, done
	s.mu.Unlock()
	go s.loop(loopCtx, s.bus.Subscribe(), done)

	dur := time.Since(begin).Milliseconds()
	logger.InfoJ("service_op", map[string]any{"service": s.Name(), "op": "start", "result": "ok", "initialized": s.v != nil, "latency_ms": dur})
	metrics.ObserveSummary("service_op_ms", map[string]string{"service": s.Name(), "op": "start"}, float64(dur))
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	begin := time.Now()
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	// Submit publishes under mu: nothing is queued once done is cleared
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	dur := time.Since(begin).Milliseconds()
	logger.InfoJ("service_op", map[string]any{"service": s.Name(), "op": "stop", "result": "ok", "latency_ms": dur})
	metrics.ObserveSummary("service_op_ms", map[string]string{"service": s.Name(), "op": "stop"}, float64(dur))
	return nil
}

func (s *Service) loop(ctx context.Context, sub bus.Subscriber, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev := <-sub:
			metrics.SetGauge("aggverify_queue_depth", nil, int64(s.bus.Len()))
			env, ok := ev.Body.(envelope)
			if !ok || ev.Kind != bus.KindRequest {
				logger.WarnJ("aggverify_dispatch", map[string]any{"result": "drop", "kind": string(ev.Kind), "trace_id": ev.TraceID})
				continue
			}
			ev.Reply <- s.dispatch(env.ctx, env.req)
		case <-ctx.Done():
			s.drain(sub)
			return
		}
	}
}

// drain refuses everything still queued when the loop exits.
func (s *Service) drain(sub bus.Subscriber) {
	for {
		select {
		case ev := <-sub:
			if ev.Reply != nil {
				ev.Reply <- unavailable(ErrStopped)
			}
		default:
			metrics.SetGauge("aggverify_queue_depth", nil, 0)
			return
		}
	}
}

func (s *Service) dispatch(ctx context.Context, req verifier.Request) verifier.Outcome {
	if req.Kind == verifier.KindInit {
		if s.v != nil {
			return verifier.OutcomeOf(&verifier.Error{Kind: verifier.ErrAlreadyInitialized, Op: "init"})
		}
		v, err := verifier.New(ctx, s.p, s.store, verifier.Init{Generator: req.Generator, PublicKeys: req.PublicKeys}, s.opts...)
		if err != nil {
			return verifier.OutcomeOf(err)
		}
		s.v = v
		return verifier.Outcome{OK: true}
	}
	if s.v == nil {
		err := &verifier.Error{Kind: verifier.ErrUninitialized, Op: string(req.Kind)}
		logger.ErrorJ("aggverify", map[string]any{"op": string(req.Kind), "result": "uninitialized", "trace_id": traceID(ctx)})
		metrics.Inc("aggverify_requests_total", map[string]string{"op": string(req.Kind), "result": "uninitialized"})
		return verifier.OutcomeOf(err)
	}
	return s.v.Handle(ctx, req)
}

func traceID(ctx context.Context) string {
	id, _ := trace.FromContext(ctx)
	return id
}

// Submit queues req and waits for its outcome. It never blocks on a full
// queue; the request is then refused with category "unavailable".
func (s *Service) Submit(ctx context.Context, req verifier.Request) verifier.Outcome {
	ctx, id := trace.Ensure(ctx)
	reply := make(chan any, 1)
	s.mu.Lock()
	done := s.done
	if done == nil {
		s.mu.Unlock()
		return unavailable(ErrStopped)
	}
	err := s.bus.Publish(ctx, bus.Event{Kind: bus.KindRequest, Body: envelope{ctx: ctx, req: req}, TraceID: id, Reply: reply})
	s.mu.Unlock()
	switch {
	case errors.Is(err, bus.ErrFull):
		logger.WarnJ("aggverify_dispatch", map[string]any{"result": "busy", "op": string(req.Kind), "trace_id": id})
		metrics.Inc("aggverify_requests_total", map[string]string{"op": string(req.Kind), "result": "busy"})
		return unavailable(ErrBusy)
	case err != nil:
		return verifier.Outcome{Category: CategoryCanceled, Reason: err.Error()}
	}
	select {
	case out := <-reply:
		return out.(verifier.Outcome)
	case <-done:
		// the loop answers every event it took before closing done
		select {
		case out := <-reply:
			return out.(verifier.Outcome)
		default:
			return unavailable(ErrStopped)
		}
	case <-ctx.Done():
		return verifier.Outcome{Category: CategoryCanceled, Reason: ctx.Err().Error()}
	}
}

func unavailable(err error) verifier.Outcome {
	return verifier.Outcome{Category: CategoryUnavailable, Reason: err.Error()}
}

var _ lifecycle.Service = (*Service)(nil)
