package hostcall

import (
	"context"
	"sync"
	"time"

	"github.com/zmlAEQ/aggverify/internal/curve"
	"github.com/zmlAEQ/aggverify/pkg/lifecycle"
	"github.com/zmlAEQ/aggverify/pkg/logger"
	"github.com/zmlAEQ/aggverify/pkg/metrics"
)

type call struct {
	ctx  context.Context
	req  Request
	resp chan Response
}

// Host serves requests against a provider one at a time on its own goroutine.
type Host struct {
	p     curve.Provider
	calls chan call
	quit  chan struct{}
	done  chan struct{}
	start sync.Once
	stop  sync.Once
}

// NewHost returns a host with room for queue pending requests.
func NewHost(p curve.Provider, queue int) *Host {
	if queue <= 0 {
		queue = 16
	}
	return &Host{
		p:     p,
		calls: make(chan call, queue),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (h *Host) Name() string { return "accelerator-host" }

func (h *Host) Start(ctx context.Context) error {
	begin := time.Now()
	h.start.Do(func() { go h.loop() })
	dur := time.Since(begin).Milliseconds()
	logger.InfoJ("service_op", map[string]any{"service": h.Name(), "op": "start", "result": "ok", "curve": string(h.p.Curve()), "latency_ms": dur})
	metrics.ObserveSummary("service_op_ms", map[string]string{"service": h.Name(), "op": "start"}, float64(dur))
	return nil
}

// Stop ends the serving goroutine. Queued requests fail with ErrHostStopped.
func (h *Host) Stop(ctx context.Context) error {
	begin := time.Now()
	h.stop.Do(func() { close(h.quit) })
	// never started: nothing will close done
	h.start.Do(func() { close(h.done) })
	select {
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	dur := time.Since(begin).Milliseconds()
	logger.InfoJ("service_op", map[string]any{"service": h.Name(), "op": "stop", "result": "ok", "latency_ms": dur})
	metrics.ObserveSummary("service_op_ms", map[string]string{"service": h.Name(), "op": "stop"}, float64(dur))
	return nil
}

func (h *Host) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			return
		case c := <-h.calls:
			if err := c.ctx.Err(); err != nil {
				c.resp <- Response{ID: c.req.ID, Code: errorCode(err), Err: err.Error()}
				continue
			}
			c.resp <- Serve(c.ctx, h.p, h.p.Curve(), c.req)
		}
	}
}

// Exchange queues req and waits for the host to answer it or for ctx to end.
// An abandoned request may still run on the host; its result is dropped.
func (h *Host) Exchange(ctx context.Context, req Request) (Response, error) {
	c := call{ctx: ctx, req: req, resp: make(chan Response, 1)}
	select {
	case h.calls <- c:
	case <-h.quit:
		return Response{}, ErrHostStopped
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	select {
	case r := <-c.resp:
		return r, nil
	case <-h.done:
		return Response{}, ErrHostStopped
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

var (
	_ lifecycle.Service = (*Host)(nil)
	_ Exchanger         = (*Host)(nil)
)
