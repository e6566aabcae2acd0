package p2p

import (
	"context"
	"time"

	"github.com/zmlAEQ/aggverify/pkg/lifecycle"
	"github.com/zmlAEQ/aggverify/pkg/logger"
	"github.com/zmlAEQ/aggverify/pkg/metrics"
)

// NetService is a thin lifecycle wrapper for a Transport.
type NetService struct {
	name string
	t    Transport
}

func NewNetService(name string, t Transport) *NetService { return &NetService{name: name, t: t} }

func (s *NetService) Name() string { return s.name }

func (s *NetService) Start(ctx context.Context) error {
	begin := time.Now()
	err := s.t.Start(ctx)
	s.observe("start", begin, err)
	if err != nil {
		return err
	}
	for _, a := range s.t.Addrs() {
		logger.InfoJ("p2p_addr", map[string]any{"service": s.name, "addr": a})
	}
	return nil
}

func (s *NetService) Stop(ctx context.Context) error {
	begin := time.Now()
	err := s.t.Stop(ctx)
	s.observe("stop", begin, err)
	return err
}

func (s *NetService) observe(op string, begin time.Time, err error) {
	dur := time.Since(begin).Milliseconds()
	fields := map[string]any{"service": s.name, "op": op, "result": "ok", "latency_ms": dur}
	if err != nil {
		fields["result"], fields["err"] = "error", err.Error()
	}
	logger.InfoJ("service_op", fields)
	metrics.ObserveSummary("service_op_ms", map[string]string{"service": s.name, "op": op}, float64(dur))
}

var _ lifecycle.Service = (*NetService)(nil)
