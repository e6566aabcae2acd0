// Package monitoring serves the process metrics registry on /metrics.
package monitoring

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/zmlAEQ/aggverify/pkg/logger"
	"github.com/zmlAEQ/aggverify/pkg/metrics"
)

type Service struct {
	addr string

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

func New(addr string) *Service { return &Service{addr: addr} }

func (s *Service) Name() string { return "monitoring" }

func (s *Service) Start(ctx context.Context) error {
	begin := time.Now()
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		logger.ErrorJ("service_op", map[string]any{"service": s.Name(), "op": "start", "result": "error", "err": err.Error()})
		return err
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.mu.Lock()
	s.srv, s.ln = srv, ln
	s.mu.Unlock()
	go func() { _ = srv.Serve(ln) }()
	dur := time.Since(begin).Milliseconds()
	logger.InfoJ("service_op", map[string]any{"service": s.Name(), "op": "start", "result": "ok", "addr": ln.Addr().String(), "latency_ms": dur})
	metrics.ObserveSummary("service_op_ms", map[string]string{"service": s.Name(), "op": "start"}, float64(dur))
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil { return nil }
	begin := time.Now()
	err := srv.Shutdown(ctx)
	dur := time.Since(begin).Milliseconds()
	logger.InfoJ("service_op", map[string]any{"service": s.Name(), "op": "stop", "result": "ok", "latency_ms": dur})
	metrics.ObserveSummary("service_op_ms", map[string]string{"service": s.Name(), "op": "stop"}, float64(dur))
	return err
}

// Addr is the bound listen address once started.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil { return s.addr }
	return s.ln.Addr().String()
}
