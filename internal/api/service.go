// Package api exposes the verifier as a CloudEvents-over-HTTP endpoint.
package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/zmlAEQ/aggverify/pkg/lifecycle"
	"github.com/zmlAEQ/aggverify/pkg/logger"
	"github.com/zmlAEQ/aggverify/pkg/metrics"
)

type Service struct {
	addr string
	sub  Submitter

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

func New(addr string, sub Submitter) *Service { return &Service{addr: addr, sub: sub} }

func (s *Service) Name() string { return "api" }

// Handler returns the HTTP routes: POST /events and GET /health.
func (s *Service) Handler(ctx context.Context) (http.Handler, error) {
	p, err := cloudevents.NewHTTP()
	if err != nil {
		return nil, err
	}
	recv, err := cloudevents.NewHTTPReceiveHandler(ctx, p, s.Handle)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); _, _ = w.Write([]byte("ok")) })
	mux.Handle("/events", wrapMetrics(recv))
	return mux, nil
}

func (s *Service) Start(ctx context.Context) error {
	begin := time.Now()
	h, err := s.Handler(context.Background())
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		logger.ErrorJ("service_op", map[string]any{"service": s.Name(), "op": "start", "result": "error", "err": err.Error()})
		return err
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
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
	if srv == nil {
		return nil
	}
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
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

func wrapMetrics(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rr := &respRec{ResponseWriter: w, code: 200}
		h.ServeHTTP(rr, r)
		metrics.ObserveSummary("api_latency_ms", map[string]string{"code": strconv.Itoa(rr.code)}, float64(time.Since(start).Milliseconds()))
		logger.InfoJ("api_http", map[string]any{"code": rr.code, "latency_ms": time.Since(start).Milliseconds(), "ce_id": r.Header.Get("Ce-Id")})
	})
}

type respRec struct {
	http.ResponseWriter
	code int
}

func (r *respRec) WriteHeader(c int) { r.code = c; r.ResponseWriter.WriteHeader(c) }

var _ lifecycle.Service = (*Service)(nil)
