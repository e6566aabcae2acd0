//go:build p2p

package p2p

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	libp2p "github.com/libp2p/go-libp2p"
	p2phost "github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	peer "github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/zmlAEQ/aggverify/internal/hostcall"
	"github.com/zmlAEQ/aggverify/pkg/logger"
	"github.com/zmlAEQ/aggverify/pkg/metrics"
)

// Available reports whether the libp2p transport is compiled in.
const Available = true

func hostOptions(cfg NetConfig) ([]libp2p.Option, error) {
	opts := []libp2p.Option{}
	var addrs []ma.Multiaddr
	for _, s := range cfg.Listen {
		if strings.TrimSpace(s) == "" {
			continue
		}
		a, err := ma.NewMultiaddr(s)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, a)
	}
	if len(addrs) > 0 {
		opts = append(opts, libp2p.ListenAddrs(addrs...))
	}
	if cfg.NAT {
		opts = append(opts, libp2p.NATPortMap())
	}
	return opts, nil
}

func fullAddrs(h p2phost.Host) []string {
	if h == nil {
		return nil
	}
	out := make([]string, 0, len(h.Addrs()))
	for _, a := range h.Addrs() {
		out = append(out, fmt.Sprintf("%s/p2p/%s", a, h.ID()))
	}
	return out
}

func count(direction, result string, n int) {
	metrics.Inc(MetricP2PMessagesTotal, map[string]string{"protocol": ProtocolID, "direction": direction, "result": result})
	if n > 0 {
		metrics.Add(MetricP2PBytesTotal, map[string]string{"protocol": ProtocolID, "direction": direction}, float64(n))
	}
}

// Server exposes a local accelerator (normally a hostcall.Host) to remote
// Dialers over ProtocolID.
type Server struct {
	cfg    NetConfig
	x      hostcall.Exchanger
	lim    *StreamLimiter
	mu     sync.Mutex
	host   p2phost.Host
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer serves requests by forwarding them to x.
func NewServer(cfg NetConfig, x hostcall.Exchanger) (*Server, error) {
	return &Server{cfg: cfg, x: x, lim: NewStreamLimiter(cfg.MaxStreams)}, nil
}

func (s *Server) Start(ctx context.Context) error {
	if !s.cfg.Enable {
		return nil
	}
	opts, err := hostOptions(s.cfg)
	if err != nil {
		return err
	}
	h, err := libp2p.New(opts...)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.host = h
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()
	h.SetStreamHandler(protocol.ID(ProtocolID), s.handle)
	logger.InfoJ("p2p_start", map[string]any{"role": "server", "self_id": h.ID().String(), "result": "ok"})
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.host != nil {
		s.host.RemoveStreamHandler(protocol.ID(ProtocolID))
		err := s.host.Close()
		s.host = nil
		return err
	}
	return nil
}

func (s *Server) Addrs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fullAddrs(s.host)
}

func (s *Server) handle(st network.Stream) {
	if !s.lim.TryOpen() {
		_ = st.Reset()
		return
	}
	defer s.lim.Close()
	_ = st.SetDeadline(time.Now().Add(30 * time.Second))

	var req hostcall.Request
	if err := json.NewDecoder(io.LimitReader(st, maxMessage)).Decode(&req); err != nil {
		count("rx", "decode_error", 0)
		_ = st.Reset()
		return
	}
	count("rx", "ok", 0)

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	resp, err := s.x.Exchange(ctx, req)
	if err != nil {
		resp = hostcall.Response{ID: req.ID, Code: "internal", Err: err.Error()}
	}
	b, err := json.Marshal(resp)
	if err != nil {
		_ = st.Reset()
		return
	}
	if _, err := st.Write(b); err != nil {
		count("tx", "error", 0)
		_ = st.Reset()
		return
	}
	count("tx", "ok", len(b))
	_ = st.Close()
}

// Dialer is a hostcall.Exchanger reaching a remote Server.
type Dialer struct {
	cfg  NetConfig
	mu   sync.Mutex
	host p2phost.Host
	peer peer.ID
}

// NewDialer returns a Dialer for cfg.Peer.
func NewDialer(cfg NetConfig) (*Dialer, error) {
	if strings.TrimSpace(cfg.Peer) == "" {
		return nil, ErrNoPeer
	}
	return &Dialer{cfg: cfg}, nil
}

func (d *Dialer) Start(ctx context.Context) error {
	addr, err := ma.NewMultiaddr(d.cfg.Peer)
	if err != nil {
		return err
	}
	info, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		return err
	}
	h, err := libp2p.New(libp2p.NoListenAddrs)
	if err != nil {
		return err
	}
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.Connect(ctx2, *info); err != nil {
		_ = h.Close()
		return err
	}
	d.mu.Lock()
	d.host, d.peer = h, info.ID
	d.mu.Unlock()
	logger.InfoJ("p2p_start", map[string]any{"role": "dialer", "peer": info.ID.String(), "result": "ok"})
	return nil
}

func (d *Dialer) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.host == nil {
		return nil
	}
	err := d.host.Close()
	d.host = nil
	return err
}

func (d *Dialer) Addrs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fullAddrs(d.host)
}

// Exchange opens one stream per request. Cancelling ctx resets the stream.
func (d *Dialer) Exchange(ctx context.Context, req hostcall.Request) (hostcall.Response, error) {
	d.mu.Lock()
	h, pid := d.host, d.peer
	d.mu.Unlock()
	if h == nil {
		return hostcall.Response{}, ErrNotStarted
	}
	if err := ctx.Err(); err != nil {
		return hostcall.Response{}, err
	}
	st, err := h.NewStream(ctx, pid, protocol.ID(ProtocolID))
	if err != nil {
		return hostcall.Response{}, firstErr(ctx, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = st.Reset() })
	defer stop()

	b, err := json.Marshal(req)
	if err != nil {
		_ = st.Reset()
		return hostcall.Response{}, err
	}
	if _, err := st.Write(b); err != nil {
		count("tx", "error", 0)
		return hostcall.Response{}, firstErr(ctx, err)
	}
	count("tx", "ok", len(b))
	_ = st.CloseWrite()

	var resp hostcall.Response
	if err := json.NewDecoder(io.LimitReader(st, maxMessage)).Decode(&resp); err != nil {
		count("rx", "decode_error", 0)
		_ = st.Reset()
		return hostcall.Response{}, firstErr(ctx, err)
	}
	count("rx", "ok", 0)
	_ = st.Close()
	return resp, nil
}

// firstErr prefers the context error when a reset was caused by cancellation.
func firstErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

var (
	_ Transport          = (*Server)(nil)
	_ Transport          = (*Dialer)(nil)
	_ hostcall.Exchanger = (*Dialer)(nil)
)
