//go:build !p2p

package p2p

import (
	"context"
	"errors"

	"github.com/zmlAEQ/aggverify/internal/hostcall"
	"github.com/zmlAEQ/aggverify/pkg/logger"
)

// Available reports whether the libp2p transport is compiled in.
const Available = false

// ErrNotBuilt is returned by constructors in builds without the 'p2p' tag.
var ErrNotBuilt = errors.New("p2p: transport requires the 'p2p' build tag")

// Server is unavailable without the 'p2p' tag.
type Server struct{ NoopTransport }

// NewServer returns ErrNotBuilt when cfg.Enable is set.
func NewServer(cfg NetConfig, _ hostcall.Exchanger) (*Server, error) {
	if cfg.Enable {
		logger.Warn("p2p accelerator requested but 'p2p' build tag not enabled")
		return nil, ErrNotBuilt
	}
	return &Server{}, nil
}

// Dialer is unavailable without the 'p2p' tag.
type Dialer struct{ NoopTransport }

// NewDialer always fails in builds without the 'p2p' tag.
func NewDialer(cfg NetConfig) (*Dialer, error) {
	if cfg.Peer == "" {
		return nil, ErrNoPeer
	}
	logger.Warn("p2p accelerator requested but 'p2p' build tag not enabled")
	return nil, ErrNotBuilt
}

func (*Dialer) Exchange(context.Context, hostcall.Request) (hostcall.Response, error) {
	return hostcall.Response{}, ErrNotBuilt
}
