package p2p

import (
	"context"
	"errors"
)

// ProtocolID is the libp2p stream protocol for delegated pairing calls. Each
// stream carries one JSON hostcall.Request followed by one hostcall.Response.
const ProtocolID = "/aggverify/pairing/1.0.0"

// maxMessage bounds a single request or response on the wire.
const maxMessage = 1 << 20

var (
	ErrNotStarted = errors.New("p2p: transport not started")
	ErrNoPeer     = errors.New("p2p: no accelerator peer configured")
)

// Transport is a libp2p endpoint of the accelerator boundary: either a Server
// exposing a local accelerator or a Dialer reaching a remote one.
type Transport interface {
	// Start brings up the network stack.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the network stack.
	Stop(ctx context.Context) error
	// Addrs lists dialable multiaddrs including the /p2p/ peer id.
	Addrs() []string
}

// NoopTransport is used when P2P is disabled.
type NoopTransport struct{}

func (NoopTransport) Start(_ context.Context) error { return nil }
func (NoopTransport) Stop(_ context.Context) error  { return nil }
func (NoopTransport) Addrs() []string               { return nil }
