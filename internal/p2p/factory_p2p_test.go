//go:build p2p

package p2p

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zmlAEQ/aggverify/internal/curve"
	"github.com/zmlAEQ/aggverify/internal/curve/curvetest"
	"github.com/zmlAEQ/aggverify/internal/curve/gnark"
	"github.com/zmlAEQ/aggverify/internal/hostcall"
)

// Two loopback hosts: the dialer's provider delegates every pairing to the
// server's hostcall.Host over a libp2p stream.
func TestLoopbackAccelerator(t *testing.T) {
	ctx := context.Background()
	p := gnark.BN254{}
	h := hostcall.NewHost(p, 4)
	require.NoError(t, h.Start(ctx))
	defer func() { _ = h.Stop(ctx) }()

	srv, err := NewServer(NetConfig{Enable: true, Listen: []string{"/ip4/127.0.0.1/tcp/0"}, MaxStreams: 8}, h)
	require.NoError(t, err)
	require.NoError(t, srv.Start(ctx))
	defer func() { _ = srv.Stop(ctx) }()
	require.NotEmpty(t, srv.Addrs())

	d, err := NewDialer(NetConfig{Peer: srv.Addrs()[0]})
	require.NoError(t, err)
	require.NoError(t, d.Start(ctx))
	defer func() { _ = d.Stop(ctx) }()

	c := hostcall.NewClient(p, d)
	curvetest.Run(t, c)

	_, err = c.FinalExponentiation(ctx, curve.Partial{1})
	require.ErrorIs(t, err, curve.ErrInvalidPartial)
}

func TestDialerNotStarted(t *testing.T) {
	d, err := NewDialer(NetConfig{Peer: "/ip4/127.0.0.1/tcp/1/p2p/12D3KooWGRUVh5B5u8Wc4uRvFQ4Cq6tXDLgV8tK1k3aQ4X1yE7Ff"})
	require.NoError(t, err)
	_, err = d.Exchange(context.Background(), hostcall.Request{})
	require.ErrorIs(t, err, ErrNotStarted)
}
