package hostcall

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/zmlAEQ/aggverify/internal/curve"
	"github.com/zmlAEQ/aggverify/pkg/metrics"
)

// Client is a curve.Provider whose pairing operations are delegated through an
// Exchanger. Encoding and group arithmetic stay local.
type Client struct {
	curve.Arithmetic
	x   Exchanger
	seq atomic.Uint64
}

// NewClient delegates pairings of local's curve to x.
func NewClient(local curve.Arithmetic, x Exchanger) *Client {
	return &Client{Arithmetic: local, x: x}
}

var _ curve.Provider = (*Client)(nil)

func encode(pts []curve.Point) [][]byte {
	out := make([][]byte, len(pts))
	for i, p := range pts {
		out[i] = p.Bytes
	}
	return out
}

func (c *Client) MultiMillerLoop(ctx context.Context, ps, qs []curve.Point) (curve.Partial, error) {
	if err := curve.CheckPairs(ps, qs); err != nil {
		return nil, err
	}
	r, err := c.call(ctx, Request{Op: OpMillerLoop, G1: encode(ps), G2: encode(qs)})
	if err != nil {
		return nil, err
	}
	return curve.Partial(r), nil
}

func (c *Client) FinalExponentiation(ctx context.Context, f curve.Partial) (curve.GT, error) {
	r, err := c.call(ctx, Request{Op: OpFinalExp, F: f})
	if err != nil {
		return nil, err
	}
	return curve.GT(r), nil
}

func (c *Client) Pairing(ctx context.Context, p, q curve.Point) (curve.GT, error) {
	if err := curve.CheckPairs([]curve.Point{p}, []curve.Point{q}); err != nil {
		return nil, err
	}
	r, err := c.call(ctx, Request{Op: OpPairing, G1: [][]byte{p.Bytes}, G2: [][]byte{q.Bytes}})
	if err != nil {
		return nil, err
	}
	return curve.GT(r), nil
}

func (c *Client) call(ctx context.Context, req Request) ([]byte, error) {
	req.ID = c.seq.Add(1)
	req.Curve = c.Curve()
	begin := time.Now()
	resp, err := c.x.Exchange(ctx, req)
	metrics.ObserveSummary("hostcall_call_ms", map[string]string{"op": string(req.Op)}, float64(time.Since(begin).Milliseconds()))
	if err == nil && resp.ID != req.ID {
		err = errors.Wrapf(ErrBadResponse, "id %d, want %d", resp.ID, req.ID)
	}
	if err == nil {
		err = responseError(resp)
	}
	if err != nil {
		metrics.Inc("hostcall_calls_total", map[string]string{"op": string(req.Op), "result": "error"})
		return nil, errors.Wrapf(err, "hostcall %s", req.Op)
	}
	metrics.Inc("hostcall_calls_total", map[string]string{"op": string(req.Op), "result": "ok"})
	return resp.Result, nil
}
