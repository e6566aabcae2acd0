// Package hostcall runs pairing operations behind an asynchronous
// request/response boundary. A Host owns a provider in its own goroutine;
// a Client presents the remote pairing operations as a curve.Provider.
package hostcall

import (
	"context"
	"errors"

	"github.com/zmlAEQ/aggverify/internal/curve"
)

// Op names a delegated pairing operation.
type Op string

const (
	OpMillerLoop Op = "multi_miller_loop"
	OpFinalExp   Op = "final_exponentiation"
	OpPairing    Op = "pairing"
)

// Request is one delegated call. G1 and G2 hold compressed points, F a
// Miller loop output. JSON encodes []byte fields as base64.
type Request struct {
	ID    uint64   `json:"id"`
	Op    Op       `json:"op"`
	Curve curve.ID `json:"curve"`
	G1    [][]byte `json:"g1,omitempty"`
	G2    [][]byte `json:"g2,omitempty"`
	F     []byte   `json:"f,omitempty"`
}

// Response answers the Request with the same ID. Code is empty on success.
type Response struct {
	ID     uint64 `json:"id"`
	Result []byte `json:"result,omitempty"`
	Code   string `json:"code,omitempty"`
	Err    string `json:"err,omitempty"`
}

// Exchanger delivers a request and waits for its response.
type Exchanger interface {
	Exchange(ctx context.Context, req Request) (Response, error)
}

var (
	ErrHostStopped = errors.New("hostcall: host stopped")
	ErrBadResponse = errors.New("hostcall: response does not match request")
	ErrRemote      = errors.New("hostcall: remote failure")
)

// error codes carried in Response.Code
var codes = []struct {
	code string
	err  error
}{
	{"invalid_point", curve.ErrInvalidPoint},
	{"invalid_length", curve.ErrInvalidLength},
	{"wrong_group", curve.ErrWrongGroup},
	{"invalid_partial", curve.ErrInvalidPartial},
	{"curve_mismatch", curve.ErrCurveMismatch},
	{"length_mismatch", curve.ErrLengthMismatch},
	{"unsupported", curve.ErrUnsupported},
	{"canceled", context.Canceled},
	{"deadline", context.DeadlineExceeded},
}

func errorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

// responseError rebuilds the error a remote provider returned so callers can
// match it with errors.Is.
func responseError(r Response) error {
	if r.Code == "" {
		return nil
	}
	for _, c := range codes {
		if c.code == r.Code {
			return &remoteError{msg: r.Err, err: c.err}
		}
	}
	return &remoteError{msg: r.Err, err: ErrRemote}
}

type remoteError struct {
	msg string
	err error
}

func (e *remoteError) Error() string {
	if e.msg == "" {
		return e.err.Error()
	}
	return "remote: " + e.msg
}

func (e *remoteError) Unwrap() error { return e.err }

func points(g curve.Group, bs [][]byte) []curve.Point {
	out := make([]curve.Point, len(bs))
	for i, b := range bs {
		out[i] = curve.Point{Group: g, Bytes: b}
	}
	return out
}

// Serve executes req against p. Points are validated by the provider.
func Serve(ctx context.Context, p curve.Pairer, id curve.ID, req Request) Response {
	resp := Response{ID: req.ID}
	fail := func(err error) Response {
		resp.Code, resp.Err = errorCode(err), err.Error()
		return resp
	}
	if req.Curve != id {
		return fail(curve.ErrCurveMismatch)
	}
	switch req.Op {
	case OpMillerLoop:
		f, err := p.MultiMillerLoop(ctx, points(curve.G1, req.G1), points(curve.G2, req.G2))
		if err != nil {
			return fail(err)
		}
		resp.Result = f
	case OpFinalExp:
		gt, err := p.FinalExponentiation(ctx, req.F)
		if err != nil {
			return fail(err)
		}
		resp.Result = gt
	case OpPairing:
		if len(req.G1) != 1 || len(req.G2) != 1 {
			return fail(curve.ErrLengthMismatch)
		}
		gt, err := p.Pairing(ctx, curve.Point{Group: curve.G1, Bytes: req.G1[0]}, curve.Point{Group: curve.G2, Bytes: req.G2[0]})
		if err != nil {
			return fail(err)
		}
		resp.Result = gt
	default:
		return fail(curve.ErrUnsupported)
	}
	return resp
}
