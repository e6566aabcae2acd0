package verifier

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zmlAEQ/aggverify/internal/curve"
	"github.com/zmlAEQ/aggverify/internal/curve/curvetest"
	"github.com/zmlAEQ/aggverify/internal/curve/gnark"
	"github.com/zmlAEQ/aggverify/internal/state"
)

var providers = []curve.Provider{gnark.BN254{}, gnark.BLS12381{}}

// fixture is a signer set over a toy generator G = 3*g2 and message M = 5*g1.
type fixture struct {
	p    curve.Provider
	gen  curve.Point
	msg  curve.Point
	sks  []int64
	pks  [][]byte
	sigs [][]byte
}

func newFixture(t *testing.T, p curve.Provider, sks ...int64) fixture {
	t.Helper()
	f := fixture{p: p, gen: curvetest.Mul(t, p, curve.G2, 3), msg: curvetest.Mul(t, p, curve.G1, 5), sks: sks}
	for _, sk := range sks {
		pk, err := p.ScalarMul(f.gen, big.NewInt(sk))
		require.NoError(t, err)
		sig, err := p.ScalarMul(f.msg, big.NewInt(sk))
		require.NoError(t, err)
		f.pks = append(f.pks, p.Compress(pk))
		f.sigs = append(f.sigs, p.Compress(sig))
	}
	return f
}

func (f fixture) init() Init { return Init{Generator: f.p.Compress(f.gen), PublicKeys: f.pks} }

func (f fixture) verifier(t *testing.T, store state.Store, opts ...Option) *Verifier {
	t.Helper()
	v, err := New(context.Background(), f.p, store, f.init(), opts...)
	require.NoError(t, err)
	return v
}

// point returns k*g in group g, compressed.
func point(t *testing.T, p curve.Provider, g curve.Group, k int64) []byte {
	return p.Compress(curvetest.Mul(t, p, g, k))
}

// faulty fails selected pairing operations.
type faulty struct {
	curve.Provider
	failMiller   bool
	failFinalExp bool
	millerCalls  int
}

var errBoom = errors.New("accelerator unavailable")

func (f *faulty) MultiMillerLoop(ctx context.Context, ps, qs []curve.Point) (curve.Partial, error) {
	f.millerCalls++
	if f.failMiller {
		return nil, errBoom
	}
	return f.Provider.MultiMillerLoop(ctx, ps, qs)
}

func (f *faulty) FinalExponentiation(ctx context.Context, x curve.Partial) (curve.GT, error) {
	if f.failFinalExp {
		return nil, errBoom
	}
	return f.Provider.FinalExponentiation(ctx, x)
}

func bigInt(k int64) *big.Int { return big.NewInt(k) }

func (f *faulty) Pairing(ctx context.Context, a, b curve.Point) (curve.GT, error) {
	if f.failMiller || f.failFinalExp {
		return nil, errBoom
	}
	return f.Provider.Pairing(ctx, a, b)
}
