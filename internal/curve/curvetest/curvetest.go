// Package curvetest is a conformance suite run against every curve.Provider.
package curvetest

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zmlAEQ/aggverify/internal/curve"
)

// Run exercises p against the properties the verifier relies on.
func Run(t *testing.T, p curve.Provider) {
	t.Helper()
	t.Run("encoding", func(t *testing.T) { testEncoding(t, p) })
	t.Run("group", func(t *testing.T) { testGroup(t, p) })
	t.Run("pairing", func(t *testing.T) { testPairing(t, p) })
	t.Run("aggregate", func(t *testing.T) { testAggregate(t, p) })
	t.Run("errors", func(t *testing.T) { testErrors(t, p) })
}

// Mul returns k*Generator(g), failing the test on error.
func Mul(t testing.TB, p curve.Arithmetic, g curve.Group, k int64) curve.Point {
	t.Helper()
	pt, err := p.ScalarMul(p.Generator(g), big.NewInt(k))
	require.NoError(t, err)
	return pt
}

func testEncoding(t *testing.T, p curve.Provider) {
	for _, g := range []curve.Group{curve.G1, curve.G2} {
		gen := p.Generator(g)
		require.Equal(t, g, gen.Group)
		got, err := p.Decompress(g, p.Compress(gen))
		require.NoError(t, err)
		require.True(t, got.Equal(gen), "%s generator roundtrip", g)

		id := p.Identity(g)
		got, err = p.Decompress(g, id.Bytes)
		require.NoError(t, err)
		require.True(t, curve.IsIdentity(p, got))
		require.False(t, curve.IsIdentity(p, gen))

		x := Mul(t, p, g, 12345)
		got, err = p.Decompress(g, p.Compress(x))
		require.NoError(t, err)
		require.True(t, got.Equal(x))
	}
	// encodings are group specific
	_, err := p.Decompress(curve.G2, p.Generator(curve.G1).Bytes)
	require.Error(t, err)
}

func testGroup(t *testing.T, p curve.Provider) {
	for _, g := range []curve.Group{curve.G1, curve.G2} {
		a, b := Mul(t, p, g, 3), Mul(t, p, g, 4)
		ab, err := p.Add(a, b)
		require.NoError(t, err)
		ba, err := p.Add(b, a)
		require.NoError(t, err)
		require.True(t, ab.Equal(ba))
		require.True(t, ab.Equal(Mul(t, p, g, 7)))

		na, err := p.Neg(a)
		require.NoError(t, err)
		z, err := p.Add(a, na)
		require.NoError(t, err)
		require.True(t, curve.IsIdentity(p, z))

		same, err := p.Add(a, p.Identity(g))
		require.NoError(t, err)
		require.True(t, same.Equal(a))

		zero, err := p.ScalarMul(a, big.NewInt(0))
		require.NoError(t, err)
		require.True(t, curve.IsIdentity(p, zero))

		sum, err := curve.Sum(p, g, []curve.Point{a, b, a})
		require.NoError(t, err)
		require.True(t, sum.Equal(Mul(t, p, g, 10)))
	}
	_, err := p.Add(p.Generator(curve.G1), p.Generator(curve.G2))
	require.ErrorIs(t, err, curve.ErrWrongGroup)
}

func testPairing(t *testing.T, p curve.Provider) {
	ctx := context.Background()
	g1, g2 := p.Generator(curve.G1), p.Generator(curve.G2)

	lhs, err := p.Pairing(ctx, Mul(t, p, curve.G1, 7), Mul(t, p, curve.G2, 11))
	require.NoError(t, err)
	rhs, err := p.Pairing(ctx, Mul(t, p, curve.G1, 77), g2)
	require.NoError(t, err)
	require.True(t, lhs.Equal(rhs), "bilinearity")

	other, err := p.Pairing(ctx, Mul(t, p, curve.G1, 78), g2)
	require.NoError(t, err)
	require.False(t, lhs.Equal(other))

	f, err := p.MultiMillerLoop(ctx, []curve.Point{g1}, []curve.Point{g2})
	require.NoError(t, err)
	split, err := p.FinalExponentiation(ctx, f)
	require.NoError(t, err)
	whole, err := p.Pairing(ctx, g1, g2)
	require.NoError(t, err)
	require.True(t, split.Equal(whole), "miller loop then final exponentiation")

	one, err := p.Pairing(ctx, p.Identity(curve.G1), g2)
	require.NoError(t, err)
	require.False(t, one.Equal(whole))

	ng1, err := p.Neg(g1)
	require.NoError(t, err)
	f, err = p.MultiMillerLoop(ctx, []curve.Point{g1, ng1}, []curve.Point{g2, g2})
	require.NoError(t, err)
	prod, err := p.FinalExponentiation(ctx, f)
	require.NoError(t, err)
	require.True(t, prod.Equal(one), "e(P,Q)e(-P,Q) = 1")

	// partials round trip through their byte form
	f2 := append(curve.Partial(nil), f...)
	again, err := p.FinalExponentiation(ctx, f2)
	require.NoError(t, err)
	require.True(t, again.Equal(prod))
}

func testAggregate(t *testing.T, p curve.Provider) {
	ctx := context.Background()
	g2 := p.Generator(curve.G2)
	msg := Mul(t, p, curve.G1, 5)

	var pks, sigs []curve.Point
	for _, sk := range []int64{7, 11} {
		pk, err := p.ScalarMul(g2, big.NewInt(sk))
		require.NoError(t, err)
		sig, err := p.ScalarMul(msg, big.NewInt(sk))
		require.NoError(t, err)
		pks, sigs = append(pks, pk), append(sigs, sig)
	}
	apk, err := curve.Sum(p, curve.G2, pks)
	require.NoError(t, err)
	asig, err := curve.Sum(p, curve.G1, sigs)
	require.NoError(t, err)

	l, err := p.Pairing(ctx, msg, apk)
	require.NoError(t, err)
	r, err := p.Pairing(ctx, asig, g2)
	require.NoError(t, err)
	require.True(t, l.Equal(r))

	bad, err := p.Pairing(ctx, sigs[0], g2)
	require.NoError(t, err)
	require.False(t, l.Equal(bad))
}

func testErrors(t *testing.T, p curve.Provider) {
	ctx := context.Background()
	g1, g2 := p.Generator(curve.G1), p.Generator(curve.G2)

	_, err := p.Decompress(curve.G1, g1.Bytes[:len(g1.Bytes)-1])
	require.ErrorIs(t, err, curve.ErrInvalidLength)
	_, err = p.Decompress(curve.G1, nil)
	require.ErrorIs(t, err, curve.ErrInvalidLength)
	_, err = p.Decompress(curve.G1, make([]byte, len(g1.Bytes)))
	require.Error(t, err)
	_, err = p.Decompress(curve.G2, make([]byte, len(g2.Bytes)))
	require.Error(t, err)

	_, err = p.MultiMillerLoop(ctx, []curve.Point{g2}, []curve.Point{g1})
	require.ErrorIs(t, err, curve.ErrWrongGroup)
	_, err = p.MultiMillerLoop(ctx, []curve.Point{g1, g1}, []curve.Point{g2})
	require.ErrorIs(t, err, curve.ErrLengthMismatch)

	_, err = p.FinalExponentiation(ctx, curve.Partial{1, 2, 3})
	require.ErrorIs(t, err, curve.ErrInvalidPartial)
	f, err := p.MultiMillerLoop(ctx, []curve.Point{g1}, []curve.Point{g2})
	require.NoError(t, err)
	_, err = p.FinalExponentiation(ctx, make(curve.Partial, len(f)))
	require.ErrorIs(t, err, curve.ErrInvalidPartial, "zero partial")

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = p.Pairing(cctx, g1, g2)
	require.ErrorIs(t, err, context.Canceled)
}
