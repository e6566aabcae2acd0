//go:build blst

package bls381

import (
	"context"
	"math/big"
	"testing"

	"github.com/zmlAEQ/aggverify/internal/curve"
	"github.com/zmlAEQ/aggverify/internal/curve/curvetest"
	"github.com/zmlAEQ/aggverify/internal/curve/gnark"
)

// Note: These tests compile/run only with -tags blst; default CI doesn't trigger them.
func TestConformance(t *testing.T) { curvetest.Run(t, Provider{}) }

// blst and gnark-crypto agree on compressed encodings.
func TestEncodingMatchesGnark(t *testing.T) {
	b, g := Provider{}, gnark.BLS12381{}
	for _, grp := range []curve.Group{curve.G1, curve.G2} {
		if !b.Generator(grp).Equal(g.Generator(grp)) {
			t.Fatalf("%s generator differs", grp)
		}
		if !b.Identity(grp).Equal(g.Identity(grp)) {
			t.Fatalf("%s identity differs", grp)
		}
		x, err := g.ScalarMul(g.Generator(grp), big.NewInt(1234567))
		if err != nil { t.Fatalf("gnark mul: %v", err) }
		y, err := b.ScalarMul(b.Generator(grp), big.NewInt(1234567))
		if err != nil { t.Fatalf("blst mul: %v", err) }
		if !x.Equal(y) { t.Fatalf("%s scalar mul differs", grp) }
	}
}

func TestNegativeScalarReduces(t *testing.T) {
	p := Provider{}
	a, err := p.ScalarMul(p.Generator(curve.G1), big.NewInt(-1))
	if err != nil { t.Fatalf("mul: %v", err) }
	n, err := p.Neg(p.Generator(curve.G1))
	if err != nil { t.Fatalf("neg: %v", err) }
	if !a.Equal(n) { t.Fatalf("-1*G != -G") }
}

func TestZeroPartialRejected(t *testing.T) {
	if _, err := (Provider{}).FinalExponentiation(context.Background(), make(curve.Partial, partialSize)); err == nil {
		t.Fatalf("want error on zero partial")
	}
}
