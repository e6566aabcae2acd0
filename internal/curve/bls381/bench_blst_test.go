//go:build blst

package bls381

import (
	"context"
	"math/big"
	"testing"

	"github.com/zmlAEQ/aggverify/internal/curve"
)

func BenchmarkMillerLoop(b *testing.B) {
	p := Provider{}
	ctx := context.Background()
	m, _ := p.ScalarMul(p.Generator(curve.G1), big.NewInt(5))
	pk, _ := p.ScalarMul(p.Generator(curve.G2), big.NewInt(18))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.MultiMillerLoop(ctx, []curve.Point{m}, []curve.Point{pk})
	}
}

func BenchmarkFinalExp(b *testing.B) {
	p := Provider{}
	ctx := context.Background()
	f, _ := p.MultiMillerLoop(ctx, []curve.Point{p.Generator(curve.G1)}, []curve.Point{p.Generator(curve.G2)})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.FinalExponentiation(ctx, f)
	}
}
