//go:build blst

package bls381

import (
	"context"
	"math/big"
	"unsafe"

	"github.com/pkg/errors"
	blst "github.com/supranational/blst/bindings/go"

	"github.com/zmlAEQ/aggverify/internal/curve"
)

// Available reports whether the blst backend is compiled in.
const Available = true

// order is the prime order r of G1, G2 and GT.
var order, _ = new(big.Int).SetString("73eda753299d7d483339d80809a1d80553bda402fffe5bfeffffffff00000001", 16)

// Miller loop outputs travel as the raw in-memory Fp12 (Montgomery limbs).
// blst exposes no Fp12 decoder, so partials are only valid within a process
// (or between hosts of identical architecture) using this provider.
const partialSize = int(unsafe.Sizeof(blst.Fp12{}))

// Provider is the blst-backed BLS12-381 provider.
type Provider struct{}

var _ curve.Provider = Provider{}

// New returns the blst provider.
func New() (curve.Provider, error) { return Provider{}, nil }

func (Provider) Curve() curve.ID { return curve.BLS12381 }

// infinity flag of the compressed encoding
func isInf(b []byte) bool { return len(b) > 0 && b[0]&0x40 != 0 }

func g1(b []byte) (*blst.P1Affine, error) {
	if len(b) != G1Size {
		return nil, errors.Wrapf(curve.ErrInvalidLength, "blst G1: %d bytes", len(b))
	}
	p := new(blst.P1Affine).Uncompress(b)
	if p == nil {
		return nil, errors.Wrap(curve.ErrInvalidPoint, "blst G1: bad encoding")
	}
	if !isInf(b) && !p.InG1() {
		return nil, errors.Wrap(curve.ErrInvalidPoint, "blst G1: not in subgroup")
	}
	return p, nil
}

func g2(b []byte) (*blst.P2Affine, error) {
	if len(b) != G2Size {
		return nil, errors.Wrapf(curve.ErrInvalidLength, "blst G2: %d bytes", len(b))
	}
	p := new(blst.P2Affine).Uncompress(b)
	if p == nil {
		return nil, errors.Wrap(curve.ErrInvalidPoint, "blst G2: bad encoding")
	}
	if !isInf(b) && !p.InG2() {
		return nil, errors.Wrap(curve.ErrInvalidPoint, "blst G2: not in subgroup")
	}
	return p, nil
}

func fromP1(p *blst.P1) curve.Point {
	return curve.Point{Group: curve.G1, Bytes: p.ToAffine().Compress()}
}

func fromP2(p *blst.P2) curve.Point {
	return curve.Point{Group: curve.G2, Bytes: p.ToAffine().Compress()}
}

func (Provider) Decompress(g curve.Group, b []byte) (curve.Point, error) {
	switch g {
	case curve.G1:
		p, err := g1(b)
		if err != nil {
			return curve.Point{}, err
		}
		return curve.Point{Group: g, Bytes: p.Compress()}, nil
	case curve.G2:
		p, err := g2(b)
		if err != nil {
			return curve.Point{}, err
		}
		return curve.Point{Group: g, Bytes: p.Compress()}, nil
	default:
		return curve.Point{}, curve.ErrWrongGroup
	}
}

func (Provider) Compress(p curve.Point) []byte { return append([]byte(nil), p.Bytes...) }

func (Provider) Identity(g curve.Group) curve.Point {
	if g == curve.G2 {
		b := make([]byte, G2Size)
		b[0] = 0xc0
		return curve.Point{Group: g, Bytes: b}
	}
	b := make([]byte, G1Size)
	b[0] = 0xc0
	return curve.Point{Group: curve.G1, Bytes: b}
}

func (Provider) Generator(g curve.Group) curve.Point {
	if g == curve.G2 {
		return fromP2(blst.P2Generator())
	}
	return fromP1(blst.P1Generator())
}

func (Provider) Add(a, b curve.Point) (curve.Point, error) {
	if a.Group != b.Group {
		return curve.Point{}, curve.ErrWrongGroup
	}
	switch a.Group {
	case curve.G1:
		x, err := g1(a.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		y, err := g1(b.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		var r blst.P1
		r.FromAffine(x)
		r.AddAssign(y)
		return fromP1(&r), nil
	case curve.G2:
		x, err := g2(a.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		y, err := g2(b.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		var r blst.P2
		r.FromAffine(x)
		r.AddAssign(y)
		return fromP2(&r), nil
	default:
		return curve.Point{}, curve.ErrWrongGroup
	}
}

// Neg subtracts from the zero point.
func (Provider) Neg(a curve.Point) (curve.Point, error) {
	switch a.Group {
	case curve.G1:
		x, err := g1(a.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		var r blst.P1
		r.SubAssign(x)
		return fromP1(&r), nil
	case curve.G2:
		x, err := g2(a.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		var r blst.P2
		r.SubAssign(x)
		return fromP2(&r), nil
	default:
		return curve.Point{}, curve.ErrWrongGroup
	}
}

// scalarLE reduces k mod r into little-endian bytes; nil means zero.
func scalarLE(k *big.Int) []byte {
	be := new(big.Int).Mod(k, order).Bytes()
	if len(be) == 0 {
		return nil
	}
	le := make([]byte, len(be))
	for i := range be {
		le[i] = be[len(be)-1-i]
	}
	return le
}

func (p Provider) ScalarMul(a curve.Point, k *big.Int) (curve.Point, error) {
	s := scalarLE(k)
	switch a.Group {
	case curve.G1:
		x, err := g1(a.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		if s == nil {
			return p.Identity(curve.G1), nil
		}
		var r blst.P1
		r.FromAffine(x)
		r.MultAssign(s)
		return fromP1(&r), nil
	case curve.G2:
		x, err := g2(a.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		if s == nil {
			return p.Identity(curve.G2), nil
		}
		var r blst.P2
		r.FromAffine(x)
		r.MultAssign(s)
		return fromP2(&r), nil
	default:
		return curve.Point{}, curve.ErrWrongGroup
	}
}

func encodePartial(f *blst.Fp12) curve.Partial {
	out := make([]byte, partialSize)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(f)), partialSize))
	return out
}

func decodePartial(b curve.Partial) (*blst.Fp12, error) {
	if len(b) != partialSize {
		return nil, errors.Wrapf(curve.ErrInvalidPartial, "blst: %d bytes", len(b))
	}
	f := new(blst.Fp12)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(f)), partialSize), b)
	var zero blst.Fp12
	if f.Equals(&zero) {
		return nil, errors.Wrap(curve.ErrInvalidPartial, "blst: zero")
	}
	return f, nil
}

func (Provider) MultiMillerLoop(ctx context.Context, ps, qs []curve.Point) (curve.Partial, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := curve.CheckPairs(ps, qs); err != nil {
		return nil, err
	}
	g1s := make([]blst.P1Affine, 0, len(ps))
	g2s := make([]blst.P2Affine, 0, len(qs))
	for i := range ps {
		p, err := g1(ps[i].Bytes)
		if err != nil {
			return nil, err
		}
		q, err := g2(qs[i].Bytes)
		if err != nil {
			return nil, err
		}
		if isInf(ps[i].Bytes) || isInf(qs[i].Bytes) {
			continue
		}
		g1s = append(g1s, *p)
		g2s = append(g2s, *q)
	}
	if len(g1s) == 0 {
		one := blst.Fp12One()
		return encodePartial(&one), nil
	}
	return encodePartial(blst.Fp12MillerLoopN(g2s, g1s)), nil
}

func (Provider) FinalExponentiation(ctx context.Context, f curve.Partial) (curve.GT, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ml, err := decodePartial(f)
	if err != nil {
		return nil, err
	}
	ml.FinalExp()
	return curve.GT(ml.ToBendian()), nil
}

func (p Provider) Pairing(ctx context.Context, a, b curve.Point) (curve.GT, error) {
	f, err := p.MultiMillerLoop(ctx, []curve.Point{a}, []curve.Point{b})
	if err != nil {
		return nil, err
	}
	return p.FinalExponentiation(ctx, f)
}
