package gnark

import (
	"context"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/pkg/errors"

	"github.com/zmlAEQ/aggverify/internal/curve"
)

// BLS12381 is the gnark-crypto provider for BLS12-381.
type BLS12381 struct{}

var _ curve.Provider = BLS12381{}

func (BLS12381) Curve() curve.ID { return curve.BLS12381 }

func (BLS12381) g1(b []byte) (bls12381.G1Affine, error) {
	var p bls12381.G1Affine
	if len(b) != bls12381.SizeOfG1AffineCompressed {
		return p, errors.Wrapf(curve.ErrInvalidLength, "bls12-381 G1: %d bytes", len(b))
	}
	n, err := p.SetBytes(b)
	if err != nil || n != len(b) {
		return p, errors.Wrap(curve.ErrInvalidPoint, "bls12-381 G1")
	}
	return p, nil
}

func (BLS12381) g2(b []byte) (bls12381.G2Affine, error) {
	var p bls12381.G2Affine
	if len(b) != bls12381.SizeOfG2AffineCompressed {
		return p, errors.Wrapf(curve.ErrInvalidLength, "bls12-381 G2: %d bytes", len(b))
	}
	n, err := p.SetBytes(b)
	if err != nil || n != len(b) {
		return p, errors.Wrap(curve.ErrInvalidPoint, "bls12-381 G2")
	}
	return p, nil
}

func blsG1Point(p *bls12381.G1Affine) curve.Point {
	b := p.Bytes()
	return curve.Point{Group: curve.G1, Bytes: b[:]}
}

func blsG2Point(p *bls12381.G2Affine) curve.Point {
	b := p.Bytes()
	return curve.Point{Group: curve.G2, Bytes: b[:]}
}

func (c BLS12381) Decompress(g curve.Group, b []byte) (curve.Point, error) {
	switch g {
	case curve.G1:
		p, err := c.g1(b)
		if err != nil {
			return curve.Point{}, err
		}
		return blsG1Point(&p), nil
	case curve.G2:
		p, err := c.g2(b)
		if err != nil {
			return curve.Point{}, err
		}
		return blsG2Point(&p), nil
	default:
		return curve.Point{}, curve.ErrWrongGroup
	}
}

func (BLS12381) Compress(p curve.Point) []byte { return append([]byte(nil), p.Bytes...) }

func (BLS12381) Identity(g curve.Group) curve.Point {
	if g == curve.G2 {
		var p bls12381.G2Affine
		p.SetInfinity()
		return blsG2Point(&p)
	}
	var p bls12381.G1Affine
	p.SetInfinity()
	return blsG1Point(&p)
}

func (BLS12381) Generator(g curve.Group) curve.Point {
	_, _, g1, g2 := bls12381.Generators()
	if g == curve.G2 {
		return blsG2Point(&g2)
	}
	return blsG1Point(&g1)
}

func (c BLS12381) Add(a, b curve.Point) (curve.Point, error) {
	if a.Group != b.Group {
		return curve.Point{}, curve.ErrWrongGroup
	}
	switch a.Group {
	case curve.G1:
		x, err := c.g1(a.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		y, err := c.g1(b.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		var r bls12381.G1Affine
		r.Add(&x, &y)
		return blsG1Point(&r), nil
	case curve.G2:
		x, err := c.g2(a.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		y, err := c.g2(b.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		var r bls12381.G2Affine
		r.Add(&x, &y)
		return blsG2Point(&r), nil
	default:
		return curve.Point{}, curve.ErrWrongGroup
	}
}

func (c BLS12381) Neg(a curve.Point) (curve.Point, error) {
	switch a.Group {
	case curve.G1:
		x, err := c.g1(a.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		var r bls12381.G1Affine
		r.Neg(&x)
		return blsG1Point(&r), nil
	case curve.G2:
		x, err := c.g2(a.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		var r bls12381.G2Affine
		r.Neg(&x)
		return blsG2Point(&r), nil
	default:
		return curve.Point{}, curve.ErrWrongGroup
	}
}

func (c BLS12381) ScalarMul(a curve.Point, k *big.Int) (curve.Point, error) {
	switch a.Group {
	case curve.G1:
		x, err := c.g1(a.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		var r bls12381.G1Affine
		r.ScalarMultiplication(&x, k)
		return blsG1Point(&r), nil
	case curve.G2:
		x, err := c.g2(a.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		var r bls12381.G2Affine
		r.ScalarMultiplication(&x, k)
		return blsG2Point(&r), nil
	default:
		return curve.Point{}, curve.ErrWrongGroup
	}
}

func (c BLS12381) MultiMillerLoop(ctx context.Context, ps, qs []curve.Point) (curve.Partial, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := curve.CheckPairs(ps, qs); err != nil {
		return nil, err
	}
	g1s := make([]bls12381.G1Affine, 0, len(ps))
	g2s := make([]bls12381.G2Affine, 0, len(qs))
	for i := range ps {
		p, err := c.g1(ps[i].Bytes)
		if err != nil {
			return nil, err
		}
		q, err := c.g2(qs[i].Bytes)
		if err != nil {
			return nil, err
		}
		// e(O, q) = e(p, O) = 1
		if p.IsInfinity() || q.IsInfinity() {
			continue
		}
		g1s = append(g1s, p)
		g2s = append(g2s, q)
	}
	var f bls12381.GT
	if len(g1s) == 0 {
		f.SetOne()
	} else {
		var err error
		if f, err = bls12381.MillerLoop(g1s, g2s); err != nil {
			return nil, errors.Wrap(err, "bls12-381 miller loop")
		}
	}
	b := f.Bytes()
	return curve.Partial(b[:]), nil
}

func (BLS12381) FinalExponentiation(ctx context.Context, f curve.Partial) (curve.GT, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f) != bls12381.SizeOfGT {
		return nil, errors.Wrapf(curve.ErrInvalidPartial, "bls12-381: %d bytes", len(f))
	}
	var ml bls12381.GT
	if err := ml.SetBytes(f); err != nil {
		return nil, errors.Wrap(curve.ErrInvalidPartial, err.Error())
	}
	if ml.IsZero() {
		return nil, errors.Wrap(curve.ErrInvalidPartial, "bls12381: zero partial")
	}
	gt := bls12381.FinalExponentiation(&ml)
	b := gt.Bytes()
	return curve.GT(b[:]), nil
}

func (c BLS12381) Pairing(ctx context.Context, p, q curve.Point) (curve.GT, error) {
	f, err := c.MultiMillerLoop(ctx, []curve.Point{p}, []curve.Point{q})
	if err != nil {
		return nil, err
	}
	return c.FinalExponentiation(ctx, f)
}
