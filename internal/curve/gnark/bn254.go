package gnark

import (
	"context"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/pkg/errors"

	"github.com/zmlAEQ/aggverify/internal/curve"
)

// BN254 is the gnark-crypto provider for the BN254 (alt_bn128) curve.
type BN254 struct{}

var _ curve.Provider = BN254{}

func (BN254) Curve() curve.ID { return curve.BN254 }

func (BN254) g1(b []byte) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	if len(b) != bn254.SizeOfG1AffineCompressed {
		return p, errors.Wrapf(curve.ErrInvalidLength, "bn254 G1: %d bytes", len(b))
	}
	n, err := p.SetBytes(b)
	if err != nil || n != len(b) {
		return p, errors.Wrap(curve.ErrInvalidPoint, "bn254 G1")
	}
	return p, nil
}

func (BN254) g2(b []byte) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	if len(b) != bn254.SizeOfG2AffineCompressed {
		return p, errors.Wrapf(curve.ErrInvalidLength, "bn254 G2: %d bytes", len(b))
	}
	n, err := p.SetBytes(b)
	if err != nil || n != len(b) {
		return p, errors.Wrap(curve.ErrInvalidPoint, "bn254 G2")
	}
	return p, nil
}

func bn254G1Point(p *bn254.G1Affine) curve.Point {
	b := p.Bytes()
	return curve.Point{Group: curve.G1, Bytes: b[:]}
}

func bn254G2Point(p *bn254.G2Affine) curve.Point {
	b := p.Bytes()
	return curve.Point{Group: curve.G2, Bytes: b[:]}
}

func (c BN254) Decompress(g curve.Group, b []byte) (curve.Point, error) {
	switch g {
	case curve.G1:
		p, err := c.g1(b)
		if err != nil {
			return curve.Point{}, err
		}
		return bn254G1Point(&p), nil
	case curve.G2:
		p, err := c.g2(b)
		if err != nil {
			return curve.Point{}, err
		}
		return bn254G2Point(&p), nil
	default:
		return curve.Point{}, curve.ErrWrongGroup
	}
}

func (BN254) Compress(p curve.Point) []byte { return append([]byte(nil), p.Bytes...) }

func (BN254) Identity(g curve.Group) curve.Point {
	if g == curve.G2 {
		var p bn254.G2Affine
		p.SetInfinity()
		return bn254G2Point(&p)
	}
	var p bn254.G1Affine
	p.SetInfinity()
	return bn254G1Point(&p)
}

func (BN254) Generator(g curve.Group) curve.Point {
	_, _, g1, g2 := bn254.Generators()
	if g == curve.G2 {
		return bn254G2Point(&g2)
	}
	return bn254G1Point(&g1)
}

func (c BN254) Add(a, b curve.Point) (curve.Point, error) {
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
		var r bn254.G1Affine
		r.Add(&x, &y)
		return bn254G1Point(&r), nil
	case curve.G2:
		x, err := c.g2(a.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		y, err := c.g2(b.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		var r bn254.G2Affine
		r.Add(&x, &y)
		return bn254G2Point(&r), nil
	default:
		return curve.Point{}, curve.ErrWrongGroup
	}
}

func (c BN254) Neg(a curve.Point) (curve.Point, error) {
	switch a.Group {
	case curve.G1:
		x, err := c.g1(a.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		var r bn254.G1Affine
		r.Neg(&x)
		return bn254G1Point(&r), nil
	case curve.G2:
		x, err := c.g2(a.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		var r bn254.G2Affine
		r.Neg(&x)
		return bn254G2Point(&r), nil
	default:
		return curve.Point{}, curve.ErrWrongGroup
	}
}

func (c BN254) ScalarMul(a curve.Point, k *big.Int) (curve.Point, error) {
	switch a.Group {
	case curve.G1:
		x, err := c.g1(a.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		var r bn254.G1Affine
		r.ScalarMultiplication(&x, k)
		return bn254G1Point(&r), nil
	case curve.G2:
		x, err := c.g2(a.Bytes)
		if err != nil {
			return curve.Point{}, err
		}
		var r bn254.G2Affine
		r.ScalarMultiplication(&x, k)
		return bn254G2Point(&r), nil
	default:
		return curve.Point{}, curve.ErrWrongGroup
	}
}

func (c BN254) MultiMillerLoop(ctx context.Context, ps, qs []curve.Point) (curve.Partial, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := curve.CheckPairs(ps, qs); err != nil {
		return nil, err
	}
	g1s := make([]bn254.G1Affine, 0, len(ps))
	g2s := make([]bn254.G2Affine, 0, len(qs))
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
	var f bn254.GT
	if len(g1s) == 0 {
		f.SetOne()
	} else {
		var err error
		if f, err = bn254.MillerLoop(g1s, g2s); err != nil {
			return nil, errors.Wrap(err, "bn254 miller loop")
		}
	}
	b := f.Bytes()
	return curve.Partial(b[:]), nil
}

func (BN254) FinalExponentiation(ctx context.Context, f curve.Partial) (curve.GT, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f) != bn254.SizeOfGT {
		return nil, errors.Wrapf(curve.ErrInvalidPartial, "bn254: %d bytes", len(f))
	}
	var ml bn254.GT
	if err := ml.SetBytes(f); err != nil {
		return nil, errors.Wrap(curve.ErrInvalidPartial, err.Error())
	}
	if ml.IsZero() {
		return nil, errors.Wrap(curve.ErrInvalidPartial, "bn254: zero partial")
	}
	gt := bn254.FinalExponentiation(&ml)
	b := gt.Bytes()
	return curve.GT(b[:]), nil
}

func (c BN254) Pairing(ctx context.Context, p, q curve.Point) (curve.GT, error) {
	f, err := c.MultiMillerLoop(ctx, []curve.Point{p}, []curve.Point{q})
	if err != nil {
		return nil, err
	}
	return c.FinalExponentiation(ctx, f)
}
