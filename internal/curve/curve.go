// Package curve defines the arithmetic provider consumed by the verifier.
//
// Points cross the provider boundary as canonical compressed encodings, so a
// provider may live in-process or behind an asynchronous request/response
// boundary (see internal/hostcall). Pairing operations take a context because
// they are the expensive calls that may be delegated.
package curve

import (
	"bytes"
	"context"
	"errors"
	"math/big"
)

// ID names a pairing-friendly curve family.
type ID string

const (
	BN254    ID = "bn254"
	BLS12381 ID = "bls12-381"
)

// Valid reports whether id is a supported curve family.
func (id ID) Valid() bool { return id == BN254 || id == BLS12381 }

// Group selects one of the two source groups of the pairing.
type Group uint8

const (
	G1 Group = 1
	G2 Group = 2
)

func (g Group) String() string {
	switch g {
	case G1:
		return "G1"
	case G2:
		return "G2"
	default:
		return "G?"
	}
}

var (
	ErrInvalidPoint   = errors.New("curve: invalid point")
	ErrInvalidLength  = errors.New("curve: invalid encoding length")
	ErrWrongGroup     = errors.New("curve: wrong group")
	ErrInvalidPartial = errors.New("curve: invalid miller loop output")
	ErrCurveMismatch  = errors.New("curve: curve mismatch")
	ErrUnsupported    = errors.New("curve: unsupported operation")
	ErrLengthMismatch = errors.New("curve: point lists differ in length")
)

// Point is a validated group element in canonical compressed form. Two points
// are equal iff their encodings are equal.
type Point struct {
	Group Group
	Bytes []byte
}

func (p Point) Equal(q Point) bool { return p.Group == q.Group && bytes.Equal(p.Bytes, q.Bytes) }

// Clone returns p with its own copy of Bytes.
func (p Point) Clone() Point { return Point{Group: p.Group, Bytes: bytes.Clone(p.Bytes)} }

// Partial is a Miller loop output awaiting final exponentiation. Its encoding
// is provider specific and only meaningful to a provider of the same curve.
type Partial []byte

// GT is a target group element after final exponentiation, canonically encoded.
type GT []byte

func (a GT) Equal(b GT) bool { return len(a) > 0 && bytes.Equal(a, b) }

// Arithmetic covers point encoding and group operations.
type Arithmetic interface {
	Curve() ID
	// Decompress validates b as a compressed element of g, including subgroup
	// membership, and returns it in canonical form.
	Decompress(g Group, b []byte) (Point, error)
	Compress(p Point) []byte
	Identity(g Group) Point
	Generator(g Group) Point
	Add(a, b Point) (Point, error)
	Neg(p Point) (Point, error)
	ScalarMul(p Point, k *big.Int) (Point, error)
}

// Pairer covers the pairing computation split at the Miller loop /
// final exponentiation seam.
type Pairer interface {
	// MultiMillerLoop returns the product of the Miller loops of (ps[i], qs[i]),
	// ps in G1 and qs in G2.
	MultiMillerLoop(ctx context.Context, ps, qs []Point) (Partial, error)
	FinalExponentiation(ctx context.Context, f Partial) (GT, error)
	// Pairing is e(p, q) in one call.
	Pairing(ctx context.Context, p, q Point) (GT, error)
}

// Provider is the full curve arithmetic provider.
type Provider interface {
	Arithmetic
	Pairer
}

// IsIdentity reports whether p is the identity of its group under a.
func IsIdentity(a Arithmetic, p Point) bool { return p.Equal(a.Identity(p.Group)) }

// Sum folds points of group g by repeated addition starting at the identity.
func Sum(a Arithmetic, g Group, pts []Point) (Point, error) {
	acc := a.Identity(g)
	for _, p := range pts {
		if p.Group != g {
			return Point{}, ErrWrongGroup
		}
		var err error
		if acc, err = a.Add(acc, p); err != nil {
			return Point{}, err
		}
	}
	return acc, nil
}

// CheckPairs validates the operands of a multi Miller loop.
func CheckPairs(ps, qs []Point) error {
	if len(ps) != len(qs) {
		return ErrLengthMismatch
	}
	for i := range ps {
		if ps[i].Group != G1 || qs[i].Group != G2 {
			return ErrWrongGroup
		}
	}
	return nil
}
