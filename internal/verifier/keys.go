package verifier

import (
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/zmlAEQ/aggverify/internal/curve"
)

// KeySet is the fixed public material of a verifier.
type KeySet struct {
	Generator curve.Point   // G2
	Aggregate curve.Point   // sum of Keys, G2
	Keys      []curve.Point // in submission order
}

// AggregatePublicKeys decodes the generator and every public key (compressed
// G2) and folds the keys by group addition. The aggregate does not depend on
// key order.
func AggregatePublicKeys(a curve.Arithmetic, generator []byte, keys [][]byte) (KeySet, error) {
	const op = "aggregate_public_keys"
	g, err := a.Decompress(curve.G2, generator)
	if err != nil {
		return KeySet{}, fail(op, ErrDecode, err)
	}
	if curve.IsIdentity(a, g) {
		return KeySet{}, fail(op, ErrInvalidInput, errors.New("generator is the identity"))
	}
	if len(keys) == 0 {
		return KeySet{}, fail(op, ErrInvalidInput, errors.New("empty public key roster"))
	}
	pts, err := decodeKeys(a, keys)
	if err != nil {
		return KeySet{}, fail(op, ErrDecode, err)
	}
	agg, err := curve.Sum(a, curve.G2, pts)
	if err != nil {
		return KeySet{}, fail(op, ErrProvider, err)
	}
	// an identity aggregate accepts the identity signature for any message
	if curve.IsIdentity(a, agg) {
		return KeySet{}, fail(op, ErrInvalidInput, errors.New("aggregate public key is the identity"))
	}
	return KeySet{Generator: g, Aggregate: agg, Keys: pts}, nil
}

// decodeKeys decompresses keys concurrently; subgroup checks dominate the cost
// of a large roster. The lowest failing index is reported.
func decodeKeys(a curve.Arithmetic, keys [][]byte) ([]curve.Point, error) {
	pts := make([]curve.Point, len(keys))
	errs := make([]error, len(keys))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, b := range keys {
		g.Go(func() error {
			pts[i], errs[i] = a.Decompress(curve.G2, b)
			return errs[i]
		})
	}
	if g.Wait() == nil {
		return pts, nil
	}
	for i, err := range errs {
		if err != nil {
			return nil, indexed("public key", i, err)
		}
	}
	return pts, nil
}
