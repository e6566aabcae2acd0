package verifier

import (
	"errors"
	"fmt"

	"github.com/zmlAEQ/aggverify/internal/curve"
)

func indexed(what string, i int, err error) error {
	return fmt.Errorf("%s %d: %w", what, i, err)
}

// AggregateSignatures decodes each signature (compressed G1) and folds them by
// group addition.
func AggregateSignatures(a curve.Arithmetic, sigs [][]byte) (curve.Point, error) {
	const op = "aggregate_signatures"
	if len(sigs) == 0 {
		return curve.Point{}, fail(op, ErrInvalidInput, errors.New("no signatures"))
	}
	pts := make([]curve.Point, len(sigs))
	for i, b := range sigs {
		p, err := a.Decompress(curve.G1, b)
		if err != nil {
			return curve.Point{}, fail(op, ErrDecode, indexed("signature", i, err))
		}
		pts[i] = p
	}
	agg, err := curve.Sum(a, curve.G1, pts)
	if err != nil {
		return curve.Point{}, fail(op, ErrProvider, err)
	}
	return agg, nil
}

// decodeMessage decodes the hashed message point (compressed G1).
func decodeMessage(a curve.Arithmetic, op string, b []byte) (curve.Point, error) {
	m, err := a.Decompress(curve.G1, b)
	if err != nil {
		return curve.Point{}, fail(op, ErrDecode, fmt.Errorf("message: %w", err))
	}
	if curve.IsIdentity(a, m) {
		return curve.Point{}, fail(op, ErrInvalidInput, errors.New("message is the identity"))
	}
	return m, nil
}
