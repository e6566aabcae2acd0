// Package gnark provides curve.Provider implementations for BN254 and
// BLS12-381 on top of gnark-crypto. Compressed encodings follow gnark-crypto's
// format, which for BLS12-381 is the ZCash format shared by blst and circl.
// Miller loop outputs are encoded as raw Fp12 coordinates and are only
// meaningful to a provider of the same curve.
package gnark

import (
	"github.com/pkg/errors"

	"github.com/zmlAEQ/aggverify/internal/curve"
)

// New returns the provider for id.
func New(id curve.ID) (curve.Provider, error) {
	switch id {
	case curve.BN254:
		return BN254{}, nil
	case curve.BLS12381:
		return BLS12381{}, nil
	default:
		return nil, errors.Wrapf(curve.ErrUnsupported, "gnark: curve %q", id)
	}
}
