// Package backend selects a curve.Provider from configuration values.
package backend

import (
	"github.com/pkg/errors"

	"github.com/zmlAEQ/aggverify/internal/curve"
	"github.com/zmlAEQ/aggverify/internal/curve/bls381"
	"github.com/zmlAEQ/aggverify/internal/curve/gnark"
)

const (
	Gnark = "gnark"
	Blst  = "blst"
)

// Open returns the provider for (id, name), wrapped in a decode cache of
// cacheSize entries when cacheSize > 0.
func Open(id curve.ID, name string, cacheSize int) (curve.Provider, error) {
	if !id.Valid() {
		return nil, errors.Wrapf(curve.ErrUnsupported, "curve %q", id)
	}
	var (
		p   curve.Provider
		err error
	)
	switch name {
	case Gnark, "":
		p, err = gnark.New(id)
	case Blst:
		if id != curve.BLS12381 {
			return nil, errors.Wrapf(curve.ErrUnsupported, "blst backend has no %s", id)
		}
		p, err = bls381.New()
	default:
		return nil, errors.Wrapf(curve.ErrUnsupported, "backend %q", name)
	}
	if err != nil {
		return nil, err
	}
	return curve.NewCached(p, cacheSize)
}
