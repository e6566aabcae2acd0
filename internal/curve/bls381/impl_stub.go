//go:build !blst

package bls381

import "github.com/zmlAEQ/aggverify/internal/curve"

// Available reports whether the blst backend is compiled in.
const Available = false

// New returns ErrNotImplemented in builds without the blst tag.
func New() (curve.Provider, error) { return nil, ErrNotImplemented }
