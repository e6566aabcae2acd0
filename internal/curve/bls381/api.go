package bls381

// Package bls381 wraps blst behind curve.Provider for BLS12-381.
// By default (no build tags) New returns ErrNotImplemented so the module
// builds without cgo; with -tags blst the provider is backed by blst.
// Compressed encodings are the ZCash format shared with gnark-crypto and circl.

import "errors"

// Errors
var (
	ErrNotImplemented = errors.New("bls381: blst backend not built (use -tags blst)")
)

// Encoding sizes of compressed points.
const (
	G1Size = 48
	G2Size = 96
)
