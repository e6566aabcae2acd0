//go:build !blst

package bls381

import (
	"errors"
	"testing"
)

func TestStub_NotImplemented(t *testing.T) {
	if Available {
		t.Fatalf("stub build reports blst available")
	}
	if p, err := New(); !errors.Is(err, ErrNotImplemented) || p != nil {
		t.Fatalf("want not implemented, got p=%v err=%v", p, err)
	}
}
