package config

import (
	"encoding/json"
	"fmt"

	"github.com/zmlAEQ/aggverify/internal/verifier"
)

// Roster is the on-disk form of the init request; points are base64.
type Roster struct {
	Generator  []byte   `json:"generator"`
	PublicKeys [][]byte `json:"public_keys"`
}

func ParseRoster(raw []byte) (*verifier.Init, error) {
	var r Roster
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: roster: %v", ErrInvalid, err)
	}
	if len(r.Generator) == 0 || len(r.PublicKeys) == 0 {
		return nil, fmt.Errorf("%w: roster needs generator and public_keys", ErrInvalid)
	}
	return &verifier.Init{Generator: r.Generator, PublicKeys: r.PublicKeys}, nil
}
