// Package state holds the single pending verification slot: the two Miller
// loop outputs accumulated for one check and awaiting final exponentiation.
package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zmlAEQ/aggverify/internal/curve"
)

var (
	ErrCorrupt = errors.New("state: corrupt record")
	ErrEmpty   = errors.New("state: pending pair is incomplete")
)

// Pending is a fully populated slot. Left is the Miller loop of the message
// with the aggregate public key, Right that of the aggregate signature with
// the generator.
type Pending struct {
	Curve       curve.ID      `json:"curve"`
	Left        curve.Partial `json:"left"`
	Right       curve.Partial `json:"right"`
	Accumulated time.Time     `json:"accumulated"`
}

// Validate rejects half-populated pairs.
func (p Pending) Validate() error {
	if len(p.Left) == 0 || len(p.Right) == 0 || p.Curve == "" {
		return ErrEmpty
	}
	return nil
}

// Store persists at most one Pending. Load reports false when the slot is empty.
type Store interface {
	Load(ctx context.Context) (Pending, bool, error)
	Save(ctx context.Context, p Pending) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the slot in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	p   Pending
	set bool
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(_ context.Context) (Pending, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.p, m.set, nil
}

func (m *MemoryStore) Save(_ context.Context, p Pending) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.p, m.set = p, true
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.p, m.set = Pending{}, false
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
)
