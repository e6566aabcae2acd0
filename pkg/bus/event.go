package bus

import (
	"context"
	"errors"
)

type Kind string

const (
	// KindRequest carries a verifier request to the dispatcher.
	KindRequest Kind = "request"
	// KindControl is reserved for dispatcher control messages.
	KindControl Kind = "control"
)

// ErrFull is returned by Publish when the bus is at capacity.
var ErrFull = errors.New("bus: full")

type Event struct {
	Kind    Kind
	Body    any
	TraceID string
	// Reply receives exactly one value when set; it must be buffered.
	Reply chan any
}

type Subscriber <-chan Event

type Bus struct {
	pub chan Event
}

func New(size int) *Bus {
	if size <= 0 { size = 128 }
	return &Bus{pub: make(chan Event, size)}
}

// Publish enqueues ev without blocking. A full bus rejects the event so the
// caller can report backpressure instead of waiting on a stuck dispatcher.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil { return err }
	select {
	case b.pub <- ev:
		return nil
	default:
		return ErrFull
	}
}

func (b *Bus) Subscribe() Subscriber { return b.pub }

// Len reports queued events.
func (b *Bus) Len() int { return len(b.pub) }
