// Package trace carries a request trace ID through a context.
package trace

import (
	"context"

	"github.com/google/uuid"
)

type key struct{}

// New returns a fresh random trace ID.
func New() string { return uuid.NewString() }

// WithTraceID returns ctx carrying id.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, key{}, id)
}

// FromContext returns the trace ID stored in ctx, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok && id != ""
}

// Ensure returns ctx and its trace ID, attaching a new one when absent.
func Ensure(ctx context.Context) (context.Context, string) {
	if id, ok := FromContext(ctx); ok {
		return ctx, id
	}
	id := New()
	return WithTraceID(ctx, id), id
}
