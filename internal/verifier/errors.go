package verifier

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a Verifier matches exactly one of
// these with errors.Is.
var (
	ErrDecode             = errors.New("decode error")
	ErrUninitialized      = errors.New("verifier not initialized")
	ErrProvider           = errors.New("provider error")
	ErrMismatch           = errors.New("verification mismatch")
	ErrPending            = errors.New("verification already pending")
	ErrInvalidInput       = errors.New("invalid input")
	ErrState              = errors.New("state error")
	ErrAlreadyInitialized = errors.New("verifier already initialized")

	errUnknownKind = errors.New("unknown request kind")
)

// Error carries the kind, the failing operation and the underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func fail(op string, kind, cause error) error { return &Error{Kind: kind, Op: op, Err: cause} }

var categories = []struct {
	err  error
	name string
}{
	{ErrMismatch, "mismatch"},
	{ErrDecode, "decode"},
	{ErrUninitialized, "uninitialized"},
	{ErrProvider, "provider"},
	{ErrPending, "pending"},
	{ErrInvalidInput, "invalid_input"},
	{ErrState, "state"},
	{ErrAlreadyInitialized, "already_initialized"},
}

// Category names the outcome category of err: "" for nil, "internal" for
// errors of no known kind.
func Category(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range categories {
		if errors.Is(err, c.err) {
			return c.name
		}
	}
	return "internal"
}
