package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the dispatch contract. Callers should test with
// errors.Is; the kernel wraps these with the offending primitive id.
var (
	// ErrUnknownPrimitive is returned when an id does not exist in the
	// static catalog.
	ErrUnknownPrimitive = errors.New("unknown primitive")

	// ErrNotRegistered is returned when dispatching or toggling a primitive
	// that has no bound handler.
	ErrNotRegistered = errors.New("primitive not registered")

	// ErrDuplicateRegistration is returned when registering an id that is
	// already bound.
	ErrDuplicateRegistration = errors.New("primitive already registered")

	// ErrDisabled is returned when dispatching a primitive whose
	// registration is currently disabled.
	ErrDisabled = errors.New("primitive disabled")

	// ErrConcurrencyLimit is returned when no dispatch permit is immediately
	// available. Calls never queue.
	ErrConcurrencyLimit = errors.New("concurrency limit exceeded")

	// ErrTimeout is returned when a handler does not settle within the
	// configured call timeout.
	ErrTimeout = errors.New("call timed out")
)

// HandlerError wraps a failure produced by the handler itself, tagging it
// with the primitive that was dispatched. Unwrap exposes the handler's error
// so callers can continue to use errors.Is/As on the cause.
type HandlerError struct {
	Primitive PrimitiveID
	Err       error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("primitive %q handler failed: %v", e.Primitive, e.Err)
}

// Unwrap returns the handler's underlying error.
func (e *HandlerError) Unwrap() error { return e.Err }
