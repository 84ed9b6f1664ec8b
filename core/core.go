package core

import (
	"context"

	"github.com/google/uuid"
)

// Args carries the named arguments of a primitive call. Values are opaque to
// the kernel; handlers decide how to interpret them.
type Args map[string]any

// Handler is the opaque function bound to a primitive id. The kernel never
// inspects a handler's internals and treats any returned error identically
// regardless of its source (external model call, local computation, etc.).
//
// The context is cancelled when the per-call timeout fires, unless the
// registry is configured with detached handlers for compatibility with
// fire-and-forget dispatch.
type Handler func(ctx context.Context, args Args) (any, error)

// NewID generates a new unique identifier for entries, chains, trees,
// verdicts and call records.
func NewID() string { return uuid.NewString() }

// String reads a string argument, returning fallback when absent or of a
// different type.
func (a Args) String(key, fallback string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return fallback
}

// Float reads a numeric argument, accepting float64 or int values.
func (a Args) Float(key string, fallback float64) float64 {
	switch v := a[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}

// Int reads an integer argument, accepting int or float64 values.
func (a Args) Int(key string, fallback int) int {
	switch v := a[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

// Strings reads a string-slice argument, accepting []string or []any.
func (a Args) Strings(key string) []string {
	switch v := a[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
