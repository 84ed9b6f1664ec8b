// Package kernel implements the primitive dispatch gateway: a registry that
// binds opaque handlers to catalog primitive ids and wraps every call with
// enable/disable flags, a registry-wide fail-fast concurrency limit, a
// per-call timeout, call metrics and a bounded call history.
//
// The registry never retries internally; every failure is surfaced to the
// immediate caller as one of the typed errors in the core package. Slow
// handlers never block unrelated registry operations: the registry lock is
// released while a handler runs and re-acquired only to update counters and
// history once it settles.
package kernel
