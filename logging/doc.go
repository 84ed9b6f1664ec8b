// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers a richer KernelLogger with contextual
// helpers (component, attached attributes) and domain specific logging
// helpers for primitive dispatch, memory operations and reasoning runs.
package logging
