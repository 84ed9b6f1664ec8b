// Package core provides the foundational domain types shared by the
// AgentKernel components. It defines:
//
//   - The static primitive catalog (ids, layers, dependency sets)
//   - The Handler contract bound to primitives by the kernel registry
//   - The typed error taxonomy for dispatch failures
//   - A synchronous event Emitter used by every component for
//     registrable-listener broadcast
//
// The package intentionally keeps implementation concerns (dispatch policy,
// memory stores, reasoning algorithms) out of scope, exposing small contracts
// so the kernel, memory and reasoning packages can evolve independently.
package core
