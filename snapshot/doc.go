// Package snapshot contains concrete persistence backends for long-term
// memory handoff.
//
// The context memory unit keeps its stores in process; ExportLTM and
// KnowledgeBlocks hand their contents to a snapshot Store for durability
// across restarts. Implementation packages like this one (in-memory, cloud
// object stores, databases, etc.) provide storage backends that can be
// swapped without touching calling code.
//
// Only lightweight implementation specific types should live here. Callers
// should depend on the Store interface rather than concrete types so they can
// substitute alternative persistence layers in tests or production.
package snapshot
