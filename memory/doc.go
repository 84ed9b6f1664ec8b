// Package memory implements the context memory unit: bounded short-term and
// long-term key/value stores whose entries carry a reinforcement-learning
// style Q-value in [0,1]. The Q-value drives capacity eviction (lowest value
// goes first), automatic promotion from short-term to long-term memory, and
// the slime-mold compression pass that folds low-value short-term entries
// into knowledge blocks.
//
// The unit performs no I/O and never suspends; all operations are
// mutex-guarded map mutation, safe for concurrent callers. Persistence, if a
// caller needs it, goes through ExportLTM/ImportLTM as plain entry lists.
package memory
