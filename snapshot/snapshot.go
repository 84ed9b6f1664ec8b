package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/memory"
)

// Store is the minimal persistence contract for serialized snapshots.
// Namespaces partition snapshots per kernel instance or tenant.
type Store interface {
	Save(namespace, snapshotID string, data []byte) error
	Get(namespace, snapshotID string) ([]byte, error)
	List(namespace string) ([]string, error)
	Delete(namespace, snapshotID string) error
}

// LTMSnapshot is the serialized form of a long-term memory handoff: the
// exported entries plus every knowledge block produced by compression.
type LTMSnapshot struct {
	ID        string                  `json:"id"`
	Entries   []memory.Entry          `json:"entries"`
	Blocks    []memory.KnowledgeBlock `json:"blocks,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// SaveLTM serializes the unit's long-term store and knowledge blocks into the
// given namespace and returns the new snapshot id.
func SaveLTM(store Store, namespace string, unit *memory.ContextUnit) (string, error) {
	snap := LTMSnapshot{
		ID:        core.NewID(),
		Entries:   unit.ExportLTM(),
		Blocks:    unit.KnowledgeBlocks(),
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := store.Save(namespace, snap.ID, data); err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return snap.ID, nil
}

// LoadLTM reads a snapshot and imports its entries into the unit's long-term
// store. Entries whose keys already exist are skipped; the returned count is
// the number actually inserted.
func LoadLTM(store Store, namespace, snapshotID string, unit *memory.ContextUnit) (int, error) {
	data, err := store.Get(namespace, snapshotID)
	if err != nil {
		return 0, fmt.Errorf("get snapshot: %w", err)
	}
	var snap LTMSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return unit.ImportLTM(snap.Entries), nil
}
