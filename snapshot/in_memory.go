package snapshot

import "sync"

// InMemoryStore is a trivial in-process Store implementation useful for
// tests, examples and single-process prototypes. It keeps all snapshots in a
// nested map guarded by an RWMutex. Data is copied on save / retrieval to
// avoid accidental external mutation of internal buffers.
//
// Layout: namespace -> snapshotID -> raw bytes
//
// This implementation is intentionally minimal; it does not enforce retention
// limits, size quotas, or eviction. For production, prefer a durable
// implementation (e.g. S3 / GCS / database) that can scale and survive
// process restarts.
type InMemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]map[string][]byte // namespace -> snapshotID -> data
}

// NewInMemoryStore returns an empty in-memory snapshot store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{snapshots: make(map[string]map[string][]byte)}
}

// Save stores (or overwrites) the snapshot bytes for the given namespace and
// id. The input slice is copied before storage.
func (s *InMemoryStore) Save(namespace, snapshotID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.snapshots[namespace]; !exists {
		s.snapshots[namespace] = make(map[string][]byte)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.snapshots[namespace][snapshotID] = cp
	return nil
}

// Get returns a copy of the stored snapshot bytes or ErrNotFound.
func (s *InMemoryStore) Get(namespace, snapshotID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.snapshots[namespace]
	if !ok {
		return nil, ErrNotFound
	}
	data, ok := m[snapshotID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// List returns the snapshot ids stored for the namespace. The slice is a
// snapshot and safe for caller mutation.
func (s *InMemoryStore) List(namespace string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.snapshots[namespace]
	if !ok {
		return []string{}, nil
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids, nil
}

// Delete removes the snapshot if present or returns ErrNotFound.
func (s *InMemoryStore) Delete(namespace, snapshotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.snapshots[namespace]
	if !ok {
		return ErrNotFound
	}
	if _, ok := m[snapshotID]; !ok {
		return ErrNotFound
	}
	delete(m, snapshotID)
	return nil
}
