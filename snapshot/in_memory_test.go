package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentkernel/memory"
)

// Compile time check to ensure InMemoryStore satisfies the Store interface.
var _ Store = (*InMemoryStore)(nil)

func TestInMemoryStore_SaveGetDelete(t *testing.T) {
	s := NewInMemoryStore()

	require.NoError(t, s.Save("ns", "snap-1", []byte("payload")))

	data, err := s.Get("ns", "snap-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	// Mutating the returned copy must not affect the stored bytes.
	data[0] = 'X'
	again, err := s.Get("ns", "snap-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), again)

	require.NoError(t, s.Delete("ns", "snap-1"))
	_, err = s.Get("ns", "snap-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete("ns", "snap-1"), ErrNotFound)
}

func TestInMemoryStore_List(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Save("ns", "a", []byte("1")))
	require.NoError(t, s.Save("ns", "b", []byte("2")))

	ids, err := s.List("ns")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)

	empty, err := s.List("other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSaveLoadLTM_RoundTrip(t *testing.T) {
	source := memory.NewContextUnit()
	imp := 0.8
	source.Store("persisted fact", "value one", memory.StoreOptions{Scope: memory.ScopeLTM, Importance: &imp})
	source.Store("another fact", "value two", memory.StoreOptions{Scope: memory.ScopeLTM})

	store := NewInMemoryStore()
	id, err := SaveLTM(store, "kernel-1", source)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	dest := memory.NewContextUnit()
	inserted, err := LoadLTM(store, "kernel-1", id, dest)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 2, dest.GetStats().LTMSize)

	entries := dest.Retrieve("persisted", memory.RetrieveOptions{Scope: memory.ScopeLTM})
	require.Len(t, entries, 1)
	assert.InDelta(t, 0.8, entries[0].QValue, 1e-9)
}

func TestLoadLTM_SkipsExistingKeys(t *testing.T) {
	source := memory.NewContextUnit()
	source.Store("shared key", "from snapshot", memory.StoreOptions{Scope: memory.ScopeLTM})

	store := NewInMemoryStore()
	id, err := SaveLTM(store, "ns", source)
	require.NoError(t, err)

	dest := memory.NewContextUnit()
	dest.Store("shared key", "already here", memory.StoreOptions{Scope: memory.ScopeLTM})

	inserted, err := LoadLTM(store, "ns", id, dest)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestLoadLTM_UnknownSnapshot(t *testing.T) {
	_, err := LoadLTM(NewInMemoryStore(), "ns", "missing", memory.NewContextUnit())
	assert.ErrorIs(t, err, ErrNotFound)
}
