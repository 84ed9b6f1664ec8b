package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentkernel/core"
)

func importance(v float64) *float64 { return &v }

func TestStore_NewEntryDefaults(t *testing.T) {
	u := NewContextUnit()

	entry := u.Store("goal", "ship the release", StoreOptions{})
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, ScopeSTM, entry.Scope)
	assert.InDelta(t, 0.5, entry.Importance, 1e-9)
	assert.InDelta(t, 0.5, entry.QValue, 1e-9)
	assert.Zero(t, entry.AccessCount)
	assert.False(t, entry.CreatedAt.IsZero())

	stats := u.GetStats()
	assert.Equal(t, 1, stats.STMSize)
	assert.Equal(t, int64(1), stats.TotalStored)
}

func TestStore_SameKeyUpdatesInPlace(t *testing.T) {
	u := NewContextUnit()

	first := u.Store("goal", "v1", StoreOptions{Importance: importance(0.9)})
	second := u.Store("goal", "v2", StoreOptions{})

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "v2", second.Value)
	assert.Equal(t, 1, second.AccessCount)
	// Importance and qValue are not reset on update.
	assert.InDelta(t, 0.9, second.QValue, 1e-9)
	assert.Equal(t, 1, u.GetStats().STMSize)
}

func TestStore_EmitsStored(t *testing.T) {
	u := NewContextUnit()
	var got []Entry
	u.Subscribe(core.EventStored, func(payload any) {
		got = append(got, payload.(Entry))
	})

	u.Store("a", 1, StoreOptions{})
	u.Store("a", 2, StoreOptions{})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Key)
	assert.Equal(t, 2, got[1].Value)
}

func TestStore_EvictsLowestQValueWhenFull(t *testing.T) {
	u := NewContextUnit(func(o *Options) { o.STMCapacity = 3 })

	a := u.Store("a", "low", StoreOptions{Importance: importance(0.1)})
	u.Store("b", "mid", StoreOptions{Importance: importance(0.5)})
	u.Store("c", "high", StoreOptions{Importance: importance(0.9)})
	u.Store("d", "new", StoreOptions{Importance: importance(0.7)})

	stats := u.GetStats()
	assert.Equal(t, 3, stats.STMSize)
	assert.False(t, u.Update(a.ID, "gone"), "lowest-qValue entry must have been evicted")
	results := u.Retrieve("mid", RetrieveOptions{})
	require.NotEmpty(t, results)
	assert.Equal(t, "b", results[0].Key)
}

func TestStore_EvictionTieBreaksOldestFirst(t *testing.T) {
	u := NewContextUnit(func(o *Options) { o.STMCapacity = 2 })

	older := u.Store("older", 1, StoreOptions{Importance: importance(0.5)})
	newer := u.Store("newer", 2, StoreOptions{Importance: importance(0.5)})
	u.Store("third", 3, StoreOptions{Importance: importance(0.5)})

	assert.False(t, u.Update(older.ID, "x"))
	assert.True(t, u.Update(newer.ID, "x"))
}

func TestRetrieve_RanksByRelevanceAndQValue(t *testing.T) {
	u := NewContextUnit()
	u.Store("apples", "red apples", StoreOptions{Importance: importance(0.2)})
	u.Store("oranges", "citrus fruit", StoreOptions{Importance: importance(0.9)})
	u.Store("apple pie", "baked apples", StoreOptions{Importance: importance(0.8)})

	results := u.Retrieve("apples", RetrieveOptions{TopK: 2})
	require.Len(t, results, 2)
	// Both apple entries fully match the query; the higher qValue wins.
	assert.Equal(t, "apple pie", results[0].Key)
	assert.Equal(t, "apples", results[1].Key)
	assert.Equal(t, 1, results[0].AccessCount)

	assert.Equal(t, int64(2), u.GetStats().TotalRetrieved)
}

func TestRetrieve_TagFilterAndScopeAll(t *testing.T) {
	u := NewContextUnit()
	u.Store("stm entry", "alpha", StoreOptions{Tags: []string{"work"}})
	u.Store("ltm entry", "alpha", StoreOptions{Scope: ScopeLTM, Tags: []string{"home"}})

	results := u.Retrieve("alpha", RetrieveOptions{Scope: ScopeAll, Tags: []string{"home"}})
	require.Len(t, results, 1)
	assert.Equal(t, "ltm entry", results[0].Key)

	// Default scope is STM only.
	results = u.Retrieve("alpha", RetrieveOptions{})
	require.Len(t, results, 1)
	assert.Equal(t, "stm entry", results[0].Key)
}

func TestUpdateAndDiscard_UnknownID(t *testing.T) {
	u := NewContextUnit()
	assert.False(t, u.Update("missing", "x"))
	assert.False(t, u.Discard("missing"))
	assert.False(t, u.UpdateQValue("missing", 1.0))
	assert.False(t, u.Promote("missing"))
	assert.False(t, u.Demote("missing"))
}

func TestUpdateQValue_LearningRule(t *testing.T) {
	u := NewContextUnit(func(o *Options) { o.QLearningRate = 0.1 })
	e := u.Store("fact", "x", StoreOptions{Importance: importance(0.5)})

	require.True(t, u.UpdateQValue(e.ID, 1.0))
	results := u.Retrieve("fact", RetrieveOptions{})
	require.Len(t, results, 1)
	// 0.5 + 0.1*(1.0-0.5) = 0.55
	assert.InDelta(t, 0.55, results[0].QValue, 1e-9)

	// Negative rewards pull toward zero but stay clamped.
	for i := 0; i < 100; i++ {
		u.UpdateQValue(e.ID, -5.0)
	}
	results = u.Retrieve("fact", RetrieveOptions{})
	require.Len(t, results, 1)
	assert.GreaterOrEqual(t, results[0].QValue, 0.0)
}

func TestUpdateQValue_AutoPromotesAtThreshold(t *testing.T) {
	u := NewContextUnit(func(o *Options) {
		o.PromotionQThreshold = 0.6
		o.QLearningRate = 0.5
	})
	e := u.Store("promoted", "x", StoreOptions{Importance: importance(0.5)})

	// 0.5 + 0.5*(1.0-0.5) = 0.75 >= 0.6.
	require.True(t, u.UpdateQValue(e.ID, 1.0))

	stats := u.GetStats()
	assert.Zero(t, stats.STMSize)
	assert.Equal(t, 1, stats.LTMSize)
	results := u.Retrieve("promoted", RetrieveOptions{Scope: ScopeLTM})
	require.Len(t, results, 1)
	assert.Equal(t, ScopeLTM, results[0].Scope)
}

func TestBatchUpdateQValues(t *testing.T) {
	u := NewContextUnit()
	a := u.Store("a", 1, StoreOptions{})
	b := u.Store("b", 2, StoreOptions{})

	n := u.BatchUpdateQValues([]string{a.ID, b.ID, "missing"}, 0.9)
	assert.Equal(t, 2, n)
}

func TestPromoteDemote_RoundTrip(t *testing.T) {
	u := NewContextUnit()
	e := u.Store("mobile", "x", StoreOptions{})

	require.True(t, u.Promote(e.ID))
	assert.Equal(t, 1, u.GetStats().LTMSize)
	assert.False(t, u.Promote(e.ID), "already in LTM")

	require.True(t, u.Demote(e.ID))
	assert.Equal(t, 1, u.GetStats().STMSize)
	assert.False(t, u.Demote(e.ID), "already in STM")
}

func TestCompress_SelectsLowestQValueEntries(t *testing.T) {
	u := NewContextUnit()
	ids := make(map[string]string, 10)
	for i := 0; i < 10; i++ {
		e := u.Store(fmt.Sprintf("k%d", i), i, StoreOptions{Importance: importance(float64(i) / 10.0)})
		ids[e.Key] = e.ID
	}

	var blocks []KnowledgeBlock
	u.Subscribe(core.EventCompressed, func(payload any) {
		blocks = append(blocks, payload.(KnowledgeBlock))
	})

	block := u.Compress()
	require.NotNil(t, block)
	// floor(10*0.3) = 3 lowest-qValue entries: k0, k1, k2.
	assert.Len(t, block.SourceIDs, 3)
	assert.ElementsMatch(t, []string{ids["k0"], ids["k1"], ids["k2"]}, block.SourceIDs)
	assert.NotEmpty(t, block.Summary)

	stats := u.GetStats()
	assert.Equal(t, 7, stats.STMSize)
	assert.Equal(t, int64(3), stats.TotalCompressed)

	require.Len(t, blocks, 1)
	assert.Equal(t, block.ID, blocks[0].ID)
	require.Len(t, u.KnowledgeBlocks(), 1)
}

func TestCompress_TooFewEntriesIsNoOp(t *testing.T) {
	u := NewContextUnit()
	for i := 0; i < 5; i++ { // floor(5*0.3) = 1 < 2
		u.Store(fmt.Sprintf("k%d", i), i, StoreOptions{})
	}
	assert.Nil(t, u.Compress())
	assert.Equal(t, 5, u.GetStats().STMSize)
	assert.Empty(t, u.KnowledgeBlocks())
}

func TestSearchIndex(t *testing.T) {
	u := NewContextUnit()
	u.Store("database tuning", "postgres indexes", StoreOptions{})
	u.Store("unrelated", "gardening", StoreOptions{Scope: ScopeLTM})

	results := u.SearchIndex("postgres", 10)
	require.Len(t, results, 1)
	assert.Equal(t, "database tuning", results[0].Key)
	// SearchIndex does not reinforce access.
	assert.Zero(t, results[0].AccessCount)
}

func TestSearchIndex_DisabledReturnsEmpty(t *testing.T) {
	u := NewContextUnit(func(o *Options) { o.EnableSemanticIndex = false })
	u.Store("a", "findable", StoreOptions{})
	assert.Empty(t, u.SearchIndex("findable", 10))
}

func TestExportImportLTM(t *testing.T) {
	source := NewContextUnit()
	source.Store("first", 1, StoreOptions{Scope: ScopeLTM, Importance: importance(0.8)})
	source.Store("second", 2, StoreOptions{Scope: ScopeLTM})

	exported := source.ExportLTM()
	require.Len(t, exported, 2)
	assert.Equal(t, "first", exported[0].Key)

	dest := NewContextUnit()
	dest.Store("second", "already here", StoreOptions{Scope: ScopeLTM})

	inserted := dest.ImportLTM(exported)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 2, dest.GetStats().LTMSize)
}

func TestClear(t *testing.T) {
	u := NewContextUnit()
	u.Store("a", 1, StoreOptions{})
	u.Store("b", 2, StoreOptions{Scope: ScopeLTM})

	u.Clear(ScopeSTM)
	stats := u.GetStats()
	assert.Zero(t, stats.STMSize)
	assert.Equal(t, 1, stats.LTMSize)

	u.Clear(ScopeAll)
	stats = u.GetStats()
	assert.Zero(t, stats.STMSize)
	assert.Zero(t, stats.LTMSize)
}

func TestStartStop_Idempotent(t *testing.T) {
	u := NewContextUnit()
	started, stopped := 0, 0
	u.Subscribe(core.EventStarted, func(any) { started++ })
	u.Subscribe(core.EventStopped, func(any) { stopped++ })

	u.Start()
	u.Start()
	assert.True(t, u.GetStats().Running)
	u.Stop()
	u.Stop()
	assert.False(t, u.GetStats().Running)
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, stopped)
}

func TestConcurrentAccess(t *testing.T) {
	u := NewContextUnit(func(o *Options) { o.STMCapacity = 100 })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				e := u.Store(fmt.Sprintf("w%d-%d", i, j), j, StoreOptions{})
				u.UpdateQValue(e.ID, 0.7)
				u.Retrieve(fmt.Sprintf("w%d", i), RetrieveOptions{TopK: 5})
			}
		}()
	}
	wg.Wait()

	stats := u.GetStats()
	assert.Equal(t, int64(200), stats.TotalStored)
	assert.LessOrEqual(t, stats.STMSize, 100)
}
