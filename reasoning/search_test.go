package reasoning

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentkernel/core"
)

func TestSearch_RespectsCapsAcrossAlgorithms(t *testing.T) {
	for _, algorithm := range []Algorithm{AlgorithmBFS, AlgorithmDFS, AlgorithmBeam, AlgorithmMCTS} {
		t.Run(string(algorithm), func(t *testing.T) {
			e := NewEngine(func(o *Options) { o.RandSeed = 42 })
			tree := e.Search("root", func(state string) float64 {
				return float64(len(state)) / 100.0
			}, SearchOptions{Algorithm: algorithm, MaxNodes: 25, MaxDepth: 3})

			require.NotNil(t, tree)
			assert.Equal(t, algorithm, tree.Algorithm)
			assert.LessOrEqual(t, tree.NodesExplored, 25)
			assert.Greater(t, tree.NodesExplored, 0)
			assert.NotEmpty(t, tree.BestPath, "best path must be non-empty once the root was explored")
			assert.Equal(t, "root", tree.BestPath[0])
			assert.LessOrEqual(t, len(tree.BestPath), 4, "path length is bounded by MaxDepth+1")
		})
	}
}

func TestSearch_CustomExpanderAndEvaluator(t *testing.T) {
	e := NewEngine()
	expand := func(state string, depth int) []string {
		if depth >= 2 {
			return nil
		}
		return []string{state + ".L", state + ".R"}
	}
	// Prefer right branches.
	evaluate := func(state string) float64 {
		return float64(strings.Count(state, "R"))
	}

	tree := e.Search("s", evaluate, SearchOptions{Algorithm: AlgorithmBFS, MaxNodes: 50, MaxDepth: 5, Expand: expand})
	assert.Equal(t, 7, tree.NodesExplored)
	assert.Equal(t, []string{"s", "s.R", "s.R.R"}, tree.BestPath)
	assert.InDelta(t, 2.0, tree.BestScore, 1e-9)
}

func TestSearch_BeamKeepsWidth(t *testing.T) {
	e := NewEngine()
	expand := func(state string, depth int) []string {
		if depth >= 1 {
			return nil
		}
		return []string{"a", "b", "c", "d", "e"}
	}
	tree := e.Search("root", func(state string) float64 {
		if state == "d" {
			return 1.0
		}
		return 0.1
	}, SearchOptions{Algorithm: AlgorithmBeam, BeamWidth: 2, MaxNodes: 50, MaxDepth: 3, Expand: expand})

	// Root plus its five children; beam truncation happens after scoring.
	assert.Equal(t, 6, tree.NodesExplored)
	assert.Equal(t, []string{"root", "d"}, tree.BestPath)
}

func TestSearch_MCTSDeterministicWithSeed(t *testing.T) {
	run := func() *Tree {
		e := NewEngine(func(o *Options) { o.RandSeed = 7 })
		return e.Search("start", func(state string) float64 {
			return float64(len(state)) / 50.0
		}, SearchOptions{Algorithm: AlgorithmMCTS, MaxNodes: 30, MaxDepth: 4})
	}
	first, second := run(), run()
	assert.Equal(t, first.BestPath, second.BestPath)
	assert.InDelta(t, first.BestScore, second.BestScore, 1e-9)
	assert.Equal(t, first.NodesExplored, second.NodesExplored)
}

func TestSearch_EmitsSearchedAndUpdatesStats(t *testing.T) {
	e := NewEngine()
	var events []Tree
	e.Subscribe(core.EventSearched, func(payload any) {
		events = append(events, payload.(Tree))
	})

	tree := e.Search("p", nil, SearchOptions{MaxNodes: 10})
	require.Len(t, events, 1)
	assert.Equal(t, tree.ID, events[0].ID)

	stats := e.GetStats()
	assert.Equal(t, int64(1), stats.TotalSearches)
	assert.InDelta(t, float64(tree.NodesExplored), stats.AvgSearchNodes, 1e-9)
}

func TestGetTree(t *testing.T) {
	e := NewEngine()
	tree := e.Search("p", nil, SearchOptions{MaxNodes: 5})

	got := e.GetTree(tree.ID)
	require.NotNil(t, got)
	assert.Equal(t, tree.NodesExplored, got.NodesExplored)

	got.BestPath[0] = "mutated"
	assert.NotEqual(t, "mutated", e.GetTree(tree.ID).BestPath[0])

	assert.Nil(t, e.GetTree("missing"))
}
