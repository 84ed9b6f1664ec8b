package reasoning

import (
	"fmt"
	"sort"
	"time"

	"github.com/hupe1980/agentkernel/core"
)

// Algorithm selects the search strategy.
type Algorithm string

const (
	// AlgorithmBFS explores the frontier breadth-first.
	AlgorithmBFS Algorithm = "bfs"
	// AlgorithmDFS explores the frontier depth-first.
	AlgorithmDFS Algorithm = "dfs"
	// AlgorithmBeam retains only the top beamWidth states per depth.
	AlgorithmBeam Algorithm = "beam"
	// AlgorithmMCTS performs simulated rollouts and selects by aggregated
	// score.
	AlgorithmMCTS Algorithm = "mcts"
)

// Evaluator scores a candidate state. Higher is better; implementations
// should stay within [0,1] but the engine tolerates any ordering-consistent
// range.
type Evaluator func(state string) float64

// Expander produces the candidate successor states of a state at the given
// depth. An empty result makes the state a leaf.
type Expander func(state string, depth int) []string

// SearchOptions refines Search. Zero values fall back to defaults
// (bfs, MaxNodes 100, MaxDepth 5, BeamWidth 3, a three-way heuristic
// expander).
type SearchOptions struct {
	Algorithm Algorithm
	MaxNodes  int
	MaxDepth  int
	BeamWidth int
	Expand    Expander
}

// Tree is the stored, read-only result of one Search call.
type Tree struct {
	ID            string    `json:"id"`
	Algorithm     Algorithm `json:"algorithm"`
	Root          string    `json:"root"`
	NodesExplored int       `json:"nodes_explored"`
	BestPath      []string  `json:"best_path"`
	BestScore     float64   `json:"best_score"`
	CreatedAt     time.Time `json:"created_at"`
}

// searchNode tracks one explored state and the path that reached it.
type searchNode struct {
	state string
	path  []string
	depth int
}

// Search expands a state tree rooted at problem and returns the stored
// result. Every algorithm respects MaxNodes and MaxDepth as hard caps, and
// the best path is non-empty whenever at least one node was explored (the
// root always is).
func (e *Engine) Search(problem string, evaluator Evaluator, opts SearchOptions) *Tree {
	if opts.Algorithm == "" {
		opts.Algorithm = AlgorithmBFS
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = 100
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 5
	}
	if opts.BeamWidth <= 0 {
		opts.BeamWidth = 3
	}
	if opts.Expand == nil {
		opts.Expand = defaultExpander
	}
	if evaluator == nil {
		evaluator = func(string) float64 { return 0 }
	}

	tree := &Tree{
		ID:        core.NewID(),
		Algorithm: opts.Algorithm,
		Root:      problem,
		CreatedAt: time.Now().UTC(),
	}

	switch opts.Algorithm {
	case AlgorithmBeam:
		e.beamSearch(tree, problem, evaluator, opts)
	case AlgorithmMCTS:
		e.mctsSearch(tree, problem, evaluator, opts)
	default:
		e.frontierSearch(tree, problem, evaluator, opts)
	}

	e.mu.Lock()
	e.trees[tree.ID] = tree
	e.totalSearches++
	e.totalSearchNodes += int64(tree.NodesExplored)
	snapshot := *tree
	e.mu.Unlock()

	e.emitter.Emit(core.EventSearched, snapshot)
	e.logger.Debug("search completed", "algorithm", string(opts.Algorithm), "nodes", tree.NodesExplored)
	return &snapshot
}

// GetTree returns a copy of a stored search tree, or nil when unknown.
func (e *Engine) GetTree(treeID string) *Tree {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.trees[treeID]
	if !ok {
		return nil
	}
	snapshot := *t
	snapshot.BestPath = append([]string{}, t.BestPath...)
	return &snapshot
}

// frontierSearch runs bfs or dfs over the expansion tree.
func (e *Engine) frontierSearch(tree *Tree, root string, evaluator Evaluator, opts SearchOptions) {
	frontier := []searchNode{{state: root, path: []string{root}, depth: 0}}
	for len(frontier) > 0 && tree.NodesExplored < opts.MaxNodes {
		var node searchNode
		if opts.Algorithm == AlgorithmDFS {
			node = frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]
		} else {
			node = frontier[0]
			frontier = frontier[1:]
		}
		e.visit(tree, node, evaluator)
		if node.depth >= opts.MaxDepth {
			continue
		}
		for _, child := range opts.Expand(node.state, node.depth) {
			frontier = append(frontier, childNode(node, child))
		}
	}
}

// beamSearch retains only the top BeamWidth states per depth level.
func (e *Engine) beamSearch(tree *Tree, root string, evaluator Evaluator, opts SearchOptions) {
	level := []searchNode{{state: root, path: []string{root}, depth: 0}}
	for len(level) > 0 && tree.NodesExplored < opts.MaxNodes {
		type rated struct {
			node  searchNode
			score float64
		}
		ratedLevel := make([]rated, 0, len(level))
		for _, node := range level {
			if tree.NodesExplored >= opts.MaxNodes {
				break
			}
			score := e.visit(tree, node, evaluator)
			ratedLevel = append(ratedLevel, rated{node: node, score: score})
		}
		sort.SliceStable(ratedLevel, func(i, j int) bool { return ratedLevel[i].score > ratedLevel[j].score })
		if len(ratedLevel) > opts.BeamWidth {
			ratedLevel = ratedLevel[:opts.BeamWidth]
		}

		var next []searchNode
		for _, r := range ratedLevel {
			if r.node.depth >= opts.MaxDepth {
				continue
			}
			for _, child := range opts.Expand(r.node.state, r.node.depth) {
				next = append(next, childNode(r.node, child))
			}
		}
		level = next
	}
}

// mctsSearch runs random rollouts from the root and keeps the path with the
// best aggregated score. Each visited rollout state counts toward MaxNodes.
func (e *Engine) mctsSearch(tree *Tree, root string, evaluator Evaluator, opts SearchOptions) {
	for tree.NodesExplored < opts.MaxNodes {
		node := searchNode{state: root, path: []string{root}, depth: 0}
		total := e.visit(tree, node, evaluator)
		for node.depth < opts.MaxDepth && tree.NodesExplored < opts.MaxNodes {
			children := opts.Expand(node.state, node.depth)
			if len(children) == 0 {
				break
			}
			node = childNode(node, children[e.randomIntn(len(children))])
			total += e.visit(tree, node, evaluator)
		}
		// Rollouts are judged by their mean state score so short and long
		// paths compete fairly.
		mean := total / float64(len(node.path))
		if mean > tree.BestScore || len(tree.BestPath) == 0 {
			tree.BestScore = mean
			tree.BestPath = append([]string{}, node.path...)
		}
	}
}

// visit scores one node, updating the explored count and best path.
func (e *Engine) visit(tree *Tree, node searchNode, evaluator Evaluator) float64 {
	tree.NodesExplored++
	score := evaluator(node.state)
	if tree.Algorithm != AlgorithmMCTS {
		if score > tree.BestScore || len(tree.BestPath) == 0 {
			tree.BestScore = score
			tree.BestPath = append([]string{}, node.path...)
		}
	}
	return score
}

func childNode(parent searchNode, state string) searchNode {
	path := make([]string, len(parent.path), len(parent.path)+1)
	copy(path, parent.path)
	return searchNode{state: state, path: append(path, state), depth: parent.depth + 1}
}

// defaultExpander derives three labelled refinements per state. Callers with
// a real state space supply their own Expander.
func defaultExpander(state string, depth int) []string {
	out := make([]string, 3)
	for i := range out {
		out[i] = fmt.Sprintf("%s > option %d.%d", state, depth+1, i+1)
	}
	return out
}
