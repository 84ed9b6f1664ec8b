// Package reasoning implements the reasoning engine: chain-of-thought
// construction, tree search (bfs, dfs, beam, mcts), Monte-Carlo trajectory
// simulation, multi-judge consensus and evolutionary self-play. Each
// operation is stateless per call and records its structured result (chain,
// tree, run, verdict, round) in a small in-memory store retrievable by id.
//
// Scoring, expansion, transition, judging and proposing functions are all
// pluggable; the built-in defaults are deterministic heuristics that satisfy
// the engine's behavioral bounds (scores in [0,1], descending sort orders,
// monotonic difficulty growth) without calling any external model.
package reasoning
