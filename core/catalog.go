package core

// PrimitiveID names an atomic kernel operation. Every id is assigned to one
// of six ordered layers in the static catalog below.
type PrimitiveID string

// The full primitive catalog. Layer 0 holds the model-facing foundations,
// layers 1-2 the context memory surface, layers 3-4 the reasoning surface and
// layer 5 the self-improvement operations.
const (
	// Layer 0 - foundations.
	PrimitiveAttention PrimitiveID = "attention"
	PrimitiveEmbedding PrimitiveID = "embedding"
	PrimitiveSampling  PrimitiveID = "sampling"

	// Layer 1 - context memory.
	PrimitiveMemoryStore    PrimitiveID = "memory.store"
	PrimitiveMemoryRetrieve PrimitiveID = "memory.retrieve"
	PrimitiveMemoryUpdate   PrimitiveID = "memory.update"
	PrimitiveMemoryCompress PrimitiveID = "memory.compress"

	// Layer 2 - chain-of-thought.
	PrimitiveReasonChain   PrimitiveID = "reason.chain"
	PrimitiveReasonStep    PrimitiveID = "reason.step"
	PrimitiveContextRecall PrimitiveID = "context.recall"

	// Layer 3 - search and simulation.
	PrimitiveSearchTree      PrimitiveID = "search.tree"
	PrimitiveSearchMCTS      PrimitiveID = "search.mcts"
	PrimitiveSimulateRollout PrimitiveID = "simulate.rollout"

	// Layer 4 - judgement.
	PrimitiveJudgeVerdict   PrimitiveID = "judge.verdict"
	PrimitiveJudgeConsensus PrimitiveID = "judge.consensus"
	PrimitiveJudgeEvidence  PrimitiveID = "judge.evidence"

	// Layer 5 - self-improvement.
	PrimitiveEvolveRound   PrimitiveID = "evolve.round"
	PrimitiveEvolveLoop    PrimitiveID = "evolve.loop"
	PrimitiveKernelReflect PrimitiveID = "kernel.reflect"
)

// NumLayers is the number of ordinal primitive layers (0..NumLayers-1).
const NumLayers = 6

// catalogEntry is the immutable metadata of one primitive: its layer and the
// primitives it depends on. Invariant: every dependency sits on a strictly
// lower layer than its dependent.
type catalogEntry struct {
	layer        int
	dependencies []PrimitiveID
}

var catalog = map[PrimitiveID]catalogEntry{
	PrimitiveAttention: {layer: 0},
	PrimitiveEmbedding: {layer: 0},
	PrimitiveSampling:  {layer: 0},

	PrimitiveMemoryStore:    {layer: 1, dependencies: []PrimitiveID{PrimitiveEmbedding}},
	PrimitiveMemoryRetrieve: {layer: 1, dependencies: []PrimitiveID{PrimitiveEmbedding, PrimitiveAttention}},
	PrimitiveMemoryUpdate:   {layer: 1, dependencies: []PrimitiveID{PrimitiveEmbedding}},
	PrimitiveMemoryCompress: {layer: 1, dependencies: []PrimitiveID{PrimitiveAttention}},

	PrimitiveReasonChain:   {layer: 2, dependencies: []PrimitiveID{PrimitiveAttention, PrimitiveMemoryRetrieve}},
	PrimitiveReasonStep:    {layer: 2, dependencies: []PrimitiveID{PrimitiveAttention}},
	PrimitiveContextRecall: {layer: 2, dependencies: []PrimitiveID{PrimitiveMemoryRetrieve}},

	PrimitiveSearchTree:      {layer: 3, dependencies: []PrimitiveID{PrimitiveReasonChain, PrimitiveSampling}},
	PrimitiveSearchMCTS:      {layer: 3, dependencies: []PrimitiveID{PrimitiveSampling, PrimitiveReasonChain}},
	PrimitiveSimulateRollout: {layer: 3, dependencies: []PrimitiveID{PrimitiveSampling}},

	PrimitiveJudgeVerdict:   {layer: 4, dependencies: []PrimitiveID{PrimitiveReasonChain}},
	PrimitiveJudgeConsensus: {layer: 4, dependencies: []PrimitiveID{PrimitiveSearchTree, PrimitiveReasonChain}},
	PrimitiveJudgeEvidence:  {layer: 4, dependencies: []PrimitiveID{PrimitiveMemoryRetrieve}},

	PrimitiveEvolveRound:   {layer: 5, dependencies: []PrimitiveID{PrimitiveJudgeVerdict, PrimitiveSimulateRollout}},
	PrimitiveEvolveLoop:    {layer: 5, dependencies: []PrimitiveID{PrimitiveJudgeConsensus, PrimitiveSimulateRollout}},
	PrimitiveKernelReflect: {layer: 5, dependencies: []PrimitiveID{PrimitiveJudgeVerdict, PrimitiveMemoryRetrieve}},
}

// orderedIDs fixes a deterministic catalog order: ascending layer, then the
// declaration order within a layer. Initialization order and layer stats rely
// on this being stable.
var orderedIDs = []PrimitiveID{
	PrimitiveAttention,
	PrimitiveEmbedding,
	PrimitiveSampling,
	PrimitiveMemoryStore,
	PrimitiveMemoryRetrieve,
	PrimitiveMemoryUpdate,
	PrimitiveMemoryCompress,
	PrimitiveReasonChain,
	PrimitiveReasonStep,
	PrimitiveContextRecall,
	PrimitiveSearchTree,
	PrimitiveSearchMCTS,
	PrimitiveSimulateRollout,
	PrimitiveJudgeVerdict,
	PrimitiveJudgeConsensus,
	PrimitiveJudgeEvidence,
	PrimitiveEvolveRound,
	PrimitiveEvolveLoop,
	PrimitiveKernelReflect,
}

// AllPrimitiveIDs returns every catalog id in deterministic order (ascending
// layer, declaration order within a layer). The returned slice is a copy.
func AllPrimitiveIDs() []PrimitiveID {
	out := make([]PrimitiveID, len(orderedIDs))
	copy(out, orderedIDs)
	return out
}

// KnownPrimitive reports whether id exists in the static catalog.
func KnownPrimitive(id PrimitiveID) bool {
	_, ok := catalog[id]
	return ok
}

// LayerOf returns the catalog layer of id. The boolean is false for ids not
// present in the catalog.
func LayerOf(id PrimitiveID) (int, bool) {
	e, ok := catalog[id]
	return e.layer, ok
}

// DependenciesOf returns a copy of the statically declared dependencies of
// id, or nil for unknown ids.
func DependenciesOf(id PrimitiveID) []PrimitiveID {
	e, ok := catalog[id]
	if !ok || len(e.dependencies) == 0 {
		return nil
	}
	out := make([]PrimitiveID, len(e.dependencies))
	copy(out, e.dependencies)
	return out
}
