// Package agentkernel provides a high-level façade over the primitive
// dispatch registry, the context memory unit and the reasoning engine,
// enabling rapid construction of AI-kernel backed agent systems. Most
// applications interact with this package by:
//  1. Creating an AgentKernel via New() (optionally overriding component options)
//  2. Registering any externally backed primitives (e.g. a model-backed attention)
//  3. Dispatching primitives through Call
//
// The façade binds built-in handlers for every memory and reasoning
// primitive in the catalog; layer-0 primitives default to local heuristics
// and are upgraded to model-backed handlers when a model.Model is supplied.
// All defaults are safe for local development and testing.
package agentkernel

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/kernel"
	"github.com/hupe1980/agentkernel/logging"
	"github.com/hupe1980/agentkernel/memory"
	"github.com/hupe1980/agentkernel/model"
	"github.com/hupe1980/agentkernel/reasoning"
)

// Options configures the AgentKernel instance.
type Options struct {
	// Component option overrides, applied in order.
	KernelOptions    []func(o *kernel.Options)
	MemoryOptions    []func(o *memory.Options)
	ReasoningOptions []func(o *reasoning.Options)

	// Model optionally backs the layer-0 primitives (attention, embedding,
	// sampling) with a real provider. When nil, deterministic local
	// heuristics are registered instead.
	Model model.Model

	// Logger (defaults to NoOp logger if nil) is propagated to every
	// component unless overridden per component.
	Logger logging.Logger
}

// AgentKernel is the high-level façade aggregating the dispatch registry,
// context memory unit and reasoning engine.
type AgentKernel struct {
	registry  *kernel.Registry
	memory    *memory.ContextUnit
	reasoning *reasoning.Engine
	opts      Options
}

// New creates a new AgentKernel with optional overrides and binds the
// built-in handlers for every catalog primitive.
func New(optFns ...func(o *Options)) (*AgentKernel, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	kernelOpts := append([]func(o *kernel.Options){func(o *kernel.Options) { o.Logger = opts.Logger }}, opts.KernelOptions...)
	memoryOpts := append([]func(o *memory.Options){func(o *memory.Options) { o.Logger = opts.Logger }}, opts.MemoryOptions...)
	reasoningOpts := append([]func(o *reasoning.Options){func(o *reasoning.Options) { o.Logger = opts.Logger }}, opts.ReasoningOptions...)

	ak := &AgentKernel{
		registry:  kernel.NewRegistry(kernelOpts...),
		memory:    memory.NewContextUnit(memoryOpts...),
		reasoning: reasoning.NewEngine(reasoningOpts...),
		opts:      opts,
	}
	if err := ak.registerBuiltins(); err != nil {
		return nil, err
	}
	return ak, nil
}

// Registry returns the underlying dispatch registry.
func (ak *AgentKernel) Registry() *kernel.Registry { return ak.registry }

// Memory returns the underlying context memory unit.
func (ak *AgentKernel) Memory() *memory.ContextUnit { return ak.memory }

// Reasoning returns the underlying reasoning engine.
func (ak *AgentKernel) Reasoning() *reasoning.Engine { return ak.reasoning }

// Call dispatches a primitive through the registry.
func (ak *AgentKernel) Call(ctx context.Context, id core.PrimitiveID, args core.Args) (any, error) {
	return ak.registry.Call(ctx, id, args)
}

// Start transitions every component to running. Idempotent.
func (ak *AgentKernel) Start() {
	ak.registry.Start()
	ak.memory.Start()
	ak.reasoning.Start()
}

// Stop transitions every component to stopped. Idempotent.
func (ak *AgentKernel) Stop() {
	ak.reasoning.Stop()
	ak.memory.Stop()
	ak.registry.Stop()
}

// registerBuiltins binds a handler for every catalog primitive. Layer-0
// primitives use the configured model when present, local heuristics
// otherwise.
func (ak *AgentKernel) registerBuiltins() error {
	handlers := map[core.PrimitiveID]core.Handler{
		core.PrimitiveAttention: ak.attentionHandler(),
		core.PrimitiveEmbedding: ak.embeddingHandler(),
		core.PrimitiveSampling:  ak.samplingHandler(),

		core.PrimitiveMemoryStore:    ak.memoryStoreHandler(),
		core.PrimitiveMemoryRetrieve: ak.memoryRetrieveHandler(memory.ScopeSTM),
		core.PrimitiveMemoryUpdate:   ak.memoryUpdateHandler(),
		core.PrimitiveMemoryCompress: func(context.Context, core.Args) (any, error) { return ak.memory.Compress(), nil },

		core.PrimitiveReasonChain:   ak.reasonChainHandler(),
		core.PrimitiveReasonStep:    ak.reasonStepHandler(),
		core.PrimitiveContextRecall: ak.memoryRetrieveHandler(memory.ScopeAll),

		core.PrimitiveSearchTree:      ak.searchHandler(""),
		core.PrimitiveSearchMCTS:      ak.searchHandler(reasoning.AlgorithmMCTS),
		core.PrimitiveSimulateRollout: ak.simulateHandler(),

		core.PrimitiveJudgeVerdict:   ak.judgeHandler(reasoning.ConsensusMajority),
		core.PrimitiveJudgeConsensus: ak.judgeHandler(reasoning.ConsensusWeighted),
		core.PrimitiveJudgeEvidence:  ak.evidenceHandler(),

		core.PrimitiveEvolveRound:   ak.evolveHandler(),
		core.PrimitiveEvolveLoop:    ak.evolveLoopHandler(),
		core.PrimitiveKernelReflect: ak.reflectHandler(),
	}
	for _, id := range core.AllPrimitiveIDs() {
		if err := ak.registry.Register(id, handlers[id]); err != nil {
			return fmt.Errorf("register builtins: %w", err)
		}
	}
	return nil
}

// -------------------- layer 0 --------------------

func (ak *AgentKernel) attentionHandler() core.Handler {
	if ak.opts.Model != nil {
		return model.HandlerFromModel(ak.opts.Model, func(args core.Args) model.Request {
			return model.Request{
				Instructions: "Identify the most salient span of the input.",
				Prompt:       args.String("prompt", args.String("input", "")),
			}
		})
	}
	// Local heuristic: the longest whitespace-separated token wins.
	return func(_ context.Context, args core.Args) (any, error) {
		input := args.String("input", args.String("prompt", ""))
		best := ""
		start := 0
		for i := 0; i <= len(input); i++ {
			if i == len(input) || input[i] == ' ' {
				if i-start > len(best) {
					best = input[start:i]
				}
				start = i + 1
			}
		}
		return best, nil
	}
}

func (ak *AgentKernel) embeddingHandler() core.Handler {
	if ak.opts.Model != nil {
		return model.HandlerFromModel(ak.opts.Model, func(args core.Args) model.Request {
			return model.Request{
				Instructions: "Summarize the input as a dense semantic sketch.",
				Prompt:       args.String("input", ""),
			}
		})
	}
	// Local heuristic: a small deterministic hash-derived vector.
	return func(_ context.Context, args core.Args) (any, error) {
		input := args.String("input", "")
		vec := make([]float64, 8)
		h := fnv.New64a()
		for i := range vec {
			h.Write([]byte(input))
			h.Write([]byte{byte(i)})
			vec[i] = float64(h.Sum64()%1000) / 999.0
		}
		return vec, nil
	}
}

func (ak *AgentKernel) samplingHandler() core.Handler {
	return func(_ context.Context, args core.Args) (any, error) {
		choices := args.Strings("choices")
		if len(choices) == 0 {
			return nil, fmt.Errorf("sampling: no choices provided")
		}
		h := fnv.New32a()
		for _, c := range choices {
			h.Write([]byte(c))
		}
		return choices[int(h.Sum32())%len(choices)], nil
	}
}

// -------------------- layer 1 --------------------

func (ak *AgentKernel) memoryStoreHandler() core.Handler {
	return func(_ context.Context, args core.Args) (any, error) {
		key := args.String("key", "")
		if key == "" {
			return nil, fmt.Errorf("memory.store: missing key")
		}
		opts := memory.StoreOptions{
			Scope: memory.Scope(args.String("scope", "")),
			Tags:  args.Strings("tags"),
		}
		if _, ok := args["importance"]; ok {
			imp := args.Float("importance", 0.5)
			opts.Importance = &imp
		}
		return ak.memory.Store(key, args["value"], opts), nil
	}
}

func (ak *AgentKernel) memoryRetrieveHandler(defaultScope memory.Scope) core.Handler {
	return func(_ context.Context, args core.Args) (any, error) {
		return ak.memory.Retrieve(args.String("query", ""), memory.RetrieveOptions{
			Scope: memory.Scope(args.String("scope", string(defaultScope))),
			Tags:  args.Strings("tags"),
			TopK:  args.Int("top_k", 0),
		}), nil
	}
}

func (ak *AgentKernel) memoryUpdateHandler() core.Handler {
	return func(_ context.Context, args core.Args) (any, error) {
		id := args.String("id", "")
		if id == "" {
			return nil, fmt.Errorf("memory.update: missing id")
		}
		if _, ok := args["reward"]; ok {
			return ak.memory.UpdateQValue(id, args.Float("reward", 0)), nil
		}
		return ak.memory.Update(id, args["value"]), nil
	}
}

// -------------------- layer 2 --------------------

func (ak *AgentKernel) reasonChainHandler() core.Handler {
	return func(_ context.Context, args core.Args) (any, error) {
		return ak.reasoning.Reason(args.String("problem", ""), reasoning.ReasonOptions{
			Strategy:        reasoning.Strategy(args.String("strategy", "")),
			Context:         args.String("context", ""),
			FewShotExamples: args.Strings("examples"),
			MaxSteps:        args.Int("max_steps", 0),
		}), nil
	}
}

func (ak *AgentKernel) reasonStepHandler() core.Handler {
	return func(_ context.Context, args core.Args) (any, error) {
		step := ak.reasoning.AddStep(
			args.String("chain_id", ""),
			args.String("content", ""),
			reasoning.StepType(args.String("type", string(reasoning.StepDeduction))),
		)
		if step == nil {
			return nil, fmt.Errorf("reason.step: unknown chain %q", args.String("chain_id", ""))
		}
		return step, nil
	}
}

// -------------------- layer 3 --------------------

func (ak *AgentKernel) searchHandler(algorithm reasoning.Algorithm) core.Handler {
	return func(_ context.Context, args core.Args) (any, error) {
		evaluator, _ := args["evaluator"].(reasoning.Evaluator)
		if evaluator == nil {
			evaluator = hashEvaluator
		}
		expand, _ := args["expand"].(reasoning.Expander)
		algo := algorithm
		if algo == "" {
			algo = reasoning.Algorithm(args.String("algorithm", ""))
		}
		return ak.reasoning.Search(args.String("problem", ""), evaluator, reasoning.SearchOptions{
			Algorithm: algo,
			MaxNodes:  args.Int("max_nodes", 0),
			MaxDepth:  args.Int("max_depth", 0),
			BeamWidth: args.Int("beam_width", 0),
			Expand:    expand,
		}), nil
	}
}

func (ak *AgentKernel) simulateHandler() core.Handler {
	return func(_ context.Context, args core.Args) (any, error) {
		transition, _ := args["transition"].(reasoning.Transition)
		if transition == nil {
			transition = defaultTransition
		}
		initial := reasoning.SimState{
			Label:  args.String("initial_state", "start"),
			Reward: args.Float("initial_reward", 0),
		}
		return ak.reasoning.Simulate(initial, transition, reasoning.SimulateOptions{
			NumTrajectories: args.Int("num_trajectories", 0),
			MaxSteps:        args.Int("max_steps", 0),
		}), nil
	}
}

// -------------------- layer 4 --------------------

func (ak *AgentKernel) judgeHandler(defaultMethod reasoning.ConsensusMethod) core.Handler {
	return func(_ context.Context, args core.Args) (any, error) {
		return ak.reasoning.Judge(args.String("output", ""), args.Strings("categories"), reasoning.JudgeOptions{
			NumJudges:       args.Int("num_judges", 0),
			ConsensusMethod: reasoning.ConsensusMethod(args.String("consensus_method", string(defaultMethod))),
			PassThreshold:   args.Float("pass_threshold", 0),
		}), nil
	}
}

func (ak *AgentKernel) evidenceHandler() core.Handler {
	return func(_ context.Context, args core.Args) (any, error) {
		return ak.reasoning.AddEvidence(args.String("verdict_id", ""), args.String("evidence", "")), nil
	}
}

// -------------------- layer 5 --------------------

func (ak *AgentKernel) evolveHandler() core.Handler {
	return func(_ context.Context, args core.Args) (any, error) {
		return ak.reasoning.Evolve(reasoning.EvolveOptions{
			Difficulty:  args.Float("difficulty", 0),
			NumProblems: args.Int("num_problems", 0),
		}), nil
	}
}

func (ak *AgentKernel) evolveLoopHandler() core.Handler {
	return func(_ context.Context, args core.Args) (any, error) {
		return ak.reasoning.EvolveLoop(reasoning.EvolveLoopOptions{
			MaxRounds:          args.Int("max_rounds", 0),
			InitialDifficulty:  args.Float("initial_difficulty", 0),
			DifficultySchedule: reasoning.DifficultySchedule(args.String("difficulty_schedule", "")),
			NumProblems:        args.Int("num_problems", 0),
		}), nil
	}
}

// reflectHandler judges an output and persists the verdict summary to
// memory, closing the loop between judgement and context.
func (ak *AgentKernel) reflectHandler() core.Handler {
	return func(_ context.Context, args core.Args) (any, error) {
		output := args.String("output", "")
		verdict := ak.reasoning.Judge(output, args.Strings("categories"), reasoning.JudgeOptions{})
		importance := verdict.OverallScore
		ak.memory.Store("reflection:"+verdict.ID, fmt.Sprintf("overall %.2f, consensus %.2f for: %s", verdict.OverallScore, verdict.Consensus, output), memory.StoreOptions{
			Tags:       []string{"reflection"},
			Importance: &importance,
		})
		return verdict, nil
	}
}

// hashEvaluator scores a state deterministically in [0,1].
func hashEvaluator(state string) float64 {
	h := fnv.New32a()
	h.Write([]byte(state))
	return float64(h.Sum32()%1000) / 999.0
}

// defaultTransition derives two successor states per state with
// deterministic hash-based rewards.
func defaultTransition(state reasoning.SimState) []reasoning.SimState {
	out := make([]reasoning.SimState, 2)
	for i := range out {
		label := fmt.Sprintf("%s/%d", state.Label, i+1)
		out[i] = reasoning.SimState{Label: label, Reward: hashEvaluator(label)}
	}
	return out
}
