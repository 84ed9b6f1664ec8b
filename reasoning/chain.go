package reasoning

import (
	"fmt"
	"time"

	"github.com/hupe1980/agentkernel/core"
)

// StepType classifies one inference within a chain.
type StepType string

const (
	// StepEvidence records an observed fact or supplied example.
	StepEvidence StepType = "evidence"
	// StepHypothesis records a candidate line of reasoning.
	StepHypothesis StepType = "hypothesis"
	// StepDeduction records an inference drawn from prior steps.
	StepDeduction StepType = "deduction"
	// StepConclusion records the final synthesized answer.
	StepConclusion StepType = "conclusion"
)

// Strategy selects how Reason builds a chain.
type Strategy string

const (
	// StrategyZeroShot builds context (optional), deduction, conclusion.
	StrategyZeroShot Strategy = "zero-shot"
	// StrategyFewShot builds one evidence step per example, then deduction
	// and conclusion.
	StrategyFewShot Strategy = "few-shot"
	// StrategySelfConsistency samples several hypotheses and synthesizes one
	// conclusion.
	StrategySelfConsistency Strategy = "self-consistency"
	// StrategyLeastToMost decomposes into intermediate deductions whose last
	// step is always a conclusion.
	StrategyLeastToMost Strategy = "least-to-most"
)

// Step is one immutable inference. ParentID links to the previously added
// step so a chain reads as an ordered list and a parent chain at once.
type Step struct {
	ID         string    `json:"id"`
	ParentID   string    `json:"parent_id,omitempty"`
	Type       StepType  `json:"type"`
	Content    string    `json:"content"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Chain is one chain-of-thought session. Steps are append-only and ordered
// by creation.
type Chain struct {
	ID        string    `json:"id"`
	Problem   string    `json:"problem"`
	Strategy  Strategy  `json:"strategy"`
	Steps     []Step    `json:"steps"`
	CreatedAt time.Time `json:"created_at"`
}

// ReasonOptions refines Reason. Zero values fall back to defaults
// (zero-shot, no context, MaxSteps 10).
type ReasonOptions struct {
	Strategy        Strategy
	Context         string
	FewShotExamples []string
	MaxSteps        int
}

// Reason builds an ordered reasoning chain for the problem using the
// selected strategy and stores it for later extension via AddStep.
func (e *Engine) Reason(problem string, opts ReasonOptions) *Chain {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategyZeroShot
	}
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 10
	}

	chain := &Chain{
		ID:        core.NewID(),
		Problem:   problem,
		Strategy:  strategy,
		CreatedAt: time.Now().UTC(),
	}

	switch strategy {
	case StrategyFewShot:
		for i, ex := range opts.FewShotExamples {
			appendStep(chain, StepEvidence, fmt.Sprintf("example %d: %s", i+1, ex), 0.8)
		}
		appendStep(chain, StepDeduction, "applying the example patterns to: "+problem, 0.7)
		appendConclusion(chain, problem)
	case StrategySelfConsistency:
		paths := 3
		if maxSteps < 4 {
			paths = maxSteps - 1
			if paths < 1 {
				paths = 1
			}
		}
		for i := 0; i < paths; i++ {
			conf := 0.5 + 0.1*float64(i%3)
			appendStep(chain, StepHypothesis, fmt.Sprintf("independent path %d for: %s", i+1, problem), conf)
		}
		appendConclusion(chain, problem)
	case StrategyLeastToMost:
		sub := maxSteps - 1
		if sub < 1 {
			sub = 1
		}
		if sub > 4 {
			sub = 4
		}
		for i := 0; i < sub; i++ {
			appendStep(chain, StepDeduction, fmt.Sprintf("subproblem %d of %d: %s", i+1, sub, problem), 0.65+0.05*float64(i))
		}
		appendConclusion(chain, problem)
	default: // zero-shot
		if opts.Context != "" {
			appendStep(chain, StepEvidence, "context: "+opts.Context, 0.9)
		}
		appendStep(chain, StepDeduction, "direct analysis of: "+problem, 0.7)
		appendConclusion(chain, problem)
	}

	e.mu.Lock()
	e.chains[chain.ID] = chain
	snapshot := *chain
	e.mu.Unlock()

	e.emitter.Emit(core.EventCompleted, snapshot)
	e.logger.Debug("reasoning chain built", "strategy", string(strategy), "steps", len(chain.Steps))
	return &snapshot
}

// AddStep appends a step to an existing chain, linked to its current last
// step. Returns nil for an unknown chain id.
func (e *Engine) AddStep(chainID, content string, stepType StepType) *Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	chain, ok := e.chains[chainID]
	if !ok {
		return nil
	}
	appendStep(chain, stepType, content, 0.7)
	step := chain.Steps[len(chain.Steps)-1]
	return &step
}

// GetChain returns a copy of the stored chain, or nil when unknown.
func (e *Engine) GetChain(chainID string) *Chain {
	e.mu.Lock()
	defer e.mu.Unlock()
	chain, ok := e.chains[chainID]
	if !ok {
		return nil
	}
	snapshot := *chain
	snapshot.Steps = append([]Step{}, chain.Steps...)
	return &snapshot
}

// appendStep links a new step to the chain's current tail.
func appendStep(chain *Chain, t StepType, content string, confidence float64) {
	parent := ""
	if n := len(chain.Steps); n > 0 {
		parent = chain.Steps[n-1].ID
	}
	chain.Steps = append(chain.Steps, Step{
		ID:         core.NewID(),
		ParentID:   parent,
		Type:       t,
		Content:    content,
		Confidence: clamp01(confidence),
		Timestamp:  time.Now().UTC(),
	})
}

// appendConclusion synthesizes the final step; its confidence is the mean of
// the prior steps' confidences.
func appendConclusion(chain *Chain, problem string) {
	sum := 0.0
	for _, s := range chain.Steps {
		sum += s.Confidence
	}
	conf := 0.6
	if n := len(chain.Steps); n > 0 {
		conf = sum / float64(n)
	}
	appendStep(chain, StepConclusion, "conclusion for: "+problem, conf)
}
