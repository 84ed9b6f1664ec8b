package reasoning

import (
	"fmt"
	"time"

	"github.com/hupe1980/agentkernel/core"
)

// Proposer generates n candidate problems at the given difficulty.
type Proposer func(difficulty float64, n int) []string

// Solver attempts a proposed problem and reports the achieved quality.
type Solver func(problem string, difficulty float64) Solution

// Solution is one solved (or attempted) problem with its quality in [0,1].
type Solution struct {
	Problem string  `json:"problem"`
	Answer  string  `json:"answer"`
	Quality float64 `json:"quality"`
}

// Round is the result of one self-play round. The round number is a
// monotonic per-engine counter.
type Round struct {
	Round            int        `json:"round"`
	ProposedProblems []string   `json:"proposed_problems"`
	Solutions        []Solution `json:"solutions"`
	AvgQuality       float64    `json:"avg_quality"`
	BestQuality      float64    `json:"best_quality"`
	Difficulty       float64    `json:"difficulty"`
	Timestamp        time.Time  `json:"timestamp"`
}

// DifficultySchedule controls how EvolveLoop adjusts difficulty per round.
type DifficultySchedule string

const (
	// ScheduleLinear adds a fixed step each round.
	ScheduleLinear DifficultySchedule = "linear"
	// ScheduleExponential multiplies by a growth factor each round.
	ScheduleExponential DifficultySchedule = "exponential"
	// ScheduleAdaptive raises difficulty after strong rounds and lowers it
	// after weak ones.
	ScheduleAdaptive DifficultySchedule = "adaptive"
)

// EvolveOptions refines Evolve. Zero values fall back to defaults
// (difficulty 0.5, 5 problems, internal heuristic proposer/solver).
type EvolveOptions struct {
	Difficulty  float64
	NumProblems int
	Proposer    Proposer
	Solver      Solver
}

// Evolve runs one evolutionary self-play round: the proposer generates
// candidate problems at the requested difficulty and the solver scores each
// with a quality value. The round is appended to the engine's history.
func (e *Engine) Evolve(opts EvolveOptions) Round {
	if opts.Difficulty <= 0 {
		opts.Difficulty = 0.5
	}
	if opts.NumProblems <= 0 {
		opts.NumProblems = 5
	}
	proposer := opts.Proposer
	if proposer == nil {
		proposer = defaultProposer
	}
	solver := opts.Solver
	if solver == nil {
		solver = e.defaultSolver()
	}

	problems := proposer(opts.Difficulty, opts.NumProblems)
	solutions := make([]Solution, 0, len(problems))
	qualitySum, best := 0.0, 0.0
	for _, p := range problems {
		sol := solver(p, opts.Difficulty)
		sol.Quality = clamp01(sol.Quality)
		qualitySum += sol.Quality
		if sol.Quality > best {
			best = sol.Quality
		}
		solutions = append(solutions, sol)
	}
	avg := 0.0
	if len(solutions) > 0 {
		avg = qualitySum / float64(len(solutions))
	}

	e.mu.Lock()
	e.roundCounter++
	round := Round{
		Round:            e.roundCounter,
		ProposedProblems: problems,
		Solutions:        solutions,
		AvgQuality:       avg,
		BestQuality:      best,
		Difficulty:       opts.Difficulty,
		Timestamp:        time.Now().UTC(),
	}
	e.rounds = append(e.rounds, round)
	e.totalEvolutions++
	e.mu.Unlock()

	e.emitter.Emit(core.EventEvolved, round)
	e.logger.Debug("evolution round completed", "round", round.Round, "avg_quality", avg)
	return round
}

// EvolveLoopOptions refines EvolveLoop. Zero values fall back to defaults
// (5 rounds, initial difficulty 0.3, linear schedule with step 0.1, growth
// rate 1.5).
type EvolveLoopOptions struct {
	MaxRounds          int
	InitialDifficulty  float64
	DifficultySchedule DifficultySchedule
	Step               float64
	GrowthRate         float64
	NumProblems        int
	Proposer           Proposer
	Solver             Solver
}

// EvolveLoop calls Evolve MaxRounds times, adjusting difficulty per the
// schedule, and returns the produced rounds in order.
func (e *Engine) EvolveLoop(opts EvolveLoopOptions) []Round {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 5
	}
	if opts.InitialDifficulty <= 0 {
		opts.InitialDifficulty = 0.3
	}
	if opts.DifficultySchedule == "" {
		opts.DifficultySchedule = ScheduleLinear
	}
	if opts.Step <= 0 {
		opts.Step = 0.1
	}
	if opts.GrowthRate <= 1 {
		opts.GrowthRate = 1.5
	}

	difficulty := clamp01(opts.InitialDifficulty)
	rounds := make([]Round, 0, opts.MaxRounds)
	for i := 0; i < opts.MaxRounds; i++ {
		round := e.Evolve(EvolveOptions{
			Difficulty:  difficulty,
			NumProblems: opts.NumProblems,
			Proposer:    opts.Proposer,
			Solver:      opts.Solver,
		})
		rounds = append(rounds, round)

		switch opts.DifficultySchedule {
		case ScheduleExponential:
			difficulty *= opts.GrowthRate
		case ScheduleAdaptive:
			if round.AvgQuality > 0.7 {
				difficulty *= 1.2
			} else if round.AvgQuality < 0.4 {
				difficulty *= 0.85
			} else {
				difficulty += opts.Step / 2
			}
		default:
			difficulty += opts.Step
		}
		if difficulty > 1 {
			difficulty = 1
		}
		if difficulty < 0.01 {
			difficulty = 0.01
		}
	}
	return rounds
}

// EvolutionHistory returns a copy of every round produced by this engine
// instance, in creation order.
func (e *Engine) EvolutionHistory() []Round {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Round, len(e.rounds))
	copy(out, e.rounds)
	return out
}

// defaultProposer synthesizes labelled problems at the given difficulty.
func defaultProposer(difficulty float64, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("self-play problem %d (difficulty %.2f)", i+1, difficulty)
	}
	return out
}

// defaultSolver reports quality inversely related to difficulty with small
// noise, so harder rounds score lower on average.
func (e *Engine) defaultSolver() Solver {
	return func(problem string, difficulty float64) Solution {
		quality := clamp01(0.95 - 0.5*difficulty + (e.random()-0.5)*0.2)
		return Solution{
			Problem: problem,
			Answer:  "heuristic solution for: " + problem,
			Quality: quality,
		}
	}
}
