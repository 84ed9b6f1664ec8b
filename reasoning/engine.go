package reasoning

import (
	"math/rand"
	"sync"
	"time"

	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/logging"
)

// Options configures an Engine.
type Options struct {
	// RandSeed seeds the engine's internal randomness (judge scoring noise,
	// rollout selection). Zero selects a time-based seed.
	RandSeed int64
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Engine owns the per-instance result stores for every reasoning mode. All
// methods are safe for concurrent use; the engine performs no I/O and never
// suspends.
type Engine struct {
	mu      sync.Mutex
	opts    Options
	rng     *rand.Rand
	emitter *core.Emitter
	logger  logging.Logger
	running bool

	chains   map[string]*Chain
	trees    map[string]*Tree
	sims     map[string]*SimulationRun
	verdicts map[string]*Verdict
	rounds   []Round

	roundCounter     int
	totalSearches    int64
	totalSearchNodes int64
	totalSims        int64
	totalJudgements  int64
	totalEvolutions  int64
}

// NewEngine creates a reasoning engine with optional overrides.
func NewEngine(optFns ...func(o *Options)) *Engine {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		opts:     opts,
		rng:      rand.New(rand.NewSource(seed)),
		emitter:  core.NewEmitter(),
		logger:   opts.Logger,
		chains:   make(map[string]*Chain),
		trees:    make(map[string]*Tree),
		sims:     make(map[string]*SimulationRun),
		verdicts: make(map[string]*Verdict),
	}
}

// Subscribe registers a listener for one of the engine's events (started,
// stopped, completed, searched, simulated, judged, evolved) and returns an
// unsubscribe function.
func (e *Engine) Subscribe(event string, fn core.Listener) func() {
	return e.emitter.Subscribe(event, fn)
}

// Start marks the engine running. Idempotent.
func (e *Engine) Start() {
	e.mu.Lock()
	already := e.running
	e.running = true
	e.mu.Unlock()
	if !already {
		e.emitter.Emit(core.EventStarted, nil)
	}
}

// Stop marks the engine stopped. Idempotent; result stores survive.
func (e *Engine) Stop() {
	e.mu.Lock()
	wasRunning := e.running
	e.running = false
	e.mu.Unlock()
	if wasRunning {
		e.emitter.Emit(core.EventStopped, nil)
	}
}

// random returns a pseudo-random float in [0,1) under the engine lock.
func (e *Engine) random() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

// randomIntn returns a pseudo-random int in [0,n) under the engine lock.
func (e *Engine) randomIntn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Intn(n)
}

// Stats is a point-in-time aggregate over every stored result.
type Stats struct {
	Running          bool    `json:"running"`
	TotalChains      int     `json:"total_chains"`
	TotalSteps       int     `json:"total_steps"`
	TotalSearches    int64   `json:"total_searches"`
	AvgSearchNodes   float64 `json:"avg_search_nodes"`
	TotalSimulations int64   `json:"total_simulations"`
	TotalJudgements  int64   `json:"total_judgements"`
	TotalEvolutions  int64   `json:"total_evolutions"`
	AvgConfidence    float64 `json:"avg_confidence"`
}

// GetStats aggregates counters across all stored chains, searches,
// simulations, judgements and evolution rounds.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	steps := 0
	confSum := 0.0
	for _, c := range e.chains {
		steps += len(c.Steps)
		for _, s := range c.Steps {
			confSum += s.Confidence
		}
	}
	avgConf := 0.0
	if steps > 0 {
		avgConf = confSum / float64(steps)
	}
	avgNodes := 0.0
	if e.totalSearches > 0 {
		avgNodes = float64(e.totalSearchNodes) / float64(e.totalSearches)
	}
	return Stats{
		Running:          e.running,
		TotalChains:      len(e.chains),
		TotalSteps:       steps,
		TotalSearches:    e.totalSearches,
		AvgSearchNodes:   avgNodes,
		TotalSimulations: e.totalSims,
		TotalJudgements:  e.totalJudgements,
		TotalEvolutions:  e.totalEvolutions,
		AvgConfidence:    avgConf,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
