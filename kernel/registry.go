package kernel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/logging"
)

// Options configures a Registry.
type Options struct {
	// MaxConcurrency caps simultaneous in-flight handler executions across
	// all primitives. Acquisition is fail-fast; calls never queue.
	// Defaults to 10.
	MaxConcurrency int
	// CallTimeout is the per-call budget before a dispatch fails with
	// ErrTimeout. Defaults to 30s.
	CallTimeout time.Duration
	// MaxCallHistory bounds the call record ring buffer. Defaults to 100.
	MaxCallHistory int
	// DetachedHandlers preserves fire-and-forget timeout behavior: a timed
	// out handler keeps running with an uncancelled context and its eventual
	// outcome is discarded. When false (the default) the handler's context
	// is cancelled as soon as the timeout fires.
	DetachedHandlers bool
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Registration is the mutable binding of a handler to a primitive id.
// Counters cover every dispatch attempt against the primitive.
type Registration struct {
	ID            core.PrimitiveID   `json:"id"`
	Layer         int                `json:"layer"`
	Dependencies  []core.PrimitiveID `json:"dependencies,omitempty"`
	Enabled       bool               `json:"enabled"`
	CallCount     int64              `json:"call_count"`
	ErrorCount    int64              `json:"error_count"`
	TotalDuration time.Duration      `json:"total_duration"`
	RegisteredAt  time.Time          `json:"registered_at"`

	handler core.Handler
}

// CallRecord is one dispatch attempt, appended to the bounded history.
type CallRecord struct {
	Primitive core.PrimitiveID `json:"primitive"`
	Success   bool             `json:"success"`
	Duration  time.Duration    `json:"duration"`
	Timestamp time.Time        `json:"timestamp"`
}

// Budget aggregates dispatch attempts across the registry's lifetime.
type Budget struct {
	TotalCalls       int64                      `json:"total_calls"`
	CallsByPrimitive map[core.PrimitiveID]int64 `json:"calls_by_primitive"`
}

// Stats is a point-in-time snapshot of the registry.
type Stats struct {
	Running              bool          `json:"running"`
	RegisteredPrimitives int           `json:"registered_primitives"`
	EnabledPrimitives    int           `json:"enabled_primitives"`
	TotalCalls           int64         `json:"total_calls"`
	TotalErrors          int64         `json:"total_errors"`
	ErrorRate            float64       `json:"error_rate"`
	AvgCallDuration      time.Duration `json:"avg_call_duration"`
	CallHistory          []CallRecord  `json:"call_history"`
}

// LayerStat summarizes one catalog layer. All six layers are always
// reported, registered or not.
type LayerStat struct {
	RegisteredCount int   `json:"registered_count"`
	TotalCalls      int64 `json:"total_calls"`
}

// MissingDependency names a registered primitive whose statically declared
// dependencies are not all registered.
type MissingDependency struct {
	Primitive core.PrimitiveID   `json:"primitive"`
	Missing   []core.PrimitiveID `json:"missing"`
}

// ValidationResult is the outcome of ValidateDependencies.
type ValidationResult struct {
	Valid               bool                `json:"valid"`
	MissingDependencies []MissingDependency `json:"missing_dependencies"`
}

// CallEvent is the payload of primitive:called and primitive:completed.
type CallEvent struct {
	Primitive core.PrimitiveID `json:"primitive"`
	Duration  time.Duration    `json:"duration,omitempty"`
}

// ErrorEvent is the payload of primitive:error.
type ErrorEvent struct {
	Primitive core.PrimitiveID `json:"primitive"`
	Message   string           `json:"message"`
}

// Registry is the dispatch gateway. Safe for concurrent use; only Call
// suspends (awaiting the bound handler).
type Registry struct {
	mu         sync.RWMutex
	opts       Options
	primitives map[core.PrimitiveID]*Registration
	sem        *semaphore.Weighted
	emitter    *core.Emitter
	logger     logging.Logger
	running    bool

	history       []CallRecord
	budget        Budget
	totalCalls    int64
	totalErrors   int64
	totalDuration time.Duration
}

// NewRegistry creates a registry with optional overrides.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	opts := Options{
		MaxConcurrency: 10,
		CallTimeout:    30 * time.Second,
		MaxCallHistory: 100,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 10
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 30 * time.Second
	}
	if opts.MaxCallHistory <= 0 {
		opts.MaxCallHistory = 100
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Registry{
		opts:       opts,
		primitives: make(map[core.PrimitiveID]*Registration),
		sem:        semaphore.NewWeighted(int64(opts.MaxConcurrency)),
		emitter:    core.NewEmitter(),
		logger:     opts.Logger,
		budget:     Budget{CallsByPrimitive: make(map[core.PrimitiveID]int64)},
	}
}

// Subscribe registers a listener for one of the registry's events and
// returns an unsubscribe function.
func (r *Registry) Subscribe(event string, fn core.Listener) func() {
	return r.emitter.Subscribe(event, fn)
}

// Start marks the registry running. Idempotent.
func (r *Registry) Start() {
	r.mu.Lock()
	already := r.running
	r.running = true
	r.mu.Unlock()
	if !already {
		r.emitter.Emit(core.EventStarted, nil)
	}
}

// Stop marks the registry stopped. Idempotent; registrations survive.
func (r *Registry) Stop() {
	r.mu.Lock()
	wasRunning := r.running
	r.running = false
	r.mu.Unlock()
	if wasRunning {
		r.emitter.Emit(core.EventStopped, nil)
	}
}

// Register binds a handler to a catalog primitive id. Layer and dependency
// metadata are assigned from the static catalog; counters start at zero and
// the registration defaults to enabled.
func (r *Registry) Register(id core.PrimitiveID, handler core.Handler) error {
	layer, ok := core.LayerOf(id)
	if !ok {
		return fmt.Errorf("register %q: %w", id, core.ErrUnknownPrimitive)
	}
	if handler == nil {
		return fmt.Errorf("register %q: nil handler", id)
	}

	r.mu.Lock()
	if _, exists := r.primitives[id]; exists {
		r.mu.Unlock()
		return fmt.Errorf("register %q: %w", id, core.ErrDuplicateRegistration)
	}
	r.primitives[id] = &Registration{
		ID:           id,
		Layer:        layer,
		Dependencies: core.DependenciesOf(id),
		Enabled:      true,
		RegisteredAt: time.Now().UTC(),
		handler:      handler,
	}
	r.mu.Unlock()

	r.emitter.Emit(core.EventPrimitiveRegistered, CallEvent{Primitive: id})
	r.logger.Debug("primitive registered", "primitive", string(id), "layer", layer)
	return nil
}

// Unregister removes a binding. Returns false if the id was not bound.
func (r *Registry) Unregister(id core.PrimitiveID) bool {
	r.mu.Lock()
	_, exists := r.primitives[id]
	delete(r.primitives, id)
	r.mu.Unlock()
	if exists {
		r.emitter.Emit(core.EventPrimitiveUnregistered, CallEvent{Primitive: id})
	}
	return exists
}

// SetEnabled toggles dispatch eligibility for a registered primitive.
func (r *Registry) SetEnabled(id core.PrimitiveID, enabled bool) error {
	r.mu.Lock()
	reg, ok := r.primitives[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("set enabled %q: %w", id, core.ErrNotRegistered)
	}
	changed := reg.Enabled != enabled
	reg.Enabled = enabled
	r.mu.Unlock()

	if changed {
		event := core.EventPrimitiveEnabled
		if !enabled {
			event = core.EventPrimitiveDisabled
		}
		r.emitter.Emit(event, CallEvent{Primitive: id})
	}
	return nil
}

// callOutcome carries a settled handler invocation.
type callOutcome struct {
	result any
	err    error
}

// Call dispatches args to the handler bound to id, enforcing policy around
// the invocation: registration and enablement checks, a fail-fast permit
// from the registry-wide pool, and a race against the call timeout. Metrics
// and the call history are updated for every attempt, including failures.
func (r *Registry) Call(ctx context.Context, id core.PrimitiveID, args core.Args) (any, error) {
	r.mu.RLock()
	reg, ok := r.primitives[id]
	if !ok {
		r.mu.RUnlock()
		return nil, fmt.Errorf("call %q: %w", id, core.ErrNotRegistered)
	}
	if !reg.Enabled {
		r.mu.RUnlock()
		return nil, fmt.Errorf("call %q: %w", id, core.ErrDisabled)
	}
	handler := reg.handler
	r.mu.RUnlock()

	if !r.sem.TryAcquire(1) {
		return nil, fmt.Errorf("call %q: %w", id, core.ErrConcurrencyLimit)
	}
	defer r.sem.Release(1)

	r.emitter.Emit(core.EventPrimitiveCalled, CallEvent{Primitive: id})

	callCtx := ctx
	if r.opts.DetachedHandlers {
		callCtx = context.WithoutCancel(ctx)
	} else {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.opts.CallTimeout)
		defer cancel()
	}

	done := make(chan callOutcome, 1)
	start := time.Now()
	go func() {
		result, err := handler(callCtx, args)
		done <- callOutcome{result: result, err: err}
	}()

	timer := time.NewTimer(r.opts.CallTimeout)
	defer timer.Stop()

	select {
	case out := <-done:
		dur := time.Since(start)
		if out.err != nil {
			r.record(id, dur, false)
			herr := &core.HandlerError{Primitive: id, Err: out.err}
			r.emitter.Emit(core.EventPrimitiveError, ErrorEvent{Primitive: id, Message: herr.Error()})
			r.logger.Warn("primitive call failed", "primitive", string(id), "error", out.err.Error())
			return nil, herr
		}
		r.record(id, dur, true)
		r.emitter.Emit(core.EventPrimitiveCompleted, CallEvent{Primitive: id, Duration: dur})
		return out.result, nil
	case <-timer.C:
		dur := time.Since(start)
		r.record(id, dur, false)
		err := fmt.Errorf("call %q: %w after %s", id, core.ErrTimeout, r.opts.CallTimeout)
		r.emitter.Emit(core.EventPrimitiveError, ErrorEvent{Primitive: id, Message: err.Error()})
		r.logger.Warn("primitive call timed out", "primitive", string(id), "timeout", r.opts.CallTimeout)
		return nil, err
	}
}

// record updates the registration counters, registry totals, budget and the
// bounded call history for one settled attempt.
func (r *Registry) record(id core.PrimitiveID, dur time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if reg, ok := r.primitives[id]; ok {
		reg.CallCount++
		reg.TotalDuration += dur
		if !success {
			reg.ErrorCount++
		}
	}
	r.totalCalls++
	r.totalDuration += dur
	if !success {
		r.totalErrors++
	}
	r.budget.TotalCalls++
	r.budget.CallsByPrimitive[id]++

	r.history = append(r.history, CallRecord{
		Primitive: id,
		Success:   success,
		Duration:  dur,
		Timestamp: time.Now().UTC(),
	})
	if len(r.history) > r.opts.MaxCallHistory {
		r.history = r.history[len(r.history)-r.opts.MaxCallHistory:]
	}
}

// GetRegistration returns a copy of the binding for id. The boolean is false
// when the id is not bound.
func (r *Registry) GetRegistration(id core.PrimitiveID) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.primitives[id]
	if !ok {
		return Registration{}, false
	}
	snapshot := *reg
	snapshot.handler = nil
	snapshot.Dependencies = append([]core.PrimitiveID{}, reg.Dependencies...)
	return snapshot, true
}

// ValidateDependencies checks, for every registered primitive, that each of
// its statically declared dependencies is also registered.
func (r *Registry) ValidateDependencies() ValidationResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := ValidationResult{Valid: true}
	for _, id := range core.AllPrimitiveIDs() {
		reg, ok := r.primitives[id]
		if !ok {
			continue
		}
		var missing []core.PrimitiveID
		for _, dep := range reg.Dependencies {
			if _, ok := r.primitives[dep]; !ok {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			result.Valid = false
			result.MissingDependencies = append(result.MissingDependencies, MissingDependency{
				Primitive: id,
				Missing:   missing,
			})
		}
	}
	return result
}

// InitializationOrder returns the registered primitives ordered so that
// lower layers precede higher layers and every registered dependency
// precedes its dependent. The order is stable: within a layer the catalog's
// declaration order is preserved.
func (r *Registry) InitializationOrder() []core.PrimitiveID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// The catalog order already ascends by layer, and every dependency sits
	// on a strictly lower layer, so filtering it is a stable topological
	// sort.
	var order []core.PrimitiveID
	for _, id := range core.AllPrimitiveIDs() {
		if _, ok := r.primitives[id]; ok {
			order = append(order, id)
		}
	}
	return order
}

// LayerStats reports registration and call counts for all six catalog
// layers, independent of whether any primitive in a layer is registered.
func (r *Registry) LayerStats() map[int]LayerStat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[int]LayerStat, core.NumLayers)
	for layer := 0; layer < core.NumLayers; layer++ {
		stats[layer] = LayerStat{}
	}
	for _, reg := range r.primitives {
		s := stats[reg.Layer]
		s.RegisteredCount++
		s.TotalCalls += reg.CallCount
		stats[reg.Layer] = s
	}
	return stats
}

// GetStats returns a snapshot of the registry's aggregate metrics including
// a copy of the bounded call history.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	enabled := 0
	for _, reg := range r.primitives {
		if reg.Enabled {
			enabled++
		}
	}
	errorRate := 0.0
	avgDur := time.Duration(0)
	if r.totalCalls > 0 {
		errorRate = float64(r.totalErrors) / float64(r.totalCalls)
		avgDur = r.totalDuration / time.Duration(r.totalCalls)
	}
	history := make([]CallRecord, len(r.history))
	copy(history, r.history)
	return Stats{
		Running:              r.running,
		RegisteredPrimitives: len(r.primitives),
		EnabledPrimitives:    enabled,
		TotalCalls:           r.totalCalls,
		TotalErrors:          r.totalErrors,
		ErrorRate:            errorRate,
		AvgCallDuration:      avgDur,
		CallHistory:          history,
	}
}

// GetBudget returns a copy of the aggregate call budget.
func (r *Registry) GetBudget() Budget {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byPrimitive := make(map[core.PrimitiveID]int64, len(r.budget.CallsByPrimitive))
	for k, v := range r.budget.CallsByPrimitive {
		byPrimitive[k] = v
	}
	return Budget{TotalCalls: r.budget.TotalCalls, CallsByPrimitive: byPrimitive}
}
