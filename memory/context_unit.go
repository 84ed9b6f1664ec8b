package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/logging"
)

// Scope identifies which store an entry lives in.
type Scope string

const (
	// ScopeSTM is the small, volatile short-term store.
	ScopeSTM Scope = "stm"
	// ScopeLTM is the larger, semi-permanent long-term store.
	ScopeLTM Scope = "ltm"
	// ScopeAll addresses both stores in retrieval and clearing.
	ScopeAll Scope = "all"
)

// Entry is one context item. QValue is always clamped to [0,1] and estimates
// the entry's retained utility; it starts at the stored importance and is
// adjusted by UpdateQValue.
type Entry struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Value       any       `json:"value"`
	Scope       Scope     `json:"scope"`
	Tags        []string  `json:"tags,omitempty"`
	Importance  float64   `json:"importance"`
	QValue      float64   `json:"q_value"`
	AccessCount int       `json:"access_count"`
	CreatedAt   time.Time `json:"created_at"`

	seq uint64 // insertion sequence, breaks eviction ties (oldest first)
}

// KnowledgeBlock is the compressed summary produced by Compress. It
// references exactly the entries it consumed and is never mutated afterward.
type KnowledgeBlock struct {
	ID        string    `json:"id"`
	SourceIDs []string  `json:"source_ids"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats is a point-in-time snapshot of the unit's counters.
type Stats struct {
	Running         bool    `json:"running"`
	STMSize         int     `json:"stm_size"`
	LTMSize         int     `json:"ltm_size"`
	STMCapacity     int     `json:"stm_capacity"`
	LTMCapacity     int     `json:"ltm_capacity"`
	TotalStored     int64   `json:"total_stored"`
	TotalRetrieved  int64   `json:"total_retrieved"`
	TotalCompressed int64   `json:"total_compressed"`
	AvgQValue       float64 `json:"avg_q_value"`
}

// Options configures a ContextUnit.
type Options struct {
	// STMCapacity caps the short-term store. Defaults to 50.
	STMCapacity int
	// LTMCapacity caps the long-term store. Defaults to 500.
	LTMCapacity int
	// PromotionQThreshold is the Q-value at which an STM entry is
	// auto-promoted to LTM by UpdateQValue. Defaults to 0.8.
	PromotionQThreshold float64
	// QLearningRate is the step size of the Q-value update rule
	// q <- q + rate*(reward - q). Defaults to 0.1.
	QLearningRate float64
	// EnableSemanticIndex gates SearchIndex; when false the index returns
	// no results. Defaults to true.
	EnableSemanticIndex bool
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// ContextUnit owns the STM and LTM stores. Safe for concurrent use.
type ContextUnit struct {
	mu      sync.RWMutex
	opts    Options
	stm     map[string]*Entry // id -> entry
	ltm     map[string]*Entry
	blocks  []KnowledgeBlock
	emitter *core.Emitter
	logger  logging.Logger
	running bool
	seq     uint64

	totalStored     int64
	totalRetrieved  int64
	totalCompressed int64
}

// NewContextUnit creates a context memory unit with optional overrides.
func NewContextUnit(optFns ...func(o *Options)) *ContextUnit {
	opts := Options{
		STMCapacity:         50,
		LTMCapacity:         500,
		PromotionQThreshold: 0.8,
		QLearningRate:       0.1,
		EnableSemanticIndex: true,
		Logger:              logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &ContextUnit{
		opts:    opts,
		stm:     make(map[string]*Entry),
		ltm:     make(map[string]*Entry),
		emitter: core.NewEmitter(),
		logger:  opts.Logger,
	}
}

// Subscribe registers a listener for one of the unit's events (started,
// stopped, stored, compressed) and returns an unsubscribe function.
func (u *ContextUnit) Subscribe(event string, fn core.Listener) func() {
	return u.emitter.Subscribe(event, fn)
}

// Start marks the unit running. Idempotent.
func (u *ContextUnit) Start() {
	u.mu.Lock()
	already := u.running
	u.running = true
	u.mu.Unlock()
	if !already {
		u.emitter.Emit(core.EventStarted, nil)
	}
}

// Stop marks the unit stopped. Idempotent; stored entries survive.
func (u *ContextUnit) Stop() {
	u.mu.Lock()
	wasRunning := u.running
	u.running = false
	u.mu.Unlock()
	if wasRunning {
		u.emitter.Emit(core.EventStopped, nil)
	}
}

// StoreOptions refines Store. Zero values fall back to defaults (STM scope,
// importance 0.5).
type StoreOptions struct {
	Scope      Scope
	Tags       []string
	Importance *float64
}

// Store inserts or updates an entry. If an entry with the same key already
// exists in the target scope its value is replaced in place and its access
// count incremented. Otherwise a new entry is created with qValue equal to
// the importance; when the scope is at capacity the lowest-qValue entry
// (oldest first on ties) is evicted before insertion.
func (u *ContextUnit) Store(key string, value any, opts StoreOptions) Entry {
	scope := opts.Scope
	if scope == "" || scope == ScopeAll {
		scope = ScopeSTM
	}
	importance := 0.5
	if opts.Importance != nil {
		importance = clamp01(*opts.Importance)
	}

	u.mu.Lock()
	store := u.storeFor(scope)

	if existing := findByKey(store, key); existing != nil {
		existing.Value = value
		existing.AccessCount++
		if len(opts.Tags) > 0 {
			existing.Tags = append([]string{}, opts.Tags...)
		}
		snapshot := *existing
		u.totalStored++
		u.mu.Unlock()
		u.emitter.Emit(core.EventStored, snapshot)
		return snapshot
	}

	capacity := u.capacityFor(scope)
	if len(store) >= capacity {
		u.evictLowest(store)
	}

	u.seq++
	entry := &Entry{
		ID:          core.NewID(),
		Key:         key,
		Value:       value,
		Scope:       scope,
		Tags:        append([]string{}, opts.Tags...),
		Importance:  importance,
		QValue:      importance,
		AccessCount: 0,
		CreatedAt:   time.Now().UTC(),
		seq:         u.seq,
	}
	store[entry.ID] = entry
	u.totalStored++
	snapshot := *entry
	u.mu.Unlock()

	u.emitter.Emit(core.EventStored, snapshot)
	u.logger.Debug("memory entry stored", "key", key, "scope", string(scope))
	return snapshot
}

// RetrieveOptions refines Retrieve. Zero TopK means unbounded.
type RetrieveOptions struct {
	Scope Scope
	Tags  []string
	TopK  int
}

// Retrieve scores candidate entries against the query by a composite of
// textual relevance and qValue and returns them in descending score order.
// Scope defaults to STM; ScopeAll searches both stores. When Tags is given,
// only entries sharing at least one tag are considered. Every returned
// entry's access count is incremented.
func (u *ContextUnit) Retrieve(query string, opts RetrieveOptions) []Entry {
	scope := opts.Scope
	if scope == "" {
		scope = ScopeSTM
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	var candidates []*Entry
	if scope == ScopeSTM || scope == ScopeAll {
		for _, e := range u.stm {
			candidates = append(candidates, e)
		}
	}
	if scope == ScopeLTM || scope == ScopeAll {
		for _, e := range u.ltm {
			candidates = append(candidates, e)
		}
	}

	type scored struct {
		entry *Entry
		score float64
	}
	matches := make([]scored, 0, len(candidates))
	for _, e := range candidates {
		if len(opts.Tags) > 0 && !tagsIntersect(e.Tags, opts.Tags) {
			continue
		}
		score := relevance(query, e)*0.7 + e.QValue*0.3
		matches = append(matches, scored{entry: e, score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	limit := len(matches)
	if opts.TopK > 0 && opts.TopK < limit {
		limit = opts.TopK
	}
	out := make([]Entry, 0, limit)
	for _, m := range matches[:limit] {
		m.entry.AccessCount++
		out = append(out, *m.entry)
	}
	u.totalRetrieved += int64(len(out))
	return out
}

// Update replaces the value of the entry with the given id in whichever
// scope holds it. Returns false when the id is unknown.
func (u *ContextUnit) Update(id string, newValue any) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if e, _ := u.find(id); e != nil {
		e.Value = newValue
		return true
	}
	return false
}

// Discard removes the entry with the given id from whichever scope holds it.
// Returns false when the id is unknown.
func (u *ContextUnit) Discard(id string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, store := u.find(id); store != nil {
		delete(store, id)
		return true
	}
	return false
}

// UpdateQValue applies the Q-learning update rule
//
//	q <- clamp(q + rate*(reward - q), 0, 1)
//
// to the entry with the given id. An STM entry whose new qValue reaches the
// promotion threshold is moved to LTM, evicting LTM's lowest-qValue entry if
// LTM is full. Returns false when the id is unknown.
func (u *ContextUnit) UpdateQValue(id string, reward float64) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	e, store := u.find(id)
	if e == nil {
		return false
	}
	e.QValue = clamp01(e.QValue + u.opts.QLearningRate*(reward-e.QValue))
	if e.Scope == ScopeSTM && e.QValue >= u.opts.PromotionQThreshold {
		u.moveLocked(e, store, u.ltm, ScopeLTM)
	}
	return true
}

// BatchUpdateQValues applies UpdateQValue to every id with the same reward
// and returns the number of entries actually updated.
func (u *ContextUnit) BatchUpdateQValues(ids []string, reward float64) int {
	n := 0
	for _, id := range ids {
		if u.UpdateQValue(id, reward) {
			n++
		}
	}
	return n
}

// Promote moves an STM entry to LTM. Returns false when the id is unknown or
// the entry is not in STM.
func (u *ContextUnit) Promote(id string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	e, ok := u.stm[id]
	if !ok {
		return false
	}
	u.moveLocked(e, u.stm, u.ltm, ScopeLTM)
	return true
}

// Demote moves an LTM entry back to STM. Returns false when the id is
// unknown or the entry is not in LTM.
func (u *ContextUnit) Demote(id string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	e, ok := u.ltm[id]
	if !ok {
		return false
	}
	u.moveLocked(e, u.ltm, u.stm, ScopeSTM)
	return true
}

// Compress performs slime-mold consolidation over STM only: it selects the
// floor(stmSize*0.3) lowest-qValue entries, removes them, and emits a single
// KnowledgeBlock referencing exactly those ids. Returns nil without side
// effects when fewer than two entries would be selected.
func (u *ContextUnit) Compress() *KnowledgeBlock {
	u.mu.Lock()
	k := len(u.stm) * 3 / 10
	if k < 2 {
		u.mu.Unlock()
		return nil
	}

	entries := make([]*Entry, 0, len(u.stm))
	for _, e := range u.stm {
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].QValue != entries[j].QValue {
			return entries[i].QValue < entries[j].QValue
		}
		return entries[i].seq < entries[j].seq
	})

	victims := entries[:k]
	sourceIDs := make([]string, 0, k)
	keys := make([]string, 0, k)
	for _, e := range victims {
		sourceIDs = append(sourceIDs, e.ID)
		keys = append(keys, e.Key)
		delete(u.stm, e.ID)
	}
	block := KnowledgeBlock{
		ID:        core.NewID(),
		SourceIDs: sourceIDs,
		Summary:   fmt.Sprintf("consolidated %d low-utility entries: %s", k, strings.Join(keys, ", ")),
		CreatedAt: time.Now().UTC(),
	}
	u.blocks = append(u.blocks, block)
	u.totalCompressed += int64(k)
	u.mu.Unlock()

	u.emitter.Emit(core.EventCompressed, block)
	u.logger.Debug("memory compressed", "consumed", k)
	return &block
}

// KnowledgeBlocks returns a copy of every block produced by Compress, in
// creation order.
func (u *ContextUnit) KnowledgeBlocks() []KnowledgeBlock {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]KnowledgeBlock, len(u.blocks))
	copy(out, u.blocks)
	return out
}

// SearchIndex performs keyword lookup across both stores. It returns no
// results when the unit was configured with semantic indexing disabled.
// Access counts are not touched; use Retrieve for reinforced access.
func (u *ContextUnit) SearchIndex(query string, topK int) []Entry {
	if !u.opts.EnableSemanticIndex {
		return []Entry{}
	}
	u.mu.RLock()
	defer u.mu.RUnlock()

	type scored struct {
		entry Entry
		score float64
	}
	var matches []scored
	for _, store := range []map[string]*Entry{u.stm, u.ltm} {
		for _, e := range store {
			if s := relevance(query, e); s > 0 {
				matches = append(matches, scored{entry: *e, score: s})
			}
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	limit := len(matches)
	if topK > 0 && topK < limit {
		limit = topK
	}
	out := make([]Entry, 0, limit)
	for _, m := range matches[:limit] {
		out = append(out, m.entry)
	}
	return out
}

// ExportLTM returns a copy of every long-term entry, suitable for handoff to
// an external persistence layer.
func (u *ContextUnit) ExportLTM() []Entry {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]Entry, 0, len(u.ltm))
	for _, e := range u.ltm {
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// ImportLTM inserts entries into LTM, skipping any whose key already exists
// there, and returns the count actually inserted. Capacity eviction applies
// as for Store.
func (u *ContextUnit) ImportLTM(entries []Entry) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	inserted := 0
	for _, in := range entries {
		if findByKey(u.ltm, in.Key) != nil {
			continue
		}
		if len(u.ltm) >= u.opts.LTMCapacity {
			u.evictLowest(u.ltm)
		}
		u.seq++
		e := in
		if e.ID == "" {
			e.ID = core.NewID()
		}
		e.Scope = ScopeLTM
		e.QValue = clamp01(e.QValue)
		e.seq = u.seq
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		u.ltm[e.ID] = &e
		inserted++
	}
	return inserted
}

// Clear wipes the indicated store(s).
func (u *ContextUnit) Clear(target Scope) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if target == ScopeSTM || target == ScopeAll {
		u.stm = make(map[string]*Entry)
	}
	if target == ScopeLTM || target == ScopeAll {
		u.ltm = make(map[string]*Entry)
	}
}

// GetStats returns a snapshot of the unit's sizes and counters.
func (u *ContextUnit) GetStats() Stats {
	u.mu.RLock()
	defer u.mu.RUnlock()
	sum := 0.0
	n := 0
	for _, store := range []map[string]*Entry{u.stm, u.ltm} {
		for _, e := range store {
			sum += e.QValue
			n++
		}
	}
	avg := 0.0
	if n > 0 {
		avg = sum / float64(n)
	}
	return Stats{
		Running:         u.running,
		STMSize:         len(u.stm),
		LTMSize:         len(u.ltm),
		STMCapacity:     u.opts.STMCapacity,
		LTMCapacity:     u.opts.LTMCapacity,
		TotalStored:     u.totalStored,
		TotalRetrieved:  u.totalRetrieved,
		TotalCompressed: u.totalCompressed,
		AvgQValue:       avg,
	}
}

// -------------------- internal helpers (lock held) --------------------

func (u *ContextUnit) storeFor(scope Scope) map[string]*Entry {
	if scope == ScopeLTM {
		return u.ltm
	}
	return u.stm
}

func (u *ContextUnit) capacityFor(scope Scope) int {
	if scope == ScopeLTM {
		return u.opts.LTMCapacity
	}
	return u.opts.STMCapacity
}

func (u *ContextUnit) find(id string) (*Entry, map[string]*Entry) {
	if e, ok := u.stm[id]; ok {
		return e, u.stm
	}
	if e, ok := u.ltm[id]; ok {
		return e, u.ltm
	}
	return nil, nil
}

// moveLocked transfers an entry between stores, evicting from the target
// when it is at capacity.
func (u *ContextUnit) moveLocked(e *Entry, from, to map[string]*Entry, scope Scope) {
	if len(to) >= u.capacityFor(scope) {
		u.evictLowest(to)
	}
	delete(from, e.ID)
	e.Scope = scope
	to[e.ID] = e
}

// evictLowest removes the entry with the lowest qValue, breaking ties by the
// oldest insertion sequence.
func (u *ContextUnit) evictLowest(store map[string]*Entry) {
	var victim *Entry
	for _, e := range store {
		if victim == nil || e.QValue < victim.QValue || (e.QValue == victim.QValue && e.seq < victim.seq) {
			victim = e
		}
	}
	if victim != nil {
		delete(store, victim.ID)
	}
}

func findByKey(store map[string]*Entry, key string) *Entry {
	for _, e := range store {
		if e.Key == key {
			return e
		}
	}
	return nil
}

func tagsIntersect(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// relevance is a simple token-overlap score between the query and the
// entry's key, stringified value and tags. Returns a value in [0,1].
func relevance(query string, e *Entry) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}
	haystack := strings.ToLower(e.Key + " " + fmt.Sprintf("%v", e.Value) + " " + strings.Join(e.Tags, " "))
	hits := 0
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
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
