package reasoning

import (
	"hash/fnv"
	"time"

	"github.com/hupe1980/agentkernel/core"
)

// ConsensusMethod selects how a verdict's consensus value is computed.
type ConsensusMethod string

const (
	// ConsensusMajority reports the fraction of judges agreeing with the
	// majority pass/fail position.
	ConsensusMajority ConsensusMethod = "majority"
	// ConsensusWeighted averages judge scores weighted by their proximity to
	// the panel mean.
	ConsensusWeighted ConsensusMethod = "weighted"
	// ConsensusDebate iteratively moves judges toward the panel mean until
	// their spread converges.
	ConsensusDebate ConsensusMethod = "debate"
)

// JudgeFunc scores output for one category from the perspective of one
// judge. Implementations must return values in [0,1].
type JudgeFunc func(output, category string, judge int) float64

// Vote is one judge's independent scoring of every category.
type Vote struct {
	JudgeID int                `json:"judge_id"`
	Scores  map[string]float64 `json:"scores"`
	Overall float64            `json:"overall"`
}

// Verdict is the stored result of one Judge call. Evidence may be appended
// afterward via AddEvidence.
type Verdict struct {
	ID             string             `json:"id"`
	Votes          []Vote             `json:"votes"`
	CategoryScores map[string]float64 `json:"category_scores"`
	OverallScore   float64            `json:"overall_score"`
	Consensus      float64            `json:"consensus"`
	Passed         bool               `json:"passed"`
	Evidence       []string           `json:"evidence"`
	CreatedAt      time.Time          `json:"created_at"`
}

// JudgeOptions refines Judge. Zero values fall back to defaults (3 judges,
// majority consensus, pass threshold 0.6, built-in deterministic scorer with
// per-judge noise).
type JudgeOptions struct {
	NumJudges       int
	ConsensusMethod ConsensusMethod
	PassThreshold   float64
	Scorer          JudgeFunc
}

// Judge produces numJudges independent votes over the categories,
// aggregates them per category and overall, computes consensus per the
// selected method and stores the verdict.
func (e *Engine) Judge(output string, categories []string, opts JudgeOptions) *Verdict {
	if opts.NumJudges <= 0 {
		opts.NumJudges = 3
	}
	if opts.ConsensusMethod == "" {
		opts.ConsensusMethod = ConsensusMajority
	}
	if opts.PassThreshold <= 0 {
		opts.PassThreshold = 0.6
	}
	if len(categories) == 0 {
		categories = []string{"quality"}
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = e.defaultScorer()
	}

	votes := make([]Vote, 0, opts.NumJudges)
	for j := 0; j < opts.NumJudges; j++ {
		scores := make(map[string]float64, len(categories))
		sum := 0.0
		for _, c := range categories {
			s := clamp01(scorer(output, c, j))
			scores[c] = s
			sum += s
		}
		votes = append(votes, Vote{JudgeID: j, Scores: scores, Overall: sum / float64(len(categories))})
	}

	categoryScores := make(map[string]float64, len(categories))
	overall := 0.0
	for _, c := range categories {
		sum := 0.0
		for _, v := range votes {
			sum += v.Scores[c]
		}
		categoryScores[c] = sum / float64(len(votes))
		overall += categoryScores[c]
	}
	overall /= float64(len(categories))

	consensus := computeConsensus(votes, opts.ConsensusMethod, opts.PassThreshold)

	verdict := &Verdict{
		ID:             core.NewID(),
		Votes:          votes,
		CategoryScores: categoryScores,
		OverallScore:   overall,
		Consensus:      consensus,
		Passed:         overall >= opts.PassThreshold && consensus >= 0.5,
		Evidence:       []string{},
		CreatedAt:      time.Now().UTC(),
	}

	e.mu.Lock()
	e.verdicts[verdict.ID] = verdict
	e.totalJudgements++
	snapshot := *verdict
	e.mu.Unlock()

	e.emitter.Emit(core.EventJudged, snapshot)
	e.logger.Debug("judgement completed", "judges", opts.NumJudges, "overall", overall)
	return &snapshot
}

// AddEvidence appends evidence to a stored verdict. Returns false for an
// unknown verdict id.
func (e *Engine) AddEvidence(verdictID, evidence string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.verdicts[verdictID]
	if !ok {
		return false
	}
	v.Evidence = append(v.Evidence, evidence)
	return true
}

// GetVerdict returns a copy of a stored verdict, or nil when unknown.
func (e *Engine) GetVerdict(verdictID string) *Verdict {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.verdicts[verdictID]
	if !ok {
		return nil
	}
	snapshot := *v
	snapshot.Votes = append([]Vote{}, v.Votes...)
	snapshot.Evidence = append([]string{}, v.Evidence...)
	return &snapshot
}

// defaultScorer derives a stable base score from the output/category pair
// and adds small per-judge noise, staying within [0,1].
func (e *Engine) defaultScorer() JudgeFunc {
	return func(output, category string, judge int) float64 {
		h := fnv.New32a()
		h.Write([]byte(output))
		h.Write([]byte{0})
		h.Write([]byte(category))
		base := 0.3 + 0.6*float64(h.Sum32()%1000)/999.0
		noise := (e.random() - 0.5) * 0.2
		return clamp01(base + noise)
	}
}

func computeConsensus(votes []Vote, method ConsensusMethod, threshold float64) float64 {
	mean := 0.0
	for _, v := range votes {
		mean += v.Overall
	}
	mean /= float64(len(votes))

	switch method {
	case ConsensusWeighted:
		// Judges close to the panel mean carry more weight.
		weightSum, weighted := 0.0, 0.0
		for _, v := range votes {
			w := 1.0 / (1.0 + abs(v.Overall-mean))
			weightSum += w
			weighted += w * v.Overall
		}
		return clamp01(weighted / weightSum)
	case ConsensusDebate:
		// Iteratively pull each judge halfway toward the mean until the
		// spread converges.
		overalls := make([]float64, len(votes))
		for i, v := range votes {
			overalls[i] = v.Overall
		}
		spread := spreadOf(overalls)
		for round := 0; round < 5 && spread > 0.05; round++ {
			m := 0.0
			for _, o := range overalls {
				m += o
			}
			m /= float64(len(overalls))
			for i := range overalls {
				overalls[i] += 0.5 * (m - overalls[i])
			}
			spread = spreadOf(overalls)
		}
		return clamp01(1.0 - spread)
	default: // majority
		passes := 0
		for _, v := range votes {
			if v.Overall >= threshold {
				passes++
			}
		}
		agree := passes
		if fails := len(votes) - passes; fails > agree {
			agree = fails
		}
		return float64(agree) / float64(len(votes))
	}
}

func spreadOf(values []float64) float64 {
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return max - min
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
