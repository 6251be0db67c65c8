package guardrail

import (
	"fmt"

	"github.com/kidspark-ai/kidspark/internal/retrieval"
	"github.com/kidspark-ai/kidspark/pkg/config"
)

// RetrievalGuard enforces the grounding floor after reranking: the turn
// may only continue when enough candidates clear the relevance threshold.
// A thin or off-topic result set must end in the deterministic fallback,
// never in ungrounded generation.
type RetrievalGuard struct {
	cfg config.GuardrailConfig
}

// NewRetrievalGuard creates the retrieval checkpoint.
func NewRetrievalGuard(cfg config.GuardrailConfig) *RetrievalGuard {
	return &RetrievalGuard{cfg: cfg}
}

// Check passes when at least MinCandidates candidates score at or above
// RelevanceThreshold. The verdict confidence is the best candidate score.
func (g *RetrievalGuard) Check(candidates []retrieval.Candidate) Verdict {
	var qualified int
	var best float64
	for _, c := range candidates {
		if c.Score > best {
			best = c.Score
		}
		if c.Score >= g.cfg.RelevanceThreshold {
			qualified++
		}
	}
	if qualified < g.cfg.MinCandidates {
		return Fail(StageRetrieval,
			fmt.Sprintf("insufficient grounding: %d of %d required candidates at relevance >= %.2f",
				qualified, g.cfg.MinCandidates, g.cfg.RelevanceThreshold),
			best)
	}
	return Pass(StageRetrieval, best)
}

// Qualified returns the candidates that clear the relevance threshold, in
// their incoming order.
func (g *RetrievalGuard) Qualified(candidates []retrieval.Candidate) []retrieval.Candidate {
	out := make([]retrieval.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= g.cfg.RelevanceThreshold {
			out = append(out, c)
		}
	}
	return out
}
