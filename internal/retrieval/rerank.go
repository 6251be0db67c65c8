package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kidspark-ai/kidspark/internal/provider"
)

// Reranker rescores candidates by contextual relevance to the query using
// a single model call over all (query, candidate) pairs. It only reorders
// and rescales: candidate identity is preserved and nothing is invented.
type Reranker struct {
	provider provider.Provider
	model    string
	logger   *zap.Logger
}

// NewReranker creates a Reranker on the given classifier model.
func NewReranker(p provider.Provider, model string, logger *zap.Logger) *Reranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{provider: p, model: model, logger: logger}
}

const rerankSystemPrompt = `You are a relevance rater. For each numbered passage, rate how relevant it is to the query on a scale of 0.0 (unrelated) to 1.0 (directly answers it). Respond ONLY with a JSON array like [{"id":1,"score":0.92},{"id":2,"score":0.4}] covering every passage.`

// rerankScore is one entry of the model's JSON reply.
type rerankScore struct {
	ID    int     `json:"id"`
	Score float64 `json:"score"`
}

// Rerank rescores candidates and returns the top K by the new score,
// ordered descending with content ID tie-break. A candidate the model
// failed to score keeps score 0. On model error the error propagates so
// the caller can fail closed.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nPassages:\n", query)
	for i, c := range candidates {
		content := c.Content
		if len(content) > 600 {
			content = content[:600]
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, content)
	}

	resp, err := r.provider.CreateCompletion(ctx, provider.CompletionRequest{
		Model: r.model,
		Messages: []provider.Message{
			{Role: "system", Content: rerankSystemPrompt},
			{Role: "user", Content: b.String()},
		},
		Temperature: 0,
		MaxTokens:   512,
	})
	if err != nil {
		return nil, fmt.Errorf("rerank completion: %w", err)
	}

	scores, err := parseRerankReply(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("rerank reply: %w", err)
	}

	reranked := make([]Candidate, len(candidates))
	copy(reranked, candidates)
	for i := range reranked {
		reranked[i].Score = 0
	}
	for _, s := range scores {
		idx := s.ID - 1
		if idx < 0 || idx >= len(reranked) {
			r.logger.Warn("rerank score for unknown passage", zap.Int("id", s.ID))
			continue
		}
		score := s.Score
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		reranked[idx].Score = score
	}

	sort.Slice(reranked, func(i, j int) bool {
		if reranked[i].Score != reranked[j].Score {
			return reranked[i].Score > reranked[j].Score
		}
		return reranked[i].ContentID < reranked[j].ContentID
	})
	if topK > 0 && len(reranked) > topK {
		reranked = reranked[:topK]
	}
	return reranked, nil
}

// parseRerankReply extracts the JSON array from the model reply, tolerating
// prose or code fences around it.
func parseRerankReply(reply string) ([]rerankScore, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in %q", reply)
	}
	var scores []rerankScore
	if err := json.Unmarshal([]byte(reply[start:end+1]), &scores); err != nil {
		return nil, fmt.Errorf("parsing scores: %w", err)
	}
	return scores, nil
}
