package classify

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// moderationAPI is the slice of the OpenAI client the toxicity scorer needs.
// *openai.Client satisfies it.
type moderationAPI interface {
	Moderations(ctx context.Context, request openai.ModerationRequest) (openai.ModerationResponse, error)
}

// ToxicityScorer scores text with the OpenAI moderation endpoint. The score
// is the maximum category score, so any single flagged axis dominates.
type ToxicityScorer struct {
	client moderationAPI
	model  string
}

// NewToxicityScorer creates a scorer backed by the given OpenAI client.
func NewToxicityScorer(client *openai.Client) *ToxicityScorer {
	return &ToxicityScorer{client: client, model: openai.ModerationTextLatest}
}

// NewToxicityScorerFromKey creates a scorer with a fresh OpenAI client.
func NewToxicityScorerFromKey(apiKey string) *ToxicityScorer {
	return NewToxicityScorer(openai.NewClient(apiKey))
}

// newToxicityScorerWithAPI is the test seam.
func newToxicityScorerWithAPI(api moderationAPI) *ToxicityScorer {
	return &ToxicityScorer{client: api, model: openai.ModerationTextLatest}
}

// Score implements Scorer. refs is ignored. Errors are returned as-is so the
// caller can fail closed.
func (s *ToxicityScorer) Score(ctx context.Context, text string, _ []string) (float64, error) {
	if text == "" {
		return 0, nil
	}

	resp, err := s.client.Moderations(ctx, openai.ModerationRequest{
		Input: text,
		Model: s.model,
	})
	if err != nil {
		return 0, fmt.Errorf("moderation request: %w", err)
	}
	if len(resp.Results) == 0 {
		return 0, fmt.Errorf("moderation returned no results")
	}

	sc := resp.Results[0].CategoryScores
	var maxScore float32
	for _, v := range []float32{
		sc.Hate, sc.HateThreatening,
		sc.Harassment, sc.HarassmentThreatening,
		sc.SelfHarm, sc.SelfHarmIntent, sc.SelfHarmInstructions,
		sc.Sexual, sc.SexualMinors,
		sc.Violence, sc.ViolenceGraphic,
	} {
		if v > maxScore {
			maxScore = v
		}
	}
	return float64(maxScore), nil
}
