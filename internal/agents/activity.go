package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kidspark-ai/kidspark/internal/guardrail"
	"github.com/kidspark-ai/kidspark/internal/intent"
	"github.com/kidspark-ai/kidspark/internal/provider"
	"github.com/kidspark-ai/kidspark/internal/retrieval"
)

// ActivityAgent turns grounding candidates into a concrete activity plan.
// Materials come only from the surviving candidates' metadata, so the plan
// never asks for supplies the library doesn't vouch for.
type ActivityAgent struct {
	provider  provider.Provider
	model     string
	maxTokens int
	history   SeenHistory
	logger    *zap.Logger
}

// NewActivityAgent creates the activity agent.
func NewActivityAgent(p provider.Provider, model string, maxTokens int, history SeenHistory, logger *zap.Logger) *ActivityAgent {
	if history == nil {
		history = NewMemoryHistory()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityAgent{provider: p, model: model, maxTokens: maxTokens, history: history, logger: logger}
}

// Intent implements Agent.
func (a *ActivityAgent) Intent() intent.Intent { return intent.IntentActivity }

// Produce implements Agent.
func (a *ActivityAgent) Produce(ctx context.Context, q QueryContext, plan guardrail.GenerationPlan) (*Artifact, error) {
	if len(plan.Candidates) == 0 {
		return nil, fmt.Errorf("activity agent requires grounding candidates")
	}

	candidates := a.preferUnseen(ctx, q.UserID, plan.Candidates)
	chosen := candidates[0]
	materials := metadataStrings(chosen, "materials")

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "The child asked: %s\n\n", q.Query)
	prompt.WriteString("Reference activities:\n")
	prompt.WriteString(numberedPassages(candidates))
	prompt.WriteString("\nWrite a short, enthusiastic plan for activity [1]. Use simple numbered steps.")
	if len(materials) > 0 {
		fmt.Fprintf(&prompt, " Mention only these materials: %s.", strings.Join(materials, ", "))
	}
	if q.Params.Time > 0 {
		fmt.Fprintf(&prompt, " The whole activity must fit in %d minutes.", q.Params.TimeMinutes())
	}

	narrowed := plan
	narrowed.Candidates = candidates
	text, err := complete(ctx, a.provider, a.model, narrowed, prompt.String(), a.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("activity generation: %w", err)
	}

	if err := a.history.MarkSeen(ctx, q.UserID, "activity", chosen.ContentID); err != nil {
		a.logger.Warn("failed to record seen activity", zap.Error(err))
	}

	payload := map[string]interface{}{
		"content_id": chosen.ContentID,
	}
	if len(materials) > 0 {
		payload["materials"] = materials
	}
	if d := metadataInt(chosen.Metadata, "duration_minutes"); d > 0 {
		payload["duration_minutes"] = d
	}
	if mess, ok := chosen.Metadata["mess"].(string); ok {
		payload["mess"] = mess
	}
	if loc, ok := chosen.Metadata["location"].(string); ok {
		payload["location"] = loc
	}
	if prep := metadataInt(chosen.Metadata, "prep_minutes"); prep > 0 {
		payload["prep_minutes"] = prep
	}
	if notes, ok := chosen.Metadata["safety_notes"].(string); ok && notes != "" {
		payload["safety_notes"] = notes
	}
	if variations := metadataStrings(chosen, "variations"); len(variations) > 0 {
		payload["variations"] = variations
	}

	return &Artifact{
		Text:        text,
		DisplayType: DisplayActivityCard,
		Payload:     payload,
		Passages:    passagesOf(candidates),
	}, nil
}

// preferUnseen moves already-seen candidates behind fresh ones without
// disturbing relative order. History failures degrade to the original
// order rather than failing the turn.
func (a *ActivityAgent) preferUnseen(ctx context.Context, userID string, candidates []retrieval.Candidate) []retrieval.Candidate {
	seen, err := a.history.Seen(ctx, userID, "activity")
	if err != nil {
		a.logger.Warn("failed to load seen activities", zap.Error(err))
		return candidates
	}
	fresh := make([]retrieval.Candidate, 0, len(candidates))
	var repeats []retrieval.Candidate
	for _, c := range candidates {
		if seen[c.ContentID] {
			repeats = append(repeats, c)
			continue
		}
		fresh = append(fresh, c)
	}
	return append(fresh, repeats...)
}

// metadataStrings reads a string list from candidate metadata, tolerating
// both []string and the []interface{} shape JSON decoding produces.
func metadataStrings(c retrieval.Candidate, key string) []string {
	raw, ok := c.Metadata[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func metadataInt(metadata map[string]interface{}, key string) int {
	switch v := metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func passagesOf(candidates []retrieval.Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Content
	}
	return out
}
