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

// StoryAgent retells a library story for the child's age. The candidate
// text is a scaffold, never recited verbatim: the model rebuilds it with
// the requested themes and length, then closes with a gentle moral and two
// discussion questions.
type StoryAgent struct {
	provider  provider.Provider
	model     string
	maxTokens int
	history   SeenHistory
	logger    *zap.Logger
}

// NewStoryAgent creates the story agent.
func NewStoryAgent(p provider.Provider, model string, maxTokens int, history SeenHistory, logger *zap.Logger) *StoryAgent {
	if history == nil {
		history = NewMemoryHistory()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoryAgent{provider: p, model: model, maxTokens: maxTokens, history: history, logger: logger}
}

// Intent implements Agent.
func (a *StoryAgent) Intent() intent.Intent { return intent.IntentStory }

// Produce implements Agent.
func (a *StoryAgent) Produce(ctx context.Context, q QueryContext, plan guardrail.GenerationPlan) (*Artifact, error) {
	if len(plan.Candidates) == 0 {
		return nil, fmt.Errorf("story agent requires grounding candidates")
	}

	chosen := a.pickStory(ctx, q.UserID, plan.Candidates)

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "The child asked: %s\n\n", q.Query)
	prompt.WriteString("Story outline to retell:\n")
	prompt.WriteString(chosen.Content)
	prompt.WriteString("\n\nRetell this story in your own words. Do not copy the outline's sentences.")
	if len(q.Params.Themes) > 0 {
		fmt.Fprintf(&prompt, " Weave in: %s.", strings.Join(q.Params.Themes, ", "))
	}
	switch q.Params.Length {
	case "short":
		prompt.WriteString(" Keep it brief, under five paragraphs.")
	case "long":
		prompt.WriteString(" Make it a full bedtime story.")
	}
	prompt.WriteString(" End with a one-sentence moral, then two simple questions to talk about together.")

	text, err := complete(ctx, a.provider, a.model, plan, prompt.String(), a.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("story generation: %w", err)
	}

	if err := a.history.MarkSeen(ctx, q.UserID, "story", chosen.ContentID); err != nil {
		a.logger.Warn("failed to record seen story", zap.Error(err))
	}

	payload := map[string]interface{}{
		"content_id": chosen.ContentID,
	}
	if title, ok := chosen.Metadata["title"].(string); ok {
		payload["title"] = title
	}
	if len(q.Params.Themes) > 0 {
		payload["themes"] = q.Params.Themes
	}

	return &Artifact{
		Text:        text,
		DisplayType: DisplayStory,
		Payload:     payload,
		Passages:    []string{chosen.Content},
	}, nil
}

// pickStory returns the highest-ranked unseen candidate, falling back to
// the top candidate when everything has been seen or history is down.
func (a *StoryAgent) pickStory(ctx context.Context, userID string, candidates []retrieval.Candidate) retrieval.Candidate {
	seen, err := a.history.Seen(ctx, userID, "story")
	if err != nil {
		a.logger.Warn("failed to load seen stories", zap.Error(err))
		return candidates[0]
	}
	for _, c := range candidates {
		if !seen[c.ContentID] {
			return c
		}
	}
	return candidates[0]
}
