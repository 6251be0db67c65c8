package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/kidspark-ai/kidspark/internal/guardrail"
	"github.com/kidspark-ai/kidspark/internal/intent"
	"github.com/kidspark-ai/kidspark/internal/provider"
)

// WhyAgent answers curiosity questions from the knowledge passages: a
// short explanation pitched to the age band, one everyday analogy, and one
// follow-up question to keep the conversation going. On a follow-up turn
// the previous exchange is included so "tell me more" has something to
// build on.
type WhyAgent struct {
	provider  provider.Provider
	model     string
	maxTokens int
}

// NewWhyAgent creates the why agent.
func NewWhyAgent(p provider.Provider, model string, maxTokens int) *WhyAgent {
	return &WhyAgent{provider: p, model: model, maxTokens: maxTokens}
}

// Intent implements Agent.
func (a *WhyAgent) Intent() intent.Intent { return intent.IntentWhy }

// Produce implements Agent.
func (a *WhyAgent) Produce(ctx context.Context, q QueryContext, plan guardrail.GenerationPlan) (*Artifact, error) {
	if len(plan.Candidates) == 0 {
		return nil, fmt.Errorf("why agent requires grounding candidates")
	}

	var prompt strings.Builder
	if q.IsFollowUp && q.LastQuestion != "" {
		fmt.Fprintf(&prompt, "Earlier the child asked: %s\n", q.LastQuestion)
		if q.LastAnswer != "" {
			fmt.Fprintf(&prompt, "You answered: %s\n", q.LastAnswer)
		}
		prompt.WriteString("\n")
	}
	fmt.Fprintf(&prompt, "The child asked: %s\n\n", q.Query)
	prompt.WriteString("Reference passages:\n")
	prompt.WriteString(numberedPassages(plan.Candidates))
	prompt.WriteString("\nAnswer using only the passages. Give a short explanation, ")
	prompt.WriteString("one comparison to something from everyday life, ")
	prompt.WriteString("and finish with one curious follow-up question for the child.")

	text, err := complete(ctx, a.provider, a.model, plan, prompt.String(), a.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("explanation generation: %w", err)
	}

	sources := make([]string, len(plan.Candidates))
	for i, c := range plan.Candidates {
		sources[i] = c.ContentID
	}

	return &Artifact{
		Text:        text,
		DisplayType: DisplayText,
		Payload: map[string]interface{}{
			"sources": sources,
		},
		Passages: passagesOf(plan.Candidates),
	}, nil
}
