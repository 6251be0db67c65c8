// Package agents holds the intent-specific producers. An agent turns a
// hardened generation plan plus turn context into one artifact; it never
// sees raw user input and never decides safety questions itself.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/kidspark-ai/kidspark/internal/guardrail"
	"github.com/kidspark-ai/kidspark/internal/intent"
	"github.com/kidspark-ai/kidspark/internal/provider"
	"github.com/kidspark-ai/kidspark/internal/retrieval"
)

// QueryContext is the per-turn state an agent may use.
type QueryContext struct {
	Query        string
	Age          int
	Params       intent.Params
	UserID       string
	SessionID    string
	IsFollowUp   bool
	LastQuestion string
	LastAnswer   string
}

// Agent produces content for one intent.
type Agent interface {
	Intent() intent.Intent
	Produce(ctx context.Context, q QueryContext, plan guardrail.GenerationPlan) (*Artifact, error)
}

// Registry maps intents to agents.
type Registry struct {
	agents map[intent.Intent]Agent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[intent.Intent]Agent)}
}

// Register adds an agent, replacing any previous agent for the intent.
func (r *Registry) Register(a Agent) {
	r.agents[a.Intent()] = a
}

// For returns the agent for an intent.
func (r *Registry) For(in intent.Intent) (Agent, error) {
	a, ok := r.agents[in]
	if !ok {
		return nil, fmt.Errorf("no agent registered for intent %q", in)
	}
	return a, nil
}

// complete issues the model call shared by the generative agents: the
// plan's system instruction, a single user message, the plan's clamped
// temperature.
func complete(ctx context.Context, p provider.Provider, model string, plan guardrail.GenerationPlan, userPrompt string, maxTokens int) (string, error) {
	resp, err := p.CreateCompletion(ctx, provider.CompletionRequest{
		Model: model,
		Messages: []provider.Message{
			{Role: "system", Content: plan.SystemInstruction},
			{Role: "user", Content: userPrompt},
		},
		Temperature: plan.Temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// numberedPassages renders candidates as the reference block shared by
// the agent prompts.
func numberedPassages(candidates []retrieval.Candidate) string {
	var b strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, c.Content)
	}
	return b.String()
}
