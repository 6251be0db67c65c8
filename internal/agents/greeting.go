package agents

import (
	"context"
	"hash/fnv"

	"github.com/kidspark-ai/kidspark/internal/guardrail"
	"github.com/kidspark-ai/kidspark/internal/intent"
)

// greetings are the fixed replies for greeting turns. No model call is
// made: a greeting should be instant, free, and identical on replay.
var greetings = []string{
	"Hi there! I'm so happy you're here. Want a story, a fun activity, or do you have a question for me?",
	"Hello, friend! Should we find something fun to do, read a story, or wonder about something together?",
	"Hey hey! I was hoping you'd visit. Want to play, hear a story, or ask me a why question?",
	"Hello! What sounds good today: making something, a story, or finding out how something works?",
}

// GreetingAgent replies to greetings deterministically. The same session
// always gets the same greeting.
type GreetingAgent struct{}

// NewGreetingAgent creates the greeting agent.
func NewGreetingAgent() *GreetingAgent { return &GreetingAgent{} }

// Intent implements Agent.
func (a *GreetingAgent) Intent() intent.Intent { return intent.IntentGreeting }

// Produce implements Agent. The plan is unused: greetings skip retrieval
// and generation entirely.
func (a *GreetingAgent) Produce(_ context.Context, q QueryContext, _ guardrail.GenerationPlan) (*Artifact, error) {
	h := fnv.New32a()
	h.Write([]byte(q.SessionID))
	text := greetings[h.Sum32()%uint32(len(greetings))]
	return &Artifact{
		Text:        text,
		DisplayType: DisplayText,
		Payload:     map[string]interface{}{"canned": true},
	}, nil
}
