package orchestrator

import (
	"github.com/kidspark-ai/kidspark/internal/agents"
	"github.com/kidspark-ai/kidspark/internal/intent"
)

// fallbackTexts are the deterministic replies used when a turn cannot be
// completed. They never explain what went wrong; they redirect to
// something the child can do instead.
var fallbackTexts = map[intent.Intent]string{
	intent.IntentActivity: "Hmm, I couldn't find just the right activity this time. Want to try asking a different way? Or I could tell you a story instead!",
	intent.IntentStory:    "I don't have the perfect story for that right now. Should we try a different kind of story, or find something fun to make?",
	intent.IntentWhy:      "That's a really good question! I don't have a good answer right now. Want to ask me something else, or hear a story?",
	intent.IntentGreeting: "Hi there! Want a story, a fun activity, or do you have a question for me?",
	intent.IntentUnknown:  "I'm not quite sure what you'd like! You can ask me for a story, a fun activity, or a why question.",
}

// fallbackArtifact returns the canned artifact for an intent. Unmapped
// intents get the generic redirect.
func fallbackArtifact(in intent.Intent) *agents.Artifact {
	text, ok := fallbackTexts[in]
	if !ok {
		text = fallbackTexts[intent.IntentUnknown]
	}
	return &agents.Artifact{
		Text:        text,
		DisplayType: agents.DisplayText,
		Payload:     map[string]interface{}{"fallback": true},
	}
}
