package classify

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kidspark-ai/kidspark/internal/provider"
)

// LLMScorer runs a judgment prompt against a small classifier model and
// parses a numeric score out of the reply. One scorer instance covers one
// axis; the prompt defines the axis.
type LLMScorer struct {
	provider provider.Provider
	model    string
	// buildPrompt renders the judgment prompt for a text and its references.
	buildPrompt func(text string, refs []string) string
}

var scoreRe = regexp.MustCompile(`(?:0?\.\d+|[01](?:\.\d+)?)`)

// Score implements Scorer. The reply is scanned for the first number in
// [0,1]; anything unparseable is an error so callers can fail closed.
func (s *LLMScorer) Score(ctx context.Context, text string, refs []string) (float64, error) {
	resp, err := s.provider.CreateCompletion(ctx, provider.CompletionRequest{
		Model: s.model,
		Messages: []provider.Message{
			{Role: "system", Content: "You are a strict content rater. Reply with a single number between 0 and 1 and nothing else."},
			{Role: "user", Content: s.buildPrompt(text, refs)},
		},
		Temperature: 0,
		MaxTokens:   8,
	})
	if err != nil {
		return 0, fmt.Errorf("score completion: %w", err)
	}
	return parseScore(resp.Content)
}

func parseScore(reply string) (float64, error) {
	match := scoreRe.FindString(strings.TrimSpace(reply))
	if match == "" {
		return 0, fmt.Errorf("no score in reply %q", reply)
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing score %q: %w", match, err)
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}

// NewSafetyScorer rates how appropriate text is for young children.
// 1 means fully appropriate, 0 means clearly unsuitable.
func NewSafetyScorer(p provider.Provider, model string) *LLMScorer {
	return &LLMScorer{
		provider: p,
		model:    model,
		buildPrompt: func(text string, _ []string) string {
			return "Rate how appropriate the following text is for children aged 3 to 9. " +
				"1 means completely appropriate, 0 means clearly unsuitable " +
				"(violence, fear, adult themes, unsafe suggestions).\n\nText:\n" + text
		},
	}
}

// NewTopicScorer rates how relevant text is to the question in refs[0].
func NewTopicScorer(p provider.Provider, model string) *LLMScorer {
	return &LLMScorer{
		provider: p,
		model:    model,
		buildPrompt: func(text string, refs []string) string {
			question := ""
			if len(refs) > 0 {
				question = refs[0]
			}
			return "Rate how well the following answer stays on the topic of the question. " +
				"1 means fully on topic, 0 means unrelated.\n\nQuestion:\n" + question +
				"\n\nAnswer:\n" + text
		},
	}
}

// NewEntailmentScorer rates how well text is supported by the reference
// passages in refs. 1 means every claim is grounded in a passage, 0 means
// the text contradicts or invents beyond them.
func NewEntailmentScorer(p provider.Provider, model string) *LLMScorer {
	return &LLMScorer{
		provider: p,
		model:    model,
		buildPrompt: func(text string, refs []string) string {
			var b strings.Builder
			b.WriteString("Rate how well the claims in the answer are supported by the source passages. ")
			b.WriteString("1 means fully supported, 0 means contradicted or invented.\n\nPassages:\n")
			for i, ref := range refs {
				fmt.Fprintf(&b, "[%d] %s\n", i+1, ref)
			}
			b.WriteString("\nAnswer:\n")
			b.WriteString(text)
			return b.String()
		},
	}
}
