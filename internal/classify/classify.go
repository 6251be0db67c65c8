// Package classify provides the scorers the guardrail pipeline is built
// from. A scorer maps text (plus optional reference texts) to a score in
// [0,1]; the guardrail stages own the thresholds.
package classify

import (
	"context"
	"time"
)

// Scorer scores text against an axis such as toxicity or topical relevance.
// refs carries reference texts when the axis is relational (the query for
// relevance, grounding passages for entailment); scorers that need no
// references ignore it.
type Scorer interface {
	Score(ctx context.Context, text string, refs []string) (float64, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, text string, refs []string) (float64, error)

// Score implements Scorer
func (f ScorerFunc) Score(ctx context.Context, text string, refs []string) (float64, error) {
	return f(ctx, text, refs)
}

// Fixed returns a scorer that always reports the given score. Used in tests
// and as a conservative stand-in when a real scorer is not configured.
func Fixed(score float64) Scorer {
	return ScorerFunc(func(context.Context, string, []string) (float64, error) {
		return score, nil
	})
}

// WithTimeout bounds every Score call on the wrapped scorer with its own
// deadline. A scorer that hangs past the deadline returns the context
// error, which the guardrail stages treat as classifier-unavailable. A
// non-positive timeout returns the scorer unwrapped.
func WithTimeout(s Scorer, d time.Duration) Scorer {
	if d <= 0 {
		return s
	}
	return ScorerFunc(func(ctx context.Context, text string, refs []string) (float64, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return s.Score(ctx, text, refs)
	})
}
