package classify

import (
	"context"
	"strings"
)

// sensitiveEntry is a topic keyword with a severity weight. Weights near 1
// should block outright; mid weights call for softened phrasing.
type sensitiveEntry struct {
	keyword string
	weight  float64
}

var defaultSensitiveEntries = []sensitiveEntry{
	// topics that need gentle handling
	{"death", 0.6}, {"die", 0.6}, {"dying", 0.6}, {"dead", 0.55},
	{"divorce", 0.55}, {"funeral", 0.6},
	{"scary", 0.5}, {"monster", 0.5}, {"nightmare", 0.55},
	{"sick", 0.5}, {"hospital", 0.5}, {"surgery", 0.55},
	{"lost pet", 0.6}, {"ran away", 0.55},
	// topics that should not reach a child at all
	{"blood", 0.9}, {"injury", 0.9}, {"abuse", 1.0},
	{"kidnap", 1.0}, {"stranger danger", 0.9},
}

// SensitiveTopicScorer flags emotionally heavy topics with a deterministic
// keyword scan. It reports the highest-weighted hit, so one severe keyword
// outranks several mild ones.
type SensitiveTopicScorer struct {
	entries []sensitiveEntry
}

// NewSensitiveTopicScorer creates a scorer with the default topic list.
func NewSensitiveTopicScorer() *SensitiveTopicScorer {
	return &SensitiveTopicScorer{entries: defaultSensitiveEntries}
}

// Score implements Scorer. refs is ignored. The scan is local and never
// returns an error.
func (s *SensitiveTopicScorer) Score(_ context.Context, text string, _ []string) (float64, error) {
	lowered := strings.ToLower(text)
	var maxWeight float64
	for _, e := range s.entries {
		if containsToken(lowered, e.keyword) && e.weight > maxWeight {
			maxWeight = e.weight
		}
	}
	return maxWeight, nil
}

// containsToken is a word-boundary substring check on lowered text.
func containsToken(lowered, token string) bool {
	idx := 0
	for {
		i := strings.Index(lowered[idx:], token)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(token)
		startOK := start == 0 || !isWordByte(lowered[start-1])
		endOK := end == len(lowered) || !isWordByte(lowered[end])
		if startOK && endOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
