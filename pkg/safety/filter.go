// Package safety provides the cheap, deterministic safety checks that run
// before any model call: a blocklist/topic pre-filter, prompt-injection
// detection, and PII redaction.
package safety

import (
	"strings"
	"unicode"
)

// MaxFilterInput is the length bound applied before filtering. Longer input
// is truncated, not rejected.
const MaxFilterInput = 4096

// LiteFilter performs a near-zero-cost pre-check on raw input. It runs only
// deterministic lookups so it can gate every turn without adding latency.
type LiteFilter struct {
	blocklist map[string]struct{}
	phrases   []string
	topics    []topicRule
}

type topicRule struct {
	name     string
	keywords []string
	// minHits is the number of distinct keyword hits required to flag the topic
	minHits int
}

// defaultBlocklist holds single tokens that are never acceptable in a
// children's assistant, regardless of context.
var defaultBlocklist = []string{
	"kill", "murder", "suicide", "gun", "guns", "knife", "weapon", "weapons",
	"bomb", "drugs", "cocaine", "heroin", "meth", "porn", "sex", "naked",
	"gambling", "casino", "cigarette", "vape", "alcohol", "beer", "vodka",
}

// defaultBlockedPhrases are multi-word fragments checked by substring match
// on the normalized text.
var defaultBlockedPhrases = []string{
	"hurt myself",
	"hurt someone",
	"how to fight",
	"scary story about death",
}

var defaultTopicRules = []topicRule{
	{name: "violence", keywords: []string{"blood", "stab", "shoot", "attack", "hurt", "punch", "war"}, minHits: 2},
	{name: "adult_content", keywords: []string{"dating", "romance", "kissing", "drunk", "party"}, minHits: 2},
	{name: "finance", keywords: []string{"crypto", "bitcoin", "stocks", "invest", "loan", "mortgage"}, minHits: 2},
}

// NewLiteFilter creates a filter with the default blocklist and topic rules.
func NewLiteFilter() *LiteFilter {
	f := &LiteFilter{
		blocklist: make(map[string]struct{}, len(defaultBlocklist)),
		phrases:   defaultBlockedPhrases,
		topics:    defaultTopicRules,
	}
	for _, w := range defaultBlocklist {
		f.blocklist[w] = struct{}{}
	}
	return f
}

// AddBlockedWords extends the blocklist at runtime.
func (f *LiteFilter) AddBlockedWords(words ...string) {
	for _, w := range words {
		f.blocklist[strings.ToLower(w)] = struct{}{}
	}
}

// Check tests raw text against the blocklist and the topic rules. It returns
// ok=false with a machine-readable reason on the first match. It never calls
// out to a model.
func (f *LiteFilter) Check(text string) (bool, string) {
	if len(text) > MaxFilterInput {
		text = text[:MaxFilterInput]
	}
	normalized := normalize(text)

	for _, tok := range strings.Fields(normalized) {
		if _, blocked := f.blocklist[tok]; blocked {
			return false, "blocklist:" + tok
		}
	}

	for _, phrase := range f.phrases {
		if strings.Contains(normalized, phrase) {
			return false, "phrase:" + strings.ReplaceAll(phrase, " ", "_")
		}
	}

	for _, topic := range f.topics {
		hits := 0
		for _, kw := range topic.keywords {
			if containsWord(normalized, kw) {
				hits++
				if hits >= topic.minHits {
					return false, "topic:" + topic.name
				}
			}
		}
	}

	return true, ""
}

// normalize lowercases and strips punctuation so matching is case- and
// punctuation-insensitive.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			// Punctuation becomes a separator so "kill!" still matches.
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func containsWord(normalized, word string) bool {
	idx := 0
	for {
		i := strings.Index(normalized[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		startOK := start == 0 || normalized[start-1] == ' '
		endOK := end == len(normalized) || normalized[end] == ' '
		if startOK && endOK {
			return true
		}
		idx = start + 1
	}
}
