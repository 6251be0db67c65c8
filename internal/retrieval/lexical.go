package retrieval

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/kidspark-ai/kidspark/pkg/vectorstore"
)

// LexicalIndex is an in-memory inverted index over one collection. Scoring
// is a weighted unique-keyword sum with a boost when several distinct query
// terms hit the same document, normalized to 0..1.
type LexicalIndex struct {
	mu       sync.RWMutex
	postings map[string]map[string]struct{} // keyword -> set of doc IDs
	docs     map[string]indexedDoc
}

type indexedDoc struct {
	content  string
	metadata map[string]interface{}
}

// stopwords are dropped from both documents and queries.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {},
	"is": {}, "are": {}, "was": {}, "be": {}, "to": {}, "of": {},
	"in": {}, "on": {}, "at": {}, "for": {}, "with": {}, "about": {},
	"me": {}, "my": {}, "i": {}, "we": {}, "you": {}, "your": {},
	"it": {}, "its": {}, "this": {}, "that": {}, "do": {}, "does": {},
	"can": {}, "could": {}, "would": {}, "tell": {}, "please": {},
}

// NewLexicalIndex creates an empty index.
func NewLexicalIndex() *LexicalIndex {
	return &LexicalIndex{
		postings: make(map[string]map[string]struct{}),
		docs:     make(map[string]indexedDoc),
	}
}

// Add indexes one document. Re-adding an ID replaces its previous entry.
func (x *LexicalIndex) Add(id, content string, metadata map[string]interface{}) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, exists := x.docs[id]; exists {
		x.removeLocked(id)
	}
	x.docs[id] = indexedDoc{content: content, metadata: metadata}
	for _, kw := range tokenize(content) {
		set := x.postings[kw]
		if set == nil {
			set = make(map[string]struct{})
			x.postings[kw] = set
		}
		set[id] = struct{}{}
	}
}

// Remove drops a document from the index.
func (x *LexicalIndex) Remove(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.removeLocked(id)
}

func (x *LexicalIndex) removeLocked(id string) {
	doc, exists := x.docs[id]
	if !exists {
		return
	}
	for _, kw := range tokenize(doc.content) {
		delete(x.postings[kw], id)
		if len(x.postings[kw]) == 0 {
			delete(x.postings, kw)
		}
	}
	delete(x.docs, id)
}

// Len returns the number of indexed documents.
func (x *LexicalIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.docs)
}

// lexicalHit pairs a doc ID with its normalized score.
type lexicalHit struct {
	ID       string
	Score    float64
	Content  string
	Metadata map[string]interface{}
}

// Search scores documents by query term overlap. Results honoring the
// metadata filter come back ordered by score descending, ID ascending.
func (x *LexicalIndex) Search(query string, topK int, filter *vectorstore.MetadataFilter) []lexicalHit {
	keywords := uniqueTokens(query)
	if len(keywords) == 0 {
		return nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	// Count distinct query keywords per document.
	matched := make(map[string]int)
	for _, kw := range keywords {
		for id := range x.postings[kw] {
			matched[id]++
		}
	}

	// The densest possible hit: every keyword present, full boost.
	maxPossible := float64(len(keywords)) * (1.0 + float64(len(keywords)-1)*0.2)

	var hits []lexicalHit
	for id, unique := range matched {
		doc := x.docs[id]
		if filter != nil {
			vsDoc := vectorstore.Document{ID: id, Metadata: doc.metadata}
			if !vectorstore.MatchesFilter(vsDoc, filter) {
				continue
			}
		}
		score := float64(unique)
		if unique > 1 {
			score *= 1.0 + float64(unique-1)*0.2
		}
		score /= maxPossible
		if score > 1 {
			score = 1
		}
		hits = append(hits, lexicalHit{
			ID:       id,
			Score:    score,
			Content:  doc.content,
			Metadata: doc.metadata,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// tokenize lowercases, strips punctuation, and drops stopwords and
// single-character tokens.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func uniqueTokens(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range tokenize(text) {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
