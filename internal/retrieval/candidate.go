// Package retrieval finds grounding content for a turn. Each query runs a
// dense (embedding) and a lexical (term overlap) search in parallel, fuses
// the two ranked lists, and hands the result to the reranker.
package retrieval

import (
	"github.com/kidspark-ai/kidspark/pkg/vectorstore"
)

// Collection names the content libraries.
type Collection string

const (
	CollectionActivities Collection = "activities"
	CollectionStories    Collection = "stories"
	CollectionKnowledge  Collection = "knowledge"
)

// CollectionForIntent maps an intent label to its content collection.
func CollectionForIntent(intentLabel string) Collection {
	switch intentLabel {
	case "activity":
		return CollectionActivities
	case "story":
		return CollectionStories
	default:
		return CollectionKnowledge
	}
}

// Candidate is one scored grounding item. Score semantics depend on the
// stage: fusion score out of the engine, contextual relevance (0..1) out
// of the reranker.
type Candidate struct {
	ContentID  string                 `json:"content_id"`
	Collection Collection             `json:"collection"`
	Score      float64                `json:"score"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Filters are the hard constraints applied before scoring. Items failing a
// filter are excluded outright, never just down-ranked.
type Filters struct {
	// Age is the child's age in years. Zero means no age constraint.
	// Matching widens the window to [age-1, age+2] so near-miss content
	// is not lost.
	Age int

	// SafetyTag requires an exact metadata match (normally "safe").
	SafetyTag string

	// MaxDurationMinutes excludes activities longer than the time budget.
	MaxDurationMinutes int

	// Mess and Location require exact matches when set.
	Mess     string
	Location string
}

// ageWindowBefore and ageWindowAfter define the widening of the age filter.
const (
	ageWindowBefore = 1
	ageWindowAfter  = 2
)

// toMetadataFilter translates Filters to the store's filter form. Content
// age ranges are stored as min_age/max_age; a document matches when its
// range overlaps [age-1, age+2].
func (f Filters) toMetadataFilter() *vectorstore.MetadataFilter {
	mf := &vectorstore.MetadataFilter{
		Must:         map[string]interface{}{},
		NumericRange: map[string]vectorstore.Range{},
	}
	if f.SafetyTag != "" {
		mf.Must["safety_tag"] = f.SafetyTag
	}
	if f.Mess != "" {
		mf.Must["mess"] = f.Mess
	}
	if f.Location != "" {
		mf.Must["location"] = f.Location
	}
	if f.Age > 0 {
		low := float64(f.Age - ageWindowBefore)
		high := float64(f.Age + ageWindowAfter)
		// overlap: min_age <= age+2 && max_age >= age-1
		mf.NumericRange["min_age"] = vectorstore.Range{Max: &high}
		mf.NumericRange["max_age"] = vectorstore.Range{Min: &low}
	}
	if f.MaxDurationMinutes > 0 {
		limit := float64(f.MaxDurationMinutes)
		mf.NumericRange["duration_minutes"] = vectorstore.Range{Max: &limit}
	}
	if len(mf.Must) == 0 && len(mf.NumericRange) == 0 {
		return nil
	}
	return mf
}
