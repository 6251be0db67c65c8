package retrieval

import (
	"strings"
)

// collectionVocab holds the domain terms appended to every query against a
// collection. Expansion nudges both searches toward the collection's
// vocabulary without changing the user's words.
var collectionVocab = map[Collection]string{
	CollectionActivities: "children activity play hands-on craft game",
	CollectionStories:    "children story bedtime tale characters",
	CollectionKnowledge:  "simple explanation facts for kids",
}

// ageVocab maps an age to developmental vocabulary the content library is
// written in.
func ageVocab(age int) string {
	switch {
	case age <= 0:
		return ""
	case age <= 3:
		return "toddler"
	case age <= 5:
		return "preschool"
	case age <= 8:
		return "early school age"
	default:
		return "older child"
	}
}

// ExpandQuery appends collection and age vocabulary to the raw query.
func ExpandQuery(query string, collection Collection, age int) string {
	var b strings.Builder
	b.WriteString(query)
	if vocab, ok := collectionVocab[collection]; ok {
		b.WriteString(" ")
		b.WriteString(vocab)
	}
	if av := ageVocab(age); av != "" {
		b.WriteString(" ")
		b.WriteString(av)
	}
	return b.String()
}
