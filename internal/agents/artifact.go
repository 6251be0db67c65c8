package agents

// DisplayType tells the client surface how to render an artifact.
type DisplayType string

const (
	DisplayText         DisplayType = "text"
	DisplayActivityCard DisplayType = "activity_card"
	DisplayStory        DisplayType = "story"
)

// Artifact is an agent's produced content plus the structured payload the
// client renders alongside it. Passages records the grounding text the
// artifact was generated from, for downstream entailment checking.
type Artifact struct {
	Text        string                 `json:"text"`
	DisplayType DisplayType            `json:"display_type"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Passages    []string               `json:"-"`
}
