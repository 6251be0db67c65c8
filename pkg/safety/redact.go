package safety

import (
	"regexp"
)

// piiPattern couples a compiled expression with the placeholder that
// replaces every match.
type piiPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// Redactor strips identifying fragments from free text before it is sent
// to any external model. Replacement is in-place with stable placeholder
// tokens so downstream components can still reason about sentence shape.
type Redactor struct {
	patterns []piiPattern
}

var defaultPIIPatterns = []piiPattern{
	{
		Name:        "email",
		Regex:       regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
		Replacement: "[email]",
	},
	{
		Name:        "phone",
		Regex:       regexp.MustCompile(`(?:\+?\d{1,3}[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}\b`),
		Replacement: "[phone]",
	},
	{
		Name:        "ssn",
		Regex:       regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		Replacement: "[id-number]",
	},
	{
		Name:        "credit_card",
		Regex:       regexp.MustCompile(`\b(?:\d[ \-]?){13,16}\b`),
		Replacement: "[card-number]",
	},
	{
		Name:        "street_address",
		Regex:       regexp.MustCompile(`(?i)\b\d{1,5}\s+[a-z0-9.\s]{2,30}\s(street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|dr|court|ct|way)\b`),
		Replacement: "[address]",
	},
	{
		Name:        "ip_address",
		Regex:       regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
		Replacement: "[ip]",
	},
	{
		Name:        "url",
		Regex:       regexp.MustCompile(`https?://[^\s]+`),
		Replacement: "[link]",
	},
}

// NewRedactor returns a Redactor with the built-in pattern set.
func NewRedactor() *Redactor {
	return &Redactor{patterns: defaultPIIPatterns}
}

// RedactResult reports what was removed alongside the cleaned text.
type RedactResult struct {
	Text     string
	Redacted bool
	Types    []string
}

// Redact replaces every recognized identifying fragment in text with its
// placeholder token. The returned Types list names each pattern that fired,
// in pattern order, without duplicates.
func (r *Redactor) Redact(text string) RedactResult {
	result := RedactResult{Text: text}
	for _, p := range r.patterns {
		if !p.Regex.MatchString(result.Text) {
			continue
		}
		result.Text = p.Regex.ReplaceAllString(result.Text, p.Replacement)
		result.Redacted = true
		result.Types = append(result.Types, p.Name)
	}
	return result
}
