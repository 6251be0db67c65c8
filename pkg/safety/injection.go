package safety

import (
	"encoding/base64"
	"regexp"
	"strings"
)

// Sensitivity levels for prompt injection detection
type Sensitivity int

const (
	// SensitivityLow catches obvious injection attempts
	SensitivityLow Sensitivity = iota
	// SensitivityMedium catches moderate injection attempts
	SensitivityMedium
	// SensitivityHigh catches subtle injection attempts (may have higher false positives)
	SensitivityHigh
)

// DetectionCategory represents the type of injection attack detected
type DetectionCategory string

const (
	CategorySystemOverride     DetectionCategory = "system_override"
	CategoryRoleHijacking      DetectionCategory = "role_hijacking"
	CategoryDelimiterInjection DetectionCategory = "delimiter_injection"
	CategoryEncodingAttack     DetectionCategory = "encoding_attack"
)

// DetectionResult contains information about a detected injection attempt
type DetectionResult struct {
	Detected        bool              `json:"detected"`
	Confidence      float64           `json:"confidence"`
	Category        DetectionCategory `json:"category,omitempty"`
	MatchedPatterns []string          `json:"matched_patterns,omitempty"`
}

// Pattern defines a detection pattern with its category and weight
type Pattern struct {
	Regex       *regexp.Regexp
	Category    DetectionCategory
	Weight      float64
	Description string
	MinLevel    Sensitivity
}

// InjectionDetector detects instruction-override attempts, both in user
// input and inside retrieved content (a grounding candidate's text must not
// itself be treated as instructions).
type InjectionDetector struct {
	sensitivity Sensitivity
	patterns    []Pattern
}

// NewInjectionDetector creates a new detector with the specified sensitivity
func NewInjectionDetector(sensitivity Sensitivity) *InjectionDetector {
	d := &InjectionDetector{sensitivity: sensitivity}
	d.initPatterns()
	return d
}

func (d *InjectionDetector) initPatterns() {
	d.patterns = []Pattern{
		// System override patterns
		{
			Regex:       regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+instructions?`),
			Category:    CategorySystemOverride,
			Weight:      1.0,
			Description: "ignore previous instructions",
			MinLevel:    SensitivityLow,
		},
		{
			Regex:       regexp.MustCompile(`(?i)ignore\s+(all\s+)?(your|the)\s+(rules?|instructions?|guidelines?)`),
			Category:    CategorySystemOverride,
			Weight:      1.0,
			Description: "ignore your rules",
			MinLevel:    SensitivityLow,
		},
		{
			Regex:       regexp.MustCompile(`(?i)disregard\s+(your\s+|all\s+)?(instructions?|rules?|safety)`),
			Category:    CategorySystemOverride,
			Weight:      1.0,
			Description: "disregard instructions",
			MinLevel:    SensitivityLow,
		},
		{
			Regex:       regexp.MustCompile(`(?i)forget\s+(everything|all|your\s+(instructions?|rules?))`),
			Category:    CategorySystemOverride,
			Weight:      1.0,
			Description: "forget everything",
			MinLevel:    SensitivityLow,
		},
		{
			Regex:       regexp.MustCompile(`(?i)override\s+(your\s+)?(system|instructions?|programming|safety)`),
			Category:    CategorySystemOverride,
			Weight:      0.9,
			Description: "override system",
			MinLevel:    SensitivityLow,
		},
		{
			Regex:       regexp.MustCompile(`(?i)new\s+instructions?:\s*`),
			Category:    CategorySystemOverride,
			Weight:      0.7,
			Description: "new instructions",
			MinLevel:    SensitivityMedium,
		},
		{
			Regex:       regexp.MustCompile(`(?i)bypass\s+(your\s+)?(filter|restriction|safety|guardrail)`),
			Category:    CategorySystemOverride,
			Weight:      0.9,
			Description: "bypass filters",
			MinLevel:    SensitivityLow,
		},

		// Role hijacking patterns
		{
			Regex:       regexp.MustCompile(`(?i)you\s+are\s+now\s+a`),
			Category:    CategoryRoleHijacking,
			Weight:      1.0,
			Description: "you are now a",
			MinLevel:    SensitivityLow,
		},
		{
			Regex:       regexp.MustCompile(`(?i)pretend\s+you\s+are\s+not`),
			Category:    CategoryRoleHijacking,
			Weight:      0.9,
			Description: "pretend you are not",
			MinLevel:    SensitivityLow,
		},
		{
			Regex:       regexp.MustCompile(`(?i)act\s+as\s+(if\s+you\s+have\s+no|an?\s+unrestricted)`),
			Category:    CategoryRoleHijacking,
			Weight:      0.8,
			Description: "act as unrestricted",
			MinLevel:    SensitivityLow,
		},
		{
			Regex:       regexp.MustCompile(`(?i)roleplay\s+as`),
			Category:    CategoryRoleHijacking,
			Weight:      0.7,
			Description: "roleplay as",
			MinLevel:    SensitivityMedium,
		},

		// Delimiter injection patterns
		{
			Regex:       regexp.MustCompile(`(?i)^system:\s*`),
			Category:    CategoryDelimiterInjection,
			Weight:      1.0,
			Description: "system: prefix",
			MinLevel:    SensitivityLow,
		},
		{
			Regex:       regexp.MustCompile(`(?i)\[INST\]`),
			Category:    CategoryDelimiterInjection,
			Weight:      1.0,
			Description: "[INST] tag",
			MinLevel:    SensitivityLow,
		},
		{
			Regex:       regexp.MustCompile(`(?i)###\s*(System|Instruction|Human|Assistant)`),
			Category:    CategoryDelimiterInjection,
			Weight:      0.9,
			Description: "### delimiter",
			MinLevel:    SensitivityLow,
		},
		{
			Regex:       regexp.MustCompile(`<\|?(system|user|assistant|im_start|im_end)\|?>`),
			Category:    CategoryDelimiterInjection,
			Weight:      1.0,
			Description: "chat template tags",
			MinLevel:    SensitivityLow,
		},
		{
			Regex:       regexp.MustCompile(`(?i)</?system>`),
			Category:    CategoryDelimiterInjection,
			Weight:      0.9,
			Description: "<system> XML tag",
			MinLevel:    SensitivityLow,
		},
	}
}

// MaxInputSize is the maximum input size (10KB) to prevent ReDoS attacks
const MaxInputSize = 10 * 1024

// Detect analyzes text for prompt injection attempts
func (d *InjectionDetector) Detect(input string) DetectionResult {
	result := DetectionResult{MatchedPatterns: []string{}}

	if input == "" {
		return result
	}
	if len(input) > MaxInputSize {
		input = input[:MaxInputSize]
	}

	normalized := d.normalizeInput(input)

	if encodingResult := d.detectEncodingAttacks(input); encodingResult.Detected {
		return encodingResult
	}

	var highestCategory DetectionCategory
	for _, pattern := range d.patterns {
		if pattern.MinLevel > d.sensitivity {
			continue
		}
		if pattern.Regex.MatchString(normalized) {
			result.MatchedPatterns = append(result.MatchedPatterns, pattern.Description)
			if pattern.Weight > result.Confidence {
				result.Confidence = pattern.Weight
				highestCategory = pattern.Category
			}
		}
	}

	if len(result.MatchedPatterns) > 0 {
		result.Detected = true
		result.Category = highestCategory
		// Boost confidence if multiple patterns matched
		if n := len(result.MatchedPatterns); n > 1 {
			result.Confidence = min(1.0, result.Confidence+0.1*float64(n-1))
		}
	}

	return result
}

// normalizeInput prepares input for pattern matching
func (d *InjectionDetector) normalizeInput(input string) string {
	normalized := removeZeroWidthChars(input)
	normalized = regexp.MustCompile(`[ \t]+`).ReplaceAllString(normalized, " ")
	return normalized
}

// removeZeroWidthChars removes invisible unicode characters that might be
// used to evade detection.
func removeZeroWidthChars(input string) string {
	var result strings.Builder
	for _, r := range input {
		if r == '\u200b' || r == '\u200c' || r == '\u200d' ||
			r == '\ufeff' || r == '\u00ad' || r == '\u2060' {
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}

// maxBase64Matches is the maximum number of base64 patterns to check to prevent DoS
const maxBase64Matches = 10

// detectEncodingAttacks checks for base64-encoded injection content
func (d *InjectionDetector) detectEncodingAttacks(input string) DetectionResult {
	result := DetectionResult{MatchedPatterns: []string{}}

	base64Pattern := regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`)
	matches := base64Pattern.FindAllString(input, maxBase64Matches)

	for _, match := range matches {
		decoded, err := base64.StdEncoding.DecodeString(match)
		if err != nil {
			continue
		}
		decodedStr := strings.ToLower(string(decoded))

		for _, pattern := range d.patterns {
			if pattern.MinLevel > d.sensitivity {
				continue
			}
			if pattern.Regex.MatchString(decodedStr) {
				result.Detected = true
				result.Confidence = 0.95
				result.Category = CategoryEncodingAttack
				result.MatchedPatterns = append(result.MatchedPatterns, "base64 encoded: "+pattern.Description)
				return result
			}
		}
	}

	return result
}

// SetSensitivity changes the detection sensitivity level
func (d *InjectionDetector) SetSensitivity(level Sensitivity) {
	d.sensitivity = level
}

// AddPattern adds a custom detection pattern
func (d *InjectionDetector) AddPattern(pattern Pattern) {
	d.patterns = append(d.patterns, pattern)
}
