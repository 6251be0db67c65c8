package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Params holds the structured parameters mined out of a message. Zero
// values mean "not mentioned".
type Params struct {
	Age      int      `json:"age,omitempty"`
	AgeUnit  string   `json:"age_unit,omitempty"` // "year" or "month"
	Time     int      `json:"time,omitempty"`
	TimeUnit string   `json:"time_unit,omitempty"` // "minute", "hour", "day"
	Location string   `json:"location,omitempty"`  // "indoor" or "outdoor"
	Mess     string   `json:"mess,omitempty"`      // "low" or "high"
	Themes   []string `json:"themes,omitempty"`
	Length   string   `json:"length,omitempty"` // "short" or "long"
}

// IsZero reports whether nothing was extracted.
func (p Params) IsZero() bool {
	return p.Age == 0 && p.Time == 0 && p.Location == "" && p.Mess == "" &&
		len(p.Themes) == 0 && p.Length == ""
}

// TimeMinutes normalizes the time budget to minutes. Zero means unbounded.
func (p Params) TimeMinutes() int {
	switch p.TimeUnit {
	case "hour":
		return p.Time * 60
	case "day":
		return p.Time * 24 * 60
	default:
		return p.Time
	}
}

var (
	ageRe      = regexp.MustCompile(`(?i)(\d+)[- ]*(year|month)s?[- ]*(old)?`)
	timeRe     = regexp.MustCompile(`(?i)(\d+)[- ]*(minute|min|hour|day)s?`)
	indoorRe   = regexp.MustCompile(`(?i)indoor|inside`)
	outdoorRe  = regexp.MustCompile(`(?i)outdoor|outside`)
	lowMessRe  = regexp.MustCompile(`(?i)(low|no|little)[- ]mess|not\s+messy|clean`)
	highMessRe = regexp.MustCompile(`(?i)messy|high[- ]mess`)
	shortRe    = regexp.MustCompile(`(?i)\b(short|quick|brief)\b`)
	longRe     = regexp.MustCompile(`(?i)\b(long|detailed)\b`)
)

// storyThemes is the closed theme vocabulary the story collection is
// indexed under.
var storyThemes = []string{
	"adventure", "princess", "dinosaur", "space", "animal",
	"farm", "ocean", "jungle", "magic", "superhero",
}

// ExtractParams mines intent-specific parameters from a message. Unknown
// and greeting intents carry no parameters.
func ExtractParams(message string, target Intent) Params {
	var p Params

	switch target {
	case IntentActivity:
		if m := ageRe.FindStringSubmatch(message); m != nil {
			p.Age, _ = strconv.Atoi(m[1])
			p.AgeUnit = strings.ToLower(m[2])
		}
		if m := timeRe.FindStringSubmatch(message); m != nil {
			p.Time, _ = strconv.Atoi(m[1])
			p.TimeUnit = strings.ToLower(m[2])
			if p.TimeUnit == "min" {
				p.TimeUnit = "minute"
			}
		}
		switch {
		case indoorRe.MatchString(message):
			p.Location = "indoor"
		case outdoorRe.MatchString(message):
			p.Location = "outdoor"
		}
		switch {
		case lowMessRe.MatchString(message):
			p.Mess = "low"
		case highMessRe.MatchString(message):
			p.Mess = "high"
		}
	case IntentStory:
		lowered := strings.ToLower(message)
		for _, theme := range storyThemes {
			if containsWholeWord(lowered, theme) {
				p.Themes = append(p.Themes, theme)
			}
		}
		switch {
		case shortRe.MatchString(message):
			p.Length = "short"
		case longRe.MatchString(message):
			p.Length = "long"
		}
	case IntentWhy:
		if m := ageRe.FindStringSubmatch(message); m != nil {
			p.Age, _ = strconv.Atoi(m[1])
			p.AgeUnit = strings.ToLower(m[2])
		}
	}

	return p
}

func containsWholeWord(lowered, word string) bool {
	idx := 0
	for {
		i := strings.Index(lowered[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		startOK := start == 0 || !isAlnum(lowered[start-1])
		endOK := end == len(lowered) || !isAlnum(lowered[end])
		if startOK && endOK {
			return true
		}
		idx = start + 1
	}
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
