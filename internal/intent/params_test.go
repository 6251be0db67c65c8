package intent

import (
	"reflect"
	"testing"
)

func TestExtractParams_Activity(t *testing.T) {
	p := ExtractParams("Tell me about paper plate crafts for a 3 year old, 15 minutes, low mess", IntentActivity)

	if p.Age != 3 || p.AgeUnit != "year" {
		t.Errorf("age = %d %s, want 3 year", p.Age, p.AgeUnit)
	}
	if p.Time != 15 || p.TimeUnit != "minute" {
		t.Errorf("time = %d %s, want 15 minute", p.Time, p.TimeUnit)
	}
	if p.Mess != "low" {
		t.Errorf("mess = %q, want low", p.Mess)
	}
}

func TestExtractParams_ActivityLocation(t *testing.T) {
	if p := ExtractParams("indoor games for toddlers", IntentActivity); p.Location != "indoor" {
		t.Errorf("location = %q, want indoor", p.Location)
	}
	if p := ExtractParams("something to do outside", IntentActivity); p.Location != "outdoor" {
		t.Errorf("location = %q, want outdoor", p.Location)
	}
}

func TestExtractParams_ActivityHours(t *testing.T) {
	p := ExtractParams("we have 2 hours to fill", IntentActivity)
	if p.Time != 2 || p.TimeUnit != "hour" {
		t.Errorf("time = %d %s, want 2 hour", p.Time, p.TimeUnit)
	}
	if p.TimeMinutes() != 120 {
		t.Errorf("TimeMinutes() = %d, want 120", p.TimeMinutes())
	}
}

func TestExtractParams_Story(t *testing.T) {
	p := ExtractParams("a short story about a dinosaur in space", IntentStory)

	if !reflect.DeepEqual(p.Themes, []string{"dinosaur", "space"}) {
		t.Errorf("themes = %v, want [dinosaur space]", p.Themes)
	}
	if p.Length != "short" {
		t.Errorf("length = %q, want short", p.Length)
	}
}

func TestExtractParams_StoryThemeWordBoundary(t *testing.T) {
	p := ExtractParams("a story about spacecraft maintenance", IntentStory)
	for _, theme := range p.Themes {
		if theme == "space" {
			t.Error("'spacecraft' should not match theme 'space'")
		}
	}
}

func TestExtractParams_MonthOldAge(t *testing.T) {
	p := ExtractParams("activities for an 18 month old", IntentActivity)
	if p.Age != 18 || p.AgeUnit != "month" {
		t.Errorf("age = %d %s, want 18 month", p.Age, p.AgeUnit)
	}
}

func TestExtractParams_GreetingEmpty(t *testing.T) {
	if p := ExtractParams("good morning!", IntentGreeting); !p.IsZero() {
		t.Errorf("greeting params should be empty, got %+v", p)
	}
}
