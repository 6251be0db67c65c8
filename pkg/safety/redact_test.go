package safety

import (
	"strings"
	"testing"
)

func TestRedactor_Email(t *testing.T) {
	r := NewRedactor()

	res := r.Redact("my mom's email is jane.doe@example.com ok?")
	if !res.Redacted {
		t.Fatal("expected email to be redacted")
	}
	if strings.Contains(res.Text, "example.com") {
		t.Errorf("email survived redaction: %q", res.Text)
	}
	if !strings.Contains(res.Text, "[email]") {
		t.Errorf("placeholder missing: %q", res.Text)
	}
}

func TestRedactor_Phone(t *testing.T) {
	r := NewRedactor()

	tests := []string{
		"call me at 555-123-4567",
		"call me at (555) 123-4567",
		"call me at +1 555 123 4567",
	}
	for _, input := range tests {
		res := r.Redact(input)
		if !res.Redacted {
			t.Errorf("Redact(%q): expected phone to be redacted", input)
			continue
		}
		if !strings.Contains(res.Text, "[phone]") && !strings.Contains(res.Text, "[card-number]") {
			t.Errorf("Redact(%q) = %q, placeholder missing", input, res.Text)
		}
	}
}

func TestRedactor_Address(t *testing.T) {
	r := NewRedactor()

	res := r.Redact("I live at 42 Maple Street with my dog")
	if !res.Redacted {
		t.Fatal("expected address to be redacted")
	}
	if strings.Contains(res.Text, "Maple") {
		t.Errorf("address survived redaction: %q", res.Text)
	}
}

func TestRedactor_URL(t *testing.T) {
	r := NewRedactor()

	res := r.Redact("look at https://example.org/page please")
	if !strings.Contains(res.Text, "[link]") {
		t.Errorf("url not replaced: %q", res.Text)
	}
}

func TestRedactor_CleanTextUntouched(t *testing.T) {
	r := NewRedactor()

	input := "why do birds sing in the morning?"
	res := r.Redact(input)
	if res.Redacted {
		t.Errorf("clean text flagged as redacted, types=%v", res.Types)
	}
	if res.Text != input {
		t.Errorf("clean text modified: %q", res.Text)
	}
}

func TestRedactor_TypesReported(t *testing.T) {
	r := NewRedactor()

	res := r.Redact("email a@b.co and visit https://c.dev now")
	if len(res.Types) != 2 {
		t.Fatalf("expected 2 pattern types, got %v", res.Types)
	}
	if res.Types[0] != "email" || res.Types[1] != "url" {
		t.Errorf("unexpected type order: %v", res.Types)
	}
}
