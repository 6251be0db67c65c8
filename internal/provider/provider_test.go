package provider

import (
	"context"
	"errors"
	"testing"
)

func TestRegistry_RegisterAndNew(t *testing.T) {
	RegisterFactory("test-fake", func(config map[string]any) (Provider, error) {
		return NewMockProvider("test-fake"), nil
	})

	p, err := New("test-fake", nil)
	if err != nil {
		t.Fatalf("New(test-fake) error: %v", err)
	}
	if p.Name() != "test-fake" {
		t.Errorf("Name() = %q, want test-fake", p.Name())
	}

	if _, err := New("does-not-exist", nil); err == nil {
		t.Error("expected error for unregistered provider")
	}
}

func TestRegistry_BuiltinsRegistered(t *testing.T) {
	names := Registered()
	want := map[string]bool{"openai": false, "gemini": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, seen := range want {
		if !seen {
			t.Errorf("provider %q not registered", n)
		}
	}
}

func TestMockProvider_Script(t *testing.T) {
	ctx := context.Background()
	mock := NewMockProvider("mock").WithResponses("first", "second")

	resp, err := mock.CreateCompletion(ctx, CompletionRequest{Model: "m"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "first" {
		t.Errorf("content = %q, want first", resp.Content)
	}

	resp, _ = mock.CreateCompletion(ctx, CompletionRequest{})
	if resp.Content != "second" {
		t.Errorf("content = %q, want second", resp.Content)
	}

	// Script exhausted: default response.
	resp, _ = mock.CreateCompletion(ctx, CompletionRequest{})
	if resp.Content != "Mock response" {
		t.Errorf("content = %q, want default", resp.Content)
	}

	if mock.CallCount() != 3 {
		t.Errorf("CallCount() = %d, want 3", mock.CallCount())
	}
}

func TestMockProvider_Errors(t *testing.T) {
	scripted := errors.New("scripted failure")
	mock := NewMockProvider("mock").WithErrors(scripted)

	_, err := mock.CreateCompletion(context.Background(), CompletionRequest{})
	if !errors.Is(err, scripted) {
		t.Errorf("err = %v, want scripted failure", err)
	}
}

func TestMockProvider_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := NewMockProvider("mock")
	if _, err := mock.CreateCompletion(ctx, CompletionRequest{}); err == nil {
		t.Error("expected context error")
	}
	if mock.CallCount() != 0 {
		t.Error("cancelled call should not be recorded")
	}
}

func TestProviderError_Retryable(t *testing.T) {
	tests := []struct {
		code      string
		retryable bool
	}{
		{ErrorCodeRateLimit, true},
		{ErrorCodeServerError, true},
		{ErrorCodeTimeout, true},
		{ErrorCodeAuthentication, false},
		{ErrorCodeInvalidRequest, false},
		{ErrorCodeContentFiltered, false},
	}
	for _, tt := range tests {
		e := NewError("p", tt.code, "msg", nil)
		if e.IsRetryable != tt.retryable {
			t.Errorf("code %s: IsRetryable = %v, want %v", tt.code, e.IsRetryable, tt.retryable)
		}
	}
}

func TestProviderError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	e := NewError("p", ErrorCodeUnknown, "outer", inner)
	if !errors.Is(e, inner) {
		t.Error("Unwrap should expose the original error")
	}
}
