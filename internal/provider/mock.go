package provider

import (
	"context"
)

func init() {
	RegisterFactory("mock", func(map[string]any) (Provider, error) {
		return NewMockProvider("mock"), nil
	})
}

// MockProvider is a scripted provider for tests. Responses and errors are
// consumed in order; when the script runs out it returns a default response.
type MockProvider struct {
	name string

	// Responses to return for each request
	CompletionResponses []*CompletionResponse
	Errors              []error

	// Track calls
	CompletionCalls []CompletionRequest

	currentIndex int
}

// NewMockProvider creates a new mock provider
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:                name,
		CompletionResponses: []*CompletionResponse{},
		Errors:              []error{},
		CompletionCalls:     []CompletionRequest{},
	}
}

// Name implements Provider
func (m *MockProvider) Name() string {
	return m.name
}

// CreateCompletion implements Provider
func (m *MockProvider) CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.CompletionCalls = append(m.CompletionCalls, request)

	if m.currentIndex < len(m.Errors) && m.Errors[m.currentIndex] != nil {
		err := m.Errors[m.currentIndex]
		m.currentIndex++
		return nil, err
	}

	if m.currentIndex < len(m.CompletionResponses) {
		response := m.CompletionResponses[m.currentIndex]
		m.currentIndex++
		return response, nil
	}

	return &CompletionResponse{
		Content:      "Mock response",
		FinishReason: "stop",
		Usage: Usage{
			PromptTokens:     10,
			CompletionTokens: 5,
			TotalTokens:      15,
		},
	}, nil
}

// WithResponses sets the scripted responses and returns the mock for chaining.
func (m *MockProvider) WithResponses(contents ...string) *MockProvider {
	for _, c := range contents {
		m.CompletionResponses = append(m.CompletionResponses, &CompletionResponse{
			Content:      c,
			FinishReason: "stop",
		})
	}
	return m
}

// WithErrors sets the scripted errors and returns the mock for chaining.
func (m *MockProvider) WithErrors(errs ...error) *MockProvider {
	m.Errors = append(m.Errors, errs...)
	return m
}

// Reset clears recorded calls and rewinds the script.
func (m *MockProvider) Reset() {
	m.CompletionCalls = m.CompletionCalls[:0]
	m.currentIndex = 0
}

// CallCount returns the number of completion calls recorded.
func (m *MockProvider) CallCount() int {
	return len(m.CompletionCalls)
}
