// Package embeddings generates vector representations of text for the
// retrieval engine. Providers register themselves by name; the active one
// is chosen by configuration.
package embeddings

import (
	"context"
	"fmt"
	"sync"
)

// Service is the main interface for generating text embeddings.
type Service interface {
	// Embed generates embeddings for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimension size of the embeddings
	Dimensions() int

	// ModelName returns the name of the embedding model
	ModelName() string
}

// Config selects and configures an embedding provider.
type Config struct {
	// Provider specifies which embedding service to use.
	// Supported values: "openai", "deterministic"
	Provider string `yaml:"provider" json:"provider"`

	// APIKey for the remote provider.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`

	// Model specifies which embedding model to use.
	Model string `yaml:"model,omitempty" json:"model,omitempty"`

	// Dimensions overrides the embedding width where the provider allows it.
	Dimensions int `yaml:"dimensions,omitempty" json:"dimensions,omitempty"`
}

// ProviderFactory creates a Service from a Config.
type ProviderFactory func(config Config) (Service, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]ProviderFactory)
)

// Register makes a provider available under a name. Providers call this
// from init.
func Register(name string, factory ProviderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New creates the embedding service selected by config.Provider.
func New(config Config) (Service, error) {
	if config.Provider == "" {
		return nil, fmt.Errorf("embedding provider must be specified")
	}
	registryMu.RLock()
	factory, ok := registry[config.Provider]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported embedding provider: %s", config.Provider)
	}
	return factory(config)
}
