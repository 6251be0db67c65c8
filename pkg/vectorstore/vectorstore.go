// Package vectorstore stores and searches embedded content documents. The
// content library is split into named collections (activities, stories,
// knowledge); every operation is scoped to one collection.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sync"
	"time"
)

// Store is the interface content backends implement.
type Store interface {
	// Upsert inserts or updates documents with embeddings
	Upsert(ctx context.Context, collection string, documents []Document) error

	// Search performs similarity search within a collection
	Search(ctx context.Context, collection string, query SearchQuery) ([]SearchResult, error)

	// Get retrieves documents by their IDs
	Get(ctx context.Context, collection string, ids []string) ([]Document, error)

	// Delete removes documents by their IDs
	Delete(ctx context.Context, collection string, ids []string) error

	// Close closes the connection to the backend
	Close() error
}

// Document is an embedded content item.
type Document struct {
	// ID is the unique identifier for the document
	ID string `json:"id"`

	// Content is the text content of the document
	Content string `json:"content"`

	// Embedding is the vector representation of the content
	Embedding []float32 `json:"embedding"`

	// Metadata carries the filterable attributes. Common keys: min_age,
	// max_age, safety_tag, duration_minutes, mess, location, themes.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CreatedAt is when the document was first created
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the document was last updated
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchQuery defines the parameters for a similarity search.
type SearchQuery struct {
	// Embedding is the query vector to search for
	Embedding []float32

	// TopK is the number of results to return (default: 10)
	TopK int

	// Filter is optional metadata filtering
	Filter *MetadataFilter

	// MinScore excludes documents scoring below it (0.0-1.0, cosine)
	MinScore float32
}

// SearchResult is a matched document with its similarity score.
type SearchResult struct {
	// Document is the matched document
	Document Document

	// Score is the cosine similarity, 0.0 to 1.0
	Score float32
}

// MetadataFilter defines conditions for filtering documents by metadata.
type MetadataFilter struct {
	// Must contains equality conditions that all must hold (AND)
	Must map[string]interface{}

	// MustNot contains conditions that must not hold (NOT)
	MustNot map[string]interface{}

	// NumericRange constrains numeric metadata fields.
	NumericRange map[string]Range
}

// Range is an inclusive numeric bound. Min or Max may be nil for
// half-open ranges.
type Range struct {
	Min *float64
	Max *float64
}

// Contains reports whether v falls in the range.
func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

var documentIDRe = regexp.MustCompile(`^[a-zA-Z0-9_\-.]{1,128}$`)

// ValidateDocument checks a document before storage.
func ValidateDocument(doc *Document) error {
	if !documentIDRe.MatchString(doc.ID) {
		return fmt.Errorf("invalid document ID %q", doc.ID)
	}
	if doc.Content == "" {
		return fmt.Errorf("document content cannot be empty")
	}
	if len(doc.Embedding) == 0 {
		return fmt.Errorf("document embedding cannot be empty")
	}
	for i, val := range doc.Embedding {
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return fmt.Errorf("embedding contains invalid value at index %d: %f", i, val)
		}
	}
	return nil
}

// ValidateSearchQuery checks a search query.
func ValidateSearchQuery(query *SearchQuery) error {
	if len(query.Embedding) == 0 {
		return fmt.Errorf("query embedding cannot be empty")
	}
	for i, val := range query.Embedding {
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return fmt.Errorf("query embedding contains invalid value at index %d: %f", i, val)
		}
	}
	if query.TopK < 1 {
		return fmt.Errorf("TopK must be at least 1, got %d", query.TopK)
	}
	if query.TopK > 1000 {
		return fmt.Errorf("TopK cannot exceed 1000, got %d", query.TopK)
	}
	if query.MinScore < 0 || query.MinScore > 1 {
		return fmt.Errorf("MinScore must be between 0 and 1, got %f", query.MinScore)
	}
	return nil
}

// MatchesFilter reports whether a document satisfies the filter. Exposed so
// backends without server-side filtering can apply it client-side.
func MatchesFilter(doc Document, filter *MetadataFilter) bool {
	if filter == nil {
		return true
	}
	for key, expected := range filter.Must {
		actual, exists := doc.Metadata[key]
		if !exists || actual != expected {
			return false
		}
	}
	for key, rejected := range filter.MustNot {
		if actual, exists := doc.Metadata[key]; exists && actual == rejected {
			return false
		}
	}
	for key, r := range filter.NumericRange {
		actual, exists := doc.Metadata[key]
		if !exists {
			return false
		}
		v, ok := toFloat(actual)
		if !ok || !r.Contains(v) {
			return false
		}
	}
	return true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Config selects and configures a backend.
type Config struct {
	// Provider is the backend name: "memory" or "firestore".
	Provider string `yaml:"provider" json:"provider"`

	// EmbeddingDimensions is the expected embedding width.
	EmbeddingDimensions int `yaml:"embedding_dimensions" json:"embedding_dimensions"`

	// DefaultTopK applies when a query leaves TopK unset.
	DefaultTopK int `yaml:"default_top_k,omitempty" json:"default_top_k,omitempty"`

	// MaxDocuments caps the memory backend.
	MaxDocuments int `yaml:"max_documents,omitempty" json:"max_documents,omitempty"`

	// ProjectID and CollectionPrefix configure the firestore backend.
	ProjectID        string `yaml:"project_id,omitempty" json:"project_id,omitempty"`
	CollectionPrefix string `yaml:"collection_prefix,omitempty" json:"collection_prefix,omitempty"`
}

// Factory creates a Store from a Config.
type Factory func(config Config) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a backend available under a name.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New creates the backend selected by config.Provider.
func New(config Config) (Store, error) {
	registryMu.RLock()
	factory, ok := registry[config.Provider]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported vectorstore provider: %s", config.Provider)
	}
	return factory(config)
}
